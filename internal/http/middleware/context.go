package middlewarex

import (
	"context"

	"arcpay/internal/domain/identity"
)

type ctxKey string

const ctxIdentity ctxKey = "identity"

func WithIdentity(ctx context.Context, ident identity.Identity) context.Context {
	return context.WithValue(ctx, ctxIdentity, ident)
}

func IdentityFrom(ctx context.Context) (identity.Identity, bool) {
	v, ok := ctx.Value(ctxIdentity).(identity.Identity)
	return v, ok
}
