package middlewarex

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"arcpay/internal/domain/identity"
)

// Claims carried by the bearer token issued at login. Token issuance is
// owned by the auth service; this subsystem only consumes the identity.
type Claims struct {
	DonorID int64  `json:"donor_id"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

// Auth resolves the bearer token into an explicit Identity on the
// request context. Handlers pull it out and pass it to services as a
// parameter; nothing below the HTTP layer reads the context for it.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			var claims Claims
			tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !tok.Valid {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			ident := identity.Identity{
				DonorID: claims.DonorID,
				Role:    identity.Role(claims.Role),
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), ident)))
		})
	}
}
