// Package gateway defines the contract this service requires from the
// external payment gateway. Two implementations exist: razorpay talks to
// the gateway directly, proxy delegates to a remote payment service.
// Which one runs is a config decision, not duplicated business logic.
package gateway

import "context"

// Order is the gateway-side handle for an amount awaiting payment. It is
// distinct from the local Payment record; Order.ID is the join key
// between the two.
type Order struct {
	ID          string
	AmountMinor int64
	Currency    string
	Receipt     string
}

// Client is the capability surface of the external gateway. Both calls
// may cross the network and must honor ctx deadlines.
type Client interface {
	// CreateOrder registers a remote order for amountMinor (gateway
	// minor units) and returns the gateway's order handle.
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (*Order, error)

	// VerifySignature checks the keyed MAC the gateway computed over an
	// order/payment pair. A false result is a normal negative outcome;
	// a non-nil error means the verification itself could not be
	// performed and says nothing about the signature.
	VerifySignature(ctx context.Context, orderID, paymentID, signature string) (bool, error)

	// KeyID is the public key handle clients need to complete the
	// checkout against the gateway.
	KeyID() string
}
