package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"arcpay/internal/domain/identity"
	"arcpay/internal/domain/payment"
	"arcpay/internal/gateway"
	"arcpay/internal/gateway/razorpay"
	"arcpay/internal/store/memory"
)

const testSecret = "secret_test"

// fakeGateway issues sequential order ids and verifies the same MAC the
// real gateway uses.
type fakeGateway struct {
	seq       atomic.Int64
	createErr error
	verifyErr error

	mu     sync.Mutex
	orders map[string]int64
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{orders: make(map[string]int64)}
}

func (f *fakeGateway) CreateOrder(_ context.Context, amountMinor int64, currency, receipt string) (*gateway.Order, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	id := fmt.Sprintf("order_%d", f.seq.Add(1))
	f.mu.Lock()
	f.orders[id] = amountMinor
	f.mu.Unlock()
	return &gateway.Order{ID: id, AmountMinor: amountMinor, Currency: currency, Receipt: receipt}, nil
}

func (f *fakeGateway) VerifySignature(_ context.Context, orderID, paymentID, signature string) (bool, error) {
	if f.verifyErr != nil {
		return false, f.verifyErr
	}
	return razorpay.Sign(orderID, paymentID, testSecret) == signature, nil
}

func (f *fakeGateway) KeyID() string { return "key_test" }

var (
	donor = identity.Identity{DonorID: 7, Role: identity.RoleDonor}
	admin = identity.Identity{DonorID: 0, Role: identity.RoleAdmin}
)

func newService() (*Service, *memory.Ledger, *fakeGateway) {
	ledger := memory.NewLedger()
	gw := newFakeGateway()
	return NewService(ledger, gw), ledger, gw
}

func TestCreateOrderPersistsCreatedPayment(t *testing.T) {
	svc, ledger, _ := newService()
	ctx := context.Background()

	out, err := svc.CreateOrder(ctx, donor, CreateOrderRequest{
		Amount: 500.00, Type: payment.TypeDonation, ReferenceID: 42,
	})
	require.NoError(t, err)
	require.NotEmpty(t, out.OrderID)
	require.Equal(t, 500.00, out.Amount)
	require.Equal(t, "key_test", out.GatewayPublicKey)

	p, err := ledger.FindByTransactionID(ctx, out.OrderID)
	require.NoError(t, err)
	require.Equal(t, payment.StatusCreated, p.Status)
	require.Equal(t, payment.Money(50000), p.Amount)
	require.Equal(t, int64(7), p.DonorID)
}

func TestCreateOrderTransactionIDsUnique(t *testing.T) {
	svc, ledger, _ := newService()
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		out, err := svc.CreateOrder(ctx, donor, CreateOrderRequest{
			Amount: 10, Type: payment.TypeAdoption, ReferenceID: 1,
		})
		require.NoError(t, err)
		require.False(t, seen[out.OrderID])
		seen[out.OrderID] = true
	}
	all, err := ledger.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 20)
}

func TestCreateOrderValidation(t *testing.T) {
	svc, ledger, _ := newService()
	ctx := context.Background()

	cases := []struct {
		name string
		req  CreateOrderRequest
	}{
		{"zero amount", CreateOrderRequest{Amount: 0, Type: payment.TypeDonation, ReferenceID: 42}},
		{"negative amount", CreateOrderRequest{Amount: -5, Type: payment.TypeDonation, ReferenceID: 42}},
		{"missing type", CreateOrderRequest{Amount: 10, ReferenceID: 42}},
		{"missing reference", CreateOrderRequest{Amount: 10, Type: payment.TypeDonation}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateOrder(ctx, donor, tc.req)
			require.Equal(t, payment.KindInvalidRequest, payment.KindOf(err))
		})
	}

	// Nothing may be persisted on a rejected request.
	all, err := ledger.ListAll(ctx)
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestCreateOrderRequiresPayerCapability(t *testing.T) {
	svc, _, _ := newService()

	_, err := svc.CreateOrder(context.Background(), admin, CreateOrderRequest{
		Amount: 10, Type: payment.TypeDonation, ReferenceID: 42,
	})
	require.Equal(t, payment.KindUnauthorized, payment.KindOf(err))

	_, err = svc.CreateOrder(context.Background(), identity.Identity{}, CreateOrderRequest{
		Amount: 10, Type: payment.TypeDonation, ReferenceID: 42,
	})
	require.Equal(t, payment.KindUnauthorized, payment.KindOf(err))
}

func TestCreateOrderGatewayFailure(t *testing.T) {
	svc, ledger, gw := newService()
	gw.createErr = errors.New("connection refused")

	_, err := svc.CreateOrder(context.Background(), donor, CreateOrderRequest{
		Amount: 10, Type: payment.TypeDonation, ReferenceID: 42,
	})
	require.Equal(t, payment.KindGateway, payment.KindOf(err))

	all, lerr := ledger.ListAll(context.Background())
	require.NoError(t, lerr)
	require.Empty(t, all)
}

func TestVerifyValidSignatureSettlesSuccess(t *testing.T) {
	svc, ledger, _ := newService()
	ctx := context.Background()

	out, err := svc.CreateOrder(ctx, donor, CreateOrderRequest{
		Amount: 500.00, Type: payment.TypeDonation, ReferenceID: 42,
	})
	require.NoError(t, err)

	sig := razorpay.Sign(out.OrderID, "pay_1", testSecret)
	res, err := svc.Verify(ctx, donor, VerifyRequest{OrderID: out.OrderID, PaymentID: "pay_1", Signature: sig})
	require.NoError(t, err)
	require.True(t, res.SignatureValid)
	require.Equal(t, payment.StatusSuccess, res.Status)

	p, err := ledger.FindByTransactionID(ctx, out.OrderID)
	require.NoError(t, err)
	require.Equal(t, payment.StatusSuccess, p.Status)
}

func TestVerifyInvalidSignatureSettlesFailed(t *testing.T) {
	svc, ledger, _ := newService()
	ctx := context.Background()

	out, err := svc.CreateOrder(ctx, donor, CreateOrderRequest{
		Amount: 250.00, Type: payment.TypeAdoption, ReferenceID: 9,
	})
	require.NoError(t, err)

	res, err := svc.Verify(ctx, donor, VerifyRequest{OrderID: out.OrderID, PaymentID: "pay_1", Signature: "corrupted"})
	require.NoError(t, err)
	require.False(t, res.SignatureValid)
	require.Equal(t, payment.StatusFailed, res.Status)

	p, err := ledger.FindByTransactionID(ctx, out.OrderID)
	require.NoError(t, err)
	require.Equal(t, payment.StatusFailed, p.Status)
}

func TestVerifyUnknownOrder(t *testing.T) {
	svc, _, _ := newService()

	_, err := svc.Verify(context.Background(), donor, VerifyRequest{
		OrderID: "order_missing", PaymentID: "pay_1", Signature: "x",
	})
	require.Equal(t, payment.KindNotFound, payment.KindOf(err))
}

func TestVerifyGatewayDownIsNotInvalid(t *testing.T) {
	svc, ledger, gw := newService()
	ctx := context.Background()

	out, err := svc.CreateOrder(ctx, donor, CreateOrderRequest{
		Amount: 10, Type: payment.TypeDonation, ReferenceID: 42,
	})
	require.NoError(t, err)

	gw.verifyErr = errors.New("timeout")
	_, err = svc.Verify(ctx, donor, VerifyRequest{OrderID: out.OrderID, PaymentID: "pay_1", Signature: "x"})
	require.Equal(t, payment.KindGateway, payment.KindOf(err))

	// The payment must stay CREATED; the signature was never judged.
	p, err := ledger.FindByTransactionID(ctx, out.OrderID)
	require.NoError(t, err)
	require.Equal(t, payment.StatusCreated, p.Status)
}

func TestVerifyIsIdempotent(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()

	out, err := svc.CreateOrder(ctx, donor, CreateOrderRequest{
		Amount: 10, Type: payment.TypeDonation, ReferenceID: 42,
	})
	require.NoError(t, err)

	sig := razorpay.Sign(out.OrderID, "pay_1", testSecret)
	first, err := svc.Verify(ctx, donor, VerifyRequest{OrderID: out.OrderID, PaymentID: "pay_1", Signature: sig})
	require.NoError(t, err)
	require.Equal(t, payment.StatusSuccess, first.Status)

	// A later callback with a corrupted signature must not flip the
	// settled record; it observes the recorded outcome instead.
	second, err := svc.Verify(ctx, donor, VerifyRequest{OrderID: out.OrderID, PaymentID: "pay_1", Signature: "corrupted"})
	require.NoError(t, err)
	require.Equal(t, payment.StatusSuccess, second.Status)
	require.False(t, second.SignatureValid)
}

func TestVerifyConcurrentSingleWinner(t *testing.T) {
	svc, ledger, _ := newService()
	ctx := context.Background()

	out, err := svc.CreateOrder(ctx, donor, CreateOrderRequest{
		Amount: 10, Type: payment.TypeDonation, ReferenceID: 42,
	})
	require.NoError(t, err)
	sig := razorpay.Sign(out.OrderID, "pay_1", testSecret)

	const n = 24
	results := make(chan *VerifyResult, n)
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.Verify(ctx, donor, VerifyRequest{OrderID: out.OrderID, PaymentID: "pay_1", Signature: sig})
			if err != nil {
				errs <- err
				return
			}
			results <- res
		}()
	}
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent verify failed: %v", err)
	}
	count := 0
	for res := range results {
		count++
		require.Equal(t, payment.StatusSuccess, res.Status, "every caller observes the settled state")
	}
	require.Equal(t, n, count)

	p, err := ledger.FindByTransactionID(ctx, out.OrderID)
	require.NoError(t, err)
	require.Equal(t, payment.StatusSuccess, p.Status)
}

// The end-to-end scenario: a valid signature settles the first order
// without touching a second order failed by a corrupted signature.
func TestTwoOrderScenario(t *testing.T) {
	svc, ledger, _ := newService()
	ctx := context.Background()

	first, err := svc.CreateOrder(ctx, donor, CreateOrderRequest{
		Amount: 500.00, Type: payment.TypeDonation, ReferenceID: 42,
	})
	require.NoError(t, err)

	second, err := svc.CreateOrder(ctx, donor, CreateOrderRequest{
		Amount: 120.00, Type: payment.TypeAdoption, ReferenceID: 43,
	})
	require.NoError(t, err)

	sig := razorpay.Sign(first.OrderID, "pay_1", testSecret)
	res, err := svc.Verify(ctx, donor, VerifyRequest{OrderID: first.OrderID, PaymentID: "pay_1", Signature: sig})
	require.NoError(t, err)
	require.Equal(t, payment.StatusSuccess, res.Status)

	res, err = svc.Verify(ctx, donor, VerifyRequest{OrderID: second.OrderID, PaymentID: "pay_2", Signature: "corrupted"})
	require.NoError(t, err)
	require.Equal(t, payment.StatusFailed, res.Status)

	p1, err := ledger.FindByTransactionID(ctx, first.OrderID)
	require.NoError(t, err)
	require.Equal(t, payment.StatusSuccess, p1.Status)

	p2, err := ledger.FindByTransactionID(ctx, second.OrderID)
	require.NoError(t, err)
	require.Equal(t, payment.StatusFailed, p2.Status)
}

func TestHistoryFiltersByDonor(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()

	_, err := svc.CreateOrder(ctx, donor, CreateOrderRequest{
		Amount: 10, Type: payment.TypeDonation, ReferenceID: 1,
	})
	require.NoError(t, err)

	other := identity.Identity{DonorID: 99, Role: identity.RoleDonor}
	_, err = svc.CreateOrder(ctx, other, CreateOrderRequest{
		Amount: 20, Type: payment.TypeDonation, ReferenceID: 2,
	})
	require.NoError(t, err)

	mine, err := svc.History(ctx, donor)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, int64(7), mine[0].DonorID)

	_, err = svc.History(ctx, admin)
	require.Equal(t, payment.KindUnauthorized, payment.KindOf(err))
}

func TestListAllRequiresAdmin(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()

	_, err := svc.CreateOrder(ctx, donor, CreateOrderRequest{
		Amount: 10, Type: payment.TypeDonation, ReferenceID: 1,
	})
	require.NoError(t, err)

	all, err := svc.ListAll(ctx, admin)
	require.NoError(t, err)
	require.Len(t, all, 1)

	_, err = svc.ListAll(ctx, donor)
	require.Equal(t, payment.KindUnauthorized, payment.KindOf(err))
}
