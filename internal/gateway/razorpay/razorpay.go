package razorpay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"arcpay/internal/gateway"
)

const defaultBaseURL = "https://api.razorpay.com"

// Client calls the Razorpay orders API directly and verifies callback
// signatures locally with the shared key secret.
type Client struct {
	keyID     string
	keySecret string
	baseURL   string
	http      *http.Client
}

func New(keyID, keySecret, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		keyID:     keyID,
		keySecret: keySecret,
		baseURL:   baseURL,
		http:      &http.Client{Timeout: timeout},
	}
}

func (c *Client) KeyID() string { return c.keyID }

func (c *Client) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (*gateway.Order, error) {
	payload := map[string]any{
		"amount":   amountMinor,
		"currency": currency,
		"receipt":  receipt,
	}
	b, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		// Surface the gateway's own reason, it is the only clue during
		// reconciliation.
		b2, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("order create failed: %s; body=%s", res.Status, string(b2))
	}

	var out struct {
		ID       string `json:"id"`
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		Receipt  string `json:"receipt"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, fmt.Errorf("order create returned no order id")
	}
	return &gateway.Order{
		ID:          out.ID,
		AmountMinor: out.Amount,
		Currency:    out.Currency,
		Receipt:     out.Receipt,
	}, nil
}

// VerifySignature recomputes HMAC-SHA256(orderID + "|" + paymentID) with
// the key secret and compares in constant time. Verification is local;
// the error return exists only to satisfy the gateway contract shared
// with the networked proxy client.
func (c *Client) VerifySignature(_ context.Context, orderID, paymentID, signature string) (bool, error) {
	expected := Sign(orderID, paymentID, c.keySecret)
	return hmac.Equal([]byte(expected), []byte(signature)), nil
}

// Sign computes the hex MAC Razorpay attaches to checkout callbacks.
// Exported for tests and for the remote payment service.
func Sign(orderID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}
