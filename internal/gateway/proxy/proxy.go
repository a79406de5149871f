// Package proxy implements gateway.Client against a separate payment
// service that owns the gateway credentials. The order/verify semantics
// are identical to the direct client; only the transport differs.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"arcpay/internal/gateway"
)

type Client struct {
	baseURL string
	keyID   string
	http    *http.Client
}

func New(baseURL, keyID string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		keyID:   keyID,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) KeyID() string { return c.keyID }

func (c *Client) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (*gateway.Order, error) {
	body := map[string]any{
		"amount":   amountMinor,
		"currency": currency,
		"receipt":  receipt,
	}
	var out struct {
		OrderID string `json:"orderId"`
	}
	if err := c.post(ctx, "/api/gateway/orders", body, &out); err != nil {
		return nil, err
	}
	if out.OrderID == "" {
		return nil, fmt.Errorf("payment service returned no order id")
	}
	return &gateway.Order{
		ID:          out.OrderID,
		AmountMinor: amountMinor,
		Currency:    currency,
		Receipt:     receipt,
	}, nil
}

func (c *Client) VerifySignature(ctx context.Context, orderID, paymentID, signature string) (bool, error) {
	body := map[string]any{
		"orderId":   orderID,
		"paymentId": paymentID,
		"signature": signature,
	}
	var out struct {
		Valid bool `json:"valid"`
	}
	if err := c.post(ctx, "/api/gateway/verify", body, &out); err != nil {
		return false, err
	}
	return out.Valid, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	b, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		b2, _ := io.ReadAll(res.Body)
		return fmt.Errorf("payment service %s: %s; body=%s", path, res.Status, string(b2))
	}
	return json.NewDecoder(res.Body).Decode(out)
}
