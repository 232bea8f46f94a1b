package bank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ClientConfig holds connection parameters for the banking API.
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration // zero means 4s
	Retries int
}

// DefaultBaseURL is the hosted sandbox banking API.
const DefaultBaseURL = "http://api.nessieisreal.com"

const defaultTimeout = 4 * time.Second

// Client is the HTTP implementation of Service.
type Client struct {
	cfg  ClientConfig
	http *http.Client
}

// NewClient creates a banking API client. A missing API key is a fatal
// configuration error.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (c *Client) CreateTransfer(ctx context.Context, accountID, payeeID string, amount float64, memo string) (*Transfer, error) {
	body := map[string]interface{}{
		"medium":      "balance",
		"payee_id":    payeeID,
		"amount":      amount,
		"description": memo,
	}
	var receipt Transfer
	path := fmt.Sprintf("/accounts/%s/transfers", url.PathEscape(accountID))
	if err := c.do(ctx, http.MethodPost, path, body, &receipt); err != nil {
		return nil, fmt.Errorf("creating transfer: %w", err)
	}
	return &receipt, nil
}

func (c *Client) CreateBillPayment(ctx context.Context, accountID, billID string, amount float64, memo string) (*BillPayment, error) {
	body := map[string]interface{}{
		"amount":      amount,
		"description": memo,
	}
	var receipt BillPayment
	path := fmt.Sprintf("/accounts/%s/bills/%s/payments", url.PathEscape(accountID), url.PathEscape(billID))
	if err := c.do(ctx, http.MethodPost, path, body, &receipt); err != nil {
		return nil, fmt.Errorf("creating bill payment: %w", err)
	}
	return &receipt, nil
}

func (c *Client) GetPurchases(ctx context.Context, accountID string) ([]Purchase, error) {
	var purchases []Purchase
	path := fmt.Sprintf("/accounts/%s/purchases", url.PathEscape(accountID))
	if err := c.do(ctx, http.MethodGet, path, nil, &purchases); err != nil {
		return nil, fmt.Errorf("listing purchases: %w", err)
	}
	return purchases, nil
}

// do sends one API request with retries, decoding the JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		payload = data
	}

	endpoint, err := c.buildURL(path)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.Retries; attempt++ {
		lastErr = c.doOnce(ctx, method, endpoint, payload, out)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}
	}
	return lastErr
}

func (c *Client) doOnce(ctx context.Context, method, endpoint string, payload []byte, out interface{}) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("bank API returned status %d: %s", resp.StatusCode, string(respBody))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (c *Client) buildURL(path string) (string, error) {
	u, err := url.Parse(c.cfg.BaseURL + path)
	if err != nil {
		return "", fmt.Errorf("building URL: %w", err)
	}
	q := u.Query()
	q.Set("key", c.cfg.APIKey)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
