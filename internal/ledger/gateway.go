package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// SubmitError is a rejection reported by the gateway for a transaction
// submission. Code carries the wallet/provider classification verbatim
// (INSUFFICIENT_FUNDS, USER_REJECTED, EXECUTION_REVERTED, ...).
type SubmitError struct {
	Code    string
	Message string
}

func (e *SubmitError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("ledger: submission rejected (%s)", e.Code)
	}
	return fmt.Sprintf("ledger: submission rejected (%s): %s", e.Code, e.Message)
}

// GatewayOptions configures the HTTP chain-gateway client.
type GatewayOptions struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// Gateway talks to the chain-gateway service that holds the service wallet
// and performs signing and ABI encoding on our behalf.
type Gateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

const gatewayDefaultTimeout = 30 * time.Second

// NewGateway builds a Gateway client.
func NewGateway(opts GatewayOptions) (*Gateway, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("ledger: gateway base url is required")
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: gatewayDefaultTimeout}
	}
	return &Gateway{
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(opts.APIKey),
		client:  client,
	}, nil
}

type gatewayCallResponse struct {
	Result json.RawMessage `json:"result"`
}

type gatewaySubmitResponse struct {
	TxRef string `json:"tx_ref"`
}

type gatewayErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Call performs a read-only contract call and decodes the result into out.
func (g *Gateway) Call(ctx context.Context, call Call, out any) error {
	var res gatewayCallResponse
	if err := g.post(ctx, "/v1/call", call, &res); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(res.Result, out); err != nil {
		return fmt.Errorf("ledger: decode call result: %w", err)
	}
	return nil
}

// Submit sends a state-changing transaction and returns its reference.
func (g *Gateway) Submit(ctx context.Context, tx Tx) (string, error) {
	var res gatewaySubmitResponse
	if err := g.post(ctx, "/v1/transactions", tx, &res); err != nil {
		return "", err
	}
	if res.TxRef == "" {
		return "", errors.New("ledger: gateway returned empty tx ref")
	}
	return res.TxRef, nil
}

// Receipt fetches the receipt for a submitted transaction. A 404 maps to
// ErrReceiptNotFound so callers can keep polling.
func (g *Gateway) Receipt(ctx context.Context, txRef string) (*Receipt, error) {
	endpoint := fmt.Sprintf("%s/v1/transactions/%s/receipt", g.baseURL, txRef)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("ledger: build receipt request: %w", err)
	}
	g.setHeaders(req)
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ledger: receipt request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrReceiptNotFound
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("ledger: receipt status %d", resp.StatusCode)
	}
	var receipt Receipt
	if err := json.NewDecoder(resp.Body).Decode(&receipt); err != nil {
		return nil, fmt.Errorf("ledger: decode receipt: %w", err)
	}
	return &receipt, nil
}

func (g *Gateway) post(ctx context.Context, path string, payload, out any) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return fmt.Errorf("ledger: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("ledger: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	g.setHeaders(req)
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("ledger: request %s: %w", path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		var gwErr gatewayErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&gwErr); decodeErr == nil && gwErr.Code != "" {
			return &SubmitError{Code: gwErr.Code, Message: gwErr.Message}
		}
		return fmt.Errorf("ledger: %s status %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("ledger: decode response: %w", err)
	}
	return nil
}

func (g *Gateway) setHeaders(req *http.Request) {
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}
}
