package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPBrokerOptions configures the HTTP broker client.
type HTTPBrokerOptions struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// HTTPBroker talks to the broker sidecar that wraps the compute network SDK
// and holds the signing key for request headers and settlement.
type HTTPBroker struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

const brokerDefaultTimeout = 30 * time.Second

// NewHTTPBroker builds a broker client.
func NewHTTPBroker(opts HTTPBrokerOptions) (*HTTPBroker, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("inference: broker base url is required")
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: brokerDefaultTimeout}
	}
	return &HTTPBroker{baseURL: baseURL, apiKey: strings.TrimSpace(opts.APIKey), client: client}, nil
}

// Acknowledge registers intent to use the provider. Acknowledging twice is
// harmless, so callers may ignore failures here.
func (b *HTTPBroker) Acknowledge(ctx context.Context, providerID string) error {
	return b.do(ctx, http.MethodPost, fmt.Sprintf("/v1/providers/%s/ack", providerID), nil, nil)
}

// ServiceMetadata resolves the provider's serving endpoint and model.
func (b *HTTPBroker) ServiceMetadata(ctx context.Context, providerID string) (ServiceMetadata, error) {
	var meta ServiceMetadata
	err := b.do(ctx, http.MethodGet, fmt.Sprintf("/v1/providers/%s/metadata", providerID), nil, &meta)
	if err != nil {
		return ServiceMetadata{}, err
	}
	if meta.Endpoint == "" || meta.Model == "" {
		return ServiceMetadata{}, errors.New("inference: broker returned incomplete metadata")
	}
	return meta, nil
}

// RequestHeaders obtains the signed headers for one completion request.
func (b *HTTPBroker) RequestHeaders(ctx context.Context, providerID, prompt string) (map[string]string, error) {
	payload := map[string]string{"prompt": prompt}
	var headers map[string]string
	err := b.do(ctx, http.MethodPost, fmt.Sprintf("/v1/providers/%s/headers", providerID), payload, &headers)
	if err != nil {
		return nil, err
	}
	return headers, nil
}

type settleRequest struct {
	Content       string `json:"content"`
	CorrelationID string `json:"correlation_id"`
}

type settleResponse struct {
	Valid bool `json:"valid"`
}

// Settle pays the provider for the delivered response, keyed by the
// completion's correlation id.
func (b *HTTPBroker) Settle(ctx context.Context, providerID, content, correlationID string) (bool, error) {
	payload := settleRequest{Content: content, CorrelationID: correlationID}
	var res settleResponse
	err := b.do(ctx, http.MethodPost, fmt.Sprintf("/v1/providers/%s/settle", providerID), payload, &res)
	if err != nil {
		return false, err
	}
	return res.Valid, nil
}

func (b *HTTPBroker) do(ctx context.Context, method, path string, payload, out any) error {
	var body *bytes.Buffer
	if payload != nil {
		body = &bytes.Buffer{}
		if err := json.NewEncoder(body).Encode(payload); err != nil {
			return fmt.Errorf("inference: encode broker request: %w", err)
		}
	}
	var reader io.Reader
	if body != nil {
		reader = body
	}
	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("inference: build broker request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if b.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.apiKey)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("inference: broker request %s: %w", path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("inference: broker %s status %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("inference: decode broker response: %w", err)
	}
	return nil
}
