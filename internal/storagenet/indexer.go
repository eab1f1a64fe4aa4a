package storagenet

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// IndexerClient is the storage-network contract the uploader consumes.
type IndexerClient interface {
	Submit(ctx context.Context, rootHash string, data []byte) (string, error)
	Download(ctx context.Context, rootHash string, w io.Writer, partial bool) error
}

// IndexerOptions configures the HTTP indexer client.
type IndexerOptions struct {
	BaseURL    string
	HTTPClient *http.Client
}

// Indexer talks to the storage network's indexer node.
type Indexer struct {
	baseURL string
	client  *http.Client
}

const indexerDefaultTimeout = 120 * time.Second

// NewIndexer builds an indexer client.
func NewIndexer(opts IndexerOptions) (*Indexer, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("storagenet: indexer base url is required")
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: indexerDefaultTimeout}
	}
	return &Indexer{baseURL: baseURL, client: client}, nil
}

type submitRequest struct {
	RootHash string `json:"root_hash"`
	Data     string `json:"data"`
}

type submitResponse struct {
	TxRef string `json:"tx_ref"`
}

// Submit uploads a blob under its content root and returns the submission
// transaction reference.
func (i *Indexer) Submit(ctx context.Context, rootHash string, data []byte) (string, error) {
	payload := submitRequest{RootHash: rootHash, Data: base64.StdEncoding.EncodeToString(data)}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return "", fmt.Errorf("storagenet: encode submit request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.baseURL+"/v1/files", &buf)
	if err != nil {
		return "", fmt.Errorf("storagenet: build submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := i.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("storagenet: submit request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("storagenet: submit status %d", resp.StatusCode)
	}
	var res submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", fmt.Errorf("storagenet: decode submit response: %w", err)
	}
	if res.TxRef == "" {
		return "", errors.New("storagenet: indexer returned empty tx ref")
	}
	return res.TxRef, nil
}

// Download streams the blob for rootHash into w. With partial set, only the
// first segment is fetched, which is enough to prove existence.
func (i *Indexer) Download(ctx context.Context, rootHash string, w io.Writer, partial bool) error {
	endpoint := fmt.Sprintf("%s/v1/files/%s", i.baseURL, rootHash)
	if partial {
		endpoint += "?partial=1"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("storagenet: build download request: %w", err)
	}
	resp, err := i.client.Do(req)
	if err != nil {
		return fmt.Errorf("storagenet: download request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("storagenet: download status %d", resp.StatusCode)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("storagenet: download copy: %w", err)
	}
	return nil
}
