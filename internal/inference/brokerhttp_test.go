package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPBrokerEndpoints(t *testing.T) {
	var sawAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawAuth = r.Header.Get("Authorization")
		switch r.URL.Path {
		case "/v1/providers/0xprovider/ack":
			w.WriteHeader(http.StatusNoContent)
		case "/v1/providers/0xprovider/metadata":
			_ = json.NewEncoder(w).Encode(ServiceMetadata{Endpoint: "http://provider.test/v1", Model: "llama-3.3-70b-instruct"})
		case "/v1/providers/0xprovider/headers":
			var payload map[string]string
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Fatalf("decode headers payload: %v", err)
			}
			if payload["prompt"] == "" {
				t.Fatalf("prompt missing from headers request")
			}
			_ = json.NewEncoder(w).Encode(map[string]string{"X-Request-Signature": "sig-123"})
		case "/v1/providers/0xprovider/settle":
			var payload settleRequest
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Fatalf("decode settle payload: %v", err)
			}
			if payload.CorrelationID != "corr-1" {
				t.Fatalf("correlation id = %q, want corr-1", payload.CorrelationID)
			}
			_ = json.NewEncoder(w).Encode(settleResponse{Valid: true})
		default:
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
	}))
	defer srv.Close()

	broker, err := NewHTTPBroker(HTTPBrokerOptions{BaseURL: srv.URL, APIKey: "secret"})
	if err != nil {
		t.Fatalf("new broker: %v", err)
	}
	ctx := context.Background()

	if err := broker.Acknowledge(ctx, "0xprovider"); err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	if sawAuth != "Bearer secret" {
		t.Fatalf("authorization = %q, want Bearer secret", sawAuth)
	}

	meta, err := broker.ServiceMetadata(ctx, "0xprovider")
	if err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if meta.Model != "llama-3.3-70b-instruct" {
		t.Fatalf("model = %q", meta.Model)
	}

	headers, err := broker.RequestHeaders(ctx, "0xprovider", "a prompt")
	if err != nil {
		t.Fatalf("headers: %v", err)
	}
	if headers["X-Request-Signature"] != "sig-123" {
		t.Fatalf("headers = %v, want the signed header", headers)
	}

	valid, err := broker.Settle(ctx, "0xprovider", "caption", "corr-1")
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if !valid {
		t.Fatalf("settle should report valid")
	}
}

func TestHTTPBrokerRejectsIncompleteMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ServiceMetadata{Endpoint: "http://provider.test/v1"})
	}))
	defer srv.Close()

	broker, err := NewHTTPBroker(HTTPBrokerOptions{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new broker: %v", err)
	}
	if _, err := broker.ServiceMetadata(context.Background(), "0xprovider"); err == nil {
		t.Fatalf("incomplete metadata should fail")
	}
}

func TestNewHTTPBrokerRequiresBaseURL(t *testing.T) {
	if _, err := NewHTTPBroker(HTTPBrokerOptions{}); err == nil {
		t.Fatalf("expected error for missing base url")
	}
}
