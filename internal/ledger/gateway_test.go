package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGatewayCallDecodesResult(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/call" {
			t.Fatalf("path = %q, want /v1/call", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		var call Call
		if err := json.NewDecoder(r.Body).Decode(&call); err != nil {
			t.Fatalf("decode call: %v", err)
		}
		if call.Method != "getServiceFee" {
			t.Fatalf("method = %q, want getServiceFee", call.Method)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": "1000000000000000"})
	}))
	defer srv.Close()

	gw, err := NewGateway(GatewayOptions{BaseURL: srv.URL, APIKey: "secret"})
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}
	var amount string
	err = gw.Call(context.Background(), Call{To: "0xcontract", Method: "getServiceFee", Args: []any{"mint"}}, &amount)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if amount != "1000000000000000" {
		t.Fatalf("amount = %q, want 1000000000000000", amount)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("authorization = %q, want Bearer secret", gotAuth)
	}
}

func TestGatewaySubmitReturnsTxRef(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/transactions" {
			t.Fatalf("path = %q, want /v1/transactions", r.URL.Path)
		}
		var tx Tx
		if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
			t.Fatalf("decode tx: %v", err)
		}
		if tx.ValueWei != "100" {
			t.Fatalf("value_wei = %q, want 100", tx.ValueWei)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"tx_ref": "0xsubmitted"})
	}))
	defer srv.Close()

	gw, err := NewGateway(GatewayOptions{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}
	txRef, err := gw.Submit(context.Background(), Tx{From: "0xpayer", To: "0xcontract", Method: "payForService", ValueWei: "100"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if txRef != "0xsubmitted" {
		t.Fatalf("tx ref = %q, want 0xsubmitted", txRef)
	}
}

func TestGatewaySubmitSurfacesRejectionCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"code": "INSUFFICIENT_FUNDS", "message": "balance too low"})
	}))
	defer srv.Close()

	gw, err := NewGateway(GatewayOptions{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}
	_, err = gw.Submit(context.Background(), Tx{})
	var submitErr *SubmitError
	if !errors.As(err, &submitErr) {
		t.Fatalf("err = %v, want *SubmitError", err)
	}
	if submitErr.Code != "INSUFFICIENT_FUNDS" {
		t.Fatalf("code = %q, want INSUFFICIENT_FUNDS", submitErr.Code)
	}
	if submitErr.Message != "balance too low" {
		t.Fatalf("message = %q, want the gateway message", submitErr.Message)
	}
}

func TestGatewayReceiptNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	gw, err := NewGateway(GatewayOptions{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}
	_, err = gw.Receipt(context.Background(), "0xmissing")
	if !errors.Is(err, ErrReceiptNotFound) {
		t.Fatalf("err = %v, want ErrReceiptNotFound", err)
	}
}

func TestGatewayReceiptDecodesLogs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/transactions/0xtx/receipt" {
			t.Fatalf("path = %q", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(Receipt{
			TxRef:     "0xtx",
			Succeeded: true,
			Logs:      []Log{{Topics: []string{"0xevent", "0x2a"}}},
		})
	}))
	defer srv.Close()

	gw, err := NewGateway(GatewayOptions{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}
	receipt, err := gw.Receipt(context.Background(), "0xtx")
	if err != nil {
		t.Fatalf("receipt: %v", err)
	}
	if !receipt.Succeeded || len(receipt.Logs) != 1 || receipt.Logs[0].Topics[1] != "0x2a" {
		t.Fatalf("receipt = %+v, want decoded logs", receipt)
	}
}

func TestNewGatewayRequiresBaseURL(t *testing.T) {
	if _, err := NewGateway(GatewayOptions{}); err == nil {
		t.Fatalf("expected error for missing base url")
	}
}
