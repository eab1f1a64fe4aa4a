package fees

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"server/internal/domain"
	"server/internal/ledger"
)

type fakeChain struct {
	amount string
	err    error
	calls  []ledger.Call
}

func (f *fakeChain) Call(ctx context.Context, call ledger.Call, out any) error {
	f.calls = append(f.calls, call)
	if f.err != nil {
		return f.err
	}
	raw, _ := json.Marshal(f.amount)
	return json.Unmarshal(raw, out)
}

func (f *fakeChain) Submit(ctx context.Context, tx ledger.Tx) (string, error) {
	return "", errors.New("unexpected submit")
}

func (f *fakeChain) Receipt(ctx context.Context, txRef string) (*ledger.Receipt, error) {
	return nil, errors.New("unexpected receipt")
}

func TestAmountReadsContractFee(t *testing.T) {
	chain := &fakeChain{amount: "5000000000000000"}
	s := NewSchedule(chain, "0xpaymentcontract")

	amount, err := s.Amount(context.Background(), domain.OperationAIGeneration)
	if err != nil {
		t.Fatalf("amount: %v", err)
	}
	if amount != "5000000000000000" {
		t.Fatalf("amount = %q, want the contract fee", amount)
	}
	if len(chain.calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(chain.calls))
	}
	call := chain.calls[0]
	if call.Method != "getServiceFee" || call.To != "0xpaymentcontract" {
		t.Fatalf("call = %+v, want getServiceFee on the payment contract", call)
	}
	if len(call.Args) != 1 || call.Args[0] != "ai_generation" {
		t.Fatalf("args = %v, want the operation tag", call.Args)
	}
}

func TestAmountRejectsUnknownOperation(t *testing.T) {
	chain := &fakeChain{amount: "100"}
	s := NewSchedule(chain, "0xpaymentcontract")

	_, err := s.Amount(context.Background(), domain.ServiceOperation("teleport"))
	if !errors.Is(err, domain.ErrUnknownOperation) {
		t.Fatalf("err = %v, want ErrUnknownOperation", err)
	}
	if len(chain.calls) != 0 {
		t.Fatalf("unknown operations must not reach the ledger")
	}
}

func TestAmountWrapsLedgerFailure(t *testing.T) {
	chain := &fakeChain{err: errors.New("gateway down")}
	s := NewSchedule(chain, "0xpaymentcontract")

	_, err := s.Amount(context.Background(), domain.OperationMint)
	if !errors.Is(err, domain.ErrServiceUnavailable) {
		t.Fatalf("err = %v, want ErrServiceUnavailable", err)
	}
}

func TestAmountRejectsEmptyFee(t *testing.T) {
	chain := &fakeChain{amount: ""}
	s := NewSchedule(chain, "0xpaymentcontract")

	_, err := s.Amount(context.Background(), domain.OperationStorage)
	if !errors.Is(err, domain.ErrUnknownOperation) {
		t.Fatalf("err = %v, want ErrUnknownOperation for unpriced operation", err)
	}
}
