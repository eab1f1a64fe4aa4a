package fees

import (
	"context"
	"fmt"

	"server/internal/domain"
	"server/internal/ledger"
)

// Schedule resolves the currently required fee for a service operation from
// the payment contract. Prices live on chain so they are never cached here.
type Schedule struct {
	chain    ledger.Client
	contract string
}

// NewSchedule builds a fee schedule backed by the payment contract at addr.
func NewSchedule(chain ledger.Client, addr string) *Schedule {
	return &Schedule{chain: chain, contract: addr}
}

// Amount returns the fee for op in wei as a decimal string.
func (s *Schedule) Amount(ctx context.Context, op domain.ServiceOperation) (string, error) {
	if !domain.KnownOperation(op) {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownOperation, op)
	}
	var amount string
	err := s.chain.Call(ctx, ledger.Call{
		To:     s.contract,
		Method: "getServiceFee",
		Args:   []any{string(op)},
	}, &amount)
	if err != nil {
		return "", fmt.Errorf("%w: fee lookup for %q: %v", domain.ErrServiceUnavailable, op, err)
	}
	if amount == "" {
		return "", fmt.Errorf("%w: no fee configured for %q", domain.ErrUnknownOperation, op)
	}
	return amount, nil
}
