package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// PollPolicy bounds receipt polling. The delay is fixed rather than
// exponential: RPC read-lag is typically sub-minute and bounded, so a small
// fixed budget covers it without stretching the tail.
type PollPolicy struct {
	Attempts int
	Delay    time.Duration
}

// DefaultPollPolicy matches the lag window observed on testnet gateways.
var DefaultPollPolicy = PollPolicy{Attempts: 5, Delay: 3 * time.Second}

func (p PollPolicy) normalize() PollPolicy {
	if p.Attempts <= 0 {
		p.Attempts = DefaultPollPolicy.Attempts
	}
	if p.Delay <= 0 {
		p.Delay = DefaultPollPolicy.Delay
	}
	return p
}

// WaitForReceipt polls the client for a receipt until one is found, the
// attempt budget runs out, or ctx is done. Transient gateway failures count
// against the budget like a missing receipt; only cancellation aborts early.
// Exhausting the budget returns ErrReceiptNotFound; it does not undo the
// submission, which stays on chain regardless of whether anyone keeps
// waiting for it.
func WaitForReceipt(ctx context.Context, c Client, txRef string, policy PollPolicy) (*Receipt, error) {
	policy = policy.normalize()
	var lastErr error
	for attempt := 0; attempt < policy.Attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(policy.Delay):
			}
		}
		receipt, err := c.Receipt(ctx, txRef)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			lastErr = err
			continue
		}
		return receipt, nil
	}
	if lastErr != nil && !errors.Is(lastErr, ErrReceiptNotFound) {
		return nil, fmt.Errorf("%w (last poll error: %v)", ErrReceiptNotFound, lastErr)
	}
	return nil, ErrReceiptNotFound
}
