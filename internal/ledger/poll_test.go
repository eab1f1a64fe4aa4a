package ledger

import (
	"context"
	"errors"
	"testing"
	"time"
)

type pollClient struct {
	calls   int
	results []func() (*Receipt, error)
}

func (p *pollClient) Call(ctx context.Context, call Call, out any) error {
	return errors.New("unexpected call")
}

func (p *pollClient) Submit(ctx context.Context, tx Tx) (string, error) {
	return "", errors.New("unexpected submit")
}

func (p *pollClient) Receipt(ctx context.Context, txRef string) (*Receipt, error) {
	idx := p.calls
	p.calls++
	if idx >= len(p.results) {
		return nil, ErrReceiptNotFound
	}
	return p.results[idx]()
}

func notFound() (*Receipt, error) { return nil, ErrReceiptNotFound }

func TestWaitForReceiptRetriesUntilFound(t *testing.T) {
	want := &Receipt{TxRef: "0xtx", Succeeded: true}
	client := &pollClient{results: []func() (*Receipt, error){
		notFound,
		notFound,
		func() (*Receipt, error) { return want, nil },
	}}

	got, err := WaitForReceipt(context.Background(), client, "0xtx", PollPolicy{Attempts: 5, Delay: time.Millisecond})
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if got != want {
		t.Fatalf("receipt = %+v, want the third poll result", got)
	}
	if client.calls != 3 {
		t.Fatalf("polls = %d, want 3", client.calls)
	}
}

func TestWaitForReceiptExhaustsBudget(t *testing.T) {
	client := &pollClient{}
	_, err := WaitForReceipt(context.Background(), client, "0xtx", PollPolicy{Attempts: 4, Delay: time.Millisecond})
	if !errors.Is(err, ErrReceiptNotFound) {
		t.Fatalf("err = %v, want ErrReceiptNotFound", err)
	}
	if client.calls != 4 {
		t.Fatalf("polls = %d, want the full budget of 4", client.calls)
	}
}

func TestWaitForReceiptSurvivesTransientErrors(t *testing.T) {
	want := &Receipt{TxRef: "0xtx", Succeeded: true}
	client := &pollClient{results: []func() (*Receipt, error){
		func() (*Receipt, error) { return nil, errors.New("gateway returned 500") },
		func() (*Receipt, error) { return want, nil },
	}}

	got, err := WaitForReceipt(context.Background(), client, "0xtx", PollPolicy{Attempts: 5, Delay: time.Millisecond})
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if got != want {
		t.Fatalf("receipt = %+v, want the second poll result", got)
	}
	if client.calls != 2 {
		t.Fatalf("polls = %d, want 2", client.calls)
	}
}

func TestWaitForReceiptCountsTransientErrorsAgainstBudget(t *testing.T) {
	boom := errors.New("gateway exploded")
	failing := func() (*Receipt, error) { return nil, boom }
	client := &pollClient{results: []func() (*Receipt, error){failing, failing, failing}}

	_, err := WaitForReceipt(context.Background(), client, "0xtx", PollPolicy{Attempts: 3, Delay: time.Millisecond})
	if !errors.Is(err, ErrReceiptNotFound) {
		t.Fatalf("err = %v, want ErrReceiptNotFound after exhaustion", err)
	}
	if client.calls != 3 {
		t.Fatalf("polls = %d, want the full budget of 3", client.calls)
	}
}

func TestWaitForReceiptStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &pollClient{results: []func() (*Receipt, error){
		func() (*Receipt, error) {
			cancel()
			return nil, ctx.Err()
		},
	}}
	_, err := WaitForReceipt(ctx, client, "0xtx", PollPolicy{Attempts: 5, Delay: time.Minute})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if client.calls != 1 {
		t.Fatalf("polls = %d, want 1 after cancellation", client.calls)
	}
}

func TestWaitForReceiptHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	client := &pollClient{}
	_, err := WaitForReceipt(ctx, client, "0xtx", PollPolicy{Attempts: 5, Delay: time.Minute})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if client.calls > 1 {
		t.Fatalf("polls = %d, want at most 1 after cancellation", client.calls)
	}
}

func TestPollPolicyNormalizeFillsDefaults(t *testing.T) {
	p := PollPolicy{}.normalize()
	if p.Attempts != DefaultPollPolicy.Attempts || p.Delay != DefaultPollPolicy.Delay {
		t.Fatalf("normalized policy = %+v, want defaults %+v", p, DefaultPollPolicy)
	}
}
