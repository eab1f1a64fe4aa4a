package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/ledger"
)

// FeeSource resolves the fee for a service operation.
type FeeSource interface {
	Amount(ctx context.Context, op domain.ServiceOperation) (string, error)
}

// Options configures a Coordinator.
type Options struct {
	Chain    ledger.Client
	Fees     FeeSource
	Contract string
	// ChainID the payer must be connected to.
	ChainID int64
	Poll    ledger.PollPolicy
	Logger  zerolog.Logger
	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

// Coordinator submits fee payments and confirms them with a bounded poll.
type Coordinator struct {
	chain    ledger.Client
	fees     FeeSource
	contract string
	chainID  int64
	poll     ledger.PollPolicy
	logger   zerolog.Logger
	now      func() time.Time
}

// NewCoordinator builds a payment coordinator.
func NewCoordinator(opts Options) (*Coordinator, error) {
	if opts.Chain == nil {
		return nil, errors.New("payment: ledger client is required")
	}
	if opts.Fees == nil {
		return nil, errors.New("payment: fee source is required")
	}
	if strings.TrimSpace(opts.Contract) == "" {
		return nil, errors.New("payment: payment contract address is required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Coordinator{
		chain:    opts.Chain,
		fees:     opts.Fees,
		contract: opts.Contract,
		chainID:  opts.ChainID,
		poll:     opts.Poll,
		logger:   opts.Logger,
		now:      now,
	}, nil
}

// Pay charges the fee for op from the given payer. Exactly one submission is
// made per call; a failed submission is classified and returned as a
// *domain.PaymentError, never retried here.
//
// The returned receipt carries the transaction reference as soon as the
// submission is accepted. If confirmation polling runs out of attempts the
// receipt comes back in PaymentAccepted status and the call still succeeds:
// wallet-level acceptance is taken as sufficient evidence of intent, and the
// discrepancy is visible to the caller through the status flag.
func (c *Coordinator) Pay(ctx context.Context, op domain.ServiceOperation, payer domain.PayerContext) (*domain.PaymentReceipt, error) {
	if !payer.Connected || strings.TrimSpace(payer.Address) == "" {
		return nil, domain.ErrNotConnected
	}
	if payer.ChainID != c.chainID {
		return nil, fmt.Errorf("%w: connected to chain %d, expected %d", domain.ErrWrongNetwork, payer.ChainID, c.chainID)
	}

	amount, err := c.fees.Amount(ctx, op)
	if err != nil {
		return nil, err
	}

	txRef, err := c.chain.Submit(ctx, ledger.Tx{
		From:     payer.Address,
		To:       c.contract,
		Method:   "payForService",
		Args:     []any{string(op)},
		ValueWei: amount,
	})
	if err != nil {
		return nil, classifySubmitError(err)
	}

	receipt := &domain.PaymentReceipt{
		Operation:   op,
		Payer:       payer.Address,
		Amount:      amount,
		TxRef:       txRef,
		Status:      domain.PaymentPending,
		SubmittedAt: c.now().UTC(),
	}
	receipt.PaymentID = PaymentID(payer.Address, op, receipt.SubmittedAt, txRef)

	c.logger.Info().
		Str("operation", string(op)).
		Str("payer", payer.Address).
		Str("tx_ref", txRef).
		Str("amount_wei", amount).
		Msg("payment: submitted")

	chainReceipt, err := ledger.WaitForReceipt(ctx, c.chain, txRef, c.poll)
	if err != nil {
		// No receipt within the poll budget. The submission stands; report
		// the payment as accepted-but-unconfirmed instead of failing.
		receipt.Status = domain.PaymentAccepted
		c.logger.Warn().
			Str("tx_ref", txRef).
			Err(err).
			Msg("payment: confirmation not observed, proceeding optimistically")
		return receipt, nil
	}
	if !chainReceipt.Succeeded {
		receipt.Status = domain.PaymentFailed
		return receipt, fmt.Errorf("%w: tx %s", domain.ErrPaymentReverted, txRef)
	}
	receipt.Status = domain.PaymentConfirmed
	return receipt, nil
}

func classifySubmitError(err error) error {
	var submitErr *ledger.SubmitError
	if errors.As(err, &submitErr) {
		switch strings.ToUpper(submitErr.Code) {
		case "INSUFFICIENT_FUNDS":
			return &domain.PaymentError{Reason: domain.PaymentReasonInsufficientFunds, Err: err}
		case "USER_REJECTED", "4001":
			return &domain.PaymentError{Reason: domain.PaymentReasonUserRejected, Err: err}
		case "EXECUTION_REVERTED":
			return &domain.PaymentError{Reason: domain.PaymentReasonReverted, Err: err}
		}
	}
	if strings.Contains(strings.ToLower(err.Error()), "revert") {
		return &domain.PaymentError{Reason: domain.PaymentReasonReverted, Err: err}
	}
	return &domain.PaymentError{Reason: domain.PaymentReasonUnavailable, Err: err}
}
