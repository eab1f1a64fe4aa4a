package registry

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

// Event signatures emitted by the meme registry contract.
const (
	memeCreatedEvent = "MemeCreated(uint256,address,string)"
	memeRemixedEvent = "MemeRemixed(uint256,uint256,address)"
)

// Options configures a Coordinator.
type Options struct {
	Chain    ledger.Client
	Contract string
	Poll     ledger.PollPolicy
	Logger   zerolog.Logger
}

// Coordinator submits registry transactions and extracts assigned ids from
// their event logs.
type Coordinator struct {
	chain    ledger.Client
	contract string
	poll     ledger.PollPolicy
	logger   zerolog.Logger
}

// NewCoordinator builds a registration coordinator.
func NewCoordinator(opts Options) (*Coordinator, error) {
	if opts.Chain == nil {
		return nil, errors.New("registry: ledger client is required")
	}
	if strings.TrimSpace(opts.Contract) == "" {
		return nil, errors.New("registry: registry contract address is required")
	}
	return &Coordinator{
		chain:    opts.Chain,
		contract: opts.Contract,
		poll:     opts.Poll,
		logger:   opts.Logger,
	}, nil
}

// RegisterRequest carries everything needed to register a meme on chain.
type RegisterRequest struct {
	Payer       domain.PayerContext
	RootHash    string
	MetadataURL string
	Caption     string
	Prompt      string
	AIGenerated bool
}

// Register submits the registration transaction, waits for its receipt with
// the same bounded poll as payments, and reads the assigned id out of the
// creation event.
//
// A successful receipt that carries no creation event yields the partially
// populated record together with domain.ErrRegistrationUnverified: no
// placeholder id is ever invented, the caller must reconcile explicitly.
func (c *Coordinator) Register(ctx context.Context, req RegisterRequest) (*domain.Meme, error) {
	if !req.Payer.Connected || strings.TrimSpace(req.Payer.Address) == "" {
		return nil, domain.ErrNotConnected
	}
	txRef, err := c.chain.Submit(ctx, ledger.Tx{
		From:   req.Payer.Address,
		To:     c.contract,
		Method: "createMeme",
		Args:   []any{req.RootHash, req.MetadataURL, req.Caption, req.Prompt, req.AIGenerated},
	})
	if err != nil {
		return nil, classifySubmitError(err)
	}

	meme := &domain.Meme{
		Creator:     req.Payer.Address,
		RootHash:    req.RootHash,
		MetadataURL: req.MetadataURL,
		Caption:     req.Caption,
		Prompt:      req.Prompt,
		AIGenerated: req.AIGenerated,
		TxRef:       txRef,
		Status:      domain.MemeStatusUnverified,
		CreatedAt:   time.Now().UTC(),
	}
	return c.finalize(ctx, meme, memeCreatedEvent)
}

// Remix registers a derivative of an existing meme.
func (c *Coordinator) Remix(ctx context.Context, payer domain.PayerContext, sourceID int64, newRootHash, newCaption string) (*domain.Meme, error) {
	if !payer.Connected || strings.TrimSpace(payer.Address) == "" {
		return nil, domain.ErrNotConnected
	}
	txRef, err := c.chain.Submit(ctx, ledger.Tx{
		From:   payer.Address,
		To:     c.contract,
		Method: "remixMeme",
		Args:   []any{sourceID, newRootHash, newCaption},
	})
	if err != nil {
		return nil, classifySubmitError(err)
	}
	meme := &domain.Meme{
		Creator:   payer.Address,
		RootHash:  newRootHash,
		Caption:   newCaption,
		TxRef:     txRef,
		Status:    domain.MemeStatusUnverified,
		CreatedAt: time.Now().UTC(),
	}
	return c.finalize(ctx, meme, memeRemixedEvent)
}

// Like records a like on an existing meme.
func (c *Coordinator) Like(ctx context.Context, payer domain.PayerContext, id int64) error {
	return c.mutate(ctx, payer, "likeMeme", []any{id}, "")
}

// Tip sends amountWei to the creator of an existing meme.
func (c *Coordinator) Tip(ctx context.Context, payer domain.PayerContext, id int64, amountWei string) error {
	return c.mutate(ctx, payer, "tipCreator", []any{id}, amountWei)
}

// ExtractID re-reads the receipt for a registration transaction and parses
// the assigned id from its creation event. Used by the reconciliation
// worker for registrations that came back unverified.
func (c *Coordinator) ExtractID(ctx context.Context, txRef string) (int64, error) {
	receipt, err := c.chain.Receipt(ctx, txRef)
	if err != nil {
		return 0, err
	}
	if !receipt.Succeeded {
		return 0, fmt.Errorf("%w: tx %s", domain.ErrRegistrationReverted, txRef)
	}
	for _, sig := range []string{memeCreatedEvent, memeRemixedEvent} {
		if log := ledger.FindEvent(receipt, sig); log != nil && len(log.Topics) > 1 {
			id, err := ledger.TopicUint64(log.Topics[1])
			if err != nil {
				return 0, err
			}
			return int64(id), nil
		}
	}
	return 0, fmt.Errorf("%w: tx %s has no creation event", domain.ErrRegistrationUnverified, txRef)
}

func (c *Coordinator) finalize(ctx context.Context, meme *domain.Meme, eventSig string) (*domain.Meme, error) {
	receipt, err := ledger.WaitForReceipt(ctx, c.chain, meme.TxRef, c.poll)
	if err != nil {
		c.logger.Warn().Str("tx_ref", meme.TxRef).Err(err).Msg("registry: receipt not observed")
		return meme, fmt.Errorf("%w: no receipt for tx %s", domain.ErrRegistrationUnverified, meme.TxRef)
	}
	if !receipt.Succeeded {
		return nil, fmt.Errorf("%w: tx %s", domain.ErrRegistrationReverted, meme.TxRef)
	}
	log := ledger.FindEvent(receipt, eventSig)
	if log == nil || len(log.Topics) < 2 {
		c.logger.Warn().Str("tx_ref", meme.TxRef).Msg("registry: creation event missing from successful receipt")
		return meme, fmt.Errorf("%w: tx %s succeeded without a creation event", domain.ErrRegistrationUnverified, meme.TxRef)
	}
	id, err := ledger.TopicUint64(log.Topics[1])
	if err != nil {
		return meme, fmt.Errorf("%w: %v", domain.ErrRegistrationUnverified, err)
	}
	meme.ID = int64(id)
	meme.Status = domain.MemeStatusVerified
	c.logger.Info().Int64("meme_id", meme.ID).Str("tx_ref", meme.TxRef).Msg("registry: meme registered")
	return meme, nil
}

func (c *Coordinator) mutate(ctx context.Context, payer domain.PayerContext, method string, args []any, valueWei string) error {
	if !payer.Connected || strings.TrimSpace(payer.Address) == "" {
		return domain.ErrNotConnected
	}
	txRef, err := c.chain.Submit(ctx, ledger.Tx{
		From:     payer.Address,
		To:       c.contract,
		Method:   method,
		Args:     args,
		ValueWei: valueWei,
	})
	if err != nil {
		return classifySubmitError(err)
	}
	receipt, err := ledger.WaitForReceipt(ctx, c.chain, txRef, c.poll)
	if err != nil {
		// The mutation is on chain even though confirmation lagged out.
		c.logger.Warn().Str("tx_ref", txRef).Str("method", method).Err(err).Msg("registry: mutation unconfirmed")
		return nil
	}
	if !receipt.Succeeded {
		return fmt.Errorf("%w: %s tx %s", domain.ErrRegistrationReverted, method, txRef)
	}
	return nil
}

func classifySubmitError(err error) error {
	var submitErr *ledger.SubmitError
	if errors.As(err, &submitErr) {
		msg := strings.ToLower(submitErr.Message)
		if strings.Contains(msg, "nonexistent") || strings.Contains(msg, "not found") || strings.Contains(msg, "unknown meme") {
			return fmt.Errorf("%w: %v", domain.ErrRecordNotFound, err)
		}
		if submitErr.Code == "EXECUTION_REVERTED" || strings.Contains(msg, "revert") {
			return fmt.Errorf("%w: %v", domain.ErrRegistrationReverted, err)
		}
	}
	return err
}
