package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"server/internal/adapter/repo"
	"server/internal/domain"
	"server/internal/infra"
	"server/internal/ledger"
	"server/internal/registry"
)

// The reconciliation worker finalizes registrations that came back
// unverified: the registration tx succeeded but its creation event was not
// readable within the poll budget, usually because a read replica lagged.
// Once the receipt becomes visible the assigned id is extracted and the
// feed row is marked verified.

const (
	reconcileInterval = 30 * time.Second
	reconcileBatch    = 20
	// Registrations younger than this are left alone; the API's own poll
	// may still be in flight.
	reconcileMinAge = time.Minute
)

type reconciler struct {
	ctx      context.Context
	memes    domain.MemeRepository
	registry *registry.Coordinator
	logger   infra.Logger
}

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	chain, err := ledger.NewGateway(ledger.GatewayOptions{
		BaseURL: cfg.ChainGatewayURL,
		APIKey:  cfg.ChainGatewayAPIKey,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure chain gateway")
	}

	registryCoord, err := registry.NewCoordinator(registry.Options{
		Chain:    chain,
		Contract: cfg.RegistryContract,
		Poll:     ledger.PollPolicy{Attempts: cfg.ReceiptPollAttempts, Delay: cfg.ReceiptPollDelay},
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure registry coordinator")
	}

	w := &reconciler{
		ctx:      ctx,
		memes:    repo.NewMemeRepository(pool),
		registry: registryCoord,
		logger:   logger,
	}

	if err := w.Run(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}

func (w *reconciler) Run() error {
	w.logger.Info().Msg("worker: started")
	ticker := time.NewTicker(reconcileInterval)
	defer ticker.Stop()
	for {
		select {
		case <-w.ctx.Done():
			return w.ctx.Err()
		case <-ticker.C:
		}
		w.sweep()
	}
}

func (w *reconciler) sweep() {
	pending, err := w.memes.ListUnverified(w.ctx, reconcileBatch)
	if err != nil {
		w.logger.Error().Err(err).Msg("worker: failed to list unverified memes")
		return
	}
	for _, meme := range pending {
		if time.Since(meme.CreatedAt) < reconcileMinAge {
			continue
		}
		w.reconcile(meme)
	}
}

func (w *reconciler) reconcile(meme domain.Meme) {
	id, err := w.registry.ExtractID(w.ctx, meme.TxRef)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrReceiptNotFound), errors.Is(err, domain.ErrRegistrationUnverified):
			// Still not visible; try again on a later sweep.
			w.logger.Debug().Str("tx_ref", meme.TxRef).Msg("worker: registration still unverified")
		case errors.Is(err, domain.ErrRegistrationReverted):
			w.logger.Error().Str("tx_ref", meme.TxRef).Msg("worker: registration reverted after optimistic accept")
		default:
			w.logger.Error().Err(err).Str("tx_ref", meme.TxRef).Msg("worker: reconcile failed")
		}
		return
	}
	if err := w.memes.MarkVerified(w.ctx, meme.TxRef, id); err != nil {
		w.logger.Error().Err(err).Str("tx_ref", meme.TxRef).Msg("worker: mark verified failed")
		return
	}
	w.logger.Info().Int64("meme_id", id).Str("tx_ref", meme.TxRef).Msg("worker: registration reconciled")
}
