package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"server/internal/adapter/repo"
	"server/internal/fees"
	"server/internal/http/handlers"
	"server/internal/http/httpapi"
	"server/internal/infra"
	"server/internal/inference"
	"server/internal/ledger"
	"server/internal/metrics"
	"server/internal/payment"
	"server/internal/pipeline"
	"server/internal/registry"
	"server/internal/storagenet"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "api")

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	chain, err := ledger.NewGateway(ledger.GatewayOptions{
		BaseURL: cfg.ChainGatewayURL,
		APIKey:  cfg.ChainGatewayAPIKey,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure chain gateway")
	}
	poll := ledger.PollPolicy{Attempts: cfg.ReceiptPollAttempts, Delay: cfg.ReceiptPollDelay}

	feeSchedule := fees.NewSchedule(chain, cfg.PaymentContract)
	payments, err := payment.NewCoordinator(payment.Options{
		Chain:    chain,
		Fees:     feeSchedule,
		Contract: cfg.PaymentContract,
		ChainID:  cfg.ChainID,
		Poll:     poll,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure payment coordinator")
	}

	broker, err := inference.NewHTTPBroker(inference.HTTPBrokerOptions{
		BaseURL: cfg.BrokerURL,
		APIKey:  cfg.BrokerAPIKey,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure compute broker")
	}
	captions, err := inference.NewClient(inference.Options{
		Broker:     broker,
		ProviderID: cfg.ProviderID,
		Logger:     logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure caption client")
	}

	indexer, err := storagenet.NewIndexer(storagenet.IndexerOptions{BaseURL: cfg.IndexerURL})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure storage indexer")
	}
	scratch, err := storagenet.NewScratchStore(cfg.ScratchPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure scratch store")
	}
	uploader, err := storagenet.NewUploader(storagenet.UploaderOptions{
		Indexer:       indexer,
		PublicBaseURL: cfg.StoragePublicURL,
		Scratch:       scratch,
		Logger:        logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure storage uploader")
	}

	registryCoord, err := registry.NewCoordinator(registry.Options{
		Chain:    chain,
		Contract: cfg.RegistryContract,
		Poll:     poll,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure registry coordinator")
	}

	metricSet := metrics.New()
	pipe, err := pipeline.New(pipeline.Options{
		Payments: payments,
		Captions: captions,
		Storage:  uploader,
		Registry: registryCoord,
		Logger:   logger,
		Metrics:  metricSet,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure pipeline")
	}

	app := &handlers.App{
		Logger:   logger,
		Memes:    repo.NewMemeRepository(dbpool),
		Pipeline: pipe,
		Captions: captions,
		Storage:  uploader,
		Fees:     feeSchedule,
		Registry: registryCoord,
		Metrics:  metricSet,
		ChainID:  cfg.ChainID,
	}

	router := httpapi.NewRouter(app, httpapi.Options{
		AllowedOrigins:  cfg.AllowedOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		MetricsHandler:  metricSet.Handler(),
	})
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
