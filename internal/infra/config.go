package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string

	ChainGatewayURL    string
	ChainGatewayAPIKey string
	ChainID            int64
	PaymentContract    string
	RegistryContract   string

	BrokerURL    string
	BrokerAPIKey string
	ProviderID   string

	IndexerURL       string
	StoragePublicURL string
	ScratchPath      string

	ReceiptPollAttempts int
	ReceiptPollDelay    time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	AllowedOrigins   []string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		ChainGatewayURL:    os.Getenv("CHAIN_GATEWAY_URL"),
		ChainGatewayAPIKey: os.Getenv("CHAIN_GATEWAY_API_KEY"),
		ChainID:            int64(getEnvInt("CHAIN_ID", 366)),
		PaymentContract:    os.Getenv("PAYMENT_CONTRACT_ADDRESS"),
		RegistryContract:   os.Getenv("MEME_REGISTRY_ADDRESS"),

		BrokerURL:    os.Getenv("COMPUTE_BROKER_URL"),
		BrokerAPIKey: os.Getenv("COMPUTE_BROKER_API_KEY"),
		ProviderID:   getEnv("COMPUTE_PROVIDER_ID", "0xf07240Efa67755B5311bc75784a061eDB47165Dd"),

		IndexerURL:       os.Getenv("STORAGE_INDEXER_URL"),
		StoragePublicURL: getEnv("STORAGE_PUBLIC_URL", "https://storage-testnet.0g.ai/files"),
		ScratchPath:      getEnv("SCRATCH_PATH", "./tmp"),

		ReceiptPollAttempts: getEnvInt("RECEIPT_POLL_ATTEMPTS", 5),
		ReceiptPollDelay:    time.Second * time.Duration(getEnvInt("RECEIPT_POLL_DELAY_SECONDS", 3)),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 120)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		AllowedOrigins:   splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.ChainGatewayURL == "" {
		return nil, fmt.Errorf("CHAIN_GATEWAY_URL is required")
	}
	if cfg.PaymentContract == "" {
		return nil, fmt.Errorf("PAYMENT_CONTRACT_ADDRESS is required")
	}
	if cfg.RegistryContract == "" {
		return nil, fmt.Errorf("MEME_REGISTRY_ADDRESS is required")
	}
	if cfg.BrokerURL == "" {
		return nil, fmt.Errorf("COMPUTE_BROKER_URL is required")
	}
	if cfg.IndexerURL == "" {
		return nil, fmt.Errorf("STORAGE_INDEXER_URL is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
