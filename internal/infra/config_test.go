package infra

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/memeforge")
	t.Setenv("CHAIN_GATEWAY_URL", "http://gateway.test")
	t.Setenv("PAYMENT_CONTRACT_ADDRESS", "0xpayment")
	t.Setenv("MEME_REGISTRY_ADDRESS", "0xregistry")
	t.Setenv("COMPUTE_BROKER_URL", "http://broker.test")
	t.Setenv("STORAGE_INDEXER_URL", "http://indexer.test")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("port = %q, want 8080", cfg.Port)
	}
	if cfg.ChainID != 366 {
		t.Fatalf("chain id = %d, want 366", cfg.ChainID)
	}
	if cfg.ReceiptPollAttempts != 5 || cfg.ReceiptPollDelay != 3*time.Second {
		t.Fatalf("poll = %d/%v, want 5 attempts at 3s", cfg.ReceiptPollAttempts, cfg.ReceiptPollDelay)
	}
	if cfg.ScratchPath != "./tmp" {
		t.Fatalf("scratch path = %q, want ./tmp", cfg.ScratchPath)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "http://localhost:3000" {
		t.Fatalf("origins = %v, want the localhost default", cfg.AllowedOrigins)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CHAIN_ID", "1")
	t.Setenv("RECEIPT_POLL_ATTEMPTS", "8")
	t.Setenv("RECEIPT_POLL_DELAY_SECONDS", "1")
	t.Setenv("ALLOWED_ORIGINS", "https://a.test, https://b.test,")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ChainID != 1 {
		t.Fatalf("chain id = %d, want 1", cfg.ChainID)
	}
	if cfg.ReceiptPollAttempts != 8 || cfg.ReceiptPollDelay != time.Second {
		t.Fatalf("poll = %d/%v, want 8 attempts at 1s", cfg.ReceiptPollAttempts, cfg.ReceiptPollDelay)
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Fatalf("origins = %v, want 2 entries", cfg.AllowedOrigins)
	}
}

func TestLoadConfigRequiredVars(t *testing.T) {
	required := []string{
		"DATABASE_URL",
		"CHAIN_GATEWAY_URL",
		"PAYMENT_CONTRACT_ADDRESS",
		"MEME_REGISTRY_ADDRESS",
		"COMPUTE_BROKER_URL",
		"STORAGE_INDEXER_URL",
	}
	for _, key := range required {
		t.Run(key, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(key, "")
			if _, err := LoadConfig(); err == nil {
				t.Fatalf("missing %s should fail", key)
			}
		})
	}
}
