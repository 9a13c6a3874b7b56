package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.Port != "8090" {
		t.Fatalf("port = %q", cfg.Port)
	}
	if cfg.ChainID != 11155111 {
		t.Fatalf("chain id = %d", cfg.ChainID)
	}
	if cfg.ReceiptInterval != 2*time.Second {
		t.Fatalf("receipt interval = %v", cfg.ReceiptInterval)
	}
	if cfg.Addr() != ":8090" {
		t.Fatalf("addr = %q", cfg.Addr())
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("CHAIN_ID", "31337")
	t.Setenv("TX_RECEIPT_TIMEOUT", "45s")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("AGGREGATE_WORKERS", "2")

	cfg := Load()
	if cfg.Port != "9000" {
		t.Fatalf("port = %q", cfg.Port)
	}
	if cfg.ChainID != 31337 {
		t.Fatalf("chain id = %d", cfg.ChainID)
	}
	if cfg.ReceiptTimeout != 45*time.Second {
		t.Fatalf("receipt timeout = %v", cfg.ReceiptTimeout)
	}
	if !cfg.CookieSecure {
		t.Fatalf("expected secure cookies")
	}
	if cfg.AggregateWorkers != 2 {
		t.Fatalf("workers = %d", cfg.AggregateWorkers)
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("CHAIN_ID", "not-a-number")
	t.Setenv("TX_RECEIPT_POLL_INTERVAL", "soon")

	cfg := Load()
	if cfg.ChainID != 11155111 {
		t.Fatalf("chain id = %d, want default", cfg.ChainID)
	}
	if cfg.ReceiptInterval != 2*time.Second {
		t.Fatalf("receipt interval = %v, want default", cfg.ReceiptInterval)
	}
}
