package config

import (
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Setenv("SOURCE_DATABASE_URL", "file:source.db")
	t.Setenv("LEGACY_DATABASE_URL", "file:legacy.db")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.SourceURL != "file:source.db" {
		t.Errorf("Expected source url file:source.db, got %s", cfg.Database.SourceURL)
	}
	if cfg.Reconcile.BatchSize != 500 {
		t.Errorf("Expected batch size 500, got %d", cfg.Reconcile.BatchSize)
	}
	if cfg.Reconcile.MinAge != time.Minute || cfg.Reconcile.MaxAge != 120*time.Minute {
		t.Errorf("Expected sync window 1m..120m, got %s..%s", cfg.Reconcile.MinAge, cfg.Reconcile.MaxAge)
	}
	if cfg.Reconcile.ShortSweepLookback != 20*time.Minute || cfg.Reconcile.LongSweepLookback != 24*time.Hour {
		t.Errorf("Expected sweep lookbacks 20m and 24h, got %s and %s",
			cfg.Reconcile.ShortSweepLookback, cfg.Reconcile.LongSweepLookback)
	}
	if cfg.Arbitration.Enabled {
		t.Error("Expected arbitration disabled by default")
	}
	if cfg.ChainsFile != "chains.yaml" {
		t.Errorf("Expected chains.yaml, got %s", cfg.ChainsFile)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("SOURCE_DATABASE_URL", "")
	t.Setenv("LEGACY_DATABASE_URL", "file:legacy.db")

	_, err := Load()
	if err == nil {
		t.Fatal("Expected error for missing SOURCE_DATABASE_URL, got nil")
	}
	if !strings.Contains(err.Error(), "SOURCE_DATABASE_URL") {
		t.Errorf("Expected error to name SOURCE_DATABASE_URL, got %v", err)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	setRequired(t)
	t.Setenv("SYNC_INTERVAL", "soon")

	if _, err := Load(); err == nil {
		t.Fatal("Expected error for invalid duration, got nil")
	}
}

func TestLoad_ArbitrationSecrets(t *testing.T) {
	setRequired(t)
	t.Setenv("ARBITRATION_ENABLED", "true")
	t.Setenv("ARBITRATION_MAKER_OWNER", "0xowner")
	t.Setenv("ARBITRATION_PRIVATE_KEY", "")
	t.Setenv("ARBITRATION_RPC_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("Expected error for missing arbitration secrets, got nil")
	}

	t.Setenv("ARBITRATION_PRIVATE_KEY", "0x01")
	t.Setenv("ARBITRATION_RPC_URL", "http://localhost:8545")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Arbitration.RPCURL != "http://localhost:8545" {
		t.Errorf("Expected rpc url http://localhost:8545, got %s", cfg.Arbitration.RPCURL)
	}
}

func TestLoad_SyncWindowOrder(t *testing.T) {
	setRequired(t)
	t.Setenv("SYNC_MIN_AGE", "3h")

	if _, err := Load(); err == nil {
		t.Fatal("Expected error when min age exceeds max age, got nil")
	}
}
