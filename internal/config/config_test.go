package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsAndOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
addr = "127.0.0.1:9090"
pg_dsn = "postgres://localhost/assetra"
rate_burst = 50
auction_cap_days = 14
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Addr != "127.0.0.1:9090" {
		t.Fatalf("unexpected addr: %q", cfg.Addr)
	}
	if cfg.PGDSN != "postgres://localhost/assetra" {
		t.Fatalf("unexpected dsn: %q", cfg.PGDSN)
	}
	if cfg.RateBurst != 50 {
		t.Fatalf("unexpected burst: %d", cfg.RateBurst)
	}
	if cfg.RatePerSec != 10 {
		t.Fatalf("expected default rate_per_sec, got %d", cfg.RatePerSec)
	}
	if cfg.AuctionCapDays != 14 {
		t.Fatalf("unexpected auction cap: %d", cfg.AuctionCapDays)
	}
}

func TestLoadEmptyPathYieldsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Addr != ":8080" || cfg.AuctionCapDays != 30 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("ASSETRA_ADDR", ":7070")
	t.Setenv("ASSETRA_AUCTION_CAP_DAYS", "7")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Addr != ":7070" {
		t.Fatalf("env addr not applied: %q", cfg.Addr)
	}
	if cfg.AuctionCapDays != 7 {
		t.Fatalf("env auction cap not applied: %d", cfg.AuctionCapDays)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("rate_burst = -1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.toml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
