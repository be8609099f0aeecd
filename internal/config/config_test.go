package config

import (
	"testing"
	"time"
)

func TestLoadAPIFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/omerta")
	t.Setenv("OMERTA_JWT_SECRET", "0123456789abcdef")
	t.Setenv("PORT", "9090")
	t.Setenv("OMERTA_JWT_TTL", "2h")
	t.Setenv("OMERTA_DB_MAX_CONNS", "32")

	cfg, err := LoadAPIFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Addr != ":9090" {
		t.Fatalf("addr: got %q", cfg.Addr)
	}
	if cfg.DBMaxConns != 32 {
		t.Fatalf("db max conns: got %d", cfg.DBMaxConns)
	}
	if cfg.JWTTTL != 2*time.Hour {
		t.Fatalf("ttl: got %v", cfg.JWTTTL)
	}
	if !cfg.StartupSeed {
		t.Fatalf("expected seed default true")
	}
}

func TestLoadAPIFromEnvRequiresDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("OMERTA_JWT_SECRET", "0123456789abcdef")
	if _, err := LoadAPIFromEnv(); err == nil {
		t.Fatalf("expected error without DATABASE_URL")
	}
}

func TestEnvHelpersFallBack(t *testing.T) {
	t.Setenv("OMERTA_KEEPER_SWEEP_EVERY", "not-a-duration")
	t.Setenv("OMERTA_KEEPER_SWEEP_BATCH", "abc")
	t.Setenv("DATABASE_URL", "postgres://localhost/omerta")

	cfg, err := LoadKeeperFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SweepEvery != time.Minute {
		t.Fatalf("sweep every: got %v", cfg.SweepEvery)
	}
	if cfg.SweepBatch != 50 {
		t.Fatalf("sweep batch: got %d", cfg.SweepBatch)
	}
}
