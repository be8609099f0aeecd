package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"omerta/internal/config"
	"omerta/internal/db"
	"omerta/internal/game"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	config.LoadEnvFile()
	cfg, err := config.LoadKeeperFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	pool, err := db.Connect(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		logger.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		logger.Error("migrate failed", "err", err)
		os.Exit(1)
	}

	svc := game.NewService(pool, logger, cfg.AuthorityAddress)

	runOnce := strings.EqualFold(strings.TrimSpace(os.Getenv("OMERTA_KEEPER_RUN_ONCE")), "true")
	if runOnce {
		updated, err := svc.KeeperSweep(ctx, cfg.SweepBatch)
		if err != nil {
			logger.Error("sweep failed", "err", err)
			os.Exit(1)
		}
		logger.Info("keeper run-once completed", "updated", updated)
		return
	}

	ticker := time.NewTicker(cfg.SweepEvery)
	defer ticker.Stop()

	logger.Info("keeper started", "sweep_every", cfg.SweepEvery.String(), "batch", cfg.SweepBatch)
	for {
		select {
		case <-ctx.Done():
			logger.Info("keeper shutdown")
			return
		case <-ticker.C:
			updated, err := svc.KeeperSweep(ctx, cfg.SweepBatch)
			if err != nil {
				logger.Error("sweep failed", "err", err)
				continue
			}
			if updated > 0 {
				logger.Info("sweep complete", "updated", updated)
			}
		}
	}
}
