package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultMaxConns sizes the pool for the game's workload: every write runs a
// short serializable transaction over a handful of rows, so a modest ceiling
// keeps serialization conflicts down without starving the read endpoints.
const DefaultMaxConns = 16

// Connect opens and pings a pgx pool. maxConns <= 0 falls back to
// DefaultMaxConns; a share of the pool stays warm for the keeper sweep.
func Connect(ctx context.Context, databaseURL string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns <= 0 {
		maxConns = DefaultMaxConns
	}
	cfg.MaxConns = maxConns
	cfg.MinConns = maxConns / 4
	if cfg.MinConns < 2 {
		cfg.MinConns = 2
	}
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 10 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return pool, nil
}
