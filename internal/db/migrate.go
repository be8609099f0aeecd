package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate applies the schema. Every statement is idempotent so the API and
// the keeper can both run it at startup without coordination.
var migrations = []string{
	`CREATE SCHEMA IF NOT EXISTS game`,

	`CREATE TABLE IF NOT EXISTS game.state (
		id                  smallint PRIMARY KEY,
		total_players       bigint NOT NULL DEFAULT 0,
		total_invested      bigint NOT NULL DEFAULT 0,
		total_withdrawn     bigint NOT NULL DEFAULT 0,
		total_referral_paid bigint NOT NULL DEFAULT 0,
		treasury_collected  bigint NOT NULL DEFAULT 0,
		total_businesses    bigint NOT NULL DEFAULT 0,
		nfts_minted         bigint NOT NULL DEFAULT 0,
		nfts_burned         bigint NOT NULL DEFAULT 0,
		next_serial         bigint NOT NULL DEFAULT 0,
		paused              boolean NOT NULL DEFAULT false,
		updated_at          timestamptz NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS game.config (
		id                  smallint PRIMARY KEY,
		treasury_fee_bp     bigint NOT NULL,
		claim_fee_lamports  bigint NOT NULL,
		entry_fee_base      bigint NOT NULL,
		entry_fee_increment bigint NOT NULL,
		entry_fee_milestone bigint NOT NULL,
		entry_fee_cap       bigint NOT NULL,
		max_businesses      integer NOT NULL,
		updated_at          timestamptz NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS game.business_rates (
		business_type integer PRIMARY KEY,
		daily_rate_bp bigint NOT NULL,
		min_deposit   bigint NOT NULL,
		updated_at    timestamptz NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS game.players (
		address          text PRIMARY KEY,
		total_invested   bigint NOT NULL DEFAULT 0,
		total_earned     bigint NOT NULL DEFAULT 0,
		pending_earnings bigint NOT NULL DEFAULT 0,
		pending_referral bigint NOT NULL DEFAULT 0,
		next_accrual_at  bigint NOT NULL DEFAULT 0,
		last_update_at   bigint NOT NULL DEFAULT 0,
		entry_fee_paid   boolean NOT NULL DEFAULT false,
		created_at       bigint NOT NULL,
		updated_at       timestamptz NOT NULL DEFAULT now()
	)`,

	`CREATE INDEX IF NOT EXISTS players_due_idx
		ON game.players (next_accrual_at)
		WHERE next_accrual_at > 0`,

	`CREATE TABLE IF NOT EXISTS game.slots (
		player_address text NOT NULL REFERENCES game.players(address),
		slot_index     integer NOT NULL,
		unlocked       boolean NOT NULL DEFAULT false,
		tier           integer NOT NULL DEFAULT 0,
		updated_at     timestamptz NOT NULL DEFAULT now(),
		PRIMARY KEY (player_address, slot_index)
	)`,

	`CREATE TABLE IF NOT EXISTS game.businesses (
		player_address  text NOT NULL REFERENCES game.players(address),
		slot_index      integer NOT NULL,
		business_type   integer NOT NULL,
		invested        bigint NOT NULL,
		daily_rate_bp   bigint NOT NULL,
		level           integer NOT NULL DEFAULT 0,
		total_earned    bigint NOT NULL DEFAULT 0,
		last_accrual_at bigint NOT NULL,
		created_at      bigint NOT NULL,
		active          boolean NOT NULL DEFAULT true,
		nft_serial      bigint NOT NULL,
		updated_at      timestamptz NOT NULL DEFAULT now(),
		PRIMARY KEY (player_address, slot_index)
	)`,

	`CREATE UNIQUE INDEX IF NOT EXISTS businesses_nft_serial_idx
		ON game.businesses (nft_serial)`,

	`CREATE TABLE IF NOT EXISTS game.nfts (
		serial        bigint PRIMARY KEY,
		business_type integer NOT NULL,
		level         integer NOT NULL DEFAULT 0,
		owner         text NOT NULL,
		supply        bigint NOT NULL DEFAULT 1,
		minted_at     timestamptz NOT NULL DEFAULT now(),
		burned_at     timestamptz,
		updated_at    timestamptz NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS game.wallets (
		address    text PRIMARY KEY,
		balance    bigint NOT NULL DEFAULT 0 CHECK (balance >= 0),
		updated_at timestamptz NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS game.treasury (
		account    text PRIMARY KEY,
		balance    bigint NOT NULL DEFAULT 0 CHECK (balance >= 0),
		updated_at timestamptz NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS game.ledger_entries (
		id             bigserial PRIMARY KEY,
		tx_group_id    uuid NOT NULL,
		player_address text NOT NULL,
		account        text NOT NULL,
		delta          bigint NOT NULL,
		metadata       jsonb NOT NULL DEFAULT '{}'::jsonb,
		created_at     timestamptz NOT NULL DEFAULT now()
	)`,

	`CREATE INDEX IF NOT EXISTS ledger_entries_player_idx
		ON game.ledger_entries (player_address, created_at)`,

	`CREATE TABLE IF NOT EXISTS game.idempotency_keys (
		player_address text NOT NULL,
		key            text NOT NULL,
		action         text NOT NULL,
		created_at     timestamptz NOT NULL DEFAULT now(),
		PRIMARY KEY (player_address, key)
	)`,
}

func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
