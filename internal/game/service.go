package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	accountPool      = "pool"
	accountFeeWallet = "fee_wallet"
)

type Service struct {
	db        *pgxpool.Pool
	log       *slog.Logger
	authority string
	now       func() time.Time
}

func NewService(db *pgxpool.Pool, logger *slog.Logger, authority string) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:        db,
		log:       logger,
		authority: strings.TrimSpace(authority),
		now:       time.Now,
	}
}

func (s *Service) clock() int64 {
	return s.now().Unix()
}

// withSerializableTx runs fn inside a serializable transaction, retrying on
// serialization failures with backoff. Everything an orchestrator does
// commits or rolls back as one unit.
func (s *Service) withSerializableTx(ctx context.Context, fn func(pgx.Tx) error) error {
	const maxAttempts = 8
	retryDelay := 75 * time.Millisecond
	for attempt := 0; attempt < maxAttempts; attempt++ {
		tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
		if err != nil {
			return err
		}
		err = func() error {
			defer tx.Rollback(ctx)
			if err := fn(tx); err != nil {
				return err
			}
			return tx.Commit(ctx)
		}()
		if err == nil {
			return nil
		}
		if !isSerializationError(err) {
			return err
		}
		if attempt == maxAttempts-1 {
			return ErrTxConflict
		}
		if err := sleepWithContext(ctx, retryDelay); err != nil {
			return err
		}
		if retryDelay < 1200*time.Millisecond {
			retryDelay *= 2
		}
	}
	return ErrTxConflict
}

func isSerializationError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "40001"
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func claimIdempotency(ctx context.Context, tx pgx.Tx, address, key, action string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("idempotency key is required")
	}
	cmd, err := tx.Exec(ctx, `
		INSERT INTO game.idempotency_keys (player_address, key, action, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (player_address, key) DO NOTHING
	`, address, key, action)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrDuplicateIdempotency
	}
	return nil
}

// --- row mapping ---------------------------------------------------------

func loadStateTx(ctx context.Context, tx pgx.Tx, forUpdate bool) (*GameState, error) {
	query := `
		SELECT total_players, total_invested, total_withdrawn, total_referral_paid,
		       treasury_collected, total_businesses, nfts_minted, nfts_burned,
		       next_serial, paused
		FROM game.state
		WHERE id = 1
	`
	if forUpdate {
		query += " FOR UPDATE"
	}
	var st GameState
	err := tx.QueryRow(ctx, query).Scan(
		&st.TotalPlayers, &st.TotalInvested, &st.TotalWithdrawn, &st.TotalReferralPaid,
		&st.TreasuryCollected, &st.TotalBusinesses, &st.NFTsMinted, &st.NFTsBurned,
		&st.NextSerial, &st.Paused,
	)
	if err != nil {
		return nil, fmt.Errorf("load game state: %w", err)
	}
	return &st, nil
}

func saveStateTx(ctx context.Context, tx pgx.Tx, st *GameState) error {
	_, err := tx.Exec(ctx, `
		UPDATE game.state
		SET total_players = $1, total_invested = $2, total_withdrawn = $3,
		    total_referral_paid = $4, treasury_collected = $5, total_businesses = $6,
		    nfts_minted = $7, nfts_burned = $8, next_serial = $9, paused = $10,
		    updated_at = now()
		WHERE id = 1
	`, st.TotalPlayers, st.TotalInvested, st.TotalWithdrawn, st.TotalReferralPaid,
		st.TreasuryCollected, st.TotalBusinesses, st.NFTsMinted, st.NFTsBurned,
		st.NextSerial, st.Paused)
	return err
}

func loadConfigTx(ctx context.Context, tx pgx.Tx) (*GameConfig, error) {
	var cfg GameConfig
	err := tx.QueryRow(ctx, `
		SELECT treasury_fee_bp, claim_fee_lamports, entry_fee_base, entry_fee_increment,
		       entry_fee_milestone, entry_fee_cap, max_businesses
		FROM game.config
		WHERE id = 1
	`).Scan(&cfg.TreasuryFeeBp, &cfg.ClaimFeeLamports, &cfg.EntryFeeBase,
		&cfg.EntryFeeIncrement, &cfg.EntryFeeMilestone, &cfg.EntryFeeCap, &cfg.MaxBusinesses)
	if err != nil {
		return nil, fmt.Errorf("load game config: %w", err)
	}
	return &cfg, nil
}

func loadRateTx(ctx context.Context, tx pgx.Tx, t BusinessType) (rateBp, minDeposit int64, err error) {
	err = tx.QueryRow(ctx, `
		SELECT daily_rate_bp, min_deposit
		FROM game.business_rates
		WHERE business_type = $1
	`, int32(t)).Scan(&rateBp, &minDeposit)
	if err == pgx.ErrNoRows {
		return 0, 0, fmt.Errorf("%w: %d", ErrInvalidBusinessType, t)
	}
	return rateBp, minDeposit, err
}

func loadPlayerTx(ctx context.Context, tx pgx.Tx, address string, forUpdate bool) (*Player, error) {
	query := `
		SELECT total_invested, total_earned, pending_earnings, pending_referral,
		       next_accrual_at, last_update_at, entry_fee_paid, created_at
		FROM game.players
		WHERE address = $1
	`
	if forUpdate {
		query += " FOR UPDATE"
	}
	p := &Player{Owner: address}
	err := tx.QueryRow(ctx, query, address).Scan(
		&p.TotalInvested, &p.TotalEarned, &p.PendingEarnings, &p.PendingReferral,
		&p.NextAccrualAt, &p.LastUpdateAt, &p.EntryFeePaid, &p.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT slot_index, unlocked, tier
		FROM game.slots
		WHERE player_address = $1
		ORDER BY slot_index
	`, address)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var idx int
		var unlocked bool
		var tier int32
		if err := rows.Scan(&idx, &unlocked, &tier); err != nil {
			rows.Close()
			return nil, err
		}
		if idx < 0 || idx >= MaxSlots {
			rows.Close()
			return nil, fmt.Errorf("%w: stored index %d", ErrSlotOutOfRange, idx)
		}
		p.Slots.Slots[idx].Unlocked = unlocked
		p.Slots.Slots[idx].Tier = SlotTier(tier)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	bRows, err := tx.Query(ctx, `
		SELECT slot_index, business_type, invested, daily_rate_bp, level,
		       total_earned, last_accrual_at, created_at, active, nft_serial
		FROM game.businesses
		WHERE player_address = $1
	`, address)
	if err != nil {
		return nil, err
	}
	defer bRows.Close()
	for bRows.Next() {
		var idx int
		b := &Business{}
		var btype int32
		if err := bRows.Scan(&idx, &btype, &b.InvestedLamports, &b.DailyRateBp, &b.Level,
			&b.TotalEarned, &b.LastAccrualAt, &b.CreatedAt, &b.Active, &b.NFTSerial); err != nil {
			return nil, err
		}
		if idx < 0 || idx >= MaxSlots {
			return nil, fmt.Errorf("%w: stored index %d", ErrSlotOutOfRange, idx)
		}
		b.Type = BusinessType(btype)
		p.Slots.Slots[idx].Business = b
	}
	return p, bRows.Err()
}

func savePlayerTx(ctx context.Context, tx pgx.Tx, p *Player) error {
	cmd, err := tx.Exec(ctx, `
		UPDATE game.players
		SET total_invested = $1, total_earned = $2, pending_earnings = $3,
		    pending_referral = $4, next_accrual_at = $5, last_update_at = $6,
		    entry_fee_paid = $7, updated_at = now()
		WHERE address = $8
	`, p.TotalInvested, p.TotalEarned, p.PendingEarnings, p.PendingReferral,
		p.NextAccrualAt, p.LastUpdateAt, p.EntryFeePaid, p.Owner)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

func saveBusinessTx(ctx context.Context, tx pgx.Tx, address string, slotIndex int, b *Business) error {
	_, err := tx.Exec(ctx, `
		UPDATE game.businesses
		SET invested = $1, daily_rate_bp = $2, level = $3, total_earned = $4,
		    last_accrual_at = $5, active = $6, nft_serial = $7, updated_at = now()
		WHERE player_address = $8 AND slot_index = $9
	`, b.InvestedLamports, b.DailyRateBp, b.Level, b.TotalEarned,
		b.LastAccrualAt, b.Active, b.NFTSerial, address, slotIndex)
	return err
}

func insertBusinessTx(ctx context.Context, tx pgx.Tx, address string, slotIndex int, b *Business) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO game.businesses
		    (player_address, slot_index, business_type, invested, daily_rate_bp,
		     level, total_earned, last_accrual_at, created_at, active, nft_serial)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, address, slotIndex, int32(b.Type), b.InvestedLamports, b.DailyRateBp,
		b.Level, b.TotalEarned, b.LastAccrualAt, b.CreatedAt, b.Active, b.NFTSerial)
	return err
}

func deleteBusinessTx(ctx context.Context, tx pgx.Tx, address string, slotIndex int) error {
	_, err := tx.Exec(ctx, `
		DELETE FROM game.businesses
		WHERE player_address = $1 AND slot_index = $2
	`, address, slotIndex)
	return err
}

func saveSlotTx(ctx context.Context, tx pgx.Tx, address string, slotIndex int, slot Slot) error {
	_, err := tx.Exec(ctx, `
		UPDATE game.slots
		SET unlocked = $1, tier = $2, updated_at = now()
		WHERE player_address = $3 AND slot_index = $4
	`, slot.Unlocked, int32(slot.Tier), address, slotIndex)
	return err
}

// --- value movement ------------------------------------------------------

func walletBalanceTx(ctx context.Context, tx pgx.Tx, address string, forUpdate bool) (int64, error) {
	query := `SELECT balance FROM game.wallets WHERE address = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}
	var balance int64
	err := tx.QueryRow(ctx, query, address).Scan(&balance)
	if err == pgx.ErrNoRows {
		return 0, ErrPlayerNotFound
	}
	return balance, err
}

func treasuryBalanceTx(ctx context.Context, tx pgx.Tx, account string, forUpdate bool) (int64, error) {
	query := `SELECT balance FROM game.treasury WHERE account = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}
	var balance int64
	err := tx.QueryRow(ctx, query, account).Scan(&balance)
	return balance, err
}

// walletToTreasuryTx moves lamports from a player wallet into a treasury
// account. The wallet must cover the amount.
func walletToTreasuryTx(ctx context.Context, tx pgx.Tx, address, account string, amount int64) (int64, error) {
	if amount < 0 {
		return 0, ErrAmountOverflow
	}
	balance, err := walletBalanceTx(ctx, tx, address, true)
	if err != nil {
		return 0, err
	}
	if balance < amount {
		return 0, fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, balance, amount)
	}
	next := balance - amount
	if _, err := tx.Exec(ctx, `
		UPDATE game.wallets SET balance = $1, updated_at = now() WHERE address = $2
	`, next, address); err != nil {
		return 0, err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE game.treasury SET balance = balance + $1, updated_at = now() WHERE account = $2
	`, amount, account); err != nil {
		return 0, err
	}
	return next, nil
}

// poolToWalletTx pays lamports out of the treasury pool. The pool balance is
// verified sufficient before any mutation; shortfall is a resource error,
// distinct from bad-request validation.
func poolToWalletTx(ctx context.Context, tx pgx.Tx, address string, amount int64) (int64, error) {
	if amount < 0 {
		return 0, ErrAmountOverflow
	}
	pool, err := treasuryBalanceTx(ctx, tx, accountPool, true)
	if err != nil {
		return 0, err
	}
	if pool < amount {
		return 0, fmt.Errorf("%w: pool %d, payout %d", ErrPoolUnderfunded, pool, amount)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE game.treasury SET balance = $1, updated_at = now() WHERE account = $2
	`, pool-amount, accountPool); err != nil {
		return 0, err
	}
	balance, err := walletBalanceTx(ctx, tx, address, true)
	if err != nil {
		return 0, err
	}
	next := balance + amount
	if _, err := tx.Exec(ctx, `
		UPDATE game.wallets SET balance = $1, updated_at = now() WHERE address = $2
	`, next, address); err != nil {
		return 0, err
	}
	return next, nil
}

// poolToFeeWalletTx routes a fee out of the pool into the team fee wallet.
func poolToFeeWalletTx(ctx context.Context, tx pgx.Tx, amount int64) error {
	pool, err := treasuryBalanceTx(ctx, tx, accountPool, true)
	if err != nil {
		return err
	}
	if pool < amount {
		return fmt.Errorf("%w: pool %d, fee %d", ErrPoolUnderfunded, pool, amount)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE game.treasury SET balance = $1, updated_at = now() WHERE account = $2
	`, pool-amount, accountPool); err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		UPDATE game.treasury SET balance = balance + $1, updated_at = now() WHERE account = $2
	`, amount, accountFeeWallet)
	return err
}

// appendTransferEntries writes the double-entry ledger rows for one value
// movement. The two deltas always sum to zero.
func appendTransferEntries(ctx context.Context, tx pgx.Tx, address, action, fromAccount, toAccount string, amount int64, metadata map[string]any) error {
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["action"] = action
	raw, _ := json.Marshal(metadata)
	_, err := tx.Exec(ctx, `
		INSERT INTO game.ledger_entries (tx_group_id, player_address, account, delta, metadata)
		VALUES
		($1, $2, $3, $4, $6::jsonb),
		($1, $2, $5, $7, $6::jsonb)
	`, uuid.NewString(), address, fromAccount, -amount, toAccount, string(raw), amount)
	return err
}

// --- player registration and slots ---------------------------------------

// RegisterPlayer creates the player record, its fixed slot array, and the
// demo wallet, and collects the entry fee. Creation is explicit: a second
// registration for the same address is a state error, never a silent reset.
func (s *Service) RegisterPlayer(ctx context.Context, in RegisterPlayerInput) (RegisterPlayerResult, error) {
	var out RegisterPlayerResult
	if err := ValidateAddress(in.Address); err != nil {
		return out, err
	}
	now := s.clock()
	err := s.withSerializableTx(ctx, func(tx pgx.Tx) error {
		if err := claimIdempotency(ctx, tx, in.Address, in.IdempotencyKey, "register_player"); err != nil {
			return err
		}
		st, err := loadStateTx(ctx, tx, true)
		if err != nil {
			return err
		}
		if st.Paused {
			return ErrGamePaused
		}
		cfg, err := loadConfigTx(ctx, tx)
		if err != nil {
			return err
		}
		entryFee := EntryFee(cfg.EntryFeeBase, cfg.EntryFeeIncrement, cfg.EntryFeeMilestone, cfg.EntryFeeCap, st.TotalPlayers)

		cmd, err := tx.Exec(ctx, `
			INSERT INTO game.players
			    (address, total_invested, total_earned, pending_earnings, pending_referral,
			     next_accrual_at, last_update_at, entry_fee_paid, created_at)
			VALUES ($1, 0, 0, 0, 0, 0, 0, false, $2)
			ON CONFLICT (address) DO NOTHING
		`, in.Address, now)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return ErrPlayerExists
		}

		for i := 0; i < MaxSlots; i++ {
			if _, err := tx.Exec(ctx, `
				INSERT INTO game.slots (player_address, slot_index, unlocked, tier)
				VALUES ($1, $2, $3, $4)
			`, in.Address, i, i < BaseSlots, int32(TierBasic)); err != nil {
				return err
			}
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO game.wallets (address, balance) VALUES ($1, $2)
		`, in.Address, StarterBalanceLamports); err != nil {
			return err
		}

		balance, err := walletToTreasuryTx(ctx, tx, in.Address, accountFeeWallet, entryFee)
		if err != nil {
			return err
		}
		if err := appendTransferEntries(ctx, tx, in.Address, "entry_fee", "wallet", accountFeeWallet, entryFee, nil); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE game.players SET entry_fee_paid = true, updated_at = now() WHERE address = $1
		`, in.Address); err != nil {
			return err
		}

		if err := st.RecordPlayer(); err != nil {
			return err
		}
		if err := st.RecordTreasuryFee(entryFee); err != nil {
			return err
		}
		if err := saveStateTx(ctx, tx, st); err != nil {
			return err
		}
		out.EntryFeeLamports = entryFee
		out.WalletLamports = balance
		return nil
	})
	if err != nil {
		return RegisterPlayerResult{}, err
	}
	s.log.Info("player registered", "address", in.Address, "entry_fee", out.EntryFeeLamports)
	return out, nil
}

// UnlockSlot opens one locked basic slot for the flat unlock fee.
func (s *Service) UnlockSlot(ctx context.Context, in UnlockSlotInput) (SlotResult, error) {
	var out SlotResult
	err := s.withSerializableTx(ctx, func(tx pgx.Tx) error {
		if err := claimIdempotency(ctx, tx, in.Address, in.IdempotencyKey, "unlock_slot"); err != nil {
			return err
		}
		st, err := loadStateTx(ctx, tx, false)
		if err != nil {
			return err
		}
		if st.Paused {
			return ErrGamePaused
		}
		p, err := loadPlayerTx(ctx, tx, in.Address, true)
		if err != nil {
			return err
		}
		if err := p.Slots.Unlock(in.SlotIndex); err != nil {
			return err
		}
		balance, err := walletToTreasuryTx(ctx, tx, in.Address, accountFeeWallet, SlotUnlockFeeLamports)
		if err != nil {
			return err
		}
		if err := appendTransferEntries(ctx, tx, in.Address, "slot_unlock", "wallet", accountFeeWallet, SlotUnlockFeeLamports, map[string]any{"slot": in.SlotIndex}); err != nil {
			return err
		}
		if err := saveSlotTx(ctx, tx, in.Address, in.SlotIndex, p.Slots.Slots[in.SlotIndex]); err != nil {
			return err
		}
		out = SlotResult{
			SlotIndex:      in.SlotIndex,
			Tier:           p.Slots.Slots[in.SlotIndex].Tier.String(),
			CostLamports:   SlotUnlockFeeLamports,
			WalletLamports: balance,
		}
		return nil
	})
	return out, err
}

// BuyTierSlot opens a locked slot at a premium tier for its flat cost. The
// tier's sell-fee discount applies to whatever business later occupies it.
func (s *Service) BuyTierSlot(ctx context.Context, in BuyTierSlotInput) (SlotResult, error) {
	var out SlotResult
	tier, err := ParseSlotTier(in.TierIndex)
	if err != nil {
		return out, err
	}
	err = s.withSerializableTx(ctx, func(tx pgx.Tx) error {
		if err := claimIdempotency(ctx, tx, in.Address, in.IdempotencyKey, "buy_tier_slot"); err != nil {
			return err
		}
		st, err := loadStateTx(ctx, tx, false)
		if err != nil {
			return err
		}
		if st.Paused {
			return ErrGamePaused
		}
		p, err := loadPlayerTx(ctx, tx, in.Address, true)
		if err != nil {
			return err
		}
		if err := p.Slots.UnlockTier(in.SlotIndex, tier); err != nil {
			return err
		}
		cost := tier.CostLamports()
		balance, err := walletToTreasuryTx(ctx, tx, in.Address, accountFeeWallet, cost)
		if err != nil {
			return err
		}
		if err := appendTransferEntries(ctx, tx, in.Address, "slot_tier_buy", "wallet", accountFeeWallet, cost, map[string]any{"slot": in.SlotIndex, "tier": tier.String()}); err != nil {
			return err
		}
		if err := saveSlotTx(ctx, tx, in.Address, in.SlotIndex, p.Slots.Slots[in.SlotIndex]); err != nil {
			return err
		}
		out = SlotResult{
			SlotIndex:      in.SlotIndex,
			Tier:           tier.String(),
			CostLamports:   cost,
			WalletLamports: balance,
		}
		return nil
	})
	return out, err
}
