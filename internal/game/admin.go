package game

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

func (s *Service) requireAuthority(caller string) error {
	if s.authority == "" || caller != s.authority {
		return ErrUnauthorized
	}
	return nil
}

// SetPaused flips the global pause flag. While paused every state-changing
// player operation is rejected before it touches any balance.
func (s *Service) SetPaused(ctx context.Context, caller string, paused bool) error {
	if err := s.requireAuthority(caller); err != nil {
		return err
	}
	err := s.withSerializableTx(ctx, func(tx pgx.Tx) error {
		st, err := loadStateTx(ctx, tx, true)
		if err != nil {
			return err
		}
		st.Paused = paused
		return saveStateTx(ctx, tx, st)
	})
	if err != nil {
		return err
	}
	s.log.Info("pause flag changed", "paused", paused)
	return nil
}

// SetTreasuryFee adjusts the deposit split. The fee can never exceed the
// whole deposit.
func (s *Service) SetTreasuryFee(ctx context.Context, caller string, feeBp int64) error {
	if err := s.requireAuthority(caller); err != nil {
		return err
	}
	if feeBp < 0 || feeBp > BasisPoints {
		return fmt.Errorf("treasury fee must be 0..%d bp, got %d", BasisPoints, feeBp)
	}
	err := s.withSerializableTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			UPDATE game.config SET treasury_fee_bp = $1, updated_at = now() WHERE id = 1
		`, feeBp)
		return err
	})
	if err != nil {
		return err
	}
	s.log.Info("treasury fee changed", "fee_bp", feeBp)
	return nil
}

// SetBusinessRate retunes one business type. Existing positions keep the
// rate they opened with; only new positions see the change.
func (s *Service) SetBusinessRate(ctx context.Context, caller string, typeIndex int32, rateBp, minDeposit int64) error {
	if err := s.requireAuthority(caller); err != nil {
		return err
	}
	btype, err := ParseBusinessType(typeIndex)
	if err != nil {
		return err
	}
	if rateBp <= 0 || rateBp > MaxDailyRateBp {
		return fmt.Errorf("%w: %d bp", ErrRateTooHigh, rateBp)
	}
	if minDeposit <= 0 {
		return fmt.Errorf("minimum deposit must be > 0")
	}
	err = s.withSerializableTx(ctx, func(tx pgx.Tx) error {
		cmd, err := tx.Exec(ctx, `
			UPDATE game.business_rates
			SET daily_rate_bp = $1, min_deposit = $2, updated_at = now()
			WHERE business_type = $3
		`, rateBp, minDeposit, int32(btype))
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return fmt.Errorf("%w: %d", ErrInvalidBusinessType, typeIndex)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info("business rate changed", "type", btype.Name(), "rate_bp", rateBp, "min_deposit", minDeposit)
	return nil
}

// SeedDefaults creates the singleton state, config, treasury, and rate rows
// if they do not exist yet. Safe to run on every startup.
func (s *Service) SeedDefaults(ctx context.Context) error {
	cfg := DefaultGameConfig()
	return s.withSerializableTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO game.state
			    (id, total_players, total_invested, total_withdrawn, total_referral_paid,
			     treasury_collected, total_businesses, nfts_minted, nfts_burned,
			     next_serial, paused)
			VALUES (1, 0, 0, 0, 0, 0, 0, 0, 0, 0, false)
			ON CONFLICT (id) DO NOTHING
		`); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO game.config
			    (id, treasury_fee_bp, claim_fee_lamports, entry_fee_base, entry_fee_increment,
			     entry_fee_milestone, entry_fee_cap, max_businesses)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO NOTHING
		`, 1, cfg.TreasuryFeeBp, cfg.ClaimFeeLamports, cfg.EntryFeeBase,
			cfg.EntryFeeIncrement, cfg.EntryFeeMilestone, cfg.EntryFeeCap, cfg.MaxBusinesses); err != nil {
			return err
		}
		for _, account := range []string{accountPool, accountFeeWallet} {
			if _, err := tx.Exec(ctx, `
				INSERT INTO game.treasury (account, balance) VALUES ($1, 0)
				ON CONFLICT (account) DO NOTHING
			`, account); err != nil {
				return err
			}
		}
		for t := BusinessType(0); t < businessTypeCount; t++ {
			if _, err := tx.Exec(ctx, `
				INSERT INTO game.business_rates (business_type, daily_rate_bp, min_deposit)
				VALUES ($1, $2, $3)
				ON CONFLICT (business_type) DO NOTHING
			`, int32(t), t.DefaultDailyRateBp(), t.DefaultMinDeposit()); err != nil {
				return err
			}
		}
		return nil
	})
}
