package game

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// Dashboard assembles everything the UI shows for one player: wallet, totals,
// and the full slot array with any businesses in place.
func (s *Service) Dashboard(ctx context.Context, address string) (Dashboard, error) {
	var out Dashboard
	err := s.withSerializableTx(ctx, func(tx pgx.Tx) error {
		p, err := loadPlayerTx(ctx, tx, address, false)
		if err != nil {
			return err
		}
		wallet, err := walletBalanceTx(ctx, tx, address, false)
		if err != nil {
			return err
		}
		out = Dashboard{
			Address:         p.Owner,
			WalletLamports:  wallet,
			TotalInvested:   p.TotalInvested,
			TotalEarned:     p.TotalEarned,
			PendingEarnings: p.PendingEarnings,
			PendingReferral: p.PendingReferral,
			NextAccrualAt:   p.NextAccrualAt,
			EntryFeePaid:    p.EntryFeePaid,
			Slots:           make([]SlotView, 0, MaxSlots),
		}
		for i := range p.Slots.Slots {
			slot := p.Slots.Slots[i]
			view := SlotView{
				Index:    i,
				Unlocked: slot.Unlocked,
				Tier:     slot.Tier.String(),
			}
			if b := slot.Business; b != nil {
				view.Business = &BusinessView{
					TypeIndex:        int32(b.Type),
					TypeName:         b.Type.Name(),
					InvestedLamports: b.InvestedLamports,
					DailyRateBp:      b.DailyRateBp,
					Level:            b.Level,
					TotalEarned:      b.TotalEarned,
					LastAccrualAt:    b.LastAccrualAt,
					CreatedAt:        b.CreatedAt,
					Active:           b.Active,
					NFTSerial:        b.NFTSerial,
				}
			}
			out.Slots = append(out.Slots, view)
		}
		return nil
	})
	return out, err
}

// Stats returns the global counters plus live treasury balances.
func (s *Service) Stats(ctx context.Context) (StatsView, error) {
	var out StatsView
	err := s.db.QueryRow(ctx, `
		SELECT total_players, total_invested, total_withdrawn, total_referral_paid,
		       treasury_collected, total_businesses, nfts_minted, nfts_burned, paused
		FROM game.state
		WHERE id = 1
	`).Scan(&out.TotalPlayers, &out.TotalInvested, &out.TotalWithdrawn,
		&out.TotalReferralPaid, &out.TreasuryCollected, &out.TotalBusinesses,
		&out.NFTsMinted, &out.NFTsBurned, &out.Paused)
	if err != nil {
		return StatsView{}, err
	}
	rows, err := s.db.Query(ctx, `SELECT account, balance FROM game.treasury`)
	if err != nil {
		return StatsView{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var account string
		var balance int64
		if err := rows.Scan(&account, &balance); err != nil {
			return StatsView{}, err
		}
		switch account {
		case accountPool:
			out.PoolLamports = balance
		case accountFeeWallet:
			out.FeeWalletLamports = balance
		}
	}
	return out, rows.Err()
}

// Leaderboard ranks players by lifetime earnings.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	rows, err := s.db.Query(ctx, `
		SELECT p.address, p.total_earned,
		       (SELECT count(*) FROM game.businesses b
		        WHERE b.player_address = p.address AND b.active) AS businesses
		FROM game.players p
		ORDER BY p.total_earned DESC, p.address
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]LeaderboardRow, 0, limit)
	rank := int64(0)
	for rows.Next() {
		rank++
		row := LeaderboardRow{Rank: rank}
		if err := rows.Scan(&row.Address, &row.TotalEarned, &row.Businesses); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Rates lists the current per-type rate table.
func (s *Service) Rates(ctx context.Context) ([]RateView, error) {
	rows, err := s.db.Query(ctx, `
		SELECT business_type, daily_rate_bp, min_deposit
		FROM game.business_rates
		ORDER BY business_type
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]RateView, 0, int(businessTypeCount))
	for rows.Next() {
		var r RateView
		if err := rows.Scan(&r.TypeIndex, &r.DailyRateBp, &r.MinDeposit); err != nil {
			return nil, err
		}
		bt := BusinessType(r.TypeIndex)
		r.Name = bt.Name()
		out = append(out, r)
	}
	return out, rows.Err()
}

// DuePlayers lists players whose accrual schedule has elapsed, oldest first.
// The keeper cranks these through UpdateEarnings.
func (s *Service) DuePlayers(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `
		SELECT address
		FROM game.players
		WHERE next_accrual_at > 0 AND next_accrual_at <= $1
		ORDER BY next_accrual_at
		LIMIT $2
	`, s.clock(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, rows.Err()
}

// KeeperSweep cranks every due player once. Throttled and paused players are
// skipped, not treated as failures.
func (s *Service) KeeperSweep(ctx context.Context, batch int) (int, error) {
	due, err := s.DuePlayers(ctx, batch)
	if err != nil {
		return 0, err
	}
	updated := 0
	for _, addr := range due {
		_, err := s.UpdateEarnings(ctx, UpdateEarningsInput{PlayerAddress: addr})
		switch {
		case err == nil:
			updated++
		case errors.Is(err, ErrUpdateThrottled), errors.Is(err, ErrGamePaused):
		default:
			s.log.Warn("keeper update failed", "address", addr, "err", err)
		}
	}
	return updated, nil
}
