package game

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// UpdateEarnings sweeps pending yield for one player. Anyone may call it for
// any player; the per-player throttle in UpdatePending keeps repeated calls
// cheap to reject.
func (s *Service) UpdateEarnings(ctx context.Context, in UpdateEarningsInput) (UpdateEarningsResult, error) {
	var out UpdateEarningsResult
	now := s.clock()
	err := s.withSerializableTx(ctx, func(tx pgx.Tx) error {
		st, err := loadStateTx(ctx, tx, false)
		if err != nil {
			return err
		}
		if st.Paused {
			return ErrGamePaused
		}
		p, err := loadPlayerTx(ctx, tx, in.PlayerAddress, true)
		if err != nil {
			return err
		}
		accrued, err := p.UpdatePending(now)
		if err != nil {
			return err
		}
		for i := range p.Slots.Slots {
			b := p.Slots.Slots[i].Business
			if b == nil {
				continue
			}
			if err := saveBusinessTx(ctx, tx, in.PlayerAddress, i, b); err != nil {
				return err
			}
		}
		if err := savePlayerTx(ctx, tx, p); err != nil {
			return err
		}
		out = UpdateEarningsResult{
			AccruedLamports: accrued,
			PendingLamports: p.PendingEarnings,
			NextAccrualAt:   p.NextAccrualAt,
		}
		return nil
	})
	return out, err
}

// ClaimEarnings pays out everything pending, yield and referral both, from
// the treasury pool. A flat claim fee is carved out of the gross and routed
// to the fee wallet; claims that cannot cover the fee are rejected whole.
func (s *Service) ClaimEarnings(ctx context.Context, in ClaimEarningsInput) (ClaimEarningsResult, error) {
	var out ClaimEarningsResult
	now := s.clock()
	err := s.withSerializableTx(ctx, func(tx pgx.Tx) error {
		if err := claimIdempotency(ctx, tx, in.Address, in.IdempotencyKey, "claim_earnings"); err != nil {
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
		p, err := loadPlayerTx(ctx, tx, in.Address, true)
		if err != nil {
			return err
		}

		// Claims always settle yield to the claim instant first, bypassing
		// the update throttle.
		if _, err := p.accrueAll(now); err != nil {
			return err
		}
		gross, err := p.ClaimableAmount()
		if err != nil {
			return err
		}
		if gross == 0 {
			return ErrNothingToClaim
		}
		if gross <= cfg.ClaimFeeLamports {
			return ErrClaimBelowFee
		}
		gross, err = p.ClaimAll()
		if err != nil {
			return err
		}
		payout := gross - cfg.ClaimFeeLamports

		balance, err := poolToWalletTx(ctx, tx, in.Address, payout)
		if err != nil {
			return err
		}
		if err := poolToFeeWalletTx(ctx, tx, cfg.ClaimFeeLamports); err != nil {
			return err
		}
		if err := appendTransferEntries(ctx, tx, in.Address, "claim", accountPool, "wallet", payout, nil); err != nil {
			return err
		}
		if err := appendTransferEntries(ctx, tx, in.Address, "claim_fee", accountPool, accountFeeWallet, cfg.ClaimFeeLamports, nil); err != nil {
			return err
		}

		for i := range p.Slots.Slots {
			b := p.Slots.Slots[i].Business
			if b == nil {
				continue
			}
			if err := saveBusinessTx(ctx, tx, in.Address, i, b); err != nil {
				return err
			}
		}
		if err := savePlayerTx(ctx, tx, p); err != nil {
			return err
		}
		if err := st.RecordWithdrawal(payout); err != nil {
			return err
		}
		if err := st.RecordTreasuryFee(cfg.ClaimFeeLamports); err != nil {
			return err
		}
		if err := saveStateTx(ctx, tx, st); err != nil {
			return err
		}
		out = ClaimEarningsResult{
			GrossLamports:  gross,
			FeeLamports:    cfg.ClaimFeeLamports,
			PayoutLamports: payout,
			WalletLamports: balance,
		}
		return nil
	})
	if err != nil {
		return ClaimEarningsResult{}, err
	}
	s.log.Info("earnings claimed",
		"address", in.Address,
		"gross", out.GrossLamports,
		"payout", out.PayoutLamports,
	)
	return out, nil
}

// CreditReferral adds a commission to a player's pending referral balance.
// Only the configured authority may call it; the upstream referral graph
// lives with the authority, not here.
func (s *Service) CreditReferral(ctx context.Context, in CreditReferralInput) error {
	if in.AuthorityAddress != s.authority {
		return ErrUnauthorized
	}
	if in.AmountLamports <= 0 {
		return ErrAmountOverflow
	}
	err := s.withSerializableTx(ctx, func(tx pgx.Tx) error {
		if err := claimIdempotency(ctx, tx, in.PlayerAddress, in.IdempotencyKey, "credit_referral"); err != nil {
			return err
		}
		st, err := loadStateTx(ctx, tx, true)
		if err != nil {
			return err
		}
		p, err := loadPlayerTx(ctx, tx, in.PlayerAddress, true)
		if err != nil {
			return err
		}
		if err := p.AddReferralBonus(in.AmountLamports); err != nil {
			return err
		}
		if err := savePlayerTx(ctx, tx, p); err != nil {
			return err
		}
		if err := st.RecordReferralPaid(in.AmountLamports); err != nil {
			return err
		}
		return saveStateTx(ctx, tx, st)
	})
	if err != nil {
		return err
	}
	s.log.Info("referral credited", "address", in.PlayerAddress, "amount", in.AmountLamports)
	return nil
}
