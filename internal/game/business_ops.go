package game

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// CreateBusiness opens an investment position in one of the caller's slots.
// The deposit splits between the fee wallet and the yield pool, and an NFT
// with the next serial is minted for the position.
func (s *Service) CreateBusiness(ctx context.Context, in CreateBusinessInput) (CreateBusinessResult, error) {
	var out CreateBusinessResult
	btype, err := ParseBusinessType(in.TypeIndex)
	if err != nil {
		return out, err
	}
	now := s.clock()
	err = s.withSerializableTx(ctx, func(tx pgx.Tx) error {
		if err := claimIdempotency(ctx, tx, in.Address, in.IdempotencyKey, "create_business"); err != nil {
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
		rateBp, minDeposit, err := loadRateTx(ctx, tx, btype)
		if err != nil {
			return err
		}
		if in.AmountLamports < minDeposit {
			return fmt.Errorf("%w: %d < %d", ErrDepositTooSmall, in.AmountLamports, minDeposit)
		}

		p, err := loadPlayerTx(ctx, tx, in.Address, true)
		if err != nil {
			return err
		}
		if !p.EntryFeePaid {
			return ErrEntryFeeUnpaid
		}
		if p.Slots.ActiveBusinesses() >= cfg.MaxBusinesses {
			return ErrMaxBusinesses
		}

		serial, err := st.NextNFTSerial()
		if err != nil {
			return err
		}
		b, err := NewBusiness(btype, in.AmountLamports, rateBp, now, serial)
		if err != nil {
			return err
		}
		if err := p.Slots.Place(in.SlotIndex, b); err != nil {
			return err
		}

		fee, pool, err := SplitDeposit(in.AmountLamports, cfg.TreasuryFeeBp)
		if err != nil {
			return err
		}
		balance, err := walletToTreasuryTx(ctx, tx, in.Address, accountFeeWallet, fee)
		if err != nil {
			return err
		}
		balance, err = walletToTreasuryTx(ctx, tx, in.Address, accountPool, pool)
		if err != nil {
			return err
		}
		meta := map[string]any{"slot": in.SlotIndex, "business_type": btype.Name(), "nft_serial": serial}
		if err := appendTransferEntries(ctx, tx, in.Address, "business_fee", "wallet", accountFeeWallet, fee, meta); err != nil {
			return err
		}
		if err := appendTransferEntries(ctx, tx, in.Address, "business_deposit", "wallet", accountPool, pool, meta); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO game.nfts (serial, business_type, level, owner, supply, minted_at)
			VALUES ($1, $2, 0, $3, 1, now())
		`, serial, int32(btype), in.Address); err != nil {
			return err
		}
		if err := insertBusinessTx(ctx, tx, in.Address, in.SlotIndex, b); err != nil {
			return err
		}

		p.ScheduleFirstAccrual(now)
		if err := p.RecordInvestment(in.AmountLamports); err != nil {
			return err
		}
		if err := savePlayerTx(ctx, tx, p); err != nil {
			return err
		}

		if err := st.RecordInvestment(in.AmountLamports); err != nil {
			return err
		}
		if err := st.RecordTreasuryFee(fee); err != nil {
			return err
		}
		if err := st.RecordBusinessOpened(); err != nil {
			return err
		}
		if err := saveStateTx(ctx, tx, st); err != nil {
			return err
		}
		out = CreateBusinessResult{
			NFTSerial:      serial,
			FeeLamports:    fee,
			PoolLamports:   pool,
			DailyRateBp:    rateBp,
			NextAccrualAt:  p.NextAccrualAt,
			WalletLamports: balance,
		}
		return nil
	})
	if err != nil {
		return CreateBusinessResult{}, err
	}
	s.log.Info("business created",
		"address", in.Address,
		"type", btype.Name(),
		"slot", in.SlotIndex,
		"invested", in.AmountLamports,
		"nft_serial", out.NFTSerial,
	)
	return out, nil
}

// UpgradeBusiness advances the slot's business one level. The upgrade cost
// is a percentage of the type's minimum deposit and goes to the fee wallet;
// the position NFT is reminted at the new level.
func (s *Service) UpgradeBusiness(ctx context.Context, in UpgradeBusinessInput) (UpgradeBusinessResult, error) {
	var out UpgradeBusinessResult
	now := s.clock()
	err := s.withSerializableTx(ctx, func(tx pgx.Tx) error {
		if err := claimIdempotency(ctx, tx, in.Address, in.IdempotencyKey, "upgrade_business"); err != nil {
			return err
		}
		st, err := loadStateTx(ctx, tx, true)
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
		if err := p.Slots.check(in.SlotIndex); err != nil {
			return err
		}
		b := p.Slots.Slots[in.SlotIndex].Business
		if b == nil {
			return fmt.Errorf("%w: %d", ErrSlotEmpty, in.SlotIndex)
		}
		if !b.Active {
			return ErrBusinessInactive
		}
		if b.Level >= MaxLevel {
			return ErrMaxLevel
		}

		// Settle pending yield at the old rate before the rate changes.
		accrued, err := b.Accrue(now)
		if err != nil {
			return err
		}
		if accrued > 0 {
			pending, err := checkedAdd(p.PendingEarnings, accrued)
			if err != nil {
				return err
			}
			p.PendingEarnings = pending
		}

		target := b.Level + 1
		cost, err := UpgradeCost(b.Type, b.Type.DefaultMinDeposit(), target)
		if err != nil {
			return err
		}
		bonusBp, err := UpgradeYieldBonusBp(target)
		if err != nil {
			return err
		}
		if err := b.Upgrade(cost, bonusBp); err != nil {
			return err
		}

		balance, err := walletToTreasuryTx(ctx, tx, in.Address, accountFeeWallet, cost)
		if err != nil {
			return err
		}
		if err := appendTransferEntries(ctx, tx, in.Address, "business_upgrade", "wallet", accountFeeWallet, cost, map[string]any{"slot": in.SlotIndex, "level": target}); err != nil {
			return err
		}

		// The level-N NFT burns and a level-N+1 NFT mints in its place.
		oldSerial := b.NFTSerial
		if _, err := tx.Exec(ctx, `
			UPDATE game.nfts SET supply = 0, burned_at = now() WHERE serial = $1
		`, oldSerial); err != nil {
			return err
		}
		if err := st.RecordBurn(); err != nil {
			return err
		}
		newSerial, err := st.NextNFTSerial()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO game.nfts (serial, business_type, level, owner, supply, minted_at)
			VALUES ($1, $2, $3, $4, 1, now())
		`, newSerial, int32(b.Type), target, in.Address); err != nil {
			return err
		}
		b.NFTSerial = newSerial

		if err := p.RecordInvestment(cost); err != nil {
			return err
		}
		if err := st.RecordInvestment(cost); err != nil {
			return err
		}
		if err := st.RecordTreasuryFee(cost); err != nil {
			return err
		}
		if err := saveBusinessTx(ctx, tx, in.Address, in.SlotIndex, b); err != nil {
			return err
		}
		if err := savePlayerTx(ctx, tx, p); err != nil {
			return err
		}
		if err := saveStateTx(ctx, tx, st); err != nil {
			return err
		}
		out = UpgradeBusinessResult{
			NewLevel:       b.Level,
			CostLamports:   cost,
			NewDailyRateBp: b.DailyRateBp,
			NewNFTSerial:   newSerial,
			WalletLamports: balance,
		}
		return nil
	})
	if err != nil {
		return UpgradeBusinessResult{}, err
	}
	s.log.Info("business upgraded",
		"address", in.Address,
		"slot", in.SlotIndex,
		"level", out.NewLevel,
		"cost", out.CostLamports,
	)
	return out, nil
}

// SellBusiness closes the position: pending yield settles first, then the
// invested principal pays out minus the holding-period fee, reduced by the
// slot tier discount. The position NFT burns.
func (s *Service) SellBusiness(ctx context.Context, in SellBusinessInput) (SellBusinessResult, error) {
	var out SellBusinessResult
	now := s.clock()
	err := s.withSerializableTx(ctx, func(tx pgx.Tx) error {
		if err := claimIdempotency(ctx, tx, in.Address, in.IdempotencyKey, "sell_business"); err != nil {
			return err
		}
		st, err := loadStateTx(ctx, tx, true)
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
		if err := p.Slots.check(in.SlotIndex); err != nil {
			return err
		}
		if b := p.Slots.Slots[in.SlotIndex].Business; b != nil && b.Active {
			// Yield up to the sale instant is kept, not forfeited.
			accrued, err := b.Accrue(now)
			if err != nil {
				return err
			}
			if accrued > 0 {
				pending, err := checkedAdd(p.PendingEarnings, accrued)
				if err != nil {
					return err
				}
				p.PendingEarnings = pending
			}
		}
		b, discountPct, err := p.Slots.Remove(in.SlotIndex)
		if err != nil {
			return err
		}
		if !b.Active {
			return ErrBusinessInactive
		}

		daysHeld := (now - b.CreatedAt) / SecondsPerDay
		terms, err := QuoteSale(b.InvestedLamports, daysHeld, discountPct)
		if err != nil {
			return err
		}

		// The fee never leaves the pool. The principal came in whole when the
		// business opened, so debiting only the payout leaves the fee behind.
		balance, err := poolToWalletTx(ctx, tx, in.Address, terms.PayoutLamports)
		if err != nil {
			return err
		}
		if err := appendTransferEntries(ctx, tx, in.Address, "business_sale", accountPool, "wallet", terms.PayoutLamports, map[string]any{"slot": in.SlotIndex, "fee_pct": terms.FinalFeePct}); err != nil {
			return err
		}

		b.Deactivate()
		if _, err := tx.Exec(ctx, `
			UPDATE game.nfts SET supply = 0, burned_at = now() WHERE serial = $1
		`, b.NFTSerial); err != nil {
			return err
		}
		if err := st.RecordBurn(); err != nil {
			return err
		}
		if err := deleteBusinessTx(ctx, tx, in.Address, in.SlotIndex); err != nil {
			return err
		}

		if err := st.RecordWithdrawal(terms.PayoutLamports); err != nil {
			return err
		}
		if err := savePlayerTx(ctx, tx, p); err != nil {
			return err
		}
		if err := saveStateTx(ctx, tx, st); err != nil {
			return err
		}
		out = SellBusinessResult{
			DaysHeld:       daysHeld,
			BaseFeePct:     terms.BaseFeePct,
			TierDiscount:   discountPct,
			FinalFeePct:    terms.FinalFeePct,
			FeeLamports:    terms.FeeLamports,
			PayoutLamports: terms.PayoutLamports,
			WalletLamports: balance,
		}
		return nil
	})
	if err != nil {
		return SellBusinessResult{}, err
	}
	s.log.Info("business sold",
		"address", in.Address,
		"slot", in.SlotIndex,
		"days_held", out.DaysHeld,
		"fee_pct", out.FinalFeePct,
		"payout", out.PayoutLamports,
	)
	return out, nil
}
