package game

import "fmt"

// Business is one investment position. It lives inside a slot and is linked
// to an NFT by serial number.
type Business struct {
	Type             BusinessType
	InvestedLamports int64
	DailyRateBp      int64
	Level            int32
	TotalEarned      int64
	LastAccrualAt    int64
	CreatedAt        int64
	Active           bool
	NFTSerial        int64
}

func NewBusiness(t BusinessType, amount, rateBp, now, serial int64) (*Business, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBusinessType, t)
	}
	if rateBp <= 0 || rateBp > MaxDailyRateBp {
		return nil, fmt.Errorf("%w: %d bp", ErrRateTooHigh, rateBp)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("invested amount must be > 0")
	}
	return &Business{
		Type:             t,
		InvestedLamports: amount,
		DailyRateBp:      rateBp,
		Level:            0,
		LastAccrualAt:    now,
		CreatedAt:        now,
		Active:           true,
		NFTSerial:        serial,
	}, nil
}

// Accrue computes the pending yield since the last accrual, advances the
// accrual clock, and returns the accrued amount. Calling it twice at the
// same timestamp yields zero the second time.
func (b *Business) Accrue(now int64) (int64, error) {
	if now < b.CreatedAt {
		return 0, fmt.Errorf("accrual before creation time")
	}
	pending, err := PendingSince(b.LastAccrualAt, now, b.InvestedLamports, b.DailyRateBp, b.Active)
	if err != nil {
		return 0, err
	}
	if now > b.LastAccrualAt {
		b.LastAccrualAt = now
	}
	if pending == 0 {
		return 0, nil
	}
	b.TotalEarned, err = checkedAdd(b.TotalEarned, pending)
	if err != nil {
		return 0, err
	}
	return pending, nil
}

// Upgrade advances the business one level, adding the upgrade cost to the
// invested principal and the yield bonus to the daily rate.
func (b *Business) Upgrade(cost, rateBonusBp int64) error {
	if !b.Active {
		return ErrBusinessInactive
	}
	if b.Level >= MaxLevel {
		return ErrMaxLevel
	}
	invested, err := checkedAdd(b.InvestedLamports, cost)
	if err != nil {
		return err
	}
	rate, err := checkedAdd(b.DailyRateBp, rateBonusBp)
	if err != nil {
		return err
	}
	if rate > MaxDailyRateBp {
		return fmt.Errorf("%w: %d bp", ErrRateTooHigh, rate)
	}
	b.InvestedLamports = invested
	b.DailyRateBp = rate
	b.Level++
	return nil
}

// Deactivate flips the position off. Used for voluntary sale and for
// externally detected NFT burns.
func (b *Business) Deactivate() {
	b.Active = false
}
