package game

import (
	"fmt"
	"hash/fnv"
)

// Player aggregates one owner's slots and running totals. Pending balances
// only grow through accrual or referral credit and only reach zero through a
// claim; nothing assigns them directly.
type Player struct {
	Owner           string
	Slots           SlotLedger
	TotalInvested   int64
	TotalEarned     int64
	PendingEarnings int64
	PendingReferral int64
	NextAccrualAt   int64
	LastUpdateAt    int64
	EntryFeePaid    bool
	CreatedAt       int64
}

func NewPlayer(owner string, now int64) *Player {
	return &Player{
		Owner:     owner,
		Slots:     NewSlotLedger(),
		CreatedAt: now,
	}
}

// accrualOffset spreads players' accrual schedules across the offset window
// using a stable hash of the owner identity.
func accrualOffset(owner string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(owner))
	return int64(h.Sum64() % uint64(AccrualOffsetWindowSecs))
}

// ScheduleFirstAccrual is called when the player's first business opens.
// Later businesses never reset the schedule.
func (p *Player) ScheduleFirstAccrual(now int64) {
	if p.NextAccrualAt != 0 {
		return
	}
	p.NextAccrualAt = now + AccrualBaseIntervalSecs + accrualOffset(p.Owner)
}

func (p *Player) IsDue(now int64) bool {
	return p.NextAccrualAt != 0 && now >= p.NextAccrualAt
}

// UpdatePending accrues every active business into the pending pool. The
// call is permissionless, so it throttles itself: callers retrying inside
// the minimum interval get ErrUpdateThrottled instead of burning compute.
func (p *Player) UpdatePending(now int64) (int64, error) {
	if p.LastUpdateAt != 0 && now < p.LastUpdateAt+MinUpdateIntervalSecs {
		return 0, ErrUpdateThrottled
	}
	accrued, err := p.accrueAll(now)
	if err != nil {
		return 0, err
	}
	p.LastUpdateAt = now
	if p.NextAccrualAt != 0 && now >= p.NextAccrualAt {
		p.NextAccrualAt = now + AccrualBaseIntervalSecs + accrualOffset(p.Owner)
	}
	return accrued, nil
}

// accrueAll is the unthrottled sweep used by UpdatePending and by claims.
func (p *Player) accrueAll(now int64) (int64, error) {
	total := int64(0)
	for i := range p.Slots.Slots {
		b := p.Slots.Slots[i].Business
		if b == nil || !b.Active {
			continue
		}
		earned, err := b.Accrue(now)
		if err != nil {
			return 0, fmt.Errorf("slot %d: %w", i, err)
		}
		total, err = checkedAdd(total, earned)
		if err != nil {
			return 0, err
		}
	}
	pending, err := checkedAdd(p.PendingEarnings, total)
	if err != nil {
		return 0, err
	}
	p.PendingEarnings = pending
	return total, nil
}

// ClaimableAmount is the checked sum of both pending balances.
func (p *Player) ClaimableAmount() (int64, error) {
	return checkedAdd(p.PendingEarnings, p.PendingReferral)
}

// ClaimAll zeroes both pending balances and moves their sum into the earned
// total, returning the gross amount owed from the treasury pool.
func (p *Player) ClaimAll() (int64, error) {
	amount, err := p.ClaimableAmount()
	if err != nil {
		return 0, err
	}
	if amount == 0 {
		return 0, ErrNothingToClaim
	}
	earned, err := checkedAdd(p.TotalEarned, amount)
	if err != nil {
		return 0, err
	}
	p.TotalEarned = earned
	p.PendingEarnings = 0
	p.PendingReferral = 0
	return amount, nil
}

func (p *Player) AddReferralBonus(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("referral bonus must be > 0")
	}
	next, err := checkedAdd(p.PendingReferral, amount)
	if err != nil {
		return err
	}
	p.PendingReferral = next
	return nil
}

func (p *Player) RecordInvestment(amount int64) error {
	next, err := checkedAdd(p.TotalInvested, amount)
	if err != nil {
		return err
	}
	p.TotalInvested = next
	return nil
}
