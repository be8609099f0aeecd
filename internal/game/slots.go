package game

import "fmt"

type SlotTier int32

const (
	TierBasic SlotTier = iota
	TierPremium
	TierVIP
	TierLegendary

	tierCount
)

var tierNames = [tierCount]string{"basic", "premium", "vip", "legendary"}

// Discount applied to the early-sell fee percentage, by tier.
var tierDiscountPct = [tierCount]int64{0, 5, 10, 25}

// Flat purchase cost for a tiered slot.
var tierCostLamports = [tierCount]int64{0, 200_000_000, 500_000_000, 1_000_000_000}

func ParseSlotTier(index int32) (SlotTier, error) {
	if index <= int32(TierBasic) || index >= int32(tierCount) {
		return 0, fmt.Errorf("%w: %d", ErrInvalidTier, index)
	}
	return SlotTier(index), nil
}

func (t SlotTier) Valid() bool {
	return t >= 0 && t < tierCount
}

func (t SlotTier) String() string {
	if !t.Valid() {
		return "unknown"
	}
	return tierNames[t]
}

func (t SlotTier) DiscountPct() int64 {
	if !t.Valid() {
		return 0
	}
	return tierDiscountPct[t]
}

func (t SlotTier) CostLamports() int64 {
	if !t.Valid() {
		return 0
	}
	return tierCostLamports[t]
}

type Slot struct {
	Unlocked bool
	Tier     SlotTier
	Business *Business
}

// SlotLedger is a player's fixed-capacity array of slots. The first
// BaseSlots are unlocked at creation; the rest open by fee or tier purchase.
type SlotLedger struct {
	Slots [MaxSlots]Slot
}

func NewSlotLedger() SlotLedger {
	var l SlotLedger
	for i := 0; i < BaseSlots; i++ {
		l.Slots[i].Unlocked = true
	}
	return l
}

func (l *SlotLedger) check(index int) error {
	if index < 0 || index >= MaxSlots {
		return fmt.Errorf("%w: %d", ErrSlotOutOfRange, index)
	}
	return nil
}

func (l *SlotLedger) Place(index int, b *Business) error {
	if err := l.check(index); err != nil {
		return err
	}
	slot := &l.Slots[index]
	if !slot.Unlocked {
		return fmt.Errorf("%w: %d", ErrSlotLocked, index)
	}
	if slot.Business != nil {
		return fmt.Errorf("%w: %d", ErrSlotOccupied, index)
	}
	slot.Business = b
	return nil
}

// Remove empties the slot and returns the business it held together with the
// tier's sell-fee discount percentage.
func (l *SlotLedger) Remove(index int) (*Business, int64, error) {
	if err := l.check(index); err != nil {
		return nil, 0, err
	}
	slot := &l.Slots[index]
	if slot.Business == nil {
		return nil, 0, fmt.Errorf("%w: %d", ErrSlotEmpty, index)
	}
	b := slot.Business
	slot.Business = nil
	return b, slot.Tier.DiscountPct(), nil
}

func (l *SlotLedger) Unlock(index int) error {
	if err := l.check(index); err != nil {
		return err
	}
	if l.Slots[index].Unlocked {
		return fmt.Errorf("%w: %d", ErrSlotUnlocked, index)
	}
	l.Slots[index].Unlocked = true
	return nil
}

// UnlockTier opens a locked slot at a purchased tier.
func (l *SlotLedger) UnlockTier(index int, tier SlotTier) error {
	if err := l.Unlock(index); err != nil {
		return err
	}
	l.Slots[index].Tier = tier
	return nil
}

// FreeSlot returns the lowest unlocked, empty slot index.
func (l *SlotLedger) FreeSlot() (int, bool) {
	for i := range l.Slots {
		if l.Slots[i].Unlocked && l.Slots[i].Business == nil {
			return i, true
		}
	}
	return 0, false
}

func (l *SlotLedger) ActiveBusinesses() int {
	n := 0
	for i := range l.Slots {
		if b := l.Slots[i].Business; b != nil && b.Active {
			n++
		}
	}
	return n
}

// SellFeePercent is the base early-sell fee by whole days held.
func SellFeePercent(daysHeld int64) int64 {
	switch {
	case daysHeld <= 7:
		return 25
	case daysHeld <= 14:
		return 20
	case daysHeld <= 21:
		return 15
	case daysHeld <= 28:
		return 10
	case daysHeld <= 30:
		return 5
	default:
		return 2
	}
}

// NetFeePercent applies the tier discount to the base fee. The result floors
// at zero; a discount larger than the base fee never goes negative.
func NetFeePercent(basePct, discountPct int64) int64 {
	net := basePct - discountPct
	if net < 0 {
		return 0
	}
	return net
}

// SellTerms prices one sale. Fee plus payout always equals the invested
// principal: the fee is the slice of the principal the pool keeps, and the
// payout is the only amount that leaves it.
type SellTerms struct {
	BaseFeePct     int64
	FinalFeePct    int64
	FeeLamports    int64
	PayoutLamports int64
}

func QuoteSale(invested, daysHeld, discountPct int64) (SellTerms, error) {
	terms := SellTerms{BaseFeePct: SellFeePercent(daysHeld)}
	terms.FinalFeePct = NetFeePercent(terms.BaseFeePct, discountPct)
	fee, err := mulDiv(invested, terms.FinalFeePct, 100)
	if err != nil {
		return SellTerms{}, err
	}
	terms.FeeLamports = fee
	terms.PayoutLamports = invested - fee
	return terms, nil
}
