package game

import (
	"errors"
	"testing"
)

func TestNewSlotLedgerDefaults(t *testing.T) {
	l := NewSlotLedger()
	for i := 0; i < MaxSlots; i++ {
		wantUnlocked := i < BaseSlots
		if l.Slots[i].Unlocked != wantUnlocked {
			t.Fatalf("slot %d unlocked=%v want %v", i, l.Slots[i].Unlocked, wantUnlocked)
		}
		if l.Slots[i].Tier != TierBasic {
			t.Fatalf("slot %d tier=%v want basic", i, l.Slots[i].Tier)
		}
	}
}

func TestPlaceAndRemove(t *testing.T) {
	l := NewSlotLedger()
	b, _ := NewBusiness(BusinessTobacco, 100_000_000, 100, 0, 1)

	if err := l.Place(0, b); err != nil {
		t.Fatalf("place: %v", err)
	}
	if err := l.Place(0, b); !errors.Is(err, ErrSlotOccupied) {
		t.Fatalf("expected ErrSlotOccupied, got %v", err)
	}
	if err := l.Place(BaseSlots, b); !errors.Is(err, ErrSlotLocked) {
		t.Fatalf("expected ErrSlotLocked, got %v", err)
	}
	if err := l.Place(MaxSlots, b); !errors.Is(err, ErrSlotOutOfRange) {
		t.Fatalf("expected ErrSlotOutOfRange, got %v", err)
	}
	if err := l.Place(-1, b); !errors.Is(err, ErrSlotOutOfRange) {
		t.Fatalf("expected ErrSlotOutOfRange, got %v", err)
	}

	got, discount, err := l.Remove(0)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got != b || discount != 0 {
		t.Fatalf("remove returned %v discount %d", got, discount)
	}
	if _, _, err := l.Remove(0); !errors.Is(err, ErrSlotEmpty) {
		t.Fatalf("expected ErrSlotEmpty, got %v", err)
	}
}

func TestUnlockAndTier(t *testing.T) {
	l := NewSlotLedger()

	if err := l.Unlock(0); !errors.Is(err, ErrSlotUnlocked) {
		t.Fatalf("expected ErrSlotUnlocked, got %v", err)
	}
	if err := l.Unlock(BaseSlots); err != nil {
		t.Fatalf("unlock: %v", err)
	}

	if err := l.UnlockTier(BaseSlots+1, TierLegendary); err != nil {
		t.Fatalf("unlock tier: %v", err)
	}
	if l.Slots[BaseSlots+1].Tier != TierLegendary {
		t.Fatalf("tier not set: %v", l.Slots[BaseSlots+1].Tier)
	}
}

func TestParseSlotTier(t *testing.T) {
	for _, idx := range []int32{1, 2, 3} {
		tier, err := ParseSlotTier(idx)
		if err != nil {
			t.Fatalf("index %d: %v", idx, err)
		}
		if tier.CostLamports() <= 0 {
			t.Fatalf("tier %v has no cost", tier)
		}
	}
	// Basic cannot be bought; it is the free default.
	for _, idx := range []int32{0, -1, int32(tierCount)} {
		if _, err := ParseSlotTier(idx); !errors.Is(err, ErrInvalidTier) {
			t.Fatalf("index %d: expected ErrInvalidTier, got %v", idx, err)
		}
	}
}

func TestFreeSlot(t *testing.T) {
	l := NewSlotLedger()
	b, _ := NewBusiness(BusinessTobacco, 100_000_000, 100, 0, 1)
	_ = l.Place(0, b)

	idx, ok := l.FreeSlot()
	if !ok || idx != 1 {
		t.Fatalf("free slot: got %d, %v", idx, ok)
	}

	for i := 1; i < BaseSlots; i++ {
		nb, _ := NewBusiness(BusinessTobacco, 100_000_000, 100, 0, int64(i+1))
		_ = l.Place(i, nb)
	}
	if _, ok := l.FreeSlot(); ok {
		t.Fatalf("expected no free slot with all base slots occupied")
	}
}

// A 0.1 SOL position sold after 10 days owes the 20% bracket; a legendary
// slot's 25% discount wipes the fee entirely.
func TestQuoteSaleWorkedExample(t *testing.T) {
	invested := int64(100_000_000)

	terms, err := QuoteSale(invested, 10, 0)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if terms.BaseFeePct != 20 || terms.FinalFeePct != 20 {
		t.Fatalf("basic slot pct: got base=%d final=%d want 20/20", terms.BaseFeePct, terms.FinalFeePct)
	}
	if terms.FeeLamports != 20_000_000 || terms.PayoutLamports != 80_000_000 {
		t.Fatalf("basic slot split: got fee=%d payout=%d", terms.FeeLamports, terms.PayoutLamports)
	}

	terms, err = QuoteSale(invested, 10, TierLegendary.DiscountPct())
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if terms.FeeLamports != 0 || terms.PayoutLamports != invested {
		t.Fatalf("legendary slot split: got fee=%d payout=%d", terms.FeeLamports, terms.PayoutLamports)
	}
}

// The pool only ever pays out the discounted payout. The retained fee plus
// the payout must reconstruct the invested principal exactly, so a sale can
// never draw more than the principal the pool already holds for it.
func TestQuoteSaleConservesPrincipal(t *testing.T) {
	for _, invested := range []int64{1, 99, 100_000_000, 5_000_000_000, 123_456_789} {
		for _, days := range []int64{0, 3, 7, 14, 30, 60, 91, 365} {
			for _, discount := range []int64{0, 5, 10, 25} {
				terms, err := QuoteSale(invested, days, discount)
				if err != nil {
					t.Fatalf("quote(%d,%d,%d): %v", invested, days, discount, err)
				}
				if terms.FeeLamports+terms.PayoutLamports != invested {
					t.Fatalf("quote(%d,%d,%d): fee %d + payout %d != invested", invested, days, discount, terms.FeeLamports, terms.PayoutLamports)
				}
				if terms.PayoutLamports < 0 || terms.PayoutLamports > invested {
					t.Fatalf("quote(%d,%d,%d): payout %d out of range", invested, days, discount, terms.PayoutLamports)
				}
			}
		}
	}
}
