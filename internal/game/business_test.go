package game

import (
	"errors"
	"testing"
)

func TestNewBusinessValidation(t *testing.T) {
	b, err := NewBusiness(BusinessTobacco, 100_000_000, 100, 1_000, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.NFTSerial != 7 {
		t.Fatalf("serial not recorded: %d", b.NFTSerial)
	}
	if !b.Active || b.Level != 0 || b.LastAccrualAt != 1_000 {
		t.Fatalf("bad initial state: %+v", b)
	}

	if _, err := NewBusiness(BusinessType(99), 100_000_000, 100, 1_000, 1); !errors.Is(err, ErrInvalidBusinessType) {
		t.Fatalf("expected ErrInvalidBusinessType, got %v", err)
	}
	if _, err := NewBusiness(BusinessTobacco, 100_000_000, MaxDailyRateBp+1, 1_000, 1); !errors.Is(err, ErrRateTooHigh) {
		t.Fatalf("expected ErrRateTooHigh, got %v", err)
	}
	if _, err := NewBusiness(BusinessTobacco, 0, 100, 1_000, 1); err == nil {
		t.Fatalf("expected error for zero amount")
	}
}

func TestAccrueAdvancesClock(t *testing.T) {
	b, err := NewBusiness(BusinessTobacco, 100_000_000, 100, 0, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	earned, err := b.Accrue(SecondsPerDay)
	if err != nil {
		t.Fatalf("accrue: %v", err)
	}
	if earned != 1_000_000 {
		t.Fatalf("one day: got %d want 1000000", earned)
	}
	if b.LastAccrualAt != SecondsPerDay {
		t.Fatalf("clock not advanced: %d", b.LastAccrualAt)
	}
	if b.TotalEarned != 1_000_000 {
		t.Fatalf("total not recorded: %d", b.TotalEarned)
	}

	// Second call at the same instant accrues nothing.
	earned, err = b.Accrue(SecondsPerDay)
	if err != nil {
		t.Fatalf("repeat accrue: %v", err)
	}
	if earned != 0 {
		t.Fatalf("repeat: got %d want 0", earned)
	}

	if _, err := b.Accrue(-1); err == nil {
		t.Fatalf("expected error before creation time")
	}
}

func TestAccrueInactiveEarnsNothing(t *testing.T) {
	b, _ := NewBusiness(BusinessClub, 5*LamportsPerSol, 280, 0, 1)
	b.Deactivate()
	earned, err := b.Accrue(SecondsPerDay)
	if err != nil {
		t.Fatalf("accrue: %v", err)
	}
	if earned != 0 {
		t.Fatalf("inactive earned %d", earned)
	}
}

func TestUpgrade(t *testing.T) {
	b, _ := NewBusiness(BusinessTobacco, 100_000_000, 100, 0, 1)

	if err := b.Upgrade(50_000_000, 10); err != nil {
		t.Fatalf("upgrade: %v", err)
	}
	if b.Level != 1 || b.InvestedLamports != 150_000_000 || b.DailyRateBp != 110 {
		t.Fatalf("bad state after upgrade: %+v", b)
	}

	// Rate bonus can never push past the sanity bound.
	if err := b.Upgrade(0, MaxDailyRateBp); !errors.Is(err, ErrRateTooHigh) {
		t.Fatalf("expected ErrRateTooHigh, got %v", err)
	}
	if b.Level != 1 {
		t.Fatalf("failed upgrade mutated level: %d", b.Level)
	}

	b.Level = MaxLevel
	if err := b.Upgrade(1, 1); !errors.Is(err, ErrMaxLevel) {
		t.Fatalf("expected ErrMaxLevel, got %v", err)
	}

	b.Level = 2
	b.Deactivate()
	if err := b.Upgrade(1, 1); !errors.Is(err, ErrBusinessInactive) {
		t.Fatalf("expected ErrBusinessInactive, got %v", err)
	}
}
