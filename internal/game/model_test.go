package game

import (
	"errors"
	"testing"
)

func TestParseBusinessType(t *testing.T) {
	for i := int32(0); i < int32(businessTypeCount); i++ {
		bt, err := ParseBusinessType(i)
		if err != nil {
			t.Fatalf("index %d: %v", i, err)
		}
		if bt.Name() == "unknown" {
			t.Fatalf("index %d has no catalog entry", i)
		}
		if bt.DefaultDailyRateBp() <= 0 || bt.DefaultDailyRateBp() > MaxDailyRateBp {
			t.Fatalf("index %d rate %d out of bounds", i, bt.DefaultDailyRateBp())
		}
	}
	for _, idx := range []int32{-1, int32(businessTypeCount), 99} {
		if _, err := ParseBusinessType(idx); !errors.Is(err, ErrInvalidBusinessType) {
			t.Fatalf("index %d: expected ErrInvalidBusinessType, got %v", idx, err)
		}
	}
}

func TestUpgradeCostByLevel(t *testing.T) {
	minDeposit := BusinessTobacco.DefaultMinDeposit() // 0.1 SOL

	tests := []struct {
		target int32
		want   int64
	}{
		{target: 1, want: 50_000_000},   // 50%
		{target: 2, want: 75_000_000},   // 75%
		{target: 10, want: 1_600_000_000}, // 1600%
	}
	for _, tc := range tests {
		got, err := UpgradeCost(BusinessTobacco, minDeposit, tc.target)
		if err != nil {
			t.Fatalf("target %d: %v", tc.target, err)
		}
		if got != tc.want {
			t.Fatalf("target %d: got %d want %d", tc.target, got, tc.want)
		}
	}

	for _, bad := range []int32{0, -3, MaxLevel + 1} {
		if _, err := UpgradeCost(BusinessTobacco, minDeposit, bad); !errors.Is(err, ErrInvalidLevel) {
			t.Fatalf("target %d: expected ErrInvalidLevel, got %v", bad, err)
		}
		if _, err := UpgradeYieldBonusBp(bad); !errors.Is(err, ErrInvalidLevel) {
			t.Fatalf("bonus target %d: expected ErrInvalidLevel, got %v", bad, err)
		}
	}
}

func TestEntryFeeMilestones(t *testing.T) {
	cfg := DefaultGameConfig()
	tests := []struct {
		players int64
		want    int64
	}{
		{players: 0, want: 100_000_000},
		{players: 999, want: 100_000_000},
		{players: 1_000, want: 150_000_000},
		{players: 2_500, want: 200_000_000},
		{players: 50_000, want: 500_000_000}, // capped
	}
	for _, tc := range tests {
		got := EntryFee(cfg.EntryFeeBase, cfg.EntryFeeIncrement, cfg.EntryFeeMilestone, cfg.EntryFeeCap, tc.players)
		if got != tc.want {
			t.Fatalf("players=%d got=%d want=%d", tc.players, got, tc.want)
		}
	}
}

func TestSellFeeSchedule(t *testing.T) {
	tests := []struct {
		days int64
		want int64
	}{
		{days: 0, want: 25},
		{days: 7, want: 25},
		{days: 8, want: 20},
		{days: 14, want: 20},
		{days: 21, want: 15},
		{days: 28, want: 10},
		{days: 30, want: 5},
		{days: 31, want: 2},
		{days: 365, want: 2},
	}
	for _, tc := range tests {
		if got := SellFeePercent(tc.days); got != tc.want {
			t.Fatalf("days=%d got=%d want=%d", tc.days, got, tc.want)
		}
	}
}

func TestNetFeePercentFloorsAtZero(t *testing.T) {
	if got := NetFeePercent(20, 5); got != 15 {
		t.Fatalf("got %d want 15", got)
	}
	if got := NetFeePercent(20, 25); got != 0 {
		t.Fatalf("discount past base: got %d want 0", got)
	}
}

func TestValidateAddress(t *testing.T) {
	valid := []string{
		"4Nd1mYdCRbM2oGmNDCQhQpshWLxKLggg8ueBhStt6cTU",
		"11111111111111111111111111111111",
	}
	for _, addr := range valid {
		if err := ValidateAddress(addr); err != nil {
			t.Fatalf("expected %q valid: %v", addr, err)
		}
	}
	invalid := []string{"", "short", "has spaces in it padded out to length", "0OIl0OIl0OIl0OIl0OIl0OIl0OIl0OIl"}
	for _, addr := range invalid {
		if err := ValidateAddress(addr); err == nil {
			t.Fatalf("expected %q to fail", addr)
		}
	}
}

func TestSolString(t *testing.T) {
	if got := SolString(1_500_000_000); got != "1.500000000" {
		t.Fatalf("got %q", got)
	}
	if got := SolString(1); got != "0.000000001" {
		t.Fatalf("got %q", got)
	}
}
