package game

import (
	"errors"
	"math"
	"testing"
)

func TestDailyEarnings(t *testing.T) {
	tests := []struct {
		invested int64
		rateBp   int64
		want     int64
	}{
		{invested: 100_000_000, rateBp: 100, want: 1_000_000},
		{invested: 5 * LamportsPerSol, rateBp: 350, want: 175_000_000},
		{invested: 1, rateBp: 100, want: 0},
		{invested: 9_999, rateBp: 1, want: 0},
		{invested: 0, rateBp: 500, want: 0},
	}
	for _, tc := range tests {
		got, err := DailyEarnings(tc.invested, tc.rateBp)
		if err != nil {
			t.Fatalf("DailyEarnings(%d, %d): %v", tc.invested, tc.rateBp, err)
		}
		if got != tc.want {
			t.Fatalf("DailyEarnings(%d, %d) = %d, want %d", tc.invested, tc.rateBp, got, tc.want)
		}
	}
}

// Waiting longer can never shrink the accrued amount: for a fixed position,
// pending yield is non-decreasing in elapsed time.
func TestPendingSinceMonotonic(t *testing.T) {
	const last = int64(1_700_000_000)
	positions := []struct {
		invested int64
		rateBp   int64
	}{
		{invested: 100_000_000, rateBp: 100},
		{invested: 123_456_789, rateBp: 170},
		{invested: 5 * LamportsPerSol, rateBp: 350},
		{invested: 1, rateBp: 1},
	}
	offsets := []int64{0, 1, 59, 60, 3_599, 3_600, 3_601, 40_000,
		SecondsPerDay - 1, SecondsPerDay, SecondsPerDay + 1,
		3 * SecondsPerDay, 30 * SecondsPerDay, 365 * SecondsPerDay}
	for _, pos := range positions {
		prev := int64(-1)
		for _, off := range offsets {
			got, err := PendingSince(last, last+off, pos.invested, pos.rateBp, true)
			if err != nil {
				t.Fatalf("PendingSince(+%d, %d, %d): %v", off, pos.invested, pos.rateBp, err)
			}
			if got < prev {
				t.Fatalf("pending shrank for invested=%d rate=%d: +%ds gave %d after %d", pos.invested, pos.rateBp, off, got, prev)
			}
			prev = got
		}
	}
}

func TestDailyEarningsRejectsNegative(t *testing.T) {
	if _, err := DailyEarnings(-1, 100); err == nil {
		t.Fatalf("expected error for negative invested")
	}
	if _, err := DailyEarnings(100, -1); err == nil {
		t.Fatalf("expected error for negative rate")
	}
}

func TestPendingSince(t *testing.T) {
	invested := int64(100_000_000)
	rateBp := int64(100) // 1_000_000 per day

	got, err := PendingSince(1_000, 1_000+SecondsPerDay, invested, rateBp, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 1_000_000 {
		t.Fatalf("full day: got %d want 1000000", got)
	}

	// Half a day floors cleanly.
	got, err = PendingSince(0, SecondsPerDay/2, invested, rateBp, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 500_000 {
		t.Fatalf("half day: got %d want 500000", got)
	}

	// One second of a tiny position floors to zero dust.
	got, err = PendingSince(0, 1, 10_000, rateBp, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0 {
		t.Fatalf("dust: got %d want 0", got)
	}
}

func TestPendingSinceZeroCases(t *testing.T) {
	if got, _ := PendingSince(100, 100, 1_000_000, 100, true); got != 0 {
		t.Fatalf("same instant: got %d want 0", got)
	}
	if got, _ := PendingSince(200, 100, 1_000_000, 100, true); got != 0 {
		t.Fatalf("clock behind: got %d want 0", got)
	}
	if got, _ := PendingSince(0, SecondsPerDay, 1_000_000, 100, false); got != 0 {
		t.Fatalf("inactive: got %d want 0", got)
	}
}

func TestMulDivOverflow(t *testing.T) {
	// The widened product fits; only an out-of-range quotient errors.
	got, err := mulDiv(math.MaxInt64, 1, 1)
	if err != nil {
		t.Fatalf("identity: %v", err)
	}
	if got != math.MaxInt64 {
		t.Fatalf("identity: got %d", got)
	}

	if _, err := mulDiv(math.MaxInt64, 2, 1); !errors.Is(err, ErrAmountOverflow) {
		t.Fatalf("expected ErrAmountOverflow, got %v", err)
	}

	got, err = mulDiv(math.MaxInt64, 2, 2)
	if err != nil {
		t.Fatalf("wide intermediate: %v", err)
	}
	if got != math.MaxInt64 {
		t.Fatalf("wide intermediate: got %d", got)
	}
}

func TestCheckedAdd(t *testing.T) {
	got, err := checkedAdd(1, 2)
	if err != nil || got != 3 {
		t.Fatalf("checkedAdd(1,2) = %d, %v", got, err)
	}
	if _, err := checkedAdd(math.MaxInt64, 1); !errors.Is(err, ErrAmountOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	if _, err := checkedAdd(math.MinInt64, -1); !errors.Is(err, ErrAmountOverflow) {
		t.Fatalf("expected underflow, got %v", err)
	}
}
