package game

import (
	"errors"
	"math"
	"testing"
)

func TestStateCounters(t *testing.T) {
	var st GameState
	if err := st.RecordPlayer(); err != nil {
		t.Fatalf("record player: %v", err)
	}
	if err := st.RecordInvestment(100); err != nil {
		t.Fatalf("record investment: %v", err)
	}
	if err := st.RecordWithdrawal(40); err != nil {
		t.Fatalf("record withdrawal: %v", err)
	}
	if err := st.RecordTreasuryFee(20); err != nil {
		t.Fatalf("record fee: %v", err)
	}
	if err := st.RecordReferralPaid(5); err != nil {
		t.Fatalf("record referral: %v", err)
	}
	if err := st.RecordBusinessOpened(); err != nil {
		t.Fatalf("record business: %v", err)
	}
	if st.TotalPlayers != 1 || st.TotalInvested != 100 || st.TotalWithdrawn != 40 ||
		st.TreasuryCollected != 20 || st.TotalReferralPaid != 5 || st.TotalBusinesses != 1 {
		t.Fatalf("bad counters: %+v", st)
	}

	st.TotalInvested = math.MaxInt64
	if err := st.RecordInvestment(1); !errors.Is(err, ErrAmountOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
}

func TestNextNFTSerial(t *testing.T) {
	var st GameState
	for want := int64(1); want <= 3; want++ {
		got, err := st.NextNFTSerial()
		if err != nil {
			t.Fatalf("serial: %v", err)
		}
		if got != want {
			t.Fatalf("serial: got %d want %d", got, want)
		}
	}
	if st.NFTsMinted != 3 {
		t.Fatalf("minted: got %d want 3", st.NFTsMinted)
	}

	if err := st.RecordBurn(); err != nil {
		t.Fatalf("burn: %v", err)
	}
	if st.NFTsBurned != 1 {
		t.Fatalf("burned: got %d", st.NFTsBurned)
	}
	// Burning never frees a serial for reuse.
	got, err := st.NextNFTSerial()
	if err != nil {
		t.Fatalf("serial after burn: %v", err)
	}
	if got != 4 {
		t.Fatalf("serial after burn: got %d want 4", got)
	}
}

func TestSplitDepositExact(t *testing.T) {
	tests := []struct {
		amount   int64
		feeBp    int64
		wantFee  int64
		wantPool int64
	}{
		{amount: 1_000_000_000, feeBp: 2_000, wantFee: 200_000_000, wantPool: 800_000_000},
		{amount: 101, feeBp: 2_000, wantFee: 20, wantPool: 81},
		{amount: 1, feeBp: 2_000, wantFee: 0, wantPool: 1},
		{amount: 100, feeBp: 0, wantFee: 0, wantPool: 100},
		{amount: 100, feeBp: 10_000, wantFee: 100, wantPool: 0},
	}
	for _, tc := range tests {
		fee, pool, err := SplitDeposit(tc.amount, tc.feeBp)
		if err != nil {
			t.Fatalf("split(%d, %d): %v", tc.amount, tc.feeBp, err)
		}
		if fee != tc.wantFee || pool != tc.wantPool {
			t.Fatalf("split(%d, %d) = %d, %d want %d, %d", tc.amount, tc.feeBp, fee, pool, tc.wantFee, tc.wantPool)
		}
		if fee+pool != tc.amount {
			t.Fatalf("split(%d, %d) loses value: %d + %d", tc.amount, tc.feeBp, fee, pool)
		}
	}
}
