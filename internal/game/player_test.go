package game

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

const testOwner = "4Nd1mYdCRbM2oGmNDCQhQpshWLxKLggg8ueBhStt6cTU"

func TestScheduleFirstAccrual(t *testing.T) {
	p := NewPlayer(testOwner, 100)
	require.Zero(t, p.NextAccrualAt)

	p.ScheduleFirstAccrual(100)
	first := p.NextAccrualAt
	require.GreaterOrEqual(t, first, 100+AccrualBaseIntervalSecs)
	require.Less(t, first, 100+AccrualBaseIntervalSecs+AccrualOffsetWindowSecs)

	// A second business never resets the schedule.
	p.ScheduleFirstAccrual(5_000)
	require.Equal(t, first, p.NextAccrualAt)

	// The offset is a stable function of the owner.
	q := NewPlayer(testOwner, 100)
	q.ScheduleFirstAccrual(100)
	require.Equal(t, first, q.NextAccrualAt)
}

func TestUpdatePendingThrottle(t *testing.T) {
	p := NewPlayer(testOwner, 0)
	b, err := NewBusiness(BusinessTobacco, 100_000_000, 100, 0, 1)
	require.NoError(t, err)
	require.NoError(t, p.Slots.Place(0, b))
	p.ScheduleFirstAccrual(0)

	accrued, err := p.UpdatePending(SecondsPerDay)
	require.NoError(t, err)
	require.EqualValues(t, 1_000_000, accrued)
	require.EqualValues(t, 1_000_000, p.PendingEarnings)

	// Immediately again: throttled, pending untouched.
	_, err = p.UpdatePending(SecondsPerDay + 1)
	require.ErrorIs(t, err, ErrUpdateThrottled)
	require.EqualValues(t, 1_000_000, p.PendingEarnings)

	// Past the interval it works again.
	accrued, err = p.UpdatePending(SecondsPerDay + MinUpdateIntervalSecs)
	require.NoError(t, err)
	require.EqualValues(t, mustMulDiv(t, 1_000_000, MinUpdateIntervalSecs, SecondsPerDay), accrued)
}

func TestClaimAll(t *testing.T) {
	p := NewPlayer(testOwner, 0)

	_, err := p.ClaimAll()
	require.ErrorIs(t, err, ErrNothingToClaim)

	p.PendingEarnings = 7_000_000
	require.NoError(t, p.AddReferralBonus(3_000_000))
	claimable, err := p.ClaimableAmount()
	require.NoError(t, err)
	require.EqualValues(t, 10_000_000, claimable)

	gross, err := p.ClaimAll()
	require.NoError(t, err)
	require.EqualValues(t, 10_000_000, gross)
	require.Zero(t, p.PendingEarnings)
	require.Zero(t, p.PendingReferral)
	require.EqualValues(t, 10_000_000, p.TotalEarned)
}

func TestAddReferralBonusRejectsNonPositive(t *testing.T) {
	p := NewPlayer(testOwner, 0)
	require.Error(t, p.AddReferralBonus(0))
	require.Error(t, p.AddReferralBonus(-5))
	require.Zero(t, p.PendingReferral)
}

func TestAccrueAllSkipsInactive(t *testing.T) {
	p := NewPlayer(testOwner, 0)
	alive, err := NewBusiness(BusinessTobacco, 100_000_000, 100, 0, 1)
	require.NoError(t, err)
	dead, err := NewBusiness(BusinessFuneral, 250_000_000, 130, 0, 2)
	require.NoError(t, err)
	dead.Deactivate()
	require.NoError(t, p.Slots.Place(0, alive))
	require.NoError(t, p.Slots.Place(1, dead))

	accrued, err := p.accrueAll(SecondsPerDay)
	require.NoError(t, err)
	require.EqualValues(t, 1_000_000, accrued)
	require.Zero(t, dead.TotalEarned)
}

func TestIsDue(t *testing.T) {
	p := NewPlayer(testOwner, 0)
	require.False(t, p.IsDue(1_000_000), "no schedule means never due")
	p.ScheduleFirstAccrual(0)
	require.False(t, p.IsDue(p.NextAccrualAt-1))
	require.True(t, p.IsDue(p.NextAccrualAt))
}

func mustMulDiv(t *testing.T, a, b, div int64) int64 {
	t.Helper()
	v, err := mulDiv(a, b, div)
	if err != nil {
		t.Fatalf("mulDiv: %v", err)
	}
	return v
}

func TestClaimAllOverflowIsFatal(t *testing.T) {
	p := NewPlayer(testOwner, 0)
	p.TotalEarned = 1<<62 + 1<<61
	p.PendingEarnings = 1 << 62
	_, err := p.ClaimAll()
	require.True(t, errors.Is(err, ErrAmountOverflow))
}

// Summing the two pending balances is itself a checked add: yield plus a
// referral bonus near the int64 ceiling must fail, not wrap negative.
func TestClaimableAmountOverflow(t *testing.T) {
	p := NewPlayer(testOwner, 0)
	p.PendingEarnings = math.MaxInt64 - 1
	p.PendingReferral = 2
	_, err := p.ClaimableAmount()
	require.ErrorIs(t, err, ErrAmountOverflow)
	_, err = p.ClaimAll()
	require.ErrorIs(t, err, ErrAmountOverflow)
	require.EqualValues(t, math.MaxInt64-1, p.PendingEarnings, "failed claim must not drain balances")
}
