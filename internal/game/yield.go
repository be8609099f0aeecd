package game

import (
	"fmt"
	"math/big"
)

// DailyEarnings returns floor(invested * rateBp / 10_000), widened through
// math/big so the product cannot wrap for any plausible invested amount.
func DailyEarnings(invested, rateBp int64) (int64, error) {
	if invested < 0 || rateBp < 0 {
		return 0, fmt.Errorf("%w: negative input", ErrAmountOverflow)
	}
	return mulDiv(invested, rateBp, BasisPoints)
}

// PendingSince returns the yield accrued between lastAccrual and now.
// Elapsed time at or before the last accrual, or an inactive business,
// yields zero. Division floors: fractional sub-day remainders are dropped
// rather than carried, so repeated updates lose bounded dust instead of
// drifting.
func PendingSince(lastAccrual, now, invested, rateBp int64, active bool) (int64, error) {
	if !active || now <= lastAccrual {
		return 0, nil
	}
	daily, err := DailyEarnings(invested, rateBp)
	if err != nil {
		return 0, err
	}
	return mulDiv(daily, now-lastAccrual, SecondsPerDay)
}

// mulDiv computes floor(a*b/div) without intermediate overflow.
func mulDiv(a, b, div int64) (int64, error) {
	if div <= 0 {
		return 0, fmt.Errorf("divisor must be > 0")
	}
	v := new(big.Int).Mul(big.NewInt(a), big.NewInt(b))
	v.Quo(v, big.NewInt(div))
	if !v.IsInt64() {
		return 0, ErrAmountOverflow
	}
	return v.Int64(), nil
}

// checkedAdd is the only way owed-value counters grow. Overflow is fatal,
// never saturating: silently capping a pending balance would under-credit.
func checkedAdd(a, b int64) (int64, error) {
	sum := a + b
	if b > 0 && sum < a {
		return 0, ErrAmountOverflow
	}
	if b < 0 && sum > a {
		return 0, ErrAmountOverflow
	}
	return sum, nil
}
