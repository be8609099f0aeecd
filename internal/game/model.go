package game

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	LamportsPerSol = int64(1_000_000_000)

	SecondsPerDay = int64(86_400)
	BasisPoints   = int64(10_000)

	// Slot layout is fixed at player creation and never grows.
	MaxSlots  = 9
	BaseSlots = 3

	MaxLevel = int32(10)

	// Sanity bound on any business rate: 10% per day.
	MaxDailyRateBp = int64(1_000)

	StarterBalanceLamports = 20 * LamportsPerSol

	SlotUnlockFeeLamports = int64(50_000_000)

	ClaimFeeLamports = int64(5_000_000)

	// Accrual scheduling: base interval plus a per-owner offset so player
	// cranks do not cluster on the same timestamp.
	AccrualBaseIntervalSecs  = int64(3_600)
	AccrualOffsetWindowSecs  = int64(900)
	MinUpdateIntervalSecs    = int64(300)
	DefaultMaxBusinesses     = 9
	DefaultTreasuryFeeBp     = int64(2_000)
	DefaultEntryFeeBase      = int64(100_000_000)
	DefaultEntryFeeIncrement = int64(50_000_000)
	DefaultEntryFeeMilestone = int64(1_000)
	DefaultEntryFeeCap       = int64(500_000_000)
)

var (
	ErrGamePaused           = errors.New("game is paused")
	ErrInvalidBusinessType  = errors.New("invalid business type index")
	ErrDepositTooSmall      = errors.New("deposit below minimum for business type")
	ErrSlotOutOfRange       = errors.New("slot index out of range")
	ErrSlotLocked           = errors.New("slot is locked")
	ErrSlotOccupied         = errors.New("slot already holds a business")
	ErrSlotEmpty            = errors.New("slot holds no business")
	ErrSlotUnlocked         = errors.New("slot is already unlocked")
	ErrInvalidTier          = errors.New("invalid slot tier")
	ErrMaxLevel             = errors.New("business already at max level")
	ErrInvalidLevel         = errors.New("upgrade level out of range")
	ErrBusinessInactive     = errors.New("business is inactive")
	ErrRateTooHigh          = errors.New("daily rate exceeds sanity bound")
	ErrMaxBusinesses        = errors.New("player business limit reached")
	ErrPlayerExists         = errors.New("player already registered")
	ErrPlayerNotFound       = errors.New("player not registered")
	ErrEntryFeeUnpaid       = errors.New("entry fee not paid")
	ErrNothingToClaim       = errors.New("nothing to claim")
	ErrClaimBelowFee        = errors.New("claimable amount does not cover claim fee")
	ErrNoFreeSlot           = errors.New("no free slot for transferred business")
	ErrNFTNotFound          = errors.New("nft not found")
	ErrNFTBurned            = errors.New("nft already burned")
	ErrNFTAlive             = errors.New("nft supply is not zero")
	ErrOwnerInSync          = errors.New("recorded owner matches nft holder")
	ErrUpdateThrottled      = errors.New("earnings update called too soon")
	ErrAmountOverflow       = errors.New("amount overflow")
	ErrInsufficientFunds    = errors.New("insufficient wallet balance")
	ErrPoolUnderfunded      = errors.New("treasury pool balance below payout")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrDuplicateIdempotency = errors.New("duplicate idempotency key")
	ErrTxConflict           = errors.New("transaction conflict, retry")
)

// BusinessType is a closed enumeration; the index keys the rate, minimum
// deposit, and NFT name tables. Unknown indices are rejected, never defaulted.
type BusinessType int32

const (
	BusinessTobacco BusinessType = iota
	BusinessFuneral
	BusinessWorkshop
	BusinessRestaurant
	BusinessClub
	BusinessCharity

	businessTypeCount
)

type businessProfile struct {
	Name        string
	DailyRateBp int64
	MinDeposit  int64
}

var businessCatalog = [businessTypeCount]businessProfile{
	BusinessTobacco:    {Name: "Tobacco Kiosk", DailyRateBp: 100, MinDeposit: 100_000_000},
	BusinessFuneral:    {Name: "Funeral Parlor", DailyRateBp: 130, MinDeposit: 250_000_000},
	BusinessWorkshop:   {Name: "Chop Shop", DailyRateBp: 170, MinDeposit: 500_000_000},
	BusinessRestaurant: {Name: "Trattoria", DailyRateBp: 220, MinDeposit: 1_000_000_000},
	BusinessClub:       {Name: "Night Club", DailyRateBp: 280, MinDeposit: 2_500_000_000},
	BusinessCharity:    {Name: "Charity Fund", DailyRateBp: 350, MinDeposit: 5_000_000_000},
}

func ParseBusinessType(index int32) (BusinessType, error) {
	if index < 0 || index >= int32(businessTypeCount) {
		return 0, fmt.Errorf("%w: %d", ErrInvalidBusinessType, index)
	}
	return BusinessType(index), nil
}

func (t BusinessType) Valid() bool {
	return t >= 0 && t < businessTypeCount
}

func (t BusinessType) Name() string {
	if !t.Valid() {
		return "unknown"
	}
	return businessCatalog[t].Name
}

func (t BusinessType) DefaultDailyRateBp() int64 {
	if !t.Valid() {
		return 0
	}
	return businessCatalog[t].DailyRateBp
}

func (t BusinessType) DefaultMinDeposit() int64 {
	if !t.Valid() {
		return 0
	}
	return businessCatalog[t].MinDeposit
}

// Upgrade tables are indexed by the target level, 1-based. An out-of-range
// target is a hard error, never clamped.
var upgradeCostPct = [MaxLevel + 1]int64{
	0, 50, 75, 100, 150, 225, 340, 500, 750, 1_100, 1_600,
}

var upgradeYieldBonusBp = [MaxLevel + 1]int64{
	0, 10, 12, 15, 18, 22, 27, 33, 40, 48, 57,
}

func UpgradeCost(t BusinessType, minDeposit int64, targetLevel int32) (int64, error) {
	if targetLevel < 1 || targetLevel > MaxLevel {
		return 0, fmt.Errorf("%w: %d", ErrInvalidLevel, targetLevel)
	}
	if !t.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidBusinessType, t)
	}
	return mulDiv(minDeposit, upgradeCostPct[targetLevel], 100)
}

func UpgradeYieldBonusBp(targetLevel int32) (int64, error) {
	if targetLevel < 1 || targetLevel > MaxLevel {
		return 0, fmt.Errorf("%w: %d", ErrInvalidLevel, targetLevel)
	}
	return upgradeYieldBonusBp[targetLevel], nil
}

// EntryFee computes the fee owed by the next registrant: the base fee plus
// one increment per completed player milestone, capped.
func EntryFee(base, increment, milestone, feeCap, totalPlayers int64) int64 {
	if milestone <= 0 {
		return base
	}
	fee := base + increment*(totalPlayers/milestone)
	if fee > feeCap {
		return feeCap
	}
	return fee
}

var addressRE = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)

// ValidateAddress accepts base58-shaped wallet addresses. Key custody and
// signature checks live outside this service; identity is an opaque string.
func ValidateAddress(addr string) error {
	if !addressRE.MatchString(strings.TrimSpace(addr)) {
		return fmt.Errorf("address must be base58, 32-44 chars")
	}
	return nil
}

func SolString(lamports int64) string {
	whole := lamports / LamportsPerSol
	frac := lamports % LamportsPerSol
	if frac < 0 {
		frac = -frac
	}
	return fmt.Sprintf("%d.%09d", whole, frac)
}
