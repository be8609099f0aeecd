package game

// GameState is the single global counters record, passed explicitly into
// every operation that touches it. Counters move only through the checked
// methods below; cumulative totals never decrease.
type GameState struct {
	TotalPlayers      int64
	TotalInvested     int64
	TotalWithdrawn    int64
	TotalReferralPaid int64
	TreasuryCollected int64
	TotalBusinesses   int64
	NFTsMinted        int64
	NFTsBurned        int64
	NextSerial        int64
	Paused            bool
}

func (g *GameState) RecordPlayer() error {
	next, err := checkedAdd(g.TotalPlayers, 1)
	if err != nil {
		return err
	}
	g.TotalPlayers = next
	return nil
}

func (g *GameState) RecordInvestment(amount int64) error {
	next, err := checkedAdd(g.TotalInvested, amount)
	if err != nil {
		return err
	}
	g.TotalInvested = next
	return nil
}

func (g *GameState) RecordWithdrawal(amount int64) error {
	next, err := checkedAdd(g.TotalWithdrawn, amount)
	if err != nil {
		return err
	}
	g.TotalWithdrawn = next
	return nil
}

func (g *GameState) RecordTreasuryFee(amount int64) error {
	next, err := checkedAdd(g.TreasuryCollected, amount)
	if err != nil {
		return err
	}
	g.TreasuryCollected = next
	return nil
}

func (g *GameState) RecordReferralPaid(amount int64) error {
	next, err := checkedAdd(g.TotalReferralPaid, amount)
	if err != nil {
		return err
	}
	g.TotalReferralPaid = next
	return nil
}

func (g *GameState) RecordBusinessOpened() error {
	next, err := checkedAdd(g.TotalBusinesses, 1)
	if err != nil {
		return err
	}
	g.TotalBusinesses = next
	return nil
}

// NextNFTSerial hands out the monotonic serial for the next mint and counts
// it against the minted total.
func (g *GameState) NextNFTSerial() (int64, error) {
	serial, err := checkedAdd(g.NextSerial, 1)
	if err != nil {
		return 0, err
	}
	minted, err := checkedAdd(g.NFTsMinted, 1)
	if err != nil {
		return 0, err
	}
	g.NextSerial = serial
	g.NFTsMinted = minted
	return serial, nil
}

func (g *GameState) RecordBurn() error {
	next, err := checkedAdd(g.NFTsBurned, 1)
	if err != nil {
		return err
	}
	g.NFTsBurned = next
	return nil
}

// GameConfig is the admin-owned tunable surface. It is read-only on player
// paths and mutated only through authority-gated operations.
type GameConfig struct {
	TreasuryFeeBp     int64
	ClaimFeeLamports  int64
	EntryFeeBase      int64
	EntryFeeIncrement int64
	EntryFeeMilestone int64
	EntryFeeCap       int64
	MaxBusinesses     int
}

func DefaultGameConfig() GameConfig {
	return GameConfig{
		TreasuryFeeBp:     DefaultTreasuryFeeBp,
		ClaimFeeLamports:  ClaimFeeLamports,
		EntryFeeBase:      DefaultEntryFeeBase,
		EntryFeeIncrement: DefaultEntryFeeIncrement,
		EntryFeeMilestone: DefaultEntryFeeMilestone,
		EntryFeeCap:       DefaultEntryFeeCap,
		MaxBusinesses:     DefaultMaxBusinesses,
	}
}

// SplitDeposit divides a deposit into the fee-wallet cut and the pool cut.
// The two always sum to the deposit exactly; the pool takes the remainder.
func SplitDeposit(amount, feeBp int64) (fee, pool int64, err error) {
	fee, err = mulDiv(amount, feeBp, BasisPoints)
	if err != nil {
		return 0, 0, err
	}
	return fee, amount - fee, nil
}
