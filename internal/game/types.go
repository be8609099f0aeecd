package game

type RegisterPlayerInput struct {
	Address        string
	IdempotencyKey string
}

type RegisterPlayerResult struct {
	EntryFeeLamports int64 `json:"entry_fee_lamports"`
	WalletLamports   int64 `json:"wallet_lamports"`
}

type UnlockSlotInput struct {
	Address        string
	SlotIndex      int
	IdempotencyKey string
}

type BuyTierSlotInput struct {
	Address        string
	SlotIndex      int
	TierIndex      int32
	IdempotencyKey string
}

type SlotResult struct {
	SlotIndex      int    `json:"slot_index"`
	Tier           string `json:"tier"`
	CostLamports   int64  `json:"cost_lamports"`
	WalletLamports int64  `json:"wallet_lamports"`
}

type CreateBusinessInput struct {
	Address        string
	SlotIndex      int
	TypeIndex      int32
	AmountLamports int64
	IdempotencyKey string
}

type CreateBusinessResult struct {
	NFTSerial      int64 `json:"nft_serial"`
	FeeLamports    int64 `json:"fee_lamports"`
	PoolLamports   int64 `json:"pool_lamports"`
	DailyRateBp    int64 `json:"daily_rate_bp"`
	NextAccrualAt  int64 `json:"next_accrual_at"`
	WalletLamports int64 `json:"wallet_lamports"`
}

type UpgradeBusinessInput struct {
	Address        string
	SlotIndex      int
	IdempotencyKey string
}

type UpgradeBusinessResult struct {
	NewLevel       int32 `json:"new_level"`
	CostLamports   int64 `json:"cost_lamports"`
	NewDailyRateBp int64 `json:"new_daily_rate_bp"`
	NewNFTSerial   int64 `json:"new_nft_serial"`
	WalletLamports int64 `json:"wallet_lamports"`
}

type SellBusinessInput struct {
	Address        string
	SlotIndex      int
	IdempotencyKey string
}

type SellBusinessResult struct {
	DaysHeld       int64 `json:"days_held"`
	BaseFeePct     int64 `json:"base_fee_pct"`
	TierDiscount   int64 `json:"tier_discount_pct"`
	FinalFeePct    int64 `json:"final_fee_pct"`
	FeeLamports    int64 `json:"fee_lamports"`
	PayoutLamports int64 `json:"payout_lamports"`
	WalletLamports int64 `json:"wallet_lamports"`
}

type UpdateEarningsInput struct {
	PlayerAddress string
}

type UpdateEarningsResult struct {
	AccruedLamports int64 `json:"accrued_lamports"`
	PendingLamports int64 `json:"pending_lamports"`
	NextAccrualAt   int64 `json:"next_accrual_at"`
}

type ClaimEarningsInput struct {
	Address        string
	IdempotencyKey string
}

type ClaimEarningsResult struct {
	GrossLamports  int64 `json:"gross_lamports"`
	FeeLamports    int64 `json:"fee_lamports"`
	PayoutLamports int64 `json:"payout_lamports"`
	WalletLamports int64 `json:"wallet_lamports"`
}

type CreditReferralInput struct {
	AuthorityAddress string
	PlayerAddress    string
	AmountLamports   int64
	IdempotencyKey   string
}

type TransferNFTInput struct {
	CallerAddress  string
	Serial         int64
	NewOwner       string
	IdempotencyKey string
}

type BurnNFTInput struct {
	CallerAddress  string
	Serial         int64
	IdempotencyKey string
}

type SyncOwnerInput struct {
	Serial         int64
	IdempotencyKey string
}

type SyncOwnerResult struct {
	PreviousOwner string `json:"previous_owner"`
	NewOwner      string `json:"new_owner"`
	NewSlotIndex  int    `json:"new_slot_index"`
}

type BusinessView struct {
	TypeIndex        int32  `json:"type_index"`
	TypeName         string `json:"type_name"`
	InvestedLamports int64  `json:"invested_lamports"`
	DailyRateBp      int64  `json:"daily_rate_bp"`
	Level            int32  `json:"level"`
	TotalEarned      int64  `json:"total_earned"`
	LastAccrualAt    int64  `json:"last_accrual_at"`
	CreatedAt        int64  `json:"created_at"`
	Active           bool   `json:"active"`
	NFTSerial        int64  `json:"nft_serial"`
}

type SlotView struct {
	Index    int           `json:"index"`
	Unlocked bool          `json:"unlocked"`
	Tier     string        `json:"tier"`
	Business *BusinessView `json:"business,omitempty"`
}

type Dashboard struct {
	Address         string     `json:"address"`
	WalletLamports  int64      `json:"wallet_lamports"`
	TotalInvested   int64      `json:"total_invested"`
	TotalEarned     int64      `json:"total_earned"`
	PendingEarnings int64      `json:"pending_earnings"`
	PendingReferral int64      `json:"pending_referral"`
	NextAccrualAt   int64      `json:"next_accrual_at"`
	EntryFeePaid    bool       `json:"entry_fee_paid"`
	Slots           []SlotView `json:"slots"`
}

type StatsView struct {
	TotalPlayers      int64 `json:"total_players"`
	TotalInvested     int64 `json:"total_invested"`
	TotalWithdrawn    int64 `json:"total_withdrawn"`
	TotalReferralPaid int64 `json:"total_referral_paid"`
	TreasuryCollected int64 `json:"treasury_collected"`
	TotalBusinesses   int64 `json:"total_businesses"`
	NFTsMinted        int64 `json:"nfts_minted"`
	NFTsBurned        int64 `json:"nfts_burned"`
	Paused            bool  `json:"paused"`
	PoolLamports      int64 `json:"pool_lamports"`
	FeeWalletLamports int64 `json:"fee_wallet_lamports"`
}

type LeaderboardRow struct {
	Rank        int64  `json:"rank"`
	Address     string `json:"address"`
	TotalEarned int64  `json:"total_earned"`
	Businesses  int64  `json:"businesses"`
}

type RateView struct {
	TypeIndex   int32  `json:"type_index"`
	Name        string `json:"name"`
	DailyRateBp int64  `json:"daily_rate_bp"`
	MinDeposit  int64  `json:"min_deposit"`
}
