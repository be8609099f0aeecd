package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"omerta/internal/game"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func promptRequired(label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

func promptAddress(label string) (string, error) {
	for {
		addr, err := promptRequired(label)
		if err != nil {
			return "", err
		}
		if err := game.ValidateAddress(addr); err != nil {
			printWarn(err.Error())
			continue
		}
		return addr, nil
	}
}

func promptInt64(label string, min int64) (int64, error) {
	for {
		text, err := promptRequired(label)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			printWarn("Enter a whole number.")
			continue
		}
		if v < min {
			printWarn(fmt.Sprintf("Value must be >= %d", min))
			continue
		}
		return v, nil
	}
}

func promptFloat(label string, min float64) (float64, error) {
	for {
		text, err := promptRequired(label)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			printWarn("Enter a valid number.")
			continue
		}
		if v <= min {
			printWarn(fmt.Sprintf("Value must be > %.4f", min))
			continue
		}
		return v, nil
	}
}

// solToLamports converts user-entered SOL into lamports through decimal so
// a value like 0.1 does not pick up float dust on the way in.
func solToLamports(sol float64) int64 {
	return decimal.NewFromFloat(sol).
		Mul(decimal.NewFromInt(game.LamportsPerSol)).
		Truncate(0).
		IntPart()
}

func formatSol(lamports int64) string {
	return decimal.NewFromInt(lamports).
		Div(decimal.NewFromInt(game.LamportsPerSol)).
		StringFixed(4) + " SOL"
}

func formatTimestamp(unix int64) string {
	if unix == 0 {
		return "-"
	}
	return time.Unix(unix, 0).Local().Format("2006-01-02 15:04:05")
}

func decodeInto[T any](in any) (T, error) {
	var out T
	raw, err := json.Marshal(in)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}

func renderRegistered(raw map[string]any) error {
	r, err := decodeInto[game.RegisterPlayerResult](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== WELCOME TO THE FAMILY ==")
	fmt.Printf("Entry fee paid: %s\n", formatSol(r.EntryFeeLamports))
	fmt.Printf("Wallet balance: %s\n", formatSol(r.WalletLamports))
	printInfo("Open your first business with `omr biz open`.")
	return nil
}

func renderDashboard(raw map[string]any) error {
	d, err := decodeInto[game.Dashboard](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== YOUR EMPIRE ==")
	fmt.Printf("Address:   %s\n", d.Address)
	fmt.Printf("Wallet:    %s\n", formatSol(d.WalletLamports))
	fmt.Printf("Invested:  %s\n", formatSol(d.TotalInvested))
	fmt.Printf("Earned:    %s\n", formatSol(d.TotalEarned))
	fmt.Printf("Pending:   %s  (referral %s)\n", formatSol(d.PendingEarnings), formatSol(d.PendingReferral))
	fmt.Printf("Next accrual: %s\n", formatTimestamp(d.NextAccrualAt))

	accent.Println("\nSLOTS")
	for _, slot := range d.Slots {
		state := "locked"
		if slot.Unlocked {
			state = "empty"
		}
		if slot.Business == nil {
			fmt.Printf("  [%d] %-9s %s\n", slot.Index, slot.Tier, state)
			continue
		}
		b := slot.Business
		line := fmt.Sprintf("  [%d] %-9s %s  L%d  %s invested  %d bp/day  earned %s",
			slot.Index, slot.Tier, b.TypeName, b.Level,
			formatSol(b.InvestedLamports), b.DailyRateBp, formatSol(b.TotalEarned))
		if !b.Active {
			danger.Println(line + "  [inactive]")
			continue
		}
		fmt.Println(line)
	}
	return nil
}

func renderRates(raw map[string]any) error {
	type payload struct {
		Rates []game.RateView `json:"rates"`
	}
	p, err := decodeInto[payload](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== BUSINESS CATALOG ==")
	fmt.Printf("%-4s %-16s %-12s %s\n", "IDX", "NAME", "RATE/DAY", "MIN DEPOSIT")
	for _, r := range p.Rates {
		fmt.Printf("%-4d %-16s %-12s %s\n",
			r.TypeIndex, r.Name,
			fmt.Sprintf("%d bp", r.DailyRateBp),
			formatSol(r.MinDeposit))
	}
	return nil
}

func renderStats(raw map[string]any) error {
	s, err := decodeInto[game.StatsView](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== GLOBAL STATS ==")
	if s.Paused {
		danger.Println("GAME PAUSED")
	}
	fmt.Printf("Players:        %d\n", s.TotalPlayers)
	fmt.Printf("Businesses:     %d\n", s.TotalBusinesses)
	fmt.Printf("Invested:       %s\n", formatSol(s.TotalInvested))
	fmt.Printf("Withdrawn:      %s\n", formatSol(s.TotalWithdrawn))
	fmt.Printf("Referrals paid: %s\n", formatSol(s.TotalReferralPaid))
	fmt.Printf("Treasury fees:  %s\n", formatSol(s.TreasuryCollected))
	fmt.Printf("Pool:           %s\n", formatSol(s.PoolLamports))
	fmt.Printf("Fee wallet:     %s\n", formatSol(s.FeeWalletLamports))
	fmt.Printf("NFTs:           %d minted / %d burned\n", s.NFTsMinted, s.NFTsBurned)
	return nil
}

func renderLeaderboard(raw map[string]any) error {
	type payload struct {
		Leaderboard []game.LeaderboardRow `json:"leaderboard"`
	}
	p, err := decodeInto[payload](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== CAPO LIST ==")
	fmt.Printf("%-5s %-46s %-14s %s\n", "RANK", "ADDRESS", "EARNED", "BUSINESSES")
	for _, row := range p.Leaderboard {
		fmt.Printf("%-5d %-46s %-14s %d\n", row.Rank, row.Address, formatSol(row.TotalEarned), row.Businesses)
	}
	return nil
}

func renderSlot(raw map[string]any) error {
	r, err := decodeInto[game.SlotResult](raw)
	if err != nil {
		return err
	}
	printSuccess(fmt.Sprintf("Slot %d ready (%s tier). Cost %s, wallet %s.",
		r.SlotIndex, r.Tier, formatSol(r.CostLamports), formatSol(r.WalletLamports)))
	return nil
}

func renderBusinessOpened(raw map[string]any) error {
	r, err := decodeInto[game.CreateBusinessResult](raw)
	if err != nil {
		return err
	}
	printSuccess("Business opened.")
	fmt.Printf("NFT serial:   %d\n", r.NFTSerial)
	fmt.Printf("Rate:         %d bp/day\n", r.DailyRateBp)
	fmt.Printf("Fee taken:    %s\n", formatSol(r.FeeLamports))
	fmt.Printf("To pool:      %s\n", formatSol(r.PoolLamports))
	fmt.Printf("Next accrual: %s\n", formatTimestamp(r.NextAccrualAt))
	fmt.Printf("Wallet:       %s\n", formatSol(r.WalletLamports))
	return nil
}

func renderBusinessUpgraded(raw map[string]any) error {
	r, err := decodeInto[game.UpgradeBusinessResult](raw)
	if err != nil {
		return err
	}
	printSuccess(fmt.Sprintf("Upgraded to level %d for %s. New rate %d bp/day, NFT serial %d.",
		r.NewLevel, formatSol(r.CostLamports), r.NewDailyRateBp, r.NewNFTSerial))
	return nil
}

func renderBusinessSold(raw map[string]any) error {
	r, err := decodeInto[game.SellBusinessResult](raw)
	if err != nil {
		return err
	}
	printSuccess("Business sold.")
	fmt.Printf("Held:   %d day(s)\n", r.DaysHeld)
	fmt.Printf("Fee:    %d%% base - %d%% tier = %d%% (%s)\n",
		r.BaseFeePct, r.TierDiscount, r.FinalFeePct, formatSol(r.FeeLamports))
	fmt.Printf("Payout: %s\n", formatSol(r.PayoutLamports))
	fmt.Printf("Wallet: %s\n", formatSol(r.WalletLamports))
	return nil
}

func renderEarningsUpdate(raw map[string]any) error {
	r, err := decodeInto[game.UpdateEarningsResult](raw)
	if err != nil {
		return err
	}
	printSuccess(fmt.Sprintf("Accrued %s. Pending now %s, next accrual %s.",
		formatSol(r.AccruedLamports), formatSol(r.PendingLamports), formatTimestamp(r.NextAccrualAt)))
	return nil
}

func renderClaim(raw map[string]any) error {
	r, err := decodeInto[game.ClaimEarningsResult](raw)
	if err != nil {
		return err
	}
	printSuccess("Claim settled.")
	fmt.Printf("Gross:  %s\n", formatSol(r.GrossLamports))
	fmt.Printf("Fee:    %s\n", formatSol(r.FeeLamports))
	fmt.Printf("Payout: %s\n", formatSol(r.PayoutLamports))
	fmt.Printf("Wallet: %s\n", formatSol(r.WalletLamports))
	return nil
}

func renderNFT(raw map[string]any) error {
	r, err := decodeInto[game.NFTView](raw)
	if err != nil {
		return err
	}
	accent.Printf("\n== NFT #%d ==\n", r.Serial)
	fmt.Printf("Business: %s (level %d)\n", r.BusinessName, r.Level)
	fmt.Printf("Owner:    %s\n", r.Owner)
	if r.Burned {
		danger.Println("Status:   burned")
	} else {
		fmt.Println("Status:   alive")
	}
	return nil
}

func renderOwnerSync(raw map[string]any) error {
	r, err := decodeInto[game.SyncOwnerResult](raw)
	if err != nil {
		return err
	}
	printSuccess(fmt.Sprintf("Business moved from %s to %s (slot %d).",
		r.PreviousOwner, r.NewOwner, r.NewSlotIndex))
	return nil
}
