package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	cl "omerta/internal/cli"
	"omerta/internal/config"
	"omerta/internal/game"
	"omerta/internal/syncq"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	cfg := config.LoadCLIFromEnv()
	apiBase := cfg.APIBaseURL

	root := &cobra.Command{
		Use:          "omr",
		Short:        "Omerta CLI game client",
		SilenceUsage: true,
	}

	root.AddCommand(
		newLoginCmd(&apiBase),
		newLogoutCmd(),
		newRegisterCmd(&apiBase),
		newDashCmd(&apiBase),
		newRatesCmd(&apiBase),
		newStatsCmd(&apiBase),
		newLeaderboardCmd(&apiBase),
		newSlotCmd(&apiBase),
		newBizCmd(&apiBase),
		newEarnCmd(&apiBase),
		newNFTCmd(&apiBase),
		newSyncCmd(&apiBase),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(apiBase *string) *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(*apiBase), "/"))
}

func requireSession() (cl.Session, error) {
	return cl.LoadSession()
}

func cmdContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), 30*time.Second)
}

func newLoginCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Get a token for a wallet address",
		RunE: func(cmd *cobra.Command, args []string) error {
			address, err := promptAddress("Wallet address")
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			client := newClient(apiBase)
			out, err := client.IssueToken(ctx, address)
			if err != nil {
				return err
			}
			token, _ := out["token"].(string)
			expires, _ := out["expires_at"].(float64)
			if strings.TrimSpace(token) == "" {
				return fmt.Errorf("no token in response")
			}
			if err := cl.SaveSession(cl.Session{
				Token:     token,
				Address:   address,
				ExpiresAt: int64(expires),
			}); err != nil {
				return err
			}
			printSuccess("Login successful. Session saved.")
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear local session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cl.ClearSession(); err != nil {
				return err
			}
			printSuccess("Logged out.")
			return nil
		},
	}
}

func newRegisterCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Join the game and pay the entry fee",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(apiBase).Register(ctx, session.Token, uuid.NewString())
			if err != nil {
				return err
			}
			return renderRegistered(out)
		},
	}
}

func newDashCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "dash",
		Short: "Show your empire",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(apiBase).Dashboard(ctx, session.Token)
			if err != nil {
				return err
			}
			return renderDashboard(out)
		},
	}
}

func newRatesCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "rates",
		Short: "List business types, rates, and minimum deposits",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(apiBase).Rates(ctx)
			if err != nil {
				return err
			}
			return renderRates(out)
		},
	}
}

func newStatsCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show global game stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(apiBase).Stats(ctx)
			if err != nil {
				return err
			}
			return renderStats(out)
		},
	}
}

func newLeaderboardCmd(apiBase *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Show the earnings leaderboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(apiBase).Leaderboard(ctx, limit)
			if err != nil {
				return err
			}
			return renderLeaderboard(out)
		},
	}
	cmd.Flags().Int("limit", 25, "number of rows")
	return cmd
}

func newSlotCmd(apiBase *string) *cobra.Command {
	slot := &cobra.Command{
		Use:   "slot",
		Short: "Manage business slots",
	}
	slot.AddCommand(&cobra.Command{
		Use:   "unlock <index>",
		Short: "Unlock a basic slot for the flat fee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid slot index %q", args[0])
			}
			session, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(apiBase).UnlockSlot(ctx, session.Token, index, uuid.NewString())
			if err != nil {
				return err
			}
			return renderSlot(out)
		},
	})
	tierCmd := &cobra.Command{
		Use:   "tier <index>",
		Short: "Buy a premium slot at a tier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid slot index %q", args[0])
			}
			tier, _ := cmd.Flags().GetInt32("tier")
			session, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(apiBase).BuyTierSlot(ctx, session.Token, index, tier, uuid.NewString())
			if err != nil {
				return err
			}
			return renderSlot(out)
		},
	}
	tierCmd.Flags().Int32("tier", 1, "tier index: 1=premium 2=vip 3=legendary")
	slot.AddCommand(tierCmd)
	return slot
}

func newBizCmd(apiBase *string) *cobra.Command {
	biz := &cobra.Command{
		Use:   "biz",
		Short: "Open, upgrade, and sell businesses",
	}

	openCmd := &cobra.Command{
		Use:   "open",
		Short: "Open a business in a free slot",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := requireSession()
			if err != nil {
				return err
			}
			slotIndex, err := promptInt64("Slot index", 0)
			if err != nil {
				return err
			}
			typeIndex, err := promptInt64("Business type index (see omr rates)", 0)
			if err != nil {
				return err
			}
			amountSol, err := promptFloat("Deposit in SOL", 0)
			if err != nil {
				return err
			}
			amount := solToLamports(amountSol)

			ctx, cancel := cmdContext(cmd)
			defer cancel()
			idem := uuid.NewString()
			out, err := newClient(apiBase).CreateBusiness(ctx, session.Token, int(slotIndex), int32(typeIndex), amount, idem)
			if err != nil {
				if isNetworkError(err) {
					if qErr := syncq.Push(syncq.OpenBusiness(int(slotIndex), int32(typeIndex), amount, idem)); qErr == nil {
						printWarn("API unreachable. Command queued; run `omr sync` when back online.")
						return nil
					}
				}
				return err
			}
			return renderBusinessOpened(out)
		},
	}
	biz.AddCommand(openCmd)

	biz.AddCommand(&cobra.Command{
		Use:   "upgrade <slot>",
		Short: "Upgrade the business in a slot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slotIndex, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid slot index %q", args[0])
			}
			session, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(apiBase).UpgradeBusiness(ctx, session.Token, slotIndex, uuid.NewString())
			if err != nil {
				return err
			}
			return renderBusinessUpgraded(out)
		},
	})

	biz.AddCommand(&cobra.Command{
		Use:   "sell <slot>",
		Short: "Sell the business in a slot back to the pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slotIndex, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid slot index %q", args[0])
			}
			session, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(apiBase).SellBusiness(ctx, session.Token, slotIndex, uuid.NewString())
			if err != nil {
				return err
			}
			return renderBusinessSold(out)
		},
	})
	return biz
}

func newEarnCmd(apiBase *string) *cobra.Command {
	earn := &cobra.Command{
		Use:   "earn",
		Short: "Accrue and claim earnings",
	}
	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "Crank accrual for yourself or another player",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := requireSession()
			if err != nil {
				return err
			}
			target, _ := cmd.Flags().GetString("address")
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(apiBase).UpdateEarnings(ctx, session.Token, strings.TrimSpace(target))
			if err != nil {
				return err
			}
			return renderEarningsUpdate(out)
		},
	}
	updateCmd.Flags().String("address", "", "player to crank (defaults to you)")
	earn.AddCommand(updateCmd)

	earn.AddCommand(&cobra.Command{
		Use:   "claim",
		Short: "Claim pending earnings and referral bonuses",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(apiBase).ClaimEarnings(ctx, session.Token, uuid.NewString())
			if err != nil {
				return err
			}
			return renderClaim(out)
		},
	})
	return earn
}

func newNFTCmd(apiBase *string) *cobra.Command {
	nft := &cobra.Command{
		Use:   "nft",
		Short: "Inspect and move position NFTs",
	}
	nft.AddCommand(&cobra.Command{
		Use:   "show <serial>",
		Short: "Show an NFT record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			serial, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid serial %q", args[0])
			}
			session, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(apiBase).NFTDetail(ctx, session.Token, serial)
			if err != nil {
				return err
			}
			return renderNFT(out)
		},
	})
	nft.AddCommand(&cobra.Command{
		Use:   "transfer <serial>",
		Short: "Transfer an NFT to another wallet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			serial, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid serial %q", args[0])
			}
			newOwner, err := promptAddress("New owner address")
			if err != nil {
				return err
			}
			session, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			if _, err := newClient(apiBase).TransferNFT(ctx, session.Token, serial, newOwner, uuid.NewString()); err != nil {
				return err
			}
			printSuccess("Transfer recorded. Run `omr nft sync` to move the business.")
			return nil
		},
	})
	nft.AddCommand(&cobra.Command{
		Use:   "burn <serial>",
		Short: "Burn an NFT you hold (forfeits the position)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			serial, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid serial %q", args[0])
			}
			session, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			if _, err := newClient(apiBase).BurnNFT(ctx, session.Token, serial, uuid.NewString()); err != nil {
				return err
			}
			printWarn("NFT burned. The position stops earning and its principal stays in the pool.")
			return nil
		},
	})
	nft.AddCommand(&cobra.Command{
		Use:   "sync <serial>",
		Short: "Reconcile a transferred NFT with its business",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			serial, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid serial %q", args[0])
			}
			session, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(apiBase).SyncOwner(ctx, session.Token, serial, uuid.NewString())
			if err != nil {
				return err
			}
			return renderOwnerSync(out)
		},
	})
	return nft
}

func newSyncCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay commands queued while offline",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := requireSession()
			if err != nil {
				return err
			}
			commands, err := syncq.Load()
			if err != nil {
				return err
			}
			if len(commands) == 0 {
				printInfo("Queue is empty.")
				return nil
			}
			client := newClient(apiBase)
			var remaining []syncq.Command
			replayed := 0
			for _, queued := range commands {
				ctx, cancel := cmdContext(cmd)
				_, err := client.Do(ctx, queued.Method, queued.Path, session.Token, queued.Body, queued.IdempotencyKey)
				cancel()
				if err != nil {
					// Duplicate key means the command already landed.
					if strings.Contains(err.Error(), game.ErrDuplicateIdempotency.Error()) {
						replayed++
						continue
					}
					printWarn(fmt.Sprintf("replay %s %s failed: %v", queued.Method, queued.Path, err))
					remaining = append(remaining, queued)
					continue
				}
				replayed++
			}
			if err := syncq.Save(remaining); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Replayed %d command(s); %d left in queue.", replayed, len(remaining)))
			return nil
		},
	}
}

func isNetworkError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "deadline exceeded")
}
