package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"creditmeter/internal/infrastructure/database/postgres"
	"creditmeter/internal/pkg/config"
)

// newSeedStaleCommand ports make_stale: create real PENDING reservations,
// then backdate them past the TTL in one bulk update, so the sweeper has
// something realistic to reverse without waiting out the TTL in real time.
func newSeedStaleCommand() *cobra.Command {
	var walletID int
	var count int
	var amount int
	var secondsAgo int

	cmd := &cobra.Command{
		Use:   "seed-stale",
		Short: "Create stale PENDING reservations for exercising the sweeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cfg := config.Load()

			store, err := postgres.NewStore(ctx, cfg.Database)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer store.Close()

			wallet, err := store.GetWallet(ctx, walletID)
			if err != nil {
				return fmt.Errorf("get wallet: %w", err)
			}

			needed := count * amount
			if wallet.Balance < needed {
				if _, err := store.TopUp(ctx, walletID, needed-wallet.Balance, "seed-stale-topup"); err != nil {
					return fmt.Errorf("top up before seeding: %w", err)
				}
			}

			var ids []int
			for i := 0; i < count; i++ {
				key := fmt.Sprintf("stale-%s", uuid.NewString()[:12])
				tx, err := store.Reserve(ctx, postgres.ReserveParams{
					WalletID:       walletID,
					Amount:         amount,
					IdempotencyKey: key,
					Note:           "seed-stale",
				})
				if err != nil {
					return fmt.Errorf("reserve seed tx %d: %w", i, err)
				}
				ids = append(ids, tx.ID)
			}

			staleTime := time.Now().Add(-time.Duration(secondsAgo) * time.Second)
			if err := store.BackdateTransactions(ctx, ids, staleTime); err != nil {
				return fmt.Errorf("backdate seed rows: %w", err)
			}

			fmt.Printf("seeded %d stale reservations on wallet %d\n", len(ids), walletID)
			return nil
		},
	}

	cmd.Flags().IntVar(&walletID, "wallet", 0, "wallet id to seed reservations on")
	cmd.Flags().IntVar(&count, "count", 20, "number of reservations to create")
	cmd.Flags().IntVar(&amount, "amount", 1, "credits per reservation")
	cmd.Flags().IntVar(&secondsAgo, "seconds-ago", 600, "how far in the past to backdate the reservations")
	cmd.MarkFlagRequired("wallet")
	return cmd
}
