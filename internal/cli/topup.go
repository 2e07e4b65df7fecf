package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"creditmeter/internal/infrastructure/database/postgres"
	"creditmeter/internal/pkg/config"
)

func newTopUpCommand() *cobra.Command {
	var walletID int
	var amount int
	var note string

	cmd := &cobra.Command{
		Use:   "topup",
		Short: "Credit a wallet administratively",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cfg := config.Load()

			store, err := postgres.NewStore(ctx, cfg.Database)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer store.Close()

			tx, err := store.TopUp(ctx, walletID, amount, note)
			if err != nil {
				return fmt.Errorf("top up: %w", err)
			}
			fmt.Printf("credited wallet %d: +%d (tx %d)\n", walletID, amount, tx.ID)
			return nil
		},
	}

	cmd.Flags().IntVar(&walletID, "wallet", 0, "wallet id to credit")
	cmd.Flags().IntVar(&amount, "amount", 0, "credits to add")
	cmd.Flags().StringVar(&note, "note", "cli-topup", "note to attach to the credit row")
	cmd.MarkFlagRequired("wallet")
	cmd.MarkFlagRequired("amount")
	return cmd
}
