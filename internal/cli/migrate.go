package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"creditmeter/internal/infrastructure/database/postgres"
	"creditmeter/internal/pkg/config"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if err := postgres.Migrate(cfg.Database); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Println("migrations applied")
			return nil
		},
	}
}
