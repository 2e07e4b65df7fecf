package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"creditmeter/internal/infrastructure/database/postgres"
	"creditmeter/internal/infrastructure/messaging"
	"creditmeter/internal/infrastructure/messaging/kafka"
	"creditmeter/internal/pkg/config"
	"creditmeter/internal/scheduler"
)

func newSweepCommand() *cobra.Command {
	sweep := &cobra.Command{
		Use:   "sweep",
		Short: "Stale-reservation sweep operations",
	}
	sweep.AddCommand(newSweepRunCommand())
	sweep.AddCommand(newSweepEmitTickCommand())
	return sweep
}

func newSweepRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one sweep pass to completion and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cfg := config.Load()

			store, err := postgres.NewStore(ctx, cfg.Database)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer store.Close()

			sweeper := scheduler.NewSweeper(store, cfg.Ledger.ReservationTTL, cfg.Ledger.SweepChunkSize, cfg.Ledger.SweepWallClockCap)
			if err := sweeper.RunOnce(ctx); err != nil {
				return fmt.Errorf("sweep run: %w", err)
			}
			fmt.Println("sweep run complete")
			return nil
		},
	}
}

// newSweepEmitTickCommand publishes one tick onto the sweep-ticks topic —
// for deployments where an external scheduler (not this process) owns the
// sweep cadence and drives it via the Kafka-backed consumer instead of the
// in-process ticker.
func newSweepEmitTickCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "emit-tick",
		Short: "Publish one sweep tick onto the Kafka sweep-ticks topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			kafkaCfg := kafka.NewConfigFromEnv()
			publisher, err := messaging.NewSweepTickPublisher(kafkaCfg)
			if err != nil {
				return fmt.Errorf("open sweep tick publisher: %w", err)
			}
			defer publisher.Close()

			if err := publisher.EmitTick(); err != nil {
				return fmt.Errorf("emit tick: %w", err)
			}
			fmt.Println("sweep tick emitted")
			return nil
		},
	}
}
