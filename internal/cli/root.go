// Package cli wires the creditmeter binary's subcommands with cobra, the
// way the rest of the pack's operator tooling exposes serve/migrate/admin
// actions as one multi-command binary instead of several.
package cli

import (
	"github.com/spf13/cobra"
)

func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "creditmeter",
		Short: "Transactional credit-metering ledger",
	}

	root.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newSweepCommand(),
		newTopUpCommand(),
		newSeedStaleCommand(),
	)
	return root
}

func Execute() error {
	return NewRootCommand().Execute()
}
