package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"creditmeter/internal/pkg/components"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the sweep scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := components.New()
			if err != nil {
				return fmt.Errorf("initialize application: %w", err)
			}
			return container.Start()
		},
	}
}
