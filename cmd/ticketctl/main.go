package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ticketctl",
		Short:         "Service desk administration",
		Long:          `ticketctl runs maintenance tasks against the configured ticket store: legacy comment migration, KPI exports, ticket-number draws, roster edits and development tokens.`,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(
		newMigrateCommentsCommand(),
		newKPICommand(),
		newSequenceCommand(),
		newRosterCommand(),
		newTokenCommand(),
	)
	return rootCmd
}
