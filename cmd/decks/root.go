package main

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"
)

// rootOptions holds global flags for all commands.
type rootOptions struct {
	ConfigDir string
	Format    string // "json" | "text"

	logOutput io.Writer
}

// validFormats defines the allowed output formats.
var validFormats = []string{"text", "json"}

// newRootCommand creates the root command of the decks CLI.
func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "decks",
		Short: "Offline-first study decks",
		Long: `Manage deck stores and study them with the FSRS scheduler.

The backend is selected by configuration: database.driver is one of
memory, sqlite or postgres (SCRY_DATABASE_DRIVER, SCRY_DATABASE_URL).`,
		SilenceUsage:  true,
		SilenceErrors: true, // main prints redacted errors
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(validFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
			}
			opts.logOutput = cmd.ErrOrStderr()
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigDir, "config-dir", ".", "directory searched for config.yaml")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newLoadCommand(opts))
	cmd.AddCommand(newCreateDeckCommand(opts))
	cmd.AddCommand(newAddNoteCommand(opts))
	cmd.AddCommand(newStatsCommand(opts))
	cmd.AddCommand(newNextCommand(opts))
	cmd.AddCommand(newRateCommand(opts))
	cmd.AddCommand(newRemoteTokenCommand(opts))

	return cmd
}
