package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/phrazzld/scry-decks/internal/config"
	"github.com/phrazzld/scry-decks/internal/generation"
	"github.com/phrazzld/scry-decks/internal/platform/logger"
)

// remoteSubject is the token subject the CLI identifies itself with.
const remoteSubject = "decks-cli"

// remoteToken is the output of the remote-token command.
type remoteToken struct {
	BaseURL string `json:"base_url"`
	Token   string `json:"token"`
}

func newRemoteTokenCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remote-token",
		Short: "Issue a bearer token for the configured remote API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFrom(opts.ConfigDir)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			log, err := logger.SetupWithWriter(cfg.Log, opts.logOutput)
			if err != nil {
				return err
			}

			tokens, err := generation.NewJWTTokenProvider(cfg.Remote, remoteSubject)
			if err != nil {
				return err
			}
			client, err := generation.NewClient(cfg.Remote, tokens)
			if err != nil {
				return err
			}
			token, err := tokens.Token(logger.WithLogger(cmd.Context(), log))
			if err != nil {
				return err
			}

			out := remoteToken{BaseURL: client.BaseURL(), Token: token}
			return printer{opts.Format, cmd.OutOrStdout()}.print(out, func(w io.Writer) {
				fmt.Fprintf(w, "%s\nAuthorization: Bearer %s\n", out.BaseURL, out.Token)
			})
		},
	}
}
