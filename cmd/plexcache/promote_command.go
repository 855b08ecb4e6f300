package main

import (
	"bufio"

	"github.com/spf13/cobra"

	"plexcache/internal/selector"
)

func newPromoteCommand(ctx *commandContext) *cobra.Command {
	var noLock bool

	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Print files to copy to the cache tier",
		Long: `Print the host array paths of files worth copying onto the cache tier,
one per line: every account's continue-watching items, optionally topped up
from the watchlist. Feed the output to your mover; plexcache never moves
files itself.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRunLock(noLock, func() error {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				logger, err := ctx.ensureLogger()
				if err != nil {
					return err
				}
				be, err := ctx.newBackend(cmd.Context())
				if err != nil {
					return err
				}
				defer be.Close()

				out := bufio.NewWriter(cmd.OutOrStdout())
				promoter := &selector.Promoter{
					Backend:    be,
					Config:     cfg,
					Translator: cfg.NewTranslator(),
					Logger:     logger,
				}
				if _, err := promoter.Run(cmd.Context(), out); err != nil {
					_ = out.Flush()
					return err
				}
				return out.Flush()
			})
		},
	}

	cmd.Flags().BoolVar(&noLock, "no-lock", false, "Skip the run lock")
	return cmd
}
