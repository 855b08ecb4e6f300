package main

import (
	"bufio"

	"github.com/spf13/cobra"

	"plexcache/internal/selector"
)

func newDemoteCommand(ctx *commandContext) *cobra.Command {
	var noLock bool

	cmd := &cobra.Command{
		Use:   "demote",
		Short: "Print cached files safe to move back to the array",
		Long: `Print the cache-tier paths of watched files no account still needs, one
per line. Files somebody is mid-way through, next up to watch, currently
playing, or inside the new-movie grace window stay cached. Feed the output
to your mover; plexcache never moves files itself.`,
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
				demoter := &selector.Demoter{
					Backend:    be,
					Config:     cfg,
					Translator: cfg.NewTranslator(),
					Logger:     logger,
				}
				if _, err := demoter.Run(cmd.Context(), out); err != nil {
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
