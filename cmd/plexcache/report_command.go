package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"plexcache/internal/selector"
)

func newReportCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize what a promote and demote run would do",
		Long: `Run both selections without printing path lists and show a summary:
tier fill levels and how many files each side would move or hold back.
Nothing on disk changes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
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

			translator := cfg.NewTranslator()
			promoter := &selector.Promoter{Backend: be, Config: cfg, Translator: translator, Logger: logger}
			promoteResult, err := promoter.Run(cmd.Context(), io.Discard)
			if err != nil {
				return err
			}
			demoter := &selector.Demoter{Backend: be, Config: cfg, Translator: translator, Logger: logger}
			demoteResult, err := demoter.Run(cmd.Context(), io.Discard)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Tier", "Path", "Size", "Used", "Free"},
				[][]string{
					tierRow("cache", cfg.Tiers.CacheRoot),
					tierRow("array", cfg.Tiers.ArrayRoot),
				},
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight},
			))
			fmt.Fprintln(out, renderTable(
				[]string{"Action", "Files", "Held back"},
				[][]string{
					{"promote", strconv.Itoa(promoteResult.Emitted),
						fmt.Sprintf("%d filtered, %d duplicate", promoteResult.Filtered, promoteResult.Deduped)},
					{"demote", strconv.Itoa(demoteResult.Emitted),
						fmt.Sprintf("%d protected, %d playing, %d grace, %d recent, %d not cached",
							demoteResult.SkippedProtected, demoteResult.SkippedPlaying,
							demoteResult.SkippedGrace, demoteResult.SkippedRecent,
							demoteResult.SkippedNotCached)},
				},
				[]columnAlignment{alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
	return cmd
}

func tierRow(name, root string) []string {
	var fs unix.Statfs_t
	if err := unix.Statfs(root, &fs); err != nil {
		return []string{name, root, "-", "-", "-"}
	}
	bsize := uint64(fs.Bsize)
	total := fs.Blocks * bsize
	free := fs.Bavail * bsize
	used := total - fs.Bfree*bsize
	return []string{name, root, humanBytes(total), humanBytes(used), humanBytes(free)}
}

func humanBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
