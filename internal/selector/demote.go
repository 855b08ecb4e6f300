package selector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"plexcache/internal/backend"
	"plexcache/internal/config"
	"plexcache/internal/media"
	"plexcache/internal/pathmap"
)

// Demoter selects cached files safe to move back to the array: files somebody
// finished watching, minus everything any account might still want on cache.
type Demoter struct {
	Backend    backend.Backend
	Config     *config.Config
	Translator *pathmap.Translator
	Logger     *slog.Logger

	// Now is the clock for age guards; tests substitute it.
	Now func() time.Time
}

// DemoteResult summarizes one demote run.
type DemoteResult struct {
	Emitted          int
	SkippedProtected int
	SkippedPlaying   int
	SkippedGrace     int
	SkippedRecent    int
	SkippedNotCached int
}

// Run writes the demote list to w, one cache-tier path per line. A watched
// file is emitted only when no protection applies and a copy actually exists
// on the cache tier. Protections are keyed by file path, so a multi-episode
// file stays cached while any of its episodes is somebody's next watch.
func (d *Demoter) Run(ctx context.Context, w io.Writer) (DemoteResult, error) {
	var result DemoteResult
	now := time.Now
	if d.Now != nil {
		now = d.Now
	}

	watched, err := d.Backend.ListWatchedFiles(ctx)
	if err != nil {
		return result, err
	}

	protected, err := d.protectedPaths(ctx)
	if err != nil {
		return result, err
	}

	playing := map[string]struct{}{}
	if d.Config.Demotion.SkipIfPlaying {
		playing, err = d.Backend.ListPlayingFiles(ctx)
		if err != nil {
			if errors.Is(err, backend.ErrConfiguration) || errors.Is(err, backend.ErrConnection) {
				return result, err
			}
			d.Logger.Warn("playing sessions unavailable", "error", err)
			playing = map[string]struct{}{}
		}
	}

	filter := newLibraryFilter(d.Config.Selection.IncludeLibraries, d.Config.Selection.OnlyLibraries)
	graceCutoff := now().AddDate(0, 0, -d.Config.Demotion.MovieGraceDays)
	recentCutoff := now().AddDate(0, 0, -d.Config.Demotion.MinAgeDays)
	seen := make(map[string]struct{})

	for _, file := range watched {
		if !filter.allows(file.Library) {
			continue
		}
		hostPath := d.Translator.ToHostArrayPath(file.Path)
		if _, dup := seen[hostPath]; dup {
			continue
		}
		seen[hostPath] = struct{}{}

		if _, ok := protected[hostPath]; ok {
			result.SkippedProtected++
			d.Logger.Debug("keeping cached", "file", hostPath, "reason", "continue watching")
			continue
		}
		if d.Config.Demotion.SkipIfPlaying {
			if _, ok := playing[file.Path]; ok {
				result.SkippedPlaying++
				d.Logger.Debug("keeping cached", "file", hostPath, "reason", "playing")
				continue
			}
		}
		if file.Kind == media.KindMovie && d.Config.Demotion.MovieGraceDays > 0 &&
			!file.AddedAt.IsZero() && file.AddedAt.After(graceCutoff) {
			result.SkippedGrace++
			d.Logger.Debug("keeping cached", "file", hostPath, "reason", "recently added movie")
			continue
		}
		if d.Config.Demotion.MinAgeDays > 0 &&
			!file.LastViewedAt.IsZero() && file.LastViewedAt.After(recentCutoff) {
			result.SkippedRecent++
			d.Logger.Debug("keeping cached", "file", hostPath, "reason", "recently watched")
			continue
		}

		cachePath := d.Translator.DeriveCachePath(hostPath)
		if cachePath == "" {
			result.SkippedNotCached++
			continue
		}
		if _, err := fmt.Fprintln(w, cachePath); err != nil {
			return result, fmt.Errorf("write demote path: %w", err)
		}
		result.Emitted++
		d.Logger.Debug("demote", "file", cachePath, "title", file.Title)
	}

	d.Logger.Info("demote complete",
		"emitted", result.Emitted,
		"protected", result.SkippedProtected,
		"playing", result.SkippedPlaying,
		"grace", result.SkippedGrace,
		"recent", result.SkippedRecent,
		"not_cached", result.SkippedNotCached,
	)
	return result, nil
}

// protectedPaths unions every account's full continue-watching set, plus the
// watchlist when enabled, keyed by host array path. The per-account query is
// unbounded here: promote caps limit copying work, never eviction safety.
func (d *Demoter) protectedPaths(ctx context.Context) (map[string]struct{}, error) {
	protected := make(map[string]struct{})

	accounts, err := d.Backend.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	for _, account := range accounts {
		candidates, err := d.Backend.QueryContinueWatching(ctx, account, 0)
		if err != nil {
			if errors.Is(err, backend.ErrConfiguration) || errors.Is(err, backend.ErrConnection) {
				return nil, err
			}
			d.Logger.Warn("protection query failed for account", "account", account.Name, "error", err)
			continue
		}
		for _, c := range candidates {
			protected[d.Translator.ToHostArrayPath(c.Path)] = struct{}{}
		}
	}

	if d.Config.Selection.WatchlistEnabled {
		entries, err := d.Backend.ListWatchlist(ctx, 0)
		if err != nil {
			if errors.Is(err, backend.ErrConfiguration) || errors.Is(err, backend.ErrConnection) {
				return nil, err
			}
			d.Logger.Warn("watchlist protection unavailable", "error", err)
			entries = nil
		}
		for _, c := range entries {
			protected[d.Translator.ToHostArrayPath(c.Path)] = struct{}{}
		}
	}

	return protected, nil
}
