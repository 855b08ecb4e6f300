package selector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"plexcache/internal/backend"
	"plexcache/internal/config"
	"plexcache/internal/media"
	"plexcache/internal/pathmap"
)

// Promoter selects files to copy onto the cache tier: every account's
// continue-watching set, optionally topped up from the watchlist.
type Promoter struct {
	Backend    backend.Backend
	Config     *config.Config
	Translator *pathmap.Translator
	Logger     *slog.Logger
}

// PromoteResult summarizes one promote run.
type PromoteResult struct {
	Emitted  int
	Filtered int
	Deduped  int
	Accounts int
}

// Run writes the promote list to w, one host array path per line. Candidates
// are gathered per account in most-recently-active order, deduplicated by
// file, filtered by library, and capped at MaxItems. Output is streamed as
// candidates are accepted; a failure midway leaves a usable partial list on
// stdout and a nonzero exit.
func (p *Promoter) Run(ctx context.Context, w io.Writer) (PromoteResult, error) {
	var result PromoteResult
	sel := p.Config.Selection
	filter := newLibraryFilter(sel.IncludeLibraries, sel.OnlyLibraries)
	seenPaths := make(map[string]struct{})
	seenItems := make(map[int64]struct{})

	// A candidate is a duplicate when either its file or its metadata item was
	// already emitted: multi-part items share an id, multi-episode files share
	// a path.
	emit := func(c media.Candidate) error {
		hostPath := p.Translator.ToHostArrayPath(c.Path)
		if _, dup := seenPaths[hostPath]; dup {
			result.Deduped++
			return nil
		}
		if c.ItemID != 0 {
			if _, dup := seenItems[c.ItemID]; dup {
				result.Deduped++
				return nil
			}
		}
		if !filter.allows(c.Library) {
			result.Filtered++
			return nil
		}
		seenPaths[hostPath] = struct{}{}
		if c.ItemID != 0 {
			seenItems[c.ItemID] = struct{}{}
		}
		if _, err := fmt.Fprintln(w, hostPath); err != nil {
			return fmt.Errorf("write promote path: %w", err)
		}
		result.Emitted++
		p.Logger.Debug("promote", "file", hostPath, "title", c.Title, "kind", c.Kind.String())
		return nil
	}

	if sel.OnDeckEnabled {
		accounts, err := p.Backend.ListAccounts(ctx)
		if err != nil {
			return result, err
		}
		result.Accounts = len(accounts)
		for _, account := range accounts {
			if result.Emitted >= sel.MaxItems {
				break
			}
			candidates, err := p.Backend.QueryContinueWatching(ctx, account, sel.OnDeckCount)
			if err != nil {
				if errors.Is(err, backend.ErrConfiguration) || errors.Is(err, backend.ErrConnection) {
					return result, err
				}
				p.Logger.Warn("skipping account", "account", account.Name, "error", err)
				continue
			}
			for _, c := range candidates {
				if result.Emitted >= sel.MaxItems {
					break
				}
				if err := emit(c); err != nil {
					return result, err
				}
			}
		}
	}

	if sel.WatchlistEnabled && result.Emitted < sel.MaxItems {
		entries, err := p.Backend.ListWatchlist(ctx, sel.WatchlistCount)
		if err != nil {
			if errors.Is(err, backend.ErrConfiguration) || errors.Is(err, backend.ErrConnection) {
				return result, err
			}
			p.Logger.Warn("skipping watchlist", "error", err)
			entries = nil
		}
		for _, c := range entries {
			if result.Emitted >= sel.MaxItems {
				break
			}
			if err := emit(c); err != nil {
				return result, err
			}
		}
	}

	p.Logger.Info("promote complete",
		"emitted", result.Emitted,
		"filtered", result.Filtered,
		"deduped", result.Deduped,
		"accounts", result.Accounts,
	)
	return result, nil
}
