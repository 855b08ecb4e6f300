package backend

import (
	"context"

	"plexcache/internal/media"
)

// Backend is the read contract shared by the live API and the database
// snapshot. Results are point-in-time reads; nothing here mutates the server.
type Backend interface {
	// ListAccounts returns known accounts ordered most-recently-active
	// first. The ordering drives query priority, not correctness.
	ListAccounts(ctx context.Context) ([]media.Account, error)

	// QueryContinueWatching returns one account's continue-watching set:
	// in-progress items plus the next unwatched episode of every started
	// season, most recent viewing activity first. limit <= 0 means
	// unbounded, which the demotion side uses to build the full protection
	// set.
	QueryContinueWatching(ctx context.Context, account media.Account, limit int) ([]media.Candidate, error)

	// ListWatchedFiles returns every file backing an item that at least one
	// account has completed, with the max viewed-at across accounts.
	ListWatchedFiles(ctx context.Context) ([]media.WatchedFile, error)

	// ListWatchlist returns locally-resolvable watchlist entries. Backends
	// without watchlist access return an empty set.
	ListWatchlist(ctx context.Context, limit int) ([]media.Candidate, error)

	// ListPlayingFiles returns the file paths of in-flight playback
	// sessions. The snapshot backend cannot observe sessions and returns an
	// empty set, so the skip-if-playing guard is best-effort there.
	ListPlayingFiles(ctx context.Context) (map[string]struct{}, error)

	// Close releases the underlying connection or handle.
	Close() error
}
