package plexdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "modernc.org/sqlite"

	"plexcache/internal/backend"
	"plexcache/internal/media"
)

// Snapshot reads a point-in-time Plex library database. The file is opened
// read-only for the duration of one invocation and closed on every exit path.
type Snapshot struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Open connects to the database at path. A missing file is a configuration
// error: the mount is absent or PLEXCACHE_PLEXDB_PATH points at the wrong
// tree.
func Open(path string, logger *slog.Logger) (*Snapshot, error) {
	if logger == nil {
		logger = slog.Default()
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, backend.Wrap(backend.ErrConfiguration, fmt.Sprintf("plex database not found at %s", path), err)
	}
	if info.IsDir() {
		return nil, backend.Wrap(backend.ErrConfiguration, fmt.Sprintf("plex database path %s is a directory", path), nil)
	}

	dsn := "file:" + path + "?mode=ro"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, backend.Wrap(backend.ErrConfiguration, "open plex database", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, backend.Wrap(backend.ErrConfiguration, "apply busy_timeout pragma", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, backend.Wrap(backend.ErrConfiguration, "ping plex database", err)
	}

	return &Snapshot{db: db, path: path, logger: logger}, nil
}

// Close releases the database handle.
func (s *Snapshot) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ListAccounts returns server accounts most-recently-active first. When the
// database lists no accounts the admin account (id 1) is assumed, matching
// Plex installs that never created managed users.
func (s *Snapshot) ListAccounts(ctx context.Context) ([]media.Account, error) {
	rows, err := s.db.QueryContext(ctx, accountsQuery)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []media.Account
	for rows.Next() {
		var (
			id       int64
			name     sql.NullString
			lastView sql.NullInt64
		)
		if err := rows.Scan(&id, &name, &lastView); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, media.Account{
			ID:           id,
			Name:         name.String,
			LastActivity: unixTime(lastView),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}

	if len(accounts) == 0 {
		accounts = append(accounts, media.Account{ID: 1, Name: "admin"})
	}
	return accounts, nil
}

// ListPlayingFiles always returns the empty set: Plex keeps active sessions
// in memory, never in the library database, so the playing guard is
// best-effort on this backend.
func (s *Snapshot) ListPlayingFiles(ctx context.Context) (map[string]struct{}, error) {
	return map[string]struct{}{}, nil
}

// ListWatchlist returns the empty set; watchlists live on plex.tv and are not
// mirrored into the library database.
func (s *Snapshot) ListWatchlist(ctx context.Context, limit int) ([]media.Candidate, error) {
	return nil, nil
}

func unixTime(v sql.NullInt64) time.Time {
	if !v.Valid || v.Int64 == 0 {
		return time.Time{}
	}
	return time.Unix(v.Int64, 0).UTC()
}
