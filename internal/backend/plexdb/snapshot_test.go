package plexdb_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"plexcache/internal/backend"
	"plexcache/internal/backend/plexdb"
	"plexcache/internal/media"
)

const fixtureSchema = `
CREATE TABLE accounts (id INTEGER PRIMARY KEY, name TEXT);
CREATE TABLE library_sections (id INTEGER PRIMARY KEY, name TEXT, section_type INTEGER);
CREATE TABLE metadata_items (
    id INTEGER PRIMARY KEY,
    guid TEXT,
    metadata_type INTEGER,
    title TEXT,
    parent_id INTEGER,
    "index" INTEGER,
    library_section_id INTEGER,
    added_at INTEGER
);
CREATE TABLE media_items (id INTEGER PRIMARY KEY, metadata_item_id INTEGER);
CREATE TABLE media_parts (id INTEGER PRIMARY KEY, media_item_id INTEGER, file TEXT);
CREATE TABLE metadata_item_views (account_id INTEGER, guid TEXT, viewed_at INTEGER);
CREATE TABLE metadata_item_settings (
    account_id INTEGER,
    guid TEXT,
    view_offset INTEGER,
    last_viewed_at INTEGER,
    view_count INTEGER
);
`

type fixture struct {
	t    *testing.T
	db   *sql.DB
	path string

	nextItemID  int64
	nextMediaID int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	path := filepath.Join(t.TempDir(), "library.db")
	db, err := sql.Open("sqlite", "file:"+path)
	if err != nil {
		t.Fatalf("open fixture db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if _, err := db.Exec(fixtureSchema); err != nil {
		t.Fatalf("create fixture schema: %v", err)
	}
	return &fixture{t: t, db: db, path: path}
}

func (f *fixture) exec(query string, args ...any) {
	f.t.Helper()
	if _, err := f.db.Exec(query, args...); err != nil {
		f.t.Fatalf("fixture exec: %v", err)
	}
}

func (f *fixture) addAccount(id int64, name string) {
	f.exec(`INSERT INTO accounts (id, name) VALUES (?, ?)`, id, name)
}

func (f *fixture) addSection(id int64, name string, sectionType int) {
	f.exec(`INSERT INTO library_sections (id, name, section_type) VALUES (?, ?, ?)`, id, name, sectionType)
}

// addItem inserts a metadata item with one media part and returns its id.
func (f *fixture) addItem(guid string, kind media.Kind, title string, parentID any, index int, sectionID int64, addedAt time.Time, file string) int64 {
	f.t.Helper()
	f.nextItemID++
	f.nextMediaID++
	f.exec(`INSERT INTO metadata_items (id, guid, metadata_type, title, parent_id, "index", library_section_id, added_at)
	        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		f.nextItemID, guid, int(kind), title, parentID, index, sectionID, addedAt.Unix())
	f.exec(`INSERT INTO media_items (id, metadata_item_id) VALUES (?, ?)`, f.nextMediaID, f.nextItemID)
	f.exec(`INSERT INTO media_parts (id, media_item_id, file) VALUES (?, ?, ?)`, f.nextMediaID, f.nextMediaID, file)
	return f.nextItemID
}

func (f *fixture) addView(accountID int64, guid string, viewedAt time.Time) {
	f.exec(`INSERT INTO metadata_item_views (account_id, guid, viewed_at) VALUES (?, ?, ?)`, accountID, guid, viewedAt.Unix())
}

func (f *fixture) addProgress(accountID int64, guid string, offset int64, lastViewedAt time.Time) {
	f.exec(`INSERT INTO metadata_item_settings (account_id, guid, view_offset, last_viewed_at, view_count)
	        VALUES (?, ?, ?, ?, 0)`, accountID, guid, offset, lastViewedAt.Unix())
}

func (f *fixture) open() *plexdb.Snapshot {
	f.t.Helper()
	snap, err := plexdb.Open(f.path, nil)
	if err != nil {
		f.t.Fatalf("open snapshot: %v", err)
	}
	f.t.Cleanup(func() { _ = snap.Close() })
	return snap
}

func TestOpenMissingDatabaseIsConfigurationError(t *testing.T) {
	_, err := plexdb.Open(filepath.Join(t.TempDir(), "nope.db"), nil)
	if err == nil {
		t.Fatal("expected error for missing database")
	}
	if !errors.Is(err, backend.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestListAccountsOrderedByActivity(t *testing.T) {
	f := newFixture(t)
	f.addAccount(1, "alice")
	f.addAccount(2, "bob")
	f.addSection(1, "Movies", 1)
	f.addItem("guid://movie-1", media.KindMovie, "Y", nil, 0, 1, time.Now().Add(-90*24*time.Hour), "/data/movies/Y.mkv")
	f.addView(1, "guid://movie-1", time.Now().Add(-48*time.Hour))
	f.addView(2, "guid://movie-1", time.Now().Add(-1*time.Hour))

	snap := f.open()
	accounts, err := snap.ListAccounts(context.Background())
	if err != nil {
		t.Fatalf("ListAccounts: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(accounts))
	}
	if accounts[0].Name != "bob" || accounts[1].Name != "alice" {
		t.Fatalf("expected most recently active first, got %v", accounts)
	}
}

func TestListAccountsFallsBackToAdmin(t *testing.T) {
	f := newFixture(t)
	snap := f.open()
	accounts, err := snap.ListAccounts(context.Background())
	if err != nil {
		t.Fatalf("ListAccounts: %v", err)
	}
	if len(accounts) != 1 || accounts[0].ID != 1 {
		t.Fatalf("expected admin fallback, got %v", accounts)
	}
}

func TestContinueWatchingPartialMovie(t *testing.T) {
	f := newFixture(t)
	f.addAccount(1, "alice")
	f.addSection(1, "Movies", 1)
	f.addItem("guid://movie-1", media.KindMovie, "Y", nil, 0, 1, time.Now().Add(-30*24*time.Hour), "/data/movies/Y.mkv")
	f.addProgress(1, "guid://movie-1", 500, time.Now().Add(-time.Hour))

	snap := f.open()
	got, err := snap.QueryContinueWatching(context.Background(), media.Account{ID: 1, Name: "alice"}, 10)
	if err != nil {
		t.Fatalf("QueryContinueWatching: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	if got[0].Path != "/data/movies/Y.mkv" || got[0].Kind != media.KindMovie {
		t.Fatalf("unexpected candidate: %+v", got[0])
	}
}

func TestContinueWatchingNextEpisodeIsSeasonMinimum(t *testing.T) {
	f := newFixture(t)
	f.addAccount(1, "alice")
	f.addSection(2, "TV", 2)
	// Season container (metadata_type 3 in Plex, irrelevant to the queries).
	const seasonID = 100
	now := time.Now()
	f.addItem("guid://x-s01e01", media.KindEpisode, "X E1", seasonID, 1, 2, now.Add(-40*24*time.Hour), "/data/tv/X/S01E01.mkv")
	f.addItem("guid://x-s01e02", media.KindEpisode, "X E2", seasonID, 2, 2, now.Add(-40*24*time.Hour), "/data/tv/X/S01E02.mkv")
	f.addItem("guid://x-s01e03", media.KindEpisode, "X E3", seasonID, 3, 2, now.Add(-40*24*time.Hour), "/data/tv/X/S01E03.mkv")
	f.addView(1, "guid://x-s01e01", now.Add(-24*time.Hour))

	snap := f.open()
	got, err := snap.QueryContinueWatching(context.Background(), media.Account{ID: 1, Name: "alice"}, 10)
	if err != nil {
		t.Fatalf("QueryContinueWatching: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected only the next unwatched episode, got %d: %+v", len(got), got)
	}
	if got[0].Path != "/data/tv/X/S01E02.mkv" || got[0].Episode != 2 {
		t.Fatalf("expected S01E02, got %+v", got[0])
	}
}

func TestContinueWatchingIsPerAccount(t *testing.T) {
	f := newFixture(t)
	f.addAccount(1, "alice")
	f.addAccount(2, "bob")
	f.addSection(2, "TV", 2)
	const seasonID = 100
	now := time.Now()
	f.addItem("guid://x-s01e01", media.KindEpisode, "X E1", seasonID, 1, 2, now.Add(-40*24*time.Hour), "/data/tv/X/S01E01.mkv")
	f.addItem("guid://x-s01e02", media.KindEpisode, "X E2", seasonID, 2, 2, now.Add(-40*24*time.Hour), "/data/tv/X/S01E02.mkv")
	f.addView(1, "guid://x-s01e01", now.Add(-24*time.Hour))

	snap := f.open()
	got, err := snap.QueryContinueWatching(context.Background(), media.Account{ID: 2, Name: "bob"}, 10)
	if err != nil {
		t.Fatalf("QueryContinueWatching: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no candidates for an account that never started the show, got %+v", got)
	}
}

func TestContinueWatchingDistinctProgressPerAccount(t *testing.T) {
	// Two accounts each mid-way through a different episode of the same
	// season: each account's query returns its own partial episode.
	f := newFixture(t)
	f.addAccount(1, "alice")
	f.addAccount(2, "bob")
	f.addSection(2, "TV", 2)
	const seasonID = 100
	now := time.Now()
	f.addItem("guid://x-s01e01", media.KindEpisode, "X E1", seasonID, 1, 2, now.Add(-40*24*time.Hour), "/data/tv/X/S01E01.mkv")
	f.addItem("guid://x-s01e02", media.KindEpisode, "X E2", seasonID, 2, 2, now.Add(-40*24*time.Hour), "/data/tv/X/S01E02.mkv")
	f.addProgress(1, "guid://x-s01e01", 300, now.Add(-2*time.Hour))
	f.addProgress(2, "guid://x-s01e02", 700, now.Add(-time.Hour))

	snap := f.open()
	ctx := context.Background()

	alice, err := snap.QueryContinueWatching(ctx, media.Account{ID: 1, Name: "alice"}, 10)
	if err != nil {
		t.Fatalf("alice query: %v", err)
	}
	bob, err := snap.QueryContinueWatching(ctx, media.Account{ID: 2, Name: "bob"}, 10)
	if err != nil {
		t.Fatalf("bob query: %v", err)
	}
	if len(alice) != 1 || alice[0].Path != "/data/tv/X/S01E01.mkv" {
		t.Fatalf("unexpected alice candidates: %+v", alice)
	}
	if len(bob) != 1 || bob[0].Path != "/data/tv/X/S01E02.mkv" {
		t.Fatalf("unexpected bob candidates: %+v", bob)
	}
}

func TestContinueWatchingRespectsLimit(t *testing.T) {
	f := newFixture(t)
	f.addAccount(1, "alice")
	f.addSection(1, "Movies", 1)
	now := time.Now()
	for i := 0; i < 5; i++ {
		guid := "guid://movie-" + string(rune('a'+i))
		f.addItem(guid, media.KindMovie, "M", nil, 0, 1, now.Add(-90*24*time.Hour), "/data/movies/"+string(rune('a'+i))+".mkv")
		f.addProgress(1, guid, 100, now.Add(-time.Duration(i)*time.Hour))
	}

	snap := f.open()
	got, err := snap.QueryContinueWatching(context.Background(), media.Account{ID: 1}, 3)
	if err != nil {
		t.Fatalf("QueryContinueWatching: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected limit of 3, got %d", len(got))
	}
	// Most recent activity first.
	if got[0].Path != "/data/movies/a.mkv" {
		t.Fatalf("expected newest activity first, got %+v", got[0])
	}
}

func TestListWatchedFilesAggregatesAccounts(t *testing.T) {
	f := newFixture(t)
	f.addAccount(1, "alice")
	f.addAccount(2, "bob")
	f.addSection(1, "Movies", 1)
	now := time.Now()
	f.addItem("guid://movie-1", media.KindMovie, "Y", nil, 0, 1, now.Add(-60*24*time.Hour), "/data/movies/Y.mkv")
	older := now.Add(-72 * time.Hour).Truncate(time.Second)
	newer := now.Add(-2 * time.Hour).Truncate(time.Second)
	f.addView(1, "guid://movie-1", older)
	f.addView(2, "guid://movie-1", newer)

	snap := f.open()
	got, err := snap.ListWatchedFiles(context.Background())
	if err != nil {
		t.Fatalf("ListWatchedFiles: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 watched file, got %d", len(got))
	}
	if !got[0].LastViewedAt.Equal(newer.UTC()) {
		t.Fatalf("expected max viewed-at %v, got %v", newer.UTC(), got[0].LastViewedAt)
	}
	if got[0].Kind != media.KindMovie || got[0].Library != "Movies" {
		t.Fatalf("unexpected watched file: %+v", got[0])
	}
}

func TestSnapshotHasNoSessionVisibility(t *testing.T) {
	f := newFixture(t)
	snap := f.open()
	playing, err := snap.ListPlayingFiles(context.Background())
	if err != nil {
		t.Fatalf("ListPlayingFiles: %v", err)
	}
	if len(playing) != 0 {
		t.Fatalf("expected empty playing set, got %v", playing)
	}
	watchlist, err := snap.ListWatchlist(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListWatchlist: %v", err)
	}
	if len(watchlist) != 0 {
		t.Fatalf("expected empty watchlist, got %v", watchlist)
	}
}
