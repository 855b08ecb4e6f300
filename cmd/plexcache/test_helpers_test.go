package main

import (
	"bytes"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	dbPath     string
	arrayRoot  string
	cacheRoot  string
	unionRoot  string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	for _, key := range []string{
		"PLEX_BASEURL", "PLEX_TOKEN", "PLEX_PATH_MAP", "PLEX_LIBRARIES",
		"PLEXCACHE_PLEXDB_PATH", "PLEXCACHE_BACKEND", "PLEXCACHE_ARRAY_ROOT",
		"PLEXCACHE_CACHE_ROOT", "PLEXCACHE_UNION_ROOT",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	env := &cliTestEnv{
		baseDir:    base,
		configPath: filepath.Join(homeDir, ".config", "plexcache", "config.toml"),
		dbPath:     filepath.Join(base, "library.db"),
		arrayRoot:  filepath.Join(base, "user0"),
		cacheRoot:  filepath.Join(base, "cache"),
		unionRoot:  filepath.Join(base, "user"),
	}
	for _, dir := range []string{env.arrayRoot, env.cacheRoot, env.unionRoot} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir tier: %v", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(env.configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	content := fmt.Sprintf(`[selection]
backend = "snapshot"

[snapshot]
database_path = %q

[tiers]
array_root = %q
cache_root = %q
union_root = %q

[runtime]
lock_path = %q

[logging]
level = "error"
`, env.dbPath, env.arrayRoot, env.cacheRoot, env.unionRoot, filepath.Join(base, "run.lock"))
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	env.seedDatabase(t)
	return env
}

// seedDatabase creates a minimal Plex library database: one account partway
// through one movie stored under the array root.
func (env *cliTestEnv) seedDatabase(t *testing.T) {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+env.dbPath)
	if err != nil {
		t.Fatalf("open seed db: %v", err)
	}
	defer db.Close()

	statements := []string{
		`CREATE TABLE accounts (id INTEGER PRIMARY KEY, name TEXT)`,
		`CREATE TABLE library_sections (id INTEGER PRIMARY KEY, name TEXT, section_type INTEGER)`,
		`CREATE TABLE metadata_items (id INTEGER PRIMARY KEY, guid TEXT, metadata_type INTEGER,
		    title TEXT, parent_id INTEGER, "index" INTEGER, library_section_id INTEGER, added_at INTEGER)`,
		`CREATE TABLE media_items (id INTEGER PRIMARY KEY, metadata_item_id INTEGER)`,
		`CREATE TABLE media_parts (id INTEGER PRIMARY KEY, media_item_id INTEGER, file TEXT)`,
		`CREATE TABLE metadata_item_views (account_id INTEGER, guid TEXT, viewed_at INTEGER)`,
		`CREATE TABLE metadata_item_settings (account_id INTEGER, guid TEXT, view_offset INTEGER,
		    last_viewed_at INTEGER, view_count INTEGER)`,
		`INSERT INTO accounts (id, name) VALUES (1, 'owner')`,
		`INSERT INTO library_sections (id, name, section_type) VALUES (1, 'Movies', 1)`,
		`INSERT INTO metadata_items (id, guid, metadata_type, title, parent_id, "index", library_section_id, added_at)
		    VALUES (1, 'guid://movie-1', 1, 'Y', NULL, 0, 1, 1700000000)`,
		`INSERT INTO media_items (id, metadata_item_id) VALUES (1, 1)`,
		fmt.Sprintf(`INSERT INTO media_parts (id, media_item_id, file) VALUES (1, 1, %q)`,
			filepath.Join(env.unionRoot, "movies", "Y.mkv")),
		`INSERT INTO metadata_item_settings (account_id, guid, view_offset, last_viewed_at, view_count)
		    VALUES (1, 'guid://movie-1', 500, 1700500000, 0)`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("seed db: %v", err)
		}
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
