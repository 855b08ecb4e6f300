package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"plexcache/internal/pathmap"
)

//go:embed sample_config.toml
var sampleConfig string

// plexDBRelPath is where Plex keeps its library database underneath the
// application support root.
const plexDBRelPath = "Library/Application Support/Plex Media Server/Plug-in Support/Databases/com.plexapp.plugins.library.db"

// Backend selection values for Selection.Backend.
const (
	BackendAuto     = "auto"
	BackendAPI      = "api"
	BackendSnapshot = "snapshot"
)

// Plex contains the live-server connection settings.
type Plex struct {
	URL       string `toml:"url"`
	Token     string `toml:"token"`
	SSLVerify bool   `toml:"ssl_verify"`
}

// Snapshot contains the location of the Plex database copy read by the
// snapshot backend.
type Snapshot struct {
	Root         string `toml:"root"`
	DatabasePath string `toml:"database_path"`
}

// Selection contains the knobs shared by the promote and demote selectors.
type Selection struct {
	Backend          string   `toml:"backend"`
	OnDeckEnabled    bool     `toml:"ondeck_enabled"`
	OnDeckCount      int      `toml:"ondeck_count"`
	WatchlistEnabled bool     `toml:"watchlist_enabled"`
	WatchlistCount   int      `toml:"watchlist_count"`
	MaxItems         int      `toml:"max_items"`
	IncludeLibraries []string `toml:"include_libraries"`
	OnlyLibraries    []string `toml:"only_libraries"`
}

// Tiers describes the storage layout the path translator operates on.
type Tiers struct {
	ArrayRoot string   `toml:"array_root"`
	CacheRoot string   `toml:"cache_root"`
	UnionRoot string   `toml:"union_root"`
	PathMap   []string `toml:"path_map"`
}

// Demotion contains the guards applied before a cached file is sent back.
type Demotion struct {
	SkipIfPlaying  bool `toml:"skip_if_playing"`
	MinAgeDays     int  `toml:"min_age_days"`
	MovieGraceDays int  `toml:"movie_grace_days"`
}

// Runtime contains process-level settings.
type Runtime struct {
	LockPath string `toml:"lock_path"`
}

// Logging contains log output settings. Logs always go to stderr; stdout is
// reserved for the path lists the mover consumes.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for plexcache.
//
// Sections by concern:
//   - Plex: live API connection (url, token, TLS verification)
//   - Snapshot: read-only Plex database location
//   - Selection: backend choice, source enables, caps, library filters
//   - Tiers: array/cache/union roots and the container path map
//   - Demotion: playing guard, min-age guard, movie grace window
//   - Runtime: run lock path
//   - Logging: format and level for stderr logs
type Config struct {
	Plex      Plex      `toml:"plex"`
	Snapshot  Snapshot  `toml:"snapshot"`
	Selection Selection `toml:"selection"`
	Tiers     Tiers     `toml:"tiers"`
	Demotion  Demotion  `toml:"demotion"`
	Runtime   Runtime   `toml:"runtime"`
	Logging   Logging   `toml:"logging"`

	mappings []pathmap.Mapping
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/plexcache/config.toml")
}

// Load locates, parses, and validates a configuration file, then layers
// environment overrides on top. The returned config has all path fields
// expanded and the path map parsed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("plexcache.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// DatabasePath returns the snapshot database location: the explicit override
// when set, otherwise the Plex application-support layout under the root.
func (c *Config) DatabasePath() string {
	if strings.TrimSpace(c.Snapshot.DatabasePath) != "" {
		return c.Snapshot.DatabasePath
	}
	if strings.TrimSpace(c.Snapshot.Root) == "" {
		return ""
	}
	return filepath.Join(c.Snapshot.Root, plexDBRelPath)
}

// ResolvedBackend reports which backend a run should use: the explicit
// setting, or snapshot whenever a database location is configured.
func (c *Config) ResolvedBackend() string {
	switch c.Selection.Backend {
	case BackendAPI, BackendSnapshot:
		return c.Selection.Backend
	}
	if c.DatabasePath() != "" {
		return BackendSnapshot
	}
	return BackendAPI
}

// PathMappings returns the parsed container-to-host path mappings in
// configured order.
func (c *Config) PathMappings() []pathmap.Mapping {
	return c.mappings
}

// NewTranslator builds the path translator for the configured tier layout.
func (c *Config) NewTranslator() *pathmap.Translator {
	return pathmap.New(c.mappings, c.Tiers.ArrayRoot, c.Tiers.CacheRoot, c.Tiers.UnionRoot)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
