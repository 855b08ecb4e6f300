package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSelection(); err != nil {
		return err
	}
	if err := c.validateBackend(); err != nil {
		return err
	}
	if err := c.validateTiers(); err != nil {
		return err
	}
	if err := c.validateDemotion(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateSelection() error {
	switch c.Selection.Backend {
	case BackendAuto, BackendAPI, BackendSnapshot:
	default:
		return fmt.Errorf("selection.backend must be one of auto, api, snapshot (got %q)", c.Selection.Backend)
	}
	if c.Selection.MaxItems <= 0 {
		return errors.New("selection.max_items must be positive")
	}
	if c.Selection.OnDeckCount < 0 {
		return errors.New("selection.ondeck_count must be >= 0")
	}
	if c.Selection.WatchlistCount < 0 {
		return errors.New("selection.watchlist_count must be >= 0")
	}
	return nil
}

func (c *Config) validateBackend() error {
	switch c.ResolvedBackend() {
	case BackendAPI:
		if c.Plex.URL == "" || c.Plex.Token == "" {
			return errors.New("plex.url and plex.token are required for the api backend (set PLEX_BASEURL and PLEX_TOKEN)")
		}
	case BackendSnapshot:
		if c.DatabasePath() == "" {
			return errors.New("snapshot.root or snapshot.database_path is required for the snapshot backend (set PLEXCACHE_PLEXDB_PATH)")
		}
	}
	return nil
}

func (c *Config) validateTiers() error {
	if strings.TrimSpace(c.Tiers.ArrayRoot) == "" {
		return errors.New("tiers.array_root must be set")
	}
	if strings.TrimSpace(c.Tiers.CacheRoot) == "" {
		return errors.New("tiers.cache_root must be set")
	}
	if c.Tiers.ArrayRoot == c.Tiers.CacheRoot {
		return errors.New("tiers.array_root and tiers.cache_root must differ")
	}
	return nil
}

func (c *Config) validateDemotion() error {
	if c.Demotion.MinAgeDays < 0 {
		return errors.New("demotion.min_age_days must be >= 0")
	}
	if c.Demotion.MovieGraceDays < 0 {
		return errors.New("demotion.movie_grace_days must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format)
	}
	return nil
}
