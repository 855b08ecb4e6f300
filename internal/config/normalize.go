package config

import (
	"fmt"
	"strings"

	"plexcache/internal/pathmap"
)

func (c *Config) normalize() error {
	if err := c.normalizePlex(); err != nil {
		return err
	}
	if err := c.normalizeSnapshot(); err != nil {
		return err
	}
	c.normalizeSelection()
	if err := c.normalizeTiers(); err != nil {
		return err
	}
	if err := c.normalizeRuntime(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePlex() error {
	c.Plex.URL = strings.TrimRight(strings.TrimSpace(c.Plex.URL), "/")
	c.Plex.Token = strings.TrimSpace(c.Plex.Token)
	return nil
}

func (c *Config) normalizeSnapshot() error {
	var err error
	if strings.TrimSpace(c.Snapshot.Root) != "" {
		if c.Snapshot.Root, err = expandPath(c.Snapshot.Root); err != nil {
			return fmt.Errorf("snapshot.root: %w", err)
		}
	}
	if strings.TrimSpace(c.Snapshot.DatabasePath) != "" {
		if c.Snapshot.DatabasePath, err = expandPath(c.Snapshot.DatabasePath); err != nil {
			return fmt.Errorf("snapshot.database_path: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeSelection() {
	c.Selection.Backend = strings.ToLower(strings.TrimSpace(c.Selection.Backend))
	if c.Selection.Backend == "" {
		c.Selection.Backend = BackendAuto
	}
	c.Selection.IncludeLibraries = trimList(c.Selection.IncludeLibraries)
	c.Selection.OnlyLibraries = trimList(c.Selection.OnlyLibraries)
}

func (c *Config) normalizeTiers() error {
	c.Tiers.ArrayRoot = strings.TrimRight(strings.TrimSpace(c.Tiers.ArrayRoot), "/")
	c.Tiers.CacheRoot = strings.TrimRight(strings.TrimSpace(c.Tiers.CacheRoot), "/")
	c.Tiers.UnionRoot = strings.TrimRight(strings.TrimSpace(c.Tiers.UnionRoot), "/")

	raw := strings.Join(c.Tiers.PathMap, ",")
	mappings, err := pathmap.ParseMappings(raw)
	if err != nil {
		return fmt.Errorf("tiers.path_map: %w", err)
	}
	c.mappings = mappings
	return nil
}

func (c *Config) normalizeRuntime() error {
	if strings.TrimSpace(c.Runtime.LockPath) == "" {
		c.Runtime.LockPath = Default().Runtime.LockPath
	}
	expanded, err := expandPath(c.Runtime.LockPath)
	if err != nil {
		return fmt.Errorf("runtime.lock_path: %w", err)
	}
	c.Runtime.LockPath = expanded
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func trimList(values []string) []string {
	out := values[:0]
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value != "" {
			out = append(out, value)
		}
	}
	return out
}
