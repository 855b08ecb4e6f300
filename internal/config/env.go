package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// applyEnvOverrides layers the legacy environment interface over whatever the
// TOML file provided. Only variables that are actually set override; an empty
// value counts as set so operators can blank a file setting from the shell.
func (c *Config) applyEnvOverrides() error {
	envString("PLEX_BASEURL", &c.Plex.URL)
	envString("PLEX_TOKEN", &c.Plex.Token)
	if err := envBool("PLEX_SSL_VERIFY", &c.Plex.SSLVerify); err != nil {
		return err
	}

	// PLEXCACHE_PLEXDB_PATH accepts either the Plex data root or the
	// database file itself.
	if value, ok := os.LookupEnv("PLEXCACHE_PLEXDB_PATH"); ok {
		value = strings.TrimSpace(value)
		if strings.HasSuffix(value, ".db") {
			c.Snapshot.DatabasePath = value
		} else {
			c.Snapshot.Root = value
		}
	}
	envString("PLEXCACHE_BACKEND", &c.Selection.Backend)

	if err := envBool("PLEXCACHE_ONDECK", &c.Selection.OnDeckEnabled); err != nil {
		return err
	}
	if err := envInt("PLEXCACHE_ONDECK_COUNT", &c.Selection.OnDeckCount); err != nil {
		return err
	}
	if err := envBool("PLEXCACHE_WATCHLIST", &c.Selection.WatchlistEnabled); err != nil {
		return err
	}
	if err := envInt("PLEXCACHE_WATCHLIST_COUNT", &c.Selection.WatchlistCount); err != nil {
		return err
	}
	if err := envInt("PLEXCACHE_MAX_ITEMS", &c.Selection.MaxItems); err != nil {
		return err
	}
	envList("PLEX_LIBRARIES", &c.Selection.IncludeLibraries)
	envList("PLEXCACHE_LIBRARIES_ONLY", &c.Selection.OnlyLibraries)

	envString("PLEXCACHE_ARRAY_ROOT", &c.Tiers.ArrayRoot)
	envString("PLEXCACHE_CACHE_ROOT", &c.Tiers.CacheRoot)
	envString("PLEXCACHE_UNION_ROOT", &c.Tiers.UnionRoot)
	if raw, ok := os.LookupEnv("PLEX_PATH_MAP"); ok {
		entries := strings.Split(raw, ",")
		c.Tiers.PathMap = c.Tiers.PathMap[:0]
		for _, entry := range entries {
			if strings.TrimSpace(entry) == "" {
				continue
			}
			c.Tiers.PathMap = append(c.Tiers.PathMap, strings.TrimSpace(entry))
		}
	}

	if err := envBool("PLEXCACHE_SKIP_IF_PLAYING", &c.Demotion.SkipIfPlaying); err != nil {
		return err
	}
	if err := envInt("PLEXCACHE_MOVE_BACK_MIN_AGE_DAYS", &c.Demotion.MinAgeDays); err != nil {
		return err
	}
	if err := envInt("PLEXCACHE_MOVIE_GRACE_DAYS", &c.Demotion.MovieGraceDays); err != nil {
		return err
	}

	envString("PLEXCACHE_LOG_LEVEL", &c.Logging.Level)
	envString("PLEXCACHE_LOG_FORMAT", &c.Logging.Format)
	return nil
}

func envString(key string, target *string) {
	if value, ok := os.LookupEnv(key); ok {
		*target = strings.TrimSpace(value)
	}
}

func envBool(key string, target *bool) error {
	value, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		*target = true
	case "0", "false", "no", "off", "":
		*target = false
	default:
		return fmt.Errorf("%s: cannot parse %q as bool", key, value)
	}
	return nil
}

func envInt(key string, target *int) error {
	value, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("%s: cannot parse %q as int", key, value)
	}
	*target = parsed
	return nil
}

func envList(key string, target *[]string) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	*target = items
}
