package config

import (
	"os"
	"path/filepath"
)

const (
	defaultOnDeckCount    = 10
	defaultWatchlistCount = 20
	defaultMaxItems       = 100
	defaultArrayRoot      = "/mnt/user0"
	defaultCacheRoot      = "/mnt/cache"
	defaultUnionRoot      = "/mnt/user"
	defaultMovieGraceDays = 30
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Plex: Plex{
			SSLVerify: true,
		},
		Selection: Selection{
			Backend:          BackendAuto,
			OnDeckEnabled:    true,
			OnDeckCount:      defaultOnDeckCount,
			WatchlistEnabled: false,
			WatchlistCount:   defaultWatchlistCount,
			MaxItems:         defaultMaxItems,
		},
		Tiers: Tiers{
			ArrayRoot: defaultArrayRoot,
			CacheRoot: defaultCacheRoot,
			UnionRoot: defaultUnionRoot,
		},
		Demotion: Demotion{
			SkipIfPlaying:  true,
			MinAgeDays:     0,
			MovieGraceDays: defaultMovieGraceDays,
		},
		Runtime: Runtime{
			LockPath: filepath.Join(os.TempDir(), "plexcache.lock"),
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
