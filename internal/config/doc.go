// Package config loads plexcache configuration from a TOML file and the
// environment. Environment variables use the names the shell tooling around
// the mover already exports (PLEX_* and PLEXCACHE_*) and take precedence over
// the file; file values take precedence over built-in defaults.
package config
