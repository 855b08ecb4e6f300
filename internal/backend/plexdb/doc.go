// Package plexdb implements the backend contract against a read-only copy of
// Plex's own library database (com.plexapp.plugins.library.db). It sees every
// account's view state without per-user tokens, but has no visibility into
// live playback sessions.
package plexdb
