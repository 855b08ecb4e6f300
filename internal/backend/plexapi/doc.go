// Package plexapi implements the backend contract against a live Plex Media
// Server over HTTP. It authenticates with a single X-Plex-Token and therefore
// sees one account's view state, but unlike the database snapshot it can
// observe active playback sessions and the plex.tv watchlist.
package plexapi
