// Package backend defines the read contract the selectors run against. Two
// implementations exist: plexapi queries the live server, plexdb reads a
// point-in-time copy of the server's own database. Call sites never branch on
// which one they hold; capabilities a backend lacks (live sessions on the
// snapshot, a watchlist without plex.tv access) surface as empty results.
package backend
