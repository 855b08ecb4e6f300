// Package media defines the read-only view of the Plex library that the
// selection engine operates on: accounts, continue-watching candidates, and
// watched files. Values are snapshots taken at invocation time; nothing in
// this package mutates server state.
package media
