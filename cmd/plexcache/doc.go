// Command plexcache prints cache-tier move lists for a Plex media library.
// The promote command lists files worth copying onto the fast cache; the
// demote command lists cached files safe to move back to the array. Paths go
// to stdout one per line for an external mover; logs go to stderr.
package main
