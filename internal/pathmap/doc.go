// Package pathmap translates file paths between the coordinate systems in
// play: paths as Plex recorded them (often container-internal), host paths,
// the union mount that fans out across tiers, and the array/cache roots
// underneath it.
package pathmap
