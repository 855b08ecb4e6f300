// Package selector decides which media files move between storage tiers. The
// promote side picks files worth copying to the cache; the demote side picks
// cached files safe to send back to the array. Both emit host paths one per
// line for an external mover and never touch files themselves.
package selector
