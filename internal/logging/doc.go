// Package logging builds the slog loggers used across plexcache. Output goes
// to stderr: stdout carries the path lists consumed by the mover and must stay
// clean of anything else.
package logging
