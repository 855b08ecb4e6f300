package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"plexcache/internal/backend"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(exitCode(err))
	}
}

// exitCode maps error classes for the mover's wrapper scripts: configuration
// problems exit 2, connection failures exit 3, anything else 1.
func exitCode(err error) int {
	switch {
	case errors.Is(err, backend.ErrConfiguration):
		return 2
	case errors.Is(err, backend.ErrConnection):
		return 3
	default:
		return 1
	}
}
