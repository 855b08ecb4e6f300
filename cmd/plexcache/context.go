package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"plexcache/internal/backend"
	"plexcache/internal/backend/plexapi"
	"plexcache/internal/backend/plexdb"
	"plexcache/internal/config"
	"plexcache/internal/logging"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
	runID      string
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = backend.Wrap(backend.ErrConfiguration, "load config", err)
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// ensureLogger builds the stderr logger once per invocation, tagged with a
// run id so overlapping cron runs stay distinguishable in shared logs.
func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.loggerErr = backend.Wrap(backend.ErrConfiguration, "build logger", err)
			return
		}
		c.runID = uuid.NewString()
		c.logger = logger.With("run_id", c.runID)
	})
	return c.logger, c.loggerErr
}

// newBackend opens whichever backend the config resolves to. The live API
// client is pinged immediately so an unreachable server fails the run before
// any output is produced.
func (c *commandContext) newBackend(ctx context.Context) (backend.Backend, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}

	switch resolved := cfg.ResolvedBackend(); resolved {
	case config.BackendSnapshot:
		logger.Debug("opening snapshot backend", "database", cfg.DatabasePath())
		return plexdb.Open(cfg.DatabasePath(), logger)
	default:
		logger.Debug("opening api backend", "url", cfg.Plex.URL)
		client, err := plexapi.New(cfg.Plex.URL, cfg.Plex.Token, cfg.Plex.SSLVerify, logger)
		if err != nil {
			return nil, err
		}
		if err := client.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, err
		}
		return client, nil
	}
}

// withRunLock serializes mover-facing commands through a file lock so a slow
// run and the next cron tick never interleave their output.
func (c *commandContext) withRunLock(skip bool, fn func() error) error {
	if skip {
		return fn()
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	lock := flock.New(cfg.Runtime.LockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire run lock %s: %w", cfg.Runtime.LockPath, err)
	}
	if !locked {
		return fmt.Errorf("another plexcache run holds %s", cfg.Runtime.LockPath)
	}
	defer func() { _ = lock.Unlock() }()
	return fn()
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
