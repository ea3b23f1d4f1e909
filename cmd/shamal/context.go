package main

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"shamal/internal/anidb"
	"shamal/internal/config"
	"shamal/internal/logging"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath   string
	configExists bool
	configErr    error

	providerOnce sync.Once
	provider     *anidb.Provider
	logger       *slog.Logger
	providerErr  error
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
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureProvider() (*anidb.Provider, error) {
	c.providerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.providerErr = err
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.providerErr = err
			return
		}
		provider, err := anidb.NewFromConfig(cfg, logger)
		if err != nil {
			c.providerErr = err
			return
		}
		c.logger = logger
		c.provider = provider
	})
	return c.provider, c.providerErr
}

// withProvider runs fn with a provider and a context tagged with a fresh
// correlation id.
func (c *commandContext) withProvider(cmd *cobra.Command, fn func(context.Context, *anidb.Provider) error) error {
	provider, err := c.ensureProvider()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logging.WithRequestID(ctx, uuid.NewString())
	logging.WithContext(ctx, c.logger).Debug("command started", logging.String("command", cmd.CommandPath()))
	return fn(ctx, provider)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func valueOrDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
