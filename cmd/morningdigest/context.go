package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"MorningDigest/internal/app"
	"MorningDigest/internal/config"
	"MorningDigest/internal/logging"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     config.Config
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag, logLevelFlag: logLevelFlag}
}

func (c *commandContext) ensureConfig() config.Config {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		c.config = config.Load(path)
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			c.config.Logging.Level = strings.TrimSpace(*c.logLevelFlag)
		}
	})
	return c.config
}

func (c *commandContext) logger() *slog.Logger {
	cfg := c.ensureConfig()
	return logging.New(cfg.Logging.Level, cfg.Logging.Format)
}

// withApplication builds the application under a signal-aware context and
// releases it after fn returns.
func (c *commandContext) withApplication(parent context.Context, fn func(context.Context, *app.Application) error) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, c.ensureConfig(), c.logger())
	if err != nil {
		return err
	}
	defer application.Close()

	return fn(ctx, application)
}
