package main

import (
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"leafspec/internal/config"
	"leafspec/internal/logging"
	"leafspec/internal/runs"
)

const logFileName = "leafspec.log"

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configSeen bool
	configErr  error

	loggerOnce sync.Once
	log        *slog.Logger
	loggerErr  error
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
		c.configSeen = exists
	})
	return c.config, c.configErr
}

// stageLogger returns the shared structured logger for stage execution. It
// writes to the configured log directory, keeping stdout free for command
// output; without a log dir it falls back to stderr.
func (c *commandContext) stageLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		outputs := []string{"stderr"}
		if cfg.Paths.LogDir != "" {
			outputs = []string{filepath.Join(cfg.Paths.LogDir, logFileName)}
		}
		c.log, c.loggerErr = logging.New(logging.Options{
			Level:            cfg.Logging.Level,
			Format:           cfg.Logging.Format,
			OutputPaths:      outputs,
			ErrorOutputPaths: outputs,
		})
	})
	return c.log, c.loggerErr
}

// openLedger opens the run history store, degrading to nil (and a warning)
// when the ledger is unavailable: pipeline commands never fail because
// history cannot be recorded.
func (c *commandContext) openLedger(logger *slog.Logger) *runs.Store {
	cfg, err := c.ensureConfig()
	if err != nil || cfg == nil {
		return nil
	}
	store, err := runs.Open(cfg)
	if err != nil {
		if logger == nil {
			logger = logging.NewNop()
		}
		logger.Warn("run ledger unavailable; history will not be recorded", logging.Error(err))
		return nil
	}
	return store
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
