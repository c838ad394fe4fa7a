package main

import (
	"database/sql"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"animehub/internal/contentfilter"
	"animehub/pkg/config"
	"animehub/pkg/database"
	"animehub/pkg/logging"
)

type commandContext struct {
	configFlag *string
	dbFlag     *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *zap.Logger
}

func newCommandContext(configFlag, dbFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag, dbFlag: dbFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.dbFlag != nil && strings.TrimSpace(*c.dbFlag) != "" {
			expanded, err := config.ExpandPath(strings.TrimSpace(*c.dbFlag))
			if err != nil {
				c.configErr = err
				return
			}
			cfg.Database.Path = expanded
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) log() *zap.Logger {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.logger = zap.NewNop()
			return
		}
		if c.logger, err = logging.New(cfg.Log); err != nil {
			c.logger = zap.NewNop()
		}
	})
	return c.logger
}

// openDB opens and migrates the configured catalog. Callers close it.
func (c *commandContext) openDB() (*sql.DB, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return database.OpenAndMigrate(database.Config{Path: cfg.Database.Path})
}

func (c *commandContext) filter(unfiltered bool) *contentfilter.Filter {
	cfg, err := c.ensureConfig()
	if unfiltered || err != nil {
		return nil
	}
	return contentfilter.New(cfg.Filter)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
