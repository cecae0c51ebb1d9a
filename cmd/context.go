package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/MimeLyc/wordsub/internal/config"
	"github.com/MimeLyc/wordsub/pkg/log"
	"github.com/spf13/cobra"
)

type commandContext struct {
	settingsFlag *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	fileLogger *log.FileLogger
}

func newCommandContext(settingsFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		settingsFlag: settingsFlag,
		logLevelFlag: logLevelFlag,
	}
}

// ensureConfig loads the environment once, layering the runtime settings
// file on top when it exists.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var opts []config.Option
		path := c.settingsPath()
		settings, err := config.LoadRuntimeSettingsFile(path)
		switch {
		case err == nil:
			opts = append(opts, config.WithRuntimeSettings(settings))
		case errors.Is(err, os.ErrNotExist):
		default:
			c.configErr = fmt.Errorf("load settings %s: %w", path, err)
			return
		}
		cfg, err := config.NewFromEnv(opts...)
		if err != nil {
			c.configErr = fmt.Errorf("load configuration: %w", err)
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.Log.Level = strings.TrimSpace(*c.logLevelFlag)
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) settingsPath() string {
	if c.settingsFlag != nil {
		if path := strings.TrimSpace(*c.settingsFlag); path != "" {
			return path
		}
	}
	return config.RuntimeSettingsFilePath()
}

// initLogging sends log output to LOG_FILE when set, otherwise to stderr so
// it stays out of command output.
func (c *commandContext) initLogging(stderr io.Writer) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	level := log.ParseLevel(cfg.Log.Level)
	if cfg.Log.File != "" {
		fl, err := log.NewFileLogger(cfg.Log.File, level)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		c.fileLogger = fl
		log.SetGlobal(fl.Logger)
		return nil
	}
	log.InitLogger(level)
	log.GetLogger().SetOutput(stderr)
	return nil
}

func (c *commandContext) close() error {
	if c.fileLogger == nil {
		return nil
	}
	err := c.fileLogger.Close()
	c.fileLogger = nil
	return err
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
