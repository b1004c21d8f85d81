package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"veritas/internal/platform/config"
	"veritas/internal/platform/logger"
)

// cli holds state shared by every subcommand.
type cli struct {
	cfgFile string
	v       *viper.Viper
}

func newRootCmd() *cobra.Command {
	c := &cli{v: config.NewViper()}

	root := &cobra.Command{
		Use:   "veritas",
		Short: "Veritas - provider website compliance verification and drift monitoring",
		Long: `Veritas cross-references a provider's public website against the federal
provider registry, scores the result, and tracks compliance content drift
reported by the embedded widget.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (VERITAS_*)
3. Config file (--config)
4. Defaults`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.readConfigFile()
		},
	}

	root.PersistentFlags().StringVar(&c.cfgFile, "config", "", "config file (yaml, json or toml)")
	root.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	_ = c.v.BindPFlag("log_level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(newServeCmd(c), newMigrateCmd(c))
	return root
}

func (c *cli) readConfigFile() error {
	if c.cfgFile == "" {
		return nil
	}
	c.v.SetConfigFile(c.cfgFile)
	if err := c.v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config file %s: %w", c.cfgFile, err)
	}
	return nil
}

func (c *cli) load() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(c.v)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)
	return cfg, log, nil
}
