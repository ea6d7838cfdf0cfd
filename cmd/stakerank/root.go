package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/stakerank/stakerank/internal/config"
	"github.com/stakerank/stakerank/internal/logger"
)

// DefaultHome is where config lives when --home is not given.
var DefaultHome = os.ExpandEnv("$HOME/.stakerank")

// rootFlags holds the persistent flags shared by every command.
type rootFlags struct {
	home      string
	nodes     []string
	logLevel  string
	logFormat string
}

func NewRootCmd() *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:           "stakerank",
		Short:         "Rank Ternoa validators by the stake nominated to them",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.home, "home", DefaultHome, "directory holding config/stakerank.json")
	pf.StringSliceVar(&flags.nodes, "node", nil, "node websocket url, repeatable (overrides config)")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug|info|warn|error (overrides config)")
	pf.StringVar(&flags.logFormat, "log-format", "", "log format: console|json (overrides config)")

	InitRootCmd(rootCmd, flags)

	return rootCmd
}

// loadConfig reads the config under --home and applies flag overrides.
func (f *rootFlags) loadConfig() (config.Config, error) {
	cfg, err := config.Load(filepath.Clean(f.home))
	if err != nil {
		return config.Config{}, err
	}

	if len(f.nodes) > 0 {
		cfg.NodeURLs = f.nodes
		if cfg.RPCPoolConfig.MinHealthyEndpoints > len(f.nodes) {
			cfg.RPCPoolConfig.MinHealthyEndpoints = len(f.nodes)
		}
	}
	if f.logLevel != "" {
		lvl, err := logger.ParseLevel(f.logLevel)
		if err != nil {
			return config.Config{}, err
		}
		cfg.LogLevel = lvl
	}
	if f.logFormat != "" {
		cfg.LogFormat = f.logFormat
	}

	if err := config.Validate(&cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
