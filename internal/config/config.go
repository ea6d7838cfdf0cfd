package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/stakerank/stakerank/internal/ss58"
)

const (
	configSubdir   = "config"
	configFileName = "stakerank.json"

	// EnvPrefix prefixes environment overrides, e.g. STAKERANK_SERVER_PORT.
	EnvPrefix = "STAKERANK"

	// MaxStorageBatchSize is the largest page state_getKeysPaged accepts.
	MaxStorageBatchSize = 1000
)

//go:embed default_config.json
var defaultConfigJSON []byte

func validateConfig(cfg *Config) error {
	// Validate log level
	if cfg.LogLevel < 0 || cfg.LogLevel > 5 {
		return fmt.Errorf("log level must be between 0 and 5")
	}

	// Validate log format
	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		return fmt.Errorf("log format must be 'json' or 'console'")
	}

	if len(cfg.NodeURLs) == 0 {
		cfg.NodeURLs = []string{"wss://mainnet.ternoa.network"}
	}
	for _, u := range cfg.NodeURLs {
		if !strings.HasPrefix(u, "ws://") && !strings.HasPrefix(u, "wss://") {
			return fmt.Errorf("node url %q must use ws:// or wss://", u)
		}
	}

	if cfg.SS58Prefix > ss58.MaxPrefix {
		return fmt.Errorf("ss58 prefix must be at most %d", ss58.MaxPrefix)
	}

	if cfg.BalanceField == "" {
		cfg.BalanceField = BalanceFieldMiscFrozen
	}
	switch cfg.BalanceField {
	case BalanceFieldFree, BalanceFieldReserved, BalanceFieldMiscFrozen, BalanceFieldFeeFrozen:
	default:
		return fmt.Errorf("balance field must be one of free, reserved, misc_frozen, fee_frozen")
	}

	if cfg.IdentityConcurrency <= 0 {
		cfg.IdentityConcurrency = 1
	}
	if cfg.StorageBatchSize <= 0 || cfg.StorageBatchSize > MaxStorageBatchSize {
		cfg.StorageBatchSize = MaxStorageBatchSize
	}
	if cfg.RequestTimeoutSeconds <= 0 {
		cfg.RequestTimeoutSeconds = 60
	}

	// Set defaults for query server
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 30
	}

	// Set defaults for RPC pool config
	if cfg.RPCPoolConfig.HealthCheckIntervalSeconds == 0 {
		cfg.RPCPoolConfig.HealthCheckIntervalSeconds = 30
	}
	if cfg.RPCPoolConfig.UnhealthyThreshold == 0 {
		cfg.RPCPoolConfig.UnhealthyThreshold = 3
	}
	if cfg.RPCPoolConfig.RecoveryIntervalSeconds == 0 {
		cfg.RPCPoolConfig.RecoveryIntervalSeconds = 300
	}
	if cfg.RPCPoolConfig.MinHealthyEndpoints == 0 {
		cfg.RPCPoolConfig.MinHealthyEndpoints = 1
	}
	if cfg.RPCPoolConfig.RequestTimeoutSeconds == 0 {
		cfg.RPCPoolConfig.RequestTimeoutSeconds = 10
	}
	if cfg.RPCPoolConfig.LoadBalancingStrategy == "" {
		cfg.RPCPoolConfig.LoadBalancingStrategy = StrategyRoundRobin
	}

	// Validate load balancing strategy
	if cfg.RPCPoolConfig.LoadBalancingStrategy != StrategyRoundRobin &&
		cfg.RPCPoolConfig.LoadBalancingStrategy != StrategyWeighted {
		return fmt.Errorf("load balancing strategy must be 'round-robin' or 'weighted'")
	}
	if cfg.RPCPoolConfig.MinHealthyEndpoints > len(cfg.NodeURLs) {
		return fmt.Errorf("min healthy endpoints (%d) exceeds configured node urls (%d)",
			cfg.RPCPoolConfig.MinHealthyEndpoints, len(cfg.NodeURLs))
	}

	return nil
}

// Validate checks cfg the way Load does, filling unset defaults. Use it
// after applying command-line overrides.
func Validate(cfg *Config) error {
	if err := validateConfig(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Path returns the config file location under basePath.
func Path(basePath string) string {
	return filepath.Join(basePath, configSubdir, configFileName)
}

// Save writes the given config to <basePath>/config/stakerank.json.
func Save(cfg *Config, basePath string) error {
	if err := validateConfig(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	configDir := filepath.Join(basePath, configSubdir)
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(Path(basePath), data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Load builds the effective config: embedded defaults, then
// <basePath>/config/stakerank.json when it exists, then STAKERANK_*
// environment variables. The result is validated.
func Load(basePath string) (Config, error) {
	v := viper.New()
	v.SetConfigType("json")
	if err := v.ReadConfig(bytes.NewReader(defaultConfigJSON)); err != nil {
		return Config{}, fmt.Errorf("failed to read default config: %w", err)
	}

	if basePath != "" {
		configFile := filepath.Clean(Path(basePath))
		if _, err := os.Stat(configFile); err == nil {
			v.SetConfigFile(configFile)
			if err := v.MergeInConfig(); err != nil {
				return Config{}, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validateConfig(&cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadDefaultConfig loads the default configuration from embedded JSON
func LoadDefaultConfig() (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(defaultConfigJSON, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal default config: %w", err)
	}
	return &cfg, nil
}
