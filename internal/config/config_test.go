package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateConfig(t *testing.T) {
	testCases := []struct {
		name        string
		config      *Config
		expectError bool
		errorMsg    string
		validate    func(t *testing.T, cfg *Config)
	}{
		{
			name: "Valid config with all fields",
			config: &Config{
				LogLevel:              2,
				LogFormat:             "json",
				NodeURLs:              []string{"wss://a.example", "ws://localhost:9944"},
				SS58Prefix:            42,
				BalanceField:          BalanceFieldFree,
				IdentityConcurrency:   4,
				StorageBatchSize:      500,
				RequestTimeoutSeconds: 20,
			},
			expectError: false,
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, BalanceFieldFree, cfg.BalanceField)
				assert.Equal(t, 4, cfg.IdentityConcurrency)
				assert.Equal(t, 20*time.Second, cfg.RequestTimeout())
			},
		},
		{
			name: "Invalid log level (negative)",
			config: &Config{
				LogLevel:  -1,
				LogFormat: "json",
			},
			expectError: true,
			errorMsg:    "log level must be between 0 and 5",
		},
		{
			name: "Invalid log level (too high)",
			config: &Config{
				LogLevel:  6,
				LogFormat: "json",
			},
			expectError: true,
			errorMsg:    "log level must be between 0 and 5",
		},
		{
			name: "Invalid log format",
			config: &Config{
				LogLevel:  2,
				LogFormat: "xml",
			},
			expectError: true,
			errorMsg:    "log format must be 'json' or 'console'",
		},
		{
			name: "Invalid node url scheme",
			config: &Config{
				LogFormat: "json",
				NodeURLs:  []string{"https://mainnet.ternoa.network"},
			},
			expectError: true,
			errorMsg:    "must use ws:// or wss://",
		},
		{
			name: "Invalid balance field",
			config: &Config{
				LogFormat:    "json",
				BalanceField: "frozen",
			},
			expectError: true,
			errorMsg:    "balance field must be one of",
		},
		{
			name: "Invalid strategy",
			config: &Config{
				LogFormat:     "json",
				RPCPoolConfig: RPCPoolConfig{LoadBalancingStrategy: "random"},
			},
			expectError: true,
			errorMsg:    "load balancing strategy must be 'round-robin' or 'weighted'",
		},
		{
			name: "Too many healthy endpoints required",
			config: &Config{
				LogFormat:     "json",
				NodeURLs:      []string{"wss://a.example"},
				RPCPoolConfig: RPCPoolConfig{MinHealthyEndpoints: 2},
			},
			expectError: true,
			errorMsg:    "exceeds configured node urls",
		},
		{
			name: "Storage batch size capped at node page limit",
			config: &Config{
				LogFormat:        "json",
				StorageBatchSize: 5000,
			},
			expectError: false,
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, MaxStorageBatchSize, cfg.StorageBatchSize)
			},
		},
		{
			name: "Config with defaults applied",
			config: &Config{
				LogLevel:  2,
				LogFormat: "json",
			},
			expectError: false,
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, []string{"wss://mainnet.ternoa.network"}, cfg.NodeURLs)
				assert.Equal(t, BalanceFieldMiscFrozen, cfg.BalanceField)
				assert.Equal(t, 1, cfg.IdentityConcurrency)
				assert.Equal(t, 1000, cfg.StorageBatchSize)
				assert.Equal(t, 60, cfg.RequestTimeoutSeconds)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 30*time.Second, cfg.Server.CacheTTL())
				assert.Equal(t, 30, cfg.RPCPoolConfig.HealthCheckIntervalSeconds)
				assert.Equal(t, 3, cfg.RPCPoolConfig.UnhealthyThreshold)
				assert.Equal(t, 300, cfg.RPCPoolConfig.RecoveryIntervalSeconds)
				assert.Equal(t, 1, cfg.RPCPoolConfig.MinHealthyEndpoints)
				assert.Equal(t, 10, cfg.RPCPoolConfig.RequestTimeoutSeconds)
				assert.Equal(t, StrategyRoundRobin, cfg.RPCPoolConfig.LoadBalancingStrategy)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateConfig(tc.config)

			if tc.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.errorMsg)
				return
			}
			require.NoError(t, err)
			if tc.validate != nil {
				tc.validate(t, tc.config)
			}
		})
	}
}

func TestLoadDefaultConfig(t *testing.T) {
	cfg, err := LoadDefaultConfig()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 1, cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, []string{"wss://mainnet.ternoa.network"}, cfg.NodeURLs)
	assert.Equal(t, uint16(42), cfg.SS58Prefix)
	assert.Equal(t, BalanceFieldMiscFrozen, cfg.BalanceField)
	assert.Equal(t, 8080, cfg.Server.Port)
	require.NoError(t, validateConfig(cfg))
}

func TestSaveAndLoad(t *testing.T) {
	home := t.TempDir()

	cfg, err := LoadDefaultConfig()
	require.NoError(t, err)
	cfg.LogFormat = "json"
	cfg.NodeURLs = []string{"wss://a.example", "wss://b.example"}
	cfg.IdentityConcurrency = 8
	cfg.Server.Port = 9100

	require.NoError(t, Save(cfg, home))

	info, err := os.Stat(filepath.Join(home, "config", "stakerank.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := Load(home)
	require.NoError(t, err)
	assert.Equal(t, "json", loaded.LogFormat)
	assert.Equal(t, []string{"wss://a.example", "wss://b.example"}, loaded.NodeURLs)
	assert.Equal(t, 8, loaded.IdentityConcurrency)
	assert.Equal(t, 9100, loaded.Server.Port)
	assert.Equal(t, 300, loaded.RPCPoolConfig.RecoveryIntervalSeconds)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, []string{"wss://mainnet.ternoa.network"}, cfg.NodeURLs)
	assert.Equal(t, 60*time.Second, cfg.RequestTimeout())
}

func TestLoad_PartialFileMergesDefaults(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(home, "config"), 0o750))

	partial, err := json.Marshal(map[string]any{"balance_field": "free", "server": map[string]any{"port": 9000}})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(Path(home), partial, 0o600))

	cfg, err := Load(home)
	require.NoError(t, err)
	assert.Equal(t, BalanceFieldFree, cfg.BalanceField)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 30, cfg.Server.CacheTTLSeconds)
	assert.Equal(t, uint16(42), cfg.SS58Prefix)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("STAKERANK_LOG_FORMAT", "json")
	t.Setenv("STAKERANK_SERVER_PORT", "9200")
	t.Setenv("STAKERANK_IDENTITY_CONCURRENCY", "3")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 9200, cfg.Server.Port)
	assert.Equal(t, 3, cfg.IdentityConcurrency)
}

func TestLoad_InvalidFile(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(home, "config"), 0o750))
	require.NoError(t, os.WriteFile(Path(home), []byte(`{"log_format": "xml"}`), 0o600))

	_, err := Load(home)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}
