package config

import "time"

// Balance fields of the on-chain AccountData record.
const (
	BalanceFieldFree       = "free"
	BalanceFieldReserved   = "reserved"
	BalanceFieldMiscFrozen = "misc_frozen"
	BalanceFieldFeeFrozen  = "fee_frozen"
)

// Load balancing strategies understood by the rpc pool.
const (
	StrategyRoundRobin = "round-robin"
	StrategyWeighted   = "weighted"
)

type Config struct {
	// Log Config
	LogLevel   int    `json:"log_level" mapstructure:"log_level"`     // e.g., 0 = debug, 1 = info, etc.
	LogFormat  string `json:"log_format" mapstructure:"log_format"`   // "json" or "console"
	LogSampler bool   `json:"log_sampler" mapstructure:"log_sampler"` // if true, samples logs (e.g., 1 in 5)

	// Chain Config
	NodeURLs            []string `json:"node_urls" mapstructure:"node_urls"`                       // websocket endpoints (default: wss://mainnet.ternoa.network)
	SS58Prefix          uint16   `json:"ss58_prefix" mapstructure:"ss58_prefix"`                   // address format (default: 42)
	BalanceField        string   `json:"balance_field" mapstructure:"balance_field"`               // AccountData field counted as bonded stake (default: misc_frozen)
	IdentityConcurrency int      `json:"identity_concurrency" mapstructure:"identity_concurrency"` // parallel identity lookups (default: 1)
	StorageBatchSize    int      `json:"storage_batch_size" mapstructure:"storage_batch_size"`     // keys per state_getKeysPaged page and state_queryStorageAt call (default and max: 1000)

	RequestTimeoutSeconds int `json:"request_timeout_seconds" mapstructure:"request_timeout_seconds"` // per-query deadline (default: 60)

	RPCPoolConfig RPCPoolConfig `json:"rpc_pool" mapstructure:"rpc_pool"`
	Server        ServerConfig  `json:"server" mapstructure:"server"`
}

// RPCPoolConfig tunes endpoint selection and health checks.
type RPCPoolConfig struct {
	HealthCheckIntervalSeconds int    `json:"health_check_interval_seconds" mapstructure:"health_check_interval_seconds"`
	UnhealthyThreshold         int    `json:"unhealthy_threshold" mapstructure:"unhealthy_threshold"`
	RecoveryIntervalSeconds    int    `json:"recovery_interval_seconds" mapstructure:"recovery_interval_seconds"`
	MinHealthyEndpoints        int    `json:"min_healthy_endpoints" mapstructure:"min_healthy_endpoints"`
	RequestTimeoutSeconds      int    `json:"request_timeout_seconds" mapstructure:"request_timeout_seconds"`
	LoadBalancingStrategy      string `json:"load_balancing_strategy" mapstructure:"load_balancing_strategy"`
}

// ServerConfig configures `stakerank serve`.
type ServerConfig struct {
	Port            int `json:"port" mapstructure:"port"`
	CacheTTLSeconds int `json:"cache_ttl_seconds" mapstructure:"cache_ttl_seconds"`
}

// RequestTimeout returns the per-query deadline.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// CacheTTL returns how long a served report stays fresh.
func (s ServerConfig) CacheTTL() time.Duration {
	return time.Duration(s.CacheTTLSeconds) * time.Second
}

// HealthCheckInterval is the period between active endpoint pings.
func (p RPCPoolConfig) HealthCheckInterval() time.Duration {
	return time.Duration(p.HealthCheckIntervalSeconds) * time.Second
}

// RecoveryInterval is how long an excluded endpoint waits before a recovery probe.
func (p RPCPoolConfig) RecoveryInterval() time.Duration {
	return time.Duration(p.RecoveryIntervalSeconds) * time.Second
}

// RequestTimeout bounds a single dial or health check.
func (p RPCPoolConfig) RequestTimeout() time.Duration {
	return time.Duration(p.RequestTimeoutSeconds) * time.Second
}
