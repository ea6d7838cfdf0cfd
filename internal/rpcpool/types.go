package rpcpool

import "time"

// HealthStatus summarises the pool for the /health endpoint.
type HealthStatus struct {
	Network        string           `json:"network"`
	TotalEndpoints int              `json:"total_endpoints"`
	HealthyCount   int              `json:"healthy_count"`
	DegradedCount  int              `json:"degraded_count"`
	UnhealthyCount int              `json:"unhealthy_count"`
	ExcludedCount  int              `json:"excluded_count"`
	Strategy       string           `json:"strategy"`
	Endpoints      []EndpointStatus `json:"endpoints"`
}

// EndpointStatus represents the status of a single endpoint
type EndpointStatus struct {
	URL                 string    `json:"url"`
	State               string    `json:"state"`
	HealthScore         float64   `json:"health_score"`
	AverageLatencyMs    int64     `json:"average_latency_ms"`
	Requests            uint64    `json:"requests"`
	Failures            uint64    `json:"failures"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastUsed            time.Time `json:"last_used"`
	LastError           string    `json:"last_error,omitempty"`
}

// Available reports whether at least one endpoint can serve requests.
func (s *HealthStatus) Available() bool {
	return s.HealthyCount+s.DegradedCount > 0
}
