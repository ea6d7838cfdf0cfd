package api

import (
	"time"

	"github.com/stakerank/stakerank/internal/report"
	"github.com/stakerank/stakerank/internal/rpcpool"
	"github.com/stakerank/stakerank/internal/types"
)

// QueryResponse represents the standard query response format
type QueryResponse struct {
	Data        interface{} `json:"data"`
	LastFetched time.Time   `json:"last_fetched"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status      string                `json:"status"`
	LastFetched time.Time             `json:"last_fetched"`
	Pool        *rpcpool.HealthStatus `json:"pool,omitempty"`
}

// ValidatorResponse is one validator's ranked entry. Rank starts at 1
// within its section.
type ValidatorResponse struct {
	Validator types.Account `json:"validator"`
	Section   string        `json:"section"`
	Rank      int           `json:"rank"`
	report.ValidatorAggregate
}
