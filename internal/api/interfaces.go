package api

import (
	"context"
	"time"

	"github.com/stakerank/stakerank/internal/cache"
	"github.com/stakerank/stakerank/internal/rpcpool"
)

// ReportSource serves the latest ranked report.
type ReportSource interface {
	Get(ctx context.Context) (cache.Entry, error)
	LastUpdated() time.Time
}

// PoolStatus reports node connection health.
type PoolStatus interface {
	HealthStatus() *rpcpool.HealthStatus
}
