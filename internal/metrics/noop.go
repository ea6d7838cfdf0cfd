package metrics

import (
	"time"

	"github.com/stakerank/stakerank/internal/report"
)

type NoopCollector struct{}

var _ report.Metrics = (*NoopCollector)(nil)

func NewNoopCollector() *NoopCollector {
	return &NoopCollector{}
}

func (nc *NoopCollector) ObserveQuery(query string, d time.Duration, err error) {}
func (nc *NoopCollector) IdentityResolved(outcome string)                       {}
func (nc *NoopCollector) BalanceMisses(n int)                                   {}
func (nc *NoopCollector) ReportGenerated(active, waiting int, at time.Time)     {}
func (nc *NoopCollector) CacheRefreshed(result string)                          {}
