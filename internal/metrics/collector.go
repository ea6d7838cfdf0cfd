package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stakerank/stakerank/internal/report"
)

// Collector records report pipeline metrics on its own registry, so several
// collectors can coexist in one process.
type Collector struct {
	registry *prometheus.Registry

	queryDuration       *prometheus.HistogramVec
	queryErrors         *prometheus.CounterVec
	identityResolutions *prometheus.CounterVec
	balanceMisses       prometheus.Counter
	reportValidators    *prometheus.GaugeVec
	lastGenerated       prometheus.Gauge
	cacheRefreshes      *prometheus.CounterVec
}

var _ report.Metrics = (*Collector)(nil)

// NewCollector creates a Collector. Go runtime and process collectors are
// registered alongside the pipeline metrics.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		queryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespaceStakerank,
			Subsystem: subsystemChain,
			Name:      "query_duration_seconds",
			Help:      "duration of one chain storage query",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{LabelQuery}),
		queryErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceStakerank,
			Subsystem: subsystemChain,
			Name:      "query_errors_total",
			Help:      "number of failed chain storage queries",
		}, []string{LabelQuery}),
		identityResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceStakerank,
			Subsystem: subsystemReport,
			Name:      "identity_resolutions_total",
			Help:      "validator identity resolutions by outcome",
		}, []string{LabelOutcome}),
		balanceMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespaceStakerank,
			Subsystem: subsystemReport,
			Name:      "balance_misses_total",
			Help:      "nomination edges whose nominator had no indexed balance",
		}),
		reportValidators: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespaceStakerank,
			Subsystem: subsystemReport,
			Name:      "validators",
			Help:      "validators in the last generated report",
		}, []string{LabelSection}),
		lastGenerated: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespaceStakerank,
			Subsystem: subsystemReport,
			Name:      "last_generated_timestamp_seconds",
			Help:      "unix time of the last generated report",
		}),
		cacheRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceStakerank,
			Subsystem: subsystemCache,
			Name:      "refreshes_total",
			Help:      "report cache refreshes by result",
		}, []string{LabelResult}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.queryDuration,
		c.queryErrors,
		c.identityResolutions,
		c.balanceMisses,
		c.reportValidators,
		c.lastGenerated,
		c.cacheRefreshes,
	)
	return c
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) ObserveQuery(query string, d time.Duration, err error) {
	c.queryDuration.WithLabelValues(query).Observe(d.Seconds())
	if err != nil {
		c.queryErrors.WithLabelValues(query).Inc()
	}
}

func (c *Collector) IdentityResolved(outcome string) {
	c.identityResolutions.WithLabelValues(outcome).Inc()
}

func (c *Collector) BalanceMisses(n int) {
	if n > 0 {
		c.balanceMisses.Add(float64(n))
	}
}

func (c *Collector) ReportGenerated(active, waiting int, at time.Time) {
	c.reportValidators.WithLabelValues(report.SectionActive).Set(float64(active))
	c.reportValidators.WithLabelValues(report.SectionWaiting).Set(float64(waiting))
	c.lastGenerated.Set(float64(at.Unix()))
}

// CacheRefreshed counts a report cache refresh; result is "ok", "stale" or "error".
func (c *Collector) CacheRefreshed(result string) {
	c.cacheRefreshes.WithLabelValues(result).Inc()
}
