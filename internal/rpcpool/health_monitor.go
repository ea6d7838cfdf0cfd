package rpcpool

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// HealthMonitor periodically checks every endpoint of a Manager. Connected
// endpoints are pinged. Endpoints without a connection are redialled, and
// excluded endpoints are probed once their recovery interval has passed.
type HealthMonitor struct {
	manager  *Manager
	checker  HealthChecker
	logger   zerolog.Logger
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewHealthMonitor creates a new health monitor
func NewHealthMonitor(manager *Manager, checker HealthChecker, logger zerolog.Logger) *HealthMonitor {
	return &HealthMonitor{
		manager: manager,
		checker: checker,
		logger:  logger.With().Str("component", "health_monitor").Logger(),
		stopCh:  make(chan struct{}),
	}
}

// SetHealthChecker replaces the checker. Call before Run.
func (h *HealthMonitor) SetHealthChecker(checker HealthChecker) {
	h.checker = checker
}

// Run checks all endpoints immediately and then on every interval tick.
func (h *HealthMonitor) Run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	interval := h.manager.config.HealthCheckInterval()
	h.logger.Info().Dur("interval", interval).Msg("starting health monitor")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	h.CheckAll(ctx)

	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Msg("health monitor stopping: context cancelled")
			return
		case <-h.stopCh:
			h.logger.Info().Msg("health monitor stopping: stop signal received")
			return
		case <-ticker.C:
			h.CheckAll(ctx)
		}
	}
}

// Stop stops the health monitor. It is safe to call more than once.
func (h *HealthMonitor) Stop() {
	h.stopOnce.Do(func() { close(h.stopCh) })
}

// CheckAll runs one round of checks across all endpoints concurrently.
func (h *HealthMonitor) CheckAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, ep := range h.manager.Endpoints() {
		ep := ep
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.check(ctx, ep)
		}()
	}
	wg.Wait()
}

func (h *HealthMonitor) check(ctx context.Context, ep *Endpoint) {
	cfg := h.manager.config

	if ep.State() == StateExcluded && ep.excludedFor() < cfg.RecoveryInterval() {
		return
	}

	client := ep.Client()
	if client == nil {
		if err := h.manager.dial(ctx, ep); err != nil {
			h.logger.Debug().Str("url", ep.URL).Err(err).Msg("redial failed")
		}
		return
	}

	checkCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout())
	defer cancel()

	start := time.Now()
	err := h.checker.CheckHealth(checkCtx, client)
	latency := time.Since(start)

	if ep.State() == StateExcluded {
		h.attemptRecovery(ep, err)
		return
	}

	h.manager.UpdateEndpointMetrics(ep, err == nil, latency, err)
	if err != nil {
		h.logger.Warn().
			Str("url", ep.URL).
			Dur("latency", latency).
			Err(err).
			Int("consecutive_failures", ep.Metrics().ConsecutiveFailures()).
			Msg("endpoint health check failed")
		return
	}
	h.logger.Debug().
		Str("url", ep.URL).
		Dur("latency", latency).
		Float64("health_score", ep.Metrics().HealthScore()).
		Msg("endpoint health check passed")
}

func (h *HealthMonitor) attemptRecovery(ep *Endpoint, err error) {
	if err != nil {
		ep.extendExclusion()
		h.logger.Warn().Str("url", ep.URL).Err(err).Msg("endpoint recovery failed, extending exclusion period")
		return
	}
	ep.recover()
	h.logger.Info().Str("url", ep.URL).Msg("endpoint recovered, promoted to degraded state")
}
