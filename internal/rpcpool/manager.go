package rpcpool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/stakerank/stakerank/internal/config"
	chainerrors "github.com/stakerank/stakerank/internal/errors"
)

// Manager owns the node connections of one network. Each report run is
// handed one endpoint; the run's outcome feeds that endpoint's health so
// the next run can avoid a failing node. A failed run is never retried.
type Manager struct {
	network       string
	endpoints     []*Endpoint
	selector      *EndpointSelector
	config        *config.RPCPoolConfig
	clientFactory ClientFactory
	logger        zerolog.Logger

	monitor *HealthMonitor
	wg      sync.WaitGroup
}

// NewManager creates a pool for urls. It returns an error when urls is empty.
func NewManager(
	network string,
	urls []string,
	poolConfig *config.RPCPoolConfig,
	clientFactory ClientFactory,
	logger zerolog.Logger,
) (*Manager, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("no node urls configured for %s", network)
	}

	endpoints := make([]*Endpoint, len(urls))
	for i, url := range urls {
		endpoints[i] = NewEndpoint(url)
	}

	m := &Manager{
		network:       network,
		endpoints:     endpoints,
		selector:      NewEndpointSelector(LoadBalancingStrategy(poolConfig.LoadBalancingStrategy)),
		config:        poolConfig,
		clientFactory: clientFactory,
		logger:        logger.With().Str("component", "rpc_pool").Str("network", network).Logger(),
	}
	m.monitor = NewHealthMonitor(m, PingChecker{}, logger)
	return m, nil
}

// Start dials every endpoint. Endpoints that fail to dial stay unhealthy and
// are retried by the health monitor once it runs.
func (m *Manager) Start(ctx context.Context) error {
	m.logger.Info().
		Int("endpoint_count", len(m.endpoints)).
		Str("strategy", string(m.selector.Strategy())).
		Msg("starting RPC pool")

	for _, ep := range m.endpoints {
		if err := m.dial(ctx, ep); err != nil {
			m.logger.Warn().Str("url", ep.URL).Err(err).Msg("failed to connect to endpoint")
		}
	}

	healthy := m.HealthyEndpointCount()
	if healthy < m.config.MinHealthyEndpoints {
		m.closeAll()
		return fmt.Errorf("insufficient healthy endpoints: %d/%d (minimum: %d)",
			healthy, len(m.endpoints), m.config.MinHealthyEndpoints)
	}

	m.logger.Info().
		Int("healthy_endpoints", healthy).
		Int("total_endpoints", len(m.endpoints)).
		Msg("RPC pool started")
	return nil
}

// StartMonitoring runs active health checks until ctx is done or Stop is
// called.
func (m *Manager) StartMonitoring(ctx context.Context) {
	m.wg.Add(1)
	go m.monitor.Run(ctx, &m.wg)
}

// Stop halts monitoring and closes every connection.
func (m *Manager) Stop() {
	m.monitor.Stop()
	m.wg.Wait()
	m.closeAll()
	m.logger.Info().Msg("RPC pool stopped")
}

func (m *Manager) closeAll() {
	for _, ep := range m.endpoints {
		client := ep.Client()
		if client == nil {
			continue
		}
		if err := client.Close(); err != nil {
			m.logger.Warn().Str("url", ep.URL).Err(err).Msg("failed to close client connection")
		}
		ep.SetClient(nil)
	}
}

func (m *Manager) dial(ctx context.Context, ep *Endpoint) error {
	dialCtx, cancel := context.WithTimeout(ctx, m.config.RequestTimeout())
	defer cancel()

	client, err := m.clientFactory(dialCtx, ep.URL)
	if err != nil {
		ep.SetState(StateUnhealthy)
		return fmt.Errorf("failed to connect to %s: %w", ep.URL, err)
	}

	ep.SetClient(client)
	ep.SetState(StateHealthy)
	m.logger.Info().Str("url", ep.URL).Msg("endpoint connected")
	return nil
}

// SelectEndpoint selects a usable endpoint with the configured strategy.
func (m *Manager) SelectEndpoint() (*Endpoint, error) {
	candidates := m.healthyEndpoints()
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no healthy endpoints available for %s", m.network)
	}

	selected := m.selector.SelectEndpoint(candidates)
	selected.markUsed()
	return selected, nil
}

// Run hands fn the client of one selected endpoint and records the outcome
// against that endpoint. fn runs exactly once.
func (m *Manager) Run(ctx context.Context, fn func(ctx context.Context, client Client) error) error {
	ep, err := m.SelectEndpoint()
	if err != nil {
		return err
	}

	start := time.Now()
	err = fn(ctx, ep.Client())
	m.UpdateEndpointMetrics(ep, err == nil, time.Since(start), err)
	return err
}

func (m *Manager) healthyEndpoints() []*Endpoint {
	out := make([]*Endpoint, 0, len(m.endpoints))
	for _, ep := range m.endpoints {
		if ep.IsHealthy() && ep.Client() != nil {
			out = append(out, ep)
		}
	}
	return out
}

// HealthyEndpointCount returns the number of usable endpoints.
func (m *Manager) HealthyEndpointCount() int {
	return len(m.healthyEndpoints())
}

// UpdateEndpointMetrics records the outcome of one request against endpoint
// and moves it between states. Failures that are not the node's fault,
// such as caller cancellation or an invalid address, are not recorded.
func (m *Manager) UpdateEndpointMetrics(endpoint *Endpoint, success bool, latency time.Duration, err error) {
	if !success && !chainerrors.IsNodeFault(err) {
		return
	}

	metrics := endpoint.Metrics()
	if success {
		metrics.RecordSuccess(latency)
		if endpoint.State() == StateDegraded && metrics.SuccessRate() > 0.8 {
			endpoint.SetState(StateHealthy)
			m.logger.Info().
				Str("url", endpoint.URL).
				Float64("success_rate", metrics.SuccessRate()).
				Msg("endpoint promoted to healthy")
		}
		return
	}

	metrics.RecordFailure(err, latency)
	failures := metrics.ConsecutiveFailures()
	switch {
	case failures >= m.config.UnhealthyThreshold:
		if endpoint.State() != StateExcluded {
			endpoint.SetState(StateExcluded)
			m.logger.Warn().
				Str("url", endpoint.URL).
				Int("consecutive_failures", failures).
				Err(err).
				Msg("endpoint excluded due to consecutive failures")
		}
	case endpoint.State() == StateHealthy && metrics.SuccessRate() < 0.5:
		endpoint.SetState(StateDegraded)
		m.logger.Warn().
			Str("url", endpoint.URL).
			Float64("success_rate", metrics.SuccessRate()).
			Msg("endpoint downgraded to degraded")
	}
}

// Endpoints returns a copy of the endpoint list.
func (m *Manager) Endpoints() []*Endpoint {
	out := make([]*Endpoint, len(m.endpoints))
	copy(out, m.endpoints)
	return out
}

// HealthStatus returns a summary of endpoint health
func (m *Manager) HealthStatus() *HealthStatus {
	status := &HealthStatus{
		Network:        m.network,
		TotalEndpoints: len(m.endpoints),
		Strategy:       string(m.selector.Strategy()),
		Endpoints:      make([]EndpointStatus, 0, len(m.endpoints)),
	}

	for _, ep := range m.endpoints {
		switch ep.State() {
		case StateHealthy:
			status.HealthyCount++
		case StateDegraded:
			status.DegradedCount++
		case StateUnhealthy:
			status.UnhealthyCount++
		case StateExcluded:
			status.ExcludedCount++
		}
		status.Endpoints = append(status.Endpoints, ep.Status())
	}
	return status
}
