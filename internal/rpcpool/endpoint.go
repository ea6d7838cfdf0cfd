package rpcpool

import (
	"sync"
	"time"
)

// EndpointState represents the current state of an RPC endpoint
type EndpointState int

const (
	StateHealthy EndpointState = iota
	StateDegraded
	StateUnhealthy
	StateExcluded
)

func (s EndpointState) String() string {
	switch s {
	case StateHealthy:
		return "healthy"
	case StateDegraded:
		return "degraded"
	case StateUnhealthy:
		return "unhealthy"
	case StateExcluded:
		return "excluded"
	default:
		return "unknown"
	}
}

// Usable is true for states that may receive requests.
func (s EndpointState) Usable() bool {
	return s == StateHealthy || s == StateDegraded
}

const (
	fullScore      = 100.0
	recoveredScore = 70.0
)

// EndpointMetrics tracks request outcomes for an endpoint. Report runs take
// minutes, so latency is tracked as an exponential moving average and only
// latencies above slowThreshold cost score.
type EndpointMetrics struct {
	mu                  sync.RWMutex
	totalRequests       uint64
	failedRequests      uint64
	consecutiveFailures int
	averageLatency      time.Duration
	lastError           error
	healthScore         float64
}

const slowThreshold = 2 * time.Minute

func newEndpointMetrics(score float64) *EndpointMetrics {
	return &EndpointMetrics{healthScore: score}
}

// RecordSuccess updates metrics for a successful request
func (m *EndpointMetrics) RecordSuccess(latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalRequests++
	m.consecutiveFailures = 0
	m.observeLatency(latency)
	m.recalculate()
}

// RecordFailure updates metrics for a failed request
func (m *EndpointMetrics) RecordFailure(err error, latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalRequests++
	m.failedRequests++
	m.consecutiveFailures++
	m.lastError = err
	if m.averageLatency > 0 {
		m.observeLatency(latency)
	}
	m.recalculate()
}

func (m *EndpointMetrics) observeLatency(latency time.Duration) {
	if latency <= 0 {
		return
	}
	if m.averageLatency == 0 {
		m.averageLatency = latency
		return
	}
	m.averageLatency = time.Duration(float64(m.averageLatency)*0.8 + float64(latency)*0.2)
}

// recalculate derives a 0-100 score from success rate, consecutive failures
// and latency above slowThreshold.
func (m *EndpointMetrics) recalculate() {
	if m.totalRequests == 0 {
		m.healthScore = fullScore
		return
	}

	score := m.successRate() * fullScore

	if m.averageLatency > slowThreshold {
		over := (m.averageLatency - slowThreshold).Minutes() * 10
		score -= min(over, 20)
	}
	score -= min(float64(m.consecutiveFailures)*15, 60)

	m.healthScore = max(score, 0)
}

func (m *EndpointMetrics) successRate() float64 {
	if m.totalRequests == 0 {
		return 1.0
	}
	return float64(m.totalRequests-m.failedRequests) / float64(m.totalRequests)
}

// HealthScore returns the current health score
func (m *EndpointMetrics) HealthScore() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.healthScore
}

// SuccessRate returns the share of successful requests, 1 before any request.
func (m *EndpointMetrics) SuccessRate() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.successRate()
}

// ConsecutiveFailures returns the current failure streak
func (m *EndpointMetrics) ConsecutiveFailures() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.consecutiveFailures
}

func (m *EndpointMetrics) fill(s *EndpointStatus) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s.HealthScore = m.healthScore
	s.AverageLatencyMs = m.averageLatency.Milliseconds()
	s.Requests = m.totalRequests
	s.Failures = m.failedRequests
	s.ConsecutiveFailures = m.consecutiveFailures
	if m.lastError != nil {
		s.LastError = m.lastError.Error()
	}
}

// Endpoint is one configured node URL together with its connection and
// health bookkeeping.
type Endpoint struct {
	URL string

	mu         sync.RWMutex
	client     Client
	state      EndpointState
	metrics    *EndpointMetrics
	lastUsed   time.Time
	excludedAt time.Time
}

// NewEndpoint creates an endpoint with no client yet.
func NewEndpoint(url string) *Endpoint {
	return &Endpoint{
		URL:     url,
		state:   StateUnhealthy,
		metrics: newEndpointMetrics(fullScore),
	}
}

// SetClient attaches a connected client
func (e *Endpoint) SetClient(client Client) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.client = client
}

// Client returns the connected client, nil before a successful dial.
func (e *Endpoint) Client() Client {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.client
}

// Metrics returns the endpoint's metrics.
func (e *Endpoint) Metrics() *EndpointMetrics {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.metrics
}

// SetState moves the endpoint to state, stamping the exclusion time on entry.
func (e *Endpoint) SetState(state EndpointState) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if state == StateExcluded && e.state != StateExcluded {
		e.excludedAt = time.Now()
	}
	e.state = state
}

// State returns the current state
func (e *Endpoint) State() EndpointState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// IsHealthy returns true if endpoint is in a usable state
func (e *Endpoint) IsHealthy() bool {
	return e.State().Usable()
}

func (e *Endpoint) markUsed() {
	e.mu.Lock()
	e.lastUsed = time.Now()
	e.mu.Unlock()
}

func (e *Endpoint) excludedFor() time.Duration {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return time.Since(e.excludedAt)
}

func (e *Endpoint) extendExclusion() {
	e.mu.Lock()
	e.excludedAt = time.Now()
	e.mu.Unlock()
}

// recover resets the metrics to a moderate score and re-admits the endpoint
// as degraded.
func (e *Endpoint) recover() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.metrics = newEndpointMetrics(recoveredScore)
	e.state = StateDegraded
}

// Status returns a point-in-time view of the endpoint.
func (e *Endpoint) Status() EndpointStatus {
	e.mu.RLock()
	s := EndpointStatus{
		URL:      e.URL,
		State:    e.state.String(),
		LastUsed: e.lastUsed,
	}
	metrics := e.metrics
	e.mu.RUnlock()

	metrics.fill(&s)
	return s
}
