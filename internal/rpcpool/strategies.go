package rpcpool

import (
	"math/rand"
	"sync/atomic"

	"github.com/stakerank/stakerank/internal/config"
)

// LoadBalancingStrategy defines how runs are distributed across endpoints
type LoadBalancingStrategy string

const (
	StrategyRoundRobin LoadBalancingStrategy = config.StrategyRoundRobin
	StrategyWeighted   LoadBalancingStrategy = config.StrategyWeighted
)

// EndpointSelector picks the endpoint for the next run.
type EndpointSelector struct {
	strategy LoadBalancingStrategy
	next     atomic.Uint32
	randf    func() float64
}

// NewEndpointSelector creates a selector. Unknown strategies fall back to
// round-robin.
func NewEndpointSelector(strategy LoadBalancingStrategy) *EndpointSelector {
	if strategy != StrategyRoundRobin && strategy != StrategyWeighted {
		strategy = StrategyRoundRobin
	}
	return &EndpointSelector{strategy: strategy, randf: rand.Float64}
}

// SelectEndpoint selects one of candidates, or nil when there are none.
func (s *EndpointSelector) SelectEndpoint(candidates []*Endpoint) *Endpoint {
	switch len(candidates) {
	case 0:
		return nil
	case 1:
		return candidates[0]
	}

	if s.strategy == StrategyWeighted {
		return s.selectWeighted(candidates)
	}
	return s.selectRoundRobin(candidates)
}

// selectRoundRobin starts at the first candidate and cycles in order.
func (s *EndpointSelector) selectRoundRobin(candidates []*Endpoint) *Endpoint {
	i := (s.next.Add(1) - 1) % uint32(len(candidates))
	return candidates[i]
}

// selectWeighted picks with probability proportional to health score.
func (s *EndpointSelector) selectWeighted(candidates []*Endpoint) *Endpoint {
	total := 0.0
	for _, ep := range candidates {
		total += ep.Metrics().HealthScore()
	}
	if total == 0 {
		return s.selectRoundRobin(candidates)
	}

	target := s.randf() * total
	acc := 0.0
	for _, ep := range candidates {
		acc += ep.Metrics().HealthScore()
		if acc >= target {
			return ep
		}
	}
	return candidates[len(candidates)-1]
}

// Strategy returns the configured strategy
func (s *EndpointSelector) Strategy() LoadBalancingStrategy {
	return s.strategy
}
