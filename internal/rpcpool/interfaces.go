package rpcpool

import (
	"context"
)

// Client is a live connection to one node.
type Client interface {
	// Ping performs a basic health check on the client
	Ping(ctx context.Context) error

	// Close closes the client connection
	Close() error
}

// ClientFactory dials url. The substrate package provides the real one.
type ClientFactory func(ctx context.Context, url string) (Client, error)

// HealthChecker decides whether a connected endpoint is usable.
type HealthChecker interface {
	CheckHealth(ctx context.Context, client Client) error
}

// PingChecker is a HealthChecker that calls Client.Ping.
type PingChecker struct{}

// CheckHealth implements HealthChecker.
func (PingChecker) CheckHealth(ctx context.Context, client Client) error {
	return client.Ping(ctx)
}
