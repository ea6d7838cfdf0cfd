package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/stakerank/stakerank/internal/config"
	"github.com/stakerank/stakerank/internal/logger"
	"github.com/stakerank/stakerank/internal/report"
	"github.com/stakerank/stakerank/internal/rpcpool"
	"github.com/stakerank/stakerank/internal/substrate"
)

const network = "ternoa"

// app wires config, logging and the node pool for one command invocation.
type app struct {
	cfg     config.Config
	logger  zerolog.Logger
	pool    *rpcpool.Manager
	metrics report.Metrics
}

// newApp connects to the configured nodes. Callers must call close.
func newApp(ctx context.Context, cfg config.Config, metrics report.Metrics) (*app, error) {
	log := logger.New(cfg.LogLevel, cfg.LogFormat, cfg.LogSampler)

	factory := substrate.Factory(substrate.Options{
		SS58Prefix:     cfg.SS58Prefix,
		BalanceField:   cfg.BalanceField,
		BatchSize:      cfg.StorageBatchSize,
		RequestTimeout: cfg.RequestTimeout(),
	}, log)

	pool, err := rpcpool.NewManager(network, cfg.NodeURLs, &cfg.RPCPoolConfig, factory, log)
	if err != nil {
		return nil, err
	}
	if err := pool.Start(ctx); err != nil {
		return nil, err
	}

	return &app{cfg: cfg, logger: log, pool: pool, metrics: metrics}, nil
}

func (a *app) close() {
	a.pool.Stop()
}

// withGenerator runs fn against a generator bound to one pool endpoint.
func (a *app) withGenerator(ctx context.Context, fn func(ctx context.Context, g *report.Generator) error) error {
	return a.pool.Run(ctx, func(ctx context.Context, client rpcpool.Client) error {
		src, ok := client.(report.ChainSource)
		if !ok {
			return fmt.Errorf("pool client %T cannot serve chain queries", client)
		}
		g := report.NewGenerator(src, report.Options{IdentityConcurrency: a.cfg.IdentityConcurrency}, a.logger, a.metrics)
		return fn(ctx, g)
	})
}

// generate builds one report.
func (a *app) generate(ctx context.Context) (*report.Report, error) {
	var rep *report.Report
	err := a.withGenerator(ctx, func(ctx context.Context, g *report.Generator) (err error) {
		rep, err = g.Generate(ctx)
		return err
	})
	return rep, err
}

// identities lists the validator display names.
func (a *app) identities(ctx context.Context) ([]report.NamedValidator, error) {
	var names []report.NamedValidator
	err := a.withGenerator(ctx, func(ctx context.Context, g *report.Generator) (err error) {
		names, err = g.Identities(ctx)
		return err
	})
	return names, err
}
