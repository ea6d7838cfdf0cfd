// Package report builds the ranked nominator report: it pulls raw staking
// state from a ChainSource, resolves validator identities, aggregates
// nominations per validator and ranks the result.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/stakerank/stakerank/internal/balance"
	"github.com/stakerank/stakerank/internal/identity"
	"github.com/stakerank/stakerank/internal/types"
)

// ChainSource provides the raw chain state a report is built from.
type ChainSource interface {
	identity.Source

	FetchAllBalances(ctx context.Context) ([]types.RawBalance, error)
	FetchNominators(ctx context.Context) ([]types.NominationEdge, error)
	FetchValidators(ctx context.Context) ([]types.Account, error)
	FetchActiveSessionValidators(ctx context.Context) ([]types.Account, error)
}

// Metrics receives pipeline observations.
type Metrics interface {
	ObserveQuery(query string, d time.Duration, err error)
	IdentityResolved(outcome string)
	BalanceMisses(n int)
	ReportGenerated(active, waiting int, at time.Time)
}

type noopMetrics struct{}

func (noopMetrics) ObserveQuery(string, time.Duration, error) {}
func (noopMetrics) IdentityResolved(string)                   {}
func (noopMetrics) BalanceMisses(int)                         {}
func (noopMetrics) ReportGenerated(int, int, time.Time)       {}

// Options tunes a Generator.
type Options struct {
	// IdentityConcurrency bounds parallel identity lookups. 1 keeps them sequential.
	IdentityConcurrency int
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// NamedValidator pairs a validator with its display name.
type NamedValidator struct {
	Validator types.Account `json:"validator" yaml:"validator"`
	Name      string        `json:"name" yaml:"name"`
	Resolved  bool          `json:"resolved" yaml:"resolved"`
}

// Generator runs the report pipeline against one ChainSource.
type Generator struct {
	source  ChainSource
	opts    Options
	logger  zerolog.Logger
	metrics Metrics
}

// NewGenerator creates a Generator. The caller owns source's lifecycle.
func NewGenerator(source ChainSource, opts Options, logger zerolog.Logger, metrics Metrics) *Generator {
	if opts.IdentityConcurrency < 1 {
		opts.IdentityConcurrency = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Generator{
		source:  source,
		opts:    opts,
		logger:  logger.With().Str("component", "report_generator").Logger(),
		metrics: metrics,
	}
}

// Generate fetches chain state and builds a ranked report. Every query runs
// to completion before the next starts; the first failure aborts the run.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	start := g.opts.Now()

	var edges []types.NominationEdge
	if err := g.query(ctx, "nominators", func(ctx context.Context) (err error) {
		edges, err = g.source.FetchNominators(ctx)
		return err
	}); err != nil {
		return nil, err
	}

	validatorList, names, err := g.resolveValidators(ctx)
	if err != nil {
		return nil, err
	}

	var activeList []types.Account
	if err := g.query(ctx, "session_validators", func(ctx context.Context) (err error) {
		activeList, err = g.source.FetchActiveSessionValidators(ctx)
		return err
	}); err != nil {
		return nil, err
	}

	var raw []types.RawBalance
	if err := g.query(ctx, "balances", func(ctx context.Context) (err error) {
		raw, err = g.source.FetchAllBalances(ctx)
		return err
	}); err != nil {
		return nil, err
	}
	idx := balance.Build(raw)

	validators := types.NewAccountSet(validatorList...)
	active := types.NewAccountSet(activeList...)

	displayNames := make(map[types.Account]string, len(names))
	resolved := 0
	for _, nv := range names {
		displayNames[nv.Validator] = nv.Name
		if nv.Resolved {
			resolved++
		}
	}

	agg := Aggregate(edges, validators, active, idx, displayNames)
	rep := Rank(agg)
	rep.GeneratedAt = g.opts.Now()
	rep.Stats = Stats{
		Validators:           len(validators),
		ActiveSession:        len(active),
		Nominators:           len(edges),
		Edges:                agg.Edges,
		IndexedBalances:      idx.Len(),
		BalanceMisses:        agg.BalanceMisses,
		ResolvedIdentities:   resolved,
		UnresolvedIdentities: len(names) - resolved,
	}

	g.metrics.BalanceMisses(agg.BalanceMisses)
	g.metrics.ReportGenerated(len(rep.Active), len(rep.Waiting), rep.GeneratedAt)

	g.logger.Info().
		Int("active", len(rep.Active)).
		Int("waiting", len(rep.Waiting)).
		Int("nominators", rep.Stats.Nominators).
		Int("balance_misses", rep.Stats.BalanceMisses).
		Dur("took", rep.GeneratedAt.Sub(start)).
		Msg("report generated")

	return &rep, nil
}

// Identities fetches the validator set and resolves each validator's
// display name, ordered by address.
func (g *Generator) Identities(ctx context.Context) ([]NamedValidator, error) {
	_, names, err := g.resolveValidators(ctx)
	return names, err
}

func (g *Generator) resolveValidators(ctx context.Context) ([]types.Account, []NamedValidator, error) {
	var list []types.Account
	if err := g.query(ctx, "validators", func(ctx context.Context) (err error) {
		list, err = g.source.FetchValidators(ctx)
		return err
	}); err != nil {
		return nil, nil, err
	}

	// Resolve in a stable order so logs and listings are reproducible.
	accounts := types.NewAccountSet(list...).Sorted()

	var snap *identity.Snapshot
	if err := g.query(ctx, "identities", func(ctx context.Context) (err error) {
		snap, err = identity.Fetch(ctx, g.source, accounts, g.opts.IdentityConcurrency)
		return err
	}); err != nil {
		return nil, nil, err
	}

	names := make([]NamedValidator, 0, len(accounts))
	for _, acc := range accounts {
		r := identity.Resolve(acc, snap)
		g.metrics.IdentityResolved(r.Kind().String())
		names = append(names, NamedValidator{
			Validator: acc,
			Name:      r.Display(acc),
			Resolved:  r.IsNamed(),
		})
	}

	g.logger.Debug().Int("validators", len(accounts)).Msg("validator identities resolved")
	return list, names, nil
}

func (g *Generator) query(ctx context.Context, name string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	start := time.Now()
	err := fn(ctx)
	took := time.Since(start)
	g.metrics.ObserveQuery(name, took, err)

	if err != nil {
		g.logger.Error().Err(err).Str("query", name).Dur("took", took).Msg("chain query failed")
		return fmt.Errorf("%s: %w", name, err)
	}
	g.logger.Debug().Str("query", name).Dur("took", took).Msg("chain query completed")
	return nil
}
