package cache

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/stakerank/stakerank/internal/report"
)

// Fetcher produces a fresh report.
type Fetcher func(ctx context.Context) (*report.Report, error)

// Observer is notified of every refresh attempt.
type Observer interface {
	CacheRefreshed(result string)
}

// Refresh results reported to the Observer.
const (
	ResultOK    = "ok"
	ResultStale = "stale"
	ResultError = "error"
)

// Entry is a cached report and when it was fetched.
type Entry struct {
	Report    *report.Report
	FetchedAt time.Time
}

// ReportCache keeps the last generated report for ttl. Concurrent callers
// that find it expired share a single refresh. When a refresh fails the
// previous report is served stale.
type ReportCache struct {
	mu    sync.RWMutex
	entry Entry

	fetch    Fetcher
	ttl      time.Duration
	group    singleflight.Group
	observer Observer
	now      func() time.Time
	logger   zerolog.Logger
}

// New creates an empty cache. observer may be nil.
func New(fetch Fetcher, ttl time.Duration, observer Observer, logger zerolog.Logger) *ReportCache {
	return &ReportCache{
		fetch:    fetch,
		ttl:      ttl,
		observer: observer,
		now:      time.Now,
		logger:   logger.With().Str("component", "report_cache").Logger(),
	}
}

// Peek returns the cached entry without refreshing it.
func (c *ReportCache) Peek() (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entry, c.entry.Report != nil
}

// LastUpdated returns when the cached report was fetched.
func (c *ReportCache) LastUpdated() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entry.FetchedAt
}

// Get returns a fresh report, refreshing when the cached one is older than
// ttl. A refresh error is returned only when there is nothing stale to serve.
func (c *ReportCache) Get(ctx context.Context) (Entry, error) {
	if e, ok := c.Peek(); ok && c.now().Sub(e.FetchedAt) < c.ttl {
		return e, nil
	}

	ch := c.group.DoChan("report", func() (interface{}, error) {
		return c.refresh(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return Entry{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Entry{}, res.Err
		}
		return res.Val.(Entry), nil
	}
}

// Refresh forces a new fetch regardless of age.
func (c *ReportCache) Refresh(ctx context.Context) (Entry, error) {
	v, err, _ := c.group.Do("report", func() (interface{}, error) {
		return c.refresh(ctx)
	})
	if err != nil {
		return Entry{}, err
	}
	return v.(Entry), nil
}

func (c *ReportCache) refresh(ctx context.Context) (Entry, error) {
	rep, err := c.fetch(ctx)
	if err != nil {
		stale, ok := c.Peek()
		if ok {
			c.observe(ResultStale)
			c.logger.Warn().Err(err).Time("fetched_at", stale.FetchedAt).Msg("refresh failed, serving stale report")
			return stale, nil
		}
		c.observe(ResultError)
		c.logger.Error().Err(err).Msg("refresh failed, no report cached")
		return Entry{}, err
	}

	e := Entry{Report: rep, FetchedAt: c.now()}
	c.mu.Lock()
	c.entry = e
	c.mu.Unlock()

	c.observe(ResultOK)
	c.logger.Info().
		Int("active", len(rep.Active)).
		Int("waiting", len(rep.Waiting)).
		Msg("report cache refreshed")
	return e, nil
}

func (c *ReportCache) observe(result string) {
	if c.observer != nil {
		c.observer.CacheRefreshed(result)
	}
}

// Run refreshes the cache every ttl until ctx is done.
func (c *ReportCache) Run(ctx context.Context) {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		if _, err := c.Refresh(ctx); err != nil {
			c.logger.Debug().Err(err).Msg("background refresh failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
