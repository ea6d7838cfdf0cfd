package identity

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/stakerank/stakerank/internal/types"
)

// Source fetches identity state for one account at a time.
type Source interface {
	FetchIdentity(ctx context.Context, account types.Account) (types.IdentityRecord, bool, error)
	FetchSuper(ctx context.Context, account types.Account) (types.SuperPointer, bool, error)
}

// Snapshot is a map-backed Lookup. It is safe for concurrent writers.
type Snapshot struct {
	mu         sync.RWMutex
	identities map[types.Account]types.IdentityRecord
	supers     map[types.Account]types.SuperPointer
}

var _ Lookup = (*Snapshot)(nil)

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		identities: make(map[types.Account]types.IdentityRecord),
		supers:     make(map[types.Account]types.SuperPointer),
	}
}

// AddIdentity records the identity of account.
func (s *Snapshot) AddIdentity(account types.Account, rec types.IdentityRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identities[account] = rec
}

// AddSuper records that account is a sub-identity.
func (s *Snapshot) AddSuper(account types.Account, sup types.SuperPointer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.supers[account] = sup
}

// IdentityOf implements Lookup.
func (s *Snapshot) IdentityOf(account types.Account) (types.IdentityRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.identities[account]
	return rec, ok
}

// SuperOf implements Lookup.
func (s *Snapshot) SuperOf(account types.Account) (types.SuperPointer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sup, ok := s.supers[account]
	return sup, ok
}

// Fetch gathers everything Resolve needs for accounts: the super pointer of
// each account and then either the parent's identity or the account's own.
//
// With concurrency <= 1 the lookups run strictly one after another. Higher
// values fan out across accounts; the resulting snapshot is the same.
func Fetch(ctx context.Context, src Source, accounts []types.Account, concurrency int) (*Snapshot, error) {
	snap := NewSnapshot()
	if concurrency < 1 {
		concurrency = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, account := range accounts {
		account := account
		g.Go(func() error {
			return fetchOne(gctx, src, snap, account)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}

func fetchOne(ctx context.Context, src Source, snap *Snapshot, account types.Account) error {
	sup, ok, err := src.FetchSuper(ctx, account)
	if err != nil {
		return fmt.Errorf("super of %s: %w", account, err)
	}

	target := account
	if ok {
		snap.AddSuper(account, sup)
		target = sup.Parent
	}

	rec, ok, err := src.FetchIdentity(ctx, target)
	if err != nil {
		return fmt.Errorf("identity of %s: %w", target, err)
	}
	if ok {
		snap.AddIdentity(target, rec)
	}
	return nil
}
