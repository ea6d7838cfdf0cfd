// Package types holds the typed records exchanged between the chain
// collaborator and the report core. Everything that enters the core has
// already been decoded and normalised into these shapes.
package types

import (
	"sort"

	"cosmossdk.io/math"
)

// Account is a chain address in its human-readable (SS58) form.
type Account string

// String implements fmt.Stringer.
func (a Account) String() string { return string(a) }

// AccountSet is an unordered set of accounts.
type AccountSet map[Account]struct{}

// NewAccountSet builds a set from the given accounts. Duplicates collapse.
func NewAccountSet(accounts ...Account) AccountSet {
	s := make(AccountSet, len(accounts))
	for _, a := range accounts {
		s[a] = struct{}{}
	}
	return s
}

// Contains reports whether a is a member of the set. A nil set contains nothing.
func (s AccountSet) Contains(a Account) bool {
	_, ok := s[a]
	return ok
}

// Sorted returns the members in ascending order.
func (s AccountSet) Sorted() []Account {
	out := make([]Account, 0, len(s))
	for a := range s {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IdentityRecord is the on-chain identity registered for an account.
// Display holds the raw display-name bytes exactly as stored.
type IdentityRecord struct {
	Display []byte
}

// SuperPointer marks an account as a sub-identity of Parent, labelled SubName.
type SuperPointer struct {
	Parent  Account
	SubName string
}

// RawBalance is one account's bonded amount in the chain's base unit
// (before scaling to display units).
type RawBalance struct {
	Account Account
	Amount  math.Int
}

// NominationEdge is a nominator together with its ordered target list.
type NominationEdge struct {
	Nominator Account
	Targets   []Account
}
