package report

import (
	"cosmossdk.io/math"

	"github.com/stakerank/stakerank/internal/balance"
	"github.com/stakerank/stakerank/internal/types"
)

// ValidatorAggregate is the per-validator tally built from nominations.
type ValidatorAggregate struct {
	Name               string   `json:"name"`
	Nominators         int      `json:"nominators"`
	TotalBondedBalance math.Int `json:"totalBondedBalance"`
}

// Aggregates holds the per-validator tallies split by session membership.
type Aggregates struct {
	Active  map[types.Account]*ValidatorAggregate
	Waiting map[types.Account]*ValidatorAggregate

	// Edges counts (nominator, validator) pairs that passed the validator filter.
	Edges int
	// BalanceMisses counts edges whose nominator had no indexed balance.
	BalanceMisses int
}

// Aggregate joins nomination edges against the validator set and the
// balance index.
//
// Targets outside validators are ignored. A target in active lands in the
// active map, every other validator in the waiting map. Each edge adds one
// nominator and the nominator's rounded bonded balance; nominators without
// an indexed balance add zero. names supplies the display name stored when a
// validator is first seen; a missing name falls back to the address.
func Aggregate(
	edges []types.NominationEdge,
	validators types.AccountSet,
	active types.AccountSet,
	idx *balance.Index,
	names map[types.Account]string,
) Aggregates {
	agg := Aggregates{
		Active:  make(map[types.Account]*ValidatorAggregate),
		Waiting: make(map[types.Account]*ValidatorAggregate),
	}

	for _, edge := range edges {
		for _, target := range edge.Targets {
			if !validators.Contains(target) {
				continue
			}

			dest := agg.Waiting
			if active.Contains(target) {
				dest = agg.Active
			}

			entry, ok := dest[target]
			if !ok {
				name, named := names[target]
				if !named {
					name = string(target)
				}
				entry = &ValidatorAggregate{Name: name, TotalBondedBalance: math.ZeroInt()}
				dest[target] = entry
			}

			bonded, found := idx.Rounded(edge.Nominator)
			if !found {
				agg.BalanceMisses++
			}

			entry.Nominators++
			entry.TotalBondedBalance = entry.TotalBondedBalance.Add(bonded)
			agg.Edges++
		}
	}

	return agg
}
