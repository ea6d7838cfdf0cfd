// Package balance indexes bonded balances by account in display units.
package balance

import (
	"cosmossdk.io/math"

	"github.com/stakerank/stakerank/internal/types"
)

// Precision is the number of decimals between the chain's base unit and
// its display unit. Raw amounts are divided by 10^Precision (10e17).
const Precision = 18

var half = math.LegacyNewDecWithPrec(5, 1)

// Index maps accounts to their bonded balance. Zero balances are absent.
type Index struct {
	amounts map[types.Account]math.LegacyDec
}

// Build indexes entries. Entries with a nil or zero raw amount are skipped
// and the first entry seen for an account wins.
func Build(entries []types.RawBalance) *Index {
	idx := &Index{amounts: make(map[types.Account]math.LegacyDec, len(entries))}
	for _, e := range entries {
		if e.Amount.IsNil() || e.Amount.IsZero() {
			continue
		}
		if _, seen := idx.amounts[e.Account]; seen {
			continue
		}
		idx.amounts[e.Account] = ToDisplay(e.Amount)
	}
	return idx
}

// Len returns the number of indexed accounts.
func (i *Index) Len() int {
	if i == nil {
		return 0
	}
	return len(i.amounts)
}

// Lookup returns the display-unit balance of account.
func (i *Index) Lookup(account types.Account) (math.LegacyDec, bool) {
	if i == nil {
		return math.LegacyDec{}, false
	}
	amt, ok := i.amounts[account]
	return amt, ok
}

// Rounded returns the balance of account rounded to the nearest whole unit.
// Absent accounts yield zero and false.
func (i *Index) Rounded(account types.Account) (math.Int, bool) {
	amt, ok := i.Lookup(account)
	if !ok {
		return math.ZeroInt(), false
	}
	return RoundHalfUp(amt), true
}

// ToDisplay scales a raw base-unit amount to display units without loss.
func ToDisplay(raw math.Int) math.LegacyDec {
	return math.LegacyNewDecFromBigIntWithPrec(raw.BigInt(), Precision)
}

// RoundHalfUp rounds a non-negative amount to the nearest integer, with
// halves rounding up.
func RoundHalfUp(d math.LegacyDec) math.Int {
	return d.Add(half).TruncateInt()
}
