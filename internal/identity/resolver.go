// Package identity turns on-chain identity records into display names.
//
// Resolution is pure: callers first gather the records they need into a
// Lookup (see Fetch and Snapshot) and then call Resolve for each account.
package identity

import (
	"strings"

	"github.com/stakerank/stakerank/internal/types"
)

// Kind classifies how a display name was obtained.
type Kind int

const (
	// KindUnresolved means no usable identity exists; the raw address is shown.
	KindUnresolved Kind = iota
	// KindNamed means the account carries its own identity.
	KindNamed
	// KindSub means the name was derived from a parent identity plus a sub label.
	KindSub
)

func (k Kind) String() string {
	switch k {
	case KindNamed:
		return "named"
	case KindSub:
		return "sub"
	default:
		return "unresolved"
	}
}

// Resolved is the outcome of resolving one account.
type Resolved struct {
	kind Kind
	name string
}

// Unresolved is the "no identity" outcome.
var Unresolved = Resolved{}

// Named returns a resolved outcome carrying name.
func Named(name string) Resolved {
	return Resolved{kind: KindNamed, name: name}
}

// subNamed joins parent and sub as "parent/sub". An empty sub label keeps
// just the parent name.
func subNamed(parent, sub string) Resolved {
	if sub == "" {
		return Resolved{kind: KindSub, name: parent}
	}
	return Resolved{kind: KindSub, name: parent + "/" + sub}
}

// Kind reports how the name was obtained.
func (r Resolved) Kind() Kind { return r.kind }

// IsNamed is false only for Unresolved.
func (r Resolved) IsNamed() bool { return r.kind != KindUnresolved }

// Name returns the resolved display name, empty when unresolved.
func (r Resolved) Name() string { return r.name }

// Display returns the name to show for account. Unresolved accounts fall
// back to their own address.
func (r Resolved) Display(account types.Account) string {
	if !r.IsNamed() {
		return string(account)
	}
	return r.name
}

// Lookup answers identity questions about already-fetched chain state.
type Lookup interface {
	IdentityOf(account types.Account) (types.IdentityRecord, bool)
	SuperOf(account types.Account) (types.SuperPointer, bool)
}

// Resolve computes the display identity of account.
//
// A super pointer is followed at most once. When the parent has no identity
// the result is Unresolved and the sub label is dropped. A sub-identity
// without a readable label shows the parent name alone.
func Resolve(account types.Account, lookup Lookup) Resolved {
	if sup, ok := lookup.SuperOf(account); ok {
		parent, ok := lookup.IdentityOf(sup.Parent)
		if !ok {
			return Unresolved
		}
		return subNamed(Sanitize(parent.Display), sup.SubName)
	}

	rec, ok := lookup.IdentityOf(account)
	if !ok {
		return Unresolved
	}
	return Named(Sanitize(rec.Display))
}

// ResolveAll resolves every account and returns the results keyed by account.
func ResolveAll(accounts []types.Account, lookup Lookup) map[types.Account]Resolved {
	out := make(map[types.Account]Resolved, len(accounts))
	for _, a := range accounts {
		out[a] = Resolve(a, lookup)
	}
	return out
}

var displayReplacer = strings.NewReplacer("\n", "", "\x00", "")

// Sanitize strips embedded newlines and NUL bytes from raw display bytes.
func Sanitize(raw []byte) string {
	return displayReplacer.Replace(string(raw))
}
