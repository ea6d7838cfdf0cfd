package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stakerank/stakerank/internal/types"
)

func TestResolve(t *testing.T) {
	snap := NewSnapshot()
	snap.AddIdentity("A", types.IdentityRecord{Display: []byte("Alice\n\x00")})
	snap.AddSuper("B", types.SuperPointer{Parent: "A", SubName: "Validator1"})
	snap.AddSuper("D", types.SuperPointer{Parent: "X", SubName: "Orphan"})
	snap.AddIdentity("E", types.IdentityRecord{Display: nil})
	snap.AddSuper("F", types.SuperPointer{Parent: "A", SubName: ""})

	testCases := []struct {
		name    string
		account types.Account
		kind    Kind
		display string
	}{
		{name: "own identity is sanitized", account: "A", kind: KindNamed, display: "Alice"},
		{name: "sub identity joins parent and label", account: "B", kind: KindSub, display: "Alice/Validator1"},
		{name: "no record falls back to address", account: "C", kind: KindUnresolved, display: "C"},
		{name: "sub with unknown parent is unresolved", account: "D", kind: KindUnresolved, display: "D"},
		{name: "empty display is still a name", account: "E", kind: KindNamed, display: ""},
		{name: "sub without label shows parent only", account: "F", kind: KindSub, display: "Alice"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := Resolve(tc.account, snap)
			assert.Equal(t, tc.kind, r.Kind())
			assert.Equal(t, tc.display, r.Display(tc.account))
		})
	}
}

func TestResolve_SuperCycleDoesNotLoop(t *testing.T) {
	snap := NewSnapshot()
	snap.AddSuper("A", types.SuperPointer{Parent: "B", SubName: "a"})
	snap.AddSuper("B", types.SuperPointer{Parent: "A", SubName: "b"})
	snap.AddIdentity("B", types.IdentityRecord{Display: []byte("Bob")})

	assert.Equal(t, "Bob/a", Resolve("A", snap).Name())
	assert.Equal(t, Unresolved, Resolve("B", snap))
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "Alice", Sanitize([]byte("Al\nice\x00")))
	assert.Equal(t, "tab\tkept", Sanitize([]byte("tab\tkept")))
	assert.Equal(t, "", Sanitize(nil))
}

func TestResolveAll(t *testing.T) {
	snap := NewSnapshot()
	snap.AddIdentity("A", types.IdentityRecord{Display: []byte("Alice")})

	out := ResolveAll([]types.Account{"A", "C"}, snap)

	assert.Len(t, out, 2)
	assert.Equal(t, "Alice", out["A"].Display("A"))
	assert.False(t, out["C"].IsNamed())
	assert.Equal(t, "unresolved", out["C"].Kind().String())
}
