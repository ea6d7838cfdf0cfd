package substrate

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/crypto/blake2b"
)

// AccountIDLength is the size of a Substrate AccountId32.
const AccountIDLength = 32

// AccountID is a raw 32-byte account id as stored on chain.
type AccountID [AccountIDLength]byte

// twox hashes data with xxh64 under consecutive seeds and concatenates the
// little-endian digests, yielding size bytes.
func twox(data []byte, size int) []byte {
	out := make([]byte, 0, size)
	for seed := uint64(0); len(out) < size; seed++ {
		h := xxhash.NewWithSeed(seed)
		_, _ = h.Write(data)
		out = binary.LittleEndian.AppendUint64(out, h.Sum64())
	}
	return out
}

// Twox128 is the storage hasher used for pallet and item names.
func Twox128(data []byte) []byte {
	return twox(data, 16)
}

// Twox64Concat hashes data with a 64-bit xxhash and appends data itself.
func Twox64Concat(data []byte) []byte {
	return append(twox(data, 8), data...)
}

// Blake2_128Concat hashes data with 128-bit blake2b and appends data itself.
func Blake2_128Concat(data []byte) []byte {
	h, _ := blake2b.New(16, nil)
	h.Write(data)
	return append(h.Sum(nil), data...)
}

// StoragePrefix is the key prefix shared by every entry of pallet.item.
func StoragePrefix(pallet, item string) []byte {
	return append(Twox128([]byte(pallet)), Twox128([]byte(item))...)
}

// Hasher builds the key suffix of a map entry.
type Hasher func([]byte) []byte

// StorageItem names one storage value or map.
type StorageItem struct {
	Pallet string
	Name   string
	Hasher Hasher // nil for plain values
}

// Prefix returns the item's storage prefix.
func (s StorageItem) Prefix() []byte {
	return StoragePrefix(s.Pallet, s.Name)
}

// Key returns the storage key of the entry for account, or the value key
// for plain items.
func (s StorageItem) Key(account AccountID) []byte {
	if s.Hasher == nil {
		return s.Prefix()
	}
	return append(s.Prefix(), s.Hasher(account[:])...)
}

func (s StorageItem) String() string {
	return s.Pallet + "." + s.Name
}

// Storage items read by the report.
var (
	SystemAccount     = StorageItem{Pallet: "System", Name: "Account", Hasher: Blake2_128Concat}
	StakingNominators = StorageItem{Pallet: "Staking", Name: "Nominators", Hasher: Twox64Concat}
	StakingValidators = StorageItem{Pallet: "Staking", Name: "Validators", Hasher: Twox64Concat}
	SessionValidators = StorageItem{Pallet: "Session", Name: "Validators"}
	IdentityOf        = StorageItem{Pallet: "Identity", Name: "IdentityOf", Hasher: Twox64Concat}
	SuperOf           = StorageItem{Pallet: "Identity", Name: "SuperOf", Hasher: Blake2_128Concat}
)

// accountFromKey extracts the account id at the tail of a map key whose
// hasher is a concat hasher.
func accountFromKey(key []byte) (AccountID, bool) {
	var id AccountID
	if len(key) < AccountIDLength {
		return id, false
	}
	copy(id[:], key[len(key)-AccountIDLength:])
	return id, true
}
