package ss58

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	alicePub  = "d43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d"
	aliceAddr = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"
)

func alice(t *testing.T) []byte {
	t.Helper()
	pub, err := hex.DecodeString(alicePub)
	require.NoError(t, err)
	return pub
}

func TestEncode_KnownVector(t *testing.T) {
	addr, err := Encode(alice(t), TernoaPrefix)
	require.NoError(t, err)
	assert.Equal(t, aliceAddr, addr)
}

func TestDecode_KnownVector(t *testing.T) {
	pub, prefix, err := Decode(aliceAddr)
	require.NoError(t, err)
	assert.Equal(t, TernoaPrefix, prefix)
	assert.Equal(t, alicePub, hex.EncodeToString(pub))
}

func TestEncodeDecode_Prefixes(t *testing.T) {
	for _, prefix := range []uint16{0, 2, 42, 63, 64, 255, 1284, MaxPrefix} {
		addr, err := Encode(alice(t), prefix)
		require.NoError(t, err, "prefix %d", prefix)

		pub, got, err := Decode(addr)
		require.NoError(t, err, "prefix %d", prefix)
		assert.Equal(t, prefix, got)
		assert.Equal(t, alice(t), pub)
	}
}

func TestEncode_Errors(t *testing.T) {
	_, err := Encode(make([]byte, 31), TernoaPrefix)
	assert.Error(t, err)

	_, err = Encode(alice(t), MaxPrefix+1)
	assert.Error(t, err)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		address string
	}{
		{"empty", ""},
		{"not base58", "0OIl"},
		{"bad checksum", aliceAddr[:len(aliceAddr)-1] + "Z"},
		{"too short", "5GrwvaEF5zXb26Fz9rcQ"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode(tt.address)
			assert.Error(t, err)
		})
	}
}

func TestDecodeWithPrefix(t *testing.T) {
	_, err := DecodeWithPrefix(aliceAddr, TernoaPrefix)
	require.NoError(t, err)

	_, err = DecodeWithPrefix(aliceAddr, 0)
	assert.ErrorContains(t, err, "prefix 42")
}

func TestMustEncode(t *testing.T) {
	var pub [PublicKeyLength]byte
	copy(pub[:], alice(t))
	assert.Equal(t, aliceAddr, MustEncode(pub, TernoaPrefix))
}
