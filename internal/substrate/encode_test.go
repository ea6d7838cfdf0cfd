package substrate

import (
	"encoding/binary"
	"math/big"
)

// Test helpers producing SCALE bytes for the layouts the client decodes.

func compact(n int) []byte {
	switch {
	case n < 1<<6:
		return []byte{byte(n << 2)}
	case n < 1<<14:
		return binary.LittleEndian.AppendUint16(nil, uint16(n<<2|1))
	default:
		return binary.LittleEndian.AppendUint32(nil, uint32(n<<2|2))
	}
}

func u32(v uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, v)
}

func u128(v *big.Int) []byte {
	be := v.FillBytes(make([]byte, 16))
	out := make([]byte, 16)
	for i := range be {
		out[i] = be[15-i]
	}
	return out
}

func u128Int(v int64) []byte {
	return u128(big.NewInt(v))
}

func accountID(b byte) AccountID {
	var id AccountID
	for i := range id {
		id[i] = b
	}
	return id
}

func accountVec(ids ...AccountID) []byte {
	out := compact(len(ids))
	for _, id := range ids {
		out = append(out, id[:]...)
	}
	return out
}

func rawData(s string) []byte {
	return append([]byte{byte(len(s) + 1)}, s...)
}

func accountInfo(counters int, free, reserved, misc, fee *big.Int) []byte {
	var out []byte
	for i := 0; i < counters; i++ {
		out = append(out, u32(uint32(i+1))...)
	}
	for _, v := range []*big.Int{free, reserved, misc, fee} {
		out = append(out, u128(v)...)
	}
	return out
}

func nominations(targets ...AccountID) []byte {
	out := accountVec(targets...)
	out = append(out, u32(42)...)
	return append(out, 0)
}

type judgement struct {
	registrar uint32
	kind      byte
	fee       int64
}

func registration(judgements []judgement, additional [][2]string, display []byte) []byte {
	out := compact(len(judgements))
	for _, j := range judgements {
		out = append(out, u32(j.registrar)...)
		out = append(out, j.kind)
		if j.kind == 1 {
			out = append(out, u128Int(j.fee)...)
		}
	}
	out = append(out, u128Int(1000)...)
	out = append(out, compact(len(additional))...)
	for _, kv := range additional {
		out = append(out, rawData(kv[0])...)
		out = append(out, rawData(kv[1])...)
	}
	out = append(out, display...)
	// legal, web, riot, email: None
	out = append(out, 0, 0, 0, 0)
	// pgp fingerprint: None
	out = append(out, 0)
	// image, twitter: None
	return append(out, 0, 0)
}

func superOf(parent AccountID, name []byte) []byte {
	return append(append([]byte{}, parent[:]...), name...)
}
