// Package ss58 encodes and decodes Substrate SS58 account addresses.
package ss58

import (
	"bytes"
	"fmt"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

const (
	// PublicKeyLength is the size of an sr25519/ed25519 account id.
	PublicKeyLength = 32
	// TernoaPrefix is the address format used by Ternoa mainnet.
	TernoaPrefix uint16 = 42
	// MaxPrefix is the largest network prefix the two-byte form can carry.
	MaxPrefix uint16 = 16383

	checksumLength = 2
)

var checksumPreimage = []byte("SS58PRE")

// Encode returns the SS58 address of a 32-byte public key under prefix.
func Encode(pub []byte, prefix uint16) (string, error) {
	if len(pub) != PublicKeyLength {
		return "", fmt.Errorf("ss58: public key must be %d bytes, got %d", PublicKeyLength, len(pub))
	}
	head, err := prefixBytes(prefix)
	if err != nil {
		return "", err
	}

	payload := make([]byte, 0, len(head)+len(pub)+checksumLength)
	payload = append(payload, head...)
	payload = append(payload, pub...)
	payload = append(payload, checksum(payload)...)
	return base58.Encode(payload), nil
}

// MustEncode is Encode for inputs known to be valid.
func MustEncode(pub [PublicKeyLength]byte, prefix uint16) string {
	addr, err := Encode(pub[:], prefix)
	if err != nil {
		panic(err)
	}
	return addr
}

// Decode parses an SS58 address and returns its public key and prefix.
func Decode(address string) ([]byte, uint16, error) {
	raw, err := base58.Decode(address)
	if err != nil {
		return nil, 0, fmt.Errorf("ss58: invalid base58: %w", err)
	}
	if len(raw) < 1 {
		return nil, 0, fmt.Errorf("ss58: empty address")
	}

	var (
		prefix  uint16
		headLen int
	)
	switch {
	case raw[0] < 64:
		prefix, headLen = uint16(raw[0]), 1
	case raw[0] < 128:
		if len(raw) < 2 {
			return nil, 0, fmt.Errorf("ss58: truncated prefix")
		}
		lower := (raw[0] << 2) | (raw[1] >> 6)
		upper := raw[1] & 0x3f
		prefix, headLen = uint16(lower)|uint16(upper)<<8, 2
	default:
		return nil, 0, fmt.Errorf("ss58: reserved prefix byte %d", raw[0])
	}

	if len(raw) != headLen+PublicKeyLength+checksumLength {
		return nil, 0, fmt.Errorf("ss58: unexpected address length %d", len(raw))
	}

	body := raw[:len(raw)-checksumLength]
	if !bytes.Equal(checksum(body), raw[len(raw)-checksumLength:]) {
		return nil, 0, fmt.Errorf("ss58: checksum mismatch")
	}

	pub := make([]byte, PublicKeyLength)
	copy(pub, body[headLen:])
	return pub, prefix, nil
}

// DecodeWithPrefix decodes address and rejects it unless it carries prefix.
func DecodeWithPrefix(address string, prefix uint16) ([]byte, error) {
	pub, got, err := Decode(address)
	if err != nil {
		return nil, err
	}
	if got != prefix {
		return nil, fmt.Errorf("ss58: address prefix %d, want %d", got, prefix)
	}
	return pub, nil
}

func prefixBytes(prefix uint16) ([]byte, error) {
	switch {
	case prefix < 64:
		return []byte{byte(prefix)}, nil
	case prefix <= MaxPrefix:
		first := byte((prefix&0xfc)>>2) | 0x40
		second := byte(prefix>>8) | byte(prefix&0x03)<<6
		return []byte{first, second}, nil
	default:
		return nil, fmt.Errorf("ss58: prefix %d out of range", prefix)
	}
}

func checksum(body []byte) []byte {
	h, _ := blake2b.New512(nil)
	h.Write(checksumPreimage)
	h.Write(body)
	return h.Sum(nil)[:checksumLength]
}
