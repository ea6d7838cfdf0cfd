package substrate

import (
	"bytes"
	"encoding/hex"
	"math/big"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
	"github.com/pkg/errors"
)

const (
	u128Length = 16
	// accountDataLength is free, reserved and two frozen balances, all u128.
	accountDataLength = 4 * u128Length

	maxVecLength = 1 << 20
)

// decoder wraps the SCALE decoder with the handful of primitives the
// storage layouts below need.
type decoder struct {
	*scale.Decoder
}

func newDecoder(raw []byte) *decoder {
	return &decoder{Decoder: scale.NewDecoder(bytes.NewReader(raw))}
}

func (d *decoder) u32() (uint32, error) {
	var v uint32
	err := d.Decode(&v)
	return v, err
}

func (d *decoder) u128() (*big.Int, error) {
	buf := make([]byte, u128Length)
	if err := d.Read(buf); err != nil {
		return nil, err
	}
	// little endian on the wire
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return new(big.Int).SetBytes(buf), nil
}

func (d *decoder) length() (int, error) {
	n, err := d.DecodeUintCompact()
	if err != nil {
		return 0, err
	}
	if !n.IsInt64() || n.Int64() > maxVecLength {
		return 0, errors.Errorf("vector length %s out of range", n)
	}
	return int(n.Int64()), nil
}

func (d *decoder) accountID() (AccountID, error) {
	var id AccountID
	err := d.Read(id[:])
	return id, err
}

func (d *decoder) accountIDs() ([]AccountID, error) {
	n, err := d.length()
	if err != nil {
		return nil, errors.Wrap(err, "length")
	}
	out := make([]AccountID, n)
	for i := range out {
		if out[i], err = d.accountID(); err != nil {
			return nil, errors.Wrapf(err, "account %d", i)
		}
	}
	return out, nil
}

// data decodes the identity pallet's Data enum. Raw payloads are returned
// as-is; hash variants are rendered as 0x-prefixed hex; None is empty.
func (d *decoder) data() ([]byte, error) {
	tag, err := d.ReadOneByte()
	if err != nil {
		return nil, err
	}
	switch {
	case tag == 0:
		return nil, nil
	case tag == 1:
		return []byte{}, nil
	case tag <= 33:
		buf := make([]byte, tag-1)
		if err := d.Read(buf); err != nil {
			return nil, err
		}
		return buf, nil
	case tag <= 37:
		buf := make([]byte, 32)
		if err := d.Read(buf); err != nil {
			return nil, err
		}
		return []byte("0x" + hex.EncodeToString(buf)), nil
	default:
		return nil, errors.Errorf("unknown Data variant %d", tag)
	}
}

// decodeAccountBalance reads one balance field out of System.Account's
// AccountInfo. The header before AccountData holds three or four u32
// counters depending on the runtime version.
func decodeAccountBalance(raw []byte, field string) (*big.Int, error) {
	header := len(raw) - accountDataLength
	if header != 12 && header != 16 {
		return nil, errors.Errorf("unexpected AccountInfo length %d", len(raw))
	}

	slot, err := balanceSlot(field)
	if err != nil {
		return nil, err
	}
	d := newDecoder(raw[header+slot*u128Length:])
	return d.u128()
}

func balanceSlot(field string) (int, error) {
	switch field {
	case "free":
		return 0, nil
	case "reserved":
		return 1, nil
	case "misc_frozen", "":
		return 2, nil
	case "fee_frozen":
		return 3, nil
	default:
		return 0, errors.Errorf("unknown balance field %q", field)
	}
}

// decodeNominationTargets reads the targets of a Staking.Nominators entry.
func decodeNominationTargets(raw []byte) ([]AccountID, error) {
	targets, err := newDecoder(raw).accountIDs()
	return targets, errors.Wrap(err, "nomination targets")
}

// decodeAccountIDs reads a plain Vec<AccountId>, as stored in Session.Validators.
func decodeAccountIDs(raw []byte) ([]AccountID, error) {
	return newDecoder(raw).accountIDs()
}

// decodeIdentityDisplay reads info.display from an Identity.IdentityOf
// Registration. Anything after display is ignored, which also covers
// runtimes that store a (Registration, Option<Username>) tuple.
func decodeIdentityDisplay(raw []byte) ([]byte, error) {
	d := newDecoder(raw)

	judgements, err := d.length()
	if err != nil {
		return nil, errors.Wrap(err, "judgements")
	}
	for i := 0; i < judgements; i++ {
		if _, err := d.u32(); err != nil {
			return nil, errors.Wrapf(err, "judgement %d registrar", i)
		}
		kind, err := d.ReadOneByte()
		if err != nil {
			return nil, errors.Wrapf(err, "judgement %d", i)
		}
		// FeePaid carries the fee
		if kind == 1 {
			if _, err := d.u128(); err != nil {
				return nil, errors.Wrapf(err, "judgement %d fee", i)
			}
		}
	}

	if _, err := d.u128(); err != nil {
		return nil, errors.Wrap(err, "deposit")
	}

	additional, err := d.length()
	if err != nil {
		return nil, errors.Wrap(err, "additional fields")
	}
	for i := 0; i < 2*additional; i++ {
		if _, err := d.data(); err != nil {
			return nil, errors.Wrapf(err, "additional field %d", i/2)
		}
	}

	display, err := d.data()
	return display, errors.Wrap(err, "display")
}

// decodeSuperOf reads an Identity.SuperOf entry: the parent account and the
// sub-identity label. Non-raw labels yield an empty name, which identity
// resolution renders as the parent name alone.
func decodeSuperOf(raw []byte) (AccountID, string, error) {
	d := newDecoder(raw)

	parent, err := d.accountID()
	if err != nil {
		return AccountID{}, "", errors.Wrap(err, "parent")
	}

	tag := byte(0)
	if len(raw) > AccountIDLength {
		tag = raw[AccountIDLength]
	}
	name, err := d.data()
	if err != nil {
		return AccountID{}, "", errors.Wrap(err, "sub name")
	}
	if tag == 0 || tag > 33 {
		return parent, "", nil
	}
	return parent, string(name), nil
}
