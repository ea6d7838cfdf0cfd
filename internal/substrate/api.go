package substrate

import (
	"context"
	"encoding/hex"
	"strings"

	gsrpc "github.com/centrifuge/go-substrate-rpc-client/v4"
	gstypes "github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types/codec"
	"github.com/pkg/errors"
)

// storageAPI is the slice of the node RPC surface the client uses.
type storageAPI interface {
	// KeysPaged lists up to count keys under prefix, starting after startKey.
	KeysPaged(ctx context.Context, prefix []byte, count int, startKey []byte) ([][]byte, error)
	// QueryStorageAt returns the values of keys at the best block. Absent
	// keys are missing from the result.
	QueryStorageAt(ctx context.Context, keys [][]byte) (map[string][]byte, error)
	// Storage reads a single value; ok is false when the key is absent.
	Storage(ctx context.Context, key []byte) (value []byte, ok bool, err error)
	Health(ctx context.Context) error
	Chain(ctx context.Context) (string, error)
	Close()
}

// rpcCaller is the context-aware part of a gsrpc client.Client.
type rpcCaller interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
	Close()
}

// gsrpcAPI adapts a go-substrate-rpc-client connection to storageAPI. Every
// request is bound to its ctx, so a stalled node never holds a caller.
type gsrpcAPI struct {
	rpc rpcCaller
}

func dialGSRPC(ctx context.Context, url string) (*gsrpcAPI, error) {
	type result struct {
		api *gsrpc.SubstrateAPI
		err error
	}
	done := make(chan result, 1)
	go func() {
		api, err := gsrpc.NewSubstrateAPI(url)
		done <- result{api, err}
	}()

	select {
	case <-ctx.Done():
		// close the connection if it shows up after we gave up
		go func() {
			if r := <-done; r.err == nil {
				r.api.Client.Close()
			}
		}()
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}
		return &gsrpcAPI{rpc: r.api.Client}, nil
	}
}

func (g *gsrpcAPI) KeysPaged(ctx context.Context, prefix []byte, count int, startKey []byte) ([][]byte, error) {
	var start interface{}
	if len(startKey) > 0 {
		start = codec.HexEncodeToString(startKey)
	}

	var res []string
	if err := g.rpc.CallContext(ctx, &res, "state_getKeysPaged", codec.HexEncodeToString(prefix), count, start); err != nil {
		return nil, err
	}

	keys := make([][]byte, 0, len(res))
	for _, k := range res {
		b, err := codec.HexDecodeString(k)
		if err != nil {
			return nil, errors.Wrapf(err, "storage key %s", k)
		}
		keys = append(keys, b)
	}
	return keys, nil
}

type storageChangeSet struct {
	Block   string      `json:"block"`
	Changes [][]*string `json:"changes"`
}

func (g *gsrpcAPI) QueryStorageAt(ctx context.Context, keys [][]byte) (map[string][]byte, error) {
	hexKeys := make([]string, len(keys))
	for i, k := range keys {
		hexKeys[i] = codec.HexEncodeToString(k)
	}

	var res []storageChangeSet
	if err := g.rpc.CallContext(ctx, &res, "state_queryStorageAt", hexKeys); err != nil {
		return nil, err
	}

	out := make(map[string][]byte, len(keys))
	for _, set := range res {
		for _, change := range set.Changes {
			if len(change) != 2 || change[0] == nil || change[1] == nil {
				continue
			}
			value, err := codec.HexDecodeString(*change[1])
			if err != nil {
				return nil, errors.Wrapf(err, "storage value of %s", *change[0])
			}
			out[normalizeHexKey(*change[0])] = value
		}
	}
	return out, nil
}

func (g *gsrpcAPI) Storage(ctx context.Context, key []byte) ([]byte, bool, error) {
	var res *string
	if err := g.rpc.CallContext(ctx, &res, "state_getStorage", codec.HexEncodeToString(key)); err != nil {
		return nil, false, err
	}
	if res == nil {
		return nil, false, nil
	}
	value, err := codec.HexDecodeString(*res)
	if err != nil {
		return nil, false, errors.Wrap(err, "storage value")
	}
	return value, true, nil
}

// Health issues system_health directly; the gsrpc System wrapper has no
// context variant.
func (g *gsrpcAPI) Health(ctx context.Context) error {
	var h gstypes.Health
	return g.rpc.CallContext(ctx, &h, "system_health")
}

func (g *gsrpcAPI) Chain(ctx context.Context) (string, error) {
	var name gstypes.Text
	if err := g.rpc.CallContext(ctx, &name, "system_chain"); err != nil {
		return "", err
	}
	return string(name), nil
}

func (g *gsrpcAPI) Close() {
	g.rpc.Close()
}

// hexKey is the map key QueryStorageAt results are indexed by.
func hexKey(key []byte) string {
	return hex.EncodeToString(key)
}

func normalizeHexKey(s string) string {
	return strings.ToLower(strings.TrimPrefix(s, "0x"))
}
