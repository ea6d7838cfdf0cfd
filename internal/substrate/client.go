// Package substrate reads the staking, session, identity and balance state
// of a Substrate chain over websocket RPC and converts it into the typed
// records the report pipeline consumes.
package substrate

import (
	"context"
	"fmt"
	"time"

	"cosmossdk.io/math"
	"github.com/rs/zerolog"

	chainerrors "github.com/stakerank/stakerank/internal/errors"
	"github.com/stakerank/stakerank/internal/report"
	"github.com/stakerank/stakerank/internal/rpcpool"
	"github.com/stakerank/stakerank/internal/ss58"
	"github.com/stakerank/stakerank/internal/types"
)

// maxBatchSize is the largest count a node serves from state_getKeysPaged.
const maxBatchSize = 1000

// Options configures a Client.
type Options struct {
	// SS58Prefix is the address format accounts are rendered in.
	SS58Prefix uint16
	// BalanceField selects the AccountData field read as bonded stake.
	BalanceField string
	// BatchSize bounds keys per page and per batched value query. Values
	// above maxBatchSize are capped.
	BatchSize int
	// RequestTimeout bounds each individual RPC call. Zero means no bound
	// beyond the caller's context.
	RequestTimeout time.Duration
}

func (o *Options) applyDefaults() {
	if o.BalanceField == "" {
		o.BalanceField = "misc_frozen"
	}
	if o.BatchSize <= 0 || o.BatchSize > maxBatchSize {
		o.BatchSize = maxBatchSize
	}
}

// Client reads chain state from one node.
type Client struct {
	api    storageAPI
	url    string
	opts   Options
	logger zerolog.Logger
}

var (
	_ report.ChainSource = (*Client)(nil)
	_ rpcpool.Client     = (*Client)(nil)
)

// Dial connects to the node at url.
func Dial(ctx context.Context, url string, opts Options, logger zerolog.Logger) (*Client, error) {
	if _, err := balanceSlot(opts.BalanceField); err != nil {
		return nil, chainerrors.NewConfigError("invalid balance field", err)
	}

	api, err := dialGSRPC(ctx, url)
	if err != nil {
		return nil, chainerrors.Classify(err, url, "connect")
	}
	c := newClient(api, url, opts, logger)
	c.logger.Info().Msg("connected to node")
	return c, nil
}

// Factory returns an rpcpool.ClientFactory that dials Clients with opts.
func Factory(opts Options, logger zerolog.Logger) rpcpool.ClientFactory {
	return func(ctx context.Context, url string) (rpcpool.Client, error) {
		return Dial(ctx, url, opts, logger)
	}
}

func newClient(api storageAPI, url string, opts Options, logger zerolog.Logger) *Client {
	opts.applyDefaults()
	return &Client{
		api:    api,
		url:    url,
		opts:   opts,
		logger: logger.With().Str("component", "substrate_client").Str("url", url).Logger(),
	}
}

// URL returns the node url.
func (c *Client) URL() string { return c.url }

// Close releases the connection.
func (c *Client) Close() error {
	c.api.Close()
	return nil
}

// Ping checks that the node answers system_health.
func (c *Client) Ping(ctx context.Context) error {
	return c.rpc(ctx, "system_health", func(ctx context.Context) error {
		return c.api.Health(ctx)
	})
}

// Chain returns the chain name reported by the node.
func (c *Client) Chain(ctx context.Context) (string, error) {
	var name string
	err := c.rpc(ctx, "system_chain", func(ctx context.Context) (err error) {
		name, err = c.api.Chain(ctx)
		return err
	})
	return name, err
}

// FetchAllBalances enumerates System.Account and returns the configured
// balance field of every account.
func (c *Client) FetchAllBalances(ctx context.Context) ([]types.RawBalance, error) {
	var out []types.RawBalance
	err := c.entries(ctx, SystemAccount, func(id AccountID, raw []byte) error {
		amount, err := decodeAccountBalance(raw, c.opts.BalanceField)
		if err != nil {
			return err
		}
		out = append(out, types.RawBalance{Account: c.account(id), Amount: math.NewIntFromBigInt(amount)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FetchNominators enumerates Staking.Nominators.
func (c *Client) FetchNominators(ctx context.Context) ([]types.NominationEdge, error) {
	var out []types.NominationEdge
	err := c.entries(ctx, StakingNominators, func(id AccountID, raw []byte) error {
		targets, err := decodeNominationTargets(raw)
		if err != nil {
			return err
		}
		edge := types.NominationEdge{Nominator: c.account(id), Targets: make([]types.Account, len(targets))}
		for i, t := range targets {
			edge.Targets[i] = c.account(t)
		}
		out = append(out, edge)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FetchValidators lists the keys of Staking.Validators.
func (c *Client) FetchValidators(ctx context.Context) ([]types.Account, error) {
	keys, err := c.keys(ctx, StakingValidators)
	if err != nil {
		return nil, err
	}

	out := make([]types.Account, 0, len(keys))
	for _, key := range keys {
		id, ok := accountFromKey(key)
		if !ok {
			return nil, chainerrors.NewDecodeError(c.url, fmt.Sprintf("%s key too short", StakingValidators), nil)
		}
		out = append(out, c.account(id))
	}
	return out, nil
}

// FetchActiveSessionValidators reads Session.Validators.
func (c *Client) FetchActiveSessionValidators(ctx context.Context) ([]types.Account, error) {
	raw, ok, err := c.value(ctx, SessionValidators.Prefix())
	if err != nil || !ok {
		return nil, err
	}

	ids, err := decodeAccountIDs(raw)
	if err != nil {
		return nil, chainerrors.NewDecodeError(c.url, SessionValidators.String(), err)
	}
	out := make([]types.Account, len(ids))
	for i, id := range ids {
		out[i] = c.account(id)
	}
	return out, nil
}

// FetchIdentity reads Identity.IdentityOf for account.
func (c *Client) FetchIdentity(ctx context.Context, account types.Account) (types.IdentityRecord, bool, error) {
	id, err := c.accountID(account)
	if err != nil {
		return types.IdentityRecord{}, false, err
	}

	raw, ok, err := c.value(ctx, IdentityOf.Key(id))
	if err != nil || !ok {
		return types.IdentityRecord{}, false, err
	}

	display, err := decodeIdentityDisplay(raw)
	if err != nil {
		return types.IdentityRecord{}, false, chainerrors.NewDecodeError(c.url, IdentityOf.String(), err).
			WithContext("account", string(account))
	}
	return types.IdentityRecord{Display: display}, true, nil
}

// FetchSuper reads Identity.SuperOf for account.
func (c *Client) FetchSuper(ctx context.Context, account types.Account) (types.SuperPointer, bool, error) {
	id, err := c.accountID(account)
	if err != nil {
		return types.SuperPointer{}, false, err
	}

	raw, ok, err := c.value(ctx, SuperOf.Key(id))
	if err != nil || !ok {
		return types.SuperPointer{}, false, err
	}

	parent, name, err := decodeSuperOf(raw)
	if err != nil {
		return types.SuperPointer{}, false, chainerrors.NewDecodeError(c.url, SuperOf.String(), err).
			WithContext("account", string(account))
	}
	return types.SuperPointer{Parent: c.account(parent), SubName: name}, true, nil
}

func (c *Client) account(id AccountID) types.Account {
	return types.Account(ss58.MustEncode(id, c.opts.SS58Prefix))
}

func (c *Client) accountID(account types.Account) (AccountID, error) {
	pub, _, err := ss58.Decode(string(account))
	if err != nil {
		return AccountID{}, chainerrors.WrapChainError(err, chainerrors.ErrCodeValidation, "", "invalid account "+string(account))
	}
	var id AccountID
	copy(id[:], pub)
	return id, nil
}

// keys pages through every key under item's prefix.
func (c *Client) keys(ctx context.Context, item StorageItem) ([][]byte, error) {
	prefix := item.Prefix()
	var (
		all   [][]byte
		start []byte
	)
	for {
		var page [][]byte
		err := c.rpc(ctx, "state_getKeysPaged", func(ctx context.Context) (err error) {
			page, err = c.api.KeysPaged(ctx, prefix, c.opts.BatchSize, start)
			return err
		})
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < c.opts.BatchSize {
			break
		}
		start = page[len(page)-1]
	}

	c.logger.Debug().Str("item", item.String()).Int("keys", len(all)).Msg("storage keys listed")
	return all, nil
}

// entries lists every entry of a map and hands each decoded account id and
// raw value to fn, in key order. Keys whose value vanished between listing
// and reading are skipped.
func (c *Client) entries(ctx context.Context, item StorageItem, fn func(AccountID, []byte) error) error {
	keys, err := c.keys(ctx, item)
	if err != nil {
		return err
	}

	for begin := 0; begin < len(keys); begin += c.opts.BatchSize {
		batch := keys[begin:min(begin+c.opts.BatchSize, len(keys))]

		var values map[string][]byte
		err := c.rpc(ctx, "state_queryStorageAt", func(ctx context.Context) (err error) {
			values, err = c.api.QueryStorageAt(ctx, batch)
			return err
		})
		if err != nil {
			return err
		}

		for _, key := range batch {
			raw, ok := values[hexKey(key)]
			if !ok {
				continue
			}
			id, ok := accountFromKey(key)
			if !ok {
				return chainerrors.NewDecodeError(c.url, item.String()+" key too short", nil)
			}
			if err := fn(id, raw); err != nil {
				return chainerrors.NewDecodeError(c.url, item.String(), err).
					WithContext("key", hexKey(key))
			}
		}
	}
	return nil
}

func (c *Client) value(ctx context.Context, key []byte) ([]byte, bool, error) {
	var (
		raw []byte
		ok  bool
	)
	err := c.rpc(ctx, "state_getStorage", func(ctx context.Context) (err error) {
		raw, ok, err = c.api.Storage(ctx, key)
		return err
	})
	return raw, ok, err
}

// rpc runs one node call under the per-request timeout and classifies its
// failure.
func (c *Client) rpc(ctx context.Context, method string, fn func(context.Context) error) error {
	if c.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.RequestTimeout)
		defer cancel()
	}

	start := time.Now()
	if err := fn(ctx); err != nil {
		c.logger.Debug().Err(err).Str("method", method).Dur("took", time.Since(start)).Msg("rpc failed")
		return chainerrors.Classify(err, c.url, method)
	}
	return nil
}
