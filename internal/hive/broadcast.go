package hive

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// MainnetChainID is the Hive mainnet chain identifier mixed into signing
// digests.
const MainnetChainID = "beeab0de00000000000000000000000000000000000000000000000000000000"

const fullRegenSeconds = 5 * 24 * 60 * 60

// Signer produces a signature for an unsigned transaction. The signing
// cryptography lives outside this module; see HTTPSigner for the shipped
// remote-signer implementation.
type Signer interface {
	SignTransaction(ctx context.Context, chainID string, trx *UnsignedTransaction) (string, error)
}

// Broadcaster is the write surface consumed by the notice writer.
type Broadcaster interface {
	BroadcastCustomJSON(ctx context.Context, op CustomJSONOperation) (*BroadcastResult, error)
	AccountRC(ctx context.Context, account string) float64
}

// BroadcastClient assembles transaction envelopes and submits them through
// the node pool.
type BroadcastClient struct {
	pool    *Pool
	signer  Signer
	chainID string
	log     *slog.Logger
	now     func() time.Time
}

type BroadcastOption func(*BroadcastClient)

// WithChainID overrides the chain id (testnets).
func WithChainID(id string) BroadcastOption {
	return func(c *BroadcastClient) { c.chainID = id }
}

// WithBroadcastLogger sets the client logger.
func WithBroadcastLogger(log *slog.Logger) BroadcastOption {
	return func(c *BroadcastClient) { c.log = log }
}

func NewBroadcastClient(pool *Pool, signer Signer, opts ...BroadcastOption) *BroadcastClient {
	c := &BroadcastClient{
		pool:    pool,
		signer:  signer,
		chainID: MainnetChainID,
		log:     slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BroadcastCustomJSON signs and broadcasts a single custom_json operation,
// returning the accepted transaction id and block number.
func (c *BroadcastClient) BroadcastCustomJSON(ctx context.Context, op CustomJSONOperation) (*BroadcastResult, error) {
	if c.signer == nil {
		return nil, errors.New("no signer configured")
	}

	var props DynamicGlobalProperties
	if err := c.pool.Call(ctx, "condenser_api.get_dynamic_global_properties", nil, &props); err != nil {
		return nil, fmt.Errorf("chain properties: %w", err)
	}

	trx, err := buildEnvelope(&props, op)
	if err != nil {
		return nil, err
	}

	sig, err := c.signer.SignTransaction(ctx, c.chainID, trx)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}

	signed := SignedTransaction{
		UnsignedTransaction: *trx,
		Signatures:          []string{sig},
	}

	var res BroadcastResult
	if err := c.pool.Call(ctx, "condenser_api.broadcast_transaction_synchronous", []any{signed}, &res); err != nil {
		return nil, fmt.Errorf("broadcast: %w", err)
	}
	return &res, nil
}

func buildEnvelope(props *DynamicGlobalProperties, op CustomJSONOperation) (*UnsignedTransaction, error) {
	operation, err := op.Operation()
	if err != nil {
		return nil, err
	}

	rawID, err := hex.DecodeString(props.HeadBlockID)
	if err != nil || len(rawID) < 8 {
		return nil, fmt.Errorf("malformed head block id %q", props.HeadBlockID)
	}

	headTime, err := time.Parse(TimeLayout, props.Time)
	if err != nil {
		return nil, fmt.Errorf("parse head time %q: %w", props.Time, err)
	}

	return &UnsignedTransaction{
		RefBlockNum:    uint16(props.HeadBlockNumber & 0xffff),
		RefBlockPrefix: binary.LittleEndian.Uint32(rawID[4:8]),
		Expiration:     headTime.Add(time.Minute).Format(TimeLayout),
		Operations:     []Operation{operation},
		Extensions:     []any{},
	}, nil
}

type rcAccount struct {
	Account   string `json:"account"`
	RCManabar struct {
		CurrentMana    Int64String `json:"current_mana"`
		LastUpdateTime int64       `json:"last_update_time"`
	} `json:"rc_manabar"`
	MaxRC Int64String `json:"max_rc"`
}

// AccountRC returns the account's resource credit percentage (0..100),
// applying manabar regeneration since the last update. Query failures are
// advisory: they log at debug and report 0.
func (c *BroadcastClient) AccountRC(ctx context.Context, account string) float64 {
	var resp struct {
		RCAccounts []rcAccount `json:"rc_accounts"`
	}
	params := map[string]any{"accounts": []string{account}}
	if err := c.pool.Call(ctx, "rc_api.find_rc_accounts", params, &resp); err != nil {
		c.log.Debug("rc query failed", "account", account, "error", err)
		return 0
	}
	if len(resp.RCAccounts) == 0 {
		c.log.Debug("rc account not found", "account", account)
		return 0
	}
	return manabarPercent(resp.RCAccounts[0], c.now())
}

func manabarPercent(acct rcAccount, now time.Time) float64 {
	maxRC := float64(acct.MaxRC)
	if maxRC <= 0 {
		return 0
	}

	elapsed := now.Unix() - acct.RCManabar.LastUpdateTime
	if elapsed < 0 {
		elapsed = 0
	}

	mana := float64(acct.RCManabar.CurrentMana) + maxRC*float64(elapsed)/fullRegenSeconds
	if mana > maxRC {
		mana = maxRC
	}
	return mana / maxRC * 100
}
