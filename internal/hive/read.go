package hive

import (
	"context"
	"fmt"
)

// ReadClient provides typed read accessors over a node pool.
type ReadClient struct {
	pool *Pool
}

func NewReadClient(pool *Pool) *ReadClient {
	return &ReadClient{pool: pool}
}

// DynamicGlobalProperties fetches the chain's dynamic global properties.
func (c *ReadClient) DynamicGlobalProperties(ctx context.Context) (*DynamicGlobalProperties, error) {
	var props DynamicGlobalProperties
	if err := c.pool.Call(ctx, "condenser_api.get_dynamic_global_properties", nil, &props); err != nil {
		return nil, err
	}
	return &props, nil
}

// HeadBlockNumber returns the current chain head.
func (c *ReadClient) HeadBlockNumber(ctx context.Context) (uint64, error) {
	props, err := c.DynamicGlobalProperties(ctx)
	if err != nil {
		return 0, fmt.Errorf("head block number: %w", err)
	}
	return props.HeadBlockNumber, nil
}

// GetBlock fetches block n. A nil block with a nil error means the node
// reports no block at that height; only node failures return an error.
func (c *ReadClient) GetBlock(ctx context.Context, n uint64) (*Block, error) {
	var block *Block
	if err := c.pool.Call(ctx, "condenser_api.get_block", []any{n}, &block); err != nil {
		return nil, fmt.Errorf("get block %d: %w", n, err)
	}
	return block, nil
}
