package health

import (
	"context"
	"fmt"
)

// HeadClient is the read surface needed to probe node connectivity.
type HeadClient interface {
	HeadBlockNumber(ctx context.Context) (uint64, error)
}

// RPCChecker probes the hive node pool via a head query.
type RPCChecker struct {
	client HeadClient
}

func NewRPCChecker(client HeadClient) *RPCChecker {
	return &RPCChecker{client: client}
}

// Ping succeeds when at least one configured node answers a head query.
func (c *RPCChecker) Ping(ctx context.Context) error {
	if _, err := c.client.HeadBlockNumber(ctx); err != nil {
		return fmt.Errorf("hive head query: %w", err)
	}
	return nil
}
