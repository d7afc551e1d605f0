package hive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/podping/podping-go/internal/metrics"
)

// ErrAllNodesFailed is returned once every configured node has been tried
// in the current rotation without success.
var ErrAllNodesFailed = errors.New("all hive nodes failed")

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      int    `json:"id"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Pool issues JSON-RPC calls against an ordered list of equivalent Hive
// nodes. The rotation index is sticky: it stays on the node that served the
// last successful call and only advances on failure. A single logical call
// tries each node at most once before giving up with ErrAllNodesFailed.
//
// The index is plain state; callers must not share one Pool across
// concurrent calls.
type Pool struct {
	nodes   []string
	idx     int
	backoff time.Duration
	client  *http.Client
	log     *slog.Logger
	metrics *metrics.Metrics
}

type PoolOption func(*Pool)

// WithBackoff sets the fixed wait between node attempts.
func WithBackoff(d time.Duration) PoolOption {
	return func(p *Pool) { p.backoff = d }
}

// WithHTTPClient overrides the transport, including its timeout.
func WithHTTPClient(c *http.Client) PoolOption {
	return func(p *Pool) { p.client = c }
}

// WithLogger sets the pool logger.
func WithLogger(log *slog.Logger) PoolOption {
	return func(p *Pool) { p.log = log }
}

// WithMetrics enables failover counting.
func WithMetrics(m *metrics.Metrics) PoolOption {
	return func(p *Pool) { p.metrics = m }
}

// NewPool builds a pool over the given node URLs.
func NewPool(nodes []string, opts ...PoolOption) (*Pool, error) {
	if len(nodes) == 0 {
		return nil, errors.New("at least one node is required")
	}
	p := &Pool{
		nodes:   append([]string(nil), nodes...),
		backoff: 100 * time.Millisecond,
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Nodes returns the configured node list.
func (p *Pool) Nodes() []string {
	return append([]string(nil), p.nodes...)
}

// Call sends one JSON-RPC request, rotating through nodes on failure. A
// transport error, an HTTP error status, a malformed response, and a
// response carrying an error field all count as node failures. params may be
// nil for parameterless condenser calls.
func (p *Pool) Call(ctx context.Context, method string, params any, result any) error {
	if params == nil {
		params = []any{}
	}
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", Method: method, Params: params, ID: 1})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < len(p.nodes); attempt++ {
		node := p.nodes[p.idx]
		lastErr = p.try(ctx, node, body, result)
		if lastErr == nil {
			return nil
		}

		p.log.Debug("hive node failed", "node", node, "method", method, "error", lastErr)
		p.metrics.NodeFailovers()
		p.idx = (p.idx + 1) % len(p.nodes)

		if p.backoff > 0 {
			select {
			case <-time.After(p.backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return fmt.Errorf("%w: last node error: %w", ErrAllNodesFailed, lastErr)
}

func (p *Pool) try(ctx context.Context, node string, body []byte, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, node, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("rpc status %d", resp.StatusCode)
	}

	var rr rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if rr.Error != nil {
		return fmt.Errorf("rpc error: %s", rr.Error.Message)
	}

	if result != nil {
		if err := json.Unmarshal(rr.Result, result); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
	}
	return nil
}
