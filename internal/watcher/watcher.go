package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/podping/podping-go/internal/hive"
	"github.com/podping/podping-go/internal/metrics"
	"github.com/podping/podping-go/internal/notice"
)

// ErrAlreadyRunning is returned by Start while a previous Start is active.
var ErrAlreadyRunning = errors.New("watcher already running")

// DefaultPollInterval matches the ledger's block production cadence.
const DefaultPollInterval = 3 * time.Second

// Handler receives one decoded notification. The watcher waits for the
// handler to return before dispatching the next notification; a handler
// error aborts only that invocation.
type Handler func(ctx context.Context, n notice.Notification) error

// ReadClient is the subset of the hive read client the watcher needs.
type ReadClient interface {
	HeadBlockNumber(ctx context.Context) (uint64, error)
	GetBlock(ctx context.Context, n uint64) (*hive.Block, error)
}

// Watcher polls the chain head and scans new blocks for notices. The scan
// cursor lives in memory only: each Start begins at the live head, so blocks
// produced while stopped are never revisited.
//
// A Watcher runs one logical flow; Start must not be called concurrently
// with SetHandler.
type Watcher struct {
	client   ReadClient
	extract  *notice.Extractor
	handler  Handler
	interval time.Duration
	log      *slog.Logger
	metrics  *metrics.Metrics

	running atomic.Bool
	total   atomic.Uint64
}

type Option func(*Watcher)

// WithPollInterval sets the sleep between head checks.
func WithPollInterval(d time.Duration) Option {
	return func(w *Watcher) { w.interval = d }
}

// WithLogger sets the watcher logger.
func WithLogger(log *slog.Logger) Option {
	return func(w *Watcher) { w.log = log }
}

// WithMetrics enables scan counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Watcher) { w.metrics = m }
}

// New builds a watcher dispatching to handler. A nil handler decodes but
// dispatches nothing.
func New(client ReadClient, handler Handler, opts ...Option) *Watcher {
	w := &Watcher{
		client:   client,
		handler:  handler,
		interval: DefaultPollInterval,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.extract = notice.NewExtractor(w.log)
	return w
}

// SetHandler replaces the handler; the last registration wins. There is no
// multi-subscriber fan-out. Must not be called while the watcher runs.
func (w *Watcher) SetHandler(h Handler) {
	w.handler = h
}

// Running reports whether a Start loop is active.
func (w *Watcher) Running() bool {
	return w.running.Load()
}

// TotalUpdates returns the running count of URLs dispatched since Start.
func (w *Watcher) TotalUpdates() uint64 {
	return w.total.Load()
}

// Stop requests a cooperative stop. The loop observes it at the next block
// or sleep boundary; the in-flight block always completes.
func (w *Watcher) Stop() {
	w.running.Store(false)
}

// Start scans from the current head until Stop or context cancellation.
// Per-block failures are absorbed and the cursor still advances; total
// connectivity loss (every node failed) aborts the scan with the error.
func (w *Watcher) Start(ctx context.Context) error {
	if !w.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer w.running.Store(false)

	cursor, err := w.client.HeadBlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("initial head: %w", err)
	}
	w.log.Info("watcher started", "head", cursor)

	for w.running.Load() {
		head, err := w.client.HeadBlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("read head: %w", err)
		}

		for cursor <= head && w.running.Load() {
			n, err := w.processBlock(ctx, cursor)
			if err != nil {
				return fmt.Errorf("block %d: %w", cursor, err)
			}
			w.total.Add(uint64(n))
			w.metrics.BlocksProcessed()
			cursor++
		}

		if !w.sleep(ctx) {
			return nil
		}
	}
	return nil
}

// processBlock returns the number of URLs dispatched for one block. Only
// node-pool exhaustion propagates; everything else is logged and counts as
// zero updates, so a failing block is skipped, never retried.
func (w *Watcher) processBlock(ctx context.Context, num uint64) (int, error) {
	block, err := w.client.GetBlock(ctx, num)
	if err != nil {
		if errors.Is(err, hive.ErrAllNodesFailed) {
			return 0, err
		}
		w.metrics.Errors()
		w.log.Debug("skip block", "block", num, "error", err)
		return 0, nil
	}
	if block == nil {
		return 0, nil
	}

	notices := w.extract.Extract(block, num)
	w.metrics.NoticesDecoded(len(notices))

	dispatched := 0
	for _, n := range notices {
		if w.handler == nil {
			continue
		}
		if err := w.handler(ctx, n); err != nil {
			w.log.Debug("handler failed", "block", num, "trx", n.TrxID, "error", err)
			continue
		}
		dispatched += len(n.URLs)
	}
	w.metrics.URLsDispatched(dispatched)
	return dispatched, nil
}

func (w *Watcher) sleep(ctx context.Context) bool {
	t := time.NewTimer(w.interval)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
