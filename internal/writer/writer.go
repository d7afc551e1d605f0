package writer

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/podping/podping-go/internal/hive"
	"github.com/podping/podping-go/internal/notice"
)

// ErrPostFailed wraps submission failures downstream of validation.
var ErrPostFailed = errors.New("post notification failed")

// DryRunTrxID is the sentinel transaction id reported for dry runs.
const DryRunTrxID = "dry_run"

// Result reports an accepted notice.
type Result struct {
	TrxID    string
	BlockNum uint64
}

// Writer posts content-update notices for one account. Each instance
// carries a fixed session id generated at construction.
type Writer struct {
	account   string
	broadcast hive.Broadcaster
	dryRun    bool
	sessionID uint64
	log       *slog.Logger
}

type Option func(*Writer)

// WithDryRun makes Post log intent and return a sentinel result without
// contacting the network.
func WithDryRun(enabled bool) Option {
	return func(w *Writer) { w.dryRun = enabled }
}

// WithLogger sets the writer logger.
func WithLogger(log *slog.Logger) Option {
	return func(w *Writer) { w.log = log }
}

func New(account string, broadcaster hive.Broadcaster, opts ...Option) (*Writer, error) {
	if account == "" {
		return nil, errors.New("account is required")
	}
	u := uuid.New()
	w := &Writer{
		account:   account,
		broadcast: broadcaster,
		sessionID: binary.BigEndian.Uint64(u[8:]),
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// SessionID returns the per-instance session identifier.
func (w *Writer) SessionID() uint64 {
	return w.sessionID
}

// PostURL posts a single URL, normalized to a one-element list.
func (w *Writer) PostURL(ctx context.Context, url, reason, medium string) (*Result, error) {
	return w.Post(ctx, []string{url}, reason, medium)
}

// Post validates and posts a notice for urls. Empty reason and medium
// default to "update" and "podcast". Validation failures surface before any
// network action; submission failures come back wrapped in ErrPostFailed.
func (w *Writer) Post(ctx context.Context, urls []string, reason, medium string) (*Result, error) {
	if reason == "" {
		reason = notice.ReasonUpdate
	}
	if medium == "" {
		medium = notice.MediumPodcast
	}

	body, tag, err := notice.BuildPayload(urls, reason, medium, w.sessionID)
	if err != nil {
		return nil, err
	}

	if w.dryRun {
		w.log.Info("dry run, would post notification", "urls", len(urls), "tag", tag)
		return &Result{TrxID: DryRunTrxID}, nil
	}

	op := hive.CustomJSONOperation{
		RequiredAuths:        []string{},
		RequiredPostingAuths: []string{w.account},
		ID:                   tag,
		JSON:                 body,
	}

	res, err := w.broadcast.BroadcastCustomJSON(ctx, op)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPostFailed, err)
	}

	w.log.Info("posted notification", "urls", len(urls), "trx", res.ID, "block", res.BlockNum)
	return &Result{TrxID: res.ID, BlockNum: res.BlockNum}, nil
}

// Credits returns the account's remaining resource credit percentage.
// Credit depletion is advisory: a failed query yields 0, never an error.
func (w *Writer) Credits(ctx context.Context) float64 {
	return w.broadcast.AccountRC(ctx, w.account)
}
