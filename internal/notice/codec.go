package notice

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"time"

	"github.com/podping/podping-go/internal/hive"
)

const (
	// WireVersion is the payload format written by this library.
	WireVersion = "1.1"
	// LegacyVersion is assumed for payloads without a version field.
	LegacyVersion = "1.0"
	// LegacyTag is the untagged operation id used by v1.0 writers.
	LegacyTag = "podping"
	// MaxPayloadBytes is the protocol ceiling on a custom_json body. The
	// check runs before submission; the network would reject it anyway.
	MaxPayloadBytes = 8192
)

var (
	ErrInvalidURL      = errors.New("invalid url")
	ErrPayloadTooLarge = errors.New("payload too large")
)

var tagPattern = regexp.MustCompile(`^(pp_.*_.*|podping)$`)

// IsNoticeTag reports whether an operation id marks a podping notice.
func IsNoticeTag(id string) bool {
	return tagPattern.MatchString(id)
}

// Tag formats the operation id for a tagged notice.
func Tag(medium, reason string) string {
	return fmt.Sprintf("pp_%s_%s", medium, reason)
}

type wirePayload struct {
	Version     string   `json:"version"`
	Medium      string   `json:"medium"`
	Reason      string   `json:"reason"`
	IRIs        []string `json:"iris"`
	TimestampNs int64    `json:"timestampNs"`
	SessionID   uint64   `json:"sessionId"`
}

// BuildPayload validates urls, serializes the wire payload as compact JSON,
// and returns the body plus the operation id tag. No network action is
// taken; validation failures surface before any submission.
func BuildPayload(urls []string, reason, medium string, sessionID uint64) (body, tag string, err error) {
	for _, u := range urls {
		if err := validateIRI(u); err != nil {
			return "", "", fmt.Errorf("%w: %q: %v", ErrInvalidURL, u, err)
		}
	}

	raw, err := json.Marshal(wirePayload{
		Version:     WireVersion,
		Medium:      medium,
		Reason:      reason,
		IRIs:        urls,
		TimestampNs: time.Now().UTC().UnixNano(),
		SessionID:   sessionID,
	})
	if err != nil {
		return "", "", fmt.Errorf("marshal payload: %w", err)
	}
	if len(raw) > MaxPayloadBytes {
		return "", "", fmt.Errorf("%w: %d bytes exceeds %d", ErrPayloadTooLarge, len(raw), MaxPayloadBytes)
	}

	return string(raw), Tag(medium, reason), nil
}

func validateIRI(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme == "" {
		return errors.New("missing scheme")
	}
	if u.Host == "" && u.Opaque == "" {
		return errors.New("missing host")
	}
	return nil
}

// stringList accepts either a JSON array of strings or a bare string.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = stringList{s}
		return nil
	}
	var ss []string
	if err := json.Unmarshal(data, &ss); err != nil {
		return err
	}
	*l = ss
	return nil
}

type decodedPayload struct {
	Version string     `json:"version"`
	Medium  string     `json:"medium"`
	Reason  string     `json:"reason"`
	IRIs    stringList `json:"iris"`
	URLs    stringList `json:"urls"`
}

// Extractor decodes notifications out of blocks. Failures are isolated per
// operation: one malformed operation never aborts the rest of the block.
type Extractor struct {
	log *slog.Logger
}

func NewExtractor(log *slog.Logger) *Extractor {
	if log == nil {
		log = slog.Default()
	}
	return &Extractor{log: log}
}

// Extract returns every notification carried by the block, in transaction
// order then operation order.
func (e *Extractor) Extract(block *hive.Block, blockNum uint64) []Notification {
	if block == nil {
		return nil
	}

	ts, err := block.Time()
	if err != nil {
		e.log.Debug("skip block with bad timestamp", "block", blockNum, "error", err)
		return nil
	}

	var out []Notification
	for txIdx, tx := range block.Transactions {
		for _, op := range tx.Operations {
			if op.Type != hive.CustomJSONType {
				continue
			}
			cj, err := op.CustomJSON()
			if err != nil {
				e.log.Debug("skip malformed operation", "block", blockNum, "error", err)
				continue
			}
			if !IsNoticeTag(cj.ID) {
				continue
			}

			var p decodedPayload
			if err := json.Unmarshal([]byte(cj.JSON), &p); err != nil {
				e.log.Debug("skip unparseable notice payload", "block", blockNum, "op_id", cj.ID, "error", err)
				continue
			}

			urls := []string(p.IRIs)
			if len(urls) == 0 {
				urls = []string(p.URLs)
			}
			if len(urls) == 0 {
				continue
			}

			version := p.Version
			if version == "" {
				version = LegacyVersion
			}

			n := Notification{
				URLs:      urls,
				Timestamp: ts,
				Medium:    p.Medium,
				Reason:    p.Reason,
				BlockNum:  blockNum,
				Version:   version,
			}
			if len(cj.RequiredPostingAuths) > 0 {
				n.Account = cj.RequiredPostingAuths[0]
			}
			if txIdx < len(block.TransactionIDs) {
				n.TrxID = block.TransactionIDs[txIdx]
			}
			out = append(out, n)
		}
	}
	return out
}
