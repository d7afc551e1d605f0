package hive

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeLayout is the zone-less UTC timestamp format used by condenser
// responses and transaction expirations.
const TimeLayout = "2006-01-02T15:04:05"

// CustomJSONType is the operation kind carrying podping notices.
const CustomJSONType = "custom_json"

// DynamicGlobalProperties is the subset of
// condenser_api.get_dynamic_global_properties this system reads.
type DynamicGlobalProperties struct {
	HeadBlockNumber uint64 `json:"head_block_number"`
	HeadBlockID     string `json:"head_block_id"`
	Time            string `json:"time"`
}

// Block is a condenser-form block.
type Block struct {
	Timestamp      string        `json:"timestamp"`
	TransactionIDs []string      `json:"transaction_ids"`
	Transactions   []Transaction `json:"transactions"`
}

// Time parses the block timestamp as UTC.
func (b *Block) Time() (time.Time, error) {
	t, err := time.Parse(TimeLayout, b.Timestamp)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse block timestamp %q: %w", b.Timestamp, err)
	}
	return t.UTC(), nil
}

type Transaction struct {
	Operations []Operation `json:"operations"`
}

// Operation is a condenser-form operation, serialized on the wire as a
// [name, body] pair.
type Operation struct {
	Type string
	Body json.RawMessage
}

func (o *Operation) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("operation pair: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("operation pair: expected 2 elements, got %d", len(pair))
	}
	if err := json.Unmarshal(pair[0], &o.Type); err != nil {
		return fmt.Errorf("operation type: %w", err)
	}
	o.Body = pair[1]
	return nil
}

func (o Operation) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{o.Type, o.Body})
}

// CustomJSON decodes the operation body when the operation is custom_json.
func (o Operation) CustomJSON() (*CustomJSONOperation, error) {
	if o.Type != CustomJSONType {
		return nil, fmt.Errorf("operation is %q, not %s", o.Type, CustomJSONType)
	}
	var op CustomJSONOperation
	if err := json.Unmarshal(o.Body, &op); err != nil {
		return nil, fmt.Errorf("decode custom_json body: %w", err)
	}
	return &op, nil
}

// CustomJSONOperation is the application-defined data-carrying operation.
type CustomJSONOperation struct {
	RequiredAuths        []string `json:"required_auths"`
	RequiredPostingAuths []string `json:"required_posting_auths"`
	ID                   string   `json:"id"`
	JSON                 string   `json:"json"`
}

// Operation wraps the custom_json fields into a condenser operation pair.
func (c CustomJSONOperation) Operation() (Operation, error) {
	body, err := json.Marshal(c)
	if err != nil {
		return Operation{}, fmt.Errorf("marshal custom_json: %w", err)
	}
	return Operation{Type: CustomJSONType, Body: body}, nil
}

// UnsignedTransaction is the envelope submitted to the broadcast surface.
type UnsignedTransaction struct {
	RefBlockNum    uint16      `json:"ref_block_num"`
	RefBlockPrefix uint32      `json:"ref_block_prefix"`
	Expiration     string      `json:"expiration"`
	Operations     []Operation `json:"operations"`
	Extensions     []any       `json:"extensions"`
}

type SignedTransaction struct {
	UnsignedTransaction
	Signatures []string `json:"signatures"`
}

// BroadcastResult reports the accepted transaction.
type BroadcastResult struct {
	ID       string `json:"id"`
	BlockNum uint64 `json:"block_num"`
}

// Int64String accepts both JSON numbers and numeric strings; rc_api encodes
// large values as strings.
type Int64String int64

func (v *Int64String) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*v = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("parse int64 %q: %w", s, err)
	}
	*v = Int64String(n)
	return nil
}
