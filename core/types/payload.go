package types

import (
	"encoding/json"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// PayloadKind tags the decoded representation of an opaque product/reason
// payload.
type PayloadKind int

const (
	PayloadBytes PayloadKind = iota
	PayloadText
	PayloadJSON
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadBytes:
		return "bytes"
	case PayloadText:
		return "text"
	case PayloadJSON:
		return "json"
	default:
		return "unknown"
	}
}

// Payload is the tagged result of best-effort payload decoding. Raw always
// holds the original bytes; Text is set when they are valid UTF-8; Value is
// set when the text additionally parses as JSON. Kind names the richest
// representation reached.
type Payload struct {
	Kind  PayloadKind
	Raw   []byte
	Text  string
	Value any
}

// DecodePayload attempts raw -> UTF-8 text -> JSON, falling back to the
// previous successful representation at each step. It never fails: invalid
// UTF-8 yields the raw bytes unchanged, and text that is not JSON stays
// text.
func DecodePayload(raw []byte) Payload {
	p := Payload{Kind: PayloadBytes, Raw: raw}

	if !utf8.Valid(raw) {
		return p
	}
	p.Kind = PayloadText
	p.Text = string(raw)

	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return p
	}
	p.Kind = PayloadJSON
	p.Value = value
	return p
}

// EncodePayload converts a caller-supplied memo into wire bytes: nil stays
// nil, bytes pass through, strings are UTF-8 encoded, and anything else is
// JSON-marshaled.
func EncodePayload(v any) ([]byte, error) {
	switch value := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		return value, nil
	case string:
		return []byte(value), nil
	default:
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, errors.Wrap(err, "encode payload")
		}
		return encoded, nil
	}
}
