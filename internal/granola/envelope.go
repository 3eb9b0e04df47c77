package granola

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// EnvelopeDecoder recognizes one on-disk representation of the cache field.
// Decode returns ok=false when the raw value is not in its shape, leaving the
// next decoder in the chain to try.
type EnvelopeDecoder interface {
	Name() string
	Decode(raw json.RawMessage) (payload map[string]json.RawMessage, ok bool, err error)
}

// DefaultDecoders is the detector chain used when a Reader is built without
// an explicit one.
var DefaultDecoders = []EnvelopeDecoder{
	encodedStringDecoder{},
	objectDecoder{},
}

// encodedStringDecoder handles cache values stored as a JSON string that
// itself contains a JSON document.
type encodedStringDecoder struct{}

func (encodedStringDecoder) Name() string { return "encoded-string" }

func (encodedStringDecoder) Decode(raw json.RawMessage) (map[string]json.RawMessage, bool, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '"' {
		return nil, false, nil
	}
	var inner string
	if err := json.Unmarshal(trimmed, &inner); err != nil {
		return nil, true, fmt.Errorf("decode cache string: %w", err)
	}
	payload, err := decodeObject([]byte(inner))
	if err != nil {
		return nil, true, fmt.Errorf("decode embedded cache: %w", err)
	}
	return payload, true, nil
}

// objectDecoder handles cache values stored as a native JSON object.
type objectDecoder struct{}

func (objectDecoder) Name() string { return "object" }

func (objectDecoder) Decode(raw json.RawMessage) (map[string]json.RawMessage, bool, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false, nil
	}
	payload, err := decodeObject(trimmed)
	if err != nil {
		return nil, true, err
	}
	return payload, true, nil
}

func decodeObject(data []byte) (map[string]json.RawMessage, error) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, errors.New("expected JSON object")
	}
	return payload, nil
}

// DecodeEmbedded runs raw through the decoder chain, accepting either a
// JSON-encoded string or a native object. Other callers reading vendor files
// with the same double-encoding habit reuse it.
func DecodeEmbedded(raw json.RawMessage, decoders []EnvelopeDecoder) (map[string]json.RawMessage, error) {
	if len(decoders) == 0 {
		decoders = DefaultDecoders
	}
	for _, decoder := range decoders {
		payload, ok, err := decoder.Decode(raw)
		if !ok {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s envelope: %w", decoder.Name(), err)
		}
		return payload, nil
	}
	return nil, errors.New("unrecognized envelope shape")
}
