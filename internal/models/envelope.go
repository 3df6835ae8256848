package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Envelope is the documented response contract of the ward API:
// { "data": <entity|entity[]>, "message": "..." }. Every response is
// normalized into this shape at the gateway boundary so call sites never
// sniff payload shapes themselves.
type Envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message,omitempty"`
}

// ParseEnvelope normalizes a response body. A bare top-level JSON array is
// accepted and wrapped as Data; anything else must be an object with the
// envelope fields.
func ParseEnvelope(body []byte) (*Envelope, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return &Envelope{}, nil
	}

	if trimmed[0] == '[' {
		var arr json.RawMessage
		if err := json.Unmarshal(trimmed, &arr); err != nil {
			return nil, fmt.Errorf("parse response array: %w", err)
		}
		return &Envelope{Data: arr}, nil
	}

	var env Envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, fmt.Errorf("parse response envelope: %w", err)
	}
	return &env, nil
}

// DataList decodes the envelope data as a list of raw entity bodies. A null
// or absent data field yields an empty list; a single object is rejected.
func (e *Envelope) DataList() ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(e.Data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil, nil
	}
	if trimmed[0] != '[' {
		return nil, fmt.Errorf("envelope data is not a list")
	}

	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("parse envelope data list: %w", err)
	}
	return items, nil
}

// DataObject returns the envelope data as a single raw entity body.
func (e *Envelope) DataObject() (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(e.Data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil, fmt.Errorf("envelope has no data")
	}
	if trimmed[0] == '[' {
		return nil, fmt.Errorf("envelope data is a list, expected object")
	}
	return trimmed, nil
}
