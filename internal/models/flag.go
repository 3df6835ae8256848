package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Flag is a boolean parsed leniently at the API boundary. The ward API has
// historically returned occupancy-style flags as booleans, numbers, and
// strings depending on the endpoint; Flag normalizes all of them once at
// ingest so internal code only ever sees a bool.
type Flag bool

// UnmarshalJSON accepts true/false, 0/1, and the string spellings the server
// is known to emit.
func (f *Flag) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case nil:
		*f = false
	case bool:
		*f = Flag(v)
	case float64:
		*f = v != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "ocupada", "occupied", "yes":
			*f = true
		case "", "false", "0", "disponible", "available", "no":
			*f = false
		default:
			return fmt.Errorf("unrecognized flag value %q", v)
		}
	default:
		return fmt.Errorf("unrecognized flag type %T", raw)
	}

	return nil
}

// MarshalJSON always emits a plain boolean.
func (f Flag) MarshalJSON() ([]byte, error) {
	return json.Marshal(bool(f))
}

// Bool returns the normalized value.
func (f Flag) Bool() bool { return bool(f) }
