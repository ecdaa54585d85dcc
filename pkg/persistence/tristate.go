package persistence

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TriState is a persisted boolean that distinguishes an absent attribute
// from an explicit false. The zero value is Unset.
type TriState int8

const (
	Unset TriState = iota
	True
	False
)

// TriStateOf converts a native bool.
func TriStateOf(b bool) TriState {
	if b {
		return True
	}
	return False
}

// IsTrue reports whether t is explicitly True.
func (t TriState) IsTrue() bool { return t == True }

// IsSet reports whether t carries a value.
func (t TriState) IsSet() bool { return t != Unset }

// BoolOr returns the boolean value of t, or def when unset.
func (t TriState) BoolOr(def bool) bool {
	switch t {
	case True:
		return true
	case False:
		return false
	default:
		return def
	}
}

func (t TriState) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unset"
	}
}

// MarshalJSON encodes Unset as null; use omitempty to drop it entirely.
func (t TriState) MarshalJSON() ([]byte, error) {
	if t == Unset {
		return []byte("null"), nil
	}
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts JSON booleans, "true"/"false" strings and null.
func (t *TriState) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	switch strings.ToLower(raw) {
	case "true":
		*t = True
	case "false":
		*t = False
	case "null", "":
		*t = Unset
	default:
		return fmt.Errorf("invalid tri-state value %s", data)
	}
	return nil
}
