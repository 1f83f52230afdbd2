// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gamestate

import (
	"maps"
	"math"
)

// State is a flat mapping from keys to JSON-compatible values.
type State map[string]any

// Clone returns a shallow copy. Cloning nil yields an empty State.
func (s State) Clone() State {
	if s == nil {
		return State{}
	}
	return maps.Clone(s)
}

// String returns the value at key if it is a string, else "".
func (s State) String(key string) string {
	value, _ := s[key].(string)
	return value
}

// Bool returns the value at key if it is a bool, else false.
func (s State) Bool(key string) bool {
	value, _ := s[key].(bool)
	return value
}

// Int returns the value at key as an integer. Values decoded from the
// wire arrive as float64 (JSON) or uint64/int64 (CBOR); locally set
// values are usually int. Anything else yields 0.
func (s State) Int(key string) int {
	switch value := s[key].(type) {
	case int:
		return value
	case int64:
		return int(value)
	case uint64:
		if value > math.MaxInt {
			return math.MaxInt
		}
		return int(value)
	case float64:
		return int(value)
	default:
		return 0
	}
}
