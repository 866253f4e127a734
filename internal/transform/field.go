package transform

import (
	"bytes"
	"encoding/json"
)

// JSONField is a column value that is either still JSON text or already its
// native shape.  It resolves once, while decoding, so model code never has
// to ask which one it holds.
//
// Decoding accepts both forms:
//
//	"results": "[\"a\",\"b\"]"   → Parsed, Value = []string{"a","b"}
//	"results": ["a","b"]         → Parsed, Value = []string{"a","b"}
//	"results": "not json"        → not Parsed, Raw = "not json"
//
// Encoding writes Value when Parsed, the Raw string otherwise, and null when
// empty.
type JSONField[T any] struct {
	Value  T
	Raw    string
	Parsed bool
}

// Parsed wraps an already-native value.
func Parsed[T any](v T) JSONField[T] {
	return JSONField[T]{Value: v, Parsed: true}
}

// Get returns the native value and whether one is present.
func (f JSONField[T]) Get() (T, bool) {
	return f.Value, f.Parsed
}

// UnmarshalJSON implements json.Unmarshaler.  It never fails on a shape
// mismatch; the offending text is kept in Raw instead.
func (f *JSONField[T]) UnmarshalJSON(b []byte) error {
	var zero T
	f.Value, f.Raw, f.Parsed = zero, "", false

	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}

	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		var v T
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			f.Raw = s
			return nil
		}
		f.Value, f.Parsed = v, true
		return nil
	}

	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		f.Raw = string(b)
		return nil
	}
	f.Value, f.Parsed = v, true
	return nil
}

// MarshalJSON implements json.Marshaler.
func (f JSONField[T]) MarshalJSON() ([]byte, error) {
	switch {
	case f.Parsed:
		return json.Marshal(f.Value)
	case f.Raw != "":
		return json.Marshal(f.Raw)
	default:
		return []byte("null"), nil
	}
}
