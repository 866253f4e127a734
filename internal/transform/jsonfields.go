// internal/transform/jsonfields.go
//
// JSON-in-a-column handling.
//
// Context
// -------
// A handful of columns (results, testimonial, tags, additional_images) hold
// JSON text.  ParseJSONFields decodes them in a copy of the record.  A value
// that does not parse stays as its raw string, gets logged, and the rest of
// the record is still processed.
//
// Normalize is the full read pipeline: JSON fields first, then key case.
// Parsing first matters because a decoded payload may carry its own
// snake_case keys.
package transform

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/yanizio/leadsite/internal/metrics"
)

// ParseJSONFields returns a shallow copy of record where every named field
// holding a string has been replaced by its decoded JSON value.  Fields that
// are missing, already decoded, or not valid JSON are left untouched.
func ParseJSONFields(record map[string]any, fields ...string) map[string]any {
	if record == nil {
		return nil
	}
	out := make(map[string]any, len(record))
	for k, v := range record {
		out[k] = v
	}

	for _, f := range fields {
		s, ok := out[f].(string)
		if !ok {
			continue
		}
		var decoded any
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			metrics.JSONFieldParseErrorsTotal.Inc()
			zap.S().Warnw("json field parse failed", "field", f, "err", err)
			continue
		}
		out[f] = decoded
	}
	return out
}

// Normalize runs ParseJSONFields and then SnakeToCamel on one stored record.
func Normalize(record map[string]any, jsonFields ...string) map[string]any {
	return SnakeToCamelMap(ParseJSONFields(record, jsonFields...))
}

// Decode copies a normalized record into a typed model through its JSON tags.
func Decode(record map[string]any, dst any) error {
	b, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}
