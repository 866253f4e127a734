// internal/transform/keys.go
//
// Key-case conversion between the record store and the API.
//
// Context
// -------
// Stored rows use snake_case columns; the JSON API and form payloads use
// camelCase.  Conversion happens once at each boundary:
//
//   - SnakeToCamel  after a read, before anything else touches the record.
//   - CamelToSnake  right before an insert.
//
// Both walk nested maps and slices and leave every other value alone.  They
// return fresh containers and never mutate their input.
//
// Notes
// -----
//   - Both functions are idempotent: converting an already-converted value is
//     a no-op.
//   - Key collisions are not expected.  When two source keys map to the same
//     target, whichever the map iteration visits last wins.
package transform

import (
	"strings"
	"unicode"
)

// SnakeToCamel rewrites every map key from snake_case to camelCase.
func SnakeToCamel(v any) any {
	return walkKeys(v, snakeKeyToCamel)
}

// CamelToSnake rewrites every map key from camelCase to snake_case.
func CamelToSnake(v any) any {
	return walkKeys(v, camelKeyToSnake)
}

// SnakeToCamelMap is SnakeToCamel for a single record.
func SnakeToCamelMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	return walkKeys(m, snakeKeyToCamel).(map[string]any)
}

// CamelToSnakeMap is CamelToSnake for a single record.
func CamelToSnakeMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	return walkKeys(m, camelKeyToSnake).(map[string]any)
}

// SnakeKey converts one camelCase key.  "propertyType" → "property_type".
func SnakeKey(k string) string { return camelKeyToSnake(k) }

// CamelKey converts one snake_case key.
func CamelKey(k string) string { return snakeKeyToCamel(k) }

func walkKeys(v any, conv func(string) string) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[conv(k)] = walkKeys(val, conv)
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(t))
		for i, m := range t {
			out[i], _ = walkKeys(m, conv).(map[string]any)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = walkKeys(val, conv)
		}
		return out
	default:
		return v
	}
}

// snakeKeyToCamel upper-cases any lowercase ASCII letter that follows an
// underscore and drops that underscore.  "hero_image" → "heroImage".
func snakeKeyToCamel(k string) string {
	if !strings.Contains(k, "_") {
		return k
	}
	var b strings.Builder
	b.Grow(len(k))
	for i := 0; i < len(k); i++ {
		c := k[i]
		if c == '_' && i+1 < len(k) && k[i+1] >= 'a' && k[i+1] <= 'z' {
			b.WriteByte(k[i+1] - 'a' + 'A')
			i++
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// camelKeyToSnake prefixes every upper-case letter with "_" and lowers it.
// "firstName" → "first_name".
func camelKeyToSnake(k string) string {
	var b strings.Builder
	b.Grow(len(k) + 4)
	for _, r := range k {
		if unicode.IsUpper(r) {
			b.WriteByte('_')
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
