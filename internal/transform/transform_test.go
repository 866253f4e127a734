package transform

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnakeToCamel_Nested(t *testing.T) {
	in := map[string]any{
		"hero_image": "x.webp",
		"property_details": map[string]any{
			"square_feet": 12000.0,
			"year_built":  nil,
		},
		"additional_images": []any{
			map[string]any{"image_url": "a.webp"},
			"plain",
		},
		"title": "Mesa Retail",
	}

	got := SnakeToCamel(in)

	assert.Equal(t, map[string]any{
		"heroImage": "x.webp",
		"propertyDetails": map[string]any{
			"squareFeet": 12000.0,
			"yearBuilt":  nil,
		},
		"additionalImages": []any{
			map[string]any{"imageUrl": "a.webp"},
			"plain",
		},
		"title": "Mesa Retail",
	}, got)

	// Input is left untouched.
	assert.Contains(t, in, "hero_image")
}

func TestSnakeToCamel_Idempotent(t *testing.T) {
	in := map[string]any{"hero_image": "x", "tags": []any{"a"}}
	once := SnakeToCamel(in)
	twice := SnakeToCamel(once)
	assert.Equal(t, once, twice)
}

func TestSnakeToCamel_Primitives(t *testing.T) {
	assert.Nil(t, SnakeToCamel(nil))
	assert.Equal(t, 42, SnakeToCamel(42))
	assert.Equal(t, "some_string", SnakeToCamel("some_string"))
	assert.Nil(t, SnakeToCamelMap(nil))
}

func TestKeyConversion(t *testing.T) {
	tests := []struct {
		snake, camel string
	}{
		{"first_name", "firstName"},
		{"additional_images", "additionalImages"},
		{"id", "id"},
		{"created_at", "createdAt"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.camel, snakeKeyToCamel(tt.snake))
		assert.Equal(t, tt.snake, camelKeyToSnake(tt.camel))
	}
	assert.Equal(t, "line_2", snakeKeyToCamel("line_2"))
}

func TestCamelToSnakeMap(t *testing.T) {
	got := CamelToSnakeMap(map[string]any{
		"firstName":     "Jane",
		"propertyTypes": []any{"retail", "office"},
		"email":         "jane@example.com",
	})
	assert.Equal(t, map[string]any{
		"first_name":     "Jane",
		"property_types": []any{"retail", "office"},
		"email":          "jane@example.com",
	}, got)
}

func TestNormalize_RoundTrip(t *testing.T) {
	stored := map[string]any{
		"hero_image": "x.webp",
		"results":    `["a","b"]`,
	}

	got := SnakeToCamelMap(ParseJSONFields(stored, "results"))

	assert.Equal(t, map[string]any{
		"heroImage": "x.webp",
		"results":   []any{"a", "b"},
	}, got)
	assert.Equal(t, got, Normalize(stored, "results"))
}

func TestParseJSONFields_BadJSONLeftAlone(t *testing.T) {
	stored := map[string]any{
		"results":     "not valid json",
		"tags":        `["industrial"]`,
		"testimonial": `{"quote":"Great","author_name":"Sam"}`,
		"client_name": "Acme",
	}

	parsed := ParseJSONFields(stored, "results", "tags", "testimonial", "missing")

	assert.Equal(t, "not valid json", parsed["results"])
	assert.Equal(t, []any{"industrial"}, parsed["tags"])

	camel := SnakeToCamelMap(parsed)
	assert.Equal(t, "Acme", camel["clientName"])
	assert.Equal(t, map[string]any{"quote": "Great", "authorName": "Sam"}, camel["testimonial"])
	assert.Equal(t, "not valid json", camel["results"])
}

func TestParseJSONFields_AlreadyParsed(t *testing.T) {
	rec := map[string]any{"tags": []any{"a"}}
	assert.Equal(t, rec, ParseJSONFields(rec, "tags"))
	assert.Nil(t, ParseJSONFields(nil, "tags"))
}

type caseStudyFixture struct {
	Title   string              `json:"title"`
	Results JSONField[[]string] `json:"results"`
	Tags    JSONField[[]string] `json:"tags"`
	Quote   JSONField[quote]    `json:"testimonial"`
}

type quote struct {
	Quote  string `json:"quote"`
	Author string `json:"author"`
}

func TestJSONField_Decode(t *testing.T) {
	var cs caseStudyFixture
	err := Decode(map[string]any{
		"title":       "Tempe Flex",
		"results":     `["sold in 30 days"]`,
		"tags":        []any{"industrial"},
		"testimonial": "not json",
	}, &cs)
	require.NoError(t, err)

	results, ok := cs.Results.Get()
	require.True(t, ok)
	assert.Equal(t, []string{"sold in 30 days"}, results)

	tags, ok := cs.Tags.Get()
	require.True(t, ok)
	assert.Equal(t, []string{"industrial"}, tags)

	_, ok = cs.Quote.Get()
	assert.False(t, ok)
	assert.Equal(t, "not json", cs.Quote.Raw)
}

func TestJSONField_Marshal(t *testing.T) {
	b, err := json.Marshal(caseStudyFixture{
		Title:   "x",
		Results: Parsed([]string{"a"}),
		Quote:   JSONField[quote]{Raw: "legacy text"},
	})
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"title":"x","results":["a"],"tags":null,"testimonial":"legacy text"}`,
		string(b))
}

func TestJSONField_NullAndMismatch(t *testing.T) {
	var f JSONField[[]string]
	require.NoError(t, json.Unmarshal([]byte(`null`), &f))
	assert.False(t, f.Parsed)

	require.NoError(t, json.Unmarshal([]byte(`{"a":1}`), &f))
	assert.False(t, f.Parsed)
	assert.Equal(t, `{"a":1}`, f.Raw)
}
