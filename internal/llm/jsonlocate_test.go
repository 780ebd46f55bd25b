package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocateJSON(t *testing.T) {
	cases := []struct {
		name  string
		reply string
		want  string
	}{
		{"bare", `{"a":1}`, `{"a":1}`},
		{"fenced", "Here you go:\n```json\n{\"a\": 2}\n```\nThanks", `{"a": 2}`},
		{"fence without tag", "```\n{\"a\": 3}\n```", `{"a": 3}`},
		{"inline", `The result is {"a": {"b": "}"}} and nothing else.`, `{"a": {"b": "}"}}`},
		{"repaired key", `Sure: {"a": 1, b": 2}`, `{"a": 1, "b": 2}`},
		{"repaired key before prose", `Result: {"title": "RFP", section": "L"} as requested.`, `{"title": "RFP", "section": "L"}`},
		{"repaired nested key", `{"a": {"x": 1}, b": [1, 2]}`, `{"a": {"x": 1}, "b": [1, 2]}`},
		{"repaired key in fence", "```json\n{\"a\": 1,\n  kind\": \"shall\"}\n```", `{"a": 1, "kind": "shall"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := LocateJSON(tc.reply)
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, string(got))
		})
	}
}

func TestLocateJSON_NoObject(t *testing.T) {
	for _, reply := range []string{"", "I cannot help with that.", "[1,2,3]", "{ not json"} {
		_, err := LocateJSON(reply)
		assert.ErrorIs(t, err, ErrNoJSON, reply)
	}
}

func TestSanitizeAgainstSchema(t *testing.T) {
	schema, ok := SectionSchema("section_b")
	require.True(t, ok)

	raw := []byte(`{"clins":{"number":1001,"quantity":"1,200","unit":null},"pricing_notes":null}`)
	cleaned, changed, err := SanitizeAgainstSchema(schema, raw)
	require.NoError(t, err)
	assert.NotEmpty(t, changed)
	assert.JSONEq(t, `{"clins":[{"number":"1001","quantity":1200}]}`, string(cleaned))
	require.NoError(t, ValidateJSONAgainstSchema("section/section_b", schema, cleaned))
}
