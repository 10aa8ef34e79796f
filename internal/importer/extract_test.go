package importer

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "prose around object",
			text: `Sure! {"a": 1} Hope this helps.`,
			want: `{"a": 1}`,
		},
		{
			name: "trailing comma in object and array",
			text: `{"a": [1, 2, ], "b": {"c": 3,},}`,
			want: `{"a": [1, 2 ], "b": {"c": 3}}`,
		},
		{
			name: "commented lines",
			text: "{\n  // the name\n  \"a\": 1, // inline\n  /* block */ \"b\": 2\n}",
			want: "{\n  \n  \"a\": 1, \n    \"b\": 2\n}",
		},
		{
			name: "markdown fence",
			text: "```json\n{\"a\": true}\n```",
			want: `{"a": true}`,
		},
		{
			name: "braces, slashes and commas inside strings",
			text: `{"url": "http://x.test/a,}", "note": "keep ,] and } and /* this */"}`,
			want: `{"url": "http://x.test/a,}", "note": "keep ,] and } and /* this */"}`,
		},
		{
			name: "escaped quote in string",
			text: `{"q": "say \"hi\", }", }`,
			want: `{"q": "say \"hi\", }" }`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExtractJSON(tc.text)
			require.NoError(t, err)
			assert.Equal(t, tc.want, string(got))
			assert.True(t, json.Valid(got))
		})
	}
}

func TestExtractJSON_Failures(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "no braces", text: "I could not estimate this project."},
		{name: "empty", text: ""},
		{name: "only opening brace", text: "{ \"a\": 1"},
		{name: "closing before opening", text: "} oops {"},
		{name: "two objects", text: `{"a": 1} and {"b": 2}`},
		{name: "unbalanced nesting", text: `{"a": {"b": 1}`},
		{name: "unterminated block comment", text: `{"a": 1 /* }`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExtractJSON(tc.text)
			require.Error(t, err)
			assert.Nil(t, got)
			assert.True(t, errors.Is(err, ErrParse))
			assert.False(t, errors.Is(err, ErrValidation))

			var perr *ParseError
			assert.True(t, errors.As(err, &perr))
		})
	}
}

func FuzzExtractJSON(f *testing.F) {
	seeds := []string{
		`Here is the plan: { "projectName": "Shed", "materials": [{"materialId":"concrete","quantity":5,}] } Thanks!`,
		`{"a": "}{", // c` + "\n" + `"b": [1,2,],}`,
		`no json at all`,
		`{{{{`,
		`}}}{`,
		`{"s": "\\\"", }`,
		`{/* x */}`,
		"",
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, text string) {
		got, err := ExtractJSON(text)
		if err != nil {
			if !errors.Is(err, ErrParse) {
				t.Fatalf("unexpected error kind: %v", err)
			}
			return
		}
		if !json.Valid(got) {
			t.Fatalf("ExtractJSON returned invalid JSON %q for %q", got, text)
		}
	})
}
