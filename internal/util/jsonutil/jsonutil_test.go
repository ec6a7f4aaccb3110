package jsonutil

import (
	"testing"

	"github.com/dharaneesh71/Financeflow-ai/internal/tester"
)

func TestExtractObjectFencedJSON(t *testing.T) {
	raw, err := ExtractObject("Here you go:\n```json\n{\"a\": 1}\n```\nanything after")
	tester.NoErr(t, err)
	tester.Eq(t, string(raw), `{"a": 1}`)
}

func TestExtractObjectBareFence(t *testing.T) {
	raw, err := ExtractObject("```\n{\"a\": 1}\n```")
	tester.NoErr(t, err)
	tester.Eq(t, string(raw), `{"a": 1}`)
}

func TestExtractObjectUnclosedFence(t *testing.T) {
	raw, err := ExtractObject("```json\n{\"a\": 1}")
	tester.NoErr(t, err)
	tester.Eq(t, string(raw), `{"a": 1}`)
}

func TestExtractObjectBareObject(t *testing.T) {
	raw, err := ExtractObject(`{"a": 1}`)
	tester.NoErr(t, err)
	tester.Eq(t, string(raw), `{"a": 1}`)
}

func TestExtractObjectProseWrapped(t *testing.T) {
	raw, err := ExtractObject(`The result is {"a": 1} as requested.`)
	tester.NoErr(t, err)
	tester.Eq(t, string(raw), `{"a": 1}`)
}

func TestExtractObjectNestedBraces(t *testing.T) {
	raw, err := ExtractObject(`prefix {"a": {"b": 2}} suffix`)
	tester.NoErr(t, err)
	tester.Eq(t, string(raw), `{"a": {"b": 2}}`)
}

func TestExtractObjectFailures(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"no object", "the model refused to answer"},
		{"unbalanced", `{"a": 1`},
		{"fenced garbage", "```json\nnot json\n```"},
		{"array only", `[1, 2, 3]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ExtractObject(tc.in)
			fe := tester.ErrAs[*FormatError](t, err)
			tester.True(t, fe.Snippet != "")
		})
	}
}

func TestFormatErrorSnippetBounded(t *testing.T) {
	long := make([]byte, 5000)
	for i := range long {
		long[i] = 'x'
	}
	_, err := ExtractObject(string(long))
	fe := tester.ErrAs[*FormatError](t, err)
	tester.True(t, len(fe.Snippet) <= snippetLimit+3)
}

func TestExtractInto(t *testing.T) {
	var out struct {
		A int `json:"a"`
	}
	tester.NoErr(t, ExtractInto("```json\n{\"a\": 7}\n```", &out))
	tester.Eq(t, out.A, 7)
}

func TestDecodeUnwrapsQuotedPayload(t *testing.T) {
	var out struct {
		S int `json:"s"`
	}
	tester.NoErr(t, Decode([]byte(`"{\"s\": 5}"`), &out))
	tester.Eq(t, out.S, 5)
}

func TestNormalizeResolvesDoubleEscapes(t *testing.T) {
	got, err := Normalize([]byte(`{"s": "a \\u003e b"}`))
	tester.NoErr(t, err)
	tester.Eq(t, string(got), `{"s":"a > b"}`)
}

func TestMarshalNoEscape(t *testing.T) {
	b, err := MarshalNoEscape(map[string]string{"q": "a > b"})
	tester.NoErr(t, err)
	tester.Eq(t, string(b), `{"q":"a > b"}`)
}
