// Package jsonutil recovers JSON objects from model output and provides the
// encode/decode helpers the rest of the pipeline shares. Model responses wrap
// JSON in markdown fences or prose more often than not; ExtractObject peels
// that off deterministically and without any I/O.
package jsonutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const snippetLimit = 200

// FormatError reports model output that did not contain a parseable JSON
// object after fence and brace recovery. It carries a bounded snippet of the
// offending text for logs.
type FormatError struct {
	Snippet string
	Err     error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("no JSON object in model output: %v (text: %q)", e.Err, e.Snippet)
}

func (e *FormatError) Unwrap() error { return e.Err }

func newFormatError(text string, err error) *FormatError {
	snippet := strings.TrimSpace(text)
	if len(snippet) > snippetLimit {
		snippet = snippet[:snippetLimit] + "..."
	}
	return &FormatError{Snippet: snippet, Err: err}
}

// ExtractObject returns the first JSON object embedded in text.
//
// Strategy, first match wins:
//  1. a ```json fenced block: slice between the fence markers
//  2. a bare ``` fenced block: same
//  3. no fence: from the first '{' to its balancing '}' by brace count
//
// The candidate must parse as a JSON object; anything else returns a
// *FormatError.
func ExtractObject(text string) ([]byte, error) {
	candidate := text
	switch {
	case strings.Contains(text, "```json"):
		start := strings.Index(text, "```json") + len("```json")
		candidate = sliceToFence(text, start)
	case strings.Contains(text, "```"):
		start := strings.Index(text, "```") + len("```")
		candidate = sliceToFence(text, start)
	default:
		open := strings.IndexByte(text, '{')
		if open < 0 {
			return nil, newFormatError(text, fmt.Errorf("no object start"))
		}
		depth := 0
		end := -1
		for i := open; i < len(text) && end < 0; i++ {
			switch text[i] {
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					end = i + 1
				}
			}
		}
		if end < 0 {
			return nil, newFormatError(text, fmt.Errorf("unbalanced braces"))
		}
		candidate = text[open:end]
	}

	candidate = strings.TrimSpace(candidate)
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &probe); err != nil {
		return nil, newFormatError(text, err)
	}
	return []byte(candidate), nil
}

// ExtractInto combines ExtractObject and Decode.
func ExtractInto(text string, v any) error {
	raw, err := ExtractObject(text)
	if err != nil {
		return err
	}
	return Decode(raw, v)
}

func sliceToFence(text string, start int) string {
	if end := strings.Index(text[start:], "```"); end >= 0 {
		return text[start : start+end]
	}
	return text[start:]
}

// Decode unmarshals raw into v, unwrapping one level of string quoting when
// the payload arrives as a JSON-encoded string of JSON.
func Decode(raw []byte, v any) error {
	direct := json.Unmarshal(raw, v)
	if direct == nil {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if err2 := json.Unmarshal([]byte(s), v); err2 == nil {
			return nil
		}
	}
	return direct
}

// Normalize reparses raw and resolves unicode escape sequences that survived
// a round of double encoding (literal ">" inside string values).
func Normalize(raw []byte) ([]byte, error) {
	var anyVal any
	if err := json.Unmarshal(raw, &anyVal); err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	return MarshalNoEscape(deepUnescape(anyVal))
}

// MarshalNoEscape encodes v without escaping <, >, & into < etc.
func MarshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// MarshalNoEscapeIndent is MarshalNoEscape with indentation.
func MarshalNoEscapeIndent(v any, prefix, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent(prefix, indent)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func unescapeString(s string) string {
	if !strings.Contains(s, `\u`) {
		return s
	}
	esc := strings.ReplaceAll(s, `"`, `\"`)
	var out string
	if err := json.Unmarshal([]byte(`"`+esc+`"`), &out); err != nil {
		return s
	}
	return out
}

func deepUnescape(v any) any {
	switch x := v.(type) {
	case string:
		return unescapeString(x)
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = deepUnescape(x[i])
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, vv := range x {
			out[k] = deepUnescape(vv)
		}
		return out
	default:
		return v
	}
}
