// Package metric defines the metric vocabulary a batch runs against: the
// definitions proposed or supplied for extraction, and the typed values an
// extraction produces per document.
package metric

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Closed set of metric type tags. Anything else is rejected up front so the
// schema builder never sees a tag it cannot map.
const (
	TypeString = "string"
	TypeInt    = "int"
	TypeFloat  = "float"
	TypeBool   = "bool"
)

// KnownType reports whether tag is one of the supported metric types.
func KnownType(tag string) bool {
	switch tag {
	case TypeString, TypeInt, TypeFloat, TypeBool:
		return true
	}
	return false
}

// Definition describes a single metric to extract from every document.
type Definition struct {
	Name        string `json:"name" yaml:"name"`
	Type        string `json:"type" yaml:"type"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Set is an ordered metric list. Order is part of the contract: column order,
// insert order, and DDL bytes all follow it.
type Set []Definition

// Metric names end up as unquoted column identifiers.
var identRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// Validate rejects empty or malformed names, duplicate names (compared
// case-insensitively, matching value lookup), and unknown type tags.
func (s Set) Validate() error {
	seen := make(map[string]struct{}, len(s))
	for i, d := range s {
		name := strings.TrimSpace(d.Name)
		if name == "" {
			return fmt.Errorf("metric %d: empty name", i)
		}
		if !identRe.MatchString(name) {
			return fmt.Errorf("metric %q: name is not a valid identifier", d.Name)
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("duplicate metric name %q", d.Name)
		}
		seen[key] = struct{}{}
		if !KnownType(d.Type) {
			return fmt.Errorf("metric %q: unknown type %q", d.Name, d.Type)
		}
	}
	return nil
}

// Names returns the metric names in set order.
func (s Set) Names() []string {
	out := make([]string, len(s))
	for i, d := range s {
		out[i] = d.Name
	}
	return out
}

// Equal reports whether other has the same names, order, and types. The
// deployer uses it to refuse a set that changed mid-batch.
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i].Name != other[i].Name || s[i].Type != other[i].Type {
			return false
		}
	}
	return true
}

// Values holds one document's extracted metric values keyed by metric name,
// as decoded from model output.
type Values map[string]any

// Lookup finds the value for a metric name, trying an exact match first and
// falling back to a case-insensitive scan.
func (v Values) Lookup(name string) (any, bool) {
	if val, ok := v[name]; ok {
		return val, true
	}
	for k, val := range v {
		if strings.EqualFold(k, name) {
			return val, true
		}
	}
	return nil, false
}

// Coerce converts a raw decoded value to the definition's type. The second
// return is false when the value cannot represent the type; callers treat
// that the same as an absent value.
func (d Definition) Coerce(raw any) (any, bool) {
	if raw == nil {
		return nil, false
	}
	switch d.Type {
	case TypeString:
		switch v := raw.(type) {
		case string:
			return v, true
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), true
		case bool:
			return strconv.FormatBool(v), true
		}
	case TypeInt:
		switch v := raw.(type) {
		case float64:
			if v == math.Trunc(v) {
				return int64(v), true
			}
		case string:
			if n, err := strconv.ParseInt(cleanNumeric(v), 10, 64); err == nil {
				return n, true
			}
		}
	case TypeFloat:
		switch v := raw.(type) {
		case float64:
			return v, true
		case string:
			if f, err := strconv.ParseFloat(cleanNumeric(v), 64); err == nil {
				return f, true
			}
		}
	case TypeBool:
		switch v := raw.(type) {
		case bool:
			return v, true
		case string:
			if b, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(v))); err == nil {
				return b, true
			}
		}
	}
	return nil, false
}

// Models are told to emit bare numbers, but statements leak formatting.
func cleanNumeric(s string) string {
	s = strings.TrimSpace(s)
	for _, cut := range []string{",", "$", "%"} {
		s = strings.ReplaceAll(s, cut, "")
	}
	return s
}
