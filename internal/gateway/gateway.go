// Package gateway is the remote document store every entity store talks to.
// Documents live in named collections, carry an opaque generated id and a
// flat map of fields. Only equality and array-contains predicates exist and
// nothing is transactional across documents.
package gateway

import (
	"context"
	"fmt"
	"time"
)

type Op string

const (
	OpEq            Op = "=="
	OpArrayContains Op = "array-contains"
)

// Gateway is the contract consumed by the entity stores.
type Gateway interface {
	Insert(ctx context.Context, collection string, fields Fields) (string, error)
	// Get reports found=false, with a nil error, when the document is absent.
	Get(ctx context.Context, collection, id string) (*Document, bool, error)
	Query(ctx context.Context, collection string, pred Predicate) ([]*Document, error)
	// Update merges fields into an existing document.
	Update(ctx context.Context, collection, id string, fields Fields) error
}

type Document struct {
	ID     string `json:"id" yaml:"id"`
	Fields Fields `json:"fields" yaml:"fields"`
}

// Predicate filters a query. The zero Predicate matches every document.
type Predicate struct {
	Field string `json:"field,omitempty"`
	Op    Op     `json:"op,omitempty"`
	Value any    `json:"value"`
}

func Eq(field string, value any) Predicate {
	return Predicate{Field: field, Op: OpEq, Value: value}
}

func ArrayContains(field string, value any) Predicate {
	return Predicate{Field: field, Op: OpArrayContains, Value: value}
}

func (p Predicate) String() string {
	if p.Field == "" {
		return "*"
	}
	return fmt.Sprintf("%s %s %v", p.Field, p.Op, p.Value)
}

// Match evaluates the predicate against a document's fields.
func (p Predicate) Match(fields Fields) bool {
	if p.Field == "" {
		return true
	}
	v, ok := fields[p.Field]
	if !ok {
		return false
	}
	switch p.Op {
	case OpEq:
		return sameValue(v, p.Value)
	case OpArrayContains:
		for _, elem := range asSlice(v) {
			if sameValue(elem, p.Value) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// sameValue compares scalars by their printed form so that a value survives
// YAML and JSON round trips (ints come back as float64 from JSON).
func sameValue(a, b any) bool {
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func asSlice(v any) []any {
	switch s := v.(type) {
	case []any:
		return s
	case []string:
		out := make([]any, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out
	default:
		return nil
	}
}

// Fields is a document body. Values are limited to strings, string lists,
// booleans and numbers; times travel as RFC 3339 strings.
type Fields map[string]any

// String returns the field as text, "" when absent or not a scalar.
func (f Fields) String(key string) string {
	switch v := f[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case []any, []string, map[string]any:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Strings returns the field as a string list, empty when absent.
func (f Fields) Strings(key string) []string {
	raw := asSlice(f[key])
	out := make([]string, 0, len(raw))
	for _, e := range raw {
		if e == nil {
			continue
		}
		out = append(out, fmt.Sprint(e))
	}
	return out
}

// Time parses an RFC 3339 field, returning the zero time when absent or
// malformed.
func (f Fields) Time(key string) time.Time {
	switch v := f[key].(type) {
	case time.Time:
		return v
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return time.Time{}
		}
		return t
	default:
		return time.Time{}
	}
}

// Has reports whether key is present.
func (f Fields) Has(key string) bool {
	_, ok := f[key]
	return ok
}

// FormatTime is the canonical encoding for time fields.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func (f Fields) clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}
