package jsonldb

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/maruel/dundie/internal/errors"
)

// RelationSeparator joins a relation and a field in query keys, as in
// "person__dept".
const RelationSeparator = "__"

// Criterion is one condition of a filter. The only implementations are
// FieldEquals and RelatedFieldEquals.
type Criterion interface {
	fmt.Stringer
	match(r Record) (bool, error)
}

// Matcher is implemented by field values that need their own equality, like
// decimals.
type Matcher interface {
	Matches(v any) bool
}

// FieldEquals matches records whose field Name equals Value.
type FieldEquals struct {
	Name  string
	Value any
}

func (f FieldEquals) String() string {
	return fmt.Sprintf("%s=%v", f.Name, f.Value)
}

func (f FieldEquals) match(r Record) (bool, error) {
	got, ok := r.Field(f.Name)
	if !ok {
		return false, errors.InvalidQuery("%T has no field %q", r, f.Name)
	}
	return equal(got, f.Value), nil
}

// RelatedFieldEquals matches records whose related record Relation has a
// field Name equal to Value.
type RelatedFieldEquals struct {
	Relation string
	Name     string
	Value    any
}

func (f RelatedFieldEquals) String() string {
	return fmt.Sprintf("%s%s%s=%v", f.Relation, RelationSeparator, f.Name, f.Value)
}

func (f RelatedFieldEquals) match(r Record) (bool, error) {
	rel, ok := r.Related(f.Relation)
	if !ok {
		return false, errors.InvalidQuery("%T has no relation %q", r, f.Relation)
	}
	got, ok := rel.Field(f.Name)
	if !ok {
		return false, errors.InvalidQuery("%T has no field %q", rel, f.Name)
	}
	return equal(got, f.Value), nil
}

// ParseQuery converts a map of query keys to criteria, sorted by key. A key
// holding RelationSeparator becomes a RelatedFieldEquals.
func ParseQuery(query map[string]any) []Criterion {
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]Criterion, 0, len(keys))
	for _, k := range keys {
		if rel, field, ok := strings.Cut(k, RelationSeparator); ok {
			out = append(out, RelatedFieldEquals{Relation: rel, Name: field, Value: query[k]})
		} else {
			out = append(out, FieldEquals{Name: k, Value: query[k]})
		}
	}
	return out
}

func equal(got, want any) bool {
	switch g := got.(type) {
	case Matcher:
		return g.Matches(want)
	case time.Time:
		switch w := want.(type) {
		case time.Time:
			return g.Equal(w)
		case string:
			t, err := time.Parse(time.RFC3339Nano, w)
			return err == nil && g.Equal(t)
		}
		return false
	}
	if got == nil || want == nil {
		return got == want
	}
	if !reflect.TypeOf(got).Comparable() || !reflect.TypeOf(want).Comparable() {
		return false
	}
	return got == want
}
