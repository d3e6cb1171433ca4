// Package jsonldb implements ordered in-memory tables of typed records and
// the small query language used to filter them.
package jsonldb

import (
	"iter"

	"github.com/maruel/dundie/internal/errors"
)

// Record is a row that can be inspected by name. Field returns the value of
// one of its own attributes, Related the record referenced by a relation.
// Both report false for a name the record does not have.
type Record interface {
	Field(name string) (any, bool)
	Related(name string) (Record, bool)
}

// Keyer is implemented by records owning a primary key.
type Keyer interface {
	Key() string
}

// OwnerRelation is the relation followed to find the key of records that do
// not own one.
const OwnerRelation = "person"

// Table is an ordered sequence of records of one type. It is not safe for
// concurrent use.
type Table[T Record] struct {
	name string
	rows []T
}

// NewTable returns a table holding rows in order.
func NewTable[T Record](name string, rows ...T) *Table[T] {
	return &Table[T]{name: name, rows: rows}
}

// Name returns the logical name of the table.
func (t *Table[T]) Name() string {
	return t.name
}

// Len returns the number of rows.
func (t *Table[T]) Len() int {
	return len(t.rows)
}

// All iterates over the rows in insertion order.
func (t *Table[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i, r := range t.rows {
			if !yield(i, r) {
				return
			}
		}
	}
}

// Rows returns a copy of all rows.
func (t *Table[T]) Rows() []T {
	rows := make([]T, len(t.rows))
	copy(rows, t.rows)
	return rows
}

// Append adds a row at the end. Uniqueness is the caller's concern.
func (t *Table[T]) Append(row T) {
	t.rows = append(t.rows, row)
}

// Replace replaces all rows.
func (t *Table[T]) Replace(rows []T) {
	t.rows = rows
}

// Set overwrites the row at index i.
func (t *Table[T]) Set(i int, row T) {
	t.rows[i] = row
}

// First returns the first row.
func (t *Table[T]) First() (T, error) {
	if len(t.rows) == 0 {
		var zero T
		return zero, errors.EmptyCollection(t.name)
	}
	return t.rows[0], nil
}

// Last returns the last row.
func (t *Table[T]) Last() (T, error) {
	if len(t.rows) == 0 {
		var zero T
		return zero, errors.EmptyCollection(t.name)
	}
	return t.rows[len(t.rows)-1], nil
}

// IndexByKey returns the index of the first row whose key is key, or -1.
func (t *Table[T]) IndexByKey(key string) int {
	for i, r := range t.rows {
		if k, ok := KeyOf(r); ok && k == key {
			return i
		}
	}
	return -1
}

// GetByKey returns the row whose primary key equals key. Rows without their
// own key are matched on the key of the person they belong to.
func (t *Table[T]) GetByKey(key string) (T, error) {
	if i := t.IndexByKey(key); i >= 0 {
		return t.rows[i], nil
	}
	var zero T
	return zero, errors.NotFound(t.name, key)
}

// Filter returns a new table with every row matching all criteria, in the
// original order. Without criteria the table itself is returned.
//
// A criterion naming a field or relation the record type does not have is an
// error, not a mismatch.
func (t *Table[T]) Filter(criteria ...Criterion) (*Table[T], error) {
	if len(criteria) == 0 {
		return t, nil
	}
	out := &Table[T]{name: t.name}
	for _, r := range t.rows {
		ok, err := matchAll(r, criteria)
		if err != nil {
			return nil, err
		}
		if ok {
			out.rows = append(out.rows, r)
		}
	}
	return out, nil
}

// KeyOf returns the primary key of r, following the owner relation when r
// has no key of its own.
func KeyOf(r Record) (string, bool) {
	if k, ok := r.(Keyer); ok {
		return k.Key(), true
	}
	if owner, ok := r.Related(OwnerRelation); ok {
		if k, ok := owner.(Keyer); ok {
			return k.Key(), true
		}
	}
	return "", false
}

func matchAll(r Record, criteria []Criterion) (bool, error) {
	for _, c := range criteria {
		ok, err := c.match(r)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}
