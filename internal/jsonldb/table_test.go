package jsonldb

import (
	"testing"

	"github.com/maruel/dundie/internal/errors"
)

type testOwner struct {
	ID   string
	Dept string
}

func (o *testOwner) Key() string { return o.ID }

func (o *testOwner) Field(name string) (any, bool) {
	switch name {
	case "id":
		return o.ID, true
	case "dept":
		return o.Dept, true
	}
	return nil, false
}

func (o *testOwner) Related(string) (Record, bool) { return nil, false }

type testRow struct {
	Owner *testOwner
	N     int
}

func (r *testRow) Field(name string) (any, bool) {
	if name == "n" {
		return r.N, true
	}
	return nil, false
}

func (r *testRow) Related(name string) (Record, bool) {
	if name != OwnerRelation || r.Owner == nil {
		return nil, false
	}
	return r.Owner, true
}

func newOwners() *Table[*testOwner] {
	return NewTable("people",
		&testOwner{ID: "a@x.com", Dept: "Sales"},
		&testOwner{ID: "b@x.com", Dept: "Security"},
		&testOwner{ID: "c@x.com", Dept: "Sales"},
	)
}

func TestTable(t *testing.T) {
	t.Run("FirstLast", func(t *testing.T) {
		tbl := newOwners()
		first, err := tbl.First()
		if err != nil || first.ID != "a@x.com" {
			t.Fatalf("First() = %v, %v", first, err)
		}
		last, err := tbl.Last()
		if err != nil || last.ID != "c@x.com" {
			t.Fatalf("Last() = %v, %v", last, err)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		tbl := NewTable[*testOwner]("people")
		if _, err := tbl.First(); !errors.HasCode(err, errors.ErrEmptyCollection) {
			t.Errorf("First() error = %v", err)
		}
		if _, err := tbl.Last(); !errors.HasCode(err, errors.ErrEmptyCollection) {
			t.Errorf("Last() error = %v", err)
		}
	})

	t.Run("Append", func(t *testing.T) {
		tbl := newOwners()
		tbl.Append(&testOwner{ID: "a@x.com"})
		if tbl.Len() != 4 {
			t.Fatalf("Len() = %d", tbl.Len())
		}
		rows := tbl.Rows()
		rows[0] = nil
		if first, _ := tbl.First(); first == nil {
			t.Error("Rows() must return a copy")
		}
	})

	t.Run("All", func(t *testing.T) {
		var ids []string
		for _, o := range newOwners().All() {
			ids = append(ids, o.ID)
			if len(ids) == 2 {
				break
			}
		}
		if len(ids) != 2 || ids[1] != "b@x.com" {
			t.Errorf("All() = %v", ids)
		}
	})
}

func TestGetByKey(t *testing.T) {
	owners := newOwners()
	o, err := owners.GetByKey("b@x.com")
	if err != nil || o.Dept != "Security" {
		t.Fatalf("GetByKey() = %v, %v", o, err)
	}
	if _, err := owners.GetByKey("z@x.com"); !errors.HasCode(err, errors.ErrNotFound) {
		t.Errorf("GetByKey(missing) error = %v", err)
	}

	rows := NewTable("balance",
		&testRow{Owner: owners.rows[0], N: 1},
		&testRow{Owner: owners.rows[2], N: 3},
	)
	r, err := rows.GetByKey("c@x.com")
	if err != nil || r.N != 3 {
		t.Fatalf("GetByKey(through owner) = %v, %v", r, err)
	}
	if i := rows.IndexByKey("b@x.com"); i != -1 {
		t.Errorf("IndexByKey() = %d", i)
	}
}

func TestFilter(t *testing.T) {
	owners := newOwners()
	rows := NewTable("movement",
		&testRow{Owner: owners.rows[0], N: 1},
		&testRow{Owner: owners.rows[1], N: 2},
		&testRow{Owner: owners.rows[0], N: 3},
	)

	tests := []struct {
		name     string
		criteria []Criterion
		want     int
	}{
		{"field", []Criterion{FieldEquals{Name: "dept", Value: "Sales"}}, 2},
		{"no match", []Criterion{FieldEquals{Name: "dept", Value: "Nonexistent"}}, 0},
		{"and", []Criterion{FieldEquals{Name: "dept", Value: "Sales"}, FieldEquals{Name: "id", Value: "c@x.com"}}, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := owners.Filter(tc.criteria...)
			if err != nil {
				t.Fatal(err)
			}
			if got.Len() != tc.want {
				t.Errorf("Len() = %d, want %d", got.Len(), tc.want)
			}
		})
	}

	t.Run("order", func(t *testing.T) {
		got, err := owners.Filter(FieldEquals{Name: "dept", Value: "Sales"})
		if err != nil {
			t.Fatal(err)
		}
		if got.rows[0].ID != "a@x.com" || got.rows[1].ID != "c@x.com" {
			t.Errorf("unexpected order: %v %v", got.rows[0], got.rows[1])
		}
	})

	t.Run("related", func(t *testing.T) {
		got, err := rows.Filter(RelatedFieldEquals{Relation: "person", Name: "id", Value: "a@x.com"})
		if err != nil {
			t.Fatal(err)
		}
		if got.Len() != 2 || got.rows[1].N != 3 {
			t.Errorf("unexpected rows: %d", got.Len())
		}
	})

	t.Run("empty criteria", func(t *testing.T) {
		got, err := rows.Filter()
		if err != nil || got != rows {
			t.Errorf("Filter() = %p, %v; want same table", got, err)
		}
	})

	t.Run("unknown field", func(t *testing.T) {
		if _, err := owners.Filter(FieldEquals{Name: "color", Value: "red"}); !errors.HasCode(err, errors.ErrInvalidQuery) {
			t.Errorf("error = %v", err)
		}
	})

	t.Run("unknown relation", func(t *testing.T) {
		if _, err := rows.Filter(RelatedFieldEquals{Relation: "boss", Name: "id", Value: "a"}); !errors.HasCode(err, errors.ErrInvalidQuery) {
			t.Errorf("error = %v", err)
		}
	})

	t.Run("unknown related field", func(t *testing.T) {
		if _, err := rows.Filter(RelatedFieldEquals{Relation: "person", Name: "color", Value: "a"}); !errors.HasCode(err, errors.ErrInvalidQuery) {
			t.Errorf("error = %v", err)
		}
	})
}

func TestParseQuery(t *testing.T) {
	got := ParseQuery(map[string]any{"person__dept": "Sales", "actor": "system"})
	if len(got) != 2 {
		t.Fatalf("len = %d", len(got))
	}
	if f, ok := got[0].(FieldEquals); !ok || f.Name != "actor" {
		t.Errorf("got[0] = %#v", got[0])
	}
	if f, ok := got[1].(RelatedFieldEquals); !ok || f.Relation != "person" || f.Name != "dept" {
		t.Errorf("got[1] = %#v", got[1])
	}
	if s := got[1].String(); s != "person__dept=Sales" {
		t.Errorf("String() = %q", s)
	}
}
