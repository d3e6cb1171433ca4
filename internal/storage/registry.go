// Package storage persists the dundie store as a single JSON document.
//
// The document has exactly four top-level tables. Person records are keyed by
// email; the other tables are keyed by the email of the person they belong to:
//
//	{
//	    "people":   {"<email>": {"name": "", "dept": "", "role": "", "currency": ""}},
//	    "balance":  {"<email>": 500},
//	    "movement": {"<email>": [{"date": "", "actor": "", "value": 500}]},
//	    "user":     {"<email>": {"password": ""}}
//	}
package storage

import (
	"reflect"

	"github.com/maruel/dundie/internal/errors"
	"github.com/maruel/dundie/internal/jsonldb"
	"github.com/maruel/dundie/internal/models"
)

// Table names, in the order they are written.
const (
	TablePeople   = "people"
	TableBalance  = "balance"
	TableMovement = "movement"
	TableUser     = "user"
)

type registryEntry struct {
	name string
	typ  reflect.Type
}

// registry is the closed set of tables. people comes first: every other table
// refers to it.
var registry = []registryEntry{
	{TablePeople, reflect.TypeFor[models.Person]()},
	{TableBalance, reflect.TypeFor[models.Balance]()},
	{TableMovement, reflect.TypeFor[models.Movement]()},
	{TableUser, reflect.TypeFor[models.User]()},
}

// TableNames returns the canonical table names.
func TableNames() []string {
	out := make([]string, len(registry))
	for i, e := range registry {
		out[i] = e.name
	}
	return out
}

// TypeFor returns the record type stored in the named table.
func TypeFor(name string) (reflect.Type, error) {
	for _, e := range registry {
		if e.name == name {
			return e.typ, nil
		}
	}
	return nil, errors.NotFound("table", name)
}

// TableNameFor returns the table storing records of type t. Pointer types are
// accepted.
func TableNameFor(t reflect.Type) (string, error) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	for _, e := range registry {
		if e.typ == t {
			return e.name, nil
		}
	}
	return "", errors.NotFound("table for type", t.String())
}

// Store is the whole database held in memory.
//
// A nil table is a programming error caught by Engine.Commit.
type Store struct {
	People   *jsonldb.Table[*models.Person]
	Balance  *jsonldb.Table[*models.Balance]
	Movement *jsonldb.Table[*models.Movement]
	User     *jsonldb.Table[*models.User]
}

// EmptyStore returns the canonical empty store: four empty tables.
func EmptyStore() *Store {
	return &Store{
		People:   jsonldb.NewTable[*models.Person](TablePeople),
		Balance:  jsonldb.NewTable[*models.Balance](TableBalance),
		Movement: jsonldb.NewTable[*models.Movement](TableMovement),
		User:     jsonldb.NewTable[*models.User](TableUser),
	}
}
