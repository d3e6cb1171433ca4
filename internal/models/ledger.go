package models

import (
	"time"

	"github.com/maruel/dundie/internal/jsonldb"
)

// DefaultActor is recorded on movements nobody in particular initiated.
const DefaultActor = "system"

// Movement is one immutable entry of the points ledger.
type Movement struct {
	Person *Person   `json:"person"`
	Date   time.Time `json:"date"`
	Actor  string    `json:"actor"`
	Value  Points    `json:"value"`
}

// Field implements jsonldb.Record.
func (m *Movement) Field(name string) (any, bool) {
	switch name {
	case "date":
		return m.Date, true
	case "actor":
		return m.Actor, true
	case "value":
		return m.Value, true
	}
	return nil, false
}

// Related implements jsonldb.Record.
func (m *Movement) Related(name string) (jsonldb.Record, bool) {
	return personRelation(m.Person, name)
}

// Balance is the sum of every movement of a person. It is derived from the
// ledger and never edited on its own.
type Balance struct {
	Person *Person `json:"person"`
	Value  Points  `json:"value"`
}

// Field implements jsonldb.Record.
func (b *Balance) Field(name string) (any, bool) {
	if name == "value" {
		return b.Value, true
	}
	return nil, false
}

// Related implements jsonldb.Record.
func (b *Balance) Related(name string) (jsonldb.Record, bool) {
	return personRelation(b.Person, name)
}
