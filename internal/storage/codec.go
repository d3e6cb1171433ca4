package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/maruel/dundie/internal/errors"
	"github.com/maruel/dundie/internal/models"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

type personDoc struct {
	Name     string `json:"name"`
	Dept     string `json:"dept"`
	Role     string `json:"role"`
	Currency string `json:"currency"`
}

type movementDoc struct {
	Date  string        `json:"date"`
	Actor string        `json:"actor"`
	Value models.Points `json:"value"`
}

type userDoc struct {
	Password string `json:"password"`
}

// Document is the logical shape of the database file.
type Document struct {
	People   map[string]personDoc     `json:"people"`
	Balance  map[string]models.Points `json:"balance"`
	Movement map[string][]movementDoc `json:"movement"`
	User     map[string]userDoc       `json:"user"`
}

// Older tools wrote local timestamps without an offset.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func formatDate(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// Serialize converts the store to its document form. Tables keep their row
// order; movements are grouped by person in order of first appearance.
//
// A nil table is left out of the result, which Engine.Commit rejects.
func Serialize(s *Store) (*orderedmap.OrderedMap[string, any], error) {
	doc := orderedmap.New[string, any]()
	if s.People != nil {
		people := orderedmap.New[string, personDoc]()
		for _, p := range s.People.All() {
			people.Set(p.Email, personDoc{Name: p.Name, Dept: p.Dept, Role: p.Role, Currency: p.Currency})
		}
		doc.Set(TablePeople, people)
	}
	if s.Balance != nil {
		balance := orderedmap.New[string, models.Points]()
		for i, b := range s.Balance.All() {
			if b.Person == nil {
				return nil, errors.SchemaIntegrity(fmt.Sprintf("balance row %d has no person", i))
			}
			balance.Set(b.Person.Email, b.Value)
		}
		doc.Set(TableBalance, balance)
	}
	if s.Movement != nil {
		movement := orderedmap.New[string, []movementDoc]()
		for i, m := range s.Movement.All() {
			if m.Person == nil {
				return nil, errors.SchemaIntegrity(fmt.Sprintf("movement row %d has no person", i))
			}
			list, _ := movement.Get(m.Person.Email)
			movement.Set(m.Person.Email, append(list, movementDoc{Date: formatDate(m.Date), Actor: m.Actor, Value: m.Value}))
		}
		doc.Set(TableMovement, movement)
	}
	if s.User != nil {
		user := orderedmap.New[string, userDoc]()
		for i, u := range s.User.All() {
			if u.Person == nil {
				return nil, errors.SchemaIntegrity(fmt.Sprintf("user row %d has no person", i))
			}
			user.Set(u.Person.Email, userDoc{Password: u.Password})
		}
		doc.Set(TableUser, user)
	}
	return doc, nil
}

// Deserialize rebuilds a store from a document.
//
// It runs in two passes: people are materialized and indexed first, then the
// dependent tables are resolved against that index whatever order the keys
// have in raw. A missing table is empty. An unknown table or a reference to an
// unknown person is an error.
func Deserialize(raw []byte) (*Store, error) {
	top := orderedmap.New[string, json.RawMessage]()
	if err := json.Unmarshal(raw, top); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	for pair := top.Oldest(); pair != nil; pair = pair.Next() {
		if _, err := TypeFor(pair.Key); err != nil {
			return nil, fmt.Errorf("unexpected table %q: %w", pair.Key, err)
		}
	}
	s := EmptyStore()

	// Pass 1: people.
	index := map[string]*models.Person{}
	people := orderedmap.New[string, personDoc]()
	if err := decodeTable(top, TablePeople, people); err != nil {
		return nil, err
	}
	for pair := people.Oldest(); pair != nil; pair = pair.Next() {
		d := pair.Value
		p, err := models.NewPerson(pair.Key, d.Name, d.Dept, d.Role, d.Currency)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", TablePeople, err)
		}
		p.WithDefaults()
		index[p.Email] = p
		s.People.Append(p)
	}
	// Keys are trimmed like people keys are by NewPerson.
	lookup := func(table, email string) (*models.Person, error) {
		if p, ok := index[strings.TrimSpace(email)]; ok {
			return p, nil
		}
		return nil, fmt.Errorf("%s refers to unknown person %q", table, email)
	}

	// Pass 2: tables referring to people.
	balance := orderedmap.New[string, models.Points]()
	if err := decodeTable(top, TableBalance, balance); err != nil {
		return nil, err
	}
	for pair := balance.Oldest(); pair != nil; pair = pair.Next() {
		p, err := lookup(TableBalance, pair.Key)
		if err != nil {
			return nil, err
		}
		s.Balance.Append(&models.Balance{Person: p, Value: pair.Value})
	}

	movement := orderedmap.New[string, []movementDoc]()
	if err := decodeTable(top, TableMovement, movement); err != nil {
		return nil, err
	}
	for pair := movement.Oldest(); pair != nil; pair = pair.Next() {
		p, err := lookup(TableMovement, pair.Key)
		if err != nil {
			return nil, err
		}
		for _, d := range pair.Value {
			date, err := parseDate(d.Date)
			if err != nil {
				return nil, fmt.Errorf("failed to decode %s of %s: %w", TableMovement, pair.Key, err)
			}
			actor := d.Actor
			if actor == "" {
				actor = models.DefaultActor
			}
			s.Movement.Append(&models.Movement{Person: p, Date: date, Actor: actor, Value: d.Value})
		}
	}

	user := orderedmap.New[string, userDoc]()
	if err := decodeTable(top, TableUser, user); err != nil {
		return nil, err
	}
	for pair := user.Oldest(); pair != nil; pair = pair.Next() {
		p, err := lookup(TableUser, pair.Key)
		if err != nil {
			return nil, err
		}
		s.User.Append(&models.User{Person: p, Password: pair.Value.Password})
	}
	return s, nil
}

// decodeTable decodes the named table into dst. A missing or null table
// leaves dst empty.
func decodeTable[V any](top *orderedmap.OrderedMap[string, json.RawMessage], name string, dst *orderedmap.OrderedMap[string, V]) error {
	raw, ok := top.Get(name)
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return nil
}

// checkSchema verifies that doc has exactly the canonical tables.
func checkSchema(doc *orderedmap.OrderedMap[string, any]) error {
	want := TableNames()
	if doc.Len() != len(want) {
		return errors.SchemaIntegrity(fmt.Sprintf("document has %d tables, want %v", doc.Len(), want))
	}
	for _, name := range want {
		if _, ok := doc.Get(name); !ok {
			return errors.SchemaIntegrity(fmt.Sprintf("document is missing table %q", name))
		}
	}
	return nil
}
