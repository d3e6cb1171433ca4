// Package core implements the dundie application operations on top of the
// store: importing people, reading balances and moving points.
//
// Each operation connects to the store, applies its changes in memory and
// commits once.
package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/maruel/dundie/internal/errors"
	"github.com/maruel/dundie/internal/jsonldb"
	"github.com/maruel/dundie/internal/ledger"
	"github.com/maruel/dundie/internal/models"
	"github.com/maruel/dundie/internal/storage"
)

// Service runs operations against one store.
type Service struct {
	Engine *storage.Engine
	Ledger *ledger.Ledger
}

// Query selects people. Empty fields match everybody.
type Query struct {
	Email string
	Dept  string
	Role  string
	Name  string
}

// Criteria returns the filter selecting the people matching q.
func (q Query) Criteria() []jsonldb.Criterion {
	var out []jsonldb.Criterion
	add := func(field, value string) {
		if value != "" {
			out = append(out, jsonldb.FieldEquals{Name: field, Value: value})
		}
	}
	add("pk", q.Email)
	add("dept", q.Dept)
	add("role", q.Role)
	add("name", q.Name)
	return out
}

func (q Query) String() string {
	var parts []string
	for _, c := range q.Criteria() {
		parts = append(parts, c.String())
	}
	if len(parts) == 0 {
		return "everybody"
	}
	return strings.Join(parts, ", ")
}

// PersonView is a person with its current balance.
type PersonView struct {
	Email        string        `json:"email"`
	Name         string        `json:"name"`
	Dept         string        `json:"dept"`
	Role         string        `json:"role"`
	Currency     string        `json:"currency"`
	Balance      models.Points `json:"balance"`
	LastMovement time.Time     `json:"last_movement"`
}

// LoadResult is one imported person.
type LoadResult struct {
	PersonView
	Created bool `json:"created"`
}

// Load imports people from a CSV file and commits them.
func (s *Service) Load(ctx context.Context, path string) ([]LoadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	rows, err := parseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	db, err := s.Engine.Connect(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]LoadResult, 0, len(rows))
	for _, row := range rows {
		p, err := models.NewPerson(row.email, row.name, row.dept, row.role, row.currency)
		if err != nil {
			s.Ledger.Discard()
			return nil, fmt.Errorf("%s:%d: %w", path, row.line, err)
		}
		p, created, err := s.Ledger.AddPerson(ctx, db, p)
		if err != nil {
			s.Ledger.Discard()
			return nil, err
		}
		out = append(out, LoadResult{PersonView: view(db, p), Created: created})
	}
	if err := s.commit(ctx, db, "Load "+filepath.Base(path)); err != nil {
		return nil, err
	}
	return out, nil
}

// Read returns the people matching q with their balance, in insertion order.
func (s *Service) Read(ctx context.Context, q Query) ([]PersonView, error) {
	db, err := s.Engine.Connect(ctx)
	if err != nil {
		return nil, err
	}
	people, err := db.People.Filter(q.Criteria()...)
	if err != nil {
		return nil, err
	}
	out := make([]PersonView, 0, people.Len())
	for _, p := range people.All() {
		out = append(out, view(db, p))
	}
	return out, nil
}

// Add records a movement of value for every person matching q. It fails with
// a not found error when nobody matches.
func (s *Service) Add(ctx context.Context, value models.Points, q Query, actor string) ([]PersonView, error) {
	db, err := s.Engine.Connect(ctx)
	if err != nil {
		return nil, err
	}
	people, err := db.People.Filter(q.Criteria()...)
	if err != nil {
		return nil, err
	}
	if people.Len() == 0 {
		return nil, errors.NotFound("person", q.String())
	}
	out := make([]PersonView, 0, people.Len())
	for _, p := range people.All() {
		if _, err := s.Ledger.AddMovement(ctx, db, p, value, actor); err != nil {
			return nil, err
		}
		out = append(out, view(db, p))
	}
	msg := fmt.Sprintf("Add %s points to %s", value, q)
	if err := s.commit(ctx, db, msg); err != nil {
		return nil, err
	}
	return out, nil
}

// Transfer moves value points from one person to another. The sender is the
// actor of both movements and cannot overdraw.
func (s *Service) Transfer(ctx context.Context, from, to string, value models.Points) error {
	if !value.IsPositive() {
		return errors.Validation("transfer value must be positive")
	}
	if from == to {
		return errors.Validation("cannot transfer points to yourself")
	}
	db, err := s.Engine.Connect(ctx)
	if err != nil {
		return err
	}
	sender, err := db.People.GetByKey(from)
	if err != nil {
		return err
	}
	receiver, err := db.People.GetByKey(to)
	if err != nil {
		return err
	}
	balance := balanceOf(db, sender)
	if balance.LessThan(value) {
		return errors.InsufficientBalance(from, balance.String(), value.String())
	}
	if _, err := s.Ledger.AddMovement(ctx, db, sender, value.Neg(), from); err != nil {
		return err
	}
	if _, err := s.Ledger.AddMovement(ctx, db, receiver, value, from); err != nil {
		return err
	}
	return s.commit(ctx, db, fmt.Sprintf("Transfer %s points from %s to %s", value, from, to))
}

// Statement returns the movements of a person, oldest first.
func (s *Service) Statement(ctx context.Context, address string) ([]*models.Movement, error) {
	db, err := s.Engine.Connect(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := db.People.GetByKey(address); err != nil {
		return nil, err
	}
	movements, err := db.Movement.Filter(jsonldb.RelatedFieldEquals{Relation: jsonldb.OwnerRelation, Name: "email", Value: address})
	if err != nil {
		return nil, err
	}
	return movements.Rows(), nil
}

// Connect returns the current store, for read-only callers.
func (s *Service) Connect(ctx context.Context) (*storage.Store, error) {
	return s.Engine.Connect(ctx)
}

func (s *Service) commit(ctx context.Context, db *storage.Store, message string) error {
	if err := s.Engine.CommitMessage(ctx, db, message); err != nil {
		s.Ledger.Discard()
		return err
	}
	s.Ledger.Deliver(ctx)
	return nil
}

func balanceOf(db *storage.Store, p *models.Person) models.Points {
	if b, err := db.Balance.GetByKey(p.Email); err == nil {
		return b.Value
	}
	return models.Points{}
}

func view(db *storage.Store, p *models.Person) PersonView {
	v := PersonView{
		Email:    p.Email,
		Name:     p.Name,
		Dept:     p.Dept,
		Role:     p.Role,
		Currency: p.Currency,
		Balance:  balanceOf(db, p),
	}
	if v.Currency == "" {
		v.Currency = models.DefaultCurrency
	}
	movements, err := db.Movement.Filter(jsonldb.RelatedFieldEquals{Relation: jsonldb.OwnerRelation, Name: "email", Value: p.Email})
	if err == nil {
		if last, err := movements.Last(); err == nil {
			v.LastMovement = last.Date
		}
	}
	return v
}
