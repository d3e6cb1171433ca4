// Package models defines the record types stored in the dundie database.
package models

import (
	"strings"

	"github.com/maruel/dundie/internal/email"
	"github.com/maruel/dundie/internal/errors"
	"github.com/maruel/dundie/internal/jsonldb"
)

// DefaultCurrency is used when a person has no currency set.
const DefaultCurrency = "USD"

// RoleManager is the role that receives the smaller initial balance.
const RoleManager = "Manager"

// Person is an employee taking part in the points program. Email is the
// primary key.
type Person struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Dept     string `json:"dept"`
	Role     string `json:"role"`
	Currency string `json:"currency"`
}

// NewPerson validates the email and returns a new Person. An empty currency
// stays empty so that Merge keeps the stored one; see WithDefaults.
func NewPerson(address, name, dept, role, currency string) (*Person, error) {
	address = strings.TrimSpace(address)
	if !email.IsValid(address) {
		return nil, errors.InvalidEmail(address)
	}
	return &Person{
		Email:    address,
		Name:     strings.TrimSpace(name),
		Dept:     strings.TrimSpace(dept),
		Role:     strings.TrimSpace(role),
		Currency: strings.TrimSpace(currency),
	}, nil
}

// WithDefaults sets the default currency when none is set and returns p.
func (p *Person) WithDefaults() *Person {
	if p.Currency == "" {
		p.Currency = DefaultCurrency
	}
	return p
}

// IsManager reports whether the person holds the Manager role.
func (p *Person) IsManager() bool {
	return p.Role == RoleManager
}

// Merge copies the mutable fields of o onto p. The key is left untouched and
// an empty currency keeps the current one.
func (p *Person) Merge(o *Person) {
	p.Name = o.Name
	p.Dept = o.Dept
	p.Role = o.Role
	if o.Currency != "" {
		p.Currency = o.Currency
	}
}

// Key implements jsonldb.Keyer.
func (p *Person) Key() string {
	return p.Email
}

// Field implements jsonldb.Record.
func (p *Person) Field(name string) (any, bool) {
	switch name {
	case "email", "pk":
		return p.Email, true
	case "name":
		return p.Name, true
	case "dept":
		return p.Dept, true
	case "role":
		return p.Role, true
	case "currency":
		return p.Currency, true
	}
	return nil, false
}

// Related implements jsonldb.Record. A person has no relations.
func (p *Person) Related(string) (jsonldb.Record, bool) {
	return nil, false
}

// User holds the login credential of a person. Password is a bcrypt hash for
// users created by this program; databases written by older tools may hold
// plain text.
type User struct {
	Person   *Person `json:"person"`
	Password string  `json:"-"`
}

// Field implements jsonldb.Record.
func (u *User) Field(name string) (any, bool) {
	if name == "password" {
		return u.Password, true
	}
	return nil, false
}

// Related implements jsonldb.Record.
func (u *User) Related(name string) (jsonldb.Record, bool) {
	return personRelation(u.Person, name)
}

func personRelation(p *Person, name string) (jsonldb.Record, bool) {
	if name != "person" || p == nil {
		return nil, false
	}
	return p, true
}
