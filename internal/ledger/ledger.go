// Package ledger implements the operations that change people and points.
//
// Movements are an append-only history. A balance is derived from that
// history and recomputed in full by RecomputeBalance whenever a movement is
// added.
package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/maruel/dundie/internal/email"
	"github.com/maruel/dundie/internal/jsonldb"
	"github.com/maruel/dundie/internal/models"
	"github.com/maruel/dundie/internal/storage"
)

// Initial balances of new people.
var (
	ManagerPoints  = models.P(100)
	EmployeePoints = models.P(500)
)

// DefaultFrom is the sender of password emails.
const DefaultFrom = "master@dundie.com"

// Passwords creates the credential of new users. Generate returns the
// password to deliver, Hash the value to store.
type Passwords interface {
	Generate() (string, error)
	Hash(password string) (string, error)
}

// Ledger applies changes to a store. It is not safe for concurrent use.
type Ledger struct {
	Mailer    email.Sender
	Passwords Passwords
	// Now is the clock of new movements; time.Now when nil.
	Now    func() time.Time
	From   string
	Locale email.Locale

	outbox []message
}

type message struct {
	to, subject, body string
}

func (l *Ledger) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

// InitialPoints returns the balance a new person starts with.
func InitialPoints(p *models.Person) models.Points {
	if p.IsManager() {
		return ManagerPoints
	}
	return EmployeePoints
}

// AddPerson inserts p or updates the stored person with the same email.
//
// A new person gets a user with a generated password, an initial movement
// and a pending email with the password; created is true. An existing person
// only has its mutable fields merged; its user and movements are left alone.
// The stored person is returned in both cases.
func (l *Ledger) AddPerson(ctx context.Context, s *storage.Store, p *models.Person) (*models.Person, bool, error) {
	if existing, err := s.People.GetByKey(p.Email); err == nil {
		existing.Merge(p)
		slog.DebugContext(ctx, "Person updated", "email", p.Email)
		return existing, false, nil
	}
	password, err := l.Passwords.Generate()
	if err != nil {
		return nil, false, err
	}
	stored, err := l.Passwords.Hash(password)
	if err != nil {
		return nil, false, err
	}
	p.WithDefaults()
	s.People.Append(p)
	s.User.Append(&models.User{Person: p, Password: stored})
	if _, err := l.SetInitialBalance(ctx, s, p); err != nil {
		return nil, false, err
	}
	subject, body := email.PasswordEmail(l.Locale, p.Name, password)
	l.outbox = append(l.outbox, message{to: p.Email, subject: subject, body: body})
	slog.DebugContext(ctx, "Person created", "email", p.Email)
	return p, true, nil
}

// SetInitialBalance records the initial movement of p.
func (l *Ledger) SetInitialBalance(ctx context.Context, s *storage.Store, p *models.Person) (*models.Balance, error) {
	return l.AddMovement(ctx, s, p, InitialPoints(p), models.DefaultActor)
}

// AddMovement appends a movement of value for p and returns its recomputed
// balance. An empty actor is recorded as models.DefaultActor. p must be in
// the store.
func (l *Ledger) AddMovement(ctx context.Context, s *storage.Store, p *models.Person, value models.Points, actor string) (*models.Balance, error) {
	stored, err := s.People.GetByKey(p.Email)
	if err != nil {
		return nil, err
	}
	if actor == "" {
		actor = models.DefaultActor
	}
	s.Movement.Append(&models.Movement{Person: stored, Date: l.now(), Actor: actor, Value: value})
	slog.DebugContext(ctx, "Movement added", "email", stored.Email, "value", value.String(), "actor", actor)
	return RecomputeBalance(s, stored)
}

// RecomputeBalance sets the balance of p to the sum of all its movements.
// The balance row is updated in place, or appended when p has none yet.
func RecomputeBalance(s *storage.Store, p *models.Person) (*models.Balance, error) {
	movements, err := s.Movement.Filter(jsonldb.RelatedFieldEquals{Relation: jsonldb.OwnerRelation, Name: "email", Value: p.Email})
	if err != nil {
		return nil, err
	}
	var total models.Points
	for _, m := range movements.All() {
		total = total.Add(m.Value)
	}
	if b, err := s.Balance.GetByKey(p.Email); err == nil {
		b.Value = total
		return b, nil
	}
	b := &models.Balance{Person: p, Value: total}
	s.Balance.Append(b)
	return b, nil
}

// Pending returns the number of emails waiting for Deliver.
func (l *Ledger) Pending() int {
	return len(l.outbox)
}

// Deliver sends the pending password emails. Call it once the store was
// committed. Failures are logged and dropped; they never undo the commit.
func (l *Ledger) Deliver(ctx context.Context) {
	from := l.From
	if from == "" {
		from = DefaultFrom
	}
	outbox := l.outbox
	l.outbox = nil
	for _, m := range outbox {
		if err := l.Mailer.Send(ctx, from, m.to, m.subject, m.body); err != nil {
			slog.WarnContext(ctx, "Cannot send email", "to", m.to, "err", err)
		}
	}
}

// Discard drops the pending emails, for when the commit failed.
func (l *Ledger) Discard() {
	l.outbox = nil
}
