package handlers

import (
	"context"
	"time"

	"github.com/maruel/dundie/internal/core"
	"github.com/maruel/dundie/internal/errors"
	"github.com/maruel/dundie/internal/models"
)

// PeopleHandler exposes balances and movements.
type PeopleHandler struct {
	service *core.Service
}

// NewPeopleHandler creates a new people handler.
func NewPeopleHandler(service *core.Service) *PeopleHandler {
	return &PeopleHandler{service: service}
}

// ListPeopleRequest filters people.
type ListPeopleRequest struct {
	Email string `query:"email"`
	Dept  string `query:"dept"`
	Role  string `query:"role"`
}

// ListPeopleResponse is the list of people with their balance.
type ListPeopleResponse struct {
	People []core.PersonView `json:"people"`
}

// ListPeople returns the people matching the request.
func (h *PeopleHandler) ListPeople(ctx context.Context, req ListPeopleRequest) (*ListPeopleResponse, error) {
	people, err := h.service.Read(ctx, core.Query{Email: req.Email, Dept: req.Dept, Role: req.Role})
	if err != nil {
		return nil, err
	}
	return &ListPeopleResponse{People: people}, nil
}

// StatementRequest selects a person.
type StatementRequest struct {
	Email string `path:"email"`
}

// MovementView is one movement of a statement.
type MovementView struct {
	Date  time.Time     `json:"date"`
	Actor string        `json:"actor"`
	Value models.Points `json:"value"`
}

// StatementResponse lists the movements of a person.
type StatementResponse struct {
	Email     string         `json:"email"`
	Movements []MovementView `json:"movements"`
}

// Statement returns the movements of a person. Users can only read their own
// statement.
func (h *PeopleHandler) Statement(ctx context.Context, req StatementRequest) (*StatementResponse, error) {
	if user, _ := UserEmail(ctx); user != req.Email {
		return nil, errors.Unauthorized("cannot read the statement of somebody else")
	}
	movements, err := h.service.Statement(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	out := &StatementResponse{Email: req.Email, Movements: make([]MovementView, 0, len(movements))}
	for _, m := range movements {
		out.Movements = append(out.Movements, MovementView{Date: m.Date, Actor: m.Actor, Value: m.Value})
	}
	return out, nil
}

// TransferRequest moves points from the authenticated user to somebody else.
type TransferRequest struct {
	To    string        `json:"to"`
	Value models.Points `json:"value"`
}

// TransferResponse returns the sender's people entry after the transfer.
type TransferResponse struct {
	From core.PersonView `json:"from"`
}

// Transfer sends points from the authenticated user.
func (h *PeopleHandler) Transfer(ctx context.Context, req TransferRequest) (*TransferResponse, error) {
	from, ok := UserEmail(ctx)
	if !ok {
		return nil, errors.Unauthorized("login required")
	}
	if err := h.service.Transfer(ctx, from, req.To, req.Value); err != nil {
		return nil, err
	}
	people, err := h.service.Read(ctx, core.Query{Email: from})
	if err != nil {
		return nil, err
	}
	if len(people) != 1 {
		return nil, errors.NotFound("person", from)
	}
	return &TransferResponse{From: people[0]}, nil
}
