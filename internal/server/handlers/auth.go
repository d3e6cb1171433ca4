package handlers

import (
	"context"

	"github.com/maruel/dundie/internal/auth"
	"github.com/maruel/dundie/internal/core"
	"github.com/maruel/dundie/internal/errors"
)

// AuthHandler handles authentication requests.
type AuthHandler struct {
	service  *core.Service
	sessions *auth.Sessions
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(service *core.Service, sessions *auth.Sessions) *AuthHandler {
	return &AuthHandler{service: service, sessions: sessions}
}

// LoginRequest is a request to log in.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is a response from logging in.
type LoginResponse struct {
	Token string `json:"token"`
	Email string `json:"email"`
}

// Login checks the credentials and returns a session token.
func (h *AuthHandler) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	if req.Email == "" || req.Password == "" {
		return nil, errors.Validation("email and password are required")
	}
	db, err := h.service.Connect(ctx)
	if err != nil {
		return nil, errors.Internal("failed to load database", err)
	}
	u, err := auth.Authenticate(db, req.Email, req.Password)
	if err != nil {
		if errors.HasCode(err, errors.ErrInvalidEmail) {
			return nil, err
		}
		// Do not tell unknown users from wrong passwords.
		return nil, errors.Unauthorized("invalid email or password")
	}
	token, err := h.sessions.Issue(u.Person.Email)
	if err != nil {
		return nil, errors.Internal("failed to generate token", err)
	}
	return &LoginResponse{Token: token, Email: u.Person.Email}, nil
}
