// Package server exposes the dundie ledger as a JSON HTTP API.
package server

import (
	"net/http"

	"github.com/maruel/dundie/internal/auth"
	"github.com/maruel/dundie/internal/core"
	"github.com/maruel/dundie/internal/server/handlers"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(service *core.Service, sessions *auth.Sessions, version string) http.Handler {
	mux := http.NewServeMux()

	authHandler := handlers.NewAuthHandler(service, sessions)
	peopleHandler := handlers.NewPeopleHandler(service)

	mux.Handle("GET /api/health", Wrap(handlers.NewHealth(version)))
	mux.Handle("POST /api/auth/login", Wrap(authHandler.Login))

	mux.Handle("GET /api/people", Wrap(peopleHandler.ListPeople))
	mux.Handle("GET /api/people/{email}/movements", Wrap(peopleHandler.Statement))
	mux.Handle("POST /api/transfers", Wrap(peopleHandler.Transfer))

	return LogRequests(AuthMiddleware(sessions)(Serialize(mux)))
}
