package server

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/maruel/dundie/internal/auth"
	apierrors "github.com/maruel/dundie/internal/errors"
	"github.com/maruel/dundie/internal/server/handlers"
)

// publicPaths do not require a session.
var publicPaths = map[string]bool{
	"/api/health":     true,
	"/api/auth/login": true,
}

// AuthMiddleware validates bearer tokens and adds the user email to the
// context.
func AuthMiddleware(sessions *auth.Sessions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] || !strings.HasPrefix(r.URL.Path, "/api/") {
				next.ServeHTTP(w, r)
				return
			}
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				writeError(w, http.StatusUnauthorized, apierrors.ErrUnauthorized, "Unauthorized", nil)
				return
			}
			claims, err := sessions.Validate(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, apierrors.ErrUnauthorized, "Invalid token", nil)
				return
			}
			ctx := handlers.WithUser(r.Context(), claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Serialize runs one request at a time. The store has a single writer and
// each request connects, mutates and commits it as a whole.
func Serialize(next http.Handler) http.Handler {
	var mu sync.Mutex
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// LogRequests logs every request at debug level.
func LogRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.DebugContext(r.Context(), "Request", "method", r.Method, "path", r.URL.Path, "dur", time.Since(start).Round(time.Millisecond))
	})
}
