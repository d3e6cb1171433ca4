package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/maruel/dundie/internal/auth"
	"github.com/maruel/dundie/internal/config"
	"github.com/maruel/dundie/internal/core"
	"github.com/maruel/dundie/internal/email"
	"github.com/maruel/dundie/internal/ledger"
	"github.com/maruel/dundie/internal/render"
	"github.com/maruel/dundie/internal/storage"
	"github.com/maruel/dundie/internal/storage/git"
)

// tokenFile holds the session of "dundie login" in the data directory.
const tokenFile = ".token"

// env is shared by the commands. The application is opened on first use so
// that commands like "schema" work without a data directory.
type env struct {
	dataDir string
	in      io.Reader
	out     io.Writer
	color   bool
	// prompt is set when in is a terminal.
	prompt bool

	app *app
}

type app struct {
	cfg     *config.Config
	service *core.Service
	repo    *git.Repo
}

func (e *env) open(ctx context.Context) (*app, error) {
	if e.app != nil {
		return e.app, nil
	}
	cfg, err := config.Load(e.dataDir)
	if err != nil {
		return nil, err
	}
	var backend storage.Backend
	switch cfg.Backend {
	case config.BackendSQLite:
		if backend, err = storage.NewSQLiteBackend(cfg.DatabasePath()); err != nil {
			return nil, err
		}
	default:
		backend = storage.NewFileBackend(cfg.DatabasePath())
	}
	a := &app{cfg: cfg}
	var history storage.History
	if cfg.History {
		if a.repo, err = git.Open(cfg.DatabasePath(), "dundie", cfg.From); err != nil {
			_ = backend.Close()
			return nil, err
		}
		history = a.repo
	}
	engine := storage.NewEngine(backend, history)
	engine.Author = currentUser()
	var mailer email.Sender = email.LogSender{}
	if cfg.SMTP.Enabled() {
		mailer = email.NewService(cfg.SMTP)
	}
	a.service = &core.Service{
		Engine: engine,
		Ledger: &ledger.Ledger{
			Mailer:    mailer,
			Passwords: auth.Passwords{Cost: cfg.BcryptCost},
			From:      cfg.From,
			Locale:    email.ParseLocale(cfg.Locale),
		},
	}
	slog.DebugContext(ctx, "Opened database", "path", cfg.DatabasePath(), "backend", cfg.Backend, "history", cfg.History)
	e.app = a
	return a, nil
}

func (e *env) close() {
	if e.app == nil {
		return
	}
	if err := e.app.service.Engine.Close(); err != nil {
		slog.Warn("Failed to close database", "err", err)
	}
	e.app = nil
}

// sessions returns the token manager, creating the secret on first use.
func (a *app) sessions() (*auth.Sessions, error) {
	if err := a.cfg.EnsureSecret(); err != nil {
		return nil, err
	}
	return auth.NewSessions(a.cfg.JWTSecret, a.cfg.SessionTTL), nil
}

func (e *env) saveToken(token string) error {
	if err := os.MkdirAll(e.dataDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(e.dataDir, tokenFile), []byte(token+"\n"), 0o600)
}

// loggedIn returns the email of the saved session.
func (e *env) loggedIn(a *app) (string, error) {
	raw, err := os.ReadFile(filepath.Join(e.dataDir, tokenFile))
	if errors.Is(err, os.ErrNotExist) {
		return "", errors.New("not logged in, run \"dundie login\" first")
	}
	if err != nil {
		return "", err
	}
	sessions, err := a.sessions()
	if err != nil {
		return "", err
	}
	claims, err := sessions.Validate(strings.TrimSpace(string(raw)))
	if err != nil {
		return "", fmt.Errorf("%w, run \"dundie login\" again", err)
	}
	return claims.Subject, nil
}

func (e *env) render(t *render.Table) error {
	return render.Write(e.out, t.Markdown(), e.color)
}

func currentUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return os.Getenv("USERNAME")
}
