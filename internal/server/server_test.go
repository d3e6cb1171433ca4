package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/maruel/dundie/internal/auth"
	"github.com/maruel/dundie/internal/core"
	"github.com/maruel/dundie/internal/ledger"
	"github.com/maruel/dundie/internal/models"
	"github.com/maruel/dundie/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

type nopMailer struct{}

func (nopMailer) Send(context.Context, string, string, string, string) error { return nil }

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := t.Context()
	e := storage.NewEngine(storage.NewFileBackend(filepath.Join(t.TempDir(), "database.json")), nil)
	l := &ledger.Ledger{Mailer: nopMailer{}, Passwords: auth.Passwords{Cost: bcrypt.MinCost}}
	s := storage.EmptyStore()
	for _, p := range []struct{ email, role string }{{"joe@doe.com", "Salesman"}, {"jim@doe.com", models.RoleManager}} {
		person, err := models.NewPerson(p.email, p.email, "Sales", p.role, "")
		if err != nil {
			t.Fatal(err)
		}
		if _, _, err := l.AddPerson(ctx, s, person); err != nil {
			t.Fatal(err)
		}
	}
	h, err := auth.HashPassword("s3cret", bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	u, err := s.User.GetByKey("joe@doe.com")
	if err != nil {
		t.Fatal(err)
	}
	u.Password = h
	if err := e.Commit(ctx, s); err != nil {
		t.Fatal(err)
	}
	l.Discard()
	service := &core.Service{Engine: e, Ledger: l}
	srv := httptest.NewServer(NewRouter(service, auth.NewSessions("secret", time.Hour), "test"))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, token, body string, out any) int {
	t.Helper()
	req, err := http.NewRequestWithContext(t.Context(), method, srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatal(err)
		}
	}
	return resp.StatusCode
}

func login(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	var resp struct{ Token string }
	if code := do(t, srv, "POST", "/api/auth/login", "", `{"email": "joe@doe.com", "password": "s3cret"}`, &resp); code != http.StatusOK {
		t.Fatalf("login status = %d", code)
	}
	return resp.Token
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	var resp struct{ Status, Version string }
	if code := do(t, srv, "GET", "/api/health", "", "", &resp); code != http.StatusOK || resp.Status != "ok" || resp.Version != "test" {
		t.Errorf("health = %d %+v", code, resp)
	}
}

func TestLogin(t *testing.T) {
	srv := newTestServer(t)
	tests := []struct {
		name string
		body string
		want int
	}{
		{"wrong password", `{"email": "joe@doe.com", "password": "nope"}`, http.StatusUnauthorized},
		{"unknown user", `{"email": "ann@doe.com", "password": "s3cret"}`, http.StatusUnauthorized},
		{"invalid email", `{"email": "joe", "password": "s3cret"}`, http.StatusBadRequest},
		{"missing", `{"email": "joe@doe.com"}`, http.StatusBadRequest},
		{"unknown field", `{"email": "joe@doe.com", "password": "s3cret", "admin": true}`, http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if code := do(t, srv, "POST", "/api/auth/login", "", tc.body, nil); code != tc.want {
				t.Errorf("status = %d, want %d", code, tc.want)
			}
		})
	}
	if login(t, srv) == "" {
		t.Error("empty token")
	}
}

func TestPeople(t *testing.T) {
	srv := newTestServer(t)
	if code := do(t, srv, "GET", "/api/people", "", "", nil); code != http.StatusUnauthorized {
		t.Errorf("anonymous status = %d", code)
	}
	if code := do(t, srv, "GET", "/api/people", "bad", "", nil); code != http.StatusUnauthorized {
		t.Errorf("bad token status = %d", code)
	}
	token := login(t, srv)
	var resp struct {
		People []struct {
			Email   string
			Balance float64
		}
	}
	if code := do(t, srv, "GET", "/api/people?role=Manager", token, "", &resp); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(resp.People) != 1 || resp.People[0].Email != "jim@doe.com" || resp.People[0].Balance != 100 {
		t.Errorf("people = %+v", resp.People)
	}
}

func TestTransfer(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv)
	var resp struct {
		From struct{ Balance float64 }
	}
	if code := do(t, srv, "POST", "/api/transfers", token, `{"to": "jim@doe.com", "value": 120}`, &resp); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if resp.From.Balance != 380 {
		t.Errorf("balance = %v", resp.From.Balance)
	}
	var errResp struct {
		Error struct{ Code string }
	}
	if code := do(t, srv, "POST", "/api/transfers", token, `{"to": "jim@doe.com", "value": 1000}`, &errResp); code != http.StatusConflict || errResp.Error.Code != "INSUFFICIENT_BALANCE" {
		t.Errorf("status = %d, code = %q", code, errResp.Error.Code)
	}

	var st struct {
		Movements []struct {
			Actor string
			Value float64
		}
	}
	if code := do(t, srv, "GET", "/api/people/joe@doe.com/movements", token, "", &st); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(st.Movements) != 2 || st.Movements[1].Value != -120 || st.Movements[1].Actor != "joe@doe.com" {
		t.Errorf("movements = %+v", st.Movements)
	}
	if code := do(t, srv, "GET", "/api/people/jim@doe.com/movements", token, "", nil); code != http.StatusUnauthorized {
		t.Errorf("foreign statement status = %d", code)
	}
}
