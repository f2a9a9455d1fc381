package handler

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mveldt/clipnotes/internal/auth"
	"github.com/mveldt/clipnotes/internal/database"
	"github.com/mveldt/clipnotes/internal/middleware"
	"github.com/mveldt/clipnotes/internal/platform"
	"github.com/mveldt/clipnotes/internal/secrets"
	"github.com/mveldt/clipnotes/internal/store"
)

type sessionTestEnv struct {
	handler  *SessionHandler
	users    *store.UserStore
	sessions *store.SessionStore
	vault    *secrets.Vault
	email    string
	name     string
}

func setupSessionHandler(t *testing.T) *sessionTestEnv {
	t.Helper()

	db, err := database.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	dialect, err := store.DialectFor("sqlite")
	if err != nil {
		t.Fatalf("dialect: %v", err)
	}

	env := &sessionTestEnv{
		users:    store.NewUserStore(db, dialect),
		sessions: store.NewSessionStore(db, dialect),
		vault:    secrets.NewVault("session-test-secret"),
		email:    "creator@example.com",
		name:     "Creator",
	}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/me" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer good-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":"plat-123","email":%q,"display_name":%q}`, env.email, env.name)
	}))
	t.Cleanup(ts.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env.handler = NewSessionHandler(
		env.users, env.sessions, platform.NewClient(ts.URL), env.vault, time.Hour, logger,
	)
	return env
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			return c
		}
	}
	return nil
}

func TestSessionCreate(t *testing.T) {
	env := setupSessionHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/session",
		strings.NewReader(`{"access_token":"good-token"}`))
	rec := httptest.NewRecorder()
	env.handler.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	cookie := sessionCookie(t, rec)
	if cookie == nil {
		t.Fatal("expected session cookie")
	}
	if !cookie.HttpOnly || cookie.Path != "/" {
		t.Errorf("cookie = %+v, want HttpOnly with Path /", cookie)
	}

	sess, err := env.sessions.GetByToken(cookie.Value)
	if err != nil || sess == nil {
		t.Fatalf("session lookup: %v, sess %v", err, sess)
	}

	user, err := env.users.GetByPlatformID("plat-123")
	if err != nil || user == nil {
		t.Fatalf("user lookup: %v, user %v", err, user)
	}
	if sess.UserID != user.ID {
		t.Errorf("session user = %q, want %q", sess.UserID, user.ID)
	}

	// The platform token must be recoverable only through the vault
	token, err := env.vault.Open(user.TokenCipher)
	if err != nil {
		t.Fatalf("open token cipher: %v", err)
	}
	if token != "good-token" {
		t.Errorf("token = %q, want good-token", token)
	}

	if strings.Contains(rec.Body.String(), "token_cipher") {
		t.Error("response body leaks token cipher")
	}
}

func TestSessionCreateRefreshesProfile(t *testing.T) {
	env := setupSessionHandler(t)

	existing, err := env.users.Create("plat-123", "old@example.com", "Old Name")
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/session",
		strings.NewReader(`{"access_token":"good-token"}`))
	rec := httptest.NewRecorder()
	env.handler.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	user, err := env.users.GetByPlatformID("plat-123")
	if err != nil || user == nil {
		t.Fatalf("user lookup: %v", err)
	}
	if user.ID != existing.ID {
		t.Errorf("user id changed: %q -> %q", existing.ID, user.ID)
	}
	if user.Email != "creator@example.com" || user.DisplayName != "Creator" {
		t.Errorf("profile not refreshed: %+v", user)
	}
}

func TestSessionCreateRejectsBadToken(t *testing.T) {
	env := setupSessionHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/session",
		strings.NewReader(`{"access_token":"stolen"}`))
	rec := httptest.NewRecorder()
	env.handler.Create(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if cookie := sessionCookie(t, rec); cookie != nil {
		t.Error("expected no session cookie on rejected token")
	}
}

func TestSessionCreateRequiresToken(t *testing.T) {
	env := setupSessionHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/session", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	env.handler.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "access_token is required") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestSessionDelete(t *testing.T) {
	env := setupSessionHandler(t)

	user, err := env.users.Create("plat-123", "creator@example.com", "Creator")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	sess, err := env.sessions.Create(user.ID, time.Hour)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/session", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: sess.Token})
	rec := httptest.NewRecorder()
	env.handler.Delete(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	gone, err := env.sessions.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if gone != nil {
		t.Error("expected session to be deleted")
	}

	cookie := sessionCookie(t, rec)
	if cookie == nil || cookie.MaxAge >= 0 {
		t.Errorf("expected expiring cookie, got %+v", cookie)
	}
}

func TestMe(t *testing.T) {
	env := setupSessionHandler(t)

	user, err := env.users.Create("plat-123", "creator@example.com", "Creator")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req = req.WithContext(auth.WithAuth(req.Context(), auth.AuthContext{UserID: user.ID}))
	rec := httptest.NewRecorder()
	env.handler.Me(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "creator@example.com") {
		t.Errorf("body missing email: %s", body)
	}
	if strings.Contains(body, "token_cipher") {
		t.Error("body leaks token cipher field")
	}
}
