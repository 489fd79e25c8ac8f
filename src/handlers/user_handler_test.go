package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	_ "modernc.org/sqlite"

	"github.com/username/runefolio/backend/src/config"
	"github.com/username/runefolio/backend/src/database"
	"github.com/username/runefolio/backend/src/logger"
	"github.com/username/runefolio/backend/src/model"
	"github.com/username/runefolio/backend/src/security"
)

func setupUserHandlerTest(t *testing.T) *UserHandler {
	t.Helper()
	logger.InitLogger("error")
	config.Cfg = &config.AppConfig{
		JWTSecret:          "test-secret-0123456789abcdef0123456789",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
	}

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
	CREATE TABLE users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		login_count INTEGER NOT NULL DEFAULT 0,
		last_login_at TIMESTAMP,
		last_login_ip TEXT,
		totp_secret TEXT,
		totp_enabled BOOLEAN NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		token TEXT NOT NULL UNIQUE,
		refresh_token TEXT NOT NULL UNIQUE,
		user_agent TEXT,
		client_ip TEXT,
		is_blocked BOOLEAN NOT NULL DEFAULT 0,
		expires_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	database.DB = db

	authService := security.NewAuthService(config.Cfg.JWTSecret)
	reportCache := cache.New(time.Minute, time.Minute)
	return NewUserHandler(authService, nil, nil, reportCache)
}

func postJSON(t *testing.T, handler http.HandlerFunc, path, body string, ctx context.Context) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if ctx != nil {
		req = req.WithContext(ctx)
	}
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestRegisterDuplicateUsername(t *testing.T) {
	h := setupUserHandlerTest(t)

	body := `{"username":"zezima","email":"zezima@example.com","password":"trimming1armour"}`
	rec := postJSON(t, h.Register, "/api/auth/register", body, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("first register status = %d, want %d (body %s)", rec.Code, http.StatusCreated, rec.Body.String())
	}

	// Same username, different email: the specific conflict message must
	// come back with a 409.
	body = `{"username":"zezima","email":"other@example.com","password":"trimming1armour"}`
	rec = postJSON(t, h.Register, "/api/auth/register", body, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate register status = %d, want %d", rec.Code, http.StatusConflict)
	}
	if !strings.Contains(rec.Body.String(), "Username already exists") {
		t.Errorf("duplicate register body = %s, want it to mention the username conflict", rec.Body.String())
	}

	// Same email under a new username conflicts too.
	body = `{"username":"zezima2","email":"zezima@example.com","password":"trimming1armour"}`
	rec = postJSON(t, h.Register, "/api/auth/register", body, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate email status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestChangePassword(t *testing.T) {
	h := setupUserHandlerTest(t)

	body := `{"username":"durial321","email":"durial@example.com","password":"original1pass"}`
	if rec := postJSON(t, h.Register, "/api/auth/register", body, nil); rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, want %d", rec.Code, http.StatusCreated)
	}
	user, err := model.GetUserByUsername(database.DB, "durial321")
	if err != nil {
		t.Fatalf("GetUserByUsername failed: %v", err)
	}

	session := &model.Session{
		UserID:       user.ID,
		Token:        "access-token",
		RefreshToken: "refresh-token",
		ExpiresAt:    time.Now().Add(time.Hour),
	}
	if err := model.CreateSession(database.DB, session); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	ctx := context.WithValue(context.Background(), userIDContextKey, user.ID)

	rec := postJSON(t, h.ChangePassword, "/api/auth/change-password",
		`{"current_password":"wrong1password","new_password":"replacement1pass"}`, ctx)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong current password status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	rec = postJSON(t, h.ChangePassword, "/api/auth/change-password",
		`{"current_password":"original1pass","new_password":"replacement1pass"}`, ctx)
	if rec.Code != http.StatusOK {
		t.Fatalf("change password status = %d, want %d (body %s)", rec.Code, http.StatusOK, rec.Body.String())
	}

	updated, err := model.GetUserByID(database.DB, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if err := h.authService.CheckPassword(updated.Password, "replacement1pass"); err != nil {
		t.Error("new password does not verify against the stored hash")
	}
	if err := h.authService.CheckPassword(updated.Password, "original1pass"); err == nil {
		t.Error("old password still verifies after the change")
	}

	// Every session must be revoked so all devices re-authenticate.
	if _, err := model.GetSessionByToken(database.DB, "access-token"); err == nil {
		t.Error("session survived a password change")
	}
}
