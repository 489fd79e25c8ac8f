package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/username/runefolio/backend/src/config"
	"github.com/username/runefolio/backend/src/logger"
)

func setupCSRFTest(t *testing.T) {
	t.Helper()
	logger.InitLogger("error")
	config.Cfg = &config.AppConfig{
		CSRFAuthKey: []byte("0123456789abcdef0123456789abcdef"),
	}
}

func issueToken(t *testing.T) (*http.Cookie, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	GetCSRFToken(rec, httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GetCSRFToken status = %d, want %d", rec.Code, http.StatusOK)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != csrfCookieName {
		t.Fatalf("expected a single %s cookie, got %v", csrfCookieName, cookies)
	}
	return cookies[0], cookies[0].Value
}

func TestCSRFMiddleware(t *testing.T) {
	setupCSRFTest(t)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	protected := CSRFMiddleware(next)

	t.Run("GET passes without token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/items", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
		}
	})

	t.Run("POST without cookie is rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/investments", nil))
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("POST with matching signed token passes", func(t *testing.T) {
		cookie, token := issueToken(t)
		req := httptest.NewRequest(http.MethodPost, "/api/investments", nil)
		req.AddCookie(cookie)
		req.Header.Set("X-CSRF-Token", token)
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
		}
	})

	t.Run("POST with mismatched header is rejected", func(t *testing.T) {
		cookie, _ := issueToken(t)
		_, other := issueToken(t)
		req := httptest.NewRequest(http.MethodPost, "/api/investments", nil)
		req.AddCookie(cookie)
		req.Header.Set("X-CSRF-Token", other)
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("POST with forged unsigned token is rejected", func(t *testing.T) {
		forged := "Zm9yZ2Vk.Zm9yZ2Vk"
		req := httptest.NewRequest(http.MethodPost, "/api/investments", nil)
		req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: forged})
		req.Header.Set("X-CSRF-Token", forged)
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
		}
	})
}
