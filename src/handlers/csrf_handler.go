package handlers

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/username/runefolio/backend/src/config"
	"github.com/username/runefolio/backend/src/logger"
	"github.com/username/runefolio/backend/src/utils"
)

const csrfCookieName = "_gorilla_csrf"

func signCSRF(raw []byte) string {
	mac := hmac.New(sha256.New, config.Cfg.CSRFAuthKey)
	mac.Write(raw)
	return base64.RawURLEncoding.EncodeToString(raw) + "." +
		base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func verifyCSRF(token string) bool {
	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 {
		return false
	}
	raw, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}
	sig, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, config.Cfg.CSRFAuthKey)
	mac.Write(raw)
	return hmac.Equal(sig, mac.Sum(nil))
}

// GetCSRFToken issues a double-submit CSRF token. The value is HMAC-signed
// with the configured auth key, set as a cookie and returned in the body;
// mutating requests must echo it back in the X-CSRF-Token header.
func GetCSRFToken(w http.ResponseWriter, r *http.Request) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		logger.FromContext(r.Context()).Error("GetCSRFToken: failed to generate token", "error", err)
		utils.SendJSONError(w, "Failed to generate CSRF token", http.StatusInternalServerError)
		return
	}
	token := signCSRF(raw)

	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: false,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	utils.SendJSON(w, map[string]string{"csrfToken": token})
}

// CSRFMiddleware enforces the double-submit check on state-changing
// methods: cookie and header must carry the same validly signed token.
func CSRFMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(csrfCookieName)
		if err != nil || cookie.Value == "" {
			utils.SendJSONError(w, "CSRF cookie missing", http.StatusForbidden)
			return
		}
		header := r.Header.Get("X-CSRF-Token")
		if header == "" || header != cookie.Value || !verifyCSRF(header) {
			logger.FromContext(r.Context()).Warn("CSRFMiddleware: token mismatch", "path", r.URL.Path)
			utils.SendJSONError(w, "CSRF token invalid", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}
