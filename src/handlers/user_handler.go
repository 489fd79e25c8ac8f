package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/runefolio/backend/src/config"
	"github.com/username/runefolio/backend/src/database"
	"github.com/username/runefolio/backend/src/logger"
	"github.com/username/runefolio/backend/src/model"
	"github.com/username/runefolio/backend/src/security"
	"github.com/username/runefolio/backend/src/security/validation"
	"github.com/username/runefolio/backend/src/services"
	"github.com/username/runefolio/backend/src/utils"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	// At least 8 characters with one letter and one digit.
	passwordLetterRegex = regexp.MustCompile(`[a-zA-Z]`)
	passwordDigitRegex  = regexp.MustCompile(`[0-9]`)
)

type UserHandler struct {
	authService      *security.AuthService
	mfaService       *services.MFAService
	portfolioService services.PortfolioService
	reportCache      *cache.Cache
}

func NewUserHandler(authService *security.AuthService, mfaService *services.MFAService, portfolioService services.PortfolioService, reportCache *cache.Cache) *UserHandler {
	return &UserHandler{
		authService:      authService,
		mfaService:       mfaService,
		portfolioService: portfolioService,
		reportCache:      reportCache,
	}
}

func isAdmin(username string) bool {
	for _, admin := range config.Cfg.AdminUsernames {
		if strings.EqualFold(admin, username) {
			return true
		}
	}
	return false
}

func validPassword(password string) bool {
	return len(password) >= 8 &&
		passwordLetterRegex.MatchString(password) &&
		passwordDigitRegex.MatchString(password)
}

type authResponse struct {
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
	User         userInfoResponse `json:"user"`
}

type userInfoResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsAdmin  bool   `json:"is_admin"`
	MFA      bool   `json:"mfa_enabled"`
}

func userInfo(u *model.User) userInfoResponse {
	return userInfoResponse{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		IsAdmin:  isAdmin(u.Username),
		MFA:      u.TotpEnabled,
	}
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	req.Username = validation.SanitizeText(strings.TrimSpace(req.Username))
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	if err := validation.ValidateStringNotEmpty(req.Username, "username"); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidateStringMaxLength(req.Username, validation.MaxUsernameLength, "username"); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !emailRegex.MatchString(req.Email) {
		utils.SendJSONError(w, "Invalid email address", http.StatusBadRequest)
		return
	}
	if !validPassword(req.Password) {
		utils.SendJSONError(w, "Password must be at least 8 characters and contain a letter and a digit", http.StatusBadRequest)
		return
	}

	if _, err := model.GetUserByUsername(database.DB, req.Username); err == nil {
		utils.SendJSONError(w, "Username already exists", http.StatusConflict)
		return
	} else if !errors.Is(err, sql.ErrNoRows) {
		ctxLogger.Error("Register: username lookup failed", "error", err)
		utils.SendJSONError(w, "Failed to register user", http.StatusInternalServerError)
		return
	}
	if _, err := model.GetUserByEmail(database.DB, req.Email); err == nil {
		utils.SendJSONError(w, "Email already registered", http.StatusConflict)
		return
	} else if !errors.Is(err, sql.ErrNoRows) {
		ctxLogger.Error("Register: email lookup failed", "error", err)
		utils.SendJSONError(w, "Failed to register user", http.StatusInternalServerError)
		return
	}

	hashed, err := h.authService.HashPassword(req.Password)
	if err != nil {
		ctxLogger.Error("Register: password hashing failed", "error", err)
		utils.SendJSONError(w, "Failed to register user", http.StatusInternalServerError)
		return
	}

	user := &model.User{
		Username: req.Username,
		Email:    req.Email,
		Password: hashed,
	}
	if err := user.CreateUser(database.DB); err != nil {
		ctxLogger.Error("Register: user creation failed", "error", err)
		utils.SendJSONError(w, "Failed to register user", http.StatusInternalServerError)
		return
	}

	ctxLogger.Info("User registered", "username", user.Username, "newUserID", user.ID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"message": "Registration successful"})
}

func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		TotpCode string `json:"totp_code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	user, err := model.GetUserByUsername(database.DB, strings.TrimSpace(req.Username))
	if err != nil {
		ctxLogger.Warn("Login: unknown username", "username", req.Username)
		utils.SendJSONError(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}
	if err := h.authService.CheckPassword(user.Password, req.Password); err != nil {
		ctxLogger.Warn("Login: bad password", "username", req.Username)
		utils.SendJSONError(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}

	if user.TotpEnabled {
		if req.TotpCode == "" {
			utils.SendJSONError(w, "TOTP code required", http.StatusUnauthorized)
			return
		}
		if !h.mfaService.ValidateToken(user.TotpSecret, req.TotpCode) {
			ctxLogger.Warn("Login: invalid TOTP code", "username", req.Username)
			utils.SendJSONError(w, "Invalid TOTP code", http.StatusUnauthorized)
			return
		}
	}

	accessToken, err := h.authService.GenerateToken(strconv.FormatInt(user.ID, 10))
	if err != nil {
		ctxLogger.Error("Login: token generation failed", "error", err)
		utils.SendJSONError(w, "Failed to log in", http.StatusInternalServerError)
		return
	}
	refreshToken, err := h.authService.GenerateRefreshToken()
	if err != nil {
		ctxLogger.Error("Login: refresh token generation failed", "error", err)
		utils.SendJSONError(w, "Failed to log in", http.StatusInternalServerError)
		return
	}

	session := &model.Session{
		UserID:       user.ID,
		Token:        accessToken,
		RefreshToken: refreshToken,
		UserAgent:    r.UserAgent(),
		ClientIP:     r.RemoteAddr,
		ExpiresAt:    time.Now().Add(config.Cfg.RefreshTokenExpiry),
	}
	if err := model.CreateSession(database.DB, session); err != nil {
		ctxLogger.Error("Login: session creation failed", "error", err)
		utils.SendJSONError(w, "Failed to log in", http.StatusInternalServerError)
		return
	}

	if err := model.UpdateUserLoginInfo(database.DB, user.ID, r.RemoteAddr); err != nil {
		ctxLogger.Warn("Login: failed to update login info", "error", err)
	}

	ctxLogger.Info("User logged in", "username", user.Username)
	utils.SendJSON(w, authResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         userInfo(user),
	})
}

func (h *UserHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		utils.SendJSONError(w, "Refresh token required", http.StatusBadRequest)
		return
	}

	session, err := model.GetSessionByRefreshToken(database.DB, req.RefreshToken)
	if err != nil {
		ctxLogger.Warn("RefreshToken: invalid refresh token")
		utils.SendJSONError(w, "Invalid or expired refresh token", http.StatusUnauthorized)
		return
	}

	user, err := model.GetUserByID(database.DB, session.UserID)
	if err != nil {
		ctxLogger.Error("RefreshToken: user lookup failed", "error", err)
		utils.SendJSONError(w, "Invalid or expired refresh token", http.StatusUnauthorized)
		return
	}

	accessToken, err := h.authService.GenerateToken(strconv.FormatInt(user.ID, 10))
	if err != nil {
		ctxLogger.Error("RefreshToken: token generation failed", "error", err)
		utils.SendJSONError(w, "Failed to refresh token", http.StatusInternalServerError)
		return
	}
	refreshToken, err := h.authService.GenerateRefreshToken()
	if err != nil {
		ctxLogger.Error("RefreshToken: refresh token generation failed", "error", err)
		utils.SendJSONError(w, "Failed to refresh token", http.StatusInternalServerError)
		return
	}

	// Rotation: the old session is revoked before the new one is issued.
	if err := model.DeleteSessionByRefreshToken(database.DB, req.RefreshToken); err != nil {
		ctxLogger.Error("RefreshToken: failed to revoke old session", "error", err)
		utils.SendJSONError(w, "Failed to refresh token", http.StatusInternalServerError)
		return
	}
	newSession := &model.Session{
		UserID:       user.ID,
		Token:        accessToken,
		RefreshToken: refreshToken,
		UserAgent:    r.UserAgent(),
		ClientIP:     r.RemoteAddr,
		ExpiresAt:    time.Now().Add(config.Cfg.RefreshTokenExpiry),
	}
	if err := model.CreateSession(database.DB, newSession); err != nil {
		ctxLogger.Error("RefreshToken: session creation failed", "error", err)
		utils.SendJSONError(w, "Failed to refresh token", http.StatusInternalServerError)
		return
	}

	utils.SendJSON(w, authResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         userInfo(user),
	})
}

func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	tokenString := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if tokenString == "" {
		utils.SendJSONError(w, "Authorization header required", http.StatusUnauthorized)
		return
	}
	if err := model.DeleteSessionByToken(database.DB, tokenString); err != nil {
		ctxLogger.Warn("Logout: failed to delete session", "error", err)
	}
	utils.SendJSON(w, map[string]string{"message": "Logged out"})
}

func (h *UserHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	user, err := model.GetUserByID(database.DB, userID)
	if err != nil {
		ctxLogger.Error("DeleteAccount: user lookup failed", "error", err)
		utils.SendJSONError(w, "Failed to delete account", http.StatusInternalServerError)
		return
	}
	if err := h.authService.CheckPassword(user.Password, req.Password); err != nil {
		utils.SendJSONError(w, "Invalid password", http.StatusUnauthorized)
		return
	}

	// Dependent rows cascade, but investments are removed explicitly so the
	// report cache can be invalidated in the same breath.
	if _, err := model.DeleteInvestmentsByUser(database.DB, userID); err != nil {
		ctxLogger.Error("DeleteAccount: failed to delete investments", "error", err)
		utils.SendJSONError(w, "Failed to delete account", http.StatusInternalServerError)
		return
	}
	if err := model.DeleteUser(database.DB, userID); err != nil {
		ctxLogger.Error("DeleteAccount: failed to delete user", "error", err)
		utils.SendJSONError(w, "Failed to delete account", http.StatusInternalServerError)
		return
	}
	h.portfolioService.InvalidateUserCache(userID)

	ctxLogger.Info("Account deleted", "username", user.Username)
	utils.SendJSON(w, map[string]string{"message": "Account deleted"})
}

// ChangePassword verifies the current password, stores the new hash and
// revokes every session the user holds, so all devices must sign in again.
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if !validPassword(req.NewPassword) {
		utils.SendJSONError(w, "Password must be at least 8 characters and contain a letter and a digit", http.StatusBadRequest)
		return
	}

	user, err := model.GetUserByID(database.DB, userID)
	if err != nil {
		ctxLogger.Error("ChangePassword: user lookup failed", "error", err)
		utils.SendJSONError(w, "Failed to change password", http.StatusInternalServerError)
		return
	}
	if err := h.authService.CheckPassword(user.Password, req.CurrentPassword); err != nil {
		utils.SendJSONError(w, "Invalid current password", http.StatusUnauthorized)
		return
	}

	hashed, err := h.authService.HashPassword(req.NewPassword)
	if err != nil {
		ctxLogger.Error("ChangePassword: password hashing failed", "error", err)
		utils.SendJSONError(w, "Failed to change password", http.StatusInternalServerError)
		return
	}
	if err := model.UpdateUserPassword(database.DB, userID, hashed); err != nil {
		ctxLogger.Error("ChangePassword: update failed", "error", err)
		utils.SendJSONError(w, "Failed to change password", http.StatusInternalServerError)
		return
	}
	if err := model.DeleteSessionsByUser(database.DB, userID); err != nil {
		ctxLogger.Warn("ChangePassword: failed to revoke sessions", "error", err)
	}

	ctxLogger.Info("Password changed", "username", user.Username)
	utils.SendJSON(w, map[string]string{"message": "Password changed, please log in again"})
}

func (h *UserHandler) SetupMFA(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	user, err := model.GetUserByID(database.DB, userID)
	if err != nil {
		ctxLogger.Error("SetupMFA: user lookup failed", "error", err)
		utils.SendJSONError(w, "Failed to set up MFA", http.StatusInternalServerError)
		return
	}
	if user.TotpEnabled {
		utils.SendJSONError(w, "MFA is already enabled", http.StatusConflict)
		return
	}

	secret, qrCode, err := h.mfaService.GenerateMFASecret(user.Username)
	if err != nil {
		ctxLogger.Error("SetupMFA: secret generation failed", "error", err)
		utils.SendJSONError(w, "Failed to set up MFA", http.StatusInternalServerError)
		return
	}
	if err := model.UpdateUserTotpSecret(database.DB, userID, secret); err != nil {
		ctxLogger.Error("SetupMFA: failed to store secret", "error", err)
		utils.SendJSONError(w, "Failed to set up MFA", http.StatusInternalServerError)
		return
	}

	utils.SendJSON(w, map[string]string{
		"secret":  secret,
		"qr_code": qrCode,
	})
}

func (h *UserHandler) EnableMFA(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req struct {
		TotpCode string `json:"totp_code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TotpCode == "" {
		utils.SendJSONError(w, "TOTP code required", http.StatusBadRequest)
		return
	}

	user, err := model.GetUserByID(database.DB, userID)
	if err != nil {
		ctxLogger.Error("EnableMFA: user lookup failed", "error", err)
		utils.SendJSONError(w, "Failed to enable MFA", http.StatusInternalServerError)
		return
	}
	if user.TotpSecret == "" {
		utils.SendJSONError(w, "MFA setup has not been started", http.StatusBadRequest)
		return
	}
	if !h.mfaService.ValidateToken(user.TotpSecret, req.TotpCode) {
		utils.SendJSONError(w, "Invalid TOTP code", http.StatusUnauthorized)
		return
	}
	if err := model.EnableUserTotp(database.DB, userID); err != nil {
		ctxLogger.Error("EnableMFA: failed to enable", "error", err)
		utils.SendJSONError(w, "Failed to enable MFA", http.StatusInternalServerError)
		return
	}

	ctxLogger.Info("MFA enabled", "username", user.Username)
	utils.SendJSON(w, map[string]string{"message": "MFA enabled"})
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	user, err := model.GetUserByID(database.DB, userID)
	if err != nil {
		logger.FromContext(r.Context()).Error("Me: user lookup failed", "error", err)
		utils.SendJSONError(w, "Failed to load user", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, userInfo(user))
}

// AdminStats reports aggregate row counts for the admin dashboard.
func (h *UserHandler) AdminStats(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	stats := map[string]int64{}
	for name, query := range map[string]string{
		"users":            "SELECT COUNT(*) FROM users",
		"sessions":         "SELECT COUNT(*) FROM sessions",
		"investments":      "SELECT COUNT(*) FROM investments",
		"watchlist_rows":   "SELECT COUNT(*) FROM watchlist",
		"price_alerts":     "SELECT COUNT(*) FROM price_alerts",
		"open_positions":   "SELECT COUNT(*) FROM investments WHERE sell_price IS NULL",
		"closed_positions": "SELECT COUNT(*) FROM investments WHERE sell_price IS NOT NULL",
	} {
		var count int64
		if err := database.DB.QueryRow(query).Scan(&count); err != nil {
			ctxLogger.Error("AdminStats: count query failed", "stat", name, "error", err)
			utils.SendJSONError(w, "Failed to load stats", http.StatusInternalServerError)
			return
		}
		stats[name] = count
	}
	stats["cached_reports"] = int64(h.reportCache.ItemCount())

	utils.SendJSON(w, stats)
}
