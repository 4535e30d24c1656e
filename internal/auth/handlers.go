// ABOUTME: HTTP handlers for signup, login, session refresh, and token management
// ABOUTME: Mounted under /auth on the public router

package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Vangardo/mcp-hub-sub000/internal/store"
)

var validate = validator.New()

// Handlers serves the authentication endpoints.
type Handlers struct {
	store      *store.SQLiteStore
	jwt        *JWTManager
	refreshTTL time.Duration
	patTTL     time.Duration
	logger     *slog.Logger
}

// NewHandlers creates the auth handler set.
func NewHandlers(st *store.SQLiteStore, jwt *JWTManager, refreshTTL, patTTL time.Duration) *Handlers {
	return &Handlers{
		store:      st,
		jwt:        jwt,
		refreshTTL: refreshTTL,
		patTTL:     patTTL,
		logger:     slog.Default().With("component", "auth"),
	}
}

// Routes returns the /auth router. The protected subtree requires the given
// middleware chain.
func (h *Handlers) Routes(authed func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/signup", h.handleSignup)
	r.Post("/login", h.handleLogin)
	r.Post("/refresh", h.handleRefresh)

	r.Group(func(r chi.Router) {
		r.Use(authed)
		r.Post("/logout", h.handleLogout)
		r.Get("/me", h.handleMe)
		r.Post("/change-password", h.handleChangePassword)
		r.Post("/tokens", h.handleCreatePAT)
		r.Get("/tokens", h.handleListPATs)
		r.Delete("/tokens/{id}", h.handleDeletePAT)
		r.Post("/api-clients", h.handleCreateAPIClient)
		r.Get("/api-clients", h.handleListAPIClients)
		r.Get("/api-clients/{clientID}/secret", h.handleRevealAPIClientSecret)
		r.Delete("/api-clients/{id}", h.handleDeleteAPIClient)
	})
	return r
}

type signupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func (h *Handlers) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "a valid email and a password of at least 8 characters are required")
		return
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	user := &store.User{
		Email:        req.Email,
		PasswordHash: hash,
		Role:         store.RoleUser,
		IsActive:     true,
		Status:       store.UserStatusPending,
	}
	if err := h.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		h.logger.Error("signup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.logger.Info("user signed up", "user_id", user.ID, "email", user.Email)
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":     user.ID,
		"email":  user.Email,
		"status": user.Status,
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type tokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil || !VerifyPassword(user.PasswordHash, req.Password) {
		h.auditLoginFailure(r, req.Email)
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	switch user.Status {
	case store.UserStatusPending:
		writeError(w, http.StatusForbidden, "account pending approval")
		return
	case store.UserStatusRejected:
		writeError(w, http.StatusForbidden, "account rejected")
		return
	}

	pair, err := h.issueTokenPair(r, user)
	if err != nil {
		h.logger.Error("issuing tokens failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.logger.Info("user logged in", "user_id", user.ID)
	writeJSON(w, http.StatusOK, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *Handlers) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	hash := HashToken(req.RefreshToken)
	rt, err := h.store.GetRefreshToken(r.Context(), hash)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	user, err := h.store.GetUser(r.Context(), rt.UserID)
	if err != nil || !user.IsActive || user.Status != store.UserStatusApproved {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	// Rotate: the presented token is single-use.
	if err := h.store.RevokeRefreshToken(r.Context(), hash); err != nil {
		h.logger.Warn("revoking rotated refresh token failed", "error", err)
	}

	pair, err := h.issueTokenPair(r, user)
	if err != nil {
		h.logger.Error("issuing tokens failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (h *Handlers) issueTokenPair(r *http.Request, user *store.User) (*tokenPairResponse, error) {
	access, err := h.jwt.Mint(user.ID, user.Email, string(user.Role))
	if err != nil {
		return nil, err
	}
	refresh, err := GenerateToken()
	if err != nil {
		return nil, err
	}
	expires := time.Now().Add(h.refreshTTL)
	if err := h.store.CreateRefreshToken(r.Context(), user.ID, HashToken(refresh), expires); err != nil {
		return nil, err
	}
	return &tokenPairResponse{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}

func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	authCtx := MustFromContext(r.Context())
	if err := h.store.RevokeUserRefreshTokens(r.Context(), authCtx.UserID); err != nil {
		h.logger.Warn("logout revocation failed", "user_id", authCtx.UserID, "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (h *Handlers) handleMe(w http.ResponseWriter, r *http.Request) {
	authCtx := MustFromContext(r.Context())
	user, err := h.store.GetUser(r.Context(), authCtx.UserID)
	if err != nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":         user.ID,
		"email":      user.Email,
		"role":       user.Role,
		"status":     user.Status,
		"created_at": user.CreatedAt,
	})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

func (h *Handlers) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	authCtx := MustFromContext(r.Context())

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "new password must be at least 8 characters")
		return
	}

	user, err := h.store.GetUser(r.Context(), authCtx.UserID)
	if err != nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if !VerifyPassword(user.PasswordHash, req.CurrentPassword) {
		writeError(w, http.StatusUnauthorized, "current password is incorrect")
		return
	}

	hash, err := HashPassword(req.NewPassword)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := h.store.UpdateUserPassword(r.Context(), user.ID, hash); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	// Force other sessions to re-authenticate.
	if err := h.store.RevokeUserRefreshTokens(r.Context(), user.ID); err != nil {
		h.logger.Warn("revoking sessions after password change failed", "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "password changed"})
}

type createPATRequest struct {
	Name          string `json:"name"`
	ExpiresInDays int    `json:"expires_in_days"`
}

func (h *Handlers) handleCreatePAT(w http.ResponseWriter, r *http.Request) {
	authCtx := MustFromContext(r.Context())

	var req createPATRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ttl := h.patTTL
	if req.ExpiresInDays != 0 {
		if req.ExpiresInDays < 30 || req.ExpiresInDays > 365 {
			writeError(w, http.StatusBadRequest, "expires_in_days must be between 30 and 365")
			return
		}
		ttl = time.Duration(req.ExpiresInDays) * 24 * time.Hour
	}

	token, err := GenerateToken()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	pat := &store.PersonalAccessToken{
		UserID:    authCtx.UserID,
		TokenHash: HashToken(token),
		Name:      req.Name,
		ExpiresAt: time.Now().Add(ttl),
	}
	if err := h.store.CreatePersonalAccessToken(r.Context(), pat); err != nil {
		h.logger.Error("creating personal access token failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	// The plaintext token is shown exactly once.
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":         pat.ID,
		"name":       pat.Name,
		"token":      token,
		"expires_at": pat.ExpiresAt,
	})
}

func (h *Handlers) handleListPATs(w http.ResponseWriter, r *http.Request) {
	authCtx := MustFromContext(r.Context())
	pats, err := h.store.ListPersonalAccessTokens(r.Context(), authCtx.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]map[string]any, 0, len(pats))
	for _, pat := range pats {
		out = append(out, map[string]any{
			"id":           pat.ID,
			"name":         pat.Name,
			"expires_at":   pat.ExpiresAt,
			"last_used_at": pat.LastUsedAt,
			"created_at":   pat.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"tokens": out})
}

func (h *Handlers) handleDeletePAT(w http.ResponseWriter, r *http.Request) {
	authCtx := MustFromContext(r.Context())
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid token id")
		return
	}
	if err := h.store.DeletePersonalAccessToken(r.Context(), authCtx.UserID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "token not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type createAPIClientRequest struct {
	Name string `json:"name"`
}

func (h *Handlers) handleCreateAPIClient(w http.ResponseWriter, r *http.Request) {
	authCtx := MustFromContext(r.Context())

	var req createAPIClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	secret, err := GenerateToken()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	client := &store.APIClient{
		UserID:           authCtx.UserID,
		ClientID:         "mcp_" + uuid.NewString(),
		ClientSecretHash: HashToken(secret),
		Name:             req.Name,
	}
	if err := h.store.CreateAPIClient(r.Context(), client, secret); err != nil {
		h.logger.Error("creating api client failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":            client.ID,
		"client_id":     client.ClientID,
		"client_secret": secret,
		"name":          client.Name,
	})
}

func (h *Handlers) handleListAPIClients(w http.ResponseWriter, r *http.Request) {
	authCtx := MustFromContext(r.Context())
	clients, err := h.store.ListAPIClients(r.Context(), authCtx.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]map[string]any, 0, len(clients))
	for _, c := range clients {
		out = append(out, map[string]any{
			"id":           c.ID,
			"client_id":    c.ClientID,
			"name":         c.Name,
			"is_active":    c.IsActive,
			"last_used_at": c.LastUsedAt,
			"created_at":   c.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"clients": out})
}

func (h *Handlers) handleRevealAPIClientSecret(w http.ResponseWriter, r *http.Request) {
	authCtx := MustFromContext(r.Context())
	clientID := chi.URLParam(r, "clientID")

	client, err := h.store.GetAPIClient(r.Context(), clientID)
	if err != nil || client.UserID != authCtx.UserID {
		writeError(w, http.StatusNotFound, "client not found")
		return
	}

	secret, err := h.store.DecryptAPIClientSecret(client)
	if err != nil {
		h.logger.Error("decrypting client secret failed", "client_id", clientID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"client_id":     client.ClientID,
		"client_secret": secret,
	})
}

func (h *Handlers) handleDeleteAPIClient(w http.ResponseWriter, r *http.Request) {
	authCtx := MustFromContext(r.Context())
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid client id")
		return
	}
	if err := h.store.DeactivateAPIClient(r.Context(), authCtx.UserID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "client not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

func (h *Handlers) auditLoginFailure(r *http.Request, email string) {
	entry := &store.AuditEntry{
		Action:    "login_failed",
		Status:    store.AuditError,
		ErrorText: "invalid credentials for " + email,
	}
	if err := h.store.AppendAudit(r.Context(), entry); err != nil {
		h.logger.Warn("audit write failed", "error", err)
	}
}
