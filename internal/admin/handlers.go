// ABOUTME: Admin HTTP handlers: user lifecycle (approve, reject, role,
// ABOUTME: activate), password resets and audit log listing.

package admin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Vangardo/mcp-hub-sub000/internal/auth"
	"github.com/Vangardo/mcp-hub-sub000/internal/store"
)

// Handlers serves the admin API. Every route requires an authenticated admin;
// the composition root wraps Routes with the bearer middleware and
// auth.RequireAdmin.
type Handlers struct {
	store  *store.SQLiteStore
	logger *slog.Logger
}

func NewHandlers(st *store.SQLiteStore) *Handlers {
	return &Handlers{
		store:  st,
		logger: slog.Default().With("component", "admin"),
	}
}

func (h *Handlers) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/users", h.handleListUsers)
	r.Patch("/users/{id}", h.handleUpdateUser)
	r.Post("/users/{id}/reset_password", h.handleResetPassword)
	r.Get("/audit", h.handleListAudit)
	r.Get("/settings", h.handleGetSettings)
	r.Put("/settings", h.handleUpdateSettings)
	return r
}

type userResponse struct {
	ID              int64            `json:"id"`
	Email           string           `json:"email"`
	Role            store.UserRole   `json:"role"`
	IsActive        bool             `json:"is_active"`
	Status          store.UserStatus `json:"status"`
	RejectionReason string           `json:"rejection_reason,omitempty"`
	Connections     []string         `json:"connections"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

func (h *Handlers) toUserResponse(r *http.Request, user *store.User) userResponse {
	connections, err := h.store.ListConnectedProviders(r.Context(), user.ID)
	if err != nil {
		h.logger.Warn("listing user connections failed", "user_id", user.ID, "error", err)
	}
	if connections == nil {
		connections = []string{}
	}
	return userResponse{
		ID:              user.ID,
		Email:           user.Email,
		Role:            user.Role,
		IsActive:        user.IsActive,
		Status:          user.Status,
		RejectionReason: user.RejectionReason,
		Connections:     connections,
		CreatedAt:       user.CreatedAt,
		UpdatedAt:       user.UpdatedAt,
	}
}

func (h *Handlers) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		h.logger.Error("listing users failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, user := range users {
		out = append(out, h.toUserResponse(r, user))
	}
	writeJSON(w, http.StatusOK, out)
}

type updateUserRequest struct {
	Role            *store.UserRole   `json:"role"`
	IsActive        *bool             `json:"is_active"`
	Status          *store.UserStatus `json:"status"`
	RejectionReason *string           `json:"rejection_reason"`
}

// handleUpdateUser applies partial updates. Admins cannot lock themselves
// out: self-deactivation, self-demotion and self-unapproval are refused.
func (h *Handlers) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	adminCtx := auth.MustFromContext(r.Context())
	userID, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if userID == adminCtx.UserID {
		if req.IsActive != nil && !*req.IsActive {
			writeError(w, http.StatusBadRequest, "cannot deactivate your own account")
			return
		}
		if req.Role != nil && *req.Role != store.RoleAdmin {
			writeError(w, http.StatusBadRequest, "cannot demote your own account")
			return
		}
		if req.Status != nil && *req.Status != store.UserStatusApproved {
			writeError(w, http.StatusBadRequest, "cannot change your own approval status")
			return
		}
	}

	user, err := h.store.GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	ctx := r.Context()
	if req.Role != nil {
		if *req.Role != store.RoleAdmin && *req.Role != store.RoleUser {
			writeError(w, http.StatusBadRequest, "invalid role")
			return
		}
		if err := h.store.SetUserRole(ctx, userID, *req.Role); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
	}
	if req.Status != nil {
		reason := ""
		if req.RejectionReason != nil {
			reason = *req.RejectionReason
		}
		if err := h.store.SetUserStatus(ctx, userID, *req.Status, reason); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
	}
	if req.IsActive != nil {
		if err := h.store.SetUserActive(ctx, userID, *req.IsActive); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
	}

	user, err = h.store.GetUser(ctx, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.logger.Info("user updated", "user_id", userID, "by", adminCtx.UserID)
	writeJSON(w, http.StatusOK, h.toUserResponse(r, user))
}

// handleResetPassword issues a random temporary password and revokes the
// user's refresh tokens so stale sessions die with the old password.
func (h *Handlers) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	userID, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if _, err := h.store.GetUser(r.Context(), userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	newPassword, err := auth.GenerateToken()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := h.store.UpdateUserPassword(r.Context(), userID, hash); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := h.store.RevokeUserRefreshTokens(r.Context(), userID); err != nil {
		h.logger.Warn("revoking refresh tokens failed", "user_id", userID, "error", err)
	}

	h.logger.Info("password reset", "user_id", userID)
	writeJSON(w, http.StatusOK, map[string]string{"new_password": newPassword})
}

type auditLogResponse struct {
	ID        int64             `json:"id"`
	UserID    *int64            `json:"user_id"`
	Provider  string            `json:"provider,omitempty"`
	Action    string            `json:"action"`
	ToolName  string            `json:"tool_name,omitempty"`
	Status    store.AuditStatus `json:"status"`
	ErrorText string            `json:"error_text,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

func (h *Handlers) handleListAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.AuditFilter{
		Provider: q.Get("provider"),
		Action:   q.Get("action"),
		Status:   store.AuditStatus(q.Get("status")),
	}
	if raw := q.Get("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid user_id")
			return
		}
		filter.UserID = &id
	}
	if raw := q.Get("limit"); raw != "" {
		filter.Limit, _ = strconv.Atoi(raw)
	}
	if raw := q.Get("offset"); raw != "" {
		filter.Offset, _ = strconv.Atoi(raw)
	}

	entries, err := h.store.ListAudit(r.Context(), filter)
	if err != nil {
		h.logger.Error("listing audit log failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]auditLogResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, auditLogResponse{
			ID:        entry.ID,
			UserID:    entry.UserID,
			Provider:  entry.Provider,
			Action:    entry.Action,
			ToolName:  entry.ToolName,
			Status:    entry.Status,
			ErrorText: entry.ErrorText,
			CreatedAt: entry.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
