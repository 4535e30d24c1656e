// ABOUTME: HTTP handlers for managing per-user provider connections:
// ABOUTME: status listing, disconnect, OAuth flows and credential submits.

package connect

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Vangardo/mcp-hub-sub000/internal/auth"
	"github.com/Vangardo/mcp-hub-sub000/internal/gateway"
	"github.com/Vangardo/mcp-hub-sub000/internal/integrations"
	"github.com/Vangardo/mcp-hub-sub000/internal/store"
)

// Handlers wires the connection-management endpoints. All routes except the
// OAuth callback sit behind bearer auth; the callback authenticates through
// the persisted state record instead, because the provider redirects a bare
// browser here.
type Handlers struct {
	store    *store.SQLiteStore
	registry *integrations.Registry
	audit    *gateway.AuditSink
	baseURL  string
	logger   *slog.Logger
}

func NewHandlers(st *store.SQLiteStore, registry *integrations.Registry, audit *gateway.AuditSink, baseURL string) *Handlers {
	return &Handlers{
		store:    st,
		registry: registry,
		audit:    audit,
		baseURL:  baseURL,
		logger:   slog.Default().With("component", "connect"),
	}
}

// Routes mounts the endpoints on the given router so the OAuth paths share
// one routing tree with the rest of the gateway. authed is the bearer
// middleware.
func (h *Handlers) Routes(r chi.Router, authed func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(authed)
		r.Get("/integrations", h.handleListIntegrations)
		r.Post("/integrations/{name}/disconnect", h.handleDisconnect)
		r.Post("/integrations/binance/connect", h.handleBinanceConnect)
		r.Post("/integrations/telegram/session", h.handleTelegramSession)
		r.Get("/custom-servers", h.handleListCustomServers)
		r.Post("/custom-servers", h.handleCreateCustomServer)
		r.Post("/custom-servers/{name}/toggle", h.handleToggleCustomServer)
		r.Delete("/custom-servers/{name}", h.handleDeleteCustomServer)
		r.Get("/oauth/{provider}/start", h.handleOAuthStart)
	})

	r.Get("/oauth/{provider}/callback", h.handleOAuthCallback)
}

type integrationStatus struct {
	Name         string         `json:"name"`
	DisplayName  string         `json:"display_name"`
	Description  string         `json:"description"`
	AuthType     store.AuthType `json:"auth_type"`
	IsConfigured bool           `json:"is_configured"`
	IsConnected  bool           `json:"is_connected"`
	ConnectedAt  *time.Time     `json:"connected_at,omitempty"`
	Meta         map[string]any `json:"meta,omitempty"`
}

func (h *Handlers) handleListIntegrations(w http.ResponseWriter, r *http.Request) {
	authCtx := mustAuth(r)

	connections, err := h.store.ListConnections(r.Context(), authCtx.UserID)
	if err != nil {
		h.logger.Error("listing connections failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	byProvider := make(map[string]*store.Connection, len(connections))
	for _, c := range connections {
		byProvider[c.Provider] = c
	}

	var out []integrationStatus
	for _, integration := range h.registry.All() {
		status := integrationStatus{
			Name:         integration.Name(),
			DisplayName:  integration.DisplayName(),
			Description:  integration.Description(),
			AuthType:     integration.AuthType(),
			IsConfigured: integration.IsConfigured(),
		}
		if conn, ok := byProvider[integration.Name()]; ok && conn.IsConnected {
			status.IsConnected = true
			connectedAt := conn.CreatedAt
			status.ConnectedAt = &connectedAt
			if conn.MetaJSON != "" {
				_ = json.Unmarshal([]byte(conn.MetaJSON), &status.Meta)
			}
		}
		out = append(out, status)
	}

	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	authCtx := mustAuth(r)
	name := chi.URLParam(r, "name")

	integration, err := h.registry.Get(name)
	if err != nil {
		writeError(w, http.StatusNotFound, "integration not found")
		return
	}

	if err := h.store.DisconnectProvider(r.Context(), authCtx.UserID, name); err != nil {
		h.logger.Error("disconnect failed", "provider", name, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.auditAction(r, authCtx.UserID, name, name+".disconnect", nil, map[string]any{"disconnected": true})
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Disconnected from " + integration.DisplayName(),
	})
}

// auditAction records a connection-lifecycle event. Failures are logged by
// the sink, never surfaced to the caller.
func (h *Handlers) auditAction(r *http.Request, userID int64, provider, action string, reqData, respData map[string]any) {
	entry := &store.AuditEntry{
		UserID:   &userID,
		Provider: provider,
		Action:   action,
		Status:   store.AuditOK,
	}
	if reqData != nil {
		if raw, err := json.Marshal(reqData); err == nil {
			entry.RequestJSON = string(raw)
		}
	}
	if respData != nil {
		if raw, err := json.Marshal(respData); err == nil {
			entry.ResponseJSON = string(raw)
		}
	}
	h.audit.Record(r.Context(), entry)
}

func mustAuth(r *http.Request) *auth.AuthContext {
	return auth.MustFromContext(r.Context())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
