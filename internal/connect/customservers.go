// ABOUTME: User-registered external MCP servers: registration with a live
// ABOUTME: health check, listing, enable toggle and removal.

package connect

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Vangardo/mcp-hub-sub000/internal/integrations/proxy"
	"github.com/Vangardo/mcp-hub-sub000/internal/store"
)

type customServerRequest struct {
	Name           string `json:"name"`
	URL            string `json:"url"`
	AuthType       string `json:"auth_type"`
	AuthSecret     string `json:"auth_secret"`
	AuthHeaderName string `json:"auth_header_name"`
}

type customServerResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	AuthType  string    `json:"auth_type"`
	IsEnabled bool      `json:"is_enabled"`
	CreatedAt time.Time `json:"created_at"`
}

func toCustomServerResponse(srv *store.CustomServer) customServerResponse {
	return customServerResponse{
		ID:        srv.ID,
		Name:      srv.Name,
		URL:       srv.URL,
		AuthType:  srv.AuthType,
		IsEnabled: srv.IsEnabled,
		CreatedAt: srv.CreatedAt,
	}
}

func (h *Handlers) handleListCustomServers(w http.ResponseWriter, r *http.Request) {
	authCtx := mustAuth(r)

	servers, err := h.store.ListCustomServers(r.Context(), authCtx.UserID)
	if err != nil {
		h.logger.Error("listing custom servers failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]customServerResponse, 0, len(servers))
	for _, srv := range servers {
		out = append(out, toCustomServerResponse(srv))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleCreateCustomServer registers a server after probing it with an MCP
// initialize handshake, so unreachable or non-MCP endpoints are refused.
func (h *Handlers) handleCreateCustomServer(w http.ResponseWriter, r *http.Request) {
	authCtx := mustAuth(r)

	var req customServerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.URL == "" {
		writeError(w, http.StatusBadRequest, "name and url are required")
		return
	}
	switch req.AuthType {
	case "", "none":
		req.AuthType = "none"
	case "bearer", "custom_header":
		if req.AuthSecret == "" {
			writeError(w, http.StatusBadRequest, "auth_secret is required for "+req.AuthType)
			return
		}
	default:
		writeError(w, http.StatusBadRequest, "unsupported auth_type: "+req.AuthType)
		return
	}

	slug := proxy.Slugify(req.Name)
	if proxy.ReservedNames[slug] {
		writeError(w, http.StatusBadRequest, "name "+slug+" is reserved for built-in integrations")
		return
	}

	client := proxy.NewClient(req.URL, req.AuthType, req.AuthSecret, req.AuthHeaderName)
	if !client.HealthCheck(r.Context()) {
		writeError(w, http.StatusBadRequest, "server health check failed")
		return
	}

	srv := &store.CustomServer{
		UserID:         authCtx.UserID,
		Name:           slug,
		URL:            req.URL,
		AuthType:       req.AuthType,
		AuthHeaderName: req.AuthHeaderName,
		IsEnabled:      true,
	}
	if err := h.store.CreateCustomServer(r.Context(), srv, req.AuthSecret); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			writeError(w, http.StatusConflict, "a server named "+slug+" already exists")
			return
		}
		h.logger.Error("creating custom server failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.auditAction(r, authCtx.UserID, slug, "custom_server.register",
		map[string]any{"url": req.URL, "auth_type": req.AuthType}, map[string]any{"registered": true})
	h.logger.Info("custom server registered", "name", slug, "user_id", authCtx.UserID)
	writeJSON(w, http.StatusCreated, toCustomServerResponse(srv))
}

type toggleRequest struct {
	IsEnabled bool `json:"is_enabled"`
}

func (h *Handlers) handleToggleCustomServer(w http.ResponseWriter, r *http.Request) {
	authCtx := mustAuth(r)
	name := chi.URLParam(r, "name")

	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.store.SetCustomServerEnabled(r.Context(), authCtx.UserID, name, req.IsEnabled); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "custom server not found")
			return
		}
		h.logger.Error("toggling custom server failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"is_enabled": req.IsEnabled})
}

func (h *Handlers) handleDeleteCustomServer(w http.ResponseWriter, r *http.Request) {
	authCtx := mustAuth(r)
	name := chi.URLParam(r, "name")

	if err := h.store.DeleteCustomServer(r.Context(), authCtx.UserID, name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "custom server not found")
			return
		}
		h.logger.Error("deleting custom server failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.auditAction(r, authCtx.UserID, name, "custom_server.delete", nil, map[string]any{"deleted": true})
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
