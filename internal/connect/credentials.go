// ABOUTME: Direct credential submits for providers without an OAuth flow:
// ABOUTME: binance API key pairs and telegram session strings.

package connect

import (
	"encoding/json"
	"net/http"

	"github.com/Vangardo/mcp-hub-sub000/internal/integrations/binance"
	"github.com/Vangardo/mcp-hub-sub000/internal/store"
)

type binanceConnectRequest struct {
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
}

// handleBinanceConnect validates the key pair against the exchange before
// persisting anything, so a typo fails loudly at connect time.
func (h *Handlers) handleBinanceConnect(w http.ResponseWriter, r *http.Request) {
	authCtx := mustAuth(r)

	var req binanceConnectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.APIKey == "" || req.APISecret == "" {
		writeError(w, http.StatusBadRequest, "api_key and api_secret are required")
		return
	}

	integration, err := h.registry.Get("binance")
	if err != nil {
		writeError(w, http.StatusNotFound, "integration not found")
		return
	}

	secret, err := binance.EncodeCredentials(req.APIKey, req.APISecret)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	result := integration.Execute(r.Context(), "account.balance", nil, secret, "")
	if !result.Success {
		writeError(w, http.StatusBadRequest, "credential check failed: "+result.Error)
		return
	}

	_, err = h.store.UpsertConnection(r.Context(), &store.ConnectionUpsert{
		UserID:   authCtx.UserID,
		Provider: "binance",
		AuthType: store.AuthTypePAT,
		Secret:   secret,
	})
	if err != nil {
		h.logger.Error("saving binance connection failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.auditAction(r, authCtx.UserID, "binance", "binance.connect",
		map[string]any{"auth_type": "pat"}, map[string]any{"connected": true})
	writeJSON(w, http.StatusOK, map[string]bool{"connected": true})
}

type telegramSessionRequest struct {
	SessionString string         `json:"session_string"`
	Meta          map[string]any `json:"meta"`
}

// handleTelegramSession stores an MTProto session string produced by the
// external login bridge. The hub never sees the user's phone or 2FA password.
func (h *Handlers) handleTelegramSession(w http.ResponseWriter, r *http.Request) {
	authCtx := mustAuth(r)

	var req telegramSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionString == "" {
		writeError(w, http.StatusBadRequest, "session_string is required")
		return
	}

	integration, err := h.registry.Get("telegram")
	if err != nil || !integration.IsConfigured() {
		writeError(w, http.StatusBadRequest, "telegram is not configured")
		return
	}

	var metaJSON string
	if req.Meta != nil {
		raw, err := json.Marshal(req.Meta)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid meta")
			return
		}
		metaJSON = string(raw)
	}

	_, err = h.store.UpsertConnection(r.Context(), &store.ConnectionUpsert{
		UserID:   authCtx.UserID,
		Provider: "telegram",
		AuthType: store.AuthTypeSession,
		Secret:   req.SessionString,
		MetaJSON: metaJSON,
	})
	if err != nil {
		h.logger.Error("saving telegram connection failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.auditAction(r, authCtx.UserID, "telegram", "telegram.connect",
		map[string]any{"auth_type": "session"}, map[string]any{"connected": true})
	writeJSON(w, http.StatusOK, map[string]bool{"connected": true})
}
