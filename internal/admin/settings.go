// ABOUTME: Admin settings endpoints: runtime overrides for the public base
// ABOUTME: URL and per-provider OAuth client credentials, stored in SQLite.

package admin

import (
	"encoding/json"
	"net/http"
)

// settingKeys are the app settings the admin UI can edit. They override the
// static config file at runtime.
var settingKeys = []string{
	"public_base_url",
	"public_host",
	"teamwork_client_id",
	"teamwork_client_secret",
	"slack_client_id",
	"slack_client_secret",
	"miro_client_id",
	"miro_client_secret",
	"telegram_api_id",
	"telegram_api_hash",
}

func (h *Handlers) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.ListSettings(r.Context())
	if err != nil {
		h.logger.Error("listing settings failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make(map[string]string, len(settingKeys))
	for _, key := range settingKeys {
		out[key] = settings[key]
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	known := make(map[string]bool, len(settingKeys))
	for _, key := range settingKeys {
		known[key] = true
	}

	for key, value := range req {
		if !known[key] {
			writeError(w, http.StatusBadRequest, "unknown setting: "+key)
			return
		}
		if err := h.store.SetSetting(r.Context(), key, value); err != nil {
			h.logger.Error("saving setting failed", "key", key, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
	}

	h.logger.Info("settings updated", "count", len(req))
	h.handleGetSettings(w, r)
}
