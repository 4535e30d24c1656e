// ABOUTME: Third-party OAuth connect flow: the start redirect persists a
// ABOUTME: single-use state and the callback exchanges the code for tokens.

package connect

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/Vangardo/mcp-hub-sub000/internal/auth"
	"github.com/Vangardo/mcp-hub-sub000/internal/integrations"
	"github.com/Vangardo/mcp-hub-sub000/internal/store"
)

func (h *Handlers) redirectURI(provider string) string {
	return h.baseURL + "/oauth/" + provider + "/callback"
}

func (h *Handlers) handleOAuthStart(w http.ResponseWriter, r *http.Request) {
	authCtx := mustAuth(r)
	provider := chi.URLParam(r, "provider")

	integration, err := h.registry.Get(provider)
	if err != nil {
		writeError(w, http.StatusNotFound, "integration not found")
		return
	}
	oauthIntegration, ok := integration.(integrations.OAuthIntegration)
	if !ok {
		writeError(w, http.StatusBadRequest, "integration does not use OAuth")
		return
	}
	if !integration.IsConfigured() {
		writeError(w, http.StatusBadRequest, integration.DisplayName()+" is not configured")
		return
	}

	state, err := auth.GenerateToken()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := h.store.SaveOAuthState(r.Context(), state, authCtx.UserID, provider); err != nil {
		h.logger.Error("saving oauth state failed", "provider", provider, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	http.Redirect(w, r, oauthIntegration.AuthURL(state, h.redirectURI(provider)), http.StatusFound)
}

// handleOAuthCallback finishes the provider flow. Every failure redirects to
// the UI with an error code; the browser arriving here carries no session.
func (h *Handlers) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	q := r.URL.Query()

	integration, err := h.registry.Get(provider)
	if err != nil {
		h.redirectUI(w, r, url.Values{"error": {"invalid_provider"}})
		return
	}
	oauthIntegration, ok := integration.(integrations.OAuthIntegration)
	if !ok {
		h.redirectUI(w, r, url.Values{"error": {"unsupported_auth"}})
		return
	}

	if errCode := q.Get("error"); errCode != "" {
		h.redirectUI(w, r, url.Values{
			"error": {"oauth_error"}, "provider": {provider}, "message": {errCode},
		})
		return
	}
	code, state := q.Get("code"), q.Get("state")
	if code == "" || state == "" {
		h.redirectUI(w, r, url.Values{"error": {"missing_params"}})
		return
	}

	stateData, err := h.store.ConsumeOAuthState(r.Context(), state)
	if err != nil || stateData.Provider != provider {
		h.redirectUI(w, r, url.Values{"error": {"invalid_state"}})
		return
	}

	token, err := oauthIntegration.ExchangeCode(r.Context(), code, h.redirectURI(provider))
	if err != nil {
		h.logger.Warn("oauth exchange failed", "provider", provider, "error", err)
		h.redirectUI(w, r, url.Values{
			"error": {"oauth_failed"}, "provider": {provider}, "message": {err.Error()},
		})
		return
	}

	_, err = h.store.UpsertConnection(r.Context(), &store.ConnectionUpsert{
		UserID:        stateData.UserID,
		Provider:      provider,
		AuthType:      store.AuthTypeOAuth2,
		Secret:        token.AccessToken,
		RefreshSecret: token.RefreshToken,
		ExpiresAt:     token.ExpiresAt,
		Scope:         token.Scope,
		MetaJSON:      token.MetaJSON,
	})
	if err != nil {
		h.logger.Error("saving connection failed", "provider", provider, "error", err)
		h.redirectUI(w, r, url.Values{
			"error": {"oauth_failed"}, "provider": {provider}, "message": {"could not save connection"},
		})
		return
	}

	h.auditAction(r, stateData.UserID, provider, provider+".connect",
		map[string]any{"auth_type": "oauth2"}, map[string]any{"connected": true})
	h.logger.Info("provider connected", "provider", provider, "user_id", stateData.UserID)
	h.redirectUI(w, r, url.Values{"success": {"connected"}, "provider": {provider}})
}

func (h *Handlers) redirectUI(w http.ResponseWriter, r *http.Request, params url.Values) {
	http.Redirect(w, r, "/?"+params.Encode(), http.StatusFound)
}
