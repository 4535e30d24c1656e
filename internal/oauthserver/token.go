// ABOUTME: Token endpoint: single-use authorization_code grant with PKCE
// ABOUTME: plus client_credentials against stored api clients.

package oauthserver

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Vangardo/mcp-hub-sub000/internal/auth"
	"github.com/Vangardo/mcp-hub-sub000/internal/store"
)

type tokenRequest struct {
	GrantType    string `json:"grant_type"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Code         string `json:"code"`
	RedirectURI  string `json:"redirect_uri"`
	CodeVerifier string `json:"code_verifier"`
}

// parseTokenRequest accepts form-encoded or JSON bodies; MCP clients use both.
func parseTokenRequest(r *http.Request) tokenRequest {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req tokenRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		return req
	}
	_ = r.ParseForm()
	return tokenRequest{
		GrantType:    r.PostFormValue("grant_type"),
		ClientID:     r.PostFormValue("client_id"),
		ClientSecret: r.PostFormValue("client_secret"),
		Code:         r.PostFormValue("code"),
		RedirectURI:  r.PostFormValue("redirect_uri"),
		CodeVerifier: r.PostFormValue("code_verifier"),
	}
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	req := parseTokenRequest(r)

	switch req.GrantType {
	case "authorization_code":
		s.authorizationCodeGrant(w, r, req)
	case "client_credentials":
		s.clientCredentialsGrant(w, r, req)
	default:
		oauthError(w, "unsupported_grant_type", "unsupported grant_type: "+req.GrantType)
	}
}

func (s *Server) authorizationCodeGrant(w http.ResponseWriter, r *http.Request, req tokenRequest) {
	if req.Code == "" {
		oauthError(w, "invalid_request", "missing code")
		return
	}

	// Pop the code: one-time use even when validation below fails.
	s.mu.Lock()
	s.sweepLocked()
	code, ok := s.codes[req.Code]
	delete(s.codes, req.Code)
	s.mu.Unlock()
	if !ok {
		oauthError(w, "invalid_grant", "invalid or expired code")
		return
	}

	if req.RedirectURI != "" && req.RedirectURI != code.RedirectURI {
		oauthError(w, "invalid_grant", "redirect URI mismatch")
		return
	}

	if code.CodeChallenge != "" {
		if req.CodeVerifier == "" {
			oauthError(w, "invalid_request", "missing code_verifier")
			return
		}
		method := code.CodeChallengeMethod
		if method == "" {
			method = "S256"
		}
		if !verifyPKCE(req.CodeVerifier, code.CodeChallenge, method) {
			oauthError(w, "invalid_grant", "invalid code_verifier")
			return
		}
	}

	accessToken, err := s.jwt.Mint(code.UserID, code.Email, code.Role)
	if err != nil {
		s.logger.Error("minting access token failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server_error"})
		return
	}

	scope := code.Scope
	if scope == "" {
		scope = defaultScope
	}
	s.logger.Info("access token issued", "user_id", code.UserID, "client_id", code.ClientID)
	s.sendToken(w, accessToken, scope)
}

func (s *Server) clientCredentialsGrant(w http.ResponseWriter, r *http.Request, req tokenRequest) {
	if req.ClientID == "" || req.ClientSecret == "" {
		oauthError(w, "invalid_request", "client_id and client_secret are required")
		return
	}

	client, err := s.store.GetAPIClient(r.Context(), req.ClientID)
	if err != nil || client.ClientSecretHash != auth.HashToken(req.ClientSecret) {
		oauthError(w, "invalid_grant", "invalid client credentials")
		return
	}

	user, err := s.store.GetUser(r.Context(), client.UserID)
	if err != nil || user.Status != store.UserStatusApproved || !user.IsActive {
		oauthError(w, "invalid_grant", "client owner is not active")
		return
	}

	accessToken, err := s.jwt.Mint(user.ID, user.Email, string(user.Role))
	if err != nil {
		s.logger.Error("minting access token failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server_error"})
		return
	}

	s.logger.Info("client credentials token issued", "user_id", user.ID, "client_id", client.ClientID)
	s.sendToken(w, accessToken, defaultScope)
}

func (s *Server) sendToken(w http.ResponseWriter, accessToken, scope string) {
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": accessToken,
		"token_type":   "Bearer",
		"expires_in":   int(s.jwt.AccessTTL().Seconds()),
		"scope":        scope,
	})
}

// verifyPKCE checks the code_verifier against the stored challenge.
func verifyPKCE(verifier, challenge, method string) bool {
	switch method {
	case "S256":
		digest := sha256.Sum256([]byte(verifier))
		return base64.RawURLEncoding.EncodeToString(digest[:]) == challenge
	case "plain":
		return verifier == challenge
	}
	return false
}
