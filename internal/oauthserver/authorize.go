// ABOUTME: Authorize endpoint: stores the PKCE challenge under a single-use
// ABOUTME: session, renders the login form and mints authorization codes.

package oauthserver

import (
	"embed"
	"html/template"
	"net/http"
	"net/url"

	"github.com/Vangardo/mcp-hub-sub000/internal/auth"
	"github.com/Vangardo/mcp-hub-sub000/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

var authorizeTmpl = template.Must(template.ParseFS(templateFS, "templates/authorize.html"))

type authorizePage struct {
	ClientID  string
	SessionID string
	Error     string
}

// handleAuthorizeForm validates the authorize request, parks its parameters
// under a fresh session id and shows the login form.
func (s *Server) handleAuthorizeForm(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if q.Get("response_type") != "code" {
		oauthError(w, "unsupported_response_type", "only response_type=code is supported")
		return
	}
	clientID := q.Get("client_id")
	redirectURI := q.Get("redirect_uri")
	if clientID == "" || redirectURI == "" {
		oauthError(w, "invalid_request", "client_id and redirect_uri are required")
		return
	}

	sess := &authSession{
		ClientID:            clientID,
		RedirectURI:         redirectURI,
		State:               q.Get("state"),
		CodeChallenge:       q.Get("code_challenge"),
		CodeChallengeMethod: q.Get("code_challenge_method"),
		Scope:               q.Get("scope"),
		CreatedAt:           s.now(),
	}
	sessionID, err := s.storeSession(sess)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.renderForm(w, authorizePage{ClientID: clientID, SessionID: sessionID})
}

// handleAuthorizeSubmit consumes the session, verifies the user and redirects
// back to the client with a fresh code. Credential failures re-render the
// form under a new session id so the old one cannot be replayed.
func (s *Server) handleAuthorizeSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		oauthError(w, "invalid_request", "malformed form body")
		return
	}
	sessionID := r.PostFormValue("session_id")
	email := r.PostFormValue("email")
	password := r.PostFormValue("password")

	s.mu.Lock()
	s.sweepLocked()
	sess, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	if !ok {
		oauthError(w, "invalid_request", "invalid or expired session")
		return
	}

	user, err := s.store.GetUserByEmail(r.Context(), email)
	if err != nil || !auth.VerifyPassword(user.PasswordHash, password) {
		s.retryForm(w, sess, "Invalid email or password")
		return
	}
	if user.Status != store.UserStatusApproved || !user.IsActive {
		s.retryForm(w, sess, "Account not approved")
		return
	}

	code, err := auth.GenerateToken()
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.mu.Lock()
	s.codes[code] = &authCode{
		UserID:              user.ID,
		Email:               user.Email,
		Role:                string(user.Role),
		ClientID:            sess.ClientID,
		RedirectURI:         sess.RedirectURI,
		CodeChallenge:       sess.CodeChallenge,
		CodeChallengeMethod: sess.CodeChallengeMethod,
		Scope:               sess.Scope,
		CreatedAt:           s.now(),
	}
	s.mu.Unlock()

	params := url.Values{"code": {code}}
	if sess.State != "" {
		params.Set("state", sess.State)
	}
	sep := "?"
	if containsQuery(sess.RedirectURI) {
		sep = "&"
	}
	s.logger.Info("authorization code issued", "user_id", user.ID, "client_id", sess.ClientID)
	http.Redirect(w, r, sess.RedirectURI+sep+params.Encode(), http.StatusFound)
}

func containsQuery(uri string) bool {
	u, err := url.Parse(uri)
	return err == nil && u.RawQuery != ""
}

// retryForm re-shows the login form with an error, carrying the original
// authorize parameters under a brand-new session id.
func (s *Server) retryForm(w http.ResponseWriter, sess *authSession, message string) {
	fresh := *sess
	fresh.CreatedAt = s.now()
	sessionID, err := s.storeSession(&fresh)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.renderForm(w, authorizePage{ClientID: sess.ClientID, SessionID: sessionID, Error: message})
}

func (s *Server) storeSession(sess *authSession) (string, error) {
	id, err := auth.GenerateToken()
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.sweepLocked()
	s.sessions[id] = sess
	s.mu.Unlock()
	return id, nil
}

func (s *Server) renderForm(w http.ResponseWriter, page authorizePage) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := authorizeTmpl.Execute(w, page); err != nil {
		s.logger.Error("rendering authorize form failed", "error", err)
	}
}
