// ABOUTME: OAuth 2.1 authorization server for MCP clients such as ChatGPT,
// ABOUTME: covering discovery, dynamic registration, authorize and token.

package oauthserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Vangardo/mcp-hub-sub000/internal/auth"
	"github.com/Vangardo/mcp-hub-sub000/internal/store"
)

const (
	// sessionTTL bounds both pending authorize sessions and minted codes.
	sessionTTL = 10 * time.Minute

	defaultScope = "mcp"
)

// UserStore is the subset of persistence the authorization server needs.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*store.User, error)
	GetUser(ctx context.Context, id int64) (*store.User, error)
	GetAPIClient(ctx context.Context, clientID string) (*store.APIClient, error)
}

// authSession is a pending authorize request waiting for user login.
type authSession struct {
	ClientID            string
	RedirectURI         string
	State               string
	CodeChallenge       string
	CodeChallengeMethod string
	Scope               string
	CreatedAt           time.Time
}

// authCode is a minted single-use authorization code.
type authCode struct {
	UserID              int64
	Email               string
	Role                string
	ClientID            string
	RedirectURI         string
	CodeChallenge       string
	CodeChallengeMethod string
	Scope               string
	CreatedAt           time.Time
}

// registeredClient holds an RFC 7591 dynamic registration. Registrations are
// kept in memory only; clients re-register after a restart.
type registeredClient struct {
	ClientID                string
	ClientSecret            string
	RedirectURIs            []string
	ClientName              string
	ClientURI               string
	GrantTypes              []string
	ResponseTypes           []string
	TokenEndpointAuthMethod string
	CreatedAt               time.Time
}

// Server implements the authorization endpoints. Codes, pending sessions and
// dynamic client registrations live in memory with TTL sweeps.
type Server struct {
	store   UserStore
	jwt     *auth.JWTManager
	baseURL string
	logger  *slog.Logger
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*authSession
	codes    map[string]*authCode
	clients  map[string]*registeredClient
}

// NewServer creates the authorization server. baseURL may be empty, in which
// case discovery documents derive it from the incoming request.
func NewServer(st UserStore, jwt *auth.JWTManager, baseURL string) *Server {
	return &Server{
		store:    st,
		jwt:      jwt,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		logger:   slog.Default().With("component", "oauthserver"),
		now:      time.Now,
		sessions: make(map[string]*authSession),
		codes:    make(map[string]*authCode),
		clients:  make(map[string]*registeredClient),
	}
}

// Routes mounts the discovery and OAuth endpoints. None of them require
// bearer auth; the authorize endpoint does its own login.
func (s *Server) Routes(r chi.Router) {
	r.Get("/.well-known/oauth-authorization-server", s.handleASMetadata)
	r.Get("/.well-known/oauth-protected-resource", s.handleResourceMetadata)
	r.Get("/.well-known/openid-configuration", s.handleASMetadata)
	r.Get("/mcp/.well-known/oauth-authorization-server", s.handleASMetadata)
	r.Get("/mcp/.well-known/openid-configuration", s.handleASMetadata)
	r.Post("/oauth/register", s.handleRegister)
	r.Get("/oauth/authorize", s.handleAuthorizeForm)
	r.Post("/oauth/authorize", s.handleAuthorizeSubmit)
	r.Post("/oauth/token", s.handleToken)
}

// issuer resolves the externally visible base URL. A configured base URL
// wins; otherwise it is derived from the request, upgraded to https for
// anything that is not localhost.
func (s *Server) issuer(r *http.Request) string {
	if s.baseURL != "" {
		return s.baseURL
	}
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	host := r.Host
	if scheme == "http" && !strings.HasPrefix(host, "localhost") && !strings.HasPrefix(host, "127.0.0.1") {
		scheme = "https"
	}
	return scheme + "://" + host
}

func (s *Server) handleASMetadata(w http.ResponseWriter, r *http.Request) {
	base := s.issuer(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"issuer":                                base,
		"authorization_endpoint":                base + "/oauth/authorize",
		"token_endpoint":                        base + "/oauth/token",
		"registration_endpoint":                 base + "/oauth/register",
		"response_types_supported":              []string{"code"},
		"grant_types_supported":                 []string{"authorization_code", "refresh_token"},
		"code_challenge_methods_supported":      []string{"S256", "plain"},
		"token_endpoint_auth_methods_supported": []string{"none", "client_secret_post", "client_secret_basic"},
		"scopes_supported":                      []string{"mcp", "openid", "profile", "email"},
	})
}

func (s *Server) handleResourceMetadata(w http.ResponseWriter, r *http.Request) {
	base := s.issuer(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"resource":                 base + "/mcp",
		"authorization_servers":    []string{base},
		"scopes_supported":         []string{"mcp"},
		"bearer_methods_supported": []string{"header"},
	})
}

// handleRegister implements RFC 7591 dynamic client registration. Every
// request gets fresh credentials; the secret never expires.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RedirectURIs            []string `json:"redirect_uris"`
		ClientName              string   `json:"client_name"`
		ClientURI               string   `json:"client_uri"`
		GrantTypes              []string `json:"grant_types"`
		ResponseTypes           []string `json:"response_types"`
		TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method"`
	}
	// Malformed or empty bodies register a client with defaults.
	_ = json.NewDecoder(r.Body).Decode(&body)

	clientID, err := auth.GenerateToken()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server_error"})
		return
	}
	clientSecret, err := auth.GenerateToken()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server_error"})
		return
	}

	client := &registeredClient{
		ClientID:                clientID,
		ClientSecret:            clientSecret,
		RedirectURIs:            body.RedirectURIs,
		ClientName:              body.ClientName,
		ClientURI:               body.ClientURI,
		GrantTypes:              body.GrantTypes,
		ResponseTypes:           body.ResponseTypes,
		TokenEndpointAuthMethod: body.TokenEndpointAuthMethod,
		CreatedAt:               s.now(),
	}
	if client.ClientName == "" {
		client.ClientName = "Unknown Client"
	}
	if len(client.GrantTypes) == 0 {
		client.GrantTypes = []string{"authorization_code"}
	}
	if len(client.ResponseTypes) == 0 {
		client.ResponseTypes = []string{"code"}
	}
	if client.TokenEndpointAuthMethod == "" {
		client.TokenEndpointAuthMethod = "client_secret_post"
	}

	s.mu.Lock()
	s.clients[clientID] = client
	s.mu.Unlock()

	s.logger.Info("registered oauth client", "client_name", client.ClientName)

	resp := map[string]any{
		"client_id":                  client.ClientID,
		"client_secret":              client.ClientSecret,
		"client_id_issued_at":        s.now().Unix(),
		"client_secret_expires_at":   0,
		"redirect_uris":              client.RedirectURIs,
		"client_name":                client.ClientName,
		"grant_types":                client.GrantTypes,
		"response_types":             client.ResponseTypes,
		"token_endpoint_auth_method": client.TokenEndpointAuthMethod,
	}
	if client.ClientURI != "" {
		resp["client_uri"] = client.ClientURI
	}
	writeJSON(w, http.StatusCreated, resp)
}

// sweepLocked drops expired sessions and codes. Callers hold s.mu.
func (s *Server) sweepLocked() {
	cutoff := s.now().Add(-sessionTTL)
	for id, sess := range s.sessions {
		if sess.CreatedAt.Before(cutoff) {
			delete(s.sessions, id)
		}
	}
	for code, c := range s.codes {
		if c.CreatedAt.Before(cutoff) {
			delete(s.codes, code)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// oauthError emits the RFC 6749 error JSON. Every taxonomy failure is a 400;
// the token endpoint never answers 500 for bad input.
func oauthError(w http.ResponseWriter, code, description string) {
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error":             code,
		"error_description": description,
	})
}
