// ABOUTME: End-to-end flows through the real store and dispatcher: connect,
// ABOUTME: call, transparent refresh, disconnect.

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Vangardo/mcp-hub-sub000/internal/auth"
	"github.com/Vangardo/mcp-hub-sub000/internal/crypto"
	"github.com/Vangardo/mcp-hub-sub000/internal/gateway"
	"github.com/Vangardo/mcp-hub-sub000/internal/integrations"
	"github.com/Vangardo/mcp-hub-sub000/internal/store"
)

// slackStub is a full OAuth integration whose tool calls echo the token they
// were given.
type slackStub struct {
	refreshed *integrations.OAuthToken
	lastToken string
}

func (s *slackStub) Name() string             { return "slack" }
func (s *slackStub) DisplayName() string      { return "Slack" }
func (s *slackStub) Description() string      { return "Slack workspace" }
func (s *slackStub) AuthType() store.AuthType { return store.AuthTypeOAuth2 }
func (s *slackStub) IsConfigured() bool       { return true }

func (s *slackStub) AuthURL(state, redirectURI string) string { return "http://auth" }

func (s *slackStub) Tools() []integrations.ToolDefinition {
	return []integrations.ToolDefinition{
		{Name: "channels.list", Description: "List channels", InputSchema: json.RawMessage(`{"type":"object"}`)},
	}
}

func (s *slackStub) ExchangeCode(ctx context.Context, code, redirectURI string) (*integrations.OAuthToken, error) {
	return nil, errors.New("not used")
}

func (s *slackStub) RefreshToken(ctx context.Context, refreshToken string) (*integrations.OAuthToken, error) {
	if s.refreshed == nil {
		return nil, errors.New("refresh not configured")
	}
	return s.refreshed, nil
}

func (s *slackStub) Execute(ctx context.Context, toolName string, args map[string]any, token, meta string) integrations.Result {
	s.lastToken = token
	return integrations.OK(map[string]any{"channels": []string{"general", "random"}})
}

func newScenarioEnv(t *testing.T) (*Server, *store.SQLiteStore, *store.User, *slackStub) {
	t.Helper()
	cipher, err := crypto.NewCipher("scenario-key")
	if err != nil {
		t.Fatal(err)
	}
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), cipher)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	user := &store.User{
		Email:        "e2e@example.com",
		PasswordHash: "hash",
		IsActive:     true,
		Status:       store.UserStatusApproved,
	}
	if err := st.CreateUser(context.Background(), user); err != nil {
		t.Fatal(err)
	}

	slack := &slackStub{}
	registry := integrations.NewRegistry()
	if err := registry.Register(slack); err != nil {
		t.Fatal(err)
	}

	resolver := gateway.NewResolver(st, registry, 5*time.Minute)
	sink := gateway.NewAuditSink(st)
	dispatcher := gateway.NewDispatcher(registry, resolver, sink)
	return NewServer(registry, dispatcher, st, sink), st, user, slack
}

func doRPCAs(t *testing.T, s *Server, userID int64, body []byte) *JSONRPCResponse {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(string(body)))
	ctx := auth.WithAuth(r.Context(), &auth.AuthContext{UserID: userID, Email: "e2e@example.com", Role: store.RoleUser, Method: "jwt"})
	w := httptest.NewRecorder()
	s.handlePost(w, r.WithContext(ctx))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var resp JSONRPCResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body %q: %v", w.Body.String(), err)
	}
	return &resp
}

func connectSlack(t *testing.T, st *store.SQLiteStore, userID int64, token, refresh string, expiresIn time.Duration) {
	t.Helper()
	expiresAt := time.Now().Add(expiresIn)
	_, err := st.UpsertConnection(context.Background(), &store.ConnectionUpsert{
		UserID:        userID,
		Provider:      "slack",
		AuthType:      store.AuthTypeOAuth2,
		Secret:        token,
		RefreshSecret: refresh,
		ExpiresAt:     &expiresAt,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestConnectedProviderToolCall(t *testing.T) {
	s, st, user, slack := newScenarioEnv(t)
	connectSlack(t, st, user.ID, "xoxb-live", "r1", time.Hour)

	body := rpcRequest(t, "tools/call", map[string]any{
		"name": "hub.tools.call",
		"arguments": map[string]any{
			"provider":  "slack",
			"tool_name": "slack.channels.list",
			"arguments": map[string]any{},
		},
	})
	result := toolResult(t, doRPCAs(t, s, user.ID, body))
	if result.IsError {
		t.Fatalf("tool call failed: %+v", result)
	}
	if !strings.Contains(result.Content[0].Text, "general") {
		t.Errorf("content = %q", result.Content[0].Text)
	}
	if slack.lastToken != "xoxb-live" {
		t.Errorf("integration saw token %q", slack.lastToken)
	}
}

func TestStaleTokenRefreshedDuringCall(t *testing.T) {
	s, st, user, slack := newScenarioEnv(t)
	connectSlack(t, st, user.ID, "xoxb-stale", "r1", 2*time.Minute)

	newExpiry := time.Now().Add(time.Hour)
	slack.refreshed = &integrations.OAuthToken{
		AccessToken:  "xoxb-fresh",
		RefreshToken: "r2",
		ExpiresAt:    &newExpiry,
	}

	body := rpcRequest(t, "tools/call", map[string]any{
		"name":      "slack.channels.list",
		"arguments": map[string]any{},
	})
	result := toolResult(t, doRPCAs(t, s, user.ID, body))
	if result.IsError {
		t.Fatalf("tool call failed: %+v", result)
	}
	if slack.lastToken != "xoxb-fresh" {
		t.Errorf("integration saw token %q, want the refreshed one", slack.lastToken)
	}

	conn, err := st.GetConnection(context.Background(), user.ID, "slack")
	if err != nil {
		t.Fatal(err)
	}
	stored, err := st.DecryptConnectionSecret(conn)
	if err != nil {
		t.Fatal(err)
	}
	if stored != "xoxb-fresh" {
		t.Errorf("stored token = %q", stored)
	}
}

func TestDisconnectMakesCallsFail(t *testing.T) {
	s, st, user, _ := newScenarioEnv(t)
	connectSlack(t, st, user.ID, "xoxb-live", "r1", time.Hour)

	if err := st.DisconnectProvider(context.Background(), user.ID, "slack"); err != nil {
		t.Fatal(err)
	}

	body := rpcRequest(t, "tools/call", map[string]any{
		"name":      "slack.channels.list",
		"arguments": map[string]any{},
	})
	result := toolResult(t, doRPCAs(t, s, user.ID, body))
	if !result.IsError {
		t.Fatal("expected tool error after disconnect")
	}
	if !strings.Contains(result.Content[0].Text, "no connection found for slack") {
		t.Errorf("content = %q", result.Content[0].Text)
	}
}
