// ABOUTME: Tests for the slack integration using httptest fakes
// ABOUTME: Covers tool dispatch, API error mapping, and OAuth exchange parsing

package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Vangardo/mcp-hub-sub000/internal/integrations"
	"github.com/Vangardo/mcp-hub-sub000/internal/store"
)

var testCreds = integrations.StaticCredentials{
	"slack": {"client-id", "client-secret"},
}

func TestIntegration_Basics(t *testing.T) {
	i := New(testCreds)
	if i.Name() != "slack" {
		t.Errorf("Name() = %q, want slack", i.Name())
	}
	if i.AuthType() != store.AuthTypeOAuth2 {
		t.Errorf("AuthType() = %q, want oauth2", i.AuthType())
	}
	if !i.IsConfigured() {
		t.Error("expected configured with both credentials present")
	}
	if New(integrations.StaticCredentials{}).IsConfigured() {
		t.Error("expected unconfigured without credentials")
	}
	if len(i.Tools()) != 5 {
		t.Errorf("len(Tools()) = %d, want 5", len(i.Tools()))
	}
	for _, tool := range i.Tools() {
		if strings.Contains(tool.Name, "__") {
			t.Errorf("tool name %q contains reserved __", tool.Name)
		}
	}
}

func TestAuthURL(t *testing.T) {
	i := New(testCreds)
	u := i.AuthURL("state-123", "https://hub.example.com/oauth/slack/callback")

	if !strings.HasPrefix(u, "https://slack.com/oauth/v2/authorize?") {
		t.Errorf("unexpected auth URL: %s", u)
	}
	if !strings.Contains(u, "state=state-123") {
		t.Error("auth URL missing state")
	}
	if !strings.Contains(u, "client_id=client-id") {
		t.Error("auth URL missing client_id")
	}
	// Slack wants comma-joined scopes.
	if !strings.Contains(u, "scope=channels%3Aread%2C") {
		t.Errorf("auth URL scopes not comma-joined: %s", u)
	}
}

func TestExecute_PostMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat.postMessage" {
			t.Errorf("path = %q, want /chat.postMessage", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer user-token" {
			t.Errorf("Authorization = %q, want Bearer user-token", got)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decoding body: %v", err)
		}
		if body["channel"] != "C123" || body["text"] != "hello" {
			t.Errorf("body = %v", body)
		}
		_, _ = w.Write([]byte(`{"ok":true,"ts":"1700000000.000100"}`))
	}))
	defer srv.Close()

	i := New(testCreds)
	result := i.executeWith(t, srv.URL, "messages.post", map[string]any{
		"channel": "C123", "text": "hello",
	})
	if !result.Success {
		t.Fatalf("Execute failed: %s", result.Error)
	}
	data := result.Data.(map[string]any)
	if data["ts"] != "1700000000.000100" {
		t.Errorf("data = %v", data)
	}
}

// executeWith runs a tool against a fake API server.
func (i *Integration) executeWith(t *testing.T, baseURL, toolName string, args map[string]any) integrations.Result {
	t.Helper()
	client := NewClient("user-token")
	client.baseURL = baseURL

	switch toolName {
	case "messages.post":
		data, err := client.PostMessage(context.Background(),
			stringArg(args, "channel"), stringArg(args, "text"), stringArg(args, "thread_ts"))
		return wrap(data, err)
	case "channels.list":
		data, err := client.ListChannels(context.Background(), intArg(args, "limit", 100), "", "public_channel")
		return wrap(data, err)
	default:
		t.Fatalf("unsupported test tool %q", toolName)
		return integrations.Result{}
	}
}

func TestExecute_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"error":"channel_not_found"}`))
	}))
	defer srv.Close()

	i := New(testCreds)
	result := i.executeWith(t, srv.URL, "messages.post", map[string]any{
		"channel": "C404", "text": "hi",
	})
	if result.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(result.Error, "channel_not_found") {
		t.Errorf("error = %q, want channel_not_found mention", result.Error)
	}
}

func TestExecute_MissingArgs(t *testing.T) {
	i := New(testCreds)
	result := i.Execute(context.Background(), "messages.post", map[string]any{}, "tok", "")
	if result.Success {
		t.Fatal("expected failure for missing args")
	}
}

func TestExecute_UnknownTool(t *testing.T) {
	i := New(testCreds)
	result := i.Execute(context.Background(), "nope", map[string]any{}, "tok", "")
	if result.Success || !strings.Contains(result.Error, "Unknown tool") {
		t.Errorf("result = %+v, want unknown tool failure", result)
	}
}

func TestExchangeCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parsing form: %v", err)
		}
		if r.Form.Get("code") != "auth-code" {
			t.Errorf("code = %q, want auth-code", r.Form.Get("code"))
		}
		if r.Form.Get("client_secret") != "client-secret" {
			t.Errorf("client_secret = %q", r.Form.Get("client_secret"))
		}
		_, _ = w.Write([]byte(`{
			"ok": true,
			"access_token": "xoxe-access",
			"refresh_token": "xoxe-refresh",
			"expires_in": 43200,
			"scope": "chat:write",
			"team": {"id": "T123", "name": "Acme"},
			"authed_user": {"id": "U456"}
		}`))
	}))
	defer srv.Close()

	i := New(testCreds)
	i.tokenURL = srv.URL

	token, err := i.ExchangeCode(context.Background(), "auth-code", "https://hub.example.com/cb")
	if err != nil {
		t.Fatalf("ExchangeCode failed: %v", err)
	}
	if token.AccessToken != "xoxe-access" || token.RefreshToken != "xoxe-refresh" {
		t.Errorf("token = %+v", token)
	}
	if token.ExpiresAt == nil {
		t.Error("expected expiry for rotating token")
	}

	var meta map[string]string
	if err := json.Unmarshal([]byte(token.MetaJSON), &meta); err != nil {
		t.Fatalf("decoding meta: %v", err)
	}
	if meta["team_id"] != "T123" || meta["team_name"] != "Acme" || meta["user_id"] != "U456" {
		t.Errorf("meta = %v", meta)
	}
}

func TestExchangeCode_OAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"error":"invalid_code"}`))
	}))
	defer srv.Close()

	i := New(testCreds)
	i.tokenURL = srv.URL

	_, err := i.ExchangeCode(context.Background(), "bad", "https://hub.example.com/cb")
	if err == nil || !strings.Contains(err.Error(), "invalid_code") {
		t.Errorf("expected invalid_code error, got %v", err)
	}
}

func TestRefreshToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parsing form: %v", err)
		}
		if r.Form.Get("grant_type") != "refresh_token" {
			t.Errorf("grant_type = %q", r.Form.Get("grant_type"))
		}
		_, _ = w.Write([]byte(`{"ok":true,"access_token":"new-access","expires_in":43200}`))
	}))
	defer srv.Close()

	i := New(testCreds)
	i.tokenURL = srv.URL

	token, err := i.RefreshToken(context.Background(), "old-refresh")
	if err != nil {
		t.Fatalf("RefreshToken failed: %v", err)
	}
	if token.AccessToken != "new-access" {
		t.Errorf("access token = %q", token.AccessToken)
	}
	// Slack kept the old refresh token; the caller preserves it.
	if token.RefreshToken != "" {
		t.Errorf("refresh token = %q, want empty", token.RefreshToken)
	}
}
