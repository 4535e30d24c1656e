// ABOUTME: Tests for the figma integration
// ABOUTME: Covers comma-joined scopes, basic-auth refresh, and tool calls

package figma

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/Vangardo/mcp-hub-sub000/internal/integrations"
)

var testCreds = integrations.StaticCredentials{
	"figma": {"fig-id", "fig-secret"},
}

func TestAuthURL_CommaScopes(t *testing.T) {
	i := New(testCreds)
	u := i.AuthURL("st", "https://hub.example.com/cb")

	parsed, err := url.Parse(u)
	if err != nil {
		t.Fatalf("parsing auth URL: %v", err)
	}
	scope := parsed.Query().Get("scope")
	if !strings.Contains(scope, ",") {
		t.Errorf("scope = %q, want comma-joined", scope)
	}
	if parsed.Query().Get("state") != "st" {
		t.Error("missing state")
	}
}

func TestRefreshToken_BasicAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "fig-id" || pass != "fig-secret" {
			t.Errorf("basic auth = %q/%q/%v", user, pass, ok)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parsing form: %v", err)
		}
		if r.Form.Get("refresh_token") != "old" {
			t.Errorf("refresh_token = %q", r.Form.Get("refresh_token"))
		}
		_, _ = w.Write([]byte(`{"access_token":"fresh","expires_in":7200}`))
	}))
	defer srv.Close()

	i := New(testCreds)
	i.refreshURL = srv.URL

	token, err := i.RefreshToken(context.Background(), "old")
	if err != nil {
		t.Fatalf("RefreshToken failed: %v", err)
	}
	if token.AccessToken != "fresh" {
		t.Errorf("access token = %q", token.AccessToken)
	}
	if token.ExpiresAt == nil {
		t.Error("expected expiry")
	}
}

func TestRefreshToken_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	i := New(testCreds)
	i.refreshURL = srv.URL

	_, err := i.RefreshToken(context.Background(), "bad")
	if err == nil || !strings.Contains(err.Error(), "invalid_grant") {
		t.Errorf("expected invalid_grant error, got %v", err)
	}
}

func TestExecute_FilesGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/files/abc123" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"name": "Design System"})
	}))
	defer srv.Close()

	i := New(testCreds)
	i.apiBaseURL = srv.URL

	result := i.Execute(context.Background(), "files.get", map[string]any{"file_key": "abc123"}, "tok", "")
	if !result.Success {
		t.Fatalf("Execute failed: %s", result.Error)
	}
}

func TestExecute_Validation(t *testing.T) {
	i := New(testCreds)
	if result := i.Execute(context.Background(), "files.get", map[string]any{}, "tok", ""); result.Success {
		t.Error("expected failure for missing file_key")
	}
	if result := i.Execute(context.Background(), "comments.create", map[string]any{"file_key": "k"}, "tok", ""); result.Success {
		t.Error("expected failure for missing message")
	}
}
