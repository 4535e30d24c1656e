// ABOUTME: Tests for dispatching tool calls to user-registered external MCP
// ABOUTME: servers, using a local JSON-RPC test server.

package gateway

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

// newMCPServer serves tools/call with a canned per-tool response and records
// the auth header it saw.
func newMCPServer(t *testing.T, results map[string]any, sawAuth *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sawAuth != nil {
			*sawAuth = r.Header.Get("Authorization")
		}
		var req struct {
			ID     any    `json:"id"`
			Method string `json:"method"`
			Params struct {
				Name string `json:"name"`
			} `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if result, ok := results[req.Params.Name]; ok {
			resp["result"] = result
		} else {
			resp["error"] = map[string]any{"code": -32602, "message": "unknown tool: " + req.Params.Name}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func registerServer(t *testing.T, st *store.SQLiteStore, userID int64, name, url, secret string) {
	t.Helper()
	srv := &store.CustomServer{
		UserID:    userID,
		Name:      name,
		URL:       url,
		AuthType:  "bearer",
		IsEnabled: true,
	}
	if err := st.CreateCustomServer(context.Background(), srv, secret); err != nil {
		t.Fatalf("CreateCustomServer failed: %v", err)
	}
}

func TestDispatcherCustomServerCall(t *testing.T) {
	st, user := newTestEnv(t)

	var sawAuth string
	upstream := newMCPServer(t, map[string]any{
		"search": map[string]any{
			"content": []map[string]any{{"type": "text", "text": "found 3 notes"}},
		},
	}, &sawAuth)
	defer upstream.Close()

	registerServer(t, st, user.ID, "notes", upstream.URL, "sk-upstream")

	registry := integrations.NewRegistry()
	d := NewDispatcher(registry, NewResolver(st, registry, 0), NewAuditSink(st))
	d.SetCustomServerSource(st)

	result := d.Execute(context.Background(), user.ID, "notes.search", map[string]any{"q": "go"})
	if !result.Success {
		t.Fatalf("Execute failed: %s", result.Error)
	}
	if sawAuth != "Bearer sk-upstream" {
		t.Errorf("Authorization = %q", sawAuth)
	}
	data, ok := result.Data.(map[string]any)
	if !ok {
		t.Fatalf("Data = %T", result.Data)
	}
	if !strings.Contains(contentText(data), "found 3 notes") {
		t.Errorf("content = %+v", data)
	}

	entries, err := st.ListAudit(context.Background(), store.AuditFilter{Provider: "notes"})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Status != store.AuditOK {
		t.Errorf("audit entries = %+v", entries)
	}
}

func TestDispatcherCustomServerToolError(t *testing.T) {
	st, user := newTestEnv(t)
	upstream := newMCPServer(t, nil, nil)
	defer upstream.Close()

	registerServer(t, st, user.ID, "notes", upstream.URL, "s")

	registry := integrations.NewRegistry()
	d := NewDispatcher(registry, NewResolver(st, registry, 0), nil)
	d.SetCustomServerSource(st)

	result := d.Execute(context.Background(), user.ID, "notes.nope", nil)
	if result.Success || !strings.Contains(result.Error, "unknown tool: nope") {
		t.Errorf("result = %+v", result)
	}
}

func TestDispatcherCustomServerUnreachable(t *testing.T) {
	st, user := newTestEnv(t)
	registerServer(t, st, user.ID, "notes", "http://127.0.0.1:1", "s")

	registry := integrations.NewRegistry()
	d := NewDispatcher(registry, NewResolver(st, registry, 0), nil)
	d.SetCustomServerSource(st)

	result := d.Execute(context.Background(), user.ID, "notes.search", nil)
	if result.Success || !strings.Contains(result.Error, "mcp server request failed") {
		t.Errorf("result = %+v", result)
	}
}

func TestDispatcherCustomServerDisabled(t *testing.T) {
	st, user := newTestEnv(t)
	registerServer(t, st, user.ID, "notes", "http://127.0.0.1:1", "s")
	if err := st.SetCustomServerEnabled(context.Background(), user.ID, "notes", false); err != nil {
		t.Fatal(err)
	}

	registry := integrations.NewRegistry()
	d := NewDispatcher(registry, NewResolver(st, registry, 0), nil)
	d.SetCustomServerSource(st)

	result := d.Execute(context.Background(), user.ID, "notes.search", nil)
	if result.Success || !strings.Contains(result.Error, "custom server notes is disabled") {
		t.Errorf("result = %+v", result)
	}
}

func TestDispatcherCustomServerNotRegistered(t *testing.T) {
	st, user := newTestEnv(t)
	registry := integrations.NewRegistry()
	d := NewDispatcher(registry, NewResolver(st, registry, 0), nil)
	d.SetCustomServerSource(st)

	result := d.Execute(context.Background(), user.ID, "nope.tool", nil)
	if result.Success || !strings.Contains(result.Error, "unknown integration: nope") {
		t.Errorf("result = %+v", result)
	}
}

func TestDispatcherCustomServersScopedToUser(t *testing.T) {
	st, user := newTestEnv(t)
	other := &store.User{
		Email:        "other@example.com",
		PasswordHash: "hash",
		IsActive:     true,
		Status:       store.UserStatusApproved,
	}
	if err := st.CreateUser(context.Background(), other); err != nil {
		t.Fatal(err)
	}
	registerServer(t, st, user.ID, "notes", "http://127.0.0.1:1", "s")

	registry := integrations.NewRegistry()
	d := NewDispatcher(registry, NewResolver(st, registry, 0), nil)
	d.SetCustomServerSource(st)

	result := d.Execute(context.Background(), other.ID, "notes.search", nil)
	if result.Success || !strings.Contains(result.Error, "unknown integration: notes") {
		t.Errorf("result = %+v", result)
	}
}
