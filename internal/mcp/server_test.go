// ABOUTME: Tests for the MCP JSON-RPC surface: hub tools, provider scoping,
// ABOUTME: tool-name format negotiation, SSE advertisement, and error shapes.

package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Vangardo/mcp-hub-sub000/internal/auth"
	"github.com/Vangardo/mcp-hub-sub000/internal/integrations"
	"github.com/Vangardo/mcp-hub-sub000/internal/store"
)

type fakeIntegration struct {
	name       string
	configured bool
	tools      []integrations.ToolDefinition
}

func (f *fakeIntegration) Name() string                         { return f.name }
func (f *fakeIntegration) DisplayName() string                  { return f.name }
func (f *fakeIntegration) Description() string                  { return f.name + " integration" }
func (f *fakeIntegration) AuthType() store.AuthType             { return store.AuthTypeOAuth2 }
func (f *fakeIntegration) IsConfigured() bool                   { return f.configured }
func (f *fakeIntegration) Tools() []integrations.ToolDefinition { return f.tools }

func (f *fakeIntegration) Execute(ctx context.Context, toolName string, args map[string]any, token, meta string) integrations.Result {
	return integrations.OK(nil)
}

type fakeExecutor struct {
	lastTool string
	lastArgs map[string]any
	result   integrations.Result
	panics   bool
}

func (f *fakeExecutor) Execute(ctx context.Context, userID int64, toolName string, args map[string]any) integrations.Result {
	if f.panics {
		panic("boom")
	}
	f.lastTool, f.lastArgs = toolName, args
	return f.result
}

type fakeConnections struct {
	providers []string
}

func (f *fakeConnections) ListConnectedProviders(ctx context.Context, userID int64) ([]string, error) {
	return f.providers, nil
}

type fakeAuditor struct {
	entries []*store.AuditEntry
}

func (f *fakeAuditor) Record(ctx context.Context, entry *store.AuditEntry) {
	f.entries = append(f.entries, entry)
}

func (f *fakeAuditor) actions() []string {
	actions := make([]string, len(f.entries))
	for i, e := range f.entries {
		actions[i] = e.Action
	}
	return actions
}

func newTestServer(t *testing.T) (*Server, *fakeExecutor) {
	t.Helper()
	registry := integrations.NewRegistry()
	slackTools := []integrations.ToolDefinition{
		{Name: "channels.list", Description: "List channels", InputSchema: json.RawMessage(`{"type":"object"}`)},
		{Name: "messages.post", Description: "Post a message", InputSchema: json.RawMessage(`{"type":"object"}`)},
	}
	for _, f := range []*fakeIntegration{
		{name: "slack", configured: true, tools: slackTools},
		{name: "memory", configured: true, tools: []integrations.ToolDefinition{{Name: "search", InputSchema: json.RawMessage(`{}`)}}},
		{name: "miro", configured: false},
	} {
		if err := registry.Register(f); err != nil {
			t.Fatal(err)
		}
	}
	exec := &fakeExecutor{result: integrations.OK(map[string]any{"ok": true})}
	return NewServer(registry, exec, &fakeConnections{providers: []string{"slack"}}, nil), exec
}

func rpcRequest(t *testing.T, method string, params any) []byte {
	t.Helper()
	req := map[string]any{"jsonrpc": "2.0", "id": 1, "method": method}
	if params != nil {
		req["params"] = params
	}
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	return body
}

// doRPC posts one JSON-RPC message as an authenticated user.
func doRPC(t *testing.T, s *Server, body []byte, headers map[string]string) (*JSONRPCResponse, *httptest.ResponseRecorder) {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(string(body)))
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	ctx := auth.WithAuth(r.Context(), &auth.AuthContext{UserID: 7, Email: "u@example.com", Role: store.RoleUser, Method: "jwt"})
	w := httptest.NewRecorder()
	s.handlePost(w, r.WithContext(ctx))

	if w.Code != http.StatusOK {
		return nil, w
	}
	var resp JSONRPCResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body %q: %v", w.Body.String(), err)
	}
	return &resp, w
}

func toolResult(t *testing.T, resp *JSONRPCResponse) MCPCallToolResult {
	t.Helper()
	raw, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatal(err)
	}
	var result MCPCallToolResult
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("result is not a tool result: %s", raw)
	}
	return result
}

func listedToolNames(t *testing.T, resp *JSONRPCResponse) []string {
	t.Helper()
	raw, _ := json.Marshal(resp.Result)
	var result struct {
		Tools []MCPToolInfo `json:"tools"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("result is not a tools list: %s", raw)
	}
	names := make([]string, len(result.Tools))
	for i, tool := range result.Tools {
		names[i] = tool.Name
	}
	return names
}

func TestUnauthenticatedIs401(t *testing.T) {
	s, _ := newTestServer(t)
	r := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"initialize"}`))
	w := httptest.NewRecorder()
	s.handlePost(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestInitialize(t *testing.T) {
	s, _ := newTestServer(t)
	resp, _ := doRPC(t, s, rpcRequest(t, "initialize", nil), nil)
	result := resp.Result.(map[string]any)
	if result["protocolVersion"] != "2024-11-05" {
		t.Errorf("protocolVersion = %v", result["protocolVersion"])
	}
	info := result["serverInfo"].(map[string]any)
	if info["name"] != "mcp-hub" {
		t.Errorf("serverInfo = %v", info)
	}
}

func TestInvalidJSON(t *testing.T) {
	s, _ := newTestServer(t)
	resp, _ := doRPC(t, s, []byte("{nope"), nil)
	if resp.Error == nil || resp.Error.Code != JSONRPCParseError {
		t.Errorf("error = %+v", resp.Error)
	}
}

func TestUnknownMethod(t *testing.T) {
	s, _ := newTestServer(t)
	resp, _ := doRPC(t, s, rpcRequest(t, "resources/list", nil), nil)
	if resp.Error == nil || resp.Error.Code != JSONRPCMethodNotFound {
		t.Errorf("error = %+v", resp.Error)
	}
}

func TestToolsListReturnsHubCatalogOnly(t *testing.T) {
	s, _ := newTestServer(t)
	resp, _ := doRPC(t, s, rpcRequest(t, "tools/list", nil), nil)
	names := listedToolNames(t, resp)
	want := []string{"hub.integrations.list", "hub.tools.list", "hub.tools.call"}
	if len(names) != 3 {
		t.Fatalf("tools = %v, want the 3 hub tools", names)
	}
	for i, name := range want {
		if names[i] != name {
			t.Errorf("tools[%d] = %q, want %q", i, names[i], name)
		}
	}
}

func TestToolsListFlatFormat(t *testing.T) {
	s, _ := newTestServer(t)

	// Explicit header.
	resp, _ := doRPC(t, s, rpcRequest(t, "tools/list", nil), map[string]string{"X-MCP-Tool-Format": "flat"})
	names := listedToolNames(t, resp)
	if names[0] != "hub__integrations__list" {
		t.Errorf("flat name = %q", names[0])
	}

	// Inferred from a Claude user agent.
	resp, _ = doRPC(t, s, rpcRequest(t, "tools/list", nil), map[string]string{"User-Agent": "Claude-User/1.0"})
	if names := listedToolNames(t, resp); names[0] != "hub__integrations__list" {
		t.Errorf("UA-inferred name = %q", names[0])
	}

	// Explicit dot wins over the user agent.
	resp, _ = doRPC(t, s, rpcRequest(t, "tools/list", nil), map[string]string{
		"User-Agent": "Claude-User/1.0", "X-MCP-Tool-Format": "dot",
	})
	if names := listedToolNames(t, resp); names[0] != "hub.integrations.list" {
		t.Errorf("dot-forced name = %q", names[0])
	}
}

func TestToolNameFormatBijection(t *testing.T) {
	for _, name := range []string{"slack.messages.post", "hub.tools.call", "memory.search"} {
		flat := EncodeToolName(name, FormatFlat)
		if strings.Contains(flat, ".") {
			t.Errorf("flat %q still has dots", flat)
		}
		if got := DecodeToolName(flat, FormatFlat); got != name {
			t.Errorf("round trip %q -> %q -> %q", name, flat, got)
		}
	}
	if EncodeToolName("slack.messages.post", FormatFlat) != "slack__messages__post" {
		t.Error("flat encoding mismatch")
	}
}

func TestToolsListUnderProviderScope(t *testing.T) {
	s, _ := newTestServer(t)
	resp, _ := doRPC(t, s, rpcRequest(t, "tools/list", nil), map[string]string{"X-MCP-Provider": "slack"})
	names := listedToolNames(t, resp)
	if len(names) != 2 || names[0] != "slack.channels.list" {
		t.Errorf("scoped tools = %v", names)
	}
}

func TestToolsCallDirect(t *testing.T) {
	s, exec := newTestServer(t)
	resp, _ := doRPC(t, s, rpcRequest(t, "tools/call", map[string]any{
		"name":      "slack.messages.post",
		"arguments": map[string]any{"channel": "C1"},
	}), nil)

	if exec.lastTool != "slack.messages.post" {
		t.Errorf("dispatched tool = %q", exec.lastTool)
	}
	result := toolResult(t, resp)
	if result.IsError || !strings.Contains(result.Content[0].Text, `"ok":true`) {
		t.Errorf("result = %+v", result)
	}
}

func TestToolsCallFlatNameDecoded(t *testing.T) {
	s, exec := newTestServer(t)
	doRPC(t, s, rpcRequest(t, "tools/call", map[string]any{
		"name": "slack__channels__list",
	}), map[string]string{"X-MCP-Tool-Format": "flat"})

	if exec.lastTool != "slack.channels.list" {
		t.Errorf("dispatched tool = %q", exec.lastTool)
	}
}

func TestToolsCallFailureIsErrorContent(t *testing.T) {
	s, exec := newTestServer(t)
	exec.result = integrations.Fail("no connection found for slack")

	resp, _ := doRPC(t, s, rpcRequest(t, "tools/call", map[string]any{"name": "slack.channels.list"}), nil)
	if resp.Error != nil {
		t.Fatalf("tool failure must not be a protocol error: %+v", resp.Error)
	}
	result := toolResult(t, resp)
	if !result.IsError || result.Content[0].Text != "Error: no connection found for slack" {
		t.Errorf("result = %+v", result)
	}
}

func TestProviderScopeRejectsOtherProviders(t *testing.T) {
	s, exec := newTestServer(t)

	resp, _ := doRPC(t, s, rpcRequest(t, "tools/call", map[string]any{
		"name": "slack.channels.list",
	}), map[string]string{"X-MCP-Provider": "telegram"})

	result := toolResult(t, resp)
	if !result.IsError || !strings.Contains(result.Content[0].Text, "provider scope telegram") {
		t.Errorf("result = %+v", result)
	}
	if exec.lastTool != "" {
		t.Errorf("dispatcher reached: %q", exec.lastTool)
	}

	// Same provider passes through.
	doRPC(t, s, rpcRequest(t, "tools/call", map[string]any{
		"name": "slack.channels.list",
	}), map[string]string{"X-MCP-Provider": "slack"})
	if exec.lastTool != "slack.channels.list" {
		t.Errorf("scoped call not dispatched: %q", exec.lastTool)
	}
}

func TestHubIntegrationsList(t *testing.T) {
	s, _ := newTestServer(t)
	resp, _ := doRPC(t, s, rpcRequest(t, "tools/call", map[string]any{
		"name":      "hub.integrations.list",
		"arguments": map[string]any{"include_tools": false},
	}), nil)

	result := toolResult(t, resp)
	var payload struct {
		Integrations []map[string]any `json:"integrations"`
	}
	if err := json.Unmarshal([]byte(result.Content[0].Text), &payload); err != nil {
		t.Fatal(err)
	}

	// connected_only defaults to true: slack (connected) and memory (always
	// connected); miro is not connected.
	if len(payload.Integrations) != 2 {
		t.Fatalf("integrations = %+v", payload.Integrations)
	}
	for _, item := range payload.Integrations {
		if item["is_connected"] != true {
			t.Errorf("%v should be connected", item["name"])
		}
		if _, ok := item["tools"]; ok {
			t.Error("include_tools=false should omit tools")
		}
	}

	resp, _ = doRPC(t, s, rpcRequest(t, "tools/call", map[string]any{
		"name":      "hub.integrations.list",
		"arguments": map[string]any{"connected_only": false},
	}), nil)
	result = toolResult(t, resp)
	if err := json.Unmarshal([]byte(result.Content[0].Text), &payload); err != nil {
		t.Fatal(err)
	}
	if len(payload.Integrations) != 3 {
		t.Errorf("all integrations = %d, want 3", len(payload.Integrations))
	}
}

func TestHubToolsList(t *testing.T) {
	s, _ := newTestServer(t)

	resp, _ := doRPC(t, s, rpcRequest(t, "tools/call", map[string]any{
		"name":      "hub.tools.list",
		"arguments": map[string]any{"provider": "slack"},
	}), nil)
	result := toolResult(t, resp)
	if result.IsError {
		t.Fatalf("result = %+v", result)
	}
	if !strings.Contains(result.Content[0].Text, "slack.messages.post") {
		t.Errorf("tools payload = %s", result.Content[0].Text)
	}

	for _, tc := range []struct{ provider, wantErr string }{
		{"ghost", "unknown integration"},
		{"miro", "not configured"},
	} {
		resp, _ := doRPC(t, s, rpcRequest(t, "tools/call", map[string]any{
			"name":      "hub.tools.list",
			"arguments": map[string]any{"provider": tc.provider},
		}), nil)
		result := toolResult(t, resp)
		if !result.IsError || !strings.Contains(result.Content[0].Text, tc.wantErr) {
			t.Errorf("%s: result = %+v", tc.provider, result)
		}
	}

	// Memory needs no connection row.
	resp, _ = doRPC(t, s, rpcRequest(t, "tools/call", map[string]any{
		"name":      "hub.tools.list",
		"arguments": map[string]any{"provider": "memory"},
	}), nil)
	if result := toolResult(t, resp); result.IsError {
		t.Errorf("memory should always be connected: %+v", result)
	}
}

func TestHubToolsCall(t *testing.T) {
	s, exec := newTestServer(t)

	resp, _ := doRPC(t, s, rpcRequest(t, "tools/call", map[string]any{
		"name": "hub.tools.call",
		"arguments": map[string]any{
			"provider":  "slack",
			"tool_name": "slack.channels.list",
			"arguments": map[string]any{"limit": 10},
		},
	}), nil)
	if result := toolResult(t, resp); result.IsError {
		t.Fatalf("result = %+v", result)
	}
	if exec.lastTool != "slack.channels.list" || exec.lastArgs["limit"] != float64(10) {
		t.Errorf("dispatched %q with %v", exec.lastTool, exec.lastArgs)
	}

	// Unprefixed tool_name is rejected before dispatch.
	resp, _ = doRPC(t, s, rpcRequest(t, "tools/call", map[string]any{
		"name": "hub.tools.call",
		"arguments": map[string]any{
			"provider":  "slack",
			"tool_name": "channels.list",
		},
	}), nil)
	result := toolResult(t, resp)
	if !result.IsError || !strings.Contains(result.Content[0].Text, "must be prefixed") {
		t.Errorf("result = %+v", result)
	}
}

func TestDiscoveryActionsAudited(t *testing.T) {
	s, _ := newTestServer(t)
	audit := &fakeAuditor{}
	s.audit = audit

	doRPC(t, s, rpcRequest(t, "initialize", nil), nil)
	doRPC(t, s, rpcRequest(t, "tools/list", nil), nil)
	doRPC(t, s, rpcRequest(t, "tools/call", map[string]any{
		"name":      "hub.integrations.list",
		"arguments": map[string]any{"include_tools": false},
	}), nil)
	doRPC(t, s, rpcRequest(t, "tools/call", map[string]any{
		"name":      "hub.tools.list",
		"arguments": map[string]any{"provider": "slack"},
	}), nil)

	want := []string{"mcp.initialize", "mcp.tools.list", "hub.integrations.list", "hub.tools.list"}
	got := audit.actions()
	if len(got) != len(want) {
		t.Fatalf("audited actions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("actions[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if e := audit.entries[2]; e.Provider != "hub" || e.Status != store.AuditOK {
		t.Errorf("hub.integrations.list entry = %+v", e)
	}
	if e := audit.entries[3]; e.Provider != "slack" {
		t.Errorf("hub.tools.list provider = %q", e.Provider)
	}
	if e := audit.entries[0]; e.UserID == nil || *e.UserID != 7 {
		t.Errorf("entry user = %v", e.UserID)
	}
}

func TestPanicBecomesInternalError(t *testing.T) {
	s, exec := newTestServer(t)
	exec.panics = true

	resp, _ := doRPC(t, s, rpcRequest(t, "tools/call", map[string]any{"name": "slack.channels.list"}), nil)
	if resp.Error == nil || resp.Error.Code != JSONRPCInternalError {
		t.Errorf("error = %+v", resp.Error)
	}
}

func TestSSEAdvertisesMessagesEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	// Without the SSE accept header, a JSON hint is returned.
	r := httptest.NewRequest(http.MethodGet, "/mcp", nil)
	ctx := auth.WithAuth(r.Context(), &auth.AuthContext{UserID: 7})
	w := httptest.NewRecorder()
	s.handleSSE(w, r.WithContext(ctx))

	var hint map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &hint); err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(hint["endpoint"], "/mcp/messages") {
		t.Errorf("endpoint = %q", hint["endpoint"])
	}

	// With the accept header, the stream opens with an endpoint event.
	r = httptest.NewRequest(http.MethodGet, "/mcp", nil)
	r.Header.Set("Accept", "text/event-stream")
	cancelCtx, cancel := context.WithCancel(auth.WithAuth(r.Context(), &auth.AuthContext{UserID: 7}))
	cancel() // end the stream right after the first event
	w = httptest.NewRecorder()
	s.handleSSE(w, r.WithContext(cancelCtx))

	body := w.Body.String()
	if !strings.HasPrefix(body, "event: endpoint\n") || !strings.Contains(body, "/mcp/messages") {
		t.Errorf("stream = %q", body)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
}
