// ABOUTME: Tests for the custom MCP server proxy client against a fake
// ABOUTME: JSON-RPC endpoint, plus name slugification rules.

package proxy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func rpcServer(t *testing.T, handler func(method string, params map[string]any) (any, *rpcError)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			JSONRPC string         `json:"jsonrpc"`
			ID      any            `json:"id"`
			Method  string         `json:"method"`
			Params  map[string]any `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		if req.JSONRPC != "2.0" || req.ID == nil {
			t.Errorf("malformed envelope: %+v", req)
		}
		result, rpcErr := handler(req.Method, req.Params)
		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestSlugify(t *testing.T) {
	tests := []struct{ in, want string }{
		{"My Server!", "my-server"},
		{"  Weather  API  ", "weather-api"},
		{"---", "custom"},
		{"", "custom"},
		{"already-fine", "already-fine"},
	}
	for _, tc := range tests {
		if got := Slugify(tc.in); got != tc.want {
			t.Errorf("Slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestReservedNames(t *testing.T) {
	for _, name := range []string{"hub", "memory", "slack"} {
		if !ReservedNames[name] {
			t.Errorf("%q should be reserved", name)
		}
	}
	if ReservedNames["weather"] {
		t.Error("weather should not be reserved")
	}
}

func TestInitializeHandshake(t *testing.T) {
	srv := rpcServer(t, func(method string, params map[string]any) (any, *rpcError) {
		if method != "initialize" {
			t.Errorf("method = %q", method)
		}
		if params["protocolVersion"] != "2024-11-05" {
			t.Errorf("protocolVersion = %v", params["protocolVersion"])
		}
		return map[string]any{"protocolVersion": "2024-11-05", "serverInfo": map[string]any{"name": "fake"}}, nil
	})
	defer srv.Close()

	c := NewClient(srv.URL, "none", "", "")
	result, err := c.Initialize(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result["protocolVersion"] != "2024-11-05" {
		t.Errorf("result = %v", result)
	}
	if !c.HealthCheck(context.Background()) {
		t.Error("HealthCheck should pass")
	}
}

func TestAuthHeaders(t *testing.T) {
	var gotAuth, gotCustom string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotCustom = r.Header.Get("X-Api-Key")
		json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": "1", "result": map[string]any{}})
	}))
	defer srv.Close()

	NewClient(srv.URL, "bearer", "tok-123", "").Initialize(context.Background())
	if gotAuth != "Bearer tok-123" {
		t.Errorf("Authorization = %q", gotAuth)
	}

	gotAuth = ""
	NewClient(srv.URL, "custom_header", "key-456", "X-Api-Key").Initialize(context.Background())
	if gotCustom != "key-456" {
		t.Errorf("custom header = %q", gotCustom)
	}
	if gotAuth != "" {
		t.Errorf("unexpected Authorization = %q", gotAuth)
	}
}

func TestListTools(t *testing.T) {
	srv := rpcServer(t, func(method string, params map[string]any) (any, *rpcError) {
		if method != "tools/list" {
			t.Errorf("method = %q", method)
		}
		return map[string]any{"tools": []map[string]any{
			{"name": "forecast", "description": "Weather forecast", "inputSchema": map[string]any{"type": "object"}},
		}}, nil
	})
	defer srv.Close()

	tools, err := NewClient(srv.URL, "none", "", "").ListTools(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(tools) != 1 || tools[0].Name != "forecast" {
		t.Errorf("tools = %+v", tools)
	}
	if !strings.Contains(string(tools[0].InputSchema), `"object"`) {
		t.Errorf("inputSchema = %s", tools[0].InputSchema)
	}
}

func TestCallToolSuccess(t *testing.T) {
	srv := rpcServer(t, func(method string, params map[string]any) (any, *rpcError) {
		if params["name"] != "forecast" {
			t.Errorf("tool name = %v", params["name"])
		}
		args := params["arguments"].(map[string]any)
		if args["city"] != "Lisbon" {
			t.Errorf("arguments = %v", args)
		}
		return map[string]any{"content": []map[string]any{{"type": "text", "text": "sunny"}}}, nil
	})
	defer srv.Close()

	result, err := NewClient(srv.URL, "none", "", "").CallTool(context.Background(), "forecast", map[string]any{"city": "Lisbon"})
	if err != nil {
		t.Fatal(err)
	}
	if result["isError"] != nil {
		t.Errorf("unexpected error result: %v", result)
	}
}

func TestCallToolRPCErrorBecomesToolError(t *testing.T) {
	srv := rpcServer(t, func(method string, params map[string]any) (any, *rpcError) {
		return nil, &rpcError{Code: -32602, Message: "unknown tool"}
	})
	defer srv.Close()

	result, err := NewClient(srv.URL, "none", "", "").CallTool(context.Background(), "nope", nil)
	if err != nil {
		t.Fatal(err)
	}
	if result["isError"] != true {
		t.Fatalf("result = %v", result)
	}
	content := result["content"].([]map[string]any)
	if !strings.Contains(content[0]["text"].(string), "unknown tool") {
		t.Errorf("content = %v", content)
	}
}

func TestHTTPErrorFailsHealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if NewClient(srv.URL, "none", "", "").HealthCheck(context.Background()) {
		t.Error("HealthCheck should fail on HTTP 502")
	}
}
