// ABOUTME: JSON-RPC client for user-registered external MCP servers.
// ABOUTME: Speaks MCP over HTTP with bearer or custom-header auth.

package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Vangardo/mcp-hub-sub000/internal/integrations"
)

const protocolVersion = "2024-11-05"

// ReservedNames are provider names claimed by built-in integrations; custom
// servers may not shadow them.
var ReservedNames = map[string]bool{
	"hub": true, "teamwork": true, "slack": true, "miro": true, "figma": true,
	"telegram": true, "binance": true, "memory": true,
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a provider name from a user-supplied display name.
func Slugify(name string) string {
	slug := slugPattern.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "custom"
	}
	return slug
}

// Client speaks JSON-RPC 2.0 to one external MCP server.
type Client struct {
	serverURL      string
	authType       string
	authSecret     string
	authHeaderName string
	httpClient     *http.Client
}

// NewClient builds a proxy client. authType is one of none, bearer,
// custom_header; authSecret is the decrypted credential.
func NewClient(serverURL, authType, authSecret, authHeaderName string) *Client {
	return &Client{
		serverURL:      strings.TrimRight(serverURL, "/"),
		authType:       authType,
		authSecret:     authSecret,
		authHeaderName: authHeaderName,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
	}
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *Client) send(ctx context.Context, method string, params any) (*rpcResponse, error) {
	payload := map[string]any{
		"jsonrpc": "2.0",
		"id":      uuid.NewString(),
		"method":  method,
	}
	if params != nil {
		payload["params"] = params
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.authType == "bearer" && c.authSecret != "":
		req.Header.Set("Authorization", "Bearer "+c.authSecret)
	case c.authType == "custom_header" && c.authHeaderName != "" && c.authSecret != "":
		req.Header.Set(c.authHeaderName, c.authSecret)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mcp server request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read mcp server response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("mcp server error (HTTP %d)", resp.StatusCode)
	}

	var rpc rpcResponse
	if err := json.Unmarshal(raw, &rpc); err != nil {
		return nil, fmt.Errorf("decode mcp server response: %w", err)
	}
	return &rpc, nil
}

// Initialize performs the MCP handshake and returns the server's result.
func (c *Client) Initialize(ctx context.Context) (map[string]any, error) {
	rpc, err := c.send(ctx, "initialize", map[string]any{
		"protocolVersion": protocolVersion,
		"capabilities":    map[string]any{},
		"clientInfo":      map[string]string{"name": "mcp-hub-proxy", "version": "1.0.0"},
	})
	if err != nil {
		return nil, err
	}
	if rpc.Error != nil {
		return nil, fmt.Errorf("initialize failed: %s", rpc.Error.Message)
	}
	var result map[string]any
	if err := json.Unmarshal(rpc.Result, &result); err != nil {
		return nil, fmt.Errorf("decode initialize result: %w", err)
	}
	return result, nil
}

// ListTools fetches the server's tool catalog.
func (c *Client) ListTools(ctx context.Context) ([]integrations.ToolDefinition, error) {
	rpc, err := c.send(ctx, "tools/list", nil)
	if err != nil {
		return nil, err
	}
	if rpc.Error != nil {
		return nil, fmt.Errorf("tools/list failed: %s", rpc.Error.Message)
	}
	var result struct {
		Tools []struct {
			Name        string          `json:"name"`
			Description string          `json:"description"`
			InputSchema json.RawMessage `json:"inputSchema"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(rpc.Result, &result); err != nil {
		return nil, fmt.Errorf("decode tools/list result: %w", err)
	}

	tools := make([]integrations.ToolDefinition, 0, len(result.Tools))
	for _, t := range result.Tools {
		tools = append(tools, integrations.ToolDefinition{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		})
	}
	return tools, nil
}

// CallTool invokes one tool on the server and returns the raw MCP result,
// which may itself carry isError content.
func (c *Client) CallTool(ctx context.Context, toolName string, arguments map[string]any) (map[string]any, error) {
	if arguments == nil {
		arguments = map[string]any{}
	}
	rpc, err := c.send(ctx, "tools/call", map[string]any{
		"name":      toolName,
		"arguments": arguments,
	})
	if err != nil {
		return nil, err
	}
	if rpc.Error != nil {
		return map[string]any{
			"content": []map[string]any{
				{"type": "text", "text": "Error: " + rpc.Error.Message},
			},
			"isError": true,
		}, nil
	}
	var result map[string]any
	if err := json.Unmarshal(rpc.Result, &result); err != nil {
		return nil, fmt.Errorf("decode tools/call result: %w", err)
	}
	return result, nil
}

// HealthCheck reports whether the server answers an initialize handshake.
func (c *Client) HealthCheck(ctx context.Context) bool {
	_, err := c.Initialize(ctx)
	return err == nil
}
