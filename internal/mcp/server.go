// ABOUTME: MCP-compatible JSON-RPC server exposing the hub tool surface.
// ABOUTME: Stateless POST transport plus an SSE channel advertising the endpoint.

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Vangardo/mcp-hub-sub000/internal/auth"
	"github.com/Vangardo/mcp-hub-sub000/internal/integrations"
	"github.com/Vangardo/mcp-hub-sub000/internal/store"
)

// protocolVersion is the MCP protocol revision we advertise.
const protocolVersion = "2024-11-05"

// serverName identifies this gateway in initialize responses.
const serverName = "mcp-hub"

// MaxRequestBodySize is the maximum allowed size for request bodies (1MB).
const MaxRequestBodySize = 1 << 20

// JSON-RPC 2.0 types

// JSONRPCRequest represents a JSON-RPC 2.0 request.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response.
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

// JSONRPCError represents a JSON-RPC 2.0 error object.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Standard JSON-RPC error codes
const (
	JSONRPCParseError     = -32700
	JSONRPCInvalidRequest = -32600
	JSONRPCMethodNotFound = -32601
	JSONRPCInvalidParams  = -32602
	JSONRPCInternalError  = -32603
)

// MCPToolInfo represents an MCP tool definition on the wire.
type MCPToolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// MCPCallToolParams are the params for tools/call.
type MCPCallToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// MCPContent represents content in a tool result.
type MCPContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// MCPCallToolResult is the result for tools/call.
type MCPCallToolResult struct {
	Content []MCPContent `json:"content"`
	IsError bool         `json:"isError,omitempty"`
}

// Executor dispatches provider-qualified tool calls.
type Executor interface {
	Execute(ctx context.Context, userID int64, toolName string, args map[string]any) integrations.Result
}

// ConnectionLister reports which providers a user has connected.
type ConnectionLister interface {
	ListConnectedProviders(ctx context.Context, userID int64) ([]string, error)
}

// Auditor records protocol-level actions, best-effort.
type Auditor interface {
	Record(ctx context.Context, entry *store.AuditEntry)
}

// Server implements the MCP JSON-RPC surface over HTTP.
type Server struct {
	registry    *integrations.Registry
	dispatcher  Executor
	connections ConnectionLister
	audit       Auditor
	logger      *slog.Logger
	keepalive   time.Duration
}

func NewServer(registry *integrations.Registry, dispatcher Executor, connections ConnectionLister, audit Auditor) *Server {
	return &Server{
		registry:    registry,
		dispatcher:  dispatcher,
		connections: connections,
		audit:       audit,
		logger:      slog.Default().With("component", "mcp"),
		keepalive:   30 * time.Second,
	}
}

// Routes mounts the MCP endpoints. The caller wraps them in bearer auth so a
// missing or invalid token is a 401 before any JSON-RPC parsing happens.
func (s *Server) Routes(r chi.Router) {
	r.Post("/mcp", s.handlePost)
	r.Post("/mcp/messages", s.handlePost)
	r.Get("/mcp", s.handleSSE)
}

// handlePost processes one JSON-RPC message.
func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.FromContext(r.Context())
	if authCtx == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBodySize+1))
	if err != nil {
		s.sendError(w, nil, JSONRPCParseError, "failed to read request body")
		return
	}
	if int64(len(body)) > MaxRequestBodySize {
		s.sendError(w, nil, JSONRPCInvalidRequest, "request body too large")
		return
	}

	var req JSONRPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.sendError(w, nil, JSONRPCParseError, "invalid JSON")
		return
	}
	if req.JSONRPC != "2.0" {
		s.sendError(w, req.ID, JSONRPCInvalidRequest, "invalid JSON-RPC version")
		return
	}

	// Unexpected panics anywhere below become a JSON-RPC internal error so
	// the client always receives a well-formed response.
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("panic in MCP handler", "method", req.Method, "panic", rec)
			s.sendError(w, req.ID, JSONRPCInternalError, "internal error")
		}
	}()

	scope := r.Header.Get("X-MCP-Provider")
	format := resolveToolFormat(r)

	s.logger.Debug("MCP request",
		"method", req.Method, "user_id", authCtx.UserID, "scope", scope, "format", format)

	switch req.Method {
	case "initialize":
		s.recordAction(r.Context(), authCtx.UserID, scope, "mcp.initialize", nil)
		s.handleInitialize(w, req)
	case "tools/list":
		s.handleToolsList(r.Context(), w, req, authCtx.UserID, scope, format)
	case "tools/call":
		s.handleToolsCall(r.Context(), w, req, authCtx.UserID, scope, format)
	default:
		s.sendError(w, req.ID, JSONRPCMethodNotFound, "method not found: "+req.Method)
	}
}

func (s *Server) handleInitialize(w http.ResponseWriter, req JSONRPCRequest) {
	s.sendResult(w, req.ID, map[string]any{
		"protocolVersion": protocolVersion,
		"capabilities": map[string]any{
			"tools": map[string]any{},
		},
		"serverInfo": map[string]any{
			"name":    serverName,
			"version": "1.0.0",
		},
	})
}

// handleToolsList returns the three hub meta-tools, or, under a provider
// scope, that provider's full qualified catalog.
func (s *Server) handleToolsList(ctx context.Context, w http.ResponseWriter, req JSONRPCRequest, userID int64, scope string, format ToolFormat) {
	var tools []MCPToolInfo
	if scope == "" {
		tools = make([]MCPToolInfo, 0, len(hubTools))
		for _, t := range hubTools {
			tools = append(tools, MCPToolInfo{
				Name:        EncodeToolName(t.Name, format),
				Description: t.Description,
				InputSchema: t.InputSchema,
			})
		}
	} else {
		var err error
		tools, err = s.providerCatalog(ctx, userID, scope, format)
		if err != nil {
			// Provider problems under a scope are still a valid listing
			// request; answer with an empty catalog rather than an error.
			s.logger.Warn("scoped tools/list failed", "provider", scope, "error", err)
			tools = []MCPToolInfo{}
		}
	}

	s.recordAction(ctx, userID, scope, "mcp.tools.list", map[string]any{"count": len(tools)})
	s.sendResult(w, req.ID, map[string]any{"tools": tools})
}

// recordAction audits a discovery or lifecycle action. A nil sink means
// auditing is off; failures never reach the caller.
func (s *Server) recordAction(ctx context.Context, userID int64, provider, action string, response map[string]any) {
	if s.audit == nil {
		return
	}
	entry := &store.AuditEntry{
		UserID:   &userID,
		Provider: provider,
		Action:   action,
		Status:   store.AuditOK,
	}
	if response != nil {
		if raw, err := json.Marshal(response); err == nil {
			entry.ResponseJSON = string(raw)
		}
	}
	s.audit.Record(ctx, entry)
}

// providerCatalog builds the qualified tool list for one connected provider.
func (s *Server) providerCatalog(ctx context.Context, userID int64, provider string, format ToolFormat) ([]MCPToolInfo, error) {
	integration, err := s.registry.Get(provider)
	if err != nil {
		return nil, fmt.Errorf("unknown integration: %s", provider)
	}
	if !integration.IsConfigured() {
		return nil, fmt.Errorf("integration %s is not configured", provider)
	}
	connected, err := s.isConnected(ctx, userID, provider)
	if err != nil {
		return nil, err
	}
	if !connected {
		return nil, fmt.Errorf("integration %s is not connected", provider)
	}

	defs := integration.Tools()
	tools := make([]MCPToolInfo, 0, len(defs))
	for _, def := range defs {
		tools = append(tools, MCPToolInfo{
			Name:        EncodeToolName(provider+"."+def.Name, format),
			Description: def.Description,
			InputSchema: def.InputSchema,
		})
	}
	return tools, nil
}

// isConnected reports whether the user has a live connection to the provider.
// Memory is built in and always counts as connected.
func (s *Server) isConnected(ctx context.Context, userID int64, provider string) (bool, error) {
	if provider == "memory" {
		return true, nil
	}
	providers, err := s.connections.ListConnectedProviders(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("list connections: %w", err)
	}
	for _, p := range providers {
		if p == provider {
			return true, nil
		}
	}
	return false, nil
}

func (s *Server) handleToolsCall(ctx context.Context, w http.ResponseWriter, req JSONRPCRequest, userID int64, scope string, format ToolFormat) {
	var params MCPCallToolParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			s.sendError(w, req.ID, JSONRPCInvalidParams, "invalid params")
			return
		}
	}
	if params.Name == "" {
		s.sendError(w, req.ID, JSONRPCInvalidParams, "tool name is required")
		return
	}

	name := DecodeToolName(params.Name, format)

	if strings.HasPrefix(name, "hub.") {
		s.handleHubTool(ctx, w, req, userID, scope, name, params.Arguments)
		return
	}

	// Direct provider-qualified call.
	if scope != "" && !strings.HasPrefix(name, scope+".") {
		s.sendToolError(w, req.ID, fmt.Sprintf("tool not allowed under provider scope %s", scope))
		return
	}
	result := s.dispatcher.Execute(ctx, userID, name, params.Arguments)
	s.sendToolResult(w, req.ID, result)
}

// sendToolResult folds a dispatch Result into MCP content: data as JSON text
// on success, an isError text block on failure.
func (s *Server) sendToolResult(w http.ResponseWriter, id json.RawMessage, result integrations.Result) {
	if !result.Success {
		s.sendToolError(w, id, result.Error)
		return
	}
	text := "{}"
	if result.Data != nil {
		raw, err := json.Marshal(result.Data)
		if err != nil {
			s.sendToolError(w, id, "failed to encode tool result: "+err.Error())
			return
		}
		text = string(raw)
	}
	s.sendResult(w, id, MCPCallToolResult{
		Content: []MCPContent{{Type: "text", Text: text}},
	})
}

// sendToolError delivers a tool-level failure as error content inside a
// successful JSON-RPC envelope, per MCP convention.
func (s *Server) sendToolError(w http.ResponseWriter, id json.RawMessage, msg string) {
	s.sendResult(w, id, MCPCallToolResult{
		Content: []MCPContent{{Type: "text", Text: "Error: " + msg}},
		IsError: true,
	})
}

// handleSSE serves the long-lived event stream: it advertises the messages
// endpoint, then emits keepalive comments until the client disconnects.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if auth.FromContext(r.Context()) == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	endpoint := strings.TrimSuffix(r.URL.String(), "/mcp") + "/mcp/messages"

	if !strings.Contains(strings.ToLower(r.Header.Get("Accept")), "text/event-stream") {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"endpoint": endpoint,
			"note":     "Use Accept: text/event-stream for SSE",
		})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	payload, _ := json.Marshal(map[string]string{"endpoint": endpoint})
	fmt.Fprintf(w, "event: endpoint\ndata: %s\n\n", payload)
	flusher.Flush()

	ticker := time.NewTicker(s.keepalive)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}

func (s *Server) sendResult(w http.ResponseWriter, id json.RawMessage, result any) {
	s.send(w, JSONRPCResponse{JSONRPC: "2.0", ID: id, Result: result})
}

func (s *Server) sendError(w http.ResponseWriter, id json.RawMessage, code int, message string) {
	s.send(w, JSONRPCResponse{JSONRPC: "2.0", ID: id, Error: &JSONRPCError{Code: code, Message: message}})
}

func (s *Server) send(w http.ResponseWriter, resp JSONRPCResponse) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("failed to encode JSON-RPC response", "error", err)
	}
}
