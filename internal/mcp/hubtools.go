// ABOUTME: Hub meta-tools: the small discovery API exposed instead of every
// ABOUTME: provider's full catalog — list integrations, list tools, call.

package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Vangardo/mcp-hub-sub000/internal/integrations"
)

var hubTools = []integrations.ToolDefinition{
	{
		Name: "hub.integrations.list",
		Description: "List integrations with connection status. " +
			"Set include_tools=true to inline each integration's tool definitions, " +
			"connected_only=false to include integrations you have not connected yet.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"include_tools": {"type": "boolean", "default": true},
				"connected_only": {"type": "boolean", "default": true}
			}
		}`),
	},
	{
		Name:        "hub.tools.list",
		Description: "List the tools of one connected integration.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"provider": {"type": "string", "description": "Integration name, e.g. slack"}
			},
			"required": ["provider"]
		}`),
	},
	{
		Name:        "hub.tools.call",
		Description: "Call a tool on a connected integration. tool_name must be provider-qualified, e.g. slack.messages.post.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"provider": {"type": "string", "description": "Integration name"},
				"tool_name": {"type": "string", "description": "Qualified tool name (provider.tool)"},
				"arguments": {"type": "object", "description": "Tool arguments"}
			},
			"required": ["provider", "tool_name"]
		}`),
	},
}

func (s *Server) handleHubTool(ctx context.Context, w http.ResponseWriter, req JSONRPCRequest, userID int64, scope, name string, args map[string]any) {
	switch name {
	case "hub.integrations.list":
		s.hubIntegrationsList(ctx, w, req, userID, args)
	case "hub.tools.list":
		s.hubToolsList(ctx, w, req, userID, scope, args)
	case "hub.tools.call":
		s.hubToolsCall(ctx, w, req, userID, scope, args)
	default:
		s.sendToolError(w, req.ID, "unknown hub tool: "+name)
	}
}

func (s *Server) hubIntegrationsList(ctx context.Context, w http.ResponseWriter, req JSONRPCRequest, userID int64, args map[string]any) {
	includeTools := boolArgDefault(args, "include_tools", true)
	connectedOnly := boolArgDefault(args, "connected_only", true)

	connected, err := s.connections.ListConnectedProviders(ctx, userID)
	if err != nil {
		s.sendToolError(w, req.ID, "list connections: "+err.Error())
		return
	}
	connectedSet := make(map[string]bool, len(connected)+1)
	for _, p := range connected {
		connectedSet[p] = true
	}
	connectedSet["memory"] = true

	list := make([]map[string]any, 0)
	for _, integration := range s.registry.All() {
		isConnected := connectedSet[integration.Name()]
		if connectedOnly && !isConnected {
			continue
		}
		item := map[string]any{
			"name":          integration.Name(),
			"display_name":  integration.DisplayName(),
			"description":   integration.Description(),
			"auth_type":     integration.AuthType(),
			"is_configured": integration.IsConfigured(),
			"is_connected":  isConnected,
		}
		if includeTools {
			defs := integration.Tools()
			tools := make([]MCPToolInfo, 0, len(defs))
			for _, def := range defs {
				tools = append(tools, MCPToolInfo{
					Name:        integration.Name() + "." + def.Name,
					Description: def.Description,
					InputSchema: def.InputSchema,
				})
			}
			item["tools"] = tools
		}
		list = append(list, item)
	}

	text, err := json.Marshal(map[string]any{"integrations": list})
	if err != nil {
		s.sendToolError(w, req.ID, "encode integrations: "+err.Error())
		return
	}
	s.recordAction(ctx, userID, "hub", "hub.integrations.list", map[string]any{"count": len(list)})
	s.sendResult(w, req.ID, MCPCallToolResult{
		Content: []MCPContent{{Type: "text", Text: string(text)}},
	})
}

func (s *Server) hubToolsList(ctx context.Context, w http.ResponseWriter, req JSONRPCRequest, userID int64, scope string, args map[string]any) {
	provider, _ := args["provider"].(string)
	if provider == "" {
		s.sendToolError(w, req.ID, "provider is required")
		return
	}
	if scope != "" && provider != scope {
		s.sendToolError(w, req.ID, "provider not allowed under scope "+scope)
		return
	}

	tools, err := s.providerCatalog(ctx, userID, provider, FormatDot)
	if err != nil {
		s.sendToolError(w, req.ID, err.Error())
		return
	}

	text, err := json.Marshal(map[string]any{"tools": tools})
	if err != nil {
		s.sendToolError(w, req.ID, "encode tools: "+err.Error())
		return
	}
	s.recordAction(ctx, userID, provider, "hub.tools.list", map[string]any{"count": len(tools)})
	s.sendResult(w, req.ID, MCPCallToolResult{
		Content: []MCPContent{{Type: "text", Text: string(text)}},
	})
}

func (s *Server) hubToolsCall(ctx context.Context, w http.ResponseWriter, req JSONRPCRequest, userID int64, scope string, args map[string]any) {
	provider, _ := args["provider"].(string)
	toolName, _ := args["tool_name"].(string)
	if provider == "" || toolName == "" {
		s.sendToolError(w, req.ID, "provider and tool_name are required")
		return
	}
	if !strings.HasPrefix(toolName, provider+".") {
		s.sendToolError(w, req.ID, "tool_name must be prefixed with "+provider+".")
		return
	}
	if scope != "" && provider != scope {
		s.sendToolError(w, req.ID, "provider not allowed under scope "+scope)
		return
	}

	arguments, _ := args["arguments"].(map[string]any)
	result := s.dispatcher.Execute(ctx, userID, toolName, arguments)
	s.sendToolResult(w, req.ID, result)
}

func boolArgDefault(args map[string]any, key string, def bool) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return def
}
