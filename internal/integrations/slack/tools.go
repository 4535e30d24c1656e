// ABOUTME: Slack tool catalog and execution dispatch
// ABOUTME: Tool names are short; the provider prefix is added at the gateway

package slack

import (
	"context"
	"encoding/json"

	"github.com/Vangardo/mcp-hub-sub000/internal/integrations"
)

var toolDefs = []integrations.ToolDefinition{
	{
		Name:        "channels.list",
		Description: "List all channels in Slack workspace",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"limit": {"type": "integer", "description": "Max channels to return", "default": 100},
				"cursor": {"type": "string", "description": "Pagination cursor"},
				"types": {"type": "string", "description": "Channel types (comma-separated)", "default": "public_channel,private_channel"}
			}
		}`),
	},
	{
		Name:        "users.list",
		Description: "List all users in Slack workspace",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"limit": {"type": "integer", "description": "Max users to return", "default": 100},
				"cursor": {"type": "string", "description": "Pagination cursor"}
			}
		}`),
	},
	{
		Name:        "messages.post",
		Description: "Post a message to a Slack channel",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"channel": {"type": "string", "description": "Channel ID or name"},
				"text": {"type": "string", "description": "Message text"},
				"thread_ts": {"type": "string", "description": "Thread timestamp for replies"}
			},
			"required": ["channel", "text"]
		}`),
	},
	{
		Name:        "messages.search",
		Description: "Search for messages in Slack",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {"type": "string", "description": "Search query"},
				"count": {"type": "integer", "description": "Number of results", "default": 20},
				"page": {"type": "integer", "description": "Page number", "default": 1}
			},
			"required": ["query"]
		}`),
	},
	{
		Name:        "messages.history",
		Description: "Get message history for a Slack channel",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"channel": {"type": "string", "description": "Channel ID"},
				"limit": {"type": "integer", "description": "Max messages to return", "default": 100},
				"cursor": {"type": "string", "description": "Pagination cursor"}
			},
			"required": ["channel"]
		}`),
	},
}

// Tools returns the slack tool catalog.
func (i *Integration) Tools() []integrations.ToolDefinition {
	return toolDefs
}

// Execute runs one slack tool with the user's access token. Provider failures
// come back as failed Results rather than errors.
func (i *Integration) Execute(ctx context.Context, toolName string, args map[string]any, token, meta string) integrations.Result {
	client := NewClient(token)

	switch toolName {
	case "channels.list":
		data, err := client.ListChannels(ctx,
			intArg(args, "limit", 100),
			stringArg(args, "cursor"),
			stringArgDefault(args, "types", "public_channel,private_channel"))
		return wrap(data, err)

	case "users.list":
		data, err := client.ListUsers(ctx, intArg(args, "limit", 100), stringArg(args, "cursor"))
		return wrap(data, err)

	case "messages.post":
		channel := stringArg(args, "channel")
		text := stringArg(args, "text")
		if channel == "" || text == "" {
			return integrations.Fail("channel and text are required")
		}
		data, err := client.PostMessage(ctx, channel, text, stringArg(args, "thread_ts"))
		return wrap(data, err)

	case "messages.search":
		query := stringArg(args, "query")
		if query == "" {
			return integrations.Fail("query is required")
		}
		data, err := client.SearchMessages(ctx, query, intArg(args, "count", 20), intArg(args, "page", 1))
		return wrap(data, err)

	case "messages.history":
		channel := stringArg(args, "channel")
		if channel == "" {
			return integrations.Fail("channel is required")
		}
		data, err := client.ChannelHistory(ctx, channel, intArg(args, "limit", 100), stringArg(args, "cursor"))
		return wrap(data, err)

	default:
		return integrations.Fail("Unknown tool: " + toolName)
	}
}

func wrap(data map[string]any, err error) integrations.Result {
	if err != nil {
		return integrations.Fail(err.Error())
	}
	return integrations.OK(data)
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func stringArgDefault(args map[string]any, key, def string) string {
	if s := stringArg(args, key); s != "" {
		return s
	}
	return def
}

func intArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}
