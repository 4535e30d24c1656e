// ABOUTME: Telegram tool catalog
// ABOUTME: Tool names are short; the provider prefix is added at the gateway

package telegram

import (
	"encoding/json"

	"github.com/Vangardo/mcp-hub-sub000/internal/integrations"
)

var toolDefs = []integrations.ToolDefinition{
	{
		Name:        "dialogs.list",
		Description: "List Telegram dialogs for the authenticated user",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"limit": {"type": "integer", "description": "Max dialogs to return", "default": 50}
			}
		}`),
	},
	{
		Name:        "messages.send",
		Description: "Send a message to a Telegram user or chat",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"peer": {"type": "string", "description": "Username, phone, or chat ID"},
				"text": {"type": "string", "description": "Message text"}
			},
			"required": ["peer", "text"]
		}`),
	},
	{
		Name:        "messages.search",
		Description: "Search messages in Telegram",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {"type": "string", "description": "Search query"},
				"peer": {"type": "string", "description": "Optional peer to search in"},
				"limit": {"type": "integer", "description": "Max results", "default": 20}
			},
			"required": ["query"]
		}`),
	},
	{
		Name:        "messages.history",
		Description: "Fetch recent message history for a peer",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"peer": {"type": "string", "description": "Username, phone, or chat ID"},
				"limit": {"type": "integer", "description": "Max messages", "default": 20},
				"before_id": {"type": "integer", "description": "Return messages before this ID"}
			},
			"required": ["peer"]
		}`),
	},
}
