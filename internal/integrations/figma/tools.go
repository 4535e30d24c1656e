// ABOUTME: Figma tool catalog
// ABOUTME: Identity, file read, version, and comment subset of the Figma API

package figma

import (
	"encoding/json"

	"github.com/Vangardo/mcp-hub-sub000/internal/integrations"
)

var toolDefs = []integrations.ToolDefinition{
	{
		Name:        "users.me",
		Description: "Get the authenticated Figma user's profile",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {}}`),
	},
	{
		Name:        "files.get",
		Description: "Get a Figma file's document tree by file key. Use depth to limit how deep the tree goes.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"file_key": {"type": "string", "description": "File key from the Figma URL"},
				"depth": {"type": "integer", "description": "Tree depth limit"}
			},
			"required": ["file_key"]
		}`),
	},
	{
		Name:        "files.versions",
		Description: "List the version history of a Figma file",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"file_key": {"type": "string", "description": "File key"}
			},
			"required": ["file_key"]
		}`),
	},
	{
		Name:        "comments.list",
		Description: "List comments on a Figma file",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"file_key": {"type": "string", "description": "File key"}
			},
			"required": ["file_key"]
		}`),
	},
	{
		Name:        "comments.create",
		Description: "Post a comment on a Figma file",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"file_key": {"type": "string", "description": "File key"},
				"message": {"type": "string", "description": "Comment text"}
			},
			"required": ["file_key", "message"]
		}`),
	},
}

// Tools returns the figma tool catalog.
func (i *Integration) Tools() []integrations.ToolDefinition {
	return toolDefs
}
