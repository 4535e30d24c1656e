// ABOUTME: Miro tool catalog
// ABOUTME: Board CRUD subset plus sticky note creation

package miro

import (
	"encoding/json"

	"github.com/Vangardo/mcp-hub-sub000/internal/integrations"
)

var toolDefs = []integrations.ToolDefinition{
	{
		Name:        "boards.list",
		Description: "List or search Miro boards accessible to the user. Use query to search by board title. Returns board IDs needed for all other operations.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {"type": "string", "description": "Search by board title"},
				"limit": {"type": "integer", "description": "Max boards to return", "default": 20}
			}
		}`),
	},
	{
		Name:        "boards.get",
		Description: "Get full details of a Miro board by ID, including name, description, owner, creation date, and sharing settings.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"board_id": {"type": "string", "description": "Board ID"}
			},
			"required": ["board_id"]
		}`),
	},
	{
		Name:        "boards.create",
		Description: "Create a new Miro board.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"name": {"type": "string", "description": "Board name"},
				"description": {"type": "string", "description": "Board description"}
			},
			"required": ["name"]
		}`),
	},
	{
		Name:        "items.list",
		Description: "List all items on a Miro board. Filter by type to get only specific items. Supported types: sticky_note, text, shape, card, frame, image, document, embed, connector.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"board_id": {"type": "string", "description": "Board ID"},
				"type": {"type": "string", "description": "Item type filter"}
			},
			"required": ["board_id"]
		}`),
	},
	{
		Name:        "sticky_notes.create",
		Description: "Create a sticky note on a Miro board. Specify content text and optional color and position.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"board_id": {"type": "string", "description": "Board ID"},
				"content": {"type": "string", "description": "Sticky note text"},
				"color": {"type": "string", "description": "Fill color name"},
				"x": {"type": "number", "description": "X position"},
				"y": {"type": "number", "description": "Y position"}
			},
			"required": ["board_id", "content"]
		}`),
	},
}

// Tools returns the miro tool catalog.
func (i *Integration) Tools() []integrations.ToolDefinition {
	return toolDefs
}
