// ABOUTME: Teamwork tool catalog
// ABOUTME: Project, task list, and task subset of the Teamwork API

package teamwork

import (
	"encoding/json"

	"github.com/Vangardo/mcp-hub-sub000/internal/integrations"
)

var toolDefs = []integrations.ToolDefinition{
	{
		Name:        "projects.list",
		Description: "List all projects in the Teamwork installation",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {}}`),
	},
	{
		Name:        "tasklists.list",
		Description: "List task lists in a project",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"project_id": {"type": "string", "description": "Project ID"}
			},
			"required": ["project_id"]
		}`),
	},
	{
		Name:        "tasks.list",
		Description: "List tasks, optionally scoped to a project",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"project_id": {"type": "string", "description": "Project ID"}
			}
		}`),
	},
	{
		Name:        "tasks.create",
		Description: "Create a task in a task list",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"tasklist_id": {"type": "string", "description": "Task list ID"},
				"content": {"type": "string", "description": "Task title"},
				"description": {"type": "string", "description": "Task description"}
			},
			"required": ["tasklist_id", "content"]
		}`),
	},
	{
		Name:        "tasks.complete",
		Description: "Mark a task as complete",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"task_id": {"type": "string", "description": "Task ID"}
			},
			"required": ["task_id"]
		}`),
	},
}

// Tools returns the teamwork tool catalog.
func (i *Integration) Tools() []integrations.ToolDefinition {
	return toolDefs
}
