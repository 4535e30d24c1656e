// ABOUTME: Memory tool catalog
// ABOUTME: Tool names are short; the provider prefix is added at the gateway

package memory

import (
	"encoding/json"

	"github.com/Vangardo/mcp-hub-sub000/internal/integrations"
)

var toolDefs = []integrations.ToolDefinition{
	{
		Name: "summarize_context",
		Description: "Get the user's context pack — pinned items, preferences, constraints, " +
			"active projects and goals, assets, contacts, and recent notes.\n" +
			"Call this at the start of a conversation to load persistent context. " +
			"Use scope to filter by integration or 'auto'/'global' for everything.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"scope": {"type": "string", "description": "Filter scope: 'auto' (all), 'global', or integration name", "default": "auto"},
				"max_per_section": {"type": "integer", "description": "Max items per section", "default": 10}
			}
		}`),
	},
	{
		Name: "search",
		Description: "Search across all memory items by text.\n" +
			"Matches titles, values, and tags. Combine with filters to narrow by type, scope, or pinned.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {"type": "string", "description": "Search text"},
				"filters": {
					"type": "object",
					"properties": {
						"type": {"type": "string", "description": "Filter by type: preference, constraint, decision, goal, project, contact, asset, note"},
						"scope": {"type": "string", "description": "Filter by scope (global, binance, teamwork, ...)"},
						"pinned": {"type": "boolean", "description": "Filter by pinned status"}
					}
				},
				"top_k": {"type": "integer", "description": "Max results", "default": 20}
			},
			"required": ["query"]
		}`),
	},
	{
		Name: "upsert",
		Description: "Create or update a memory item. Deduplicates by (type + scope + title).\n" +
			"Durable types (preference, constraint, decision, project, contact, asset) are permanent; " +
			"goals expire in 30 days; notes in 7 days unless pinned.\n" +
			"Items are auto-evaluated (secret detection, sensitivity) and the TTL may be adjusted. " +
			"Set explicit=true when the user explicitly asked to remember.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"title": {"type": "string", "description": "Short descriptive title (unique key with type+scope)"},
				"type": {"type": "string", "enum": ["preference", "constraint", "decision", "goal", "project", "contact", "asset", "note"]},
				"scope": {"type": "string", "description": "Integration scope or 'global'", "default": "global"},
				"value_json": {"description": "Structured value — object or string"},
				"tags_json": {"type": "array", "items": {"type": "string"}, "description": "Tags for categorization"},
				"pinned": {"type": "boolean", "description": "Pin this item (prevents TTL expiry)", "default": false},
				"sensitivity": {"type": "string", "enum": ["low", "medium", "high"], "default": "low"},
				"confidence": {"type": "number", "description": "Confidence score 0.0-1.0", "default": 1.0},
				"explicit": {"type": "boolean", "description": "True when the user explicitly asked to remember this", "default": false},
				"source_json": {"type": "object", "description": "Source metadata: {tool, timestamp, message_id}"}
			},
			"required": ["title", "type"]
		}`),
	},
	{
		Name: "delete",
		Description: "Delete a memory item by ID or by title.\n" +
			"Provide 'id' for exact match, or 'title' (+ optional type/scope). At least one is required.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"id": {"type": "string", "description": "Memory item ID (takes priority over title)"},
				"title": {"type": "string", "description": "Memory item title"},
				"type": {"type": "string", "description": "Filter by type when deleting by title"},
				"scope": {"type": "string", "description": "Filter by scope when deleting by title"}
			}
		}`),
	},
	{
		Name: "pin",
		Description: "Toggle the pinned status of a memory item.\n" +
			"Pinned items appear in the context pack and never expire.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"id": {"type": "string", "description": "Memory item ID"},
				"pinned": {"type": "boolean", "description": "Pin (true) or unpin (false)"}
			},
			"required": ["id", "pinned"]
		}`),
	},
	{
		Name: "set_ttl",
		Description: "Set the time-to-live for a memory item.\n" +
			"null = permanent, integer = days until expiry.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"id": {"type": "string", "description": "Memory item ID"},
				"ttl_days": {"type": ["integer", "null"], "description": "Days until expiry, or null for permanent"}
			},
			"required": ["id", "ttl_days"]
		}`),
	},
	{
		Name: "evaluate_write",
		Description: "Evaluate a candidate memory item before saving.\n" +
			"Detects secrets, validates sensitivity, and suggests a TTL.\n" +
			"Reason codes: SECRET_REJECTED, HIGH_SENSITIVITY_NEEDS_EXPLICIT, PREFERENCE_STABLE, " +
			"DURABLE_ENTITY, GOAL_MEDIUM_TERM, SHORT_TERM_NOTE, USER_PINNED, DEFAULT_SHORT_TERM",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"title": {"type": "string", "description": "Candidate title"},
				"type": {"type": "string", "description": "Candidate type"},
				"value_json": {"description": "Candidate value"},
				"sensitivity": {"type": "string", "enum": ["low", "medium", "high"], "default": "low"},
				"pinned": {"type": "boolean", "default": false},
				"explicit": {"type": "boolean", "description": "Whether the user explicitly asked to remember", "default": false}
			},
			"required": ["title", "type"]
		}`),
	},
}
