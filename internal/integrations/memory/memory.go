// ABOUTME: Built-in memory integration: persistent user context for agents.
// ABOUTME: Internal auth type; the access token is the stringified user id.

package memory

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/Vangardo/mcp-hub-sub000/internal/integrations"
	"github.com/Vangardo/mcp-hub-sub000/internal/store"
)

// Store is the persistence surface the memory integration needs.
type Store interface {
	UpsertMemoryItem(ctx context.Context, item *store.MemoryItem) (*store.MemoryItem, error)
	SearchMemoryItems(ctx context.Context, userID int64, q store.MemoryQuery) ([]*store.MemoryItem, error)
	DeleteMemoryItem(ctx context.Context, userID int64, id string) error
	DeleteMemoryItemByTitle(ctx context.Context, userID int64, title, itemType, scope string) error
	SetMemoryItemPinned(ctx context.Context, userID int64, id string, pinned bool) error
	SetMemoryItemTTL(ctx context.Context, userID int64, id string, ttlDays *int) error
	CountMemoryItems(ctx context.Context, userID int64) (int, error)
}

type Integration struct {
	store Store
}

func New(st Store) *Integration {
	return &Integration{store: st}
}

func (i *Integration) Name() string        { return "memory" }
func (i *Integration) DisplayName() string { return "Memory" }
func (i *Integration) Description() string {
	return "Persistent memory — preferences, goals, projects, and notes across conversations"
}
func (i *Integration) AuthType() store.AuthType { return store.AuthTypeInternal }
func (i *Integration) IsConfigured() bool       { return true }

func (i *Integration) Tools() []integrations.ToolDefinition { return toolDefs }

func (i *Integration) Execute(ctx context.Context, toolName string, args map[string]any, token, meta string) integrations.Result {
	userID, err := strconv.ParseInt(token, 10, 64)
	if err != nil {
		return integrations.Fail("invalid memory access token")
	}

	switch toolName {
	case "summarize_context":
		return i.summarizeContext(ctx, userID, args)
	case "search":
		return i.search(ctx, userID, args)
	case "upsert":
		return i.upsert(ctx, userID, args)
	case "delete":
		return i.delete(ctx, userID, args)
	case "pin":
		return i.pin(ctx, userID, args)
	case "set_ttl":
		return i.setTTL(ctx, userID, args)
	case "evaluate_write":
		return integrations.OK(EvaluateWrite(candidateFromArgs(args)))
	default:
		return integrations.Fail("unknown memory tool: " + toolName)
	}
}

// contextSections maps pack section names to the item types they collect.
var contextSections = []struct {
	section string
	types   []string
}{
	{"preferences", []string{"preference"}},
	{"constraints", []string{"constraint"}},
	{"decisions", []string{"decision"}},
	{"projects", []string{"project"}},
	{"goals", []string{"goal"}},
	{"assets", []string{"asset"}},
	{"contacts", []string{"contact"}},
	{"notes", []string{"note"}},
}

func (i *Integration) summarizeContext(ctx context.Context, userID int64, args map[string]any) integrations.Result {
	scope := stringArgDefault(args, "scope", "auto")
	if scope == "auto" {
		scope = ""
	}
	maxPerSection := intArg(args, "max_per_section", 10)

	pack := map[string]any{}

	pinned, err := i.store.SearchMemoryItems(ctx, userID, store.MemoryQuery{
		Scope: scope, PinnedOnly: true, Limit: maxPerSection,
	})
	if err != nil {
		return integrations.Fail(err.Error())
	}
	pack["pinned"] = itemMaps(pinned)

	for _, sec := range contextSections {
		items, err := i.store.SearchMemoryItems(ctx, userID, store.MemoryQuery{
			Type: sec.types[0], Scope: scope, Limit: maxPerSection,
		})
		if err != nil {
			return integrations.Fail(err.Error())
		}
		if len(items) > 0 {
			pack[sec.section] = itemMaps(items)
		}
	}

	total, err := i.store.CountMemoryItems(ctx, userID)
	if err != nil {
		return integrations.Fail(err.Error())
	}
	return integrations.OK(map[string]any{"total_items": total, "context": pack})
}

func (i *Integration) search(ctx context.Context, userID int64, args map[string]any) integrations.Result {
	query := stringArg(args, "query")
	if query == "" {
		return integrations.Fail("query is required")
	}

	q := store.MemoryQuery{Text: query, Limit: intArg(args, "top_k", 20)}
	if filters, ok := args["filters"].(map[string]any); ok {
		q.Type = stringArg(filters, "type")
		q.Scope = stringArg(filters, "scope")
		if pinned, ok := filters["pinned"].(bool); ok {
			q.PinnedOnly = pinned
		}
	}

	items, err := i.store.SearchMemoryItems(ctx, userID, q)
	if err != nil {
		return integrations.Fail(err.Error())
	}
	return integrations.OK(map[string]any{"count": len(items), "results": itemMaps(items)})
}

func (i *Integration) upsert(ctx context.Context, userID int64, args map[string]any) integrations.Result {
	title := stringArg(args, "title")
	if title == "" {
		return integrations.Fail("title is required")
	}

	eval := EvaluateWrite(candidateFromArgs(args))
	if !eval.Allow {
		return integrations.Result{Success: false, Data: eval, Error: "Write rejected: " + eval.ReasonCode}
	}

	source := jsonArg(args, "source_json")
	if source == "" {
		raw, _ := json.Marshal(map[string]string{
			"tool":      "mcp",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		source = string(raw)
	}

	pinned, _ := args["pinned"].(bool)
	confidence := 1.0
	if f, ok := args["confidence"].(float64); ok {
		confidence = f
	}

	item, err := i.store.UpsertMemoryItem(ctx, &store.MemoryItem{
		UserID:      userID,
		Type:        eval.Type,
		Scope:       stringArgDefault(args, "scope", "global"),
		Title:       title,
		ValueJSON:   jsonArg(args, "value_json"),
		TagsJSON:    jsonArg(args, "tags_json"),
		Pinned:      pinned,
		TTLDays:     eval.TTLDays,
		Sensitivity: eval.Sensitivity,
		Confidence:  confidence,
		SourceJSON:  source,
	})
	if err != nil {
		return integrations.Fail(err.Error())
	}
	return integrations.OK(map[string]any{"item": itemMap(item), "evaluation": eval})
}

func (i *Integration) delete(ctx context.Context, userID int64, args map[string]any) integrations.Result {
	id, title := stringArg(args, "id"), stringArg(args, "title")
	if id == "" && title == "" {
		return integrations.Fail("provide 'id' or 'title' to delete")
	}

	var err error
	if id != "" {
		err = i.store.DeleteMemoryItem(ctx, userID, id)
	}
	if (id == "" || err == store.ErrNotFound) && title != "" {
		err = i.store.DeleteMemoryItemByTitle(ctx, userID, title,
			stringArg(args, "type"), stringArg(args, "scope"))
	}
	if err == store.ErrNotFound {
		return integrations.Fail("item not found; use search or summarize_context to find items first")
	}
	if err != nil {
		return integrations.Fail(err.Error())
	}
	return integrations.OK(map[string]any{"deleted": true})
}

func (i *Integration) pin(ctx context.Context, userID int64, args map[string]any) integrations.Result {
	id := stringArg(args, "id")
	pinned, ok := args["pinned"].(bool)
	if id == "" || !ok {
		return integrations.Fail("id and pinned are required")
	}
	if err := i.store.SetMemoryItemPinned(ctx, userID, id, pinned); err != nil {
		if err == store.ErrNotFound {
			return integrations.Fail("item not found")
		}
		return integrations.Fail(err.Error())
	}
	return integrations.OK(map[string]any{"id": id, "pinned": pinned})
}

func (i *Integration) setTTL(ctx context.Context, userID int64, args map[string]any) integrations.Result {
	id := stringArg(args, "id")
	if id == "" {
		return integrations.Fail("id is required")
	}
	var ttl *int
	if f, ok := args["ttl_days"].(float64); ok {
		n := int(f)
		ttl = &n
	}
	if err := i.store.SetMemoryItemTTL(ctx, userID, id, ttl); err != nil {
		if err == store.ErrNotFound {
			return integrations.Fail("item not found")
		}
		return integrations.Fail(err.Error())
	}
	return integrations.OK(map[string]any{"id": id, "ttl_days": ttl})
}

func candidateFromArgs(args map[string]any) Candidate {
	pinned, _ := args["pinned"].(bool)
	explicit, _ := args["explicit"].(bool)
	return Candidate{
		Title:       stringArg(args, "title"),
		Type:        stringArg(args, "type"),
		ValueJSON:   jsonArg(args, "value_json"),
		Sensitivity: stringArg(args, "sensitivity"),
		Pinned:      pinned,
		Explicit:    explicit,
	}
}

func itemMap(item *store.MemoryItem) map[string]any {
	return map[string]any{
		"id":          item.ID,
		"type":        item.Type,
		"scope":       item.Scope,
		"title":       item.Title,
		"value_json":  item.ValueJSON,
		"tags_json":   item.TagsJSON,
		"pinned":      item.Pinned,
		"ttl_days":    item.TTLDays,
		"sensitivity": item.Sensitivity,
		"confidence":  item.Confidence,
		"version":     item.Version,
		"updated_at":  item.UpdatedAt.Format(time.RFC3339),
	}
}

func itemMaps(items []*store.MemoryItem) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		out = append(out, itemMap(item))
	}
	return out
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func stringArgDefault(args map[string]any, key, def string) string {
	if s, ok := args[key].(string); ok && s != "" {
		return s
	}
	return def
}

func intArg(args map[string]any, key string, def int) int {
	if f, ok := args[key].(float64); ok {
		return int(f)
	}
	if n, ok := args[key].(int); ok {
		return n
	}
	return def
}

// jsonArg normalizes a free-form argument to a JSON string: strings pass
// through, everything else is marshaled.
func jsonArg(args map[string]any, key string) string {
	v, ok := args[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(raw)
}
