// ABOUTME: Telegram integration: messaging through an authorized user session.
// ABOUTME: Session auth type; connections are created by direct session submit.

package telegram

import (
	"context"

	"github.com/Vangardo/mcp-hub-sub000/internal/integrations"
	"github.com/Vangardo/mcp-hub-sub000/internal/store"
)

type Integration struct {
	client SessionClient
}

// New wires a session backend. A nil client leaves the integration
// unconfigured (visible in listings but unusable).
func New(client SessionClient) *Integration {
	return &Integration{client: client}
}

func (i *Integration) Name() string        { return "telegram" }
func (i *Integration) DisplayName() string { return "Telegram" }
func (i *Integration) Description() string {
	return "Telegram messaging via an authorized user session"
}
func (i *Integration) AuthType() store.AuthType { return store.AuthTypeSession }
func (i *Integration) IsConfigured() bool       { return i.client != nil }

func (i *Integration) Tools() []integrations.ToolDefinition { return toolDefs }

func (i *Integration) Execute(ctx context.Context, toolName string, args map[string]any, token, meta string) integrations.Result {
	if i.client == nil {
		return integrations.Fail("telegram is not configured")
	}
	if token == "" {
		return integrations.Fail("telegram session is missing; reconnect telegram")
	}

	switch toolName {
	case "dialogs.list":
		dialogs, err := i.client.Dialogs(ctx, token, intArg(args, "limit", 50))
		return wrap(map[string]any{"dialogs": dialogs}, err)

	case "messages.send":
		peer, text := stringArg(args, "peer"), stringArg(args, "text")
		if peer == "" || text == "" {
			return integrations.Fail("peer and text are required")
		}
		msg, err := i.client.SendMessage(ctx, token, peer, text)
		return wrap(msg, err)

	case "messages.search":
		query := stringArg(args, "query")
		if query == "" {
			return integrations.Fail("query is required")
		}
		msgs, err := i.client.SearchMessages(ctx, token, stringArg(args, "peer"), query, intArg(args, "limit", 20))
		return wrap(map[string]any{"messages": msgs}, err)

	case "messages.history":
		peer := stringArg(args, "peer")
		if peer == "" {
			return integrations.Fail("peer is required")
		}
		msgs, err := i.client.History(ctx, token, peer, intArg(args, "limit", 20), int64Arg(args, "before_id"))
		return wrap(map[string]any{"messages": msgs}, err)

	default:
		return integrations.Fail("unknown telegram tool: " + toolName)
	}
}

func wrap(data any, err error) integrations.Result {
	if err != nil {
		return integrations.Fail(err.Error())
	}
	return integrations.OK(data)
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
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

func int64Arg(args map[string]any, key string) int64 {
	if f, ok := args[key].(float64); ok {
		return int64(f)
	}
	if n, ok := args[key].(int); ok {
		return int64(n)
	}
	return 0
}
