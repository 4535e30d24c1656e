// ABOUTME: Custom-server dispatch: tool calls whose provider is not a
// ABOUTME: built-in integration are proxied to a user-registered MCP server.

package gateway

import (
	"context"
	"errors"

	"github.com/Vangardo/mcp-hub-sub000/internal/integrations"
	"github.com/Vangardo/mcp-hub-sub000/internal/integrations/proxy"
	"github.com/Vangardo/mcp-hub-sub000/internal/store"
)

// CustomServerSource looks up a user's registered external MCP servers.
type CustomServerSource interface {
	GetCustomServer(ctx context.Context, userID int64, name string) (*store.CustomServer, error)
	DecryptCustomServerSecret(srv *store.CustomServer) (string, error)
}

// SetCustomServerSource enables proxying to user-registered servers. Without
// a source, unknown providers simply fail.
func (d *Dispatcher) SetCustomServerSource(src CustomServerSource) {
	d.custom = src
}

// executeCustom proxies one tool call to the user's registered server. The
// proxied server's own tool failures come back as content-level errors, which
// are folded into a failed Result here.
func (d *Dispatcher) executeCustom(ctx context.Context, userID int64, provider, shortName string, args map[string]any) integrations.Result {
	srv, err := d.custom.GetCustomServer(ctx, userID, provider)
	if errors.Is(err, store.ErrNotFound) {
		return integrations.Fail("unknown integration: " + provider)
	}
	if err != nil {
		return integrations.Fail(err.Error())
	}
	if !srv.IsEnabled {
		return integrations.Fail("custom server " + provider + " is disabled")
	}

	secret, err := d.custom.DecryptCustomServerSecret(srv)
	if err != nil {
		return integrations.Fail(err.Error())
	}

	client := proxy.NewClient(srv.URL, srv.AuthType, secret, srv.AuthHeaderName)
	data, err := client.CallTool(ctx, shortName, args)
	if err != nil {
		return integrations.Fail(err.Error())
	}
	if isError, _ := data["isError"].(bool); isError {
		return integrations.Fail(contentText(data))
	}
	return integrations.OK(data)
}

// contentText pulls the first text block out of an MCP content payload.
// Proxy-synthesized errors carry typed maps, decoded JSON carries []any.
func contentText(data map[string]any) string {
	switch content := data["content"].(type) {
	case []any:
		for _, item := range content {
			if m, ok := item.(map[string]any); ok {
				if text, ok := m["text"].(string); ok {
					return text
				}
			}
		}
	case []map[string]any:
		for _, m := range content {
			if text, ok := m["text"].(string); ok {
				return text
			}
		}
	}
	return "tool call failed"
}
