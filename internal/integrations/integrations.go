// ABOUTME: Integration interface and shared types for provider tool execution
// ABOUTME: OAuth-capable providers additionally implement OAuthIntegration

package integrations

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Vangardo/mcp-hub-sub000/internal/store"
)

// ToolDefinition describes one callable tool. Names are short (no provider
// prefix) and must not contain "__", which is reserved for the flat tool-name
// encoding on the wire.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// Result is the outcome of a tool execution. Provider-side failures are
// carried in Error, not as Go errors: a tool call that reaches the provider
// and fails is data for the model, not a transport fault.
type Result struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// OK wraps a successful payload.
func OK(data any) Result {
	return Result{Success: true, Data: data}
}

// Fail wraps a provider-side failure message.
func Fail(msg string) Result {
	return Result{Success: false, Error: msg}
}

// Integration is one provider exposed through the hub.
type Integration interface {
	// Name is the stable provider identifier used in tool names and routes.
	Name() string
	DisplayName() string
	Description() string
	AuthType() store.AuthType
	// IsConfigured reports whether the hub has the provider-level credentials
	// (client id/secret or equivalent) needed to use this integration.
	IsConfigured() bool
	Tools() []ToolDefinition
	// Execute runs one tool with the user's resolved credential. The meta
	// argument carries the connection's meta JSON (team ids, account names).
	Execute(ctx context.Context, toolName string, args map[string]any, token, meta string) Result
}

// OAuthToken is the credential triple returned by provider OAuth endpoints.
type OAuthToken struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
	Scope        string
	// MetaJSON carries provider-specific connection metadata captured during
	// the exchange (workspace ids, user handles).
	MetaJSON string
}

// OAuthIntegration is implemented by integrations whose connections are
// established and refreshed via OAuth 2.0. Whether a provider supports
// refresh is a capability of its type: callers type-assert for this
// interface instead of consulting a tag.
type OAuthIntegration interface {
	Integration
	AuthURL(state, redirectURI string) string
	ExchangeCode(ctx context.Context, code, redirectURI string) (*OAuthToken, error)
	RefreshToken(ctx context.Context, refreshToken string) (*OAuthToken, error)
}
