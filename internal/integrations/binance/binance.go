// ABOUTME: Binance integration: spot account balances and market prices.
// ABOUTME: API-key auth (pat); no OAuth flow, keys never expire.

package binance

import (
	"context"
	"strings"

	"github.com/Vangardo/mcp-hub-sub000/internal/integrations"
	"github.com/Vangardo/mcp-hub-sub000/internal/store"
)

type Integration struct {
	baseURL string
}

func New() *Integration {
	return &Integration{baseURL: defaultBaseURL}
}

func (i *Integration) Name() string        { return "binance" }
func (i *Integration) DisplayName() string { return "Binance" }
func (i *Integration) Description() string {
	return "Cryptocurrency exchange — spot balances & market prices"
}
func (i *Integration) AuthType() store.AuthType { return store.AuthTypePAT }

// IsConfigured is always true: users bring their own API keys, there is no
// admin-level client configuration.
func (i *Integration) IsConfigured() bool { return true }

func (i *Integration) Tools() []integrations.ToolDefinition { return toolDefs }

func (i *Integration) Execute(ctx context.Context, toolName string, args map[string]any, token, meta string) integrations.Result {
	c, err := newClient(token)
	if err != nil {
		return integrations.Fail(err.Error())
	}
	if i.baseURL != "" {
		c.baseURL = i.baseURL
	}

	switch toolName {
	case "account.balance":
		return executeBalance(ctx, c)
	case "ticker.price":
		return executePrice(ctx, c, args)
	default:
		return integrations.Fail("unknown binance tool: " + toolName)
	}
}

func executeBalance(ctx context.Context, c *client) integrations.Result {
	account, err := c.account(ctx)
	if err != nil {
		return integrations.Fail(err.Error())
	}

	// Binance reports every listed asset; keep only non-zero holdings.
	balances, _ := account["balances"].([]any)
	held := make([]any, 0, len(balances))
	for _, b := range balances {
		entry, ok := b.(map[string]any)
		if !ok {
			continue
		}
		if isZeroAmount(entry["free"]) && isZeroAmount(entry["locked"]) {
			continue
		}
		held = append(held, entry)
	}
	return integrations.OK(map[string]any{
		"balances":     held,
		"can_trade":    account["canTrade"],
		"account_type": account["accountType"],
	})
}

func executePrice(ctx context.Context, c *client, args map[string]any) integrations.Result {
	symbol, _ := args["symbol"].(string)
	prices, err := c.price(ctx, strings.ToUpper(symbol))
	if err != nil {
		return integrations.Fail(err.Error())
	}
	return integrations.OK(map[string]any{"prices": prices})
}

func isZeroAmount(v any) bool {
	s, ok := v.(string)
	if !ok {
		return true
	}
	for _, r := range s {
		if r != '0' && r != '.' {
			return false
		}
	}
	return true
}
