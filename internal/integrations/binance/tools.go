// ABOUTME: Binance tool catalog
// ABOUTME: Tool names are short; the provider prefix is added at the gateway

package binance

import (
	"encoding/json"

	"github.com/Vangardo/mcp-hub-sub000/internal/integrations"
)

var toolDefs = []integrations.ToolDefinition{
	{
		Name: "account.balance",
		Description: "Get your spot wallet balances.\n" +
			"Shows all non-zero assets with free and locked amounts.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {}}`),
	},
	{
		Name: "ticker.price",
		Description: "Get the latest price for a trading pair.\n" +
			"Omit symbol to get prices for all pairs.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"symbol": {"type": "string", "description": "Trading pair, e.g. BTCUSDT. Omit for all pairs."}
			}
		}`),
	},
}
