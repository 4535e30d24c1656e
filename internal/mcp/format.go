// ABOUTME: Tool-name format negotiation between dotted and flat encodings.
// ABOUTME: Flat replaces dots with double underscores for picky MCP clients.

package mcp

import (
	"net/http"
	"strings"
)

// ToolFormat selects how tool names appear on the wire.
type ToolFormat string

const (
	FormatDot  ToolFormat = "dot"
	FormatFlat ToolFormat = "flat"
)

// resolveToolFormat picks the tool-name format for a request: the explicit
// X-MCP-Tool-Format header wins; otherwise Claude-identifying user agents get
// flat names, everyone else dotted.
func resolveToolFormat(r *http.Request) ToolFormat {
	switch strings.ToLower(r.Header.Get("X-MCP-Tool-Format")) {
	case "flat":
		return FormatFlat
	case "dot":
		return FormatDot
	}
	if strings.Contains(strings.ToLower(r.Header.Get("User-Agent")), "claude") {
		return FormatFlat
	}
	return FormatDot
}

// EncodeToolName converts a dotted tool name to the requested wire format.
// Registered tool names never contain "__", which keeps the mapping bijective.
func EncodeToolName(name string, format ToolFormat) string {
	if format == FormatFlat {
		return strings.ReplaceAll(name, ".", "__")
	}
	return name
}

// DecodeToolName converts an inbound wire-format name back to dotted form.
func DecodeToolName(name string, format ToolFormat) string {
	if format == FormatFlat {
		return strings.ReplaceAll(name, "__", ".")
	}
	return name
}
