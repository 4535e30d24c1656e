// ABOUTME: Package doc for the MCP protocol layer.
// ABOUTME: Explains the hub-tool scoping model and the transport contract.

// Package mcp implements the gateway's MCP-facing JSON-RPC 2.0 surface.
//
// Transport: POST /mcp and POST /mcp/messages accept one JSON-RPC message per
// request; GET /mcp serves an SSE stream that advertises the messages
// endpoint and keeps the connection alive with periodic comments. Bearer auth
// is enforced outside this package, so a missing token is a plain 401 before
// any JSON-RPC parsing.
//
// tools/list deliberately returns only three hub meta-tools
// (hub.integrations.list, hub.tools.list, hub.tools.call) instead of every
// provider's full catalog; assistants drill down lazily. Under an
// X-MCP-Provider scope header the surface narrows to that single provider,
// which lets one deployment serve per-provider MCP URLs.
//
// Tool-level failures are returned as isError text content inside successful
// JSON-RPC envelopes (MCP convention); only protocol failures (unknown
// method, malformed params) use JSON-RPC error objects.
package mcp
