// ABOUTME: Dispatcher routes qualified tool names to integrations,
// ABOUTME: resolving credentials and folding failures into tool results.

package gateway

import (
	"context"
	"errors"
	"strings"

	"github.com/Vangardo/mcp-hub-sub000/internal/integrations"
)

// Dispatcher executes provider-qualified tools ("slack.messages.post") on
// behalf of a user.
type Dispatcher struct {
	registry *integrations.Registry
	resolver *Resolver
	audit    *AuditSink
	custom   CustomServerSource
}

func NewDispatcher(registry *integrations.Registry, resolver *Resolver, audit *AuditSink) *Dispatcher {
	return &Dispatcher{registry: registry, resolver: resolver, audit: audit}
}

// SplitToolName separates a qualified tool name into provider and short tool
// name at the first dot.
func SplitToolName(qualified string) (provider, tool string, ok bool) {
	idx := strings.Index(qualified, ".")
	if idx <= 0 || idx == len(qualified)-1 {
		return "", "", false
	}
	return qualified[:idx], qualified[idx+1:], true
}

// Execute runs one tool call end to end. Provider and credential failures are
// returned as failed Results, never as panics or transport errors.
func (d *Dispatcher) Execute(ctx context.Context, userID int64, toolName string, args map[string]any) integrations.Result {
	provider, shortName, ok := SplitToolName(toolName)
	if !ok {
		return d.record(ctx, userID, "", toolName, args,
			integrations.Fail("invalid tool name format: "+toolName))
	}

	integration, err := d.registry.Get(provider)
	if errors.Is(err, integrations.ErrProviderNotFound) {
		if d.custom != nil {
			return d.record(ctx, userID, provider, toolName, args,
				d.executeCustom(ctx, userID, provider, shortName, args))
		}
		return d.record(ctx, userID, provider, toolName, args,
			integrations.Fail("unknown integration: "+provider))
	}
	if err != nil {
		return d.record(ctx, userID, provider, toolName, args, integrations.Fail(err.Error()))
	}

	token, meta, err := d.resolver.AccessToken(ctx, userID, provider)
	if err != nil {
		return d.record(ctx, userID, provider, toolName, args, integrations.Fail(err.Error()))
	}

	result := integration.Execute(ctx, shortName, args, token, meta)
	return d.record(ctx, userID, provider, toolName, args, result)
}

func (d *Dispatcher) record(ctx context.Context, userID int64, provider, toolName string, args map[string]any, result integrations.Result) integrations.Result {
	if d.audit != nil {
		d.audit.RecordToolCall(ctx, userID, provider, toolName, args, result)
	}
	return result
}
