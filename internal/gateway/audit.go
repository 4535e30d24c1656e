// ABOUTME: Best-effort audit sink for gateway actions.
// ABOUTME: Recording never fails the caller; failures are logged and dropped.

package gateway

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Vangardo/mcp-hub-sub000/internal/integrations"
	"github.com/Vangardo/mcp-hub-sub000/internal/store"
)

// AuditStore persists audit entries.
type AuditStore interface {
	AppendAudit(ctx context.Context, entry *store.AuditEntry) error
}

// AuditSink writes audit entries without ever propagating errors or panics
// back to the request path.
type AuditSink struct {
	store  AuditStore
	logger *slog.Logger
}

func NewAuditSink(st AuditStore) *AuditSink {
	return &AuditSink{
		store:  st,
		logger: slog.Default().With("component", "audit"),
	}
}

// RecordToolCall audits one dispatched tool call.
func (a *AuditSink) RecordToolCall(ctx context.Context, userID int64, provider, toolName string, args map[string]any, result integrations.Result) {
	entry := &store.AuditEntry{
		UserID:   &userID,
		Provider: provider,
		Action:   "tool_call",
		ToolName: toolName,
		Status:   store.AuditOK,
	}
	if args != nil {
		if raw, err := json.Marshal(args); err == nil {
			entry.RequestJSON = string(raw)
		}
	}
	if result.Success {
		if result.Data != nil {
			if raw, err := json.Marshal(result.Data); err == nil {
				entry.ResponseJSON = string(raw)
			}
		}
	} else {
		entry.Status = store.AuditError
		entry.ErrorText = result.Error
	}
	a.Record(ctx, entry)
}

// Record appends an audit entry, swallowing any failure.
func (a *AuditSink) Record(ctx context.Context, entry *store.AuditEntry) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Warn("audit record panicked", "panic", r)
		}
	}()
	if err := a.store.AppendAudit(ctx, entry); err != nil {
		a.logger.Warn("audit record failed",
			"action", entry.Action, "provider", entry.Provider, "error", err)
	}
}
