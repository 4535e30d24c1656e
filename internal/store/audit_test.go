// ABOUTME: Tests for the append-only audit log
// ABOUTME: Covers appending, filtering, and listing order

package store

import (
	"context"
	"testing"
)

func TestAppendAndListAudit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := newTestUser(t, store, "audit@example.com")

	entries := []*AuditEntry{
		{UserID: &user.ID, Provider: "slack", Action: "tool_call", ToolName: "slack.post_message", Status: AuditOK},
		{UserID: &user.ID, Provider: "slack", Action: "tool_call", ToolName: "slack.list_channels", Status: AuditError, ErrorText: "channel_not_found"},
		{UserID: &user.ID, Provider: "miro", Action: "connect", Status: AuditOK},
		{Action: "login_failed", Status: AuditError, ErrorText: "bad password"},
	}
	for _, e := range entries {
		if err := store.AppendAudit(ctx, e); err != nil {
			t.Fatalf("AppendAudit failed: %v", err)
		}
		if e.ID == 0 {
			t.Fatal("expected audit entry ID to be assigned")
		}
	}

	all, err := store.ListAudit(ctx, AuditFilter{})
	if err != nil {
		t.Fatalf("ListAudit failed: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("len(all) = %d, want 4", len(all))
	}
	// Newest first.
	if all[0].Action != "login_failed" {
		t.Errorf("first entry action = %q, want login_failed", all[0].Action)
	}
}

func TestListAudit_Filters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	alice := newTestUser(t, store, "alice-audit@example.com")
	bob := newTestUser(t, store, "bob-audit@example.com")

	seed := []*AuditEntry{
		{UserID: &alice.ID, Provider: "slack", Action: "tool_call", Status: AuditOK},
		{UserID: &alice.ID, Provider: "miro", Action: "tool_call", Status: AuditError},
		{UserID: &bob.ID, Provider: "slack", Action: "tool_call", Status: AuditOK},
	}
	for _, e := range seed {
		if err := store.AppendAudit(ctx, e); err != nil {
			t.Fatalf("AppendAudit failed: %v", err)
		}
	}

	byUser, err := store.ListAudit(ctx, AuditFilter{UserID: &alice.ID})
	if err != nil {
		t.Fatalf("ListAudit failed: %v", err)
	}
	if len(byUser) != 2 {
		t.Errorf("user filter: got %d entries, want 2", len(byUser))
	}

	byProvider, err := store.ListAudit(ctx, AuditFilter{Provider: "slack"})
	if err != nil {
		t.Fatalf("ListAudit failed: %v", err)
	}
	if len(byProvider) != 2 {
		t.Errorf("provider filter: got %d entries, want 2", len(byProvider))
	}

	byStatus, err := store.ListAudit(ctx, AuditFilter{UserID: &alice.ID, Status: AuditError})
	if err != nil {
		t.Fatalf("ListAudit failed: %v", err)
	}
	if len(byStatus) != 1 || byStatus[0].Provider != "miro" {
		t.Errorf("status filter: got %+v, want one miro error", byStatus)
	}
}

func TestListAudit_Limit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := newTestUser(t, store, "many@example.com")

	for i := 0; i < 10; i++ {
		if err := store.AppendAudit(ctx, &AuditEntry{UserID: &user.ID, Action: "tool_call", Status: AuditOK}); err != nil {
			t.Fatalf("AppendAudit failed: %v", err)
		}
	}

	limited, err := store.ListAudit(ctx, AuditFilter{Limit: 3})
	if err != nil {
		t.Fatalf("ListAudit failed: %v", err)
	}
	if len(limited) != 3 {
		t.Errorf("len(limited) = %d, want 3", len(limited))
	}
}
