// ABOUTME: Tests for memory item storage
// ABOUTME: Covers key-based upserts with version bumps, search, and deletion

package store

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryItem_UpsertBumpsVersion(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := newTestUser(t, store, "mem@example.com")

	first, err := store.UpsertMemoryItem(ctx, &MemoryItem{
		UserID:    user.ID,
		Title:     "preferred language",
		ValueJSON: `{"text":"Go"}`,
	})
	if err != nil {
		t.Fatalf("UpsertMemoryItem failed: %v", err)
	}
	if first.Version != 1 {
		t.Errorf("version = %d, want 1", first.Version)
	}
	if first.Type != "note" || first.Scope != "global" {
		t.Errorf("defaults not applied: type=%q scope=%q", first.Type, first.Scope)
	}

	second, err := store.UpsertMemoryItem(ctx, &MemoryItem{
		UserID:    user.ID,
		Title:     "preferred language",
		ValueJSON: `{"text":"Go, definitely"}`,
	})
	if err != nil {
		t.Fatalf("second UpsertMemoryItem failed: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("upsert created a new item: %s != %s", second.ID, first.ID)
	}
	if second.Version != 2 {
		t.Errorf("version = %d, want 2", second.Version)
	}
}

func TestMemoryItem_SearchAndPinned(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := newTestUser(t, store, "mem-search@example.com")

	seed := []*MemoryItem{
		{UserID: user.ID, Title: "standup time", ValueJSON: `{"text":"daily at 10:00"}`},
		{UserID: user.ID, Title: "release checklist", ValueJSON: `{"text":"tag then deploy"}`, Pinned: true},
		{UserID: user.ID, Type: "fact", Title: "timezone", ValueJSON: `{"text":"Europe/Madrid"}`},
	}
	for _, item := range seed {
		if _, err := store.UpsertMemoryItem(ctx, item); err != nil {
			t.Fatalf("UpsertMemoryItem failed: %v", err)
		}
	}

	// Text search is case-insensitive across title and value.
	results, err := store.SearchMemoryItems(ctx, user.ID, MemoryQuery{Text: "DEPLOY"})
	if err != nil {
		t.Fatalf("SearchMemoryItems failed: %v", err)
	}
	if len(results) != 1 || results[0].Title != "release checklist" {
		t.Errorf("text search = %+v, want release checklist", results)
	}

	// Pinned items sort first.
	all, err := store.SearchMemoryItems(ctx, user.ID, MemoryQuery{})
	if err != nil {
		t.Fatalf("SearchMemoryItems failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len(all) = %d, want 3", len(all))
	}
	if all[0].Title != "release checklist" {
		t.Errorf("first result = %q, want pinned item first", all[0].Title)
	}

	byType, err := store.SearchMemoryItems(ctx, user.ID, MemoryQuery{Type: "fact"})
	if err != nil {
		t.Fatalf("SearchMemoryItems failed: %v", err)
	}
	if len(byType) != 1 || byType[0].Title != "timezone" {
		t.Errorf("type filter = %+v, want timezone", byType)
	}
}

func TestMemoryItem_UserIsolation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	alice := newTestUser(t, store, "alice-mem@example.com")
	bob := newTestUser(t, store, "bob-mem@example.com")

	item, err := store.UpsertMemoryItem(ctx, &MemoryItem{
		UserID: alice.ID, Title: "secret plan", ValueJSON: `{"text":"ship friday"}`,
	})
	if err != nil {
		t.Fatalf("UpsertMemoryItem failed: %v", err)
	}

	if _, err := store.GetMemoryItem(ctx, bob.ID, item.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound across users, got %v", err)
	}
	if err := store.DeleteMemoryItem(ctx, bob.ID, item.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting another user's item, got %v", err)
	}
	if _, err := store.GetMemoryItem(ctx, alice.ID, item.ID); err != nil {
		t.Errorf("owner GetMemoryItem failed: %v", err)
	}
}

func TestMemoryItem_Delete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := newTestUser(t, store, "mem-del@example.com")

	item, err := store.UpsertMemoryItem(ctx, &MemoryItem{
		UserID: user.ID, Title: "temp", ValueJSON: `{"text":"x"}`,
	})
	if err != nil {
		t.Fatalf("UpsertMemoryItem failed: %v", err)
	}
	if err := store.DeleteMemoryItem(ctx, user.ID, item.ID); err != nil {
		t.Fatalf("DeleteMemoryItem failed: %v", err)
	}
	if _, err := store.GetMemoryItem(ctx, user.ID, item.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}
