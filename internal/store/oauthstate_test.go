// ABOUTME: Tests for OAuth state save/consume semantics
// ABOUTME: Covers single-use consumption, TTL expiry, and per-provider replacement

package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestOAuthState_ConsumeOnce(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := newTestUser(t, store, "state@example.com")

	if err := store.SaveOAuthState(ctx, "state-abc", user.ID, "slack"); err != nil {
		t.Fatalf("SaveOAuthState failed: %v", err)
	}

	st, err := store.ConsumeOAuthState(ctx, "state-abc")
	if err != nil {
		t.Fatalf("ConsumeOAuthState failed: %v", err)
	}
	if st.UserID != user.ID || st.Provider != "slack" {
		t.Errorf("state = %+v, want user %d provider slack", st, user.ID)
	}

	// Second consumption must fail.
	if _, err := store.ConsumeOAuthState(ctx, "state-abc"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on replay, got %v", err)
	}
}

func TestOAuthState_UnknownState(t *testing.T) {
	store := newTestStore(t)

	_, err := store.ConsumeOAuthState(context.Background(), "never-saved")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestOAuthState_Expired(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := newTestUser(t, store, "expired@example.com")

	if err := store.SaveOAuthState(ctx, "state-old", user.ID, "miro"); err != nil {
		t.Fatalf("SaveOAuthState failed: %v", err)
	}

	// Backdate past the TTL.
	old := time.Now().UTC().Add(-OAuthStateTTL - time.Minute).Format(time.RFC3339)
	if _, err := store.db.Exec(`UPDATE oauth_states SET created_at = ? WHERE state = ?`, old, "state-old"); err != nil {
		t.Fatalf("backdating state failed: %v", err)
	}

	if _, err := store.ConsumeOAuthState(ctx, "state-old"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for expired state, got %v", err)
	}
}

func TestOAuthState_ReplacesPrevious(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := newTestUser(t, store, "retry@example.com")

	if err := store.SaveOAuthState(ctx, "first", user.ID, "figma"); err != nil {
		t.Fatalf("SaveOAuthState failed: %v", err)
	}
	if err := store.SaveOAuthState(ctx, "second", user.ID, "figma"); err != nil {
		t.Fatalf("second SaveOAuthState failed: %v", err)
	}

	// The abandoned first flow is gone; the retry works.
	if _, err := store.ConsumeOAuthState(ctx, "first"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected first state to be replaced, got %v", err)
	}
	if _, err := store.ConsumeOAuthState(ctx, "second"); err != nil {
		t.Errorf("ConsumeOAuthState(second) failed: %v", err)
	}
}
