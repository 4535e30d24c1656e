// ABOUTME: Tests for SQLite store setup and user account methods
// ABOUTME: Covers schema creation, signup flow states, and lookups

package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Vangardo/mcp-hub-sub000/internal/crypto"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	cipher, err := crypto.NewCipher("test-master-key")
	if err != nil {
		t.Fatalf("NewCipher failed: %v", err)
	}

	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := NewSQLiteStore(dbPath, cipher)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestUser(t *testing.T, store *SQLiteStore, email string) *User {
	t.Helper()
	user := &User{
		Email:        email,
		PasswordHash: "hash",
		Role:         RoleUser,
		IsActive:     true,
		Status:       UserStatusApproved,
	}
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return user
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	cipher, err := crypto.NewCipher("key")
	if err != nil {
		t.Fatalf("NewCipher failed: %v", err)
	}

	dbPath := filepath.Join(t.TempDir(), "subdir", "nested", "test.db")
	store, err := NewSQLiteStore(dbPath, cipher)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created in nested directory")
	}
}

func TestCreateAndGetUser(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := newTestUser(t, store, "alice@example.com")
	if user.ID == 0 {
		t.Fatal("expected user ID to be assigned")
	}

	got, err := store.GetUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got.Email != "alice@example.com" {
		t.Errorf("email = %q, want alice@example.com", got.Email)
	}
	if got.Status != UserStatusApproved {
		t.Errorf("status = %q, want approved", got.Status)
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	newTestUser(t, store, "dup@example.com")

	err := store.CreateUser(ctx, &User{Email: "dup@example.com", PasswordHash: "h", IsActive: true})
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Errorf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestCreateUser_Defaults(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := &User{Email: "new@example.com", PasswordHash: "h", IsActive: true}
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	got, err := store.GetUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got.Role != RoleUser {
		t.Errorf("role = %q, want user", got.Role)
	}
	if got.Status != UserStatusPending {
		t.Errorf("status = %q, want pending", got.Status)
	}
}

func TestGetUserByEmail_InactiveInvisible(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := newTestUser(t, store, "gone@example.com")
	if err := store.SetUserActive(ctx, user.ID, false); err != nil {
		t.Fatalf("SetUserActive failed: %v", err)
	}

	_, err := store.GetUserByEmail(ctx, "gone@example.com")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for inactive user, got %v", err)
	}

	// Still reachable by ID for admin views.
	if _, err := store.GetUser(ctx, user.ID); err != nil {
		t.Errorf("GetUser by id failed: %v", err)
	}
}

func TestSetUserStatus_RejectionReason(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := newTestUser(t, store, "pending@example.com")

	if err := store.SetUserStatus(ctx, user.ID, UserStatusRejected, "no seats left"); err != nil {
		t.Fatalf("SetUserStatus failed: %v", err)
	}
	got, err := store.GetUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got.RejectionReason != "no seats left" {
		t.Errorf("rejection reason = %q, want 'no seats left'", got.RejectionReason)
	}

	// Approving clears the reason.
	if err := store.SetUserStatus(ctx, user.ID, UserStatusApproved, "stale"); err != nil {
		t.Fatalf("SetUserStatus failed: %v", err)
	}
	got, err = store.GetUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got.RejectionReason != "" {
		t.Errorf("rejection reason = %q, want empty after approval", got.RejectionReason)
	}
}

func TestUpdateUser_NotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SetUserRole(ctx, 9999, RoleAdmin); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListUsers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	newTestUser(t, store, "a@example.com")
	newTestUser(t, store, "b@example.com")

	users, err := store.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(users) != 2 {
		t.Errorf("len(users) = %d, want 2", len(users))
	}
}
