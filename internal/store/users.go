// ABOUTME: User account store methods covering signup, approval, and lifecycle
// ABOUTME: Accounts are soft-disabled via is_active/status, never hard-deleted

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const userColumns = `id, email, password_hash, role, is_active, status, rejection_reason, created_at, updated_at`

// CreateUser inserts a new user account.
// Returns ErrDuplicateEmail if the email is already registered.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *User) error {
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	if user.Role == "" {
		user.Role = RoleUser
	}
	if user.Status == "" {
		user.Status = UserStatusPending
	}

	query := `
		INSERT INTO users (email, password_hash, role, is_active, status, rejection_reason, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := s.db.ExecContext(ctx, query,
		user.Email,
		user.PasswordHash,
		string(user.Role),
		boolToInt(user.IsActive),
		string(user.Status),
		nullString(user.RejectionReason),
		user.CreatedAt.Format(time.RFC3339),
		user.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	user.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting user id: %w", err)
	}

	s.logger.Debug("created user", "id", user.ID, "email", user.Email, "status", user.Status)
	return nil
}

// GetUser retrieves a user by ID. Returns ErrNotFound if absent.
func (s *SQLiteStore) GetUser(ctx context.Context, id int64) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// GetUserByEmail retrieves an active user by email. Returns ErrNotFound if
// absent or deactivated.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ? AND is_active = 1`, email)
	return scanUser(row)
}

// ListUsers returns all users, newest first.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}
	return users, nil
}

// SetUserStatus updates a user's approval status. The rejection reason is
// cleared unless the new status is rejected.
func (s *SQLiteStore) SetUserStatus(ctx context.Context, id int64, status UserStatus, reason string) error {
	if status != UserStatusRejected {
		reason = ""
	}
	return s.updateUser(ctx, id,
		`UPDATE users SET status = ?, rejection_reason = ?, updated_at = ? WHERE id = ?`,
		string(status), nullString(reason), nowRFC3339(), id)
}

// SetUserRole updates a user's role.
func (s *SQLiteStore) SetUserRole(ctx context.Context, id int64, role UserRole) error {
	return s.updateUser(ctx, id,
		`UPDATE users SET role = ?, updated_at = ? WHERE id = ?`,
		string(role), nowRFC3339(), id)
}

// SetUserActive toggles the is_active flag.
func (s *SQLiteStore) SetUserActive(ctx context.Context, id int64, active bool) error {
	return s.updateUser(ctx, id,
		`UPDATE users SET is_active = ?, updated_at = ? WHERE id = ?`,
		boolToInt(active), nowRFC3339(), id)
}

// UpdateUserPassword replaces the stored password hash.
func (s *SQLiteStore) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	return s.updateUser(ctx, id,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, nowRFC3339(), id)
}

func (s *SQLiteStore) updateUser(ctx context.Context, id int64, query string, args ...any) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating user: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	s.logger.Debug("updated user", "id", id)
	return nil
}

func scanUser(scanner interface{ Scan(dest ...any) error }) (*User, error) {
	var u User
	var role, status, createdAt, updatedAt string
	var isActive int
	var rejectionReason sql.NullString

	err := scanner.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&role,
		&isActive,
		&status,
		&rejectionReason,
		&createdAt,
		&updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning user: %w", err)
	}

	u.Role = UserRole(role)
	u.Status = UserStatus(status)
	u.IsActive = isActive != 0
	if rejectionReason.Valid {
		u.RejectionReason = rejectionReason.String
	}
	u.CreatedAt = parseTime(createdAt, "users.created_at")
	u.UpdatedAt = parseTime(updatedAt, "users.updated_at")
	return &u, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}
