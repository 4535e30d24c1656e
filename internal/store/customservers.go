// ABOUTME: Store methods for user-registered external MCP servers
// ABOUTME: Auth secrets for custom servers are encrypted like connection secrets

package store

import (
	"context"
	"database/sql"
	"fmt"
)

const customServerColumns = `id, user_id, name, url, auth_type, auth_secret_enc,
	auth_header_name, is_enabled, created_at, updated_at`

// CreateCustomServer registers a new external MCP server for a user. The
// plaintext auth secret is encrypted before storage.
func (s *SQLiteStore) CreateCustomServer(ctx context.Context, srv *CustomServer, plainSecret string) error {
	var secretEnc any
	if plainSecret != "" {
		enc, err := s.cipher.Encrypt(plainSecret)
		if err != nil {
			return fmt.Errorf("encrypting server secret: %w", err)
		}
		srv.AuthSecretEnc = enc
		secretEnc = enc
	}
	if srv.AuthType == "" {
		srv.AuthType = "none"
	}

	now := nowRFC3339()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO custom_servers (user_id, name, url, auth_type, auth_secret_enc, auth_header_name, is_enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		srv.UserID, srv.Name, srv.URL, srv.AuthType, secretEnc,
		nullString(srv.AuthHeaderName), now, now)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("server name %q: %w", srv.Name, ErrDuplicate)
		}
		return fmt.Errorf("inserting custom server: %w", err)
	}

	srv.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting custom server id: %w", err)
	}
	srv.IsEnabled = true
	s.logger.Info("custom server registered", "user_id", srv.UserID, "name", srv.Name)
	return nil
}

// GetCustomServer retrieves one of a user's custom servers by name.
func (s *SQLiteStore) GetCustomServer(ctx context.Context, userID int64, name string) (*CustomServer, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+customServerColumns+` FROM custom_servers WHERE user_id = ? AND name = ?`,
		userID, name)
	return scanCustomServer(row)
}

// ListCustomServers returns a user's custom servers ordered by name.
func (s *SQLiteStore) ListCustomServers(ctx context.Context, userID int64) ([]*CustomServer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+customServerColumns+` FROM custom_servers WHERE user_id = ? ORDER BY name`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("querying custom servers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var servers []*CustomServer
	for rows.Next() {
		srv, err := scanCustomServer(rows)
		if err != nil {
			return nil, err
		}
		servers = append(servers, srv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating custom servers: %w", err)
	}
	return servers, nil
}

// SetCustomServerEnabled toggles a custom server without deleting its config.
func (s *SQLiteStore) SetCustomServerEnabled(ctx context.Context, userID int64, name string, enabled bool) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE custom_servers SET is_enabled = ?, updated_at = ? WHERE user_id = ? AND name = ?`,
		boolToInt(enabled), nowRFC3339(), userID, name)
	if err != nil {
		return fmt.Errorf("updating custom server: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCustomServer removes one of a user's custom servers.
func (s *SQLiteStore) DeleteCustomServer(ctx context.Context, userID int64, name string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM custom_servers WHERE user_id = ? AND name = ?`, userID, name)
	if err != nil {
		return fmt.Errorf("deleting custom server: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DecryptCustomServerSecret returns the server's auth secret in plaintext.
func (s *SQLiteStore) DecryptCustomServerSecret(srv *CustomServer) (string, error) {
	if srv.AuthSecretEnc == "" {
		return "", nil
	}
	return s.cipher.Decrypt(srv.AuthSecretEnc)
}

func scanCustomServer(scanner interface{ Scan(dest ...any) error }) (*CustomServer, error) {
	var srv CustomServer
	var secretEnc, headerName sql.NullString
	var isEnabled int
	var createdAt, updatedAt string

	err := scanner.Scan(
		&srv.ID, &srv.UserID, &srv.Name, &srv.URL, &srv.AuthType,
		&secretEnc, &headerName, &isEnabled, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning custom server: %w", err)
	}

	srv.AuthSecretEnc = secretEnc.String
	srv.AuthHeaderName = headerName.String
	srv.IsEnabled = isEnabled != 0
	srv.CreatedAt = parseTime(createdAt, "custom_servers.created_at")
	srv.UpdatedAt = parseTime(updatedAt, "custom_servers.updated_at")
	return &srv, nil
}
