// ABOUTME: Provider connection store methods with encrypt-on-write semantics
// ABOUTME: One row per (user, provider); upsert replaces credentials and reconnects

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const connectionColumns = `id, user_id, provider, auth_type, secret_enc, refresh_secret_enc,
	expires_at, scope, meta_json, is_connected, created_at, updated_at`

// UpsertConnection creates or replaces a user's connection to a provider.
// Secrets are encrypted before they touch the database. An existing row for
// the same (user, provider) pair has its credentials replaced and is marked
// connected again.
func (s *SQLiteStore) UpsertConnection(ctx context.Context, up *ConnectionUpsert) (*Connection, error) {
	secretEnc, err := s.cipher.Encrypt(up.Secret)
	if err != nil {
		return nil, fmt.Errorf("encrypting secret: %w", err)
	}

	var refreshEnc any
	if up.RefreshSecret != "" {
		enc, err := s.cipher.Encrypt(up.RefreshSecret)
		if err != nil {
			return nil, fmt.Errorf("encrypting refresh secret: %w", err)
		}
		refreshEnc = enc
	}

	now := nowRFC3339()
	query := `
		INSERT INTO connections (user_id, provider, auth_type, secret_enc, refresh_secret_enc,
			expires_at, scope, meta_json, is_connected, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT(user_id, provider) DO UPDATE SET
			auth_type = excluded.auth_type,
			secret_enc = excluded.secret_enc,
			refresh_secret_enc = excluded.refresh_secret_enc,
			expires_at = excluded.expires_at,
			scope = excluded.scope,
			meta_json = excluded.meta_json,
			is_connected = 1,
			updated_at = excluded.updated_at
	`

	_, err = s.db.ExecContext(ctx, query,
		up.UserID,
		up.Provider,
		string(up.AuthType),
		secretEnc,
		refreshEnc,
		nullTime(up.ExpiresAt),
		nullString(up.Scope),
		nullString(up.MetaJSON),
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("upserting connection: %w", err)
	}

	s.logger.Info("connection upserted", "user_id", up.UserID, "provider", up.Provider, "auth_type", up.AuthType)
	return s.GetConnection(ctx, up.UserID, up.Provider)
}

// UpdateConnectionTokens replaces a connection's credential triple after a
// successful refresh. The refresh secret is kept if the provider did not
// rotate it.
func (s *SQLiteStore) UpdateConnectionTokens(ctx context.Context, userID int64, provider, secret, refreshSecret string, expiresAt *time.Time) error {
	secretEnc, err := s.cipher.Encrypt(secret)
	if err != nil {
		return fmt.Errorf("encrypting secret: %w", err)
	}

	var result sql.Result
	if refreshSecret != "" {
		refreshEnc, err := s.cipher.Encrypt(refreshSecret)
		if err != nil {
			return fmt.Errorf("encrypting refresh secret: %w", err)
		}
		result, err = s.db.ExecContext(ctx, `
			UPDATE connections SET secret_enc = ?, refresh_secret_enc = ?, expires_at = ?, updated_at = ?
			WHERE user_id = ? AND provider = ? AND is_connected = 1`,
			secretEnc, refreshEnc, nullTime(expiresAt), nowRFC3339(), userID, provider)
		if err != nil {
			return fmt.Errorf("updating connection tokens: %w", err)
		}
	} else {
		result, err = s.db.ExecContext(ctx, `
			UPDATE connections SET secret_enc = ?, expires_at = ?, updated_at = ?
			WHERE user_id = ? AND provider = ? AND is_connected = 1`,
			secretEnc, nullTime(expiresAt), nowRFC3339(), userID, provider)
		if err != nil {
			return fmt.Errorf("updating connection tokens: %w", err)
		}
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Info("connection tokens refreshed", "user_id", userID, "provider", provider)
	return nil
}

// GetConnection retrieves a user's connection to a provider.
// Returns ErrNotFound if the user never connected it or has disconnected.
func (s *SQLiteStore) GetConnection(ctx context.Context, userID int64, provider string) (*Connection, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+connectionColumns+` FROM connections
		 WHERE user_id = ? AND provider = ? AND is_connected = 1`,
		userID, provider)
	return scanConnection(row)
}

// ListConnections returns all of a user's connections, ordered by provider.
func (s *SQLiteStore) ListConnections(ctx context.Context, userID int64) ([]*Connection, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+connectionColumns+` FROM connections WHERE user_id = ? ORDER BY provider`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("querying connections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var conns []*Connection
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		conns = append(conns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating connections: %w", err)
	}
	return conns, nil
}

// ListConnectedProviders returns the provider names the user is currently
// connected to.
func (s *SQLiteStore) ListConnectedProviders(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT provider FROM connections WHERE user_id = ? AND is_connected = 1 ORDER BY provider`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("querying connected providers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var providers []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scanning provider: %w", err)
		}
		providers = append(providers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating providers: %w", err)
	}
	return providers, nil
}

// DisconnectProvider deletes the connection row, credentials included.
// Disconnecting a provider that was never connected is a no-op.
func (s *SQLiteStore) DisconnectProvider(ctx context.Context, userID int64, provider string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM connections WHERE user_id = ? AND provider = ?`,
		userID, provider)
	if err != nil {
		return fmt.Errorf("disconnecting provider: %w", err)
	}
	s.logger.Info("provider disconnected", "user_id", userID, "provider", provider)
	return nil
}

// DecryptConnectionSecret returns the connection's access credential in
// plaintext.
func (s *SQLiteStore) DecryptConnectionSecret(conn *Connection) (string, error) {
	if conn.SecretEnc == "" {
		return "", nil
	}
	return s.cipher.Decrypt(conn.SecretEnc)
}

// DecryptConnectionRefreshSecret returns the connection's refresh credential
// in plaintext, or "" if the connection has none.
func (s *SQLiteStore) DecryptConnectionRefreshSecret(conn *Connection) (string, error) {
	if conn.RefreshSecretEnc == "" {
		return "", nil
	}
	return s.cipher.Decrypt(conn.RefreshSecretEnc)
}

func scanConnection(scanner interface{ Scan(dest ...any) error }) (*Connection, error) {
	var c Connection
	var authType, createdAt, updatedAt string
	var refreshEnc, expiresAt, scope, metaJSON sql.NullString
	var isConnected int

	err := scanner.Scan(
		&c.ID,
		&c.UserID,
		&c.Provider,
		&authType,
		&c.SecretEnc,
		&refreshEnc,
		&expiresAt,
		&scope,
		&metaJSON,
		&isConnected,
		&createdAt,
		&updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning connection: %w", err)
	}

	c.AuthType = AuthType(authType)
	if refreshEnc.Valid {
		c.RefreshSecretEnc = refreshEnc.String
	}
	c.ExpiresAt = parseTimePtr(expiresAt, "connections.expires_at")
	if scope.Valid {
		c.Scope = scope.String
	}
	if metaJSON.Valid {
		c.MetaJSON = metaJSON.String
	}
	c.IsConnected = isConnected != 0
	c.CreatedAt = parseTime(createdAt, "connections.created_at")
	c.UpdatedAt = parseTime(updatedAt, "connections.updated_at")
	return &c, nil
}
