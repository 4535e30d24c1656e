// ABOUTME: Store methods for refresh tokens, personal access tokens, and API clients
// ABOUTME: All token material is stored as SHA-256 hashes, never plaintext

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CreateRefreshToken records a new refresh token hash for a user.
func (s *SQLiteStore) CreateRefreshToken(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (user_id, token_hash, expires_at, created_at)
		VALUES (?, ?, ?, ?)`,
		userID, tokenHash, expiresAt.UTC().Format(time.RFC3339), nowRFC3339())
	if err != nil {
		return fmt.Errorf("inserting refresh token: %w", err)
	}
	return nil
}

// GetRefreshToken looks up a refresh token by hash. Revoked and expired
// tokens return ErrNotFound.
func (s *SQLiteStore) GetRefreshToken(ctx context.Context, tokenHash string) (*RefreshToken, error) {
	var rt RefreshToken
	var expiresAt, createdAt string
	var revokedAt sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, token_hash, expires_at, revoked_at, created_at
		FROM refresh_tokens WHERE token_hash = ?`, tokenHash).
		Scan(&rt.ID, &rt.UserID, &rt.TokenHash, &expiresAt, &revokedAt, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying refresh token: %w", err)
	}

	rt.ExpiresAt = parseTime(expiresAt, "refresh_tokens.expires_at")
	rt.RevokedAt = parseTimePtr(revokedAt, "refresh_tokens.revoked_at")
	rt.CreatedAt = parseTime(createdAt, "refresh_tokens.created_at")

	if rt.RevokedAt != nil || time.Now().After(rt.ExpiresAt) {
		return nil, ErrNotFound
	}
	return &rt, nil
}

// RevokeRefreshToken marks a refresh token revoked. Revoking an unknown token
// is a no-op.
func (s *SQLiteStore) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = ? WHERE token_hash = ? AND revoked_at IS NULL`,
		nowRFC3339(), tokenHash)
	if err != nil {
		return fmt.Errorf("revoking refresh token: %w", err)
	}
	return nil
}

// RevokeUserRefreshTokens revokes all of a user's outstanding refresh tokens.
func (s *SQLiteStore) RevokeUserRefreshTokens(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = ? WHERE user_id = ? AND revoked_at IS NULL`,
		nowRFC3339(), userID)
	if err != nil {
		return fmt.Errorf("revoking user refresh tokens: %w", err)
	}
	return nil
}

// CreatePersonalAccessToken stores a new PAT hash.
func (s *SQLiteStore) CreatePersonalAccessToken(ctx context.Context, pat *PersonalAccessToken) error {
	if pat.CreatedAt.IsZero() {
		pat.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO personal_access_tokens (user_id, token_hash, name, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		pat.UserID, pat.TokenHash, nullString(pat.Name),
		pat.ExpiresAt.UTC().Format(time.RFC3339),
		pat.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("inserting personal access token: %w", err)
	}
	pat.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting token id: %w", err)
	}
	return nil
}

// GetPersonalAccessToken looks up a PAT by hash and touches its last_used_at.
// Expired tokens return ErrNotFound.
func (s *SQLiteStore) GetPersonalAccessToken(ctx context.Context, tokenHash string) (*PersonalAccessToken, error) {
	var pat PersonalAccessToken
	var name, lastUsedAt sql.NullString
	var expiresAt, createdAt string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, token_hash, name, expires_at, last_used_at, created_at
		FROM personal_access_tokens WHERE token_hash = ?`, tokenHash).
		Scan(&pat.ID, &pat.UserID, &pat.TokenHash, &name, &expiresAt, &lastUsedAt, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying personal access token: %w", err)
	}

	pat.Name = name.String
	pat.ExpiresAt = parseTime(expiresAt, "personal_access_tokens.expires_at")
	pat.LastUsedAt = parseTimePtr(lastUsedAt, "personal_access_tokens.last_used_at")
	pat.CreatedAt = parseTime(createdAt, "personal_access_tokens.created_at")

	if time.Now().After(pat.ExpiresAt) {
		return nil, ErrNotFound
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE personal_access_tokens SET last_used_at = ? WHERE id = ?`,
		nowRFC3339(), pat.ID); err != nil {
		s.logger.Warn("failed to touch personal access token", "id", pat.ID, "error", err)
	}
	return &pat, nil
}

// ListPersonalAccessTokens returns a user's PATs, newest first.
func (s *SQLiteStore) ListPersonalAccessTokens(ctx context.Context, userID int64) ([]*PersonalAccessToken, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, token_hash, name, expires_at, last_used_at, created_at
		FROM personal_access_tokens WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying personal access tokens: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var pats []*PersonalAccessToken
	for rows.Next() {
		var pat PersonalAccessToken
		var name, lastUsedAt sql.NullString
		var expiresAt, createdAt string
		if err := rows.Scan(&pat.ID, &pat.UserID, &pat.TokenHash, &name, &expiresAt, &lastUsedAt, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning personal access token: %w", err)
		}
		pat.Name = name.String
		pat.ExpiresAt = parseTime(expiresAt, "personal_access_tokens.expires_at")
		pat.LastUsedAt = parseTimePtr(lastUsedAt, "personal_access_tokens.last_used_at")
		pat.CreatedAt = parseTime(createdAt, "personal_access_tokens.created_at")
		pats = append(pats, &pat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating personal access tokens: %w", err)
	}
	return pats, nil
}

// DeletePersonalAccessToken removes one of a user's PATs.
func (s *SQLiteStore) DeletePersonalAccessToken(ctx context.Context, userID, tokenID int64) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM personal_access_tokens WHERE id = ? AND user_id = ?`, tokenID, userID)
	if err != nil {
		return fmt.Errorf("deleting personal access token: %w", err)
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

// CreateAPIClient stores a new client_credentials pair. The secret arrives
// pre-hashed; the encrypted copy supports the owner-facing reveal.
func (s *SQLiteStore) CreateAPIClient(ctx context.Context, client *APIClient, plainSecret string) error {
	if client.CreatedAt.IsZero() {
		client.CreatedAt = time.Now().UTC()
	}
	secretEnc, err := s.cipher.Encrypt(plainSecret)
	if err != nil {
		return fmt.Errorf("encrypting client secret: %w", err)
	}
	client.ClientSecretEnc = secretEnc

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO api_clients (user_id, client_id, client_secret_hash, client_secret_enc, name, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, 1, ?)`,
		client.UserID, client.ClientID, client.ClientSecretHash, secretEnc,
		nullString(client.Name), client.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("inserting api client: %w", err)
	}
	client.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting api client id: %w", err)
	}
	client.IsActive = true
	return nil
}

// GetAPIClient looks up an active API client by its public client_id.
func (s *SQLiteStore) GetAPIClient(ctx context.Context, clientID string) (*APIClient, error) {
	var c APIClient
	var name, secretEnc, lastUsedAt sql.NullString
	var isActive int
	var createdAt string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, client_id, client_secret_hash, client_secret_enc, name, is_active, last_used_at, created_at
		FROM api_clients WHERE client_id = ? AND is_active = 1`, clientID).
		Scan(&c.ID, &c.UserID, &c.ClientID, &c.ClientSecretHash, &secretEnc, &name, &isActive, &lastUsedAt, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying api client: %w", err)
	}

	c.ClientSecretEnc = secretEnc.String
	c.Name = name.String
	c.IsActive = isActive != 0
	c.LastUsedAt = parseTimePtr(lastUsedAt, "api_clients.last_used_at")
	c.CreatedAt = parseTime(createdAt, "api_clients.created_at")
	return &c, nil
}

// ListAPIClients returns a user's API clients, newest first.
func (s *SQLiteStore) ListAPIClients(ctx context.Context, userID int64) ([]*APIClient, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, client_id, client_secret_hash, client_secret_enc, name, is_active, last_used_at, created_at
		FROM api_clients WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying api clients: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var clients []*APIClient
	for rows.Next() {
		var c APIClient
		var name, secretEnc, lastUsedAt sql.NullString
		var isActive int
		var createdAt string
		if err := rows.Scan(&c.ID, &c.UserID, &c.ClientID, &c.ClientSecretHash, &secretEnc, &name, &isActive, &lastUsedAt, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning api client: %w", err)
		}
		c.ClientSecretEnc = secretEnc.String
		c.Name = name.String
		c.IsActive = isActive != 0
		c.LastUsedAt = parseTimePtr(lastUsedAt, "api_clients.last_used_at")
		c.CreatedAt = parseTime(createdAt, "api_clients.created_at")
		clients = append(clients, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating api clients: %w", err)
	}
	return clients, nil
}

// TouchAPIClient records a successful client_credentials authentication.
func (s *SQLiteStore) TouchAPIClient(ctx context.Context, id int64) {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE api_clients SET last_used_at = ? WHERE id = ?`, nowRFC3339(), id); err != nil {
		s.logger.Warn("failed to touch api client", "id", id, "error", err)
	}
}

// DecryptAPIClientSecret returns the client secret in plaintext for the
// owner-facing reveal endpoint.
func (s *SQLiteStore) DecryptAPIClientSecret(client *APIClient) (string, error) {
	if client.ClientSecretEnc == "" {
		return "", nil
	}
	return s.cipher.Decrypt(client.ClientSecretEnc)
}

// DeactivateAPIClient disables a user's API client.
func (s *SQLiteStore) DeactivateAPIClient(ctx context.Context, userID, id int64) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE api_clients SET is_active = 0 WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("deactivating api client: %w", err)
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
