// ABOUTME: Single-use OAuth state storage for third-party authorization flows
// ABOUTME: States expire after OAuthStateTTL and are deleted on consumption

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SaveOAuthState records a pending third-party OAuth flow. Any earlier pending
// state for the same user and provider is replaced so an abandoned flow cannot
// block a retry.
func (s *SQLiteStore) SaveOAuthState(ctx context.Context, state string, userID int64, provider string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM oauth_states WHERE user_id = ? AND provider = ?`, userID, provider); err != nil {
		return fmt.Errorf("clearing previous state: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO oauth_states (state, user_id, provider, created_at) VALUES (?, ?, ?, ?)`,
		state, userID, provider, nowRFC3339()); err != nil {
		return fmt.Errorf("saving oauth state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing oauth state: %w", err)
	}

	s.logger.Debug("oauth state saved", "user_id", userID, "provider", provider)
	return nil
}

// ConsumeOAuthState validates and deletes an OAuth state in one step. It
// returns ErrNotFound for unknown, already-used, or expired states.
func (s *SQLiteStore) ConsumeOAuthState(ctx context.Context, state string) (*OAuthState, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var st OAuthState
	var createdAt string
	err = tx.QueryRowContext(ctx,
		`SELECT state, user_id, provider, created_at FROM oauth_states WHERE state = ?`, state).
		Scan(&st.State, &st.UserID, &st.Provider, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("looking up oauth state: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM oauth_states WHERE state = ?`, state); err != nil {
		return nil, fmt.Errorf("deleting oauth state: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing oauth state consumption: %w", err)
	}

	st.CreatedAt = parseTime(createdAt, "oauth_states.created_at")
	if time.Since(st.CreatedAt) > OAuthStateTTL {
		s.logger.Warn("expired oauth state presented", "provider", st.Provider, "user_id", st.UserID)
		return nil, ErrNotFound
	}
	return &st, nil
}

// PurgeExpiredOAuthStates removes states past the TTL. Called opportunistically
// by the connect handlers; a failed purge is not fatal.
func (s *SQLiteStore) PurgeExpiredOAuthStates(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-OAuthStateTTL).Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `DELETE FROM oauth_states WHERE created_at < ?`, cutoff)
	if err != nil {
		return fmt.Errorf("purging oauth states: %w", err)
	}
	return nil
}
