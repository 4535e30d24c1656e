// ABOUTME: Resolver produces a usable access token for a user+provider pair,
// ABOUTME: transparently refreshing stale OAuth tokens before handing them out.

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/Vangardo/mcp-hub-sub000/internal/integrations"
	"github.com/Vangardo/mcp-hub-sub000/internal/store"
)

// Resolver errors
var (
	// ErrNoConnection means the user has not connected this provider
	ErrNoConnection = errors.New("no connection found")

	// ErrNoRefreshToken means the access token expired and cannot be renewed
	ErrNoRefreshToken = errors.New("access token expired and no refresh token available")
)

// DefaultRefreshMargin is how long before expiry a token counts as stale.
const DefaultRefreshMargin = 5 * time.Minute

// ConnectionStore provides access to provider connections and their secrets.
type ConnectionStore interface {
	GetConnection(ctx context.Context, userID int64, provider string) (*store.Connection, error)
	DecryptConnectionSecret(conn *store.Connection) (string, error)
	DecryptConnectionRefreshSecret(conn *store.Connection) (string, error)
	UpdateConnectionTokens(ctx context.Context, userID int64, provider, secret, refreshSecret string, expiresAt *time.Time) error
}

// Resolver turns a (user, provider) pair into an access token plus meta.
type Resolver struct {
	store    ConnectionStore
	registry *integrations.Registry
	margin   time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func NewResolver(st ConnectionStore, registry *integrations.Registry, margin time.Duration) *Resolver {
	if margin <= 0 {
		margin = DefaultRefreshMargin
	}
	return &Resolver{
		store:    st,
		registry: registry,
		margin:   margin,
		logger:   slog.Default().With("component", "gateway"),
		now:      time.Now,
	}
}

// AccessToken returns the decrypted access token and connection metadata for
// a provider. OAuth tokens within the refresh margin of expiry are refreshed
// and persisted first; a refresh failure is terminal, never a stale fallback.
func (r *Resolver) AccessToken(ctx context.Context, userID int64, provider string) (token, meta string, err error) {
	// Memory is built in: no connection row, the token is the user id.
	if provider == "memory" {
		return strconv.FormatInt(userID, 10), "", nil
	}

	conn, err := r.store.GetConnection(ctx, userID, provider)
	if errors.Is(err, store.ErrNotFound) {
		return "", "", fmt.Errorf("%w for %s", ErrNoConnection, provider)
	}
	if err != nil {
		return "", "", fmt.Errorf("lookup connection: %w", err)
	}

	token, err = r.store.DecryptConnectionSecret(conn)
	if err != nil {
		return "", "", fmt.Errorf("decrypt access token: %w", err)
	}

	if conn.AuthType != store.AuthTypeOAuth2 || conn.ExpiresAt == nil {
		return token, conn.MetaJSON, nil
	}
	if conn.ExpiresAt.After(r.now().Add(r.margin)) {
		return token, conn.MetaJSON, nil
	}

	fresh, err := r.refresh(ctx, userID, provider, conn)
	if err != nil {
		return "", "", err
	}
	return fresh, conn.MetaJSON, nil
}

func (r *Resolver) refresh(ctx context.Context, userID int64, provider string, conn *store.Connection) (string, error) {
	if conn.RefreshSecretEnc == "" {
		return "", ErrNoRefreshToken
	}

	integration, err := r.registry.Get(provider)
	if err != nil {
		return "", fmt.Errorf("token refresh failed: %v", err)
	}
	oauth, ok := integration.(integrations.OAuthIntegration)
	if !ok {
		return "", fmt.Errorf("token refresh failed: %s does not support refresh", provider)
	}

	refreshSecret, err := r.store.DecryptConnectionRefreshSecret(conn)
	if err != nil {
		return "", fmt.Errorf("decrypt refresh token: %w", err)
	}

	newToken, err := oauth.RefreshToken(ctx, refreshSecret)
	if err != nil {
		return "", fmt.Errorf("token refresh failed: %v", err)
	}

	err = r.store.UpdateConnectionTokens(ctx, userID, provider,
		newToken.AccessToken, newToken.RefreshToken, newToken.ExpiresAt)
	if err != nil {
		return "", fmt.Errorf("persist refreshed token: %w", err)
	}

	r.logger.Info("refreshed provider token", "user_id", userID, "provider", provider)
	return newToken.AccessToken, nil
}
