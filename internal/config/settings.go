// ABOUTME: CredentialSource layers admin-set app settings over the static
// ABOUTME: config file so provider credentials can change without a restart.

package config

import (
	"context"
)

// SettingsReader is the app_settings lookup the source reads overrides from.
type SettingsReader interface {
	GetSetting(ctx context.Context, key string) (string, error)
}

// CredentialSource resolves runtime configuration values. A non-empty app
// setting wins; otherwise the config-file value applies. Lookup errors fall
// back to the file value rather than failing the caller.
type CredentialSource struct {
	cfg      *Config
	settings SettingsReader
}

func NewCredentialSource(cfg *Config, settings SettingsReader) *CredentialSource {
	return &CredentialSource{cfg: cfg, settings: settings}
}

func (s *CredentialSource) override(ctx context.Context, key, fileValue string) string {
	if s.settings == nil {
		return fileValue
	}
	value, err := s.settings.GetSetting(ctx, key)
	if err != nil || value == "" {
		return fileValue
	}
	return value
}

// BaseURL returns the externally visible base URL of the gateway.
func (s *CredentialSource) BaseURL(ctx context.Context) string {
	return s.override(ctx, "public_base_url", s.cfg.Server.BaseURL)
}

// OAuthClient returns the client id/secret pair for an OAuth provider.
// Unknown providers resolve to empty strings, which the integrations treat
// as unconfigured.
func (s *CredentialSource) OAuthClient(ctx context.Context, provider string) (string, string) {
	var file OAuthClientConfig
	switch provider {
	case "slack":
		file = s.cfg.Providers.Slack
	case "teamwork":
		file = s.cfg.Providers.Teamwork
	case "miro":
		file = s.cfg.Providers.Miro
	case "figma":
		file = s.cfg.Providers.Figma
	}
	id := s.override(ctx, provider+"_client_id", file.ClientID)
	secret := s.override(ctx, provider+"_client_secret", file.ClientSecret)
	return id, secret
}

// TelegramAPI returns the MTProto api_id/api_hash pair.
func (s *CredentialSource) TelegramAPI(ctx context.Context) (string, string) {
	apiID := s.override(ctx, "telegram_api_id", s.cfg.Providers.Telegram.APIID)
	apiHash := s.override(ctx, "telegram_api_hash", s.cfg.Providers.Telegram.APIHash)
	return apiID, apiHash
}
