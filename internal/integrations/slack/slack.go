// ABOUTME: Slack integration: OAuth v2 connect flow and workspace tools
// ABOUTME: Slack's token endpoint uses an ok/error envelope, handled directly

package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Vangardo/mcp-hub-sub000/internal/integrations"
	"github.com/Vangardo/mcp-hub-sub000/internal/store"
)

const (
	authURL  = "https://slack.com/oauth/v2/authorize"
	tokenURL = "https://slack.com/api/oauth.v2.access"
)

// scopes requested during the connect flow. Slack joins scopes with commas,
// not spaces.
var scopes = []string{
	"channels:read",
	"channels:history",
	"chat:write",
	"search:read",
	"users:read",
}

// Integration implements the slack provider.
type Integration struct {
	creds      integrations.CredentialSource
	tokenURL   string
	httpClient *http.Client
}

// New creates the slack integration.
func New(creds integrations.CredentialSource) *Integration {
	return &Integration{
		creds:      creds,
		tokenURL:   tokenURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (i *Integration) Name() string        { return "slack" }
func (i *Integration) DisplayName() string { return "Slack" }
func (i *Integration) Description() string {
	return "Team communication and collaboration platform"
}
func (i *Integration) AuthType() store.AuthType { return store.AuthTypeOAuth2 }

func (i *Integration) IsConfigured() bool {
	id, secret := i.creds.OAuthClient("slack")
	return id != "" && secret != ""
}

// AuthURL builds the provider authorization URL for the connect flow.
func (i *Integration) AuthURL(state, redirectURI string) string {
	clientID, _ := i.creds.OAuthClient("slack")
	params := url.Values{}
	params.Set("client_id", clientID)
	params.Set("redirect_uri", redirectURI)
	params.Set("state", state)
	params.Set("scope", strings.Join(scopes, ","))
	return authURL + "?" + params.Encode()
}

// tokenResponse is Slack's oauth.v2.access payload.
type tokenResponse struct {
	OK           bool   `json:"ok"`
	Error        string `json:"error"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope"`
	Team         struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"team"`
	AuthedUser struct {
		ID string `json:"id"`
	} `json:"authed_user"`
}

// ExchangeCode trades an authorization code for the credential triple.
// Workspace identity is captured into the connection metadata.
func (i *Integration) ExchangeCode(ctx context.Context, code, redirectURI string) (*integrations.OAuthToken, error) {
	clientID, clientSecret := i.creds.OAuthClient("slack")
	data, err := i.tokenRequest(ctx, url.Values{
		"client_id":     {clientID},
		"client_secret": {clientSecret},
		"code":          {code},
		"redirect_uri":  {redirectURI},
	})
	if err != nil {
		return nil, err
	}

	meta, err := json.Marshal(map[string]string{
		"team_id":   data.Team.ID,
		"team_name": data.Team.Name,
		"user_id":   data.AuthedUser.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding connection metadata: %w", err)
	}

	token := &integrations.OAuthToken{
		AccessToken:  data.AccessToken,
		RefreshToken: data.RefreshToken,
		Scope:        data.Scope,
		MetaJSON:     string(meta),
	}
	if data.ExpiresIn > 0 {
		expires := time.Now().UTC().Add(time.Duration(data.ExpiresIn) * time.Second)
		token.ExpiresAt = &expires
	}
	return token, nil
}

// RefreshToken exchanges a refresh token for a fresh access token. Slack may
// omit a rotated refresh token, in which case the old one stays valid.
func (i *Integration) RefreshToken(ctx context.Context, refreshToken string) (*integrations.OAuthToken, error) {
	clientID, clientSecret := i.creds.OAuthClient("slack")
	data, err := i.tokenRequest(ctx, url.Values{
		"client_id":     {clientID},
		"client_secret": {clientSecret},
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	})
	if err != nil {
		return nil, err
	}

	token := &integrations.OAuthToken{
		AccessToken:  data.AccessToken,
		RefreshToken: data.RefreshToken,
	}
	if data.ExpiresIn > 0 {
		expires := time.Now().UTC().Add(time.Duration(data.ExpiresIn) * time.Second)
		token.ExpiresAt = &expires
	}
	return token, nil
}

func (i *Integration) tokenRequest(ctx context.Context, form url.Values) (*tokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling slack token endpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var data tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decoding token response: %w", err)
	}
	if !data.OK {
		return nil, fmt.Errorf("slack OAuth error: %s", data.Error)
	}
	return &data, nil
}
