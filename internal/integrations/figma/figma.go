// ABOUTME: Figma integration: OAuth connect flow and file/comment tools
// ABOUTME: Figma refreshes tokens at a separate endpoint with basic auth

package figma

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/Vangardo/mcp-hub-sub000/internal/integrations"
	"github.com/Vangardo/mcp-hub-sub000/internal/store"
)

const (
	authURL    = "https://www.figma.com/oauth"
	tokenURL   = "https://api.figma.com/v1/oauth/token"
	refreshURL = "https://api.figma.com/v1/oauth/refresh"
	apiBaseURL = "https://api.figma.com/v1"
)

var scopes = []string{
	"file_content:read",
	"file_metadata:read",
	"file_comments:write",
	"current_user:read",
}

// Integration implements the figma provider.
type Integration struct {
	creds      integrations.CredentialSource
	tokenURL   string
	refreshURL string
	apiBaseURL string
	httpClient *http.Client
}

// New creates the figma integration.
func New(creds integrations.CredentialSource) *Integration {
	return &Integration{
		creds:      creds,
		tokenURL:   tokenURL,
		refreshURL: refreshURL,
		apiBaseURL: apiBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (i *Integration) Name() string             { return "figma" }
func (i *Integration) DisplayName() string      { return "Figma" }
func (i *Integration) Description() string      { return "Collaborative interface design tool" }
func (i *Integration) AuthType() store.AuthType { return store.AuthTypeOAuth2 }

func (i *Integration) IsConfigured() bool {
	id, secret := i.creds.OAuthClient("figma")
	return id != "" && secret != ""
}

func (i *Integration) oauthConfig(redirectURI string) *oauth2.Config {
	clientID, clientSecret := i.creds.OAuthClient("figma")
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   authURL,
			TokenURL:  i.tokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}

// AuthURL builds the provider authorization URL. Figma joins scopes with
// commas, so the standard space-joined scope parameter is replaced.
func (i *Integration) AuthURL(state, redirectURI string) string {
	u := i.oauthConfig(redirectURI).AuthCodeURL(state)
	parsed, err := url.Parse(u)
	if err != nil {
		return u
	}
	q := parsed.Query()
	q.Set("scope", strings.Join(scopes, ","))
	parsed.RawQuery = q.Encode()
	return parsed.String()
}

// ExchangeCode trades an authorization code for the credential triple.
func (i *Integration) ExchangeCode(ctx context.Context, code, redirectURI string) (*integrations.OAuthToken, error) {
	token, err := i.oauthConfig(redirectURI).Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("figma OAuth exchange: %w", err)
	}
	out := &integrations.OAuthToken{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}
	if !token.Expiry.IsZero() {
		expires := token.Expiry.UTC()
		out.ExpiresAt = &expires
	}
	return out, nil
}

// RefreshToken exchanges a refresh token for a fresh access token. The
// refresh endpoint differs from the token endpoint and wants basic auth, so
// the request is made directly.
func (i *Integration) RefreshToken(ctx context.Context, refreshToken string) (*integrations.OAuthToken, error) {
	clientID, clientSecret := i.creds.OAuthClient("figma")
	form := url.Values{
		"client_id":     {clientID},
		"client_secret": {clientSecret},
		"refresh_token": {refreshToken},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.refreshURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(clientID, clientSecret)

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling figma refresh endpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var data struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
		Error        string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decoding refresh response: %w", err)
	}
	if data.AccessToken == "" {
		if data.Error == "" {
			data.Error = "no access_token"
		}
		return nil, fmt.Errorf("figma token refresh error: %s", data.Error)
	}

	out := &integrations.OAuthToken{
		AccessToken:  data.AccessToken,
		RefreshToken: data.RefreshToken,
	}
	if data.ExpiresIn > 0 {
		expires := time.Now().UTC().Add(time.Duration(data.ExpiresIn) * time.Second)
		out.ExpiresAt = &expires
	}
	return out, nil
}

// Execute runs one figma tool with the user's access token.
func (i *Integration) Execute(ctx context.Context, toolName string, args map[string]any, token, meta string) integrations.Result {
	client := integrations.NewRESTClient(i.apiBaseURL, token)

	switch toolName {
	case "users.me":
		data, err := client.Do(ctx, http.MethodGet, "/me", nil, nil)
		return wrap(data, err)

	case "files.get":
		fileKey, _ := args["file_key"].(string)
		if fileKey == "" {
			return integrations.Fail("file_key is required")
		}
		query := url.Values{}
		if depth, ok := args["depth"].(float64); ok {
			query.Set("depth", fmt.Sprintf("%d", int(depth)))
		}
		data, err := client.Do(ctx, http.MethodGet, "/files/"+url.PathEscape(fileKey), query, nil)
		return wrap(data, err)

	case "files.versions":
		fileKey, _ := args["file_key"].(string)
		if fileKey == "" {
			return integrations.Fail("file_key is required")
		}
		data, err := client.Do(ctx, http.MethodGet, "/files/"+url.PathEscape(fileKey)+"/versions", nil, nil)
		return wrap(data, err)

	case "comments.list":
		fileKey, _ := args["file_key"].(string)
		if fileKey == "" {
			return integrations.Fail("file_key is required")
		}
		data, err := client.Do(ctx, http.MethodGet, "/files/"+url.PathEscape(fileKey)+"/comments", nil, nil)
		return wrap(data, err)

	case "comments.create":
		fileKey, _ := args["file_key"].(string)
		message, _ := args["message"].(string)
		if fileKey == "" || message == "" {
			return integrations.Fail("file_key and message are required")
		}
		data, err := client.Do(ctx, http.MethodPost, "/files/"+url.PathEscape(fileKey)+"/comments", nil,
			map[string]any{"message": message})
		return wrap(data, err)

	default:
		return integrations.Fail("Unknown tool: " + toolName)
	}
}

func wrap(data map[string]any, err error) integrations.Result {
	if err != nil {
		return integrations.Fail(err.Error())
	}
	return integrations.OK(data)
}
