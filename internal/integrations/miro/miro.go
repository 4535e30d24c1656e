// ABOUTME: Miro integration: standard OAuth 2.0 connect flow and board tools
// ABOUTME: Token exchange and refresh go through golang.org/x/oauth2

package miro

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"

	"github.com/Vangardo/mcp-hub-sub000/internal/integrations"
	"github.com/Vangardo/mcp-hub-sub000/internal/store"
)

const (
	authURL    = "https://miro.com/oauth/authorize"
	tokenURL   = "https://api.miro.com/v1/oauth/token"
	apiBaseURL = "https://api.miro.com/v2"
)

// Integration implements the miro provider.
type Integration struct {
	creds      integrations.CredentialSource
	tokenURL   string
	apiBaseURL string
}

// New creates the miro integration.
func New(creds integrations.CredentialSource) *Integration {
	return &Integration{creds: creds, tokenURL: tokenURL, apiBaseURL: apiBaseURL}
}

func (i *Integration) Name() string        { return "miro" }
func (i *Integration) DisplayName() string { return "Miro" }
func (i *Integration) Description() string {
	return "Online collaborative whiteboard platform"
}
func (i *Integration) AuthType() store.AuthType { return store.AuthTypeOAuth2 }

func (i *Integration) IsConfigured() bool {
	id, secret := i.creds.OAuthClient("miro")
	return id != "" && secret != ""
}

func (i *Integration) oauthConfig(redirectURI string) *oauth2.Config {
	clientID, clientSecret := i.creds.OAuthClient("miro")
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:  authURL,
			TokenURL: i.tokenURL,
		},
	}
}

// AuthURL builds the provider authorization URL for the connect flow.
func (i *Integration) AuthURL(state, redirectURI string) string {
	return i.oauthConfig(redirectURI).AuthCodeURL(state)
}

// ExchangeCode trades an authorization code for the credential triple.
func (i *Integration) ExchangeCode(ctx context.Context, code, redirectURI string) (*integrations.OAuthToken, error) {
	token, err := i.oauthConfig(redirectURI).Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("miro OAuth exchange: %w", err)
	}
	return fromOAuth2Token(token), nil
}

// RefreshToken exchanges a refresh token for a fresh access token.
func (i *Integration) RefreshToken(ctx context.Context, refreshToken string) (*integrations.OAuthToken, error) {
	conf := i.oauthConfig("")
	token, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("miro token refresh: %w", err)
	}
	return fromOAuth2Token(token), nil
}

func fromOAuth2Token(token *oauth2.Token) *integrations.OAuthToken {
	out := &integrations.OAuthToken{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}
	if !token.Expiry.IsZero() {
		expires := token.Expiry.UTC()
		out.ExpiresAt = &expires
	}
	return out
}

// client returns a REST client bound to the user's token.
func (i *Integration) client(token string) *integrations.RESTClient {
	return integrations.NewRESTClient(i.apiBaseURL, token)
}

// Execute runs one miro tool with the user's access token.
func (i *Integration) Execute(ctx context.Context, toolName string, args map[string]any, token, meta string) integrations.Result {
	client := i.client(token)

	switch toolName {
	case "boards.list":
		query := url.Values{}
		if q, ok := args["query"].(string); ok && q != "" {
			query.Set("query", q)
		}
		if limit, ok := args["limit"].(float64); ok {
			query.Set("limit", fmt.Sprintf("%d", int(limit)))
		}
		data, err := client.Do(ctx, http.MethodGet, "/boards", query, nil)
		return wrap(data, err)

	case "boards.get":
		boardID, ok := args["board_id"].(string)
		if !ok || boardID == "" {
			return integrations.Fail("board_id is required")
		}
		data, err := client.Do(ctx, http.MethodGet, "/boards/"+url.PathEscape(boardID), nil, nil)
		return wrap(data, err)

	case "boards.create":
		name, ok := args["name"].(string)
		if !ok || name == "" {
			return integrations.Fail("name is required")
		}
		body := map[string]any{"name": name}
		if desc, ok := args["description"].(string); ok && desc != "" {
			body["description"] = desc
		}
		data, err := client.Do(ctx, http.MethodPost, "/boards", nil, body)
		return wrap(data, err)

	case "items.list":
		boardID, ok := args["board_id"].(string)
		if !ok || boardID == "" {
			return integrations.Fail("board_id is required")
		}
		query := url.Values{}
		if itemType, ok := args["type"].(string); ok && itemType != "" {
			query.Set("type", itemType)
		}
		data, err := client.Do(ctx, http.MethodGet, "/boards/"+url.PathEscape(boardID)+"/items", query, nil)
		return wrap(data, err)

	case "sticky_notes.create":
		boardID, _ := args["board_id"].(string)
		content, _ := args["content"].(string)
		if boardID == "" || content == "" {
			return integrations.Fail("board_id and content are required")
		}
		body := map[string]any{
			"data": map[string]any{"content": content},
		}
		if color, ok := args["color"].(string); ok && color != "" {
			body["style"] = map[string]any{"fillColor": color}
		}
		if x, okX := args["x"].(float64); okX {
			y, _ := args["y"].(float64)
			body["position"] = map[string]any{"x": x, "y": y}
		}
		data, err := client.Do(ctx, http.MethodPost, "/boards/"+url.PathEscape(boardID)+"/sticky_notes", nil, body)
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
