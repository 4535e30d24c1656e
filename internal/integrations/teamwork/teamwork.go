// ABOUTME: Teamwork integration: launchpad OAuth flow and project/task tools
// ABOUTME: The API base URL is per-installation, carried in connection metadata

package teamwork

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"github.com/Vangardo/mcp-hub-sub000/internal/integrations"
	"github.com/Vangardo/mcp-hub-sub000/internal/store"
)

const (
	authURL  = "https://www.teamwork.com/launchpad/login"
	tokenURL = "https://www.teamwork.com/launchpad/v1/token.json"
)

// Integration implements the teamwork provider.
type Integration struct {
	creds    integrations.CredentialSource
	tokenURL string
}

// New creates the teamwork integration.
func New(creds integrations.CredentialSource) *Integration {
	return &Integration{creds: creds, tokenURL: tokenURL}
}

func (i *Integration) Name() string        { return "teamwork" }
func (i *Integration) DisplayName() string { return "Teamwork" }
func (i *Integration) Description() string {
	return "Project management and team collaboration platform"
}
func (i *Integration) AuthType() store.AuthType { return store.AuthTypeOAuth2 }

func (i *Integration) IsConfigured() bool {
	id, secret := i.creds.OAuthClient("teamwork")
	return id != "" && secret != ""
}

func (i *Integration) oauthConfig(redirectURI string) *oauth2.Config {
	clientID, clientSecret := i.creds.OAuthClient("teamwork")
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:   authURL,
			TokenURL:  i.tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// AuthURL builds the launchpad login URL for the connect flow.
func (i *Integration) AuthURL(state, redirectURI string) string {
	return i.oauthConfig(redirectURI).AuthCodeURL(state)
}

// ExchangeCode trades an authorization code for tokens. The installation's
// API endpoint is captured into connection metadata; every later tool call
// needs it as the request base URL.
func (i *Integration) ExchangeCode(ctx context.Context, code, redirectURI string) (*integrations.OAuthToken, error) {
	token, err := i.oauthConfig(redirectURI).Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("teamwork OAuth exchange: %w", err)
	}

	out := &integrations.OAuthToken{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}
	if !token.Expiry.IsZero() {
		expires := token.Expiry.UTC()
		out.ExpiresAt = &expires
	}

	// Launchpad nests the installation object next to the standard fields;
	// x/oauth2 exposes it via Extra.
	meta := map[string]any{}
	if installation, ok := token.Extra("installation").(map[string]any); ok {
		meta["site_url"], _ = installation["apiEndPoint"].(string)
		meta["company_name"], _ = installation["name"].(string)
		meta["company_id"] = installation["id"]
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encoding connection metadata: %w", err)
	}
	out.MetaJSON = string(metaJSON)
	return out, nil
}

// RefreshToken exchanges a refresh token for a fresh access token.
func (i *Integration) RefreshToken(ctx context.Context, refreshToken string) (*integrations.OAuthToken, error) {
	conf := i.oauthConfig("")
	token, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("teamwork token refresh: %w", err)
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

// siteURL pulls the installation API endpoint out of connection metadata.
func siteURL(meta string) string {
	var m struct {
		SiteURL string `json:"site_url"`
	}
	if err := json.Unmarshal([]byte(meta), &m); err != nil {
		return ""
	}
	return strings.TrimRight(m.SiteURL, "/")
}

// Execute runs one teamwork tool with the user's access token.
func (i *Integration) Execute(ctx context.Context, toolName string, args map[string]any, token, meta string) integrations.Result {
	base := siteURL(meta)
	if base == "" {
		return integrations.Fail("connection is missing the installation URL; reconnect teamwork")
	}
	client := integrations.NewRESTClient(base, token)

	switch toolName {
	case "projects.list":
		data, err := client.Do(ctx, http.MethodGet, "/projects.json", nil, nil)
		return wrap(data, err)

	case "tasklists.list":
		projectID, _ := args["project_id"].(string)
		if projectID == "" {
			return integrations.Fail("project_id is required")
		}
		data, err := client.Do(ctx, http.MethodGet, "/projects/"+url.PathEscape(projectID)+"/tasklists.json", nil, nil)
		return wrap(data, err)

	case "tasks.list":
		query := url.Values{}
		path := "/tasks.json"
		if projectID, ok := args["project_id"].(string); ok && projectID != "" {
			path = "/projects/" + url.PathEscape(projectID) + "/tasks.json"
		}
		data, err := client.Do(ctx, http.MethodGet, path, query, nil)
		return wrap(data, err)

	case "tasks.create":
		tasklistID, _ := args["tasklist_id"].(string)
		content, _ := args["content"].(string)
		if tasklistID == "" || content == "" {
			return integrations.Fail("tasklist_id and content are required")
		}
		task := map[string]any{"content": content}
		if desc, ok := args["description"].(string); ok && desc != "" {
			task["description"] = desc
		}
		body := map[string]any{"todo-item": task}
		data, err := client.Do(ctx, http.MethodPost, "/tasklists/"+url.PathEscape(tasklistID)+"/tasks.json", nil, body)
		return wrap(data, err)

	case "tasks.complete":
		taskID, _ := args["task_id"].(string)
		if taskID == "" {
			return integrations.Fail("task_id is required")
		}
		data, err := client.Do(ctx, http.MethodPut, "/tasks/"+url.PathEscape(taskID)+"/complete.json", nil, nil)
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
