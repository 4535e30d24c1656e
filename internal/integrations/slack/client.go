// ABOUTME: Minimal Slack Web API client used by the slack integration
// ABOUTME: All calls are bearer-authenticated and decode the ok/error envelope

package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const defaultBaseURL = "https://slack.com/api"

// Client is a thin wrapper over the Slack Web API.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

// NewClient creates a client for the given user access token.
func NewClient(accessToken string) *Client {
	return &Client{
		baseURL:     defaultBaseURL,
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

// apiResponse is the common Slack envelope. The full body is preserved so
// tool results carry everything Slack returned.
type apiResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func (c *Client) request(ctx context.Context, method, endpoint string, params url.Values, body any) (map[string]any, error) {
	u := c.baseURL + "/" + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling slack: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("slack returned status %d", resp.StatusCode)
	}

	var envelope apiResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if !envelope.OK {
		return nil, fmt.Errorf("slack API error: %s", envelope.Error)
	}

	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return data, nil
}

// ListChannels lists workspace conversations.
func (c *Client) ListChannels(ctx context.Context, limit int, cursor, types string) (map[string]any, error) {
	params := url.Values{}
	params.Set("limit", fmt.Sprintf("%d", limit))
	params.Set("types", types)
	if cursor != "" {
		params.Set("cursor", cursor)
	}
	return c.request(ctx, http.MethodGet, "conversations.list", params, nil)
}

// ListUsers lists workspace members.
func (c *Client) ListUsers(ctx context.Context, limit int, cursor string) (map[string]any, error) {
	params := url.Values{}
	params.Set("limit", fmt.Sprintf("%d", limit))
	if cursor != "" {
		params.Set("cursor", cursor)
	}
	return c.request(ctx, http.MethodGet, "users.list", params, nil)
}

// PostMessage posts a message, optionally as a thread reply.
func (c *Client) PostMessage(ctx context.Context, channel, text, threadTS string) (map[string]any, error) {
	body := map[string]any{"channel": channel, "text": text}
	if threadTS != "" {
		body["thread_ts"] = threadTS
	}
	return c.request(ctx, http.MethodPost, "chat.postMessage", nil, body)
}

// SearchMessages searches workspace messages.
func (c *Client) SearchMessages(ctx context.Context, query string, count, page int) (map[string]any, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("count", fmt.Sprintf("%d", count))
	params.Set("page", fmt.Sprintf("%d", page))
	return c.request(ctx, http.MethodGet, "search.messages", params, nil)
}

// ChannelHistory fetches a channel's message history.
func (c *Client) ChannelHistory(ctx context.Context, channel string, limit int, cursor string) (map[string]any, error) {
	params := url.Values{}
	params.Set("channel", channel)
	params.Set("limit", fmt.Sprintf("%d", limit))
	if cursor != "" {
		params.Set("cursor", cursor)
	}
	return c.request(ctx, http.MethodGet, "conversations.history", params, nil)
}
