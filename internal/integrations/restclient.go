// ABOUTME: Shared JSON REST client for bearer-authenticated provider APIs
// ABOUTME: Used by the miro, teamwork, and figma integrations

package integrations

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

// RESTClient is a minimal JSON-over-HTTP client. Provider APIs that follow
// plain REST conventions (JSON bodies, meaningful status codes) share it.
type RESTClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewRESTClient creates a client with a 30 second timeout.
func NewRESTClient(baseURL, token string) *RESTClient {
	return &RESTClient{
		BaseURL:    baseURL,
		Token:      token,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Do performs one JSON request. Responses with status >= 400 become errors
// carrying the provider's message; empty bodies decode to nil.
func (c *RESTClient) Do(ctx context.Context, method, path string, query url.Values, body any) (map[string]any, error) {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
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
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling provider: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		msg := providerErrorMessage(raw)
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("provider error (%d): %s", resp.StatusCode, msg)
	}

	if len(raw) == 0 {
		return nil, nil
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return data, nil
}

// providerErrorMessage digs a human-readable message out of common error body
// shapes ({"message":...}, {"error":...}, {"err":...}).
func providerErrorMessage(raw []byte) string {
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	for _, key := range []string{"message", "error", "err"} {
		if s, ok := body[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
