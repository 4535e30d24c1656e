// ABOUTME: Binance REST client with HMAC-SHA256 request signing.
// ABOUTME: Credentials arrive as a JSON blob {api_key, api_secret} in the connection secret.

package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultBaseURL = "https://api.binance.com"

type credentials struct {
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
}

// EncodeCredentials packs an API key pair into the stored secret format.
func EncodeCredentials(apiKey, apiSecret string) (string, error) {
	raw, err := json.Marshal(credentials{APIKey: apiKey, APISecret: apiSecret})
	if err != nil {
		return "", fmt.Errorf("encode binance credentials: %w", err)
	}
	return string(raw), nil
}

type client struct {
	baseURL    string
	creds      credentials
	httpClient *http.Client
	now        func() time.Time
}

func newClient(accessToken string) (*client, error) {
	var creds credentials
	if err := json.Unmarshal([]byte(accessToken), &creds); err != nil {
		return nil, fmt.Errorf("parse binance credentials: %w", err)
	}
	if creds.APIKey == "" || creds.APISecret == "" {
		return nil, fmt.Errorf("binance credentials missing api_key or api_secret")
	}
	return &client{
		baseURL:    defaultBaseURL,
		creds:      creds,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		now:        time.Now,
	}, nil
}

// sign appends the millisecond timestamp and an HMAC-SHA256 signature over
// the encoded query string, as Binance requires for account endpoints.
func (c *client) sign(params url.Values) url.Values {
	params.Set("timestamp", strconv.FormatInt(c.now().UnixMilli(), 10))
	mac := hmac.New(sha256.New, []byte(c.creds.APISecret))
	mac.Write([]byte(params.Encode()))
	params.Set("signature", hex.EncodeToString(mac.Sum(nil)))
	return params
}

func (c *client) request(ctx context.Context, path string, params url.Values, signed bool) (json.RawMessage, error) {
	if params == nil {
		params = url.Values{}
	}
	if signed {
		params = c.sign(params)
	}

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-MBX-APIKEY", c.creds.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("binance request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read binance response: %w", err)
	}
	if resp.StatusCode >= 400 {
		msg := string(body)
		if len(msg) > 500 {
			msg = msg[:500]
		}
		return nil, fmt.Errorf("binance API error (HTTP %d): %s", resp.StatusCode, msg)
	}
	return json.RawMessage(body), nil
}

func (c *client) account(ctx context.Context) (map[string]any, error) {
	raw, err := c.request(ctx, "/api/v3/account", nil, true)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode account response: %w", err)
	}
	return out, nil
}

func (c *client) price(ctx context.Context, symbol string) (any, error) {
	params := url.Values{}
	if symbol != "" {
		params.Set("symbol", symbol)
	}
	raw, err := c.request(ctx, "/api/v3/ticker/price", params, false)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode price response: %w", err)
	}
	return out, nil
}
