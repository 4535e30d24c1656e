// ABOUTME: Telegram session client contract and its HTTP bridge implementation.
// ABOUTME: MTProto itself lives in a sidecar bridge; we speak typed HTTP to it.

package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Dialog is one conversation visible to the session user.
type Dialog struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	UnreadCount int    `json:"unread_count"`
	IsUser      bool   `json:"is_user"`
	IsGroup     bool   `json:"is_group"`
	IsChannel   bool   `json:"is_channel"`
}

// Message is a single message as returned by search and history calls.
type Message struct {
	MessageID int64  `json:"message_id"`
	Text      string `json:"text"`
	Date      string `json:"date"`
	SenderID  int64  `json:"sender_id"`
}

// SessionClient is the operations surface a Telegram session backend must
// provide. The session string identifies the authorized user account.
type SessionClient interface {
	Dialogs(ctx context.Context, session string, limit int) ([]Dialog, error)
	SendMessage(ctx context.Context, session, peer, text string) (Message, error)
	SearchMessages(ctx context.Context, session, peer, query string, limit int) ([]Message, error)
	History(ctx context.Context, session, peer string, limit int, beforeID int64) ([]Message, error)
}

// BridgeClient talks to an MTProto bridge service over HTTP. The bridge holds
// the api_id/api_hash pair; we pass the user session per request.
type BridgeClient struct {
	baseURL    string
	apiID      string
	apiHash    string
	httpClient *http.Client
}

func NewBridgeClient(baseURL, apiID, apiHash string) *BridgeClient {
	return &BridgeClient{
		baseURL:    baseURL,
		apiID:      apiID,
		apiHash:    apiHash,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *BridgeClient) post(ctx context.Context, path, session string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Telegram-Session", session)
	req.Header.Set("X-Telegram-Api-Id", c.apiID)
	req.Header.Set("X-Telegram-Api-Hash", c.apiHash)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram bridge request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read telegram bridge response: %w", err)
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("telegram error: %s", apiErr.Error)
		}
		return fmt.Errorf("telegram bridge error (HTTP %d)", resp.StatusCode)
	}
	return json.Unmarshal(raw, out)
}

func (c *BridgeClient) Dialogs(ctx context.Context, session string, limit int) ([]Dialog, error) {
	var out []Dialog
	err := c.post(ctx, "/dialogs", session, map[string]any{"limit": limit}, &out)
	return out, err
}

func (c *BridgeClient) SendMessage(ctx context.Context, session, peer, text string) (Message, error) {
	var out Message
	err := c.post(ctx, "/messages/send", session, map[string]any{"peer": peer, "text": text}, &out)
	return out, err
}

func (c *BridgeClient) SearchMessages(ctx context.Context, session, peer, query string, limit int) ([]Message, error) {
	var out []Message
	err := c.post(ctx, "/messages/search", session, map[string]any{
		"peer": peer, "query": query, "limit": limit,
	}, &out)
	return out, err
}

func (c *BridgeClient) History(ctx context.Context, session, peer string, limit int, beforeID int64) ([]Message, error) {
	var out []Message
	err := c.post(ctx, "/messages/history", session, map[string]any{
		"peer": peer, "limit": limit, "before_id": beforeID,
	}, &out)
	return out, err
}
