package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/avelione/grimoire.chat/internal/platform/timeouts"
)

// GatewayConfig configures the HTTP chat-gateway adapter.
type GatewayConfig struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

type gatewayClient struct {
	cfg GatewayConfig
}

// NewGatewayClient builds a Client over the chat gateway REST API.
//
// The gateway exposes Discord-shaped message routes:
//
//	GET   /channels/{channel}/messages/{message}
//	PATCH /channels/{channel}/messages/{message}
//	POST  /channels/{channel}/messages
func NewGatewayClient(cfg GatewayConfig) (Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("gateway base url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("parse gateway base url: %w", err)
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: timeouts.ChatRequest}
	}
	return &gatewayClient{cfg: cfg}, nil
}

type gatewayMessage struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
	AuthorID  string `json:"author_id"`
	Content   string `json:"content"`
}

func (c *gatewayClient) FetchMessage(ctx context.Context, ref MessageRef) (Message, error) {
	if err := ref.Validate(); err != nil {
		return Message{}, err
	}

	endpoint := fmt.Sprintf("%s/channels/%s/messages/%s",
		strings.TrimRight(c.cfg.BaseURL, "/"),
		url.PathEscape(ref.ChannelID),
		url.PathEscape(ref.MessageID),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Message{}, fmt.Errorf("build fetch request: %w", err)
	}
	c.authorize(req)

	res, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return Message{}, fmt.Errorf("fetch message: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return Message{}, fmt.Errorf("fetch message %s/%s: %w", ref.ChannelID, ref.MessageID, ErrMessageNotFound)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return Message{}, fmt.Errorf("fetch message status %d: %s", res.StatusCode, readErrorBody(res.Body))
	}

	var payload gatewayMessage
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return Message{}, fmt.Errorf("decode message response: %w", err)
	}
	return Message{
		Ref:      MessageRef{ChannelID: payload.ChannelID, MessageID: payload.ID},
		AuthorID: payload.AuthorID,
		Content:  payload.Content,
	}, nil
}

func (c *gatewayClient) EditMessage(ctx context.Context, ref MessageRef, content string) error {
	if err := ref.Validate(); err != nil {
		return err
	}

	body, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return fmt.Errorf("marshal edit request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/channels/%s/messages/%s",
		strings.TrimRight(c.cfg.BaseURL, "/"),
		url.PathEscape(ref.ChannelID),
		url.PathEscape(ref.MessageID),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build edit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	res, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("edit message: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return fmt.Errorf("edit message %s/%s: %w", ref.ChannelID, ref.MessageID, ErrMessageNotFound)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("edit message status %d: %s", res.StatusCode, readErrorBody(res.Body))
	}
	return nil
}

func (c *gatewayClient) SendMessage(ctx context.Context, channelID, content string) (MessageRef, error) {
	if strings.TrimSpace(channelID) == "" {
		return MessageRef{}, ErrEmptyChannelID
	}

	body, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return MessageRef{}, fmt.Errorf("marshal send request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/channels/%s/messages",
		strings.TrimRight(c.cfg.BaseURL, "/"),
		url.PathEscape(channelID),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return MessageRef{}, fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	res, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return MessageRef{}, fmt.Errorf("send message: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return MessageRef{}, fmt.Errorf("send message status %d: %s", res.StatusCode, readErrorBody(res.Body))
	}

	var payload gatewayMessage
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return MessageRef{}, fmt.Errorf("decode send response: %w", err)
	}
	return MessageRef{ChannelID: payload.ChannelID, MessageID: payload.ID}, nil
}

func (c *gatewayClient) authorize(req *http.Request) {
	// Token material travels only in the Authorization header and is never
	// echoed in errors or logs.
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bot "+c.cfg.Token)
	}
}

func readErrorBody(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(body))
}
