package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Client is a typed client for the atende backend REST API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a backend client. The token may be empty for backends
// that do not require authentication (e.g. the local stub).
func NewClient(baseURL, token string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
}

// ListConversations fetches the full conversation list, newest first.
func (c *Client) ListConversations(ctx context.Context) ([]Conversation, error) {
	var dtos []conversationDTO
	if err := c.getJSON(ctx, "/api/v1/conversations", &dtos); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	convs, dropped := decodeConversations(dtos)
	if dropped > 0 {
		c.logger.Warn("quarantined malformed conversations", zap.Int("dropped", dropped))
	}
	return convs, nil
}

// ListMessages fetches the full thread for one conversation, ordered by id.
func (c *Client) ListMessages(ctx context.Context, conversationID int64) ([]Message, error) {
	var dtos []messageDTO
	path := fmt.Sprintf("/api/v1/conversations/%d/messages", conversationID)
	if err := c.getJSON(ctx, path, &dtos); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	msgs, dropped := decodeMessages(dtos)
	if dropped > 0 {
		c.logger.Warn("quarantined malformed messages",
			zap.Int64("conversation_id", conversationID), zap.Int("dropped", dropped))
	}
	return msgs, nil
}

// SendText posts a text message and returns the created message.
func (c *Client) SendText(ctx context.Context, conversationID int64, text string) (Message, error) {
	path := fmt.Sprintf("/api/v1/conversations/%d/messages", conversationID)
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return Message{}, err
	}

	var dto messageDTO
	if err := c.do(ctx, http.MethodPost, path, "application/json", bytes.NewReader(body), &dto); err != nil {
		return Message{}, fmt.Errorf("send text: %w", err)
	}
	return decodeMessage(dto), nil
}

// SendMedia posts a multipart message carrying the file at path. The caption
// is only transmitted for image and document kinds; the backend rejects
// captions on audio.
func (c *Client) SendMedia(ctx context.Context, conversationID int64, kind MediaKind, filePath, caption string) (Message, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return Message{}, fmt.Errorf("send media: %w", err)
	}
	defer func() { _ = f.Close() }()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("kind", string(kind)); err != nil {
		return Message{}, err
	}
	if caption != "" && kind != MediaAudio {
		if err := mw.WriteField("caption", caption); err != nil {
			return Message{}, err
		}
	}
	part, err := mw.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return Message{}, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return Message{}, fmt.Errorf("send media: read file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return Message{}, err
	}

	var dto messageDTO
	urlPath := fmt.Sprintf("/api/v1/conversations/%d/media", conversationID)
	if err := c.do(ctx, http.MethodPost, urlPath, mw.FormDataContentType(), &buf, &dto); err != nil {
		return Message{}, fmt.Errorf("send media: %w", err)
	}
	return decodeMessage(dto), nil
}

// MarkRead clears the unread counter for a conversation on the backend.
func (c *Client) MarkRead(ctx context.Context, conversationID int64) error {
	path := fmt.Sprintf("/api/v1/conversations/%d/read", conversationID)
	if err := c.do(ctx, http.MethodPost, path, "", nil, nil); err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	return nil
}

// SetMode switches a conversation between bot and human handling.
func (c *Client) SetMode(ctx context.Context, conversationID int64, mode Mode) error {
	path := fmt.Sprintf("/api/v1/conversations/%d/mode", conversationID)
	body, err := json.Marshal(map[string]string{"mode": string(mode)})
	if err != nil {
		return err
	}
	if err := c.do(ctx, http.MethodPost, path, "application/json", bytes.NewReader(body), nil); err != nil {
		return fmt.Errorf("set mode: %w", err)
	}
	return nil
}

// ResetBot restarts the bot's dialogue state for a conversation.
func (c *Client) ResetBot(ctx context.Context, conversationID int64) error {
	path := fmt.Sprintf("/api/v1/conversations/%d/bot/reset", conversationID)
	if err := c.do(ctx, http.MethodPost, path, "", nil, nil); err != nil {
		return fmt.Errorf("reset bot: %w", err)
	}
	return nil
}

// FetchMedia downloads the binary resource behind an opaque media id.
func (c *Client) FetchMedia(ctx context.Context, mediaID string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/media/"+mediaID, "", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch media: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch media: backend returned %s", resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch media: %w", err)
	}
	return data, nil
}

func (c *Client) newRequest(ctx context.Context, method, path, contentType string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, "", nil, out)
}

// do executes a request and decodes the JSON response into out when out is
// non-nil. Non-2xx responses are returned as errors carrying the body.
func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := c.newRequest(ctx, method, path, contentType, body)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("backend request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("backend returned %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
