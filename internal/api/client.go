package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"chat-client/internal/models"
	"chat-client/internal/observability"
)

// TokenSource yields the current session bearer token. An empty token
// is not an error; the request simply goes out unauthenticated and the
// backend rejects it.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client issues authenticated REST calls against the marketplace chat API.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
}

// NewClient builds a Client for the given base URL.
func NewClient(baseURL string, tokens TokenSource, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// FetchConversations loads the conversation list. Order is the server's;
// the client never re-sorts it.
func (c *Client) FetchConversations(ctx context.Context) ([]models.ConversationRecord, error) {
	var records []models.ConversationRecord
	if err := c.call(ctx, http.MethodGet, "/api/chat/", nil, "failed to load chats", &records); err != nil {
		return nil, err
	}
	return records, nil
}

// FetchMessages loads the message history with a peer, tagged for display.
func (c *Client) FetchMessages(ctx context.Context, peerID int) ([]models.Message, error) {
	var records []models.MessageRecord
	path := fmt.Sprintf("/api/chat/%d", peerID)
	if err := c.call(ctx, http.MethodGet, path, nil, "failed to load messages", &records); err != nil {
		return nil, err
	}
	msgs := make([]models.Message, 0, len(records))
	for _, rec := range records {
		msgs = append(msgs, models.DisplayMessage(rec, peerID))
	}
	return msgs, nil
}

// SendMessage posts a new message and returns the server-confirmed form.
// There is no retry; the caller owns rollback of any optimistic entry.
func (c *Client) SendMessage(ctx context.Context, peerID int, text string) (models.Message, error) {
	body := map[string]any{
		"content":    text,
		"receiverId": peerID,
	}
	var record models.MessageRecord
	if err := c.call(ctx, http.MethodPost, "/api/chat/send", body, "failed to send message", &record); err != nil {
		return models.Message{}, err
	}
	return models.DisplayMessage(record, peerID), nil
}

func (c *Client) call(ctx context.Context, method, path string, body any, fallback string, out any) error {
	op := method + " " + path
	ctx, span := otel.Tracer("chat-client/api").Start(ctx, "api.call")
	span.SetAttributes(attribute.String("api.op", op))
	defer span.End()

	start := time.Now()
	err := c.doCall(ctx, method, path, body, fallback, out)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	observability.ObserveAPIRequest(op, outcome, time.Since(start).Seconds())
	return err
}

func (c *Client) doCall(ctx context.Context, method, path string, body any, fallback string, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("read token: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if looksLikeHTML(raw) {
		return ErrEndpointMismatch
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Success {
		message := env.Message
		if message == "" {
			message = fallback
		}
		return &APIError{Status: resp.StatusCode, Message: message}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
	}
	return nil
}
