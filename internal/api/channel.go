package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chat-client/internal/models"
	"chat-client/internal/observability"
)

// Channel is a lifecycle-scoped real-time connection to the chat
// backend. It is opened when a conversation becomes active and must be
// closed when it goes away; nothing reconnects on its own. Polling
// remains the fallback delivery path.
type Channel struct {
	conn   *websocket.Conn
	events chan models.ChatEvent

	closeOnce sync.Once
	done      chan struct{}
}

// DialChannel opens the websocket channel against the same host as the
// REST base URL, carrying the bearer token when one is stored.
func DialChannel(ctx context.Context, baseURL string, tokens TokenSource) (*Channel, error) {
	wsURL, err := websocketURL(baseURL)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	token, err := tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return nil, fmt.Errorf("dial channel: %w", err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	ch := &Channel{
		conn:   conn,
		events: make(chan models.ChatEvent, 16),
		done:   make(chan struct{}),
	}
	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	go ch.readLoop()
	return ch, nil
}

// Events yields decoded push events. The channel is closed once the
// connection drops or Close is called.
func (ch *Channel) Events() <-chan models.ChatEvent {
	return ch.events
}

// Close tears the connection down. Safe to call more than once.
func (ch *Channel) Close() error {
	var err error
	ch.closeOnce.Do(func() {
		close(ch.done)
		deadline := time.Now().Add(time.Second)
		_ = ch.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		err = ch.conn.Close()
	})
	return err
}

func (ch *Channel) readLoop() {
	defer func() {
		close(ch.events)
		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
	}()
	for {
		var event models.ChatEvent
		if err := ch.conn.ReadJSON(&event); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				select {
				case <-ch.done:
				default:
					observability.IncWSEvent("ws_error")
				}
			}
			return
		}
		observability.IncWSEvent(event.Type)
		select {
		case ch.events <- event:
		case <-ch.done:
			return
		}
	}
}

func websocketURL(baseURL string) (string, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch parsed.Scheme {
	case "https":
		parsed.Scheme = "wss"
	default:
		parsed.Scheme = "ws"
	}
	parsed.Path = "/ws/chat"
	return parsed.String(), nil
}
