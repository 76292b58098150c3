package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-client/internal/models"
)

type staticTokens string

func (s staticTokens) Token(ctx context.Context) (string, error) {
	return string(s), nil
}

func newTestClient(serverURL string, token string) *Client {
	return NewClient(serverURL, staticTokens(token), 5*time.Second)
}

func TestFetchConversationsSuccess(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/chat/", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":[{"chatId":3,"userId":2,"firstName":"Aarav","lastName":"Motors","lastMessage":"See you then.","lastMessageTime":"2026-08-29T10:00:00Z","unreadCount":1}]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, "tok123")
	records, err := client.FetchConversations(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Bearer tok123", gotAuth)
	assert.Equal(t, 2, records[0].UserID)
	assert.Equal(t, 1, records[0].UnreadCount)
}

func TestMissingTokenSendsNoAuthHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present := r.Header["Authorization"]
		assert.False(t, present)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"success":false,"message":"missing or invalid token"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, "")
	_, err := client.FetchConversations(context.Background())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Contains(t, apiErr.Message, "missing or invalid token")
}

func TestHTMLResponseIsEndpointMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<!DOCTYPE html>\n<html><body>404</body></html>"))
	}))
	defer server.Close()

	client := newTestClient(server.URL, "tok")
	_, err := client.FetchConversations(context.Background())
	require.ErrorIs(t, err, ErrEndpointMismatch)

	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}

func TestApplicationErrorSurfacesServerMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"message":"user is blocked"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, "tok")
	_, err := client.SendMessage(context.Background(), 2, "hi")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "user is blocked", apiErr.Message)
}

func TestApplicationErrorFallbackMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, "tok")
	_, err := client.FetchMessages(context.Background(), 2)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "failed to load messages", apiErr.Message)
}

func TestFetchMessagesTagsSenders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat/7", r.URL.Path)
		_, _ = w.Write([]byte(`{"success":true,"data":[
            {"id":1,"senderId":7,"content":"hi","createdAt":"2026-08-29T10:00:00Z"},
            {"id":2,"senderId":3,"content":"hello","createdAt":"2026-08-29T10:01:00Z"}
        ]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, "tok")
	msgs, err := client.FetchMessages(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, models.SenderPeer, msgs[0].Sender)
	assert.Equal(t, "1", msgs[0].ID)
	assert.Equal(t, models.StatusConfirmed, msgs[0].Status)
	assert.Equal(t, models.SenderLocal, msgs[1].Sender)
}

func TestSendMessagePostsEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat/send", r.URL.Path)

		var req struct {
			Content    string `json:"content"`
			ReceiverID int    `json:"receiverId"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello", req.Content)
		assert.Equal(t, 9, req.ReceiverID)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true,"data":{"id":42,"senderId":1,"content":"hello","createdAt":"2026-08-29T10:02:00Z"}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, "tok")
	msg, err := client.SendMessage(context.Background(), 9, "hello")
	require.NoError(t, err)
	assert.Equal(t, "42", msg.ID)
	assert.Equal(t, models.SenderLocal, msg.Sender)
	assert.Equal(t, models.StatusConfirmed, msg.Status)
}

func TestTransportErrorIsWrapped(t *testing.T) {
	client := newTestClient("http://127.0.0.1:1", "tok")
	_, err := client.FetchConversations(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request failed")
}
