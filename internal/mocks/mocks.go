package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"chat-client/internal/api"
	"chat-client/internal/chatsync"
	"chat-client/internal/conversations"
	"chat-client/internal/models"
	"chat-client/internal/telemetry"
)

type TransportMock struct {
	mock.Mock
}

func (m *TransportMock) FetchMessages(ctx context.Context, peerID int) ([]models.Message, error) {
	args := m.Called(ctx, peerID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *TransportMock) SendMessage(ctx context.Context, peerID int, text string) (models.Message, error) {
	args := m.Called(ctx, peerID, text)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

type FetcherMock struct {
	mock.Mock
}

func (m *FetcherMock) FetchConversations(ctx context.Context) ([]models.ConversationRecord, error) {
	args := m.Called(ctx)
	var records []models.ConversationRecord
	if val := args.Get(0); val != nil {
		records = val.([]models.ConversationRecord)
	}
	return records, args.Error(1)
}

type TokenSourceMock struct {
	mock.Mock
}

func (m *TokenSourceMock) Token(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func (m *PublisherMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

var _ chatsync.Transport = (*TransportMock)(nil)
var _ conversations.Fetcher = (*FetcherMock)(nil)
var _ api.TokenSource = (*TokenSourceMock)(nil)
var _ telemetry.Publisher = (*PublisherMock)(nil)
