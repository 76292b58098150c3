package conversations_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-client/internal/conversations"
	"chat-client/internal/mocks"
	"chat-client/internal/models"
)

func TestFormatTime(t *testing.T) {
	now := time.Date(2026, time.August, 29, 14, 30, 0, 0, time.UTC)

	assert.Equal(t, "14:30", conversations.FormatTime(now, now))
	assert.Equal(t, "09:12", conversations.FormatTime(
		time.Date(2026, time.August, 29, 9, 12, 0, 0, time.UTC), now))

	// 25 hours back crosses exactly one midnight.
	assert.Equal(t, "Yesterday", conversations.FormatTime(now.Add(-25*time.Hour), now))
	assert.Equal(t, "Yesterday", conversations.FormatTime(
		time.Date(2026, time.August, 28, 23, 59, 0, 0, time.UTC), now))

	// Two or more calendar days back is always a date, never a time.
	assert.Equal(t, "Aug 27", conversations.FormatTime(now.Add(-49*time.Hour), now))
	assert.Equal(t, "Jan 3", conversations.FormatTime(
		time.Date(2026, time.January, 3, 8, 0, 0, 0, time.UTC), now))
}

func TestRefreshFormatsAndReplaces(t *testing.T) {
	now := time.Date(2026, time.August, 29, 14, 30, 0, 0, time.UTC)
	fetcher := new(mocks.FetcherMock)
	aggregator := conversations.NewAggregator(fetcher, func() time.Time { return now })

	fetcher.On("FetchConversations", mock.Anything).Return([]models.ConversationRecord{
		{
			ChatID: 3, UserID: 2,
			FirstName: "Aarav", LastName: "Motors",
			LastMessage:     "See you then.",
			LastMessageTime: now.Add(-10 * time.Minute),
			UnreadCount:     2,
		},
		{
			ChatID: 4, UserID: 9,
			FirstName: "Priya", LastName: "Singh",
			Image:           "https://example.com/p.jpg",
			LastMessage:     "Thanks!",
			LastMessageTime: now.Add(-26 * time.Hour),
		},
	}, nil).Once()

	require.NoError(t, aggregator.Refresh(context.Background(), false))

	items := aggregator.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "3", items[0].ID)
	assert.Equal(t, 2, items[0].PeerUserID)
	assert.Equal(t, "Aarav Motors", items[0].PeerName)
	assert.Equal(t, "14:20", items[0].LastTime)
	assert.Equal(t, 2, items[0].UnreadCount)
	assert.NotEmpty(t, items[0].AvatarURL) // fallback applied

	assert.Equal(t, "Yesterday", items[1].LastTime)
	assert.Equal(t, "https://example.com/p.jpg", items[1].AvatarURL)

	// A refresh fully replaces the list, it never merges.
	fetcher.On("FetchConversations", mock.Anything).Return([]models.ConversationRecord{
		{ChatID: 4, UserID: 9, FirstName: "Priya", LastName: "Singh", LastMessageTime: now},
	}, nil).Once()
	require.NoError(t, aggregator.Refresh(context.Background(), true))
	require.Len(t, aggregator.Items(), 1)
	fetcher.AssertExpectations(t)
}

func TestErrorBannerSticksUntilNextSuccess(t *testing.T) {
	fetcher := new(mocks.FetcherMock)
	aggregator := conversations.NewAggregator(fetcher, nil)

	fetcher.On("FetchConversations", mock.Anything).Return([]models.ConversationRecord{
		{ChatID: 1, UserID: 2, FirstName: "Aarav", LastMessageTime: time.Now()},
	}, nil).Once()
	require.NoError(t, aggregator.Refresh(context.Background(), false))
	require.Empty(t, aggregator.LastError())

	fetcher.On("FetchConversations", mock.Anything).Return(nil, assert.AnError).Once()
	require.Error(t, aggregator.Refresh(context.Background(), true))

	// The banner is set and the previous items stay visible.
	assert.NotEmpty(t, aggregator.LastError())
	assert.Len(t, aggregator.Items(), 1)

	fetcher.On("FetchConversations", mock.Anything).Return([]models.ConversationRecord{}, nil).Once()
	require.NoError(t, aggregator.Refresh(context.Background(), true))
	assert.Empty(t, aggregator.LastError())
	assert.Empty(t, aggregator.Items())
	fetcher.AssertExpectations(t)
}

func TestLoadingFlags(t *testing.T) {
	fetcher := new(mocks.FetcherMock)
	aggregator := conversations.NewAggregator(fetcher, nil)

	firstLoad, refreshing := aggregator.Loading()
	assert.True(t, firstLoad)
	assert.False(t, refreshing)

	fetcher.On("FetchConversations", mock.Anything).Return([]models.ConversationRecord{}, nil)
	require.NoError(t, aggregator.Refresh(context.Background(), false))

	firstLoad, refreshing = aggregator.Loading()
	assert.False(t, firstLoad)
	assert.False(t, refreshing)
}
