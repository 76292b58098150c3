package conversations

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"chat-client/internal/models"
)

// Fallback avatar when the server sends none, as the app shipped it.
const fallbackAvatarURL = "https://randomuser.me/api/portraits/men/1.jpg"

// Fetcher is the slice of the REST client the aggregator needs.
type Fetcher interface {
	FetchConversations(ctx context.Context) ([]models.ConversationRecord, error)
}

// Aggregator fetches and formats the conversation list. Every refresh
// fully replaces the items; there is no local persistence or merging.
type Aggregator struct {
	fetcher Fetcher
	clock   func() time.Time

	mu         sync.Mutex
	items      []models.Conversation
	lastErr    string
	firstLoad  bool
	refreshing bool
}

// NewAggregator builds an Aggregator. clock may be nil for time.Now.
func NewAggregator(fetcher Fetcher, clock func() time.Time) *Aggregator {
	if clock == nil {
		clock = time.Now
	}
	return &Aggregator{fetcher: fetcher, clock: clock, firstLoad: true}
}

// Refresh reloads the list. background distinguishes a pull-to-refresh
// style reload from the first load; both run the same fetch, the flag
// only selects which loading indicator the caller shows.
func (a *Aggregator) Refresh(ctx context.Context, background bool) error {
	a.mu.Lock()
	if background {
		a.refreshing = true
	} else {
		a.firstLoad = true
	}
	a.mu.Unlock()

	records, err := a.fetcher.FetchConversations(ctx)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.firstLoad = false
	a.refreshing = false

	if err != nil {
		// The banner sticks until the next successful fetch; the
		// previous items stay visible.
		a.lastErr = err.Error()
		return err
	}

	now := a.clock()
	items := make([]models.Conversation, 0, len(records))
	for _, rec := range records {
		items = append(items, formatConversation(rec, now))
	}
	a.items = items
	a.lastErr = ""
	return nil
}

// Items returns a copy of the current list in server order.
func (a *Aggregator) Items() []models.Conversation {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]models.Conversation(nil), a.items...)
}

// LastError returns the banner text, empty when the last fetch worked.
func (a *Aggregator) LastError() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastErr
}

// Loading reports the two indicator flags: first load and background
// refresh.
func (a *Aggregator) Loading() (firstLoad, refreshing bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.firstLoad, a.refreshing
}

func formatConversation(rec models.ConversationRecord, now time.Time) models.Conversation {
	avatar := rec.Image
	if avatar == "" {
		avatar = fallbackAvatarURL
	}
	name := strings.TrimSpace(rec.FirstName + " " + rec.LastName)
	return models.Conversation{
		ID:          strconv.Itoa(rec.ChatID),
		PeerUserID:  rec.UserID,
		PeerName:    name,
		AvatarURL:   avatar,
		LastMessage: rec.LastMessage,
		LastTime:    FormatTime(rec.LastMessageTime, now),
		UnreadCount: rec.UnreadCount,
	}
}

// FormatTime renders a recency label: hour:minute for today,
// "Yesterday" for the previous calendar day, an abbreviated month and
// day otherwise. Comparison is by calendar day in local time, so a
// timestamp 25 hours back that crosses one midnight still reads
// "Yesterday".
func FormatTime(ts, now time.Time) string {
	ts = ts.In(now.Location())
	if sameDay(ts, now) {
		return ts.Format("15:04")
	}
	if sameDay(ts, now.AddDate(0, 0, -1)) {
		return "Yesterday"
	}
	return ts.Format("Jan 2")
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
