package chatsync

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"chat-client/internal/api"
	"chat-client/internal/models"
	"chat-client/internal/observability"
	"chat-client/internal/telemetry"
)

// DefaultPollInterval matches the refresh cadence of the conversation
// screen: a full history fetch every 6 seconds while it stays open.
const DefaultPollInterval = 6 * time.Second

// ErrSessionClosed is returned by Send after Close.
var ErrSessionClosed = errors.New("session closed")

// Transport is the slice of the REST client a session needs.
type Transport interface {
	FetchMessages(ctx context.Context, peerID int) ([]models.Message, error)
	SendMessage(ctx context.Context, peerID int, text string) (models.Message, error)
}

// Options tune a session. Zero values get sane defaults.
type Options struct {
	// PollInterval between history fetches. Defaults to DefaultPollInterval.
	PollInterval time.Duration
	// Events is an optional push source; delivered messages are merged
	// by id, with polling kept as the fallback path.
	Events <-chan models.ChatEvent
	// OnUpdate receives a copy of the message list after every change.
	OnUpdate func([]models.Message)
	// OnError receives send and poll failures.
	OnError func(error)
	// Audit, when set, records send failures and endpoint mismatches
	// on the event exchange.
	Audit *telemetry.AuditEmitter
	// Clock overrides time.Now for pending-message timestamps.
	Clock func() time.Time
}

// Session owns the in-memory message list for one open conversation and
// keeps it consistent across three uncoordinated write sources: the
// periodic poll, optimistic local inserts, and send confirmations.
//
// Message lifecycle: pending -> confirmed on a successful send, or
// pending -> removed when the send fails. A merge never removes a
// still-pending entry; only its own send outcome resolves it.
type Session struct {
	transport Transport
	peerID    int
	interval  time.Duration
	events    <-chan models.ChatEvent
	onUpdate  func([]models.Message)
	onError   func(error)
	audit     *telemetry.AuditEmitter
	clock     func() time.Time

	mu       sync.Mutex
	messages []models.Message
	lastErr  error
	closed   bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Open starts a session for the conversation with peerID: an immediate
// history fetch, then the poll ticker, plus the push loop when an event
// source is configured. Close releases everything.
func Open(ctx context.Context, transport Transport, peerID int, opts Options) *Session {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		transport: transport,
		peerID:    peerID,
		interval:  opts.PollInterval,
		events:    opts.Events,
		onUpdate:  opts.OnUpdate,
		onError:   opts.OnError,
		audit:     opts.Audit,
		clock:     opts.Clock,
		cancel:    cancel,
	}

	s.wg.Add(1)
	go s.pollLoop(ctx)

	if s.events != nil {
		s.wg.Add(1)
		go s.eventLoop(ctx)
	}
	return s
}

// Close stops the poll ticker and the push loop and marks the session
// closed. Responses still in flight become no-ops. Safe to call twice.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

// Messages returns a copy of the current list in display order.
func (s *Session) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Message(nil), s.messages...)
}

// LastError reports the most recent send or poll failure. It sticks
// until the next successful poll, mirroring the error banner.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Send appends an optimistic pending entry, issues the request, and
// either confirms the entry in place or rolls it back. Whitespace-only
// text is a no-op: nothing appended, no request issued.
func (s *Session) Send(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	pending := models.Message{
		ID:     "pending-" + uuid.NewString(),
		Text:   text,
		Sender: models.SenderLocal,
		Time:   models.ClockLabel(s.clock()),
		Status: models.StatusPending,
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.messages = append(s.messages, pending)
	snapshot := append([]models.Message(nil), s.messages...)
	s.mu.Unlock()
	s.notify(snapshot)

	confirmed, err := s.transport.SendMessage(ctx, s.peerID, text)
	if err != nil {
		s.rollback(pending.ID)
		s.recordError(err)
		observability.IncSendFailure()
		s.audit.Emit(ctx, "send_failed", err.Error(), &s.peerID)
		return err
	}

	s.confirm(pending.ID, confirmed)
	return nil
}

// confirm swaps the pending entry for the server-confirmed one without
// moving it. When a push event already delivered the message under its
// server id, the pending entry is removed instead so each displayed id
// stays unique. A missing pending id (session closed in between) is a
// no-op.
func (s *Session) confirm(pendingID string, confirmed models.Message) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	pendingAt := -1
	alreadyShown := false
	for i := range s.messages {
		switch s.messages[i].ID {
		case pendingID:
			pendingAt = i
		case confirmed.ID:
			alreadyShown = true
		}
	}
	if pendingAt < 0 {
		s.mu.Unlock()
		return
	}
	if alreadyShown {
		s.messages = append(s.messages[:pendingAt], s.messages[pendingAt+1:]...)
	} else {
		s.messages[pendingAt] = confirmed
	}
	snapshot := append([]models.Message(nil), s.messages...)
	s.mu.Unlock()
	s.notify(snapshot)
}

// rollback removes exactly the pending entry, leaving the rest of the
// list as it was before the send.
func (s *Session) rollback(pendingID string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	kept := s.messages[:0]
	for _, msg := range s.messages {
		if msg.ID != pendingID {
			kept = append(kept, msg)
		}
	}
	s.messages = kept
	snapshot := append([]models.Message(nil), s.messages...)
	s.mu.Unlock()
	s.notify(snapshot)
}

func (s *Session) pollLoop(ctx context.Context) {
	defer s.wg.Done()

	s.poll(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

func (s *Session) poll(ctx context.Context) {
	msgs, err := s.transport.FetchMessages(ctx, s.peerID)
	if err != nil {
		observability.IncPollTick("error")
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, api.ErrEndpointMismatch) && !errors.Is(s.LastError(), api.ErrEndpointMismatch) {
			s.audit.Emit(ctx, "protocol_mismatch", err.Error(), &s.peerID)
		}
		// A failed tick never stops the loop; the next one still fires.
		s.recordError(err)
		return
	}
	observability.IncPollTick("ok")
	s.merge(msgs)
}

// merge applies a server snapshot: confirmed entries are fully replaced
// in server order, still-pending entries are re-appended behind them in
// their original relative order. Pending ids use a different scheme
// than server ids, so the two sets cannot collide.
func (s *Session) merge(snapshot []models.Message) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	merged := append([]models.Message(nil), snapshot...)
	for _, msg := range s.messages {
		if msg.Status == models.StatusPending {
			merged = append(merged, msg)
		}
	}
	s.messages = merged
	s.lastErr = nil
	out := append([]models.Message(nil), s.messages...)
	s.mu.Unlock()
	s.notify(out)
}

func (s *Session) eventLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-s.events:
			if !ok {
				return
			}
			s.applyEvent(event)
		}
	}
}

// applyEvent upserts a pushed message by id: replace when the id is
// already displayed, append otherwise.
func (s *Session) applyEvent(event models.ChatEvent) {
	if event.Type != "message" || event.Message == nil {
		return
	}
	msg := models.DisplayMessage(*event.Message, s.peerID)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	replaced := false
	for i := range s.messages {
		if s.messages[i].ID == msg.ID {
			s.messages[i] = msg
			replaced = true
			break
		}
	}
	if !replaced {
		s.messages = append(s.messages, msg)
	}
	snapshot := append([]models.Message(nil), s.messages...)
	s.mu.Unlock()
	s.notify(snapshot)
}

func (s *Session) recordError(err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.lastErr = err
	s.mu.Unlock()
	if s.onError != nil {
		s.onError(err)
	}
}

func (s *Session) notify(snapshot []models.Message) {
	if s.onUpdate != nil {
		s.onUpdate(snapshot)
	}
}
