package models

import (
	"strconv"
	"time"
)

// Sender tags a message for rendering: the local user or the remote peer.
type Sender string

const (
	SenderLocal Sender = "me"
	SenderPeer  Sender = "peer"
)

// Status tracks a message through the optimistic-send lifecycle.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
)

// Message is the display form of a chat message. Confirmed messages carry
// the server-assigned id; pending ones a locally generated id that can
// never collide with a server sequence number.
type Message struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Sender Sender `json:"sender"`
	Time   string `json:"time"`
	Status Status `json:"status"`
}

// MessageRecord is a message as the backend returns it.
type MessageRecord struct {
	ID        int       `json:"id"`
	SenderID  int       `json:"senderId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// DisplayMessage converts a server record into its display form, tagging
// the sender relative to the peer the conversation is open with.
func DisplayMessage(rec MessageRecord, peerID int) Message {
	sender := SenderLocal
	if rec.SenderID == peerID {
		sender = SenderPeer
	}
	return Message{
		ID:     strconv.Itoa(rec.ID),
		Text:   rec.Content,
		Sender: sender,
		Time:   ClockLabel(rec.CreatedAt),
		Status: StatusConfirmed,
	}
}

// ClockLabel renders a timestamp as a local hour:minute label.
func ClockLabel(t time.Time) string {
	return t.Local().Format("15:04")
}

// ChatEvent is what the real-time channel delivers.
type ChatEvent struct {
	Type    string         `json:"type"`
	Message *MessageRecord `json:"message,omitempty"`
}
