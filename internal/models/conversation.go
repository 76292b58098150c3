package models

import "time"

// Conversation is the display form of a chat list entry.
type Conversation struct {
	ID          string `json:"id"`
	PeerUserID  int    `json:"peer_user_id"`
	PeerName    string `json:"peer_name"`
	AvatarURL   string `json:"avatar_url"`
	LastMessage string `json:"last_message"`
	LastTime    string `json:"last_time"`
	UnreadCount int    `json:"unread_count"`
}

// ConversationRecord is a chat list entry as the backend returns it.
type ConversationRecord struct {
	ChatID          int       `json:"chatId"`
	UserID          int       `json:"userId"`
	FirstName       string    `json:"firstName"`
	LastName        string    `json:"lastName"`
	Image           string    `json:"image"`
	LastMessage     string    `json:"lastMessage"`
	LastMessageTime time.Time `json:"lastMessageTime"`
	UnreadCount     int       `json:"unreadCount"`
}
