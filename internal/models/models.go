package models

import "time"

// User is the slice of a directory record the relay cares about: enough to
// enrich outbound payloads with a display name and picture.
type User struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	ProfilePic string `json:"profile_pic,omitempty"`
}

type Message struct {
	ID         string    `json:"id"`
	FromUserID string    `json:"from_user_id"`
	ToUserID   string    `json:"to_user_id"`
	Content    string    `json:"content"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"created_at"`
}

// Conversation summarizes all traffic with one partner. It is derived from
// the message set on every query, never stored.
type Conversation struct {
	UserID          string    `json:"user_id"`
	Username        string    `json:"username"`
	ProfilePic      string    `json:"profile_pic,omitempty"`
	LastMessage     string    `json:"last_message"`
	LastMessageTime time.Time `json:"last_message_time"`
	UnreadCount     int       `json:"unread_count"`
}
