// Package models holds the GORM-backed persisted shapes of the Session
// Store (C2): chat sessions and the messages appended to them.
package models

import "time"

// ChatSession is a server-assigned, ownership-scoped conversation.
type ChatSession struct {
	ID          string    `json:"chatId" gorm:"primaryKey"`
	UserID      string    `json:"userId" gorm:"index;not null"`
	Title       string    `json:"title"`
	CreatedAt   time.Time `json:"createdAt"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Message is one turn of a ChatSession's transcript. ID is assigned by the
// caller (server-side, before the write) so that a retried append is
// idempotent: the unique index on ID alone makes a second insert with the
// same ID a no-op.
type Message struct {
	ID         string    `json:"messageId" gorm:"primaryKey"`
	ChatID     string    `json:"chatId" gorm:"index:idx_chat_timestamp;not null"`
	Role       string    `json:"role"`
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp" gorm:"index:idx_chat_timestamp"`
	SourceType string    `json:"sourceType"`
}
