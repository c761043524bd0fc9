package models

import "time"

// Conversation is the aggregate bucket of messages exchanged between one
// lead and one secretary on one calendar day.
type Conversation struct {
	ConversationID string    `json:"conversation_id"`
	LeadPhone      string    `json:"lead_phone"`
	SecretaryPhone string    `json:"secretary_phone"`
	MessageCount   int       `json:"message_count"`
	FirstTimestamp string    `json:"first_timestamp"`
	LastTimestamp  string    `json:"last_timestamp"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ConversationStatus distinguishes a bucket created by this call from one
// that was extended.
type ConversationStatus string

const (
	ConversationCreated ConversationStatus = "created"
	ConversationUpdated ConversationStatus = "updated"
)

// ConversationUpsert is the result of the atomic record-message operation.
type ConversationUpsert struct {
	Status       ConversationStatus `json:"status"`
	MessageCount int                `json:"message_count"`
}
