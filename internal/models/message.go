package models

import "encoding/json"

// SenderType tags which side of the conversation produced a message.
type SenderType string

const (
	SenderTypeLead      SenderType = "lead"
	SenderTypeSecretary SenderType = "secretary"
	SenderTypeUnknown   SenderType = "unknown"
)

// ParseSenderType maps a raw tag to a SenderType. Anything that is not an
// explicit lead/secretary tag collapses to SenderTypeUnknown.
func ParseSenderType(raw string) SenderType {
	switch raw {
	case string(SenderTypeLead):
		return SenderTypeLead
	case string(SenderTypeSecretary):
		return SenderTypeSecretary
	default:
		return SenderTypeUnknown
	}
}

// Message is the canonical, storage-ready representation of one inbound
// chat event.
type Message struct {
	ID            int64      `json:"id,omitempty"`
	MessageID     string     `json:"message_id"`
	SenderPhone   string     `json:"sender_phone"`
	ReceiverPhone string     `json:"receiver_phone"`
	SenderType    SenderType `json:"sender_type"`
	Content       string     `json:"content"`
	MessageType   string     `json:"message_type,omitempty"`
	Timestamp     string     `json:"timestamp"`
}

// SaveResult reports the outcome of persisting a message. Duplicate is the
// expected signal for an at-least-once redelivery, not an error.
type SaveResult struct {
	RowID     int64
	Duplicate bool
}

// GroupResult is returned for every grouping call and consumed by the
// webhook caller or batch tool.
type GroupResult struct {
	Status             string `json:"status"`
	ConversationID     string `json:"conversation_id"`
	ReadyForDownstream bool   `json:"ready_for_downstream"`
}

// MarshalJSON keeps conversation_id present on error results, rendered as
// an explicit null rather than an omitted field or an empty string.
func (r GroupResult) MarshalJSON() ([]byte, error) {
	type plain GroupResult
	out := struct {
		plain
		ConversationID *string `json:"conversation_id"`
	}{plain: plain(r)}
	if r.ConversationID != "" {
		out.ConversationID = &r.ConversationID
	}
	return json.Marshal(out)
}

const (
	GroupStatusOK    = "ok"
	GroupStatusError = "error"
)
