package database

// Message queries
const (
	InsertMessageQuery = `
		INSERT OR IGNORE INTO messages (
			message_id, sender_phone, receiver_phone, sender_type,
			content, message_type, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	UpsertMessageQuery = `
		INSERT INTO messages (
			message_id, sender_phone, receiver_phone, sender_type,
			content, message_type, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(message_id) DO UPDATE SET
			sender_phone = excluded.sender_phone,
			receiver_phone = excluded.receiver_phone,
			sender_type = excluded.sender_type,
			content = excluded.content,
			message_type = excluded.message_type,
			timestamp = excluded.timestamp
	`

	SelectMessageByIDQuery = `
		SELECT id, message_id, sender_phone, receiver_phone, sender_type,
		       content, message_type, timestamp
		FROM messages
		WHERE message_id = ?
	`

	SelectMessageRowIDQuery = `
		SELECT id FROM messages WHERE message_id = ?
	`

	CountMessagesQuery = `
		SELECT COUNT(*) FROM messages
	`
)

// Conversation queries
const (
	SelectConversationForUpdateQuery = `
		SELECT message_count, first_timestamp, last_timestamp
		FROM conversations
		WHERE conversation_id = ?
	`

	InsertConversationQuery = `
		INSERT INTO conversations (
			conversation_id, lead_phone, secretary_phone,
			message_count, first_timestamp, last_timestamp
		) VALUES (?, ?, ?, 1, ?, ?)
	`

	UpdateConversationQuery = `
		UPDATE conversations
		SET message_count = message_count + 1,
		    first_timestamp = ?,
		    last_timestamp = ?
		WHERE conversation_id = ?
	`

	SelectConversationByIDQuery = `
		SELECT conversation_id, lead_phone, secretary_phone, message_count,
		       first_timestamp, last_timestamp, created_at, updated_at
		FROM conversations
		WHERE conversation_id = ?
	`
)
