package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"leadflow/internal/migrations"
	"leadflow/internal/models"
	"leadflow/internal/security"
	"leadflow/internal/validation"

	_ "github.com/mattn/go-sqlite3"
)

// Database is the single persistence boundary of the pipeline. It owns the
// on-disk schema and exposes the atomic operations the grouper and the batch
// tools rely on. Mutual exclusion is delegated to SQLite's transaction
// discipline; a single connection serializes writers within the process.
type Database struct {
	db        *sql.DB
	encryptor *encryptor
}

func New(dbPath string) (*Database, error) {
	if len(dbPath) == 0 || dbPath[0] == '\x00' {
		return nil, fmt.Errorf("invalid database path")
	}

	// Validate database path to prevent directory traversal
	if err := security.ValidateDatabasePath(dbPath); err != nil {
		return nil, fmt.Errorf("invalid database path: %w", err)
	}

	file, err := os.OpenFile(dbPath, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create database file: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close database file: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps "read count, write count+1" free of SQLITE_BUSY
	// races between concurrent pipeline invocations in this process.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to ping database: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	schema, err := migrations.GetInitialSchema()
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to read schema: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize schema: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	encryptor, err := NewEncryptor()
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize encryptor: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize encryptor: %w", err)
	}

	return &Database{db: db, encryptor: encryptor}, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

// SaveMessage inserts a canonical message keyed by its message id. A second
// save with the same id is a no-op reported as a duplicate unless overwrite
// is set, in which case the existing row is replaced in place and keeps its
// row identity. Uniqueness is enforced by the engine itself, so concurrent
// duplicate deliveries cannot race past an application-level check.
func (d *Database) SaveMessage(ctx context.Context, msg *models.Message, overwrite bool) (*models.SaveResult, error) {
	if err := validation.ValidateMessageID(msg.MessageID); err != nil {
		return nil, fmt.Errorf("refusing to store message: %w", err)
	}

	encryptedMessageID, err := d.encryptor.EncryptForLookupIfEnabled(msg.MessageID)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt message ID: %w", err)
	}

	encryptedSender, err := d.encryptor.EncryptIfEnabled(msg.SenderPhone)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt sender phone: %w", err)
	}

	encryptedReceiver, err := d.encryptor.EncryptIfEnabled(msg.ReceiverPhone)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt receiver phone: %w", err)
	}

	encryptedContent, err := d.encryptor.EncryptIfEnabled(msg.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt content: %w", err)
	}

	args := []interface{}{
		encryptedMessageID,
		nullString(encryptedSender),
		nullString(encryptedReceiver),
		nullString(string(msg.SenderType)),
		encryptedContent,
		nullString(msg.MessageType),
		msg.Timestamp,
	}

	var result *models.SaveResult
	err = withRetry(ctx, "save message", func() error {
		if overwrite {
			if _, err := d.db.ExecContext(ctx, UpsertMessageQuery, args...); err != nil {
				return err
			}
			var rowID int64
			if err := d.db.QueryRowContext(ctx, SelectMessageRowIDQuery, encryptedMessageID).Scan(&rowID); err != nil {
				return err
			}
			result = &models.SaveResult{RowID: rowID}
			return nil
		}

		res, err := d.db.ExecContext(ctx, InsertMessageQuery, args...)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			// Row already existed; report the duplicate with its id.
			var rowID int64
			if err := d.db.QueryRowContext(ctx, SelectMessageRowIDQuery, encryptedMessageID).Scan(&rowID); err != nil {
				return err
			}
			result = &models.SaveResult{RowID: rowID, Duplicate: true}
			return nil
		}
		rowID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		result = &models.SaveResult{RowID: rowID}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}

	return result, nil
}

// GetMessage returns the stored message with the given id, or nil when none
// exists.
func (d *Database) GetMessage(ctx context.Context, messageID string) (*models.Message, error) {
	encryptedMessageID, err := d.encryptor.EncryptForLookupIfEnabled(messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt message ID: %w", err)
	}

	var (
		msg                            models.Message
		encryptedID, encryptedContent  string
		sender, receiver, mtype, stype sql.NullString
	)
	err = d.db.QueryRowContext(ctx, SelectMessageByIDQuery, encryptedMessageID).Scan(
		&msg.ID,
		&encryptedID,
		&sender,
		&receiver,
		&stype,
		&encryptedContent,
		&mtype,
		&msg.Timestamp,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	msg.MessageID = messageID
	msg.SenderType = models.ParseSenderType(stype.String)
	msg.MessageType = mtype.String

	msg.SenderPhone, err = d.encryptor.DecryptIfEnabled(sender.String)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt sender phone: %w", err)
	}
	msg.ReceiverPhone, err = d.encryptor.DecryptIfEnabled(receiver.String)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt receiver phone: %w", err)
	}
	msg.Content, err = d.encryptor.DecryptIfEnabled(encryptedContent)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt content: %w", err)
	}

	return &msg, nil
}

// UpsertConversation records one grouped message against its conversation
// bucket: the bucket is created on first sight, otherwise its counter is
// incremented and its time bounds extended. The read-or-create plus the
// write happen inside a single transaction so concurrent callers targeting
// the same conversation never produce a lost update.
func (d *Database) UpsertConversation(ctx context.Context, conversationID, messageID, leadPhone, secretaryPhone, timestamp string) (*models.ConversationUpsert, error) {
	lookupID, err := d.encryptor.EncryptForLookupIfEnabled(conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt conversation ID: %w", err)
	}
	encryptedLead, err := d.encryptor.EncryptIfEnabled(leadPhone)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt lead phone: %w", err)
	}
	encryptedSecretary, err := d.encryptor.EncryptIfEnabled(secretaryPhone)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt secretary phone: %w", err)
	}

	var result *models.ConversationUpsert
	err = withRetry(ctx, fmt.Sprintf("upsert conversation for message %s", messageID), func() error {
		tx, err := d.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		var (
			count       int
			first, last sql.NullString
		)
		err = tx.QueryRowContext(ctx, SelectConversationForUpdateQuery, lookupID).Scan(&count, &first, &last)
		switch {
		case err == sql.ErrNoRows:
			if _, err := tx.ExecContext(ctx, InsertConversationQuery,
				lookupID, encryptedLead, encryptedSecretary, timestamp, timestamp); err != nil {
				return err
			}
			result = &models.ConversationUpsert{Status: models.ConversationCreated, MessageCount: 1}
		case err != nil:
			return err
		default:
			// Bounds are compared as instants, not strings, so messages
			// carrying different UTC offsets stay ordered correctly.
			newFirst := earlierTimestamp(first.String, timestamp)
			newLast := laterTimestamp(last.String, timestamp)
			if _, err := tx.ExecContext(ctx, UpdateConversationQuery,
				newFirst, newLast, lookupID); err != nil {
				return err
			}
			result = &models.ConversationUpsert{Status: models.ConversationUpdated, MessageCount: count + 1}
		}

		return tx.Commit()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert conversation: %w", err)
	}

	return result, nil
}

// GetConversation returns the conversation bucket with the given id, or nil
// when none exists.
func (d *Database) GetConversation(ctx context.Context, conversationID string) (*models.Conversation, error) {
	lookupID, err := d.encryptor.EncryptForLookupIfEnabled(conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt conversation ID: %w", err)
	}

	var (
		convo                          models.Conversation
		encryptedID, encLead, encSecre string
		first, last                    sql.NullString
	)
	err = d.db.QueryRowContext(ctx, SelectConversationByIDQuery, lookupID).Scan(
		&encryptedID,
		&encLead,
		&encSecre,
		&convo.MessageCount,
		&first,
		&last,
		&convo.CreatedAt,
		&convo.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	convo.ConversationID = conversationID
	convo.FirstTimestamp = first.String
	convo.LastTimestamp = last.String

	convo.LeadPhone, err = d.encryptor.DecryptIfEnabled(encLead)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt lead phone: %w", err)
	}
	convo.SecretaryPhone, err = d.encryptor.DecryptIfEnabled(encSecre)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt secretary phone: %w", err)
	}

	return &convo, nil
}

// CountMessages reports the number of stored messages. Used by the batch
// tool's summary and by tests asserting idempotency.
func (d *Database) CountMessages(ctx context.Context) (int, error) {
	var count int
	if err := d.db.QueryRowContext(ctx, CountMessagesQuery).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// earlierTimestamp picks the earlier of two stored timestamps by instant.
// Normalized timestamps carry their own UTC offset, so a plain string
// comparison can misorder values from different offsets. When either side
// fails to parse the comparison falls back to lexicographic order.
func earlierTimestamp(a, b string) string {
	ta, errA := time.Parse(time.RFC3339, a)
	tb, errB := time.Parse(time.RFC3339, b)
	if errA != nil || errB != nil {
		if a <= b {
			return a
		}
		return b
	}
	if tb.Before(ta) {
		return b
	}
	return a
}

func laterTimestamp(a, b string) string {
	ta, errA := time.Parse(time.RFC3339, a)
	tb, errB := time.Parse(time.RFC3339, b)
	if errA != nil || errB != nil {
		if a >= b {
			return a
		}
		return b
	}
	if tb.After(ta) {
		return b
	}
	return a
}
