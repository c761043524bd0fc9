package normalizer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode"

	"leadflow/internal/models"
)

// FormatError reports a raw event that lacks the information required to
// build a canonical message.
type FormatError struct {
	Message string
}

func (e FormatError) Error() string {
	return e.Message
}

// contentStrategy extracts the textual body from one known payload shape.
// Strategies are tried in order; the first hit wins. Keeping them in one
// list keeps the fallback policy reviewable in a single place.
type contentStrategy func(models.RawMessage) (string, bool)

var contentStrategies = []contentStrategy{
	// Cloud API shape: {"text": {"body": "..."}}
	func(raw models.RawMessage) (string, bool) {
		text, ok := raw["text"].(map[string]interface{})
		if !ok {
			return "", false
		}
		body, ok := text["body"].(string)
		return body, ok
	},
	// Flat body field
	func(raw models.RawMessage) (string, bool) {
		v, ok := raw["body"]
		if !ok {
			return "", false
		}
		return fmt.Sprint(v), true
	},
	// Generic content field
	func(raw models.RawMessage) (string, bool) {
		v, ok := raw["content"]
		if !ok {
			return "", false
		}
		return fmt.Sprint(v), true
	},
}

// timestampLayouts accepted for already-formatted timestamps, tried in order.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Format converts a raw webhook event into the canonical message record.
// It is pure and safe to call concurrently. Only identity and timestamp are
// mandatory; every other field degrades to its zero value.
func Format(raw models.RawMessage) (*models.Message, error) {
	senderRef := participantRef(raw, "from", "sender_raw_data")
	receiverRef := participantRef(raw, "to", "receiver_raw_data")
	content := extractContent(raw)

	messageID, err := resolveIdentity(raw, senderRef, receiverRef, content)
	if err != nil {
		return nil, err
	}

	timestamp, err := normalizeTimestamp(raw["timestamp"])
	if err != nil {
		return nil, err
	}

	msg := &models.Message{
		MessageID:     messageID,
		SenderPhone:   SanitizePhone(senderRef),
		ReceiverPhone: SanitizePhone(receiverRef),
		SenderType:    senderType(raw),
		Content:       content,
		Timestamp:     timestamp,
	}
	if mt, ok := raw.String("message_type"); ok {
		msg.MessageType = mt
	}
	return msg, nil
}

// resolveIdentity prefers an explicit id from the source system and falls
// back to a deterministic content hash, so redelivery of an identical raw
// payload always yields the same message id.
func resolveIdentity(raw models.RawMessage, senderRef, receiverRef, content string) (string, error) {
	if id, ok := raw.String("id"); ok {
		return id, nil
	}
	if id, ok := raw.String("message_id"); ok {
		return id, nil
	}

	timestampRef := ""
	if v, ok := raw["timestamp"]; ok {
		timestampRef = fmt.Sprint(v)
	}
	if senderRef == "" && receiverRef == "" && timestampRef == "" && content == "" {
		return "", FormatError{Message: "message identity cannot be derived"}
	}

	sum := sha256.Sum256([]byte(strings.Join([]string{senderRef, receiverRef, timestampRef, content}, "|")))
	return hex.EncodeToString(sum[:]), nil
}

func participantRef(raw models.RawMessage, keys ...string) string {
	for _, key := range keys {
		if v, ok := raw.String(key); ok {
			return v
		}
	}
	return ""
}

func extractContent(raw models.RawMessage) string {
	for _, strategy := range contentStrategies {
		if content, ok := strategy(raw); ok {
			return content
		}
	}
	return ""
}

func senderType(raw models.RawMessage) models.SenderType {
	tag, ok := raw.String("sender_type")
	if !ok {
		return models.SenderTypeUnknown
	}
	return models.ParseSenderType(tag)
}

// SanitizePhone reduces a participant reference to its numeric portion.
// Routing suffixes such as "@s.whatsapp.net" or "@c.us" are discarded, as is
// any non-digit character. The empty string stays empty.
func SanitizePhone(ref string) string {
	if ref == "" {
		return ""
	}
	if at := strings.IndexByte(ref, '@'); at >= 0 {
		ref = ref[:at]
	}
	var b strings.Builder
	for _, r := range ref {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// normalizeTimestamp renders the raw timestamp as an ISO-8601 string.
// Numeric values (including digit strings) are Unix epoch seconds. String
// values that fail to parse are preserved unchanged rather than dropped;
// only a wholly absent timestamp is fatal.
func normalizeTimestamp(value interface{}) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", FormatError{Message: "timestamp is missing"}
	case float64:
		return time.Unix(int64(v), 0).UTC().Format(time.RFC3339), nil
	case int:
		return time.Unix(int64(v), 0).UTC().Format(time.RFC3339), nil
	case int64:
		return time.Unix(v, 0).UTC().Format(time.RFC3339), nil
	case string:
		if v == "" {
			return "", FormatError{Message: "timestamp is missing"}
		}
		if isDigits(v) {
			var epoch int64
			if _, err := fmt.Sscanf(v, "%d", &epoch); err == nil {
				return time.Unix(epoch, 0).UTC().Format(time.RFC3339), nil
			}
		}
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t.Format(layout), nil
			}
		}
		// Keep the raw value so the record is not silently lost.
		return v, nil
	default:
		return "", FormatError{Message: fmt.Sprintf("invalid timestamp format: %v", value)}
	}
}

// ParseTimestamp parses a normalized timestamp back into a time.Time,
// accepting the same layouts the normalizer emits. The encoded offset is
// authoritative; no extra time-zone conversion is applied.
func ParseTimestamp(value string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp: %q", value)
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(s) > 0
}
