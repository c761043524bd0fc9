package privacy

import (
	"strings"
)

// mask hides all but the last keep characters of s.
func mask(s string, keep int) string {
	if s == "" {
		return ""
	}
	if len(s) <= keep {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-keep) + s[len(s)-keep:]
}

// MaskPhoneNumber keeps only the last 4 digits visible.
// Example: "5511999168646" -> "*********8646".
func MaskPhoneNumber(phone string) string {
	if phone == "" {
		return ""
	}
	if strings.HasPrefix(phone, "+") {
		return "+" + mask(phone[1:], 4)
	}
	return mask(phone, 4)
}

// MaskParticipantRef masks a raw participant reference that may still carry
// a routing suffix. Example: "5511999168646@s.whatsapp.net" ->
// "*********8646@s.whatsapp.net".
func MaskParticipantRef(ref string) string {
	if ref == "" {
		return ""
	}
	if at := strings.IndexByte(ref, '@'); at >= 0 {
		return MaskPhoneNumber(ref[:at]) + ref[at:]
	}
	return MaskPhoneNumber(ref)
}

// MaskMessageID keeps a short suffix for log correlation. Content-hash ids
// are long, so the suffix alone is enough to match entries.
func MaskMessageID(messageID string) string {
	return mask(messageID, 4)
}

// MaskConversationID hides the phone portion of a conversation id while
// keeping the date component readable.
// Example: "5511999168646_20250806" -> "*********8646_20250806".
func MaskConversationID(conversationID string) string {
	if conversationID == "" {
		return ""
	}
	if idx := strings.LastIndexByte(conversationID, '_'); idx >= 0 {
		return MaskPhoneNumber(conversationID[:idx]) + conversationID[idx:]
	}
	return mask(conversationID, 4)
}

// fieldMaskers routes known log field names to their masking rule.
var fieldMaskers = map[string]func(string) string{
	"phone":           MaskParticipantRef,
	"phone_number":    MaskParticipantRef,
	"from":            MaskParticipantRef,
	"to":              MaskParticipantRef,
	"lead_phone":      MaskParticipantRef,
	"secretary_phone": MaskParticipantRef,
	"sender_phone":    MaskParticipantRef,
	"receiver_phone":  MaskParticipantRef,
	"message_id":      MaskMessageID,
	"messageId":       MaskMessageID,
	"msg_id":          MaskMessageID,
	"conversation_id": MaskConversationID,
	"conversationId":  MaskConversationID,
}

// MaskSensitiveFields returns a copy of fields with identifying values
// masked. Non-string values and unknown keys pass through unchanged.
func MaskSensitiveFields(fields map[string]interface{}) map[string]interface{} {
	if fields == nil {
		return nil
	}

	masked := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if maskFn, ok := fieldMaskers[k]; ok {
			if s, isString := v.(string); isString {
				masked[k] = maskFn(s)
				continue
			}
		}
		masked[k] = v
	}
	return masked
}
