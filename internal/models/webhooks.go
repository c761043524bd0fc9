package models

// RawMessage is one inbound chat event exactly as captured from the webhook
// exporter. Payload shapes vary across providers and provider versions, so
// the event is kept as a loose JSON object and interpreted tolerantly by the
// normalizer.
type RawMessage map[string]interface{}

// WebhookEnvelope is the wrapper the automation exporter puts around each
// captured event.
type WebhookEnvelope struct {
	Data RawMessage `json:"data"`
}

// HasData reports whether the envelope actually carries an event.
func (e *WebhookEnvelope) HasData() bool {
	return len(e.Data) > 0
}

// String returns the value under key when it is a non-empty string.
func (m RawMessage) String(key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}
