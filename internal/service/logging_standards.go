package service

// Standard structured-log field names. Every logging call uses these
// constants so dashboards and alerts can rely on stable keys.
const (
	// Pipeline identifiers
	LogFieldMessageID      = "message_id"
	LogFieldConversationID = "conversation_id"
	LogFieldSenderType     = "sender_type"
	LogFieldMessageType    = "message_type"

	// Component attribution
	LogFieldService   = "service"
	LogFieldComponent = "component"
	LogFieldMethod    = "method"
	LogFieldStatus    = "status"

	// Request tracing
	LogFieldRequestID = "request_id"
	LogFieldTraceID   = "trace_id"

	// Performance
	LogFieldDuration = "duration_ms"
	LogFieldSize     = "size_bytes"

	// HTTP surface
	LogFieldURL        = "url"
	LogFieldStatusCode = "status_code"
	LogFieldRemoteIP   = "remote_ip"
	LogFieldUserAgent  = "user_agent"

	// Filesystem
	LogFieldFilePath = "file_path"
	LogFieldFileName = "file_name"
)

// Level conventions:
//
// Debug is for per-payload detail behind verbose mode, such as normalization
// fallbacks and sanitized request bodies. Info marks lifecycle events and
// successful pipeline steps. Warn covers recoverable trouble like retryable
// database errors or duplicate deliveries. Error is for payloads that cannot
// be formatted or grouped. Fatal is reserved for startup failures.
