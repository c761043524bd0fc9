package validation

import (
	"fmt"
	"net/http"
	"unicode"

	"leadflow/internal/constants"
	"leadflow/internal/errors"
)

func invalid(format string, args ...interface{}) error {
	return errors.New(errors.ErrCodeInvalidInput, fmt.Sprintf(format, args...))
}

// ValidatePhoneNumber checks a sanitized phone number against the expected
// E.164-like shape: digits only, within length bounds. The normalizer never
// rejects short phones, so callers treat a failure here as a data-quality
// signal rather than a hard error.
func ValidatePhoneNumber(phone string) error {
	if phone == "" {
		return invalid("phone number cannot be empty")
	}
	if len(phone) < constants.MinPhoneNumberLength {
		return invalid("phone number must be at least %d digits", constants.MinPhoneNumberLength)
	}
	if len(phone) > constants.MaxPhoneNumberLength {
		return invalid("phone number too long (max %d digits)", constants.MaxPhoneNumberLength)
	}
	for _, r := range phone {
		if !unicode.IsDigit(r) {
			return invalid("phone number must contain only digits")
		}
	}
	return nil
}

// ValidateMessageID guards stored message ids against oversized or
// control-character-bearing values from hostile payloads.
func ValidateMessageID(messageID string) error {
	if messageID == "" {
		return invalid("message ID cannot be empty")
	}
	if len(messageID) > constants.MaxMessageIDLength {
		return invalid("message ID too long (max %d characters)", constants.MaxMessageIDLength)
	}
	for _, r := range messageID {
		switch r {
		case '\x00', '\n', '\r', '\t':
			return invalid("message ID contains invalid characters")
		}
	}
	return nil
}

// ValidateHTTPRequestSize rejects requests whose declared body size exceeds
// the configured limit.
func ValidateHTTPRequestSize(r *http.Request, maxSizeBytes int64) error {
	if r.ContentLength < 0 {
		return invalid("invalid content length")
	}
	if r.ContentLength > maxSizeBytes {
		return invalid("request too large: %d bytes (max %d bytes)", r.ContentLength, maxSizeBytes)
	}
	return nil
}

// ValidateTimeout bounds a configured timeout between one second and one
// hour.
func ValidateTimeout(timeoutSec int, fieldName string) error {
	if timeoutSec < 1 {
		return invalid("%s must be at least 1 second", fieldName)
	}
	if timeoutSec > 3600 {
		return invalid("%s too large (max 3600 seconds)", fieldName)
	}
	return nil
}

// ValidateReadyThreshold bounds the conversation ready threshold.
func ValidateReadyThreshold(threshold int) error {
	if threshold < 1 {
		return invalid("ready threshold must be at least 1")
	}
	if threshold > 1000 {
		return invalid("ready threshold too large (max 1000)")
	}
	return nil
}
