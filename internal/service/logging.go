package service

import (
	"context"

	"leadflow/internal/constants"
)

// verboseKey is the private type behind VerboseContextKey, keeping this
// package's context values collision-free.
type verboseKey string

// VerboseContextKey marks a request whose debug logs may carry sanitized
// payload detail. The request debug middleware sets it; the ingest service
// reads it.
const VerboseContextKey verboseKey = "verbose"

// IsVerboseLogging reports whether the context carries the verbose flag.
func IsVerboseLogging(ctx context.Context) bool {
	verbose, ok := ctx.Value(VerboseContextKey).(bool)
	return ok && verbose
}

// SanitizePhoneNumber keeps only a short digit suffix for log correlation.
// "5511999168646" becomes "***8646".
func SanitizePhoneNumber(phone string) string {
	switch {
	case phone == "":
		return ""
	case len(phone) <= constants.DefaultPhoneMaskLength:
		return "***"
	default:
		return "***" + phone[len(phone)-constants.DefaultPhoneMaskLength:]
	}
}

// SanitizeMessageID truncates long ids so content hashes do not flood log
// lines. Short ids pass through untouched.
func SanitizeMessageID(msgID string) string {
	if len(msgID) > constants.DefaultMessageIDLength {
		return msgID[:constants.DefaultMessageIDLength] + "..."
	}
	return msgID
}
