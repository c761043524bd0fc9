package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsVerboseLogging(t *testing.T) {
	ctx := context.Background()
	assert.False(t, IsVerboseLogging(ctx))

	ctx = context.WithValue(ctx, VerboseContextKey, true)
	assert.True(t, IsVerboseLogging(ctx))

	ctx = context.WithValue(context.Background(), VerboseContextKey, false)
	assert.False(t, IsVerboseLogging(ctx))
}

func TestSanitizePhoneNumber(t *testing.T) {
	assert.Equal(t, "", SanitizePhoneNumber(""))
	assert.Equal(t, "***8646", SanitizePhoneNumber("5511999168646"))
	assert.Equal(t, "***", SanitizePhoneNumber("123"))
}

func TestSanitizeMessageID(t *testing.T) {
	assert.Equal(t, "", SanitizeMessageID(""))
	assert.Equal(t, "short-id", SanitizeMessageID("short-id"))
	assert.Equal(t, "0123456789abcdef...", SanitizeMessageID("0123456789abcdef0123"))
}
