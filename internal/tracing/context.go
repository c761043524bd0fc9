package tracing

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// scope carries the per-request correlation identifiers. It lives under a
// single unexported context key; callers only see the With*/Get* helpers.
type scope struct {
	requestID string
	traceID   string
	spanID    string
	start     time.Time
}

type ctxKey struct{}

// RequestInfo is the logging view of a request's correlation identifiers.
type RequestInfo struct {
	RequestID string    `json:"request_id"`
	TraceID   string    `json:"trace_id"`
	SpanID    string    `json:"span_id"`
	StartTime time.Time `json:"start_time"`
}

func scopeFrom(ctx context.Context) scope {
	if s, ok := ctx.Value(ctxKey{}).(scope); ok {
		return s
	}
	return scope{}
}

func withScope(ctx context.Context, s scope) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// GenerateRequestID returns a short random identifier for one HTTP request.
func GenerateRequestID() string {
	return "req_" + randomHex(8)
}

func newTraceID() string {
	return randomHex(16)
}

func newSpanID() string {
	return randomHex(8)
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing is effectively fatal elsewhere; a clock-based
		// id keeps log correlation alive regardless.
		return fmt.Sprintf("t%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}

// WithRequestID attaches a request id to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	s := scopeFrom(ctx)
	s.requestID = requestID
	return withScope(ctx, s)
}

// WithTraceID attaches a trace id to the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	s := scopeFrom(ctx)
	s.traceID = traceID
	return withScope(ctx, s)
}

// WithSpanID attaches a span id to the context.
func WithSpanID(ctx context.Context, spanID string) context.Context {
	s := scopeFrom(ctx)
	s.spanID = spanID
	return withScope(ctx, s)
}

// WithStartTime records when handling of the request began.
func WithStartTime(ctx context.Context, start time.Time) context.Context {
	s := scopeFrom(ctx)
	s.start = start
	return withScope(ctx, s)
}

// WithFullTracing populates the context with fresh correlation identifiers
// and a start time. Used by entry points that are not HTTP handlers, such
// as the batch tool.
func WithFullTracing(ctx context.Context) context.Context {
	return withScope(ctx, scope{
		requestID: GenerateRequestID(),
		traceID:   newTraceID(),
		spanID:    newSpanID(),
		start:     time.Now(),
	})
}

// GetRequestID returns the request id, or "" when none was attached.
func GetRequestID(ctx context.Context) string {
	return scopeFrom(ctx).requestID
}

// GetTraceID returns the trace id, or "" when none was attached.
func GetTraceID(ctx context.Context) string {
	return scopeFrom(ctx).traceID
}

// GetRequestInfo bundles every correlation identifier for log fields.
func GetRequestInfo(ctx context.Context) *RequestInfo {
	s := scopeFrom(ctx)
	return &RequestInfo{
		RequestID: s.requestID,
		TraceID:   s.traceID,
		SpanID:    s.spanID,
		StartTime: s.start,
	}
}

// Duration reports how long the request has been running, or 0 when no
// start time was recorded.
func Duration(ctx context.Context) time.Duration {
	s := scopeFrom(ctx)
	if s.start.IsZero() {
		return 0
	}
	return time.Since(s.start)
}
