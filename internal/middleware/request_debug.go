package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"leadflow/internal/httputil"
	"leadflow/internal/privacy"
	"leadflow/internal/service"
	"leadflow/internal/tracing"

	"github.com/sirupsen/logrus"
)

// debugBodyLimit caps how much of a request or response body is copied into
// a log entry.
const debugBodyLimit = 1024

var sensitiveDebugHeaders = map[string]bool{
	"authorization":       true,
	"cookie":              true,
	"set-cookie":          true,
	"x-api-key":           true,
	"x-auth-token":        true,
	"x-webhook-signature": true,
}

var debugSkipPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// RequestDebugMiddleware is mounted only when the operator asked for
// verbose logging. It marks each request context as verbose so downstream
// services emit their own debug detail, and logs masked request and
// response bodies for the webhook endpoints. Health and metrics polling is
// skipped.
func RequestDebugMiddleware(logger *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if debugSkipPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), service.VerboseContextKey, true)
			r = r.WithContext(ctx)

			requestInfo := tracing.GetRequestInfo(ctx)
			logger.WithFields(logrus.Fields{
				service.LogFieldRequestID: requestInfo.RequestID,
				service.LogFieldTraceID:   requestInfo.TraceID,
				service.LogFieldMethod:    r.Method,
				service.LogFieldURL:       r.URL.String(),
				service.LogFieldRemoteIP:  httputil.ClientIP(r),
				"request_headers":         maskedHeaders(r.Header),
				"request_body":            snippetOf(readAndRestoreBody(r)),
			}).Debug("Request detail")

			capture := &debugResponseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(capture, r)

			logger.WithFields(logrus.Fields{
				service.LogFieldRequestID:  requestInfo.RequestID,
				service.LogFieldTraceID:    requestInfo.TraceID,
				service.LogFieldStatusCode: capture.status,
				"response_body":            snippetOf(capture.body.String()),
			}).Debug("Response detail")
		})
	}
}

func maskedHeaders(header http.Header) map[string]string {
	out := make(map[string]string, len(header))
	for name, values := range header {
		if sensitiveDebugHeaders[strings.ToLower(name)] {
			out[name] = "***"
			continue
		}
		out[name] = strings.Join(values, ", ")
	}
	return out
}

// readAndRestoreBody pulls the request body for logging and puts it back
// for the handler. Only JSON payloads are worth capturing here.
func readAndRestoreBody(r *http.Request) string {
	if r.Body == nil || !strings.Contains(r.Header.Get("Content-Type"), "json") {
		return ""
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return ""
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	return string(body)
}

func snippetOf(body string) string {
	if body == "" {
		return ""
	}
	if len(body) > debugBodyLimit {
		body = body[:debugBodyLimit]
	}
	masked := privacy.MaskSensitiveFields(map[string]interface{}{"body": body})
	s, _ := masked["body"].(string)
	return s
}

type debugResponseWriter struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (d *debugResponseWriter) WriteHeader(status int) {
	d.status = status
	d.ResponseWriter.WriteHeader(status)
}

func (d *debugResponseWriter) Write(p []byte) (int, error) {
	n, err := d.ResponseWriter.Write(p)
	if n > 0 && d.body.Len() < debugBodyLimit {
		d.body.Write(p[:n])
	}
	return n, err
}
