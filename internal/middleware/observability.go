package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"leadflow/internal/httputil"
	"leadflow/internal/metrics"
	"leadflow/internal/privacy"
	"leadflow/internal/service"
	"leadflow/internal/tracing"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ObservabilityMiddleware instruments every request: it opens a span, seeds
// the logging scope with correlation ids, counts and times the request, and
// writes a start and completion log line.
func ObservabilityMiddleware(logger *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracing.WithOtelTracing(r.Context(), "http_request")
			defer span.End()

			ctx = tracing.WithRequestID(ctx, tracing.GenerateRequestID())
			ctx = tracing.WithStartTime(ctx, time.Now())
			r = r.WithContext(ctx)

			clientIP := httputil.ClientIP(r)
			tracing.AddSpanAttributes(ctx,
				attribute.String("http.method", r.Method),
				attribute.String("http.route", r.URL.Path),
				attribute.String("http.url", r.URL.String()),
				attribute.String("client.address", clientIP),
				attribute.String("user_agent.original", r.UserAgent()),
			)

			info := tracing.GetRequestInfo(ctx)
			logger.WithFields(logrus.Fields{
				service.LogFieldRequestID: info.RequestID,
				service.LogFieldTraceID:   info.TraceID,
				service.LogFieldMethod:    r.Method,
				service.LogFieldURL:       r.URL.Path,
				service.LogFieldRemoteIP:  clientIP,
				service.LogFieldUserAgent: r.UserAgent(),
				"content_length":          r.ContentLength,
			}).Info("HTTP request started")

			endpointLabels := map[string]string{"method": r.Method, "endpoint": r.URL.Path}
			metrics.IncrementCounter("http_requests_total", endpointLabels, "Total HTTP requests")
			metrics.IncrementCounter("http_requests_active", nil, "Currently active HTTP requests")
			defer metrics.AddToCounter("http_requests_active", -1, nil, "Currently active HTTP requests")

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			elapsed := tracing.Duration(ctx)
			tracing.AddSpanAttributes(ctx,
				attribute.Int("http.response.status_code", rec.status),
				attribute.Int64("http.response.size", rec.bytes),
				attribute.Int64("http.request.duration_ms", elapsed.Milliseconds()),
			)
			if rec.status >= 400 {
				tracing.SetSpanStatus(ctx, codes.Error, fmt.Sprintf("HTTP %d", rec.status))
			} else {
				tracing.SetSpanStatus(ctx, codes.Ok, "")
			}

			statusLabels := map[string]string{
				"method":      r.Method,
				"endpoint":    r.URL.Path,
				"status_code": strconv.Itoa(rec.status),
			}
			metrics.RecordTimer("http_request_duration", elapsed, statusLabels, "HTTP request duration")
			metrics.IncrementCounter("http_responses_total", statusLabels, "HTTP responses by status code")

			logger.WithFields(logrus.Fields{
				service.LogFieldRequestID:  info.RequestID,
				service.LogFieldTraceID:    info.TraceID,
				service.LogFieldMethod:     r.Method,
				service.LogFieldURL:        r.URL.Path,
				service.LogFieldStatusCode: rec.status,
				service.LogFieldDuration:   elapsed.Milliseconds(),
				service.LogFieldRemoteIP:   clientIP,
				service.LogFieldSize:       rec.bytes,
			}).Log(completionLevel(rec.status), "HTTP request completed")
		})
	}
}

// WebhookObservabilityMiddleware layers webhook-specific metrics and masked
// logging on top of the base instrumentation. webhookType labels the
// metrics so each ingestion source is visible on its own.
func WebhookObservabilityMiddleware(logger *logrus.Logger, webhookType string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ctx, span := tracing.WithOtelTracing(r.Context(), "webhook_request")
			defer span.End()
			r = r.WithContext(ctx)

			tracing.AddSpanAttributes(ctx,
				attribute.String("webhook.type", webhookType),
				attribute.String("http.method", r.Method),
				attribute.String("client.address", httputil.ClientIP(r)),
				attribute.Int64("http.request.content_length", r.ContentLength),
			)

			typeLabel := map[string]string{"type": webhookType}
			metrics.IncrementCounter("webhook_requests_total", typeLabel, "Total webhook requests by type")

			info := tracing.GetRequestInfo(ctx)
			logWebhookFields(logger, logrus.InfoLevel, "Webhook request started", map[string]interface{}{
				service.LogFieldRequestID: info.RequestID,
				service.LogFieldTraceID:   info.TraceID,
				service.LogFieldService:   "webhook",
				service.LogFieldComponent: webhookType,
				service.LogFieldRemoteIP:  httputil.ClientIP(r),
				"content_type":            r.Header.Get("Content-Type"),
				"content_length":          r.ContentLength,
			})

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			elapsed := time.Since(start)
			tracing.AddSpanAttributes(ctx,
				attribute.Int("http.response.status_code", rec.status),
				attribute.Int64("webhook.processing_duration_ms", elapsed.Milliseconds()),
			)

			metrics.RecordTimer("webhook_processing_duration", elapsed, map[string]string{
				"type":        webhookType,
				"status_code": strconv.Itoa(rec.status),
			}, "Webhook processing duration")

			level := logrus.InfoLevel
			if rec.status >= 400 {
				level = logrus.ErrorLevel
				tracing.SetSpanStatus(ctx, codes.Error, fmt.Sprintf("Webhook failed with HTTP %d", rec.status))
				metrics.IncrementCounter("webhook_errors_total", map[string]string{
					"type":        webhookType,
					"status_code": strconv.Itoa(rec.status),
				}, "Webhook processing errors")
			} else {
				tracing.SetSpanStatus(ctx, codes.Ok, "Webhook processed successfully")
				metrics.IncrementCounter("webhook_success_total", typeLabel, "Successful webhook processing")
			}

			logWebhookFields(logger, level, "Webhook request completed", map[string]interface{}{
				service.LogFieldRequestID:  info.RequestID,
				service.LogFieldTraceID:    info.TraceID,
				service.LogFieldService:    "webhook",
				service.LogFieldComponent:  webhookType,
				service.LogFieldStatusCode: rec.status,
				service.LogFieldDuration:   elapsed.Milliseconds(),
				service.LogFieldSize:       rec.bytes,
			})
		})
	}
}

// logWebhookFields masks phone-bearing fields before they reach the log.
func logWebhookFields(logger *logrus.Logger, level logrus.Level, msg string, fields map[string]interface{}) {
	entry := make(logrus.Fields, len(fields))
	for k, v := range privacy.MaskSensitiveFields(fields) {
		entry[k] = v
	}
	logger.WithFields(entry).Log(level, msg)
}

func completionLevel(status int) logrus.Level {
	switch {
	case status >= 500:
		return logrus.ErrorLevel
	case status >= 400:
		return logrus.WarnLevel
	default:
		return logrus.InfoLevel
	}
}

// statusRecorder captures the status code and body size a handler wrote.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (s *statusRecorder) Write(p []byte) (int, error) {
	n, err := s.ResponseWriter.Write(p)
	s.bytes += int64(n)
	return n, err
}
