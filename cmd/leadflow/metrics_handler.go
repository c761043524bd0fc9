package main

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"leadflow/internal/metrics"
	"leadflow/internal/service"
	"leadflow/internal/tracing"
)

// handleMetrics serves the in-process metrics snapshot as indented JSON.
// The response is marked uncacheable so operators always see live values.
func (s *Server) handleMetrics() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info := tracing.GetRequestInfo(r.Context())

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")

		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(metrics.GetAllMetrics()); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				service.LogFieldRequestID: info.RequestID,
				service.LogFieldTraceID:   info.TraceID,
			}).Error("Failed to encode metrics response")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
	}
}
