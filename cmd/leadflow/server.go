package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"leadflow/internal/errors"
	"leadflow/internal/httputil"
	"leadflow/internal/middleware"
	"leadflow/internal/models"
	"leadflow/internal/service"
	"leadflow/internal/tracing"
	"leadflow/internal/validation"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type Server struct {
	router      *mux.Router
	logger      *logrus.Logger
	cfg         *models.Config
	ingest      *service.IngestService
	rateLimiter *RateLimiter
	server      *http.Server
	verbose     bool
}

func NewServer(cfg *models.Config, ingest *service.IngestService, logger *logrus.Logger, verbose bool) *Server {
	s := &Server{
		router:      mux.NewRouter(),
		logger:      logger,
		cfg:         cfg,
		ingest:      ingest,
		rateLimiter: NewRateLimiter(defaultRateLimitPerWindow, defaultRateLimitWindow),
		verbose:     verbose,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.ObservabilityMiddleware(s.logger))
	if s.verbose {
		s.router.Use(middleware.RequestDebugMiddleware(s.logger))
	}

	s.router.HandleFunc("/health", s.handleHealth()).Methods(http.MethodGet)
	s.router.HandleFunc("/metrics", s.handleMetrics()).Methods(http.MethodGet)

	chat := s.router.PathPrefix("/webhook/chat").Subrouter()
	chat.Use(middleware.WebhookObservabilityMiddleware(s.logger, "chat"))
	chat.HandleFunc("", s.rateLimited(s.handleChatWebhook())).Methods(http.MethodPost)
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(s.cfg.Server.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.Server.IdleTimeoutSec) * time.Second,
	}

	s.logger.Infof("Starting server on port %d", s.cfg.Server.Port)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// rateLimited enforces the per-IP request budget before the handler runs.
func (s *Server) rateLimited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := httputil.ClientIP(r)
		if !s.rateLimiter.Allow(ip) {
			s.logger.WithField(service.LogFieldRemoteIP, ip).Warn("Rate limit exceeded")
			s.writeError(w, r, errors.NewRateLimitError(defaultRateLimitPerWindow, defaultRateLimitWindow.String()))
			return
		}
		next(w, r)
	}
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func (s *Server) handleChatWebhook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := validation.ValidateHTTPRequestSize(r, s.cfg.Server.MaxBodyBytes); err != nil {
			s.writeError(w, r, err)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodyBytes)

		body, err := verifySignature(r, webhookSecret(), signatureHeader)
		if err != nil {
			s.logger.WithError(err).Warn("Webhook signature verification failed")
			s.writeError(w, r, errors.New(errors.ErrCodeValidationFailed, "signature verification failed"))
			return
		}

		raw, err := decodeEvent(body)
		if err != nil {
			s.writeError(w, r, errors.NewFormatError("malformed webhook body", err))
			return
		}

		force := r.URL.Query().Get("force") == "true"

		result, err := s.ingest.ProcessRaw(r.Context(), raw, force)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(result); err != nil {
			s.logger.WithError(err).Error("Failed to encode webhook response")
		}
	}
}

// decodeEvent accepts either the exporter envelope ({"data": {...}}) or a
// bare event object.
func decodeEvent(body []byte) (models.RawMessage, error) {
	var envelope models.WebhookEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.HasData() {
		return envelope.Data, nil
	}

	var raw models.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty event")
	}
	return raw, nil
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	requestInfo := tracing.GetRequestInfo(r.Context())
	status := errors.HTTPStatusCode(err)

	s.logger.WithFields(errors.LogFields(err)).WithFields(logrus.Fields{
		service.LogFieldRequestID:  requestInfo.RequestID,
		service.LogFieldTraceID:    requestInfo.TraceID,
		service.LogFieldStatusCode: status,
	}).WithError(err).Error("Request failed")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errors.ToHTTPResponse(err, requestInfo.RequestID))
}
