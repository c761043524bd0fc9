package main

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"leadflow/internal/models"
	"leadflow/internal/service"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	seen map[string]bool
	err  error
}

func (s *stubStore) SaveMessage(ctx context.Context, msg *models.Message, overwrite bool) (*models.SaveResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.seen == nil {
		s.seen = make(map[string]bool)
	}
	duplicate := s.seen[msg.MessageID]
	s.seen[msg.MessageID] = true
	return &models.SaveResult{RowID: 1, Duplicate: duplicate}, nil
}

type stubGrouper struct {
	result models.GroupResult
	err    error
}

func (g *stubGrouper) Group(ctx context.Context, msg *models.Message) (models.GroupResult, error) {
	return g.result, g.err
}

func testConfig() *models.Config {
	return &models.Config{
		Server: models.ServerConfig{
			Port:            8082,
			ReadTimeoutSec:  15,
			WriteTimeoutSec: 15,
			IdleTimeoutSec:  60,
			MaxBodyBytes:    1024 * 1024,
		},
		Database: models.DatabaseConfig{Path: "/tmp/leadflow-test.db"},
		Grouping: models.GroupingConfig{ReadyThreshold: 3},
	}
}

func newTestServer(t *testing.T, store *stubStore, grp *stubGrouper) *Server {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	ingest, err := service.NewIngestService(store, grp, logger)
	require.NoError(t, err)

	return NewServer(testConfig(), ingest, logger, false)
}

func chatEventBody(t *testing.T, id string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"data": map[string]interface{}{
			"id":          id,
			"from":        "5511999168646@s.whatsapp.net",
			"to":          "5511888000111@s.whatsapp.net",
			"sender_type": "lead",
			"timestamp":   float64(1722945600),
			"text":        map[string]interface{}{"body": "hello"},
		},
	})
	require.NoError(t, err)
	return body
}

func TestServer_HandleHealth(t *testing.T) {
	server := newTestServer(t, &stubStore{}, &stubGrouper{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	server.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestServer_HandleMetrics(t *testing.T) {
	server := newTestServer(t, &stubStore{}, &stubGrouper{})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	server.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var snapshot map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snapshot))
	assert.Contains(t, snapshot, "counters")
	assert.Contains(t, snapshot, "uptime_ms")
}

func TestServer_HandleChatWebhook(t *testing.T) {
	grp := &stubGrouper{result: models.GroupResult{
		Status:             models.GroupStatusOK,
		ConversationID:     "5511999168646_20240806",
		ReadyForDownstream: false,
	}}
	server := newTestServer(t, &stubStore{}, grp)

	req := httptest.NewRequest(http.MethodPost, "/webhook/chat", bytes.NewReader(chatEventBody(t, "wamid.test-1")))
	w := httptest.NewRecorder()

	server.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var result service.IngestResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, service.IngestStatusProcessed, result.Status)
	require.NotNil(t, result.Group)
	assert.Equal(t, "5511999168646_20240806", result.Group.ConversationID)
}

func TestServer_HandleChatWebhookBareEvent(t *testing.T) {
	grp := &stubGrouper{result: models.GroupResult{
		Status:         models.GroupStatusOK,
		ConversationID: "5511999168646_20240806",
	}}
	server := newTestServer(t, &stubStore{}, grp)

	// Same event without the exporter envelope
	bare, err := json.Marshal(map[string]interface{}{
		"id":          "wamid.bare-1",
		"from":        "5511999168646@s.whatsapp.net",
		"to":          "5511888000111@s.whatsapp.net",
		"sender_type": "lead",
		"timestamp":   float64(1722945600),
		"text":        map[string]interface{}{"body": "hello"},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/webhook/chat", bytes.NewReader(bare))
	w := httptest.NewRecorder()

	server.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_HandleChatWebhookDuplicate(t *testing.T) {
	grp := &stubGrouper{result: models.GroupResult{
		Status:         models.GroupStatusOK,
		ConversationID: "5511999168646_20240806",
	}}
	server := newTestServer(t, &stubStore{}, grp)

	body := chatEventBody(t, "wamid.dup-1")

	for i, wantStatus := range []string{service.IngestStatusProcessed, service.IngestStatusDuplicate} {
		req := httptest.NewRequest(http.MethodPost, "/webhook/chat", bytes.NewReader(body))
		w := httptest.NewRecorder()

		server.router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code, "delivery %d", i+1)

		var result service.IngestResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.Equal(t, wantStatus, result.Status, "delivery %d", i+1)
	}
}

func TestServer_HandleChatWebhookForce(t *testing.T) {
	grp := &stubGrouper{result: models.GroupResult{
		Status:         models.GroupStatusOK,
		ConversationID: "5511999168646_20240806",
	}}
	server := newTestServer(t, &stubStore{}, grp)

	body := chatEventBody(t, "wamid.force-1")

	first := httptest.NewRequest(http.MethodPost, "/webhook/chat", bytes.NewReader(body))
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, first)
	require.Equal(t, http.StatusOK, w.Code)

	// Redelivery with force re-groups instead of short-circuiting
	second := httptest.NewRequest(http.MethodPost, "/webhook/chat?force=true", bytes.NewReader(body))
	w = httptest.NewRecorder()
	server.router.ServeHTTP(w, second)
	require.Equal(t, http.StatusOK, w.Code)

	var result service.IngestResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, service.IngestStatusProcessed, result.Status)
}

func TestServer_HandleChatWebhookMalformed(t *testing.T) {
	server := newTestServer(t, &stubStore{}, &stubGrouper{})

	req := httptest.NewRequest(http.MethodPost, "/webhook/chat", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()

	server.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_HandleChatWebhookFormatRejected(t *testing.T) {
	server := newTestServer(t, &stubStore{}, &stubGrouper{})

	// Valid JSON but missing the fields the normalizer requires
	body := []byte(`{"data": {"id": "wamid.x"}}`)
	req := httptest.NewRequest(http.MethodPost, "/webhook/chat", bytes.NewReader(body))
	w := httptest.NewRecorder()

	server.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_HandleChatWebhookStoreError(t *testing.T) {
	store := &stubStore{err: fmt.Errorf("database is locked")}
	server := newTestServer(t, store, &stubGrouper{})

	req := httptest.NewRequest(http.MethodPost, "/webhook/chat", bytes.NewReader(chatEventBody(t, "wamid.err-1")))
	w := httptest.NewRecorder()

	server.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestServer_HandleChatWebhookSignature(t *testing.T) {
	secret := "test-webhook-secret-0123456789abcdef"
	t.Setenv("LEADFLOW_WEBHOOK_SECRET", secret)

	grp := &stubGrouper{result: models.GroupResult{
		Status:         models.GroupStatusOK,
		ConversationID: "5511999168646_20240806",
	}}
	server := newTestServer(t, &stubStore{}, grp)

	body := chatEventBody(t, "wamid.sig-1")

	t.Run("missing signature rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/webhook/chat", bytes.NewReader(body))
		w := httptest.NewRecorder()

		server.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("valid signature accepted", func(t *testing.T) {
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write(body)
		signature := "sha256=" + hex.EncodeToString(mac.Sum(nil))

		req := httptest.NewRequest(http.MethodPost, "/webhook/chat", bytes.NewReader(body))
		req.Header.Set(signatureHeader, signature)
		w := httptest.NewRecorder()

		server.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("tampered body rejected", func(t *testing.T) {
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write(body)
		signature := "sha256=" + hex.EncodeToString(mac.Sum(nil))

		tampered := bytes.Replace(body, []byte("hello"), []byte("howdy"), 1)
		req := httptest.NewRequest(http.MethodPost, "/webhook/chat", bytes.NewReader(tampered))
		req.Header.Set(signatureHeader, signature)
		w := httptest.NewRecorder()

		server.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestServer_MethodNotAllowed(t *testing.T) {
	server := newTestServer(t, &stubStore{}, &stubGrouper{})

	req := httptest.NewRequest(http.MethodGet, "/webhook/chat", nil)
	w := httptest.NewRecorder()

	server.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestServer_VerboseRequestDebugLogging(t *testing.T) {
	logger, hook := logrustest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	ingest, err := service.NewIngestService(&stubStore{}, &stubGrouper{
		result: models.GroupResult{Status: models.GroupStatusOK, ConversationID: "5511999168646_20240806"},
	}, logger)
	require.NoError(t, err)

	server := NewServer(testConfig(), ingest, logger, true)

	req := httptest.NewRequest(http.MethodPost, "/webhook/chat", bytes.NewReader(chatEventBody(t, "wamid.verbose-1")))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(signatureHeader, "sha256=ignored-without-secret")
	w := httptest.NewRecorder()

	server.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var requestDetail, responseDetail *logrus.Entry
	for i := range hook.Entries {
		switch hook.Entries[i].Message {
		case "Request detail":
			requestDetail = &hook.Entries[i]
		case "Response detail":
			responseDetail = &hook.Entries[i]
		}
	}
	require.NotNil(t, requestDetail)
	require.NotNil(t, responseDetail)

	headers, ok := requestDetail.Data["request_headers"].(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "***", headers[signatureHeader])
	assert.Contains(t, requestDetail.Data["request_body"], "wamid.verbose-1")
	assert.Equal(t, http.StatusOK, responseDetail.Data["status_code"])
}

func TestServer_HealthSkipsRequestDebugLogging(t *testing.T) {
	logger, hook := logrustest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	ingest, err := service.NewIngestService(&stubStore{}, &stubGrouper{}, logger)
	require.NoError(t, err)

	server := NewServer(testConfig(), ingest, logger, true)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	for _, e := range hook.Entries {
		assert.NotEqual(t, "Request detail", e.Message)
	}
}
