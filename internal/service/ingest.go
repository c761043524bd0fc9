package service

import (
	"context"
	"time"

	"leadflow/internal/errors"
	"leadflow/internal/metrics"
	"leadflow/internal/models"
	"leadflow/internal/normalizer"
	"leadflow/internal/privacy"
	"leadflow/internal/tracing"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Ingest outcome statuses reported to callers and the batch tooling.
const (
	IngestStatusProcessed = "processed"
	IngestStatusDuplicate = "duplicate"
	IngestStatusError     = "error"
)

// MessageStore is the persistence surface the ingest pipeline needs.
type MessageStore interface {
	SaveMessage(ctx context.Context, msg *models.Message, overwrite bool) (*models.SaveResult, error)
}

// Grouper assigns a stored message to its conversation bucket.
type Grouper interface {
	Group(ctx context.Context, msg *models.Message) (models.GroupResult, error)
}

// IngestResult is the outcome of processing one raw event end to end.
type IngestResult struct {
	Status  string              `json:"status"`
	Message *models.Message     `json:"-"`
	Group   *models.GroupResult `json:"group,omitempty"`
}

// IngestService runs one raw chat event through the whole pipeline:
// normalization, idempotent persistence, then conversation grouping.
type IngestService struct {
	store   MessageStore
	grouper Grouper
	logger  *logrus.Logger
}

func NewIngestService(store MessageStore, grouper Grouper, logger *logrus.Logger) (*IngestService, error) {
	if store == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "ingest service requires a message store")
	}
	if grouper == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "ingest service requires a grouper")
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &IngestService{
		store:   store,
		grouper: grouper,
		logger:  logger,
	}, nil
}

// ProcessRaw normalizes, stores, and groups one raw event. With overwrite set,
// an already-known message id is re-stored and re-grouped; otherwise a
// duplicate delivery short-circuits before grouping so conversation counts
// stay replay-safe.
func (s *IngestService) ProcessRaw(ctx context.Context, raw models.RawMessage, overwrite bool) (*IngestResult, error) {
	ctx, span := tracing.WithOtelTracing(ctx, "ingest_message")
	defer span.End()

	start := time.Now()

	msg, err := normalizer.Format(raw)
	if err != nil {
		metrics.IncrementCounter("messages_format_errors_total", nil, "Raw events rejected by the normalizer")
		tracing.RecordError(ctx, err)
		s.logger.WithError(err).Error("Failed to format raw event")
		return nil, errors.NewFormatError("payload rejected", err)
	}

	tracing.AddSpanAttributes(ctx,
		attribute.String("message.id", SanitizeMessageID(msg.MessageID)),
		attribute.String("message.sender_type", string(msg.SenderType)),
	)

	if IsVerboseLogging(ctx) {
		s.logger.WithFields(logrus.Fields{
			LogFieldMessageID:   SanitizeMessageID(msg.MessageID),
			"sender_phone":      SanitizePhoneNumber(msg.SenderPhone),
			"receiver_phone":    SanitizePhoneNumber(msg.ReceiverPhone),
			LogFieldSenderType:  string(msg.SenderType),
			LogFieldMessageType: msg.MessageType,
			"timestamp":         msg.Timestamp,
		}).Debug("Normalized raw event")
	}

	save, err := s.store.SaveMessage(ctx, msg, overwrite)
	if err != nil {
		metrics.IncrementCounter("messages_store_errors_total", nil, "Messages that failed to persist")
		tracing.RecordError(ctx, err)
		return nil, errors.NewDatabaseError("save message", err)
	}

	if save.Duplicate && !overwrite {
		metrics.IncrementCounter("messages_duplicate_total", nil, "Duplicate message deliveries ignored")
		s.logger.WithFields(logrus.Fields{
			LogFieldMessageID: SanitizeMessageID(msg.MessageID),
			LogFieldStatus:    IngestStatusDuplicate,
		}).Warn("Skipping grouping: duplicate delivery")
		tracing.SetSpanStatus(ctx, codes.Ok, "duplicate delivery")
		return &IngestResult{Status: IngestStatusDuplicate, Message: msg}, nil
	}

	group, err := s.grouper.Group(ctx, msg)
	if err != nil {
		metrics.IncrementCounter("grouping_errors_total", nil, "Messages that could not be grouped")
		tracing.RecordError(ctx, err)
		return nil, errors.NewGroupingError(msg.MessageID, err)
	}

	if group.Status != models.GroupStatusOK {
		metrics.IncrementCounter("grouping_errors_total", nil, "Messages that could not be grouped")
		tracing.SetSpanStatus(ctx, codes.Error, "grouping rejected message")
		return &IngestResult{Status: IngestStatusError, Message: msg, Group: &group}, nil
	}

	metrics.IncrementCounter("messages_ingested_total", nil, "Messages processed through the full pipeline")
	metrics.RecordTimer("ingest_duration", time.Since(start), nil, "End-to-end ingest duration")
	if group.ReadyForDownstream {
		metrics.IncrementCounter("conversations_ready_total", nil, "Grouping results at or past the ready threshold")
	}

	tracing.AddSpanAttributes(ctx,
		attribute.String("conversation.id", privacy.MaskConversationID(group.ConversationID)),
		attribute.Bool("conversation.ready", group.ReadyForDownstream),
	)
	tracing.SetSpanStatus(ctx, codes.Ok, "")

	s.logger.WithFields(logrus.Fields{
		LogFieldMessageID:      SanitizeMessageID(msg.MessageID),
		LogFieldConversationID: privacy.MaskConversationID(group.ConversationID),
		LogFieldStatus:         IngestStatusProcessed,
		LogFieldDuration:       time.Since(start).Milliseconds(),
		"ready_for_downstream": group.ReadyForDownstream,
	}).Info("Message ingested")

	return &IngestResult{Status: IngestStatusProcessed, Message: msg, Group: &group}, nil
}
