package grouper

import (
	"context"
	"fmt"
	"strings"

	"leadflow/internal/constants"
	"leadflow/internal/models"
	"leadflow/internal/normalizer"
	"leadflow/internal/privacy"
	"leadflow/internal/validation"

	"github.com/sirupsen/logrus"
)

// Store is the persistence surface the grouper needs.
type Store interface {
	UpsertConversation(ctx context.Context, conversationID, messageID, leadPhone, secretaryPhone, timestamp string) (*models.ConversationUpsert, error)
}

// Grouper classifies canonical messages into conversation buckets keyed by
// lead phone and calendar day. It holds no state of its own beyond the
// injected store and is safe to share across concurrent callers.
type Grouper struct {
	store          Store
	readyThreshold int
	logger         *logrus.Logger
}

// New creates a Grouper. A nil store is a wiring bug, not input noise, and
// is rejected up front.
func New(store Store, readyThreshold int, logger *logrus.Logger) (*Grouper, error) {
	if store == nil {
		return nil, fmt.Errorf("grouper requires a configured store")
	}
	if readyThreshold <= 0 {
		readyThreshold = constants.DefaultReadyThreshold
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Grouper{store: store, readyThreshold: readyThreshold, logger: logger}, nil
}

// Group assigns one message to its conversation bucket and reports whether
// the bucket has accumulated enough messages for downstream processing.
// Malformed input is expected upstream noise: it yields an error result and
// a log line naming the offending fields, never an error return.
func (g *Grouper) Group(ctx context.Context, msg *models.Message) (models.GroupResult, error) {
	if missing := missingFields(msg); len(missing) > 0 {
		g.logger.WithField("missing_fields", strings.Join(missing, ", ")).
			Error("Cannot group message: required fields are missing")
		return errorResult(), nil
	}

	leadPhone, secretaryPhone := resolveParticipants(msg)
	if leadPhone == "" || secretaryPhone == "" || leadPhone == secretaryPhone {
		g.logger.WithFields(logrus.Fields{
			"lead_phone":      privacy.MaskPhoneNumber(leadPhone),
			"secretary_phone": privacy.MaskPhoneNumber(secretaryPhone),
		}).Error("Cannot group message: participants do not resolve to two distinct phones")
		return errorResult(), nil
	}

	// Short or malformed phones still group; the check only flags upstream
	// data quality.
	for label, phone := range map[string]string{"lead_phone": leadPhone, "secretary_phone": secretaryPhone} {
		if err := validation.ValidatePhoneNumber(phone); err != nil {
			g.logger.WithFields(logrus.Fields{
				label:    privacy.MaskPhoneNumber(phone),
				"reason": err.Error(),
			}).Warn("Participant phone failed strict validation")
		}
	}

	ts, err := normalizer.ParseTimestamp(msg.Timestamp)
	if err != nil {
		g.logger.WithField("timestamp", msg.Timestamp).
			Error("Cannot group message: unparseable timestamp")
		return errorResult(), nil
	}

	// Day granularity in the timestamp's own offset; no separate local-time
	// conversion is applied.
	conversationID := fmt.Sprintf("%s_%s", leadPhone, ts.Format("20060102"))

	upsert, err := g.store.UpsertConversation(ctx, conversationID, msg.MessageID, leadPhone, secretaryPhone, msg.Timestamp)
	if err != nil {
		return errorResult(), fmt.Errorf("failed to record conversation message: %w", err)
	}

	return models.GroupResult{
		Status:             models.GroupStatusOK,
		ConversationID:     conversationID,
		ReadyForDownstream: upsert.MessageCount >= g.readyThreshold,
	}, nil
}

// resolveParticipants maps (sender, receiver) onto (lead, secretary) from
// the sender tag. When the tag is unknown the sender is assumed to be the
// lead; this is a documented default, not an inference from history.
func resolveParticipants(msg *models.Message) (leadPhone, secretaryPhone string) {
	switch msg.SenderType {
	case models.SenderTypeLead:
		return msg.SenderPhone, msg.ReceiverPhone
	case models.SenderTypeSecretary:
		return msg.ReceiverPhone, msg.SenderPhone
	default:
		return msg.SenderPhone, msg.ReceiverPhone
	}
}

func missingFields(msg *models.Message) []string {
	var missing []string
	if msg.MessageID == "" {
		missing = append(missing, "message_id")
	}
	if msg.SenderPhone == "" {
		missing = append(missing, "sender_phone")
	}
	if msg.ReceiverPhone == "" {
		missing = append(missing, "receiver_phone")
	}
	if msg.Timestamp == "" {
		missing = append(missing, "timestamp")
	}
	return missing
}

func errorResult() models.GroupResult {
	return models.GroupResult{Status: models.GroupStatusError}
}
