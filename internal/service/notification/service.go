package notification

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/talkbase/scheduling-api/internal/model"
	"github.com/talkbase/scheduling-api/pkg/logger"
	"github.com/talkbase/scheduling-api/pkg/messaging"
	"github.com/talkbase/scheduling-api/pkg/metrics"
)

// Channel is the broker channel notification events are published to.
// The worker process subscribes to it and handles delivery.
const Channel = "notifications"

// Notifier delivers best-effort messages to providers and customers.
// Delivery failures are logged and swallowed; they never propagate to a
// booking caller.
type Notifier interface {
	Notify(ctx context.Context, recipientIDs []uuid.UUID, heading, content string, data model.JSONMap) error
}

// Event is the payload published to the notification channel.
type Event struct {
	ID         uuid.UUID     `json:"id"`
	Recipients []uuid.UUID   `json:"recipients"`
	Heading    string        `json:"heading"`
	Content    string        `json:"content"`
	Data       model.JSONMap `json:"data,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}

type service struct {
	broker  messaging.Broker
	logger  *logger.Logger
	metrics *metrics.Metrics
}

// NewService builds a notifier that publishes events to the broker.
// Transport-specific delivery (push, email) happens on the consuming side.
func NewService(broker messaging.Broker, logger *logger.Logger, m *metrics.Metrics) Notifier {
	return &service{
		broker:  broker,
		logger:  logger,
		metrics: m,
	}
}

func (s *service) Notify(ctx context.Context, recipientIDs []uuid.UUID, heading, content string, data model.JSONMap) error {
	if len(recipientIDs) == 0 || s.broker == nil {
		return nil
	}

	event := &Event{
		ID:         uuid.New(),
		Recipients: recipientIDs,
		Heading:    heading,
		Content:    content,
		Data:       data,
		CreatedAt:  time.Now(),
	}

	if err := s.broker.Publish(ctx, Channel, event); err != nil {
		s.metrics.NotificationsFailed.Inc()
		s.logger.Error(err, "failed to publish notification", "heading", heading)
		return nil
	}

	s.metrics.NotificationsSent.Inc()
	return nil
}
