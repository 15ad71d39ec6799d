package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/talkbase/scheduling-api/internal/config"
	"github.com/talkbase/scheduling-api/internal/service/notification"
	"github.com/talkbase/scheduling-api/pkg/logger"
	"github.com/talkbase/scheduling-api/pkg/messaging"
	"github.com/talkbase/scheduling-api/pkg/metrics"
)

// EmailDispatcher consumes notification events off the broker and delivers
// them by email when the event carries a recipient address. It is the only
// email path; publishers never block on SMTP.
type EmailDispatcher struct {
	broker  messaging.Broker
	dialer  *gomail.Dialer
	from    string
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewEmailDispatcher(broker messaging.Broker, smtp config.SMTPConfig, log *logger.Logger, m *metrics.Metrics) *EmailDispatcher {
	var dialer *gomail.Dialer
	if smtp.Host != "" {
		dialer = gomail.NewDialer(smtp.Host, smtp.Port, smtp.Username, smtp.Password)
	} else {
		log.Warn("smtp not configured, email delivery disabled")
	}

	return &EmailDispatcher{
		broker:  broker,
		dialer:  dialer,
		from:    smtp.From,
		logger:  log,
		metrics: m,
	}
}

func (d *EmailDispatcher) Start(ctx context.Context) error {
	messages, err := d.broker.Subscribe(ctx, notification.Channel)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", notification.Channel, err)
	}

	d.logger.Info("email dispatcher started", "channel", notification.Channel)

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("email dispatcher shutting down")
			return nil
		case payload, ok := <-messages:
			if !ok {
				return nil
			}
			d.handle(payload)
		}
	}
}

func (d *EmailDispatcher) handle(payload []byte) {
	var event notification.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		d.logger.Error(err, "failed to decode notification event")
		return
	}

	email, ok := event.Data["email"].(string)
	if !ok || email == "" || d.dialer == nil {
		return
	}

	if err := d.send(email, event.Heading, event.Content); err != nil {
		d.metrics.NotificationsFailed.Inc()
		d.logger.Error(err, "failed to deliver notification email",
			"event_id", event.ID.String(), "recipient", email)
		return
	}
	d.metrics.NotificationsSent.Inc()
}

func (d *EmailDispatcher) send(to, subject, content string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", d.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", content)

	if err := d.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
