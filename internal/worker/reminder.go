package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/talkbase/scheduling-api/internal/model"
	"github.com/talkbase/scheduling-api/internal/repository"
	"github.com/talkbase/scheduling-api/internal/service/notification"
	"github.com/talkbase/scheduling-api/pkg/logger"
)

// ReminderWorker periodically scans for next-day appointments and sends a
// reminder to each customer. Sent reminders are tracked in memory per date,
// so an appointment is reminded at most once per process lifetime.
type ReminderWorker struct {
	appointments repository.AppointmentRepository
	notifier     notification.Notifier
	interval     time.Duration
	logger       *logger.Logger

	sentDate string
	sent     map[uuid.UUID]struct{}
}

func NewReminderWorker(
	appointments repository.AppointmentRepository,
	notifier notification.Notifier,
	interval time.Duration,
	log *logger.Logger,
) *ReminderWorker {
	return &ReminderWorker{
		appointments: appointments,
		notifier:     notifier,
		interval:     interval,
		logger:       log,
		sent:         make(map[uuid.UUID]struct{}),
	}
}

func (w *ReminderWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("reminder worker started", "interval", w.interval.String())

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("reminder worker shutting down")
			return
		case <-ticker.C:
			if err := w.remind(ctx); err != nil {
				w.logger.Error(err, "reminder pass failed")
			}
		}
	}
}

func (w *ReminderWorker) remind(ctx context.Context) error {
	tomorrow := time.Now().AddDate(0, 0, 1).Format("2006-01-02")
	if w.sentDate != tomorrow {
		w.sentDate = tomorrow
		w.sent = make(map[uuid.UUID]struct{})
	}

	appointments, err := w.appointments.ListUpcoming(ctx, tomorrow)
	if err != nil {
		return fmt.Errorf("failed to list upcoming appointments: %w", err)
	}

	for _, appointment := range appointments {
		if _, done := w.sent[appointment.ID]; done {
			continue
		}

		err := w.notifier.Notify(ctx,
			[]uuid.UUID{appointment.CustomerID},
			"Appointment reminder",
			fmt.Sprintf("You have an appointment tomorrow (%s) at %s", appointment.Date, appointment.StartTime),
			model.JSONMap{
				"appointment_id": appointment.ID.String(),
				"date":           appointment.Date,
				"start_time":     appointment.StartTime,
			})
		if err != nil {
			w.logger.Error(err, "failed to send reminder", "appointment_id", appointment.ID.String())
			continue
		}
		w.sent[appointment.ID] = struct{}{}
	}

	return nil
}
