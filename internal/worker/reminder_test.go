package worker

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkbase/scheduling-api/internal/model"
	"github.com/talkbase/scheduling-api/internal/repository"
	"github.com/talkbase/scheduling-api/pkg/logger"
)

type stubAppointmentRepo struct {
	upcoming []*model.Appointment
}

func (s *stubAppointmentRepo) ListForDate(context.Context, uuid.UUID, string) ([]*model.Appointment, error) {
	return nil, nil
}
func (s *stubAppointmentRepo) InsertExclusive(context.Context, *model.Appointment) error {
	return nil
}
func (s *stubAppointmentRepo) InsertWithCapacity(context.Context, *model.Appointment, int) error {
	return nil
}
func (s *stubAppointmentRepo) GetByCustomer(context.Context, uuid.UUID, uuid.UUID) (*model.Appointment, error) {
	return nil, repository.ErrNotFound
}
func (s *stubAppointmentRepo) ListByCustomer(context.Context, uuid.UUID, *model.AppointmentFilters) ([]*model.Appointment, error) {
	return nil, nil
}
func (s *stubAppointmentRepo) UpdateStatus(context.Context, uuid.UUID, model.AppointmentStatus, *repository.CancelMetadata) error {
	return nil
}
func (s *stubAppointmentRepo) ListUpcoming(_ context.Context, date string) ([]*model.Appointment, error) {
	var out []*model.Appointment
	for _, a := range s.upcoming {
		if a.Date == date {
			out = append(out, a)
		}
	}
	return out, nil
}

type recordingNotifier struct {
	recipients []uuid.UUID
}

func (r *recordingNotifier) Notify(_ context.Context, ids []uuid.UUID, _, _ string, _ model.JSONMap) error {
	r.recipients = append(r.recipients, ids...)
	return nil
}

func TestReminderRemindsOncePerAppointment(t *testing.T) {
	tomorrow := time.Now().AddDate(0, 0, 1).Format("2006-01-02")
	customerID := uuid.New()

	appointment := &model.Appointment{
		CustomerID: customerID,
		Date:       tomorrow,
		StartTime:  "09:00",
		Status:     model.AppointmentStatusScheduled,
	}
	appointment.ID = uuid.New()

	repo := &stubAppointmentRepo{upcoming: []*model.Appointment{appointment}}
	notifier := &recordingNotifier{}
	w := NewReminderWorker(repo, notifier, time.Hour, logger.NewLogger(nil))

	require.NoError(t, w.remind(context.Background()))
	require.NoError(t, w.remind(context.Background()))

	assert.Equal(t, []uuid.UUID{customerID}, notifier.recipients, "second pass must not re-send")
}

func TestReminderSkipsOtherDates(t *testing.T) {
	appointment := &model.Appointment{
		CustomerID: uuid.New(),
		Date:       "2020-01-01",
		StartTime:  "09:00",
		Status:     model.AppointmentStatusScheduled,
	}
	appointment.ID = uuid.New()

	repo := &stubAppointmentRepo{upcoming: []*model.Appointment{appointment}}
	notifier := &recordingNotifier{}
	w := NewReminderWorker(repo, notifier, time.Hour, logger.NewLogger(nil))

	require.NoError(t, w.remind(context.Background()))
	assert.Empty(t, notifier.recipients)
}
