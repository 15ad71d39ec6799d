package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/talkbase/scheduling-api/internal/model"
	"github.com/talkbase/scheduling-api/internal/repository"
	"github.com/talkbase/scheduling-api/internal/scheduling"
	"github.com/talkbase/scheduling-api/internal/service/notification"
	"github.com/talkbase/scheduling-api/pkg/cache"
	apperrors "github.com/talkbase/scheduling-api/pkg/errors"
	"github.com/talkbase/scheduling-api/pkg/logger"
	"github.com/talkbase/scheduling-api/pkg/metrics"
)

// Service is the booking engine: it validates requests, resolves
// availability, assigns providers and persists appointments. It holds no
// state between calls; all state lives in the repositories, and the
// conditional-insert contract there closes the race between the
// availability check and the write.
type Service struct {
	schedules    repository.ScheduleRepository
	appointments repository.AppointmentRepository
	notifier     notification.Notifier
	directory    *cache.EntityCache
	validate     *validator.Validate
	defaultGran  int
	logger       *logger.Logger
	metrics      *metrics.Metrics
}

func NewService(
	schedules repository.ScheduleRepository,
	appointments repository.AppointmentRepository,
	notifier notification.Notifier,
	directory *cache.EntityCache,
	defaultGranularity int,
	logger *logger.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		schedules:    schedules,
		appointments: appointments,
		notifier:     notifier,
		directory:    directory,
		validate:     validator.New(),
		defaultGran:  defaultGranularity,
		logger:       logger,
		metrics:      m,
	}
}

// day bundles everything resolved for one (schedule, service, date) query.
type day struct {
	schedule     *model.Schedule
	service      *model.Service
	granularity  int
	availability []scheduling.ProviderAvailability
	appointments []*model.Appointment
	slots        []scheduling.Slot
}

func (d *day) mode() string {
	if d.service.ArrivalMode {
		return "arrival"
	}
	return "standard"
}

// CheckAvailability reports the bookable slots for a service on a date.
// With a requested time it answers for that exact time (standard mode) or
// the bucket containing it (arrival mode); without one it reports whether
// any slot exists. The full slot list is returned either way.
func (s *Service) CheckAvailability(ctx context.Context, req *model.AvailabilityRequest) (*model.AvailabilityResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.InvalidArgument("invalid availability request", err)
	}

	d, err := s.resolveDay(ctx, req.ScheduleID, req.ServiceID, req.Date)
	if err != nil {
		return nil, err
	}
	s.metrics.AvailabilityChecks.WithLabelValues(d.mode()).Inc()

	starts := scheduling.SlotStarts(d.slots)
	if req.Time == "" {
		return &model.AvailabilityResult{Available: len(starts) > 0, Slots: starts}, nil
	}

	_, found, err := scheduling.FindSlot(d.slots, d.service, d.granularity, req.Time)
	if err != nil {
		return nil, apperrors.InvalidArgument("invalid time", err)
	}
	return &model.AvailabilityResult{Available: found, Slots: starts}, nil
}

// CreateAppointment books a slot. Availability is re-resolved for the
// requested time, a provider is assigned deterministically, and the insert
// is conditional: a concurrent booking that fills the slot first surfaces
// as SlotUnavailable with a fresh slot list, never as a double booking.
func (s *Service) CreateAppointment(ctx context.Context, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.InvalidArgument("invalid appointment request", err)
	}
	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		return nil, apperrors.InvalidArgument("invalid customer id", err)
	}

	d, err := s.resolveDay(ctx, req.ScheduleID, req.ServiceID, req.Date)
	if err != nil {
		return nil, err
	}

	slot, found, err := scheduling.FindSlot(d.slots, d.service, d.granularity, req.Time)
	if err != nil {
		return nil, apperrors.InvalidArgument("invalid time", err)
	}
	if !found {
		s.metrics.BookingsRejected.WithLabelValues("slot_unavailable").Inc()
		return nil, apperrors.SlotUnavailable(
			fmt.Sprintf("%s on %s is not available", req.Time, req.Date),
			scheduling.SlotStarts(d.slots),
		)
	}

	providerID, err := s.assignProvider(d, slot)
	if err != nil {
		return nil, err
	}

	appointment := &model.Appointment{
		ScheduleID: d.schedule.ID,
		ProviderID: providerID,
		ServiceID:  d.service.ID,
		CustomerID: customerID,
		Date:       req.Date,
		StartTime:  slot.Start,
		EndTime:    slot.End,
		TimeSlot:   slot.Label,
		Status:     model.AppointmentStatusScheduled,
		Notes:      req.Notes,
	}

	if d.service.ArrivalMode {
		err = s.appointments.InsertWithCapacity(ctx, appointment, d.service.Capacity)
	} else {
		err = s.appointments.InsertExclusive(ctx, appointment)
	}
	if errors.Is(err, repository.ErrConflict) {
		// Lost the race to a concurrent booking; hand back the now-current
		// list so the caller can pick another slot. Retrying is the
		// caller's decision.
		s.metrics.BookingsRejected.WithLabelValues("conflict").Inc()
		fresh, ferr := s.resolveDay(ctx, req.ScheduleID, req.ServiceID, req.Date)
		if ferr != nil {
			return nil, apperrors.SlotUnavailable("slot was just booked", nil)
		}
		return nil, apperrors.SlotUnavailable("slot was just booked", scheduling.SlotStarts(fresh.slots))
	}
	if err != nil {
		return nil, apperrors.Repository(err)
	}

	s.metrics.BookingsCreated.WithLabelValues(d.mode()).Inc()
	s.notify(ctx, []uuid.UUID{providerID}, "New appointment",
		fmt.Sprintf("%s booked for %s at %s", d.service.Title, req.Date, slot.Start),
		model.JSONMap{
			"appointment_id": appointment.ID.String(),
			"schedule_id":    d.schedule.ID.String(),
			"date":           req.Date,
			"time_slot":      slot.Label,
		})

	return appointment, nil
}

// CheckAppointment returns a customer's non-canceled appointments, or the
// single requested one when an id is supplied.
func (s *Service) CheckAppointment(ctx context.Context, req *model.CheckAppointmentRequest) ([]*model.Appointment, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.InvalidArgument("invalid lookup request", err)
	}
	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		return nil, apperrors.InvalidArgument("invalid customer id", err)
	}

	if req.AppointmentID != "" {
		id, err := uuid.Parse(req.AppointmentID)
		if err != nil {
			return nil, apperrors.InvalidArgument("invalid appointment id", err)
		}
		appointment, err := s.appointments.GetByCustomer(ctx, customerID, id)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.AppointmentNotFound("")
		}
		if err != nil {
			return nil, apperrors.Repository(err)
		}
		if appointment.Canceled() {
			return nil, apperrors.AppointmentNotFound("")
		}
		return []*model.Appointment{appointment}, nil
	}

	appointments, err := s.appointments.ListByCustomer(ctx, customerID, &model.AppointmentFilters{ActiveOnly: true})
	if err != nil {
		return nil, apperrors.Repository(err)
	}
	return appointments, nil
}

// CancelAppointment cancels by id, or bulk-cancels every non-canceled
// appointment the customer holds on a date. Exactly one selector must be
// supplied. Each cancellation is a single guarded row update, so a
// mid-sequence failure leaves a consistent partial result.
func (s *Service) CancelAppointment(ctx context.Context, req *model.CancelAppointmentRequest) (*model.CancelResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.InvalidArgument("invalid cancel request", err)
	}
	if (req.AppointmentID == "") == (req.Date == "") {
		return nil, apperrors.InvalidArgument("exactly one of appointment_id or date must be supplied", nil)
	}
	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		return nil, apperrors.InvalidArgument("invalid customer id", err)
	}

	if req.AppointmentID != "" {
		return s.cancelByID(ctx, customerID, req.AppointmentID)
	}
	return s.cancelByDate(ctx, customerID, req.Date)
}

func (s *Service) cancelByID(ctx context.Context, customerID uuid.UUID, appointmentID string) (*model.CancelResult, error) {
	id, err := uuid.Parse(appointmentID)
	if err != nil {
		return nil, apperrors.InvalidArgument("invalid appointment id", err)
	}

	appointment, err := s.appointments.GetByCustomer(ctx, customerID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.AppointmentNotFound("")
	}
	if err != nil {
		return nil, apperrors.Repository(err)
	}
	if appointment.Canceled() {
		// Canceling twice is not a silent success: the cancellation stamp
		// is written once and never touched again.
		return nil, apperrors.AppointmentNotFound("appointment already canceled")
	}

	if err := s.cancelOne(ctx, customerID, appointment); err != nil {
		return nil, err
	}

	return &model.CancelResult{CanceledCount: 1, Canceled: []*model.Appointment{appointment}}, nil
}

func (s *Service) cancelByDate(ctx context.Context, customerID uuid.UUID, date string) (*model.CancelResult, error) {
	appointments, err := s.appointments.ListByCustomer(ctx, customerID, &model.AppointmentFilters{Date: date, ActiveOnly: true})
	if err != nil {
		return nil, apperrors.Repository(err)
	}
	if len(appointments) == 0 {
		return nil, apperrors.AppointmentNotFound(fmt.Sprintf("no appointments on %s", date))
	}

	canceled := make([]*model.Appointment, 0, len(appointments))
	for _, appointment := range appointments {
		if err := s.cancelOne(ctx, customerID, appointment); err != nil {
			if apperrors.Code(err) == apperrors.ErrAppointmentNotFound {
				// Canceled concurrently; nothing left to do for this row.
				continue
			}
			return nil, err
		}
		canceled = append(canceled, appointment)
	}
	if len(canceled) == 0 {
		return nil, apperrors.AppointmentNotFound(fmt.Sprintf("no appointments on %s", date))
	}

	return &model.CancelResult{CanceledCount: len(canceled), Canceled: canceled}, nil
}

func (s *Service) cancelOne(ctx context.Context, customerID uuid.UUID, appointment *model.Appointment) error {
	now := time.Now()
	metadata := &repository.CancelMetadata{CanceledAt: now, CanceledBy: customerID}

	err := s.appointments.UpdateStatus(ctx, appointment.ID, model.AppointmentStatusCanceled, metadata)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.AppointmentNotFound("appointment already canceled")
	}
	if err != nil {
		return apperrors.Repository(err)
	}

	appointment.Status = model.AppointmentStatusCanceled
	appointment.CanceledAt = &now
	appointment.CanceledBy = &customerID
	s.metrics.BookingsCanceled.Inc()

	s.notify(ctx, []uuid.UUID{appointment.ProviderID}, "Appointment canceled",
		fmt.Sprintf("Appointment on %s at %s was canceled", appointment.Date, appointment.StartTime),
		model.JSONMap{
			"appointment_id": appointment.ID.String(),
			"date":           appointment.Date,
		})

	return nil
}

// ResolveScheduleID maps an organization-scoped schedule name to its id
// through the bounded TTL directory cache, for callers (the conversational
// tool layer) that address schedules by name.
func (s *Service) ResolveScheduleID(ctx context.Context, organizationID uuid.UUID, name string) (uuid.UUID, error) {
	if name == "" {
		return uuid.Nil, apperrors.InvalidArgument("schedule name is required", nil)
	}

	key := cache.Key(organizationID.String(), "schedule-name", name)
	if cached, ok := s.directory.Get(key); ok {
		return cached.(uuid.UUID), nil
	}

	schedule, err := s.schedules.GetScheduleByName(ctx, organizationID, name)
	if errors.Is(err, repository.ErrNotFound) {
		return uuid.Nil, apperrors.ScheduleNotFound(name)
	}
	if err != nil {
		return uuid.Nil, apperrors.Repository(err)
	}

	s.directory.Set(key, schedule.ID)
	return schedule.ID, nil
}

// resolveDay runs the resolver and generator pipeline for one query.
func (s *Service) resolveDay(ctx context.Context, scheduleID, serviceID, date string) (*day, error) {
	started := time.Now()

	schedID, err := uuid.Parse(scheduleID)
	if err != nil {
		return nil, apperrors.InvalidArgument("invalid schedule id", err)
	}
	svcID, err := uuid.Parse(serviceID)
	if err != nil {
		return nil, apperrors.InvalidArgument("invalid service id", err)
	}

	schedule, err := s.schedules.GetSchedule(ctx, schedID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.ScheduleNotFound(scheduleID)
	}
	if err != nil {
		return nil, apperrors.Repository(err)
	}

	service, err := s.schedules.GetService(ctx, svcID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.ServiceNotFound(serviceID)
	}
	if err != nil {
		return nil, apperrors.Repository(err)
	}
	if service.ScheduleID != schedule.ID {
		return nil, apperrors.ServiceNotFound(serviceID)
	}

	loc, err := time.LoadLocation(schedule.Timezone)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("schedule %s has invalid timezone %q: %w", schedule.ID, schedule.Timezone, err))
	}
	weekday, err := scheduling.WeekdayOf(date, loc)
	if err != nil {
		return nil, apperrors.InvalidArgument("invalid date", err)
	}

	providers, err := s.schedules.ListProviders(ctx, schedule.ID, &service.ID)
	if err != nil {
		return nil, apperrors.Repository(err)
	}

	providerIDs := make([]uuid.UUID, len(providers))
	for i, p := range providers {
		providerIDs[i] = p.ID
	}

	windows, err := s.schedules.ListAvailabilityWindows(ctx, providerIDs, weekday)
	if err != nil {
		return nil, apperrors.Repository(err)
	}
	exceptions, err := s.schedules.ListExceptions(ctx, schedule.ID, providerIDs, date)
	if err != nil {
		return nil, apperrors.Repository(err)
	}

	availability, err := scheduling.ResolveDay(providers, windows, exceptions)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	appointments, err := s.appointments.ListForDate(ctx, schedule.ID, date)
	if err != nil {
		return nil, apperrors.Repository(err)
	}

	granularity := schedule.SlotGranularity
	if granularity <= 0 {
		granularity = s.defaultGran
	}

	slots, err := scheduling.GenerateSlots(availability, appointments, service, granularity)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	s.metrics.SlotComputeLatency.Observe(time.Since(started).Seconds())
	return &day{
		schedule:     schedule,
		service:      service,
		granularity:  granularity,
		availability: availability,
		appointments: appointments,
		slots:        slots,
	}, nil
}

func (s *Service) assignProvider(d *day, slot scheduling.Slot) (uuid.UUID, error) {
	start, err := scheduling.TimeToMinutes(slot.Start)
	if err != nil {
		return uuid.Nil, apperrors.Internal(err)
	}

	if d.service.ArrivalMode {
		providerID, ok := scheduling.AssignBucketProvider(d.availability, start, d.granularity)
		if !ok {
			return uuid.Nil, s.assignMiss(d, slot)
		}
		return providerID, nil
	}

	end, err := scheduling.TimeToMinutes(slot.End)
	if err != nil {
		return uuid.Nil, apperrors.Internal(err)
	}
	providerID, ok, err := scheduling.AssignProvider(d.availability, d.appointments, start, end)
	if err != nil {
		return uuid.Nil, apperrors.Internal(err)
	}
	if !ok {
		return uuid.Nil, s.assignMiss(d, slot)
	}
	return providerID, nil
}

// assignMiss means the union availability said the slot was open but no
// individual provider could take it. That is an internal inconsistency
// worth investigating, not a condition to retry.
func (s *Service) assignMiss(d *day, slot scheduling.Slot) error {
	s.metrics.ProviderAssignMisses.Inc()
	err := apperrors.NoProviderAvailable(fmt.Sprintf("no provider available for %s", slot.Start))
	s.logger.Error(err, "provider assignment failed for open slot",
		"schedule_id", d.schedule.ID.String(),
		"service_id", d.service.ID.String(),
		"slot", slot.Start,
	)
	return err
}

func (s *Service) notify(ctx context.Context, recipients []uuid.UUID, heading, content string, data model.JSONMap) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, recipients, heading, content, data); err != nil {
		s.logger.Error(err, "failed to notify providers", "heading", heading)
	}
}
