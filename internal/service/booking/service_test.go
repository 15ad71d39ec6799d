package booking

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkbase/scheduling-api/internal/model"
	"github.com/talkbase/scheduling-api/internal/repository"
	"github.com/talkbase/scheduling-api/pkg/cache"
	apperrors "github.com/talkbase/scheduling-api/pkg/errors"
	"github.com/talkbase/scheduling-api/pkg/logger"
	"github.com/talkbase/scheduling-api/pkg/metrics"
)

// Prometheus collectors register globally, so the package shares one set.
var testMetrics = metrics.NewMetrics("booking_test")

// mondayDate falls on a Monday in America/Sao_Paulo.
const mondayDate = "2025-03-10"

type fakeScheduleRepo struct {
	schedules   map[uuid.UUID]*model.Schedule
	services    map[uuid.UUID]*model.Service
	providers   []*model.Provider
	windows     []*model.AvailabilityWindow
	exceptions  []*model.Exception
	byNameCalls int
}

func (f *fakeScheduleRepo) GetSchedule(_ context.Context, id uuid.UUID) (*model.Schedule, error) {
	if s, ok := f.schedules[id]; ok && s.Active {
		return s, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeScheduleRepo) GetScheduleByName(_ context.Context, organizationID uuid.UUID, name string) (*model.Schedule, error) {
	f.byNameCalls++
	for _, s := range f.schedules {
		if s.OrganizationID == organizationID && s.Name == name && s.Active {
			return s, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeScheduleRepo) GetService(_ context.Context, id uuid.UUID) (*model.Service, error) {
	if svc, ok := f.services[id]; ok {
		return svc, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeScheduleRepo) ListProviders(_ context.Context, scheduleID uuid.UUID, serviceID *uuid.UUID) ([]*model.Provider, error) {
	var out []*model.Provider
	for _, p := range f.providers {
		if p.ScheduleID != scheduleID || !p.Active {
			continue
		}
		if serviceID != nil && len(p.ServiceIDs) > 0 && !containsID(p.ServiceIDs, *serviceID) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (f *fakeScheduleRepo) ListAvailabilityWindows(_ context.Context, providerIDs []uuid.UUID, weekday time.Weekday) ([]*model.AvailabilityWindow, error) {
	var out []*model.AvailabilityWindow
	for _, w := range f.windows {
		if w.Weekday == int(weekday) && containsID(providerIDs, w.ProviderID) {
			out = append(out, w)
		}
	}
	return out, nil
}

func (f *fakeScheduleRepo) ListExceptions(_ context.Context, scheduleID uuid.UUID, providerIDs []uuid.UUID, date string) ([]*model.Exception, error) {
	var out []*model.Exception
	for _, ex := range f.exceptions {
		if ex.ScheduleID != scheduleID || ex.Date != date {
			continue
		}
		if ex.ProviderID != nil && !containsID(providerIDs, *ex.ProviderID) {
			continue
		}
		out = append(out, ex)
	}
	return out, nil
}

// fakeAppointmentRepo mirrors the postgres contract: inserts are guarded
// under a lock so concurrent bookings observe each other.
type fakeAppointmentRepo struct {
	mu           sync.Mutex
	appointments []*model.Appointment
}

func (f *fakeAppointmentRepo) ListForDate(_ context.Context, scheduleID uuid.UUID, date string) ([]*model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Appointment
	for _, a := range f.appointments {
		if a.ScheduleID == scheduleID && a.Date == date && !a.Canceled() {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAppointmentRepo) InsertExclusive(_ context.Context, appointment *model.Appointment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.appointments {
		if a.ProviderID == appointment.ProviderID && a.Date == appointment.Date && !a.Canceled() &&
			a.StartTime < appointment.EndTime && a.EndTime > appointment.StartTime {
			return repository.ErrConflict
		}
	}
	f.store(appointment)
	return nil
}

func (f *fakeAppointmentRepo) InsertWithCapacity(_ context.Context, appointment *model.Appointment, capacity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, a := range f.appointments {
		if a.ScheduleID == appointment.ScheduleID && a.Date == appointment.Date &&
			a.TimeSlot == appointment.TimeSlot && a.ServiceID == appointment.ServiceID && !a.Canceled() {
			count++
		}
	}
	if count >= capacity {
		return repository.ErrConflict
	}
	f.store(appointment)
	return nil
}

func (f *fakeAppointmentRepo) store(appointment *model.Appointment) {
	appointment.ID = uuid.New()
	appointment.CreatedAt = time.Now()
	appointment.UpdatedAt = appointment.CreatedAt
	stored := *appointment
	f.appointments = append(f.appointments, &stored)
}

func (f *fakeAppointmentRepo) GetByCustomer(_ context.Context, customerID, id uuid.UUID) (*model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.appointments {
		if a.ID == id && a.CustomerID == customerID {
			copied := *a
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeAppointmentRepo) ListByCustomer(_ context.Context, customerID uuid.UUID, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Appointment
	for _, a := range f.appointments {
		if a.CustomerID != customerID {
			continue
		}
		if filters != nil {
			if filters.ActiveOnly && a.Canceled() {
				continue
			}
			if filters.Date != "" && a.Date != filters.Date {
				continue
			}
		}
		copied := *a
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, nil
}

func (f *fakeAppointmentRepo) UpdateStatus(_ context.Context, id uuid.UUID, status model.AppointmentStatus, metadata *repository.CancelMetadata) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.appointments {
		if a.ID != id || a.Canceled() {
			continue
		}
		a.Status = status
		if metadata != nil {
			at := metadata.CanceledAt
			by := metadata.CanceledBy
			a.CanceledAt = &at
			a.CanceledBy = &by
		}
		a.UpdatedAt = time.Now()
		return nil
	}
	return repository.ErrNotFound
}

func (f *fakeAppointmentRepo) ListUpcoming(_ context.Context, date string) ([]*model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Appointment
	for _, a := range f.appointments {
		if a.Date == date && !a.Canceled() {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeNotifier) Notify(_ context.Context, _ []uuid.UUID, heading, _ string, _ model.JSONMap) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, heading)
	return nil
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

type env struct {
	svc          *Service
	scheduleRepo *fakeScheduleRepo
	apptRepo     *fakeAppointmentRepo
	notifier     *fakeNotifier
	schedule     *model.Schedule
	standard     *model.Service
	arrival      *model.Service
	provider     *model.Provider
}

// newEnv builds the Scenario A fixture: schedule in America/Sao_Paulo with
// 30-minute granularity, a provider with a Monday 09:00-12:00 window, a
// 30-minute standard service and a 60-minute arrival service (capacity 3).
func newEnv(t *testing.T) *env {
	t.Helper()

	schedule := &model.Schedule{
		OrganizationID:  uuid.New(),
		Name:            "Main Clinic",
		Timezone:        "America/Sao_Paulo",
		SlotGranularity: 30,
		Active:          true,
	}
	schedule.ID = uuid.New()

	standard := &model.Service{ScheduleID: schedule.ID, Title: "Consultation", DurationMinutes: 30, Capacity: 1}
	standard.ID = uuid.New()
	arrival := &model.Service{ScheduleID: schedule.ID, Title: "Walk-in", DurationMinutes: 60, Capacity: 3, ArrivalMode: true}
	arrival.ID = uuid.New()

	provider := &model.Provider{ScheduleID: schedule.ID, ProfileID: uuid.New(), Active: true}
	provider.ID = uuid.New()

	window := &model.AvailabilityWindow{ProviderID: provider.ID, Weekday: int(time.Monday), StartTime: "09:00", EndTime: "12:00"}
	window.ID = uuid.New()

	scheduleRepo := &fakeScheduleRepo{
		schedules: map[uuid.UUID]*model.Schedule{schedule.ID: schedule},
		services:  map[uuid.UUID]*model.Service{standard.ID: standard, arrival.ID: arrival},
		providers: []*model.Provider{provider},
		windows:   []*model.AvailabilityWindow{window},
	}
	apptRepo := &fakeAppointmentRepo{}
	notifier := &fakeNotifier{}

	svc := NewService(
		scheduleRepo,
		apptRepo,
		notifier,
		cache.New(time.Minute, time.Minute, 100),
		30,
		logger.NewLogger(nil),
		testMetrics,
	)

	return &env{
		svc:          svc,
		scheduleRepo: scheduleRepo,
		apptRepo:     apptRepo,
		notifier:     notifier,
		schedule:     schedule,
		standard:     standard,
		arrival:      arrival,
		provider:     provider,
	}
}

func (e *env) availabilityRequest(serviceID uuid.UUID, at string) *model.AvailabilityRequest {
	return &model.AvailabilityRequest{
		ScheduleID: e.schedule.ID.String(),
		ServiceID:  serviceID.String(),
		Date:       mondayDate,
		Time:       at,
	}
}

func (e *env) createRequest(serviceID uuid.UUID, customerID uuid.UUID, at string) *model.CreateAppointmentRequest {
	return &model.CreateAppointmentRequest{
		ScheduleID: e.schedule.ID.String(),
		CustomerID: customerID.String(),
		ServiceID:  serviceID.String(),
		Date:       mondayDate,
		Time:       at,
	}
}

func TestCheckAvailabilityStandardFullDay(t *testing.T) {
	e := newEnv(t)

	result, err := e.svc.CheckAvailability(context.Background(), e.availabilityRequest(e.standard.ID, ""))
	require.NoError(t, err)
	assert.True(t, result.Available)
	assert.Equal(t, []string{"09:00", "09:30", "10:00", "10:30", "11:00", "11:30"}, result.Slots)
}

func TestCheckAvailabilityStandardWithBooking(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.CreateAppointment(context.Background(), e.createRequest(e.standard.ID, uuid.New(), "09:30"))
	require.NoError(t, err)

	result, err := e.svc.CheckAvailability(context.Background(), e.availabilityRequest(e.standard.ID, ""))
	require.NoError(t, err)
	assert.NotContains(t, result.Slots, "09:30")
	assert.Contains(t, result.Slots, "10:00")
}

func TestCheckAvailabilityExplicitTime(t *testing.T) {
	e := newEnv(t)

	result, err := e.svc.CheckAvailability(context.Background(), e.availabilityRequest(e.standard.ID, "09:30"))
	require.NoError(t, err)
	assert.True(t, result.Available)
	assert.NotEmpty(t, result.Slots, "full list accompanies explicit-time answers")

	result, err = e.svc.CheckAvailability(context.Background(), e.availabilityRequest(e.standard.ID, "13:00"))
	require.NoError(t, err)
	assert.False(t, result.Available)
}

func TestCheckAvailabilityScheduleNotFound(t *testing.T) {
	e := newEnv(t)
	req := e.availabilityRequest(e.standard.ID, "")
	req.ScheduleID = uuid.New().String()

	_, err := e.svc.CheckAvailability(context.Background(), req)
	assert.Equal(t, apperrors.ErrScheduleNotFound, apperrors.Code(err))
}

func TestCheckAvailabilityServiceNotFound(t *testing.T) {
	e := newEnv(t)
	req := e.availabilityRequest(e.standard.ID, "")
	req.ServiceID = uuid.New().String()

	_, err := e.svc.CheckAvailability(context.Background(), req)
	assert.Equal(t, apperrors.ErrServiceNotFound, apperrors.Code(err))
}

func TestCheckAvailabilityRejectsMalformedDate(t *testing.T) {
	e := newEnv(t)
	req := e.availabilityRequest(e.standard.ID, "")
	req.Date = "10/03/2025"

	_, err := e.svc.CheckAvailability(context.Background(), req)
	assert.Equal(t, apperrors.ErrInvalidArgument, apperrors.Code(err))
}

func TestCheckAvailabilityAllDayException(t *testing.T) {
	e := newEnv(t)
	ex := &model.Exception{ScheduleID: e.schedule.ID, ProviderID: &e.provider.ID, Date: mondayDate, AllDay: true}
	ex.ID = uuid.New()
	e.scheduleRepo.exceptions = append(e.scheduleRepo.exceptions, ex)

	result, err := e.svc.CheckAvailability(context.Background(), e.availabilityRequest(e.standard.ID, ""))
	require.NoError(t, err)
	assert.False(t, result.Available)
	assert.Empty(t, result.Slots)
}

func TestCreateAppointmentRoundTrip(t *testing.T) {
	// Any slot reported available is immediately bookable when nothing
	// intervenes.
	e := newEnv(t)
	customerID := uuid.New()

	availability, err := e.svc.CheckAvailability(context.Background(), e.availabilityRequest(e.standard.ID, ""))
	require.NoError(t, err)
	require.NotEmpty(t, availability.Slots)

	appointment, err := e.svc.CreateAppointment(context.Background(), e.createRequest(e.standard.ID, customerID, availability.Slots[0]))
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusScheduled, appointment.Status)
	assert.Equal(t, e.provider.ID, appointment.ProviderID)
	assert.Equal(t, "09:00", appointment.StartTime)
	assert.Equal(t, "09:30", appointment.EndTime)
	assert.Equal(t, "09:00", appointment.TimeSlot, "standard mode records the start time as the slot label")
	assert.NotEqual(t, uuid.Nil, appointment.ID)

	e.notifier.mu.Lock()
	defer e.notifier.mu.Unlock()
	assert.Contains(t, e.notifier.calls, "New appointment")
}

func TestCreateAppointmentSlotTaken(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.CreateAppointment(context.Background(), e.createRequest(e.standard.ID, uuid.New(), "09:30"))
	require.NoError(t, err)

	_, err = e.svc.CreateAppointment(context.Background(), e.createRequest(e.standard.ID, uuid.New(), "09:30"))
	require.Equal(t, apperrors.ErrSlotUnavailable, apperrors.Code(err))

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.NotContains(t, appErr.Slots, "09:30", "rejection carries the fresh slot list")
	assert.Contains(t, appErr.Slots, "10:00")
}

func TestCreateAppointmentLastFittingSlot(t *testing.T) {
	e := newEnv(t)

	// 11:30 + 30m lands exactly on the window end.
	appointment, err := e.svc.CreateAppointment(context.Background(), e.createRequest(e.standard.ID, uuid.New(), "11:30"))
	require.NoError(t, err)
	assert.Equal(t, "12:00", appointment.EndTime)

	_, err = e.svc.CreateAppointment(context.Background(), e.createRequest(e.standard.ID, uuid.New(), "12:00"))
	assert.Equal(t, apperrors.ErrSlotUnavailable, apperrors.Code(err))
}

func TestCreateAppointmentArrivalBucket(t *testing.T) {
	e := newEnv(t)

	appointment, err := e.svc.CreateAppointment(context.Background(), e.createRequest(e.arrival.ID, uuid.New(), "10:00"))
	require.NoError(t, err)
	assert.Equal(t, "10:00", appointment.StartTime)
	assert.Equal(t, "11:00", appointment.EndTime, "arrival bookings span the whole bucket")
	assert.Equal(t, "10:00-11:00", appointment.TimeSlot)
}

func TestCreateAppointmentArrivalCapacity(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := e.svc.CreateAppointment(ctx, e.createRequest(e.arrival.ID, uuid.New(), "10:00"))
		require.NoError(t, err)
	}

	// The bucket is full: a time inside it reports unavailable and a
	// fourth booking is rejected.
	result, err := e.svc.CheckAvailability(ctx, e.availabilityRequest(e.arrival.ID, "10:15"))
	require.NoError(t, err)
	assert.False(t, result.Available)

	_, err = e.svc.CreateAppointment(ctx, e.createRequest(e.arrival.ID, uuid.New(), "10:15"))
	assert.Equal(t, apperrors.ErrSlotUnavailable, apperrors.Code(err))
}

func TestCreateAppointmentConcurrentSameSlot(t *testing.T) {
	e := newEnv(t)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = e.svc.CreateAppointment(context.Background(), e.createRequest(e.standard.ID, uuid.New(), "09:00"))
		}(i)
	}
	wg.Wait()

	successes, conflicts := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			successes++
		case apperrors.Code(err) == apperrors.ErrSlotUnavailable:
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes, "exactly one concurrent booking wins")
	assert.Equal(t, 1, conflicts)
}

func TestCreateAppointmentValidation(t *testing.T) {
	e := newEnv(t)

	req := e.createRequest(e.standard.ID, uuid.New(), "09:00")
	req.CustomerID = "not-a-uuid"
	_, err := e.svc.CreateAppointment(context.Background(), req)
	assert.Equal(t, apperrors.ErrInvalidArgument, apperrors.Code(err))

	req = e.createRequest(e.standard.ID, uuid.New(), "")
	_, err = e.svc.CreateAppointment(context.Background(), req)
	assert.Equal(t, apperrors.ErrInvalidArgument, apperrors.Code(err))

	req = e.createRequest(e.standard.ID, uuid.New(), "9 o'clock")
	_, err = e.svc.CreateAppointment(context.Background(), req)
	assert.Equal(t, apperrors.ErrInvalidArgument, apperrors.Code(err))
}

func TestCheckAppointmentByID(t *testing.T) {
	e := newEnv(t)
	customerID := uuid.New()
	created, err := e.svc.CreateAppointment(context.Background(), e.createRequest(e.standard.ID, customerID, "09:00"))
	require.NoError(t, err)

	found, err := e.svc.CheckAppointment(context.Background(), &model.CheckAppointmentRequest{
		CustomerID:    customerID.String(),
		AppointmentID: created.ID.String(),
	})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, created.ID, found[0].ID)
}

func TestCheckAppointmentOwnership(t *testing.T) {
	e := newEnv(t)
	created, err := e.svc.CreateAppointment(context.Background(), e.createRequest(e.standard.ID, uuid.New(), "09:00"))
	require.NoError(t, err)

	_, err = e.svc.CheckAppointment(context.Background(), &model.CheckAppointmentRequest{
		CustomerID:    uuid.New().String(), // someone else
		AppointmentID: created.ID.String(),
	})
	assert.Equal(t, apperrors.ErrAppointmentNotFound, apperrors.Code(err))
}

func TestCheckAppointmentListsActiveOnly(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	customerID := uuid.New()

	first, err := e.svc.CreateAppointment(ctx, e.createRequest(e.standard.ID, customerID, "09:00"))
	require.NoError(t, err)
	_, err = e.svc.CreateAppointment(ctx, e.createRequest(e.standard.ID, customerID, "10:00"))
	require.NoError(t, err)

	_, err = e.svc.CancelAppointment(ctx, &model.CancelAppointmentRequest{
		CustomerID:    customerID.String(),
		AppointmentID: first.ID.String(),
	})
	require.NoError(t, err)

	found, err := e.svc.CheckAppointment(ctx, &model.CheckAppointmentRequest{CustomerID: customerID.String()})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "10:00", found[0].StartTime)
}

func TestCancelAppointmentByID(t *testing.T) {
	e := newEnv(t)
	customerID := uuid.New()
	created, err := e.svc.CreateAppointment(context.Background(), e.createRequest(e.standard.ID, customerID, "09:00"))
	require.NoError(t, err)

	result, err := e.svc.CancelAppointment(context.Background(), &model.CancelAppointmentRequest{
		CustomerID:    customerID.String(),
		AppointmentID: created.ID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.CanceledCount)
	require.Len(t, result.Canceled, 1)
	assert.Equal(t, model.AppointmentStatusCanceled, result.Canceled[0].Status)
	assert.NotNil(t, result.Canceled[0].CanceledAt)
	assert.Equal(t, customerID, *result.Canceled[0].CanceledBy)

	// The slot opens back up.
	availability, err := e.svc.CheckAvailability(context.Background(), e.availabilityRequest(e.standard.ID, "09:00"))
	require.NoError(t, err)
	assert.True(t, availability.Available)
}

func TestCancelAppointmentTwiceIsNotFound(t *testing.T) {
	e := newEnv(t)
	customerID := uuid.New()
	created, err := e.svc.CreateAppointment(context.Background(), e.createRequest(e.standard.ID, customerID, "09:00"))
	require.NoError(t, err)

	req := &model.CancelAppointmentRequest{CustomerID: customerID.String(), AppointmentID: created.ID.String()}
	_, err = e.svc.CancelAppointment(context.Background(), req)
	require.NoError(t, err)

	stamped, err := e.apptRepo.GetByCustomer(context.Background(), customerID, created.ID)
	require.NoError(t, err)
	firstStamp := *stamped.CanceledAt

	_, err = e.svc.CancelAppointment(context.Background(), req)
	assert.Equal(t, apperrors.ErrAppointmentNotFound, apperrors.Code(err))

	stamped, err = e.apptRepo.GetByCustomer(context.Background(), customerID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, firstStamp, *stamped.CanceledAt, "cancellation metadata is written once")
}

func TestCancelAppointmentByDateBulk(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	customerID := uuid.New()

	_, err := e.svc.CreateAppointment(ctx, e.createRequest(e.standard.ID, customerID, "09:00"))
	require.NoError(t, err)
	_, err = e.svc.CreateAppointment(ctx, e.createRequest(e.standard.ID, customerID, "10:30"))
	require.NoError(t, err)

	result, err := e.svc.CancelAppointment(ctx, &model.CancelAppointmentRequest{
		CustomerID: customerID.String(),
		Date:       mondayDate,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.CanceledCount)
	for _, a := range result.Canceled {
		assert.Equal(t, model.AppointmentStatusCanceled, a.Status)
	}
}

func TestCancelAppointmentByDateNothingToCancel(t *testing.T) {
	e := newEnv(t)

	_, err := e.svc.CancelAppointment(context.Background(), &model.CancelAppointmentRequest{
		CustomerID: uuid.New().String(),
		Date:       mondayDate,
	})
	assert.Equal(t, apperrors.ErrAppointmentNotFound, apperrors.Code(err))
}

func TestCancelAppointmentSelectorValidation(t *testing.T) {
	e := newEnv(t)
	customerID := uuid.New().String()

	_, err := e.svc.CancelAppointment(context.Background(), &model.CancelAppointmentRequest{CustomerID: customerID})
	assert.Equal(t, apperrors.ErrInvalidArgument, apperrors.Code(err), "neither selector")

	_, err = e.svc.CancelAppointment(context.Background(), &model.CancelAppointmentRequest{
		CustomerID:    customerID,
		AppointmentID: uuid.New().String(),
		Date:          mondayDate,
	})
	assert.Equal(t, apperrors.ErrInvalidArgument, apperrors.Code(err), "both selectors")
}

func TestResolveScheduleIDCachesLookups(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	id, err := e.svc.ResolveScheduleID(ctx, e.schedule.OrganizationID, "Main Clinic")
	require.NoError(t, err)
	assert.Equal(t, e.schedule.ID, id)
	assert.Equal(t, 1, e.scheduleRepo.byNameCalls)

	id, err = e.svc.ResolveScheduleID(ctx, e.schedule.OrganizationID, "Main Clinic")
	require.NoError(t, err)
	assert.Equal(t, e.schedule.ID, id)
	assert.Equal(t, 1, e.scheduleRepo.byNameCalls, "second hit served from cache")

	_, err = e.svc.ResolveScheduleID(ctx, uuid.New(), "Main Clinic")
	assert.Equal(t, apperrors.ErrScheduleNotFound, apperrors.Code(err), "cache keys are organization-scoped")
}

func TestProviderAssignmentPrefersLowestID(t *testing.T) {
	e := newEnv(t)

	second := &model.Provider{ScheduleID: e.schedule.ID, ProfileID: uuid.New(), Active: true}
	second.ID = uuid.New()
	window := &model.AvailabilityWindow{ProviderID: second.ID, Weekday: int(time.Monday), StartTime: "09:00", EndTime: "12:00"}
	window.ID = uuid.New()
	e.scheduleRepo.providers = append(e.scheduleRepo.providers, second)
	e.scheduleRepo.windows = append(e.scheduleRepo.windows, window)

	expected := e.provider.ID
	if strings.Compare(second.ID.String(), expected.String()) < 0 {
		expected = second.ID
	}

	appointment, err := e.svc.CreateAppointment(context.Background(), e.createRequest(e.standard.ID, uuid.New(), "09:00"))
	require.NoError(t, err)
	assert.Equal(t, expected, appointment.ProviderID)
}

func TestProviderWithServiceSetFiltered(t *testing.T) {
	e := newEnv(t)
	// Restrict the provider to the arrival service only; the standard
	// service then has nobody to perform it.
	e.provider.ServiceIDs = []uuid.UUID{e.arrival.ID}

	result, err := e.svc.CheckAvailability(context.Background(), e.availabilityRequest(e.standard.ID, ""))
	require.NoError(t, err)
	assert.Empty(t, result.Slots)

	result, err = e.svc.CheckAvailability(context.Background(), e.availabilityRequest(e.arrival.ID, ""))
	require.NoError(t, err)
	assert.True(t, result.Available)
}
