package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/talkbase/scheduling-api/internal/model"
)

// Sentinel errors. ErrNotFound is a business absence, distinct from
// transport failures, which surface as ordinary wrapped errors. ErrConflict
// is a rejected conditional insert: the slot or bucket filled up between the
// availability check and the write.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("booking conflict")
)

// CancelMetadata stamps who canceled an appointment and when.
type CancelMetadata struct {
	CanceledAt time.Time
	CanceledBy uuid.UUID
}

type (
	// ScheduleRepository reads the booking configuration: schedules,
	// services, providers and their availability. Configuration is owned
	// by organization admins and read-only to the engine.
	ScheduleRepository interface {
		GetSchedule(ctx context.Context, id uuid.UUID) (*model.Schedule, error)
		// GetScheduleByName resolves an organization-scoped schedule name.
		GetScheduleByName(ctx context.Context, organizationID uuid.UUID, name string) (*model.Schedule, error)
		GetService(ctx context.Context, id uuid.UUID) (*model.Service, error)
		// ListProviders returns the schedule's active providers, ordered
		// by id. With a non-nil serviceID only providers permitted to
		// perform it are returned; a provider with no explicit service
		// set performs everything.
		ListProviders(ctx context.Context, scheduleID uuid.UUID, serviceID *uuid.UUID) ([]*model.Provider, error)
		ListAvailabilityWindows(ctx context.Context, providerIDs []uuid.UUID, weekday time.Weekday) ([]*model.AvailabilityWindow, error)
		ListExceptions(ctx context.Context, scheduleID uuid.UUID, providerIDs []uuid.UUID, date string) ([]*model.Exception, error)
	}

	// AppointmentRepository owns appointment records. The insert methods
	// are conditional: they re-validate the booking predicate inside a
	// transaction and return ErrConflict instead of overwriting, closing
	// the check-then-act gap between availability and booking.
	AppointmentRepository interface {
		ListForDate(ctx context.Context, scheduleID uuid.UUID, date string) ([]*model.Appointment, error)
		// InsertExclusive persists a standard-mode booking, rejecting it
		// with ErrConflict when the provider already has an overlapping
		// non-canceled appointment on the date.
		InsertExclusive(ctx context.Context, appointment *model.Appointment) error
		// InsertWithCapacity persists an arrival-mode booking, rejecting
		// it with ErrConflict when the (date, time_slot, service) bucket
		// already holds capacity non-canceled appointments.
		InsertWithCapacity(ctx context.Context, appointment *model.Appointment, capacity int) error
		GetByCustomer(ctx context.Context, customerID, id uuid.UUID) (*model.Appointment, error)
		ListByCustomer(ctx context.Context, customerID uuid.UUID, filters *model.AppointmentFilters) ([]*model.Appointment, error)
		// UpdateStatus transitions an appointment, guarded so a canceled
		// appointment is never mutated again; a no-op update returns
		// ErrNotFound.
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus, metadata *CancelMetadata) error
		// ListUpcoming returns non-canceled appointments on the given
		// date across all schedules, for reminder fan-out.
		ListUpcoming(ctx context.Context, date string) ([]*model.Appointment, error)
	}
)
