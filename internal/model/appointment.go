package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCanceled  AppointmentStatus = "canceled"
)

// Appointment is a booking. Date is a YYYY-MM-DD calendar date and
// StartTime/EndTime are HH:MM wall-clock values in the owning schedule's
// timezone. TimeSlot equals StartTime for standard-mode services and the
// "{start}-{end}" bucket label for arrival-mode services. Appointments are
// soft-deleted only: the single allowed mutation is a status transition to
// canceled.
type Appointment struct {
	Base
	ScheduleID uuid.UUID         `db:"schedule_id" json:"schedule_id"`
	ProviderID uuid.UUID         `db:"provider_id" json:"provider_id"`
	ServiceID  uuid.UUID         `db:"service_id" json:"service_id"`
	CustomerID uuid.UUID         `db:"customer_id" json:"customer_id"`
	Date       string            `db:"date" json:"date"`
	StartTime  string            `db:"start_time" json:"start_time"`
	EndTime    string            `db:"end_time" json:"end_time"`
	TimeSlot   string            `db:"time_slot" json:"time_slot"`
	Status     AppointmentStatus `db:"status" json:"status"`
	Notes      string            `db:"notes" json:"notes,omitempty"`
	CanceledAt *time.Time        `db:"canceled_at" json:"canceled_at,omitempty"`
	CanceledBy *uuid.UUID        `db:"canceled_by" json:"canceled_by,omitempty"`
}

// Canceled reports whether the appointment has reached its terminal state.
func (a *Appointment) Canceled() bool {
	return a.Status == AppointmentStatusCanceled
}

type AvailabilityRequest struct {
	ScheduleID string `json:"schedule_id" validate:"required,uuid" binding:"required,uuid"`
	ServiceID  string `json:"service_id" validate:"required,uuid" binding:"required,uuid"`
	Date       string `json:"date" validate:"required,datetime=2006-01-02" binding:"required,datetime=2006-01-02"`
	Time       string `json:"time,omitempty" validate:"omitempty" binding:"omitempty"`
}

type CreateAppointmentRequest struct {
	ScheduleID string `json:"schedule_id" validate:"required,uuid" binding:"required,uuid"`
	CustomerID string `json:"customer_id" validate:"required,uuid" binding:"required,uuid"`
	ServiceID  string `json:"service_id" validate:"required,uuid" binding:"required,uuid"`
	Date       string `json:"date" validate:"required,datetime=2006-01-02" binding:"required,datetime=2006-01-02"`
	Time       string `json:"time" validate:"required" binding:"required"`
	Notes      string `json:"notes,omitempty" validate:"max=1000" binding:"max=1000"`
}

type CheckAppointmentRequest struct {
	CustomerID    string `json:"customer_id" validate:"required,uuid" binding:"required,uuid"`
	AppointmentID string `json:"appointment_id,omitempty" validate:"omitempty,uuid" binding:"omitempty,uuid"`
}

// CancelAppointmentRequest selects appointments either by id or by date;
// exactly one selector must be supplied.
type CancelAppointmentRequest struct {
	CustomerID    string `json:"customer_id" validate:"required,uuid" binding:"required,uuid"`
	AppointmentID string `json:"appointment_id,omitempty" validate:"omitempty,uuid" binding:"omitempty,uuid"`
	Date          string `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02" binding:"omitempty,datetime=2006-01-02"`
}

// AvailabilityResult is the payload of a CheckAvailability call. Available
// reports whether the requested time is bookable when a time was given, or
// whether any slot exists otherwise.
type AvailabilityResult struct {
	Available bool     `json:"available"`
	Slots     []string `json:"slots"`
}

type CancelResult struct {
	CanceledCount int            `json:"canceled_count"`
	Canceled      []*Appointment `json:"canceled"`
}

// AppointmentFilters narrows customer-scoped appointment lookups.
type AppointmentFilters struct {
	Date       string
	ActiveOnly bool
}
