package model

import (
	"github.com/google/uuid"
)

// Schedule is an organization's bookable calendar. Every wall-clock value
// recorded against it is interpreted in Timezone, never server local time.
type Schedule struct {
	Base
	OrganizationID  uuid.UUID `db:"organization_id" json:"organization_id"`
	Name            string    `db:"name" json:"name"`
	Timezone        string    `db:"timezone" json:"timezone"`
	SlotGranularity int       `db:"slot_granularity" json:"slot_granularity"`
	Active          bool      `db:"active" json:"active"`
}

// Service is a bookable offering attached to exactly one schedule.
// Capacity > 1 is only meaningful for arrival-mode services.
type Service struct {
	Base
	ScheduleID      uuid.UUID `db:"schedule_id" json:"schedule_id"`
	Title           string    `db:"title" json:"title"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	Capacity        int       `db:"capacity" json:"capacity"`
	ArrivalMode     bool      `db:"arrival_mode" json:"arrival_mode"`
}

// Provider is a staff member attached to a schedule. An empty ServiceIDs
// set means the provider performs every service on the schedule.
type Provider struct {
	Base
	ScheduleID uuid.UUID   `db:"schedule_id" json:"schedule_id"`
	ProfileID  uuid.UUID   `db:"profile_id" json:"profile_id"`
	Active     bool        `db:"active" json:"active"`
	ServiceIDs []uuid.UUID `db:"-" json:"service_ids,omitempty"`
}

// AvailabilityWindow is a recurring weekly opening for a provider.
// Times are local wall-clock HH:MM; StartTime < EndTime.
type AvailabilityWindow struct {
	Base
	ProviderID uuid.UUID `db:"provider_id" json:"provider_id"`
	Weekday    int       `db:"weekday" json:"weekday"`
	StartTime  string    `db:"start_time" json:"start_time"`
	EndTime    string    `db:"end_time" json:"end_time"`
}

// Exception is a date-specific availability override. A nil ProviderID
// applies to every provider on the schedule. An all-day exception subsumes
// any partial window for the same provider and date.
type Exception struct {
	Base
	ScheduleID uuid.UUID  `db:"schedule_id" json:"schedule_id"`
	ProviderID *uuid.UUID `db:"provider_id" json:"provider_id,omitempty"`
	Date       string     `db:"date" json:"date"`
	StartTime  *string    `db:"start_time" json:"start_time,omitempty"`
	EndTime    *string    `db:"end_time" json:"end_time,omitempty"`
	AllDay     bool       `db:"all_day" json:"all_day"`
}
