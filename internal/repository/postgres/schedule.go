package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/talkbase/scheduling-api/internal/model"
	"github.com/talkbase/scheduling-api/internal/repository"
)

func (r *scheduleRepository) GetSchedule(ctx context.Context, id uuid.UUID) (*model.Schedule, error) {
	query := `
		SELECT id, organization_id, name, timezone, slot_granularity, active,
			   created_at, updated_at
		FROM schedules
		WHERE id = $1 AND active
	`
	var schedule model.Schedule
	err := r.db.GetContext(ctx, &schedule, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}
	return &schedule, nil
}

func (r *scheduleRepository) GetScheduleByName(ctx context.Context, organizationID uuid.UUID, name string) (*model.Schedule, error) {
	query := `
		SELECT id, organization_id, name, timezone, slot_granularity, active,
			   created_at, updated_at
		FROM schedules
		WHERE organization_id = $1 AND name = $2 AND active
	`
	var schedule model.Schedule
	err := r.db.GetContext(ctx, &schedule, query, organizationID, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule by name: %w", err)
	}
	return &schedule, nil
}

func (r *scheduleRepository) GetService(ctx context.Context, id uuid.UUID) (*model.Service, error) {
	query := `
		SELECT id, schedule_id, title, duration_minutes, capacity, arrival_mode,
			   created_at, updated_at
		FROM services
		WHERE id = $1
	`
	var service model.Service
	err := r.db.GetContext(ctx, &service, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get service: %w", err)
	}
	return &service, nil
}

func (r *scheduleRepository) ListProviders(ctx context.Context, scheduleID uuid.UUID, serviceID *uuid.UUID) ([]*model.Provider, error) {
	// A provider with no rows in provider_services performs every service
	// on the schedule.
	query := `
		SELECT p.id, p.schedule_id, p.profile_id, p.active, p.created_at, p.updated_at
		FROM providers p
		WHERE p.schedule_id = $1
		AND p.active
		AND (
			$2::uuid IS NULL
			OR NOT EXISTS (SELECT 1 FROM provider_services ps WHERE ps.provider_id = p.id)
			OR EXISTS (SELECT 1 FROM provider_services ps WHERE ps.provider_id = p.id AND ps.service_id = $2)
		)
		ORDER BY p.id ASC
	`
	var providers []*model.Provider
	err := r.db.SelectContext(ctx, &providers, query, scheduleID, serviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	return providers, nil
}

func (r *scheduleRepository) ListAvailabilityWindows(ctx context.Context, providerIDs []uuid.UUID, weekday time.Weekday) ([]*model.AvailabilityWindow, error) {
	if len(providerIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, provider_id, weekday, start_time, end_time, created_at, updated_at
		FROM availability_windows
		WHERE provider_id = ANY($1)
		AND weekday = $2
		ORDER BY provider_id, start_time ASC
	`
	var windows []*model.AvailabilityWindow
	err := r.db.SelectContext(ctx, &windows, query, pq.Array(providerIDs), int(weekday))
	if err != nil {
		return nil, fmt.Errorf("failed to list availability windows: %w", err)
	}
	return windows, nil
}

func (r *scheduleRepository) ListExceptions(ctx context.Context, scheduleID uuid.UUID, providerIDs []uuid.UUID, date string) ([]*model.Exception, error) {
	// Schedule-wide exceptions carry a NULL provider_id and match every
	// provider.
	query := `
		SELECT id, schedule_id, provider_id, date, start_time, end_time, all_day,
			   created_at, updated_at
		FROM exceptions
		WHERE schedule_id = $1
		AND date = $2
		AND (provider_id IS NULL OR provider_id = ANY($3))
		ORDER BY all_day DESC, start_time ASC NULLS FIRST
	`
	var exceptions []*model.Exception
	err := r.db.SelectContext(ctx, &exceptions, query, scheduleID, date, pq.Array(providerIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to list exceptions: %w", err)
	}
	return exceptions, nil
}
