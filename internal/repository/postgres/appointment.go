package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/talkbase/scheduling-api/internal/model"
	"github.com/talkbase/scheduling-api/internal/repository"
)

const pqUniqueViolation = "23505"

func (r *appointmentRepository) ListForDate(ctx context.Context, scheduleID uuid.UUID, date string) (_ []*model.Appointment, err error) {
	started := time.Now()
	defer func() { r.observe("list_for_date", started, err) }()
	query := `
		SELECT id, schedule_id, provider_id, service_id, customer_id,
			   date, start_time, end_time, time_slot, status, notes,
			   canceled_at, canceled_by, created_at, updated_at
		FROM appointments
		WHERE schedule_id = $1
		AND date = $2
		AND status <> 'canceled'
		ORDER BY start_time ASC
	`
	var appointments []*model.Appointment
	err = r.db.SelectContext(ctx, &appointments, query, scheduleID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

// InsertExclusive writes a standard-mode booking. The transaction takes an
// advisory lock on (provider, date) and re-checks the overlap predicate
// before inserting, so two concurrent bookings for the same provider and
// time cannot both commit. A partial unique index on
// (provider_id, date, start_time) backs this up at the schema level.
func (r *appointmentRepository) InsertExclusive(ctx context.Context, appointment *model.Appointment) (err error) {
	started := time.Now()
	defer func() { r.observe("insert_exclusive", started, err) }()
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		lockKey := fmt.Sprintf("%s:%s", appointment.ProviderID, appointment.Date)
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, lockKey); err != nil {
			return fmt.Errorf("failed to acquire booking lock: %w", err)
		}

		var conflict bool
		err := tx.GetContext(ctx, &conflict, `
			SELECT EXISTS (
				SELECT 1 FROM appointments
				WHERE provider_id = $1
				AND date = $2
				AND status <> 'canceled'
				AND start_time < $4
				AND end_time > $3
			)
		`, appointment.ProviderID, appointment.Date, appointment.StartTime, appointment.EndTime)
		if err != nil {
			return fmt.Errorf("failed to check conflicts: %w", err)
		}
		if conflict {
			return repository.ErrConflict
		}

		return r.insert(ctx, tx, appointment)
	})
}

// InsertWithCapacity writes an arrival-mode booking, re-counting the
// bucket's non-canceled appointments under an advisory lock so capacity is
// never exceeded by concurrent inserts.
func (r *appointmentRepository) InsertWithCapacity(ctx context.Context, appointment *model.Appointment, capacity int) (err error) {
	started := time.Now()
	defer func() { r.observe("insert_with_capacity", started, err) }()
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		lockKey := fmt.Sprintf("%s:%s:%s:%s", appointment.ScheduleID, appointment.Date, appointment.TimeSlot, appointment.ServiceID)
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, lockKey); err != nil {
			return fmt.Errorf("failed to acquire booking lock: %w", err)
		}

		var count int
		err := tx.GetContext(ctx, &count, `
			SELECT COUNT(*) FROM appointments
			WHERE schedule_id = $1
			AND date = $2
			AND time_slot = $3
			AND service_id = $4
			AND status <> 'canceled'
		`, appointment.ScheduleID, appointment.Date, appointment.TimeSlot, appointment.ServiceID)
		if err != nil {
			return fmt.Errorf("failed to count bucket occupancy: %w", err)
		}
		if count >= capacity {
			return repository.ErrConflict
		}

		return r.insert(ctx, tx, appointment)
	})
}

func (r *appointmentRepository) insert(ctx context.Context, tx *sqlx.Tx, appointment *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, schedule_id, provider_id, service_id, customer_id,
			date, start_time, end_time, time_slot, status, notes,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	appointment.ID = uuid.New()
	appointment.CreatedAt = time.Now()
	appointment.UpdatedAt = appointment.CreatedAt

	_, err := tx.ExecContext(ctx, query,
		appointment.ID,
		appointment.ScheduleID,
		appointment.ProviderID,
		appointment.ServiceID,
		appointment.CustomerID,
		appointment.Date,
		appointment.StartTime,
		appointment.EndTime,
		appointment.TimeSlot,
		appointment.Status,
		appointment.Notes,
		appointment.CreatedAt,
		appointment.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return repository.ErrConflict
		}
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) GetByCustomer(ctx context.Context, customerID, id uuid.UUID) (_ *model.Appointment, err error) {
	started := time.Now()
	defer func() { r.observe("get_by_customer", started, err) }()
	query := `
		SELECT id, schedule_id, provider_id, service_id, customer_id,
			   date, start_time, end_time, time_slot, status, notes,
			   canceled_at, canceled_by, created_at, updated_at
		FROM appointments
		WHERE id = $1 AND customer_id = $2
	`
	var appointment model.Appointment
	err = r.db.GetContext(ctx, &appointment, query, id, customerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appointment, nil
}

func (r *appointmentRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID, filters *model.AppointmentFilters) (_ []*model.Appointment, err error) {
	started := time.Now()
	defer func() { r.observe("list_by_customer", started, err) }()
	query := `
		SELECT id, schedule_id, provider_id, service_id, customer_id,
			   date, start_time, end_time, time_slot, status, notes,
			   canceled_at, canceled_by, created_at, updated_at
		FROM appointments
		WHERE customer_id = $1
	`
	args := []interface{}{customerID}
	argCount := 2

	if filters != nil {
		if filters.ActiveOnly {
			query += " AND status <> 'canceled'"
		}
		if filters.Date != "" {
			query += fmt.Sprintf(" AND date = $%d", argCount)
			args = append(args, filters.Date)
			argCount++
		}
	}

	query += " ORDER BY date ASC, start_time ASC"

	var appointments []*model.Appointment
	err = r.db.SelectContext(ctx, &appointments, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list customer appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus, metadata *repository.CancelMetadata) (err error) {
	started := time.Now()
	defer func() { r.observe("update_status", started, err) }()
	// Guarded so a canceled appointment is never touched again; the stamp
	// is written once.
	query := `
		UPDATE appointments
		SET status = $1, canceled_at = $2, canceled_by = $3, updated_at = $4
		WHERE id = $5
		AND status <> 'canceled'
	`
	var canceledAt *time.Time
	var canceledBy *uuid.UUID
	if metadata != nil {
		canceledAt = &metadata.CanceledAt
		canceledBy = &metadata.CanceledBy
	}

	result, err := r.db.ExecContext(ctx, query, status, canceledAt, canceledBy, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update appointment status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *appointmentRepository) ListUpcoming(ctx context.Context, date string) (_ []*model.Appointment, err error) {
	started := time.Now()
	defer func() { r.observe("list_upcoming", started, err) }()
	query := `
		SELECT id, schedule_id, provider_id, service_id, customer_id,
			   date, start_time, end_time, time_slot, status, notes,
			   canceled_at, canceled_by, created_at, updated_at
		FROM appointments
		WHERE date = $1
		AND status <> 'canceled'
		ORDER BY start_time ASC
	`
	var appointments []*model.Appointment
	err = r.db.SelectContext(ctx, &appointments, query, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("rollback failed: %v (original: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
