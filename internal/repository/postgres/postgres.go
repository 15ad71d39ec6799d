package postgres

import (
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/talkbase/scheduling-api/internal/repository"
	"github.com/talkbase/scheduling-api/pkg/metrics"
)

type scheduleRepository struct {
	db *sqlx.DB
}

type appointmentRepository struct {
	db      *sqlx.DB
	metrics *metrics.Metrics
}

func NewScheduleRepository(db *sqlx.DB) repository.ScheduleRepository {
	return &scheduleRepository{db: db}
}

func NewAppointmentRepository(db *sqlx.DB, m *metrics.Metrics) repository.AppointmentRepository {
	return &appointmentRepository{db: db, metrics: m}
}

func (r *appointmentRepository) observe(operation string, start time.Time, err error) {
	if r.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	r.metrics.DatabaseOperations.WithLabelValues(operation, status).Inc()
	r.metrics.DatabaseLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
