// Package appointments persists confirmed medical appointments. Records are
// created by the booking saga once a clinic locks a time in; they are the
// system of record downstream scheduling and reminders read from.
package appointments

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scratchieapp/booking-agent/internal/booking"
)

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository is the pgx-backed appointment store.
type Repository struct {
	pool rowQuerier
}

// NewRepository creates an appointment repository backed by a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &Repository{pool: pool}
}

func newRepositoryWithQuerier(q rowQuerier) *Repository {
	if q == nil {
		panic("appointments: querier required")
	}
	return &Repository{pool: q}
}

// Create inserts one confirmed appointment and returns its id. The scheduled
// date is stored as the clinic spoke it; no timezone math happens here.
func (r *Repository) Create(ctx context.Context, appt booking.Appointment) (string, error) {
	if appt.IncidentID == "" {
		return "", fmt.Errorf("appointments: incident_id required")
	}
	if appt.ScheduledDate == "" {
		return "", fmt.Errorf("appointments: scheduled_date required")
	}
	if appt.ConfirmationStatus == "" {
		appt.ConfirmationStatus = "confirmed"
	}

	query := `
		INSERT INTO appointments (
			id, incident_id, worker_id, medical_center_id,
			scheduled_date, confirmation_status, confirmation_method,
			doctor_name, notes, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		RETURNING id
	`
	var id string
	err := r.pool.QueryRow(ctx, query,
		uuid.NewString(),
		appt.IncidentID,
		nullable(appt.WorkerID),
		nullable(appt.MedicalCenterID),
		appt.ScheduledDate,
		appt.ConfirmationStatus,
		nullable(appt.ConfirmationMethod),
		nullable(appt.DoctorName),
		nullable(appt.Notes),
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("appointments: create: %w", err)
	}
	return id, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
