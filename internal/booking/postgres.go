package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgxQuerier is the slice of pgxpool.Pool the store needs; it lets tests
// inject pgxmock.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore is the pgx-backed WorkflowStore.
type PostgresStore struct {
	pool pgxQuerier
}

// NewPostgresStore creates a store backed by a pgx pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("booking: pgx pool required")
	}
	return &PostgresStore{pool: pool}
}

// newPostgresStoreWithQuerier allows injecting mocks for tests.
func newPostgresStoreWithQuerier(q pgxQuerier) *PostgresStore {
	if q == nil {
		panic("booking: querier required")
	}
	return &PostgresStore{pool: q}
}

const fetchWorkflowQuery = `
	SELECT w.workflow_id, w.incident_id, w.worker_id, w.medical_center_id,
	       w.status, w.available_times,
	       COALESCE(w.patient_preferred_time, ''),
	       COALESCE(w.patient_preferred_doctor, ''),
	       COALESCE(w.confirmed_datetime, ''),
	       COALESCE(w.confirmed_doctor_name, ''),
	       COALESCE(w.confirmed_location, ''),
	       COALESCE(w.clinic_email, ''),
	       COALESCE(w.special_instructions, ''),
	       COALESCE(w.failure_reason, ''),
	       COALESCE(w.appointment_id, ''),
	       w.created_at, w.updated_at,
	       m.id, COALESCE(m.name, ''), COALESCE(m.address, ''),
	       COALESCE(m.suburb, ''), COALESCE(m.postcode, '')
	FROM booking_workflows w
	LEFT JOIN medical_centers m ON m.id = w.medical_center_id
	WHERE w.workflow_id = $1
`

// Fetch loads the workflow with its medical center joined in. A missing
// record is not an error; the handlers branch on Found.
func (s *PostgresStore) Fetch(ctx context.Context, workflowID string) (*FetchResult, error) {
	row := s.pool.QueryRow(ctx, fetchWorkflowQuery, workflowID)

	var wf Workflow
	var times []byte
	var centerID *string
	var center MedicalCenter
	if err := row.Scan(
		&wf.WorkflowID, &wf.IncidentID, &wf.WorkerID, &wf.MedicalCenterID,
		&wf.Status, &times,
		&wf.PatientPreferredTime, &wf.PatientPreferredDoctor,
		&wf.ConfirmedDatetime, &wf.ConfirmedDoctorName, &wf.ConfirmedLocation,
		&wf.ClinicEmail, &wf.SpecialInstructions, &wf.FailureReason,
		&wf.AppointmentID,
		&wf.CreatedAt, &wf.UpdatedAt,
		&centerID, &center.Name, &center.Address, &center.Suburb, &center.Postcode,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &FetchResult{Found: false}, nil
		}
		return nil, fmt.Errorf("booking: fetch workflow: %w", err)
	}

	if len(times) > 0 {
		if err := json.Unmarshal(times, &wf.AvailableTimes); err != nil {
			return nil, fmt.Errorf("booking: decode available_times: %w", err)
		}
	}

	res := &FetchResult{Found: true, Workflow: &wf}
	if centerID != nil {
		res.MedicalCenter = &center
	}
	return res, nil
}

// Apply merges the update in a single UPDATE so the field merge is atomic.
// Only fields carried by the update make it into the SET list.
func (s *PostgresStore) Apply(ctx context.Context, workflowID string, upd Update) error {
	sets := []string{"status = $1", "updated_at = now()"}
	args := []any{string(upd.Status)}

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if upd.AvailableTimes != nil {
		data, err := json.Marshal(*upd.AvailableTimes)
		if err != nil {
			return fmt.Errorf("booking: encode available_times: %w", err)
		}
		add("available_times", data)
	}
	addString := func(column string, value *string) {
		if value != nil {
			add(column, *value)
		}
	}
	addString("patient_preferred_time", upd.PatientPreferredTime)
	addString("patient_preferred_doctor", upd.PatientPreferredDoctor)
	addString("confirmed_datetime", upd.ConfirmedDatetime)
	addString("confirmed_doctor_name", upd.ConfirmedDoctorName)
	addString("confirmed_location", upd.ConfirmedLocation)
	addString("clinic_email", upd.ClinicEmail)
	addString("special_instructions", upd.SpecialInstructions)
	addString("failure_reason", upd.FailureReason)
	addString("appointment_id", upd.AppointmentID)

	args = append(args, workflowID)
	query := fmt.Sprintf(
		"UPDATE booking_workflows SET %s WHERE workflow_id = $%d",
		strings.Join(sets, ", "), len(args),
	)

	ct, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("booking: apply workflow update: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrWorkflowNotFound
	}
	return nil
}
