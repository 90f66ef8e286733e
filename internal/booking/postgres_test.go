package booking

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return newPostgresStoreWithQuerier(mock), mock
}

func fetchColumns() []string {
	return []string{
		"workflow_id", "incident_id", "worker_id", "medical_center_id",
		"status", "available_times",
		"patient_preferred_time", "patient_preferred_doctor",
		"confirmed_datetime", "confirmed_doctor_name", "confirmed_location",
		"clinic_email", "special_instructions", "failure_reason",
		"appointment_id", "created_at", "updated_at",
		"id", "name", "address", "suburb", "postcode",
	}
}

func TestPostgresFetch(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()
	centerID := "mc-1"

	mock.ExpectQuery("SELECT w.workflow_id").
		WithArgs("wf-1").
		WillReturnRows(pgxmock.NewRows(fetchColumns()).AddRow(
			"wf-1", "inc-1", "worker-1", "mc-1",
			Status("TIMES_COLLECTED"), []byte(`[{"datetime":"2026-09-01T09:00:00","doctor_name":"Dr. Wu"}]`),
			"", "", "", "", "", "", "", "", "",
			now, now,
			&centerID, "Harbour Medical Centre", "12 Quay St", "Sydney", "2000",
		))

	res, err := store.Fetch(context.Background(), "wf-1")
	require.NoError(t, err)
	require.True(t, res.Found)
	assert.Equal(t, StatusTimesCollected, res.Workflow.Status)
	require.Len(t, res.Workflow.AvailableTimes, 1)
	assert.Equal(t, "Dr. Wu", res.Workflow.AvailableTimes[0].DoctorName)
	require.NotNil(t, res.MedicalCenter)
	assert.Equal(t, "12 Quay St, Sydney 2000", res.MedicalCenter.FullAddress())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFetchNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT w.workflow_id").
		WithArgs("wf-missing").
		WillReturnRows(pgxmock.NewRows(fetchColumns()))

	res, err := store.Fetch(context.Background(), "wf-missing")
	require.NoError(t, err)
	assert.False(t, res.Found)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFetchNoJoinedCenter(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery("SELECT w.workflow_id").
		WithArgs("wf-1").
		WillReturnRows(pgxmock.NewRows(fetchColumns()).AddRow(
			"wf-1", "inc-1", "worker-1", "mc-gone",
			Status("INITIATED"), []byte(nil),
			"", "", "", "", "", "", "", "", "",
			now, now,
			(*string)(nil), "", "", "", "",
		))

	res, err := store.Fetch(context.Background(), "wf-1")
	require.NoError(t, err)
	require.True(t, res.Found)
	assert.Nil(t, res.MedicalCenter)
	assert.Empty(t, res.Workflow.AvailableTimes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresApplyOnlySetsCarriedFields(t *testing.T) {
	store, mock := newMockStore(t)
	preferred := "2026-09-01T09:00:00"

	mock.ExpectExec(`UPDATE booking_workflows SET status = \$1, updated_at = now\(\), patient_preferred_time = \$2 WHERE workflow_id = \$3`).
		WithArgs("PATIENT_CONFIRMED", preferred, "wf-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := store.Apply(context.Background(), "wf-1", Update{
		Status:               StatusPatientConfirmed,
		PatientPreferredTime: &preferred,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresApplyReplacesTimesWithEmpty(t *testing.T) {
	store, mock := newMockStore(t)
	empty := []Slot{}

	mock.ExpectExec(`UPDATE booking_workflows SET status = \$1, updated_at = now\(\), available_times = \$2 WHERE workflow_id = \$3`).
		WithArgs("INITIATED", []byte("[]"), "wf-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := store.Apply(context.Background(), "wf-1", Update{
		Status:         StatusInitiated,
		AvailableTimes: &empty,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresApplyUnknownWorkflow(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE booking_workflows").
		WithArgs("FAILED", "wf-missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := store.Apply(context.Background(), "wf-missing", Update{Status: StatusFailed})
	assert.ErrorIs(t, err, ErrWorkflowNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
