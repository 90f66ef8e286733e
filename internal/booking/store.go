package booking

import (
	"context"
	"errors"
)

// ErrWorkflowNotFound is returned by stores when no record matches.
var ErrWorkflowNotFound = errors.New("booking: workflow not found")

// FetchResult carries the workflow plus its joined medical center.
type FetchResult struct {
	Found         bool
	Workflow      *Workflow
	MedicalCenter *MedicalCenter
}

// Update is a partial field merge. Nil pointers leave the stored value
// unchanged; AvailableTimes, when non-nil, wholesale-replaces the list
// (including replacing it with empty). Applying the same Update twice yields
// the same state, which is what lets the dispatcher retry tool calls safely.
type Update struct {
	Status Status

	AvailableTimes *[]Slot

	PatientPreferredTime   *string
	PatientPreferredDoctor *string

	ConfirmedDatetime   *string
	ConfirmedDoctorName *string
	ConfirmedLocation   *string
	ClinicEmail         *string
	SpecialInstructions *string
	FailureReason       *string
	AppointmentID       *string
}

// WorkflowStore is the persistence contract for booking workflows.
// Apply must be atomic at field-merge granularity; concurrent calls for the
// same workflow are last-write-wins by design (one live call drives one
// workflow at a time).
type WorkflowStore interface {
	Fetch(ctx context.Context, workflowID string) (*FetchResult, error)
	Apply(ctx context.Context, workflowID string, upd Update) error
}

// ActivityEntry is one append-only audit record keyed by the incident.
type ActivityEntry struct {
	IncidentID string
	ActionType string // defaults to "voice_agent"
	Summary    string
	Details    string
	ActorName  string // defaults to "AI Booking Agent"
	Metadata   map[string]any
}

// ActivityLogger appends audit trail entries.
type ActivityLogger interface {
	Append(ctx context.Context, entry ActivityEntry) error
}

// Appointment is the confirmed-appointment record created exactly once per
// workflow on completion.
type Appointment struct {
	IncidentID         string
	WorkerID           string
	MedicalCenterID    string
	ScheduledDate      string
	ConfirmationStatus string // defaults to "confirmed"
	ConfirmationMethod string
	DoctorName         string
	Notes              string
}

// AppointmentCreator persists confirmed appointments.
type AppointmentCreator interface {
	Create(ctx context.Context, appt Appointment) (string, error)
}

// Alerter is the side channel for events that are silently dropped from the
// caller's perspective (missing correlation key).
type Alerter interface {
	Alert(ctx context.Context, subject, body string) error
}
