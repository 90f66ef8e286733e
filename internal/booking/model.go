// Package booking implements the appointment-booking saga driven by the
// voice platform's tool-call webhooks. Five externally triggered events move
// one persisted workflow record through its states; the voice platform is the
// only component that sequences them.
package booking

import "time"

// Status is the workflow lifecycle state. It only moves forward, except for
// the explicit reset to INITIATED on reschedule/retry.
type Status string

const (
	StatusInitiated        Status = "INITIATED"
	StatusTimesCollected   Status = "TIMES_COLLECTED"
	StatusPatientConfirmed Status = "PATIENT_CONFIRMED"
	StatusCompleted        Status = "COMPLETED"
	StatusFailed           Status = "FAILED"
)

// Terminal reports whether the workflow's active lifecycle has ended.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Slot is one appointment time offered by the clinic. Datetimes stay opaque
// strings end to end: they are collected and spoken by the voice agent, never
// computed on.
type Slot struct {
	Datetime   string `json:"datetime"`
	DoctorName string `json:"doctor_name,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

// Workflow is one in-progress attempt to book a medical appointment after a
// workplace incident. Created out-of-band in INITIATED; mutated only through
// the saga transitions.
type Workflow struct {
	WorkflowID      string `json:"workflow_id"`
	IncidentID      string `json:"incident_id"`
	WorkerID        string `json:"worker_id"`
	MedicalCenterID string `json:"medical_center_id"`
	Status          Status `json:"status"`

	AvailableTimes []Slot `json:"available_times"`

	PatientPreferredTime   string `json:"patient_preferred_time,omitempty"`
	PatientPreferredDoctor string `json:"patient_preferred_doctor,omitempty"`

	ConfirmedDatetime   string `json:"confirmed_datetime,omitempty"`
	ConfirmedDoctorName string `json:"confirmed_doctor_name,omitempty"`
	ConfirmedLocation   string `json:"confirmed_location,omitempty"`
	ClinicEmail         string `json:"clinic_email,omitempty"`
	SpecialInstructions string `json:"special_instructions,omitempty"`
	FailureReason       string `json:"failure_reason,omitempty"`
	AppointmentID       string `json:"appointment_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MedicalCenter is the clinic the workflow is booking into, joined in on
// fetch so responses can speak the location.
type MedicalCenter struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	Suburb   string `json:"suburb"`
	Postcode string `json:"postcode"`
}

// FullAddress composes the spoken/stored location string.
func (m *MedicalCenter) FullAddress() string {
	if m == nil {
		return ""
	}
	out := m.Address
	if m.Suburb != "" {
		if out != "" {
			out += ", "
		}
		out += m.Suburb
	}
	if m.Postcode != "" {
		if out != "" {
			out += " "
		}
		out += m.Postcode
	}
	return out
}
