package booking

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/scratchieapp/booking-agent/internal/observability/metrics"
	"github.com/scratchieapp/booking-agent/pkg/logging"
)

var sagaTracer = otel.Tracer("booking-agent.internal.booking")

// Event names one externally triggered saga transition.
type Event string

const (
	EventSubmitTimes       Event = "submit_times"
	EventPatientConfirm    Event = "patient_confirm"
	EventPatientReschedule Event = "patient_reschedule"
	EventConfirmFinal      Event = "confirm_final"
	EventBookingFailed     Event = "booking_failed"
)

// Next-step tokens interpreted by the voice platform.
const (
	NextCallPatient       = "call_patient"
	NextRetryOrFail       = "retry_or_fail"
	NextEndCall           = "end_call"
	NextAskAgain          = "ask_again"
	NextConfirmWithClinic = "confirm_with_clinic"
	NextGetNewTimes       = "get_new_times"
	NextBookingFailed     = "booking_failed"
	NextBookingComplete   = "booking_complete"
)

// Result is the response envelope for every tool call. Message is spoken to
// the phone participant by the agent's TTS, so it is always a complete,
// polite sentence regardless of what happened internally.
type Result struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	NextStep string `json:"next_step,omitempty"`

	TimesCount           int    `json:"times_count,omitempty"`
	ConfirmedTime        string `json:"confirmed_time,omitempty"`
	AppointmentConfirmed *bool  `json:"appointment_confirmed,omitempty"`
	AppointmentDatetime  string `json:"appointment_datetime,omitempty"`
	DoctorName           string `json:"doctor_name,omitempty"`
	ShouldRetry          *bool  `json:"should_retry,omitempty"`
}

// Saga applies booking workflow transitions. It is stateless; every call is
// an independent request and all coordination state lives in the store.
type Saga struct {
	store        WorkflowStore
	activity     ActivityLogger
	appointments AppointmentCreator
	alerter      Alerter
	metrics      *metrics.BookingMetrics
	logger       *logging.Logger
}

// SagaConfig configures a Saga. Store is required; everything else degrades
// gracefully when absent.
type SagaConfig struct {
	Store        WorkflowStore
	Activity     ActivityLogger
	Appointments AppointmentCreator
	Alerter      Alerter
	Metrics      *metrics.BookingMetrics
	Logger       *logging.Logger
}

// NewSaga constructs the transition service.
func NewSaga(cfg SagaConfig) *Saga {
	if cfg.Store == nil {
		panic("booking: workflow store required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Saga{
		store:        cfg.Store,
		activity:     cfg.Activity,
		appointments: cfg.Appointments,
		alerter:      cfg.Alerter,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger,
	}
}

// Apply dispatches one event against the workflow named in the payload.
// It never returns an error: every internal failure maps to a
// conversationally safe Result, because the consumer of Message is a person
// on a live phone call.
func (s *Saga) Apply(ctx context.Context, event Event, p *Payload) *Result {
	ctx, span := sagaTracer.Start(ctx, "booking.apply")
	defer span.End()
	span.SetAttributes(
		attribute.String("booking.event", string(event)),
		attribute.String("booking.workflow_id", p.WorkflowID()),
	)

	switch event {
	case EventSubmitTimes:
		return s.submitTimes(ctx, p)
	case EventPatientConfirm:
		return s.patientConfirm(ctx, p)
	case EventPatientReschedule:
		return s.patientReschedule(ctx, p)
	case EventConfirmFinal:
		return s.confirmFinal(ctx, p)
	case EventBookingFailed:
		return s.bookingFailed(ctx, p)
	default:
		s.logger.Error("unknown booking event", "event", event)
		return safeResult()
	}
}

// submitTimes records clinic availability and moves the workflow to
// TIMES_COLLECTED.
func (s *Saga) submitTimes(ctx context.Context, p *Payload) *Result {
	slots := p.Slots("available_times")
	if len(slots) == 0 {
		return &Result{
			Success:  false,
			Message:  "Sorry, I didn't catch any appointment times there. Could you run through the available times once more?",
			NextStep: NextRetryOrFail,
		}
	}

	wf, res := s.loadWorkflow(ctx, EventSubmitTimes, p)
	if res != nil {
		return res
	}

	upd := Update{
		Status:         StatusTimesCollected,
		AvailableTimes: &slots,
	}
	if err := s.store.Apply(ctx, wf.WorkflowID, upd); err != nil {
		return s.storeFailure("apply_workflow", err)
	}

	notes := p.String("clinic_notes")
	s.logActivity(ctx, ActivityEntry{
		IncidentID: wf.IncidentID,
		Summary:    fmt.Sprintf("Clinic offered %d appointment time(s)", len(slots)),
		Details:    notes,
		Metadata: map[string]any{
			"workflow_id":  wf.WorkflowID,
			"times_count":  len(slots),
			"clinic_notes": notes,
		},
	})

	return &Result{
		Success:    true,
		Message:    fmt.Sprintf("Thanks, I've noted %d available appointment times. I'll check with the patient and call back to confirm.", len(slots)),
		NextStep:   NextCallPatient,
		TimesCount: len(slots),
	}
}

// patientConfirm records the patient's selected time and moves the workflow
// to PATIENT_CONFIRMED.
func (s *Saga) patientConfirm(ctx context.Context, p *Payload) *Result {
	confirmedTime := p.String("patient_confirmed_time")
	if confirmedTime == "" {
		// Re-ask rather than abandon: the agent stays on the call.
		return &Result{
			Success:  false,
			Message:  "Sorry, I didn't catch which appointment time works for you. Could you tell me again which one you'd prefer?",
			NextStep: NextAskAgain,
		}
	}

	wf, res := s.loadWorkflow(ctx, EventPatientConfirm, p)
	if res != nil {
		return res
	}

	doctor := p.String("patient_preferred_doctor")
	upd := Update{
		Status:               StatusPatientConfirmed,
		PatientPreferredTime: &confirmedTime,
	}
	if doctor != "" {
		upd.PatientPreferredDoctor = &doctor
	}
	if err := s.store.Apply(ctx, wf.WorkflowID, upd); err != nil {
		return s.storeFailure("apply_workflow", err)
	}

	s.logActivity(ctx, ActivityEntry{
		IncidentID: wf.IncidentID,
		Summary:    fmt.Sprintf("Patient confirmed appointment time %s", confirmedTime),
		Details:    doctor,
		Metadata: map[string]any{
			"workflow_id":              wf.WorkflowID,
			"patient_confirmed_time":   confirmedTime,
			"patient_preferred_doctor": doctor,
		},
	})

	return &Result{
		Success:       true,
		Message:       fmt.Sprintf("Perfect, I've got you down for %s. We'll confirm with the clinic and lock it in.", confirmedTime),
		NextStep:      NextConfirmWithClinic,
		ConfirmedTime: confirmedTime,
	}
}

// patientReschedule clears the offered times and loops the saga back to the
// clinic-outreach stage. The reset is unconditional once triggered.
func (s *Saga) patientReschedule(ctx context.Context, p *Payload) *Result {
	wf, res := s.loadWorkflow(ctx, EventPatientReschedule, p)
	if res != nil {
		return res
	}

	empty := []Slot{}
	if err := s.store.Apply(ctx, wf.WorkflowID, Update{
		Status:         StatusInitiated,
		AvailableTimes: &empty,
	}); err != nil {
		return s.storeFailure("apply_workflow", err)
	}

	reason := p.String("reason")
	availability := p.String("patient_availability_notes")
	s.logActivity(ctx, ActivityEntry{
		IncidentID: wf.IncidentID,
		Summary:    "Patient rejected all offered times; requesting new availability from clinic",
		Details:    joinNonEmpty(reason, availability),
		Metadata: map[string]any{
			"workflow_id":                wf.WorkflowID,
			"reason":                     reason,
			"patient_availability_notes": availability,
		},
	})

	return &Result{
		Success:  true,
		Message:  "No problem at all. I'll go back to the clinic for a new set of times and we'll give you another call.",
		NextStep: NextGetNewTimes,
	}
}

// confirmFinal completes the booking: creates the appointment record exactly
// once and moves the workflow to COMPLETED.
func (s *Saga) confirmFinal(ctx context.Context, p *Payload) *Result {
	if !p.Bool("booking_confirmed", true) {
		// Report only; the platform follows up with the booking_failed tool
		// to actually transition state.
		confirmed := false
		return &Result{
			Success:              false,
			Message:              "Understood, the booking wasn't confirmed. I'll make a note and we'll follow up.",
			NextStep:             NextBookingFailed,
			AppointmentConfirmed: &confirmed,
		}
	}

	workflowID := p.WorkflowID()
	if workflowID == "" {
		return s.missingCorrelation(ctx, EventConfirmFinal, p)
	}

	fetched, err := s.store.Fetch(ctx, workflowID)
	if err != nil {
		return s.storeFailure("fetch_workflow", err)
	}
	if !fetched.Found {
		// Favor not breaking the call over surfacing the inconsistency.
		s.logger.Warn("confirm_final for unknown workflow", "workflow_id", workflowID)
		return safeResult()
	}
	wf := fetched.Workflow

	if wf.Status == StatusCompleted {
		// Repeat delivery of an already-completed booking: re-serve the
		// success response, never create a second appointment.
		s.logger.Info("confirm_final repeat on completed workflow",
			"workflow_id", wf.WorkflowID, "appointment_id", wf.AppointmentID)
		return completedResult(wf.ConfirmedDatetime, wf.ConfirmedDoctorName)
	}

	appointmentTime := p.String("confirmed_datetime")
	if appointmentTime == "" {
		appointmentTime = wf.PatientPreferredTime
	}
	doctor := p.String("confirmed_doctor_name")
	if doctor == "" {
		doctor = wf.PatientPreferredDoctor
	}
	clinicEmail := p.String("clinic_email")
	instructions := p.String("special_instructions")
	bookingNotes := p.String("booking_notes")
	location := fetched.MedicalCenter.FullAddress()

	apptID := ""
	if s.appointments != nil {
		apptID, err = s.appointments.Create(ctx, Appointment{
			IncidentID:         wf.IncidentID,
			WorkerID:           wf.WorkerID,
			MedicalCenterID:    wf.MedicalCenterID,
			ScheduledDate:      appointmentTime,
			ConfirmationStatus: "confirmed",
			ConfirmationMethod: "voice_agent",
			DoctorName:         doctor,
			Notes:              joinNonEmpty(location, instructions, bookingNotes),
		})
		if err != nil {
			return s.storeFailure("create_appointment", err)
		}
	}

	upd := Update{
		Status:            StatusCompleted,
		ConfirmedDatetime: &appointmentTime,
	}
	if doctor != "" {
		upd.ConfirmedDoctorName = &doctor
	}
	if location != "" {
		upd.ConfirmedLocation = &location
	}
	if clinicEmail != "" {
		upd.ClinicEmail = &clinicEmail
	}
	if instructions != "" {
		upd.SpecialInstructions = &instructions
	}
	if apptID != "" {
		upd.AppointmentID = &apptID
	}
	if err := s.store.Apply(ctx, wf.WorkflowID, upd); err != nil {
		return s.storeFailure("apply_workflow", err)
	}

	s.logActivity(ctx, ActivityEntry{
		IncidentID: wf.IncidentID,
		Summary:    fmt.Sprintf("Appointment booked for %s", appointmentTime),
		Details:    joinNonEmpty(doctor, location, bookingNotes),
		Metadata: map[string]any{
			"workflow_id":        wf.WorkflowID,
			"appointment_id":     apptID,
			"confirmed_datetime": appointmentTime,
			"doctor_name":        doctor,
			"clinic_email":       clinicEmail,
		},
	})

	return completedResult(appointmentTime, doctor)
}

// bookingFailed records a failure report, either resetting for another
// attempt or ending the workflow.
func (s *Saga) bookingFailed(ctx context.Context, p *Payload) *Result {
	reason := p.String("failure_reason")
	if reason == "" {
		reason = "Unable to complete booking"
	}
	retry := p.Bool("should_retry", false)
	notes := p.String("notes")

	wf, res := s.loadWorkflow(ctx, EventBookingFailed, p)
	if res != nil {
		return res
	}

	status := StatusFailed
	summary := fmt.Sprintf("Booking failed: %s", reason)
	if retry {
		status = StatusInitiated
		summary = fmt.Sprintf("Booking needs retry: %s", reason)
	}

	if err := s.store.Apply(ctx, wf.WorkflowID, Update{
		Status:        status,
		FailureReason: &reason,
	}); err != nil {
		return s.storeFailure("apply_workflow", err)
	}

	s.logActivity(ctx, ActivityEntry{
		IncidentID: wf.IncidentID,
		Summary:    summary,
		Details:    notes,
		Metadata: map[string]any{
			"workflow_id":    wf.WorkflowID,
			"failure_reason": reason,
			"should_retry":   retry,
		},
	})

	message := "Thanks for letting me know. I've recorded that this booking couldn't be completed."
	if retry {
		message = "Thanks for letting me know. We'll try again shortly with a fresh round of availability."
	}
	return &Result{
		Success:     true,
		Message:     message,
		NextStep:    NextEndCall,
		ShouldRetry: &retry,
	}
}

// loadWorkflow resolves the correlation key and fetches the record. A non-nil
// Result means the caller should return it as-is (fail-safe paths).
func (s *Saga) loadWorkflow(ctx context.Context, event Event, p *Payload) (*Workflow, *Result) {
	workflowID := p.WorkflowID()
	if workflowID == "" {
		return nil, s.missingCorrelation(ctx, event, p)
	}
	fetched, err := s.store.Fetch(ctx, workflowID)
	if err != nil {
		return nil, s.storeFailure("fetch_workflow", err)
	}
	if !fetched.Found {
		s.logger.Warn("workflow not found", "event", event, "workflow_id", workflowID)
		return nil, safeResult()
	}
	return fetched.Workflow, nil
}

// missingCorrelation is the deliberate fail-safe: the conversation must not
// stall or error audibly, so the event is dropped with a reassuring message.
// The drop is loud everywhere except on the phone.
func (s *Saga) missingCorrelation(ctx context.Context, event Event, p *Payload) *Result {
	s.logger.Error("tool call with unresolvable workflow_id; event dropped",
		"event", event, "tool_call_id", p.ToolCallID())
	s.metrics.ObserveMissingCorrelation(string(event))
	if s.alerter != nil {
		subject := fmt.Sprintf("Booking agent dropped a %s event", event)
		body := fmt.Sprintf(
			"A %s tool call arrived without a resolvable workflow_id (tool_call_id=%q). "+
				"The caller received a generic acknowledgement and nothing was persisted.",
			event, p.ToolCallID())
		if err := s.alerter.Alert(ctx, subject, body); err != nil {
			s.logger.Error("missing-correlation alert failed", "error", err)
		}
	}
	return safeResult()
}

// storeFailure logs a collaborator error and degrades to the safe response.
func (s *Saga) storeFailure(op string, err error) *Result {
	s.logger.Error("store operation failed", "op", op, "error", err)
	s.metrics.ObserveStoreFailure(op)
	return safeResult()
}

// logActivity appends an audit entry; failures are logged and swallowed so
// the audit trail never takes down a live call.
func (s *Saga) logActivity(ctx context.Context, entry ActivityEntry) {
	if s.activity == nil {
		return
	}
	if err := s.activity.Append(ctx, entry); err != nil {
		s.logger.Error("activity log append failed",
			"error", err, "incident_id", entry.IncidentID, "summary", entry.Summary)
		s.metrics.ObserveStoreFailure("append_activity")
	}
}

// safeResult is the generic conversationally safe envelope used whenever the
// handler cannot or should not report what actually happened.
func safeResult() *Result {
	return &Result{
		Success:  true,
		Message:  "Thanks for that, I've made a note of everything. We'll be in touch shortly.",
		NextStep: NextEndCall,
	}
}

func completedResult(appointmentTime, doctor string) *Result {
	confirmed := true
	message := fmt.Sprintf("Wonderful, the appointment is locked in for %s. Thank you for your help.", appointmentTime)
	if doctor != "" {
		message = fmt.Sprintf("Wonderful, the appointment is locked in for %s with %s. Thank you for your help.", appointmentTime, doctor)
	}
	return &Result{
		Success:              true,
		Message:              message,
		NextStep:             NextBookingComplete,
		AppointmentConfirmed: &confirmed,
		AppointmentDatetime:  appointmentTime,
		DoctorName:           doctor,
	}
}

func joinNonEmpty(parts ...string) string {
	out := ""
	for _, part := range parts {
		if part == "" {
			continue
		}
		if out != "" {
			out += " | "
		}
		out += part
	}
	return out
}
