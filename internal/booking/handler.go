package booking

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/scratchieapp/booking-agent/internal/observability/metrics"
	"github.com/scratchieapp/booking-agent/pkg/logging"
)

// toolCallDeduper suppresses transport-level redelivery of the same tool
// call. Optional; the merge semantics already make replays state-safe.
type toolCallDeduper interface {
	Seen(ctx context.Context, toolCallID string) (bool, error)
	Mark(ctx context.Context, toolCallID string) error
}

// Handler exposes the saga transitions as webhook tool-call endpoints.
//
// Every endpoint answers 200 with a Result body no matter what happened
// inside: the caller is a live phone call, and a 5xx or empty body turns
// into dead air for the person on the line.
type Handler struct {
	saga    *Saga
	store   WorkflowStore
	dedupe  toolCallDeduper
	metrics *metrics.BookingMetrics
	logger  *logging.Logger
}

// HandlerConfig configures the webhook handler.
type HandlerConfig struct {
	Saga    *Saga
	Store   WorkflowStore
	Dedupe  toolCallDeduper
	Metrics *metrics.BookingMetrics
	Logger  *logging.Logger
}

// NewHandler creates the webhook handler.
func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.Saga == nil {
		panic("booking: saga required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Handler{
		saga:    cfg.Saga,
		store:   cfg.Store,
		dedupe:  cfg.Dedupe,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
	}
}

// HandleSubmitTimes is POST /webhooks/voice/submit-times.
func (h *Handler) HandleSubmitTimes(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, EventSubmitTimes)
}

// HandlePatientConfirm is POST /webhooks/voice/patient-confirm.
func (h *Handler) HandlePatientConfirm(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, EventPatientConfirm)
}

// HandlePatientReschedule is POST /webhooks/voice/patient-reschedule.
func (h *Handler) HandlePatientReschedule(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, EventPatientReschedule)
}

// HandleConfirmFinal is POST /webhooks/voice/confirm-final.
func (h *Handler) HandleConfirmFinal(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, EventConfirmFinal)
}

// HandleBookingFailed is POST /webhooks/voice/booking-failed.
func (h *Handler) HandleBookingFailed(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, EventBookingFailed)
}

// HealthCheck reports liveness.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, event Event) {
	start := time.Now()
	res := h.process(r, event)
	h.metrics.ObserveWebhookLatency(string(event), time.Since(start).Seconds())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(res); err != nil {
		h.logger.Error("failed to write webhook response", "event", event, "error", err)
	}
}

func (h *Handler) process(r *http.Request, event Event) (res *Result) {
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("panic in webhook handler", "event", event, "panic", rec)
			h.metrics.ObserveWebhook(string(event), "panic")
			res = safeResult()
		}
	}()

	ctx := r.Context()

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		h.logger.Error("failed to read webhook body", "event", event, "error", err)
		h.metrics.ObserveWebhook(string(event), "invalid_payload")
		return safeResult()
	}
	p, err := ParsePayload(body)
	if err != nil {
		h.logger.Warn("unparseable webhook payload", "event", event, "error", err)
		h.metrics.ObserveWebhook(string(event), "invalid_payload")
		return safeResult()
	}

	toolCallID := p.ToolCallID()
	if h.dedupe != nil && toolCallID != "" {
		seen, err := h.dedupe.Seen(ctx, toolCallID)
		if err != nil {
			h.logger.Warn("tool-call dedupe lookup failed", "error", err, "tool_call_id", toolCallID)
		} else if seen {
			h.logger.Info("duplicate tool call suppressed",
				"event", event, "tool_call_id", toolCallID)
			h.metrics.ObserveWebhook(string(event), "duplicate")
			return duplicateResult(event)
		}
	}

	res = h.saga.Apply(ctx, event, p)

	if h.dedupe != nil && toolCallID != "" && res.Success {
		if err := h.dedupe.Mark(ctx, toolCallID); err != nil {
			h.logger.Warn("tool-call dedupe mark failed", "error", err, "tool_call_id", toolCallID)
		}
	}

	outcome := "rejected"
	if res.Success {
		outcome = "applied"
	}
	h.metrics.ObserveWebhook(string(event), outcome)
	return res
}

// duplicateResult keeps a redelivered tool call conversationally coherent:
// the state change already happened, so the agent just moves on to the step
// the original delivery pointed at.
func duplicateResult(event Event) *Result {
	return &Result{
		Success:  true,
		Message:  "All good, I've already taken care of that.",
		NextStep: successNextStep(event),
	}
}

func successNextStep(event Event) string {
	switch event {
	case EventSubmitTimes:
		return NextCallPatient
	case EventPatientConfirm:
		return NextConfirmWithClinic
	case EventPatientReschedule:
		return NextGetNewTimes
	case EventConfirmFinal:
		return NextBookingComplete
	default:
		return NextEndCall
	}
}

// HandleGetWorkflow is GET /admin/workflows/{workflowID}, a JWT-protected
// operator read for chasing dropped or stuck workflows. Unlike the webhook
// endpoints it reports real status codes; operators are not on a phone call.
func (h *Handler) HandleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		http.Error(w, "workflow store not configured", http.StatusServiceUnavailable)
		return
	}
	workflowID := chi.URLParam(r, "workflowID")
	fetched, err := h.store.Fetch(r.Context(), workflowID)
	if err != nil {
		h.logger.Error("operator workflow fetch failed", "workflow_id", workflowID, "error", err)
		http.Error(w, "fetch failed", http.StatusInternalServerError)
		return
	}
	if !fetched.Found {
		http.Error(w, "workflow not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(struct {
		Workflow      *Workflow      `json:"workflow"`
		MedicalCenter *MedicalCenter `json:"medical_center,omitempty"`
	}{fetched.Workflow, fetched.MedicalCenter})
}
