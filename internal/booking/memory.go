package booking

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory WorkflowStore used by tests and local
// development. It implements the same fetch/apply contract as the Postgres
// store, including wholesale replacement of AvailableTimes.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Workflow
	centers map[string]*MedicalCenter
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*Workflow),
		centers: make(map[string]*MedicalCenter),
	}
}

// Put seeds a workflow (and optionally its medical center). Intended for
// tests and seed tooling; the service itself never creates workflows.
func (m *MemoryStore) Put(wf *Workflow, center *MedicalCenter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *wf
	cp.AvailableTimes = append([]Slot(nil), wf.AvailableTimes...)
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	m.records[wf.WorkflowID] = &cp
	if center != nil {
		c := *center
		m.centers[wf.WorkflowID] = &c
	}
}

// Fetch returns a copy of the stored workflow.
func (m *MemoryStore) Fetch(_ context.Context, workflowID string) (*FetchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	wf, ok := m.records[workflowID]
	if !ok {
		return &FetchResult{Found: false}, nil
	}
	cp := *wf
	cp.AvailableTimes = append([]Slot(nil), wf.AvailableTimes...)
	res := &FetchResult{Found: true, Workflow: &cp}
	if center, ok := m.centers[workflowID]; ok {
		c := *center
		res.MedicalCenter = &c
	}
	return res, nil
}

// Apply merges the update into the stored record.
func (m *MemoryStore) Apply(_ context.Context, workflowID string, upd Update) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	wf, ok := m.records[workflowID]
	if !ok {
		return ErrWorkflowNotFound
	}
	wf.Status = upd.Status
	if upd.AvailableTimes != nil {
		wf.AvailableTimes = append([]Slot(nil), (*upd.AvailableTimes)...)
	}
	setIf(&wf.PatientPreferredTime, upd.PatientPreferredTime)
	setIf(&wf.PatientPreferredDoctor, upd.PatientPreferredDoctor)
	setIf(&wf.ConfirmedDatetime, upd.ConfirmedDatetime)
	setIf(&wf.ConfirmedDoctorName, upd.ConfirmedDoctorName)
	setIf(&wf.ConfirmedLocation, upd.ConfirmedLocation)
	setIf(&wf.ClinicEmail, upd.ClinicEmail)
	setIf(&wf.SpecialInstructions, upd.SpecialInstructions)
	setIf(&wf.FailureReason, upd.FailureReason)
	setIf(&wf.AppointmentID, upd.AppointmentID)
	wf.UpdatedAt = time.Now().UTC()
	return nil
}

func setIf(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
