package booking

import (
	"testing"
)

func mustParse(t *testing.T, body string) *Payload {
	t.Helper()
	p, err := ParsePayload([]byte(body))
	if err != nil {
		t.Fatalf("ParsePayload: %v", err)
	}
	return p
}

func TestStringTopLevelWinsOverArgs(t *testing.T) {
	p := mustParse(t, `{"reason":"top","args":{"reason":"nested"}}`)
	if got := p.String("reason"); got != "top" {
		t.Errorf("expected top-level value, got %q", got)
	}
}

func TestStringFallsBackToArgs(t *testing.T) {
	p := mustParse(t, `{"args":{"clinic_notes":"ask for reception"}}`)
	if got := p.String("clinic_notes"); got != "ask for reception" {
		t.Errorf("expected args value, got %q", got)
	}
}

func TestStringNullTopLevelFallsThrough(t *testing.T) {
	p := mustParse(t, `{"reason":null,"args":{"reason":"nested"}}`)
	if got := p.String("reason"); got != "nested" {
		t.Errorf("null top-level should fall through to args, got %q", got)
	}
}

func TestStringifiesNumbersAndBools(t *testing.T) {
	p := mustParse(t, `{"worker_id":42,"args":{"flag":true}}`)
	if got := p.String("worker_id"); got != "42" {
		t.Errorf("expected \"42\", got %q", got)
	}
	if got := p.String("flag"); got != "true" {
		t.Errorf("expected \"true\", got %q", got)
	}
}

func TestWorkflowIDMetadataFallback(t *testing.T) {
	p := mustParse(t, `{"call":{"metadata":{"workflow_id":"wf-123"}}}`)
	if got := p.WorkflowID(); got != "wf-123" {
		t.Errorf("expected call.metadata fallback, got %q", got)
	}
}

func TestWorkflowIDOrder(t *testing.T) {
	p := mustParse(t, `{
		"workflow_id":"wf-top",
		"args":{"workflow_id":"wf-args"},
		"call":{"metadata":{"workflow_id":"wf-meta"}}
	}`)
	if got := p.WorkflowID(); got != "wf-top" {
		t.Errorf("top level must win, got %q", got)
	}

	p = mustParse(t, `{
		"args":{"workflow_id":"wf-args"},
		"call":{"metadata":{"workflow_id":"wf-meta"}}
	}`)
	if got := p.WorkflowID(); got != "wf-args" {
		t.Errorf("args must win over metadata, got %q", got)
	}
}

func TestWorkflowIDMissing(t *testing.T) {
	p := mustParse(t, `{"args":{}}`)
	if got := p.WorkflowID(); got != "" {
		t.Errorf("expected empty workflow id, got %q", got)
	}
}

func TestBoolDefaults(t *testing.T) {
	p := mustParse(t, `{"booking_confirmed":false,"args":{"should_retry":"true"}}`)
	if p.Bool("booking_confirmed", true) {
		t.Error("expected explicit false to override default true")
	}
	if !p.Bool("should_retry", false) {
		t.Error("expected string \"true\" to parse as true")
	}
	if !p.Bool("absent", true) {
		t.Error("expected default for absent field")
	}
	if p.Bool("booking_confirmed2", false) {
		t.Error("expected default for absent field")
	}
}

func TestSlotsObjects(t *testing.T) {
	p := mustParse(t, `{"available_times":[
		{"datetime":"2026-09-01T09:00:00","doctor_name":"Dr. Wu","notes":"bring referral"},
		{"time":"2026-09-01T14:30:00"}
	]}`)
	slots := p.Slots("available_times")
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	if slots[0].Datetime != "2026-09-01T09:00:00" || slots[0].DoctorName != "Dr. Wu" {
		t.Errorf("unexpected first slot: %+v", slots[0])
	}
	if slots[1].Datetime != "2026-09-01T14:30:00" {
		t.Errorf("expected \"time\" alias to populate datetime, got %+v", slots[1])
	}
}

func TestSlotsBareStrings(t *testing.T) {
	p := mustParse(t, `{"args":{"available_times":["Monday 9am","Tuesday 2pm"]}}`)
	slots := p.Slots("available_times")
	if len(slots) != 2 || slots[0].Datetime != "Monday 9am" {
		t.Fatalf("unexpected slots: %+v", slots)
	}
}

func TestSlotsDropsEmptyEntries(t *testing.T) {
	p := mustParse(t, `{"available_times":["", null, {"notes":"no time"}, "Friday 10am"]}`)
	slots := p.Slots("available_times")
	if len(slots) != 1 || slots[0].Datetime != "Friday 10am" {
		t.Fatalf("expected only the valid entry, got %+v", slots)
	}
}

func TestParsePayloadEmptyBody(t *testing.T) {
	p := mustParse(t, "")
	if got := p.String("anything"); got != "" {
		t.Errorf("empty body should resolve nothing, got %q", got)
	}
}

func TestParsePayloadInvalidJSON(t *testing.T) {
	if _, err := ParsePayload([]byte("not json")); err == nil {
		t.Error("expected error for invalid JSON")
	}
}
