package booking

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Payload normalizes a tool-call webhook body. The voice platform is not
// consistent about where it puts tool arguments: a field may arrive at the
// top level of the body or nested under "args", and the correlation key can
// additionally ride along under "call.metadata". Every lookup walks the
// candidate locations in that fixed order and takes the first present,
// non-null value. Both shapes have to stay supported indefinitely.
type Payload struct {
	top  map[string]json.RawMessage
	args map[string]json.RawMessage
	meta map[string]json.RawMessage
}

type callEnvelope struct {
	Metadata map[string]json.RawMessage `json:"metadata"`
}

// ParsePayload decodes a webhook body into a Payload. An empty or
// non-object body yields a Payload that resolves nothing, not an error the
// caller has to branch on.
func ParsePayload(body []byte) (*Payload, error) {
	p := &Payload{}
	if len(bytes.TrimSpace(body)) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(body, &p.top); err != nil {
		return nil, err
	}
	if raw, ok := p.top["args"]; ok && !isNull(raw) {
		// Malformed args are tolerated; top-level fields still resolve.
		_ = json.Unmarshal(raw, &p.args)
	}
	if raw, ok := p.top["call"]; ok && !isNull(raw) {
		var call callEnvelope
		if err := json.Unmarshal(raw, &call); err == nil {
			p.meta = call.Metadata
		}
	}
	return p, nil
}

// resolve returns the first present, non-null raw value for name, checking
// the top level first, then args.
func (p *Payload) resolve(name string) (json.RawMessage, bool) {
	if raw, ok := p.top[name]; ok && !isNull(raw) {
		return raw, true
	}
	if raw, ok := p.args[name]; ok && !isNull(raw) {
		return raw, true
	}
	return nil, false
}

// String resolves name to a trimmed string. JSON numbers and booleans are
// stringified rather than rejected; callers have sent both.
func (p *Payload) String(name string) string {
	raw, ok := p.resolve(name)
	if !ok {
		return ""
	}
	return rawToString(raw)
}

// Bool resolves name to a boolean, accepting JSON booleans and the string
// forms "true"/"false". Absent or unparseable values return def.
func (p *Payload) Bool(name string, def bool) bool {
	raw, ok := p.resolve(name)
	if !ok {
		return def
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return parsed
		}
	}
	return def
}

// Slots resolves name to a list of appointment slots. Entries may be objects
// ({datetime, doctor_name, notes}, with "time" accepted as a datetime alias)
// or bare datetime strings. Entries with no datetime are dropped.
func (p *Payload) Slots(name string) []Slot {
	raw, ok := p.resolve(name)
	if !ok {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	var slots []Slot
	for _, item := range items {
		if isNull(item) {
			continue
		}
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			if s = strings.TrimSpace(s); s != "" {
				slots = append(slots, Slot{Datetime: s})
			}
			continue
		}
		var obj struct {
			Datetime   string `json:"datetime"`
			Time       string `json:"time"`
			DoctorName string `json:"doctor_name"`
			Notes      string `json:"notes"`
		}
		if err := json.Unmarshal(item, &obj); err != nil {
			continue
		}
		dt := strings.TrimSpace(obj.Datetime)
		if dt == "" {
			dt = strings.TrimSpace(obj.Time)
		}
		if dt == "" {
			continue
		}
		slots = append(slots, Slot{
			Datetime:   dt,
			DoctorName: strings.TrimSpace(obj.DoctorName),
			Notes:      strings.TrimSpace(obj.Notes),
		})
	}
	return slots
}

// WorkflowID resolves the correlation key: body, then args, then
// call.metadata.workflow_id.
func (p *Payload) WorkflowID() string {
	if id := p.String("workflow_id"); id != "" {
		return id
	}
	if raw, ok := p.meta["workflow_id"]; ok && !isNull(raw) {
		return rawToString(raw)
	}
	return ""
}

// ToolCallID resolves the platform's tool invocation id, used to suppress
// transport-level redelivery.
func (p *Payload) ToolCallID() string {
	return p.String("tool_call_id")
}

func rawToString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return strconv.FormatBool(b)
	}
	return ""
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
