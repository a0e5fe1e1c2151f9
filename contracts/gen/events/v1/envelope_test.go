package v1

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestEnvelopeValidate(t *testing.T) {
	valid := Envelope{
		EventID:       "evt-1",
		EventType:     "protocol.generated",
		SchemaVersion: SchemaVersion,
		Data:          json.RawMessage(`{"protocol_id":"p-1"}`),
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid envelope, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Envelope)
	}{
		{name: "missing id", mutate: func(e *Envelope) { e.EventID = " " }},
		{name: "missing type", mutate: func(e *Envelope) { e.EventType = "" }},
		{name: "future schema", mutate: func(e *Envelope) { e.SchemaVersion = SchemaVersion + 1 }},
		{name: "broken data", mutate: func(e *Envelope) { e.Data = json.RawMessage(`{`) }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			envelope := valid
			tc.mutate(&envelope)
			if err := envelope.Validate(); !errors.Is(err, ErrInvalidEnvelope) {
				t.Fatalf("expected ErrInvalidEnvelope, got %v", err)
			}
		})
	}
}
