package v1

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// SchemaVersion is the envelope revision producers in this repository write.
const SchemaVersion = 1

var ErrInvalidEnvelope = errors.New("invalid event envelope")

// Envelope is the versioned event envelope shared by producers and consumers.
// Fields may be added; existing fields keep their names and meaning.
type Envelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	OccurredAt       time.Time       `json:"occurred_at"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    int             `json:"schema_version"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	Data             json.RawMessage `json:"data"`
}

// Validate rejects envelopes a consumer could not route or deduplicate.
func (e Envelope) Validate() error {
	switch {
	case strings.TrimSpace(e.EventID) == "":
		return errors.Join(ErrInvalidEnvelope, errors.New("event_id is required"))
	case strings.TrimSpace(e.EventType) == "":
		return errors.Join(ErrInvalidEnvelope, errors.New("event_type is required"))
	case e.SchemaVersion < 1 || e.SchemaVersion > SchemaVersion:
		return errors.Join(ErrInvalidEnvelope, errors.New("unsupported schema_version"))
	case len(e.Data) > 0 && !json.Valid(e.Data):
		return errors.Join(ErrInvalidEnvelope, errors.New("data is not valid json"))
	}
	return nil
}
