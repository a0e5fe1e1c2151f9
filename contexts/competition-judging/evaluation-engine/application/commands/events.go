package commands

import (
	"context"
	"encoding/json"
	"time"

	"degusta/contexts/competition-judging/evaluation-engine/domain/entities"
	"degusta/contexts/competition-judging/evaluation-engine/ports"
)

const (
	EventSessionCreated      = "evaluation_session.created"
	EventEvaluationSubmitted = "expert_evaluation.submitted"
	EventSampleStatusChanged = "sample.status_changed"
	EventScoreCalculated     = "sample.score_calculated"
	EventProtocolGenerated   = "protocol.generated"

	sourceService = "evaluation-engine"
)

// emitter appends sample-partitioned events to the outbox. A nil outbox makes
// every emit a no-op, which keeps read-only and test wiring simple.
type emitter struct {
	outbox ports.OutboxWriter
	idGen  ports.IDGenerator
}

func (e emitter) emit(
	ctx context.Context,
	eventType string,
	sampleID string,
	occurredAt time.Time,
	data map[string]any,
) error {
	if e.outbox == nil {
		return nil
	}
	eventID, err := e.idGen.NewID(ctx)
	if err != nil {
		return err
	}
	envelope, err := newEvaluationEnvelope(eventID, eventType, sampleID, occurredAt, data)
	if err != nil {
		return err
	}
	return e.outbox.AppendOutbox(ctx, envelope)
}

func (e emitter) emitStatusChanged(
	ctx context.Context,
	sample entities.ProductSample,
	previous entities.SampleStatus,
	occurredAt time.Time,
) error {
	data := map[string]any{
		"sample_id":       sample.SampleID,
		"event_id":        sample.EventID,
		"previous_status": string(previous),
		"status":          string(sample.Status),
		"occurred_at":     occurredAt.UTC().Format(time.RFC3339),
	}
	if sample.Status == entities.SampleStatusExcluded {
		data["exclusion_reason"] = sample.ExclusionReason
	}
	return e.emit(ctx, EventSampleStatusChanged, sample.SampleID, occurredAt, data)
}

func newEvaluationEnvelope(
	eventID string,
	eventType string,
	sampleID string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	// Events are partitioned by sample so consumers see one sample's
	// lifecycle in order.
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    sourceService,
		TraceID:          eventID,
		SchemaVersion:    ports.EventSchemaVersion,
		PartitionKeyPath: "sample_id",
		PartitionKey:     sampleID,
		Data:             payload,
	}, nil
}

func nowFrom(clock ports.Clock) time.Time {
	if clock != nil {
		return clock.Now().UTC()
	}
	return time.Now().UTC()
}
