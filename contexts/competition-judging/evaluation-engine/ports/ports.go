package ports

import (
	"context"
	"time"

	contractsv1 "degusta/contracts/gen/events/v1"
	"degusta/contexts/competition-judging/evaluation-engine/domain/entities"
)

type SampleRepository interface {
	// RegisterSample stores a draft sample, assigning the next sample number
	// of its event atomically.
	RegisterSample(ctx context.Context, sample entities.ProductSample) (entities.ProductSample, error)
	GetSample(ctx context.Context, sampleID string) (entities.ProductSample, error)
	SubmitSample(ctx context.Context, sampleID string, submittedAt time.Time) (entities.ProductSample, error)
	// ApplySampleScore persists a calculated score and reports whether the
	// sample status moved as a result.
	ApplySampleScore(ctx context.Context, sampleID string, score float64, evaluatedAt time.Time) (entities.ProductSample, bool, error)
}

type CommissionRepository interface {
	CreateCommission(ctx context.Context, commission entities.Commission, mainMember entities.CommissionMember) error
	GetRoster(ctx context.Context, commissionID string) (entities.Roster, error)
	// AddMember validates roster invariants against the stored roster inside
	// the same write.
	AddMember(ctx context.Context, member entities.CommissionMember) error
	SetMemberExcluded(ctx context.Context, commissionID string, memberID string, excluded bool, updatedAt time.Time) (entities.CommissionMember, error)
}

type SessionRepository interface {
	// ActivateSession inserts an active session and points the sample at it.
	// It fails with ErrSessionAlreadyActive when the sample already has one.
	ActivateSession(ctx context.Context, session entities.EvaluationSession) error
	GetSession(ctx context.Context, sessionID string) (entities.EvaluationSession, error)
	GetActiveSession(ctx context.Context, sampleID string) (entities.EvaluationSession, bool, error)
	GetLatestCompletedSession(ctx context.Context, sampleID string) (entities.EvaluationSession, bool, error)
	CompleteSession(ctx context.Context, sessionID string, completedBy string, completedAt time.Time) (entities.EvaluationSession, bool, error)
}

// SubmitOutcome reports a submission and the exclusion tally computed in the
// same transaction.
type SubmitOutcome struct {
	Evaluation     entities.ExpertEvaluation
	Sample         entities.ProductSample
	Tally          entities.ExclusionTally
	SampleExcluded bool
}

type EvaluationRepository interface {
	// CreateEvaluation fails with ErrDuplicateEvaluation for a second entry of
	// the same (session, member) pair.
	CreateEvaluation(ctx context.Context, evaluation entities.ExpertEvaluation) error
	GetEvaluation(ctx context.Context, evaluationID string) (entities.ExpertEvaluation, error)
	GetEvaluationByMember(ctx context.Context, sessionID string, commissionMemberID string) (entities.ExpertEvaluation, bool, error)
	// UpdateEvaluation rewrites the ballot of an unsubmitted evaluation while
	// its session is still active.
	UpdateEvaluation(ctx context.Context, evaluation entities.ExpertEvaluation) error
	// SubmitEvaluation finalizes an evaluation and applies the exclusion vote
	// tally against a consistent snapshot of the session.
	SubmitEvaluation(ctx context.Context, evaluationID string, submittedAt time.Time) (SubmitOutcome, error)
	ListSessionEvaluations(ctx context.Context, sessionID string) ([]entities.ExpertEvaluation, error)
}

type PolicyRepository interface {
	// GetOrCreatePolicy returns the stored policy or persists defaults.
	GetOrCreatePolicy(ctx context.Context, defaults entities.ScoringPolicy) (entities.ScoringPolicy, bool, error)
	SavePolicy(ctx context.Context, policy entities.ScoringPolicy) error
}

type ProtocolRepository interface {
	// IssueProtocol assigns the next protocol number of the event and stores
	// the protocol in one transaction, re-checking that the sample is scored.
	IssueProtocol(ctx context.Context, protocol entities.Protocol) (entities.Protocol, error)
	GetProtocol(ctx context.Context, protocolID string) (entities.Protocol, error)
	ListProtocolsBySample(ctx context.Context, sampleID string) ([]entities.Protocol, error)
}

type IdempotencyRecord struct {
	Key         string
	RequestHash string
	ResourceID  string
	ExpiresAt   time.Time
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string, now time.Time) (IdempotencyRecord, bool, error)
	Put(ctx context.Context, record IdempotencyRecord) error
}

type EventEnvelope = contractsv1.Envelope

const EventSchemaVersion = contractsv1.SchemaVersion

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}

type EventDedupStore interface {
	// ReserveEvent returns true when the event was already processed.
	ReserveEvent(ctx context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
