package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	application "degusta/contexts/competition-judging/evaluation-engine/application"
	"degusta/contexts/competition-judging/evaluation-engine/domain/entities"
	domainerrors "degusta/contexts/competition-judging/evaluation-engine/domain/errors"
	"degusta/contexts/competition-judging/evaluation-engine/ports"

	"go.opentelemetry.io/otel/attribute"
)

type GenerateProtocolCommand struct {
	SampleID       string
	IssuedBy       string
	IdempotencyKey string
}

type GenerateProtocolResult struct {
	Protocol entities.Protocol
	Replayed bool
}

// ProtocolUseCase issues numbered protocols for evaluated samples.
type ProtocolUseCase struct {
	Samples        ports.SampleRepository
	Protocols      ports.ProtocolRepository
	Scoring        ScoringUseCase
	Idempotency    ports.IdempotencyStore
	Outbox         ports.OutboxWriter
	Clock          ports.Clock
	IDGen          ports.IDGenerator
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

// GenerateProtocol recalculates the score, then issues version 1 of a new
// protocol with the next number of the sample's event. With an idempotency
// key, a repeated request returns the protocol it issued the first time.
func (uc ProtocolUseCase) GenerateProtocol(ctx context.Context, cmd GenerateProtocolCommand) (result GenerateProtocolResult, err error) {
	cmd.SampleID = strings.TrimSpace(cmd.SampleID)
	cmd.IssuedBy = strings.TrimSpace(cmd.IssuedBy)
	cmd.IdempotencyKey = strings.TrimSpace(cmd.IdempotencyKey)
	ctx, span := application.StartSpan(ctx, "evaluation.generate_protocol",
		attribute.String("sample_id", cmd.SampleID),
		attribute.Bool("idempotent", cmd.IdempotencyKey != ""),
	)
	defer func() { application.EndSpan(span, err) }()

	logger := application.ResolveLogger(uc.Logger)
	logger.Info("protocol generation started",
		"event", "evaluation_protocol_generate_started",
		"module", application.ModuleName,
		"layer", "application",
		"sample_id", cmd.SampleID,
		"user_id", cmd.IssuedBy,
	)
	if cmd.SampleID == "" || cmd.IssuedBy == "" {
		return GenerateProtocolResult{}, domainerrors.ErrInvalidInput
	}

	now := nowFrom(uc.Clock)
	requestHash := hashPayload(map[string]any{
		"sample_id": cmd.SampleID,
		"issued_by": cmd.IssuedBy,
	})
	if cmd.IdempotencyKey != "" && uc.Idempotency != nil {
		record, found, err := uc.Idempotency.Get(ctx, cmd.IdempotencyKey, now)
		if err != nil {
			return GenerateProtocolResult{}, err
		}
		if found {
			if record.RequestHash != requestHash {
				logger.Warn("protocol generation idempotency conflict",
					"event", "evaluation_protocol_idempotency_conflict",
					"module", application.ModuleName,
					"layer", "application",
					"sample_id", cmd.SampleID,
				)
				return GenerateProtocolResult{}, domainerrors.ErrIdempotencyConflict
			}
			protocol, err := uc.Protocols.GetProtocol(ctx, record.ResourceID)
			if err != nil {
				return GenerateProtocolResult{}, err
			}
			return GenerateProtocolResult{Protocol: protocol, Replayed: true}, nil
		}
	}

	sample, err := uc.Samples.GetSample(ctx, cmd.SampleID)
	if err != nil {
		return GenerateProtocolResult{}, err
	}
	if err := requireScored(sample); err != nil {
		return GenerateProtocolResult{}, err
	}

	scoring := uc.Scoring
	if scoring.Logger == nil {
		scoring.Logger = uc.Logger
	}
	score, err := scoring.Calculate(ctx, sample.SampleID)
	if err != nil {
		return GenerateProtocolResult{}, err
	}
	sample, err = uc.Samples.GetSample(ctx, sample.SampleID)
	if err != nil {
		return GenerateProtocolResult{}, err
	}
	if err := requireScored(sample); err != nil {
		return GenerateProtocolResult{}, err
	}

	protocolID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return GenerateProtocolResult{}, err
	}
	snapshot := score.Snapshot()
	issued, err := uc.Protocols.IssueProtocol(ctx, entities.Protocol{
		ProtocolID:  protocolID,
		EventID:     sample.EventID,
		SampleID:    sample.SampleID,
		ApplicantID: sample.ApplicantID,
		Version:     1,
		FinalScore:  *sample.FinalScore,
		Status:      entities.ProtocolStatusGenerated,
		IssuedBy:    cmd.IssuedBy,
		Snapshot:    snapshot,
		GeneratedAt: now,
	})
	if err != nil {
		logger.Error("protocol issue failed",
			"event", "evaluation_protocol_issue_failed",
			"module", application.ModuleName,
			"layer", "application",
			"sample_id", sample.SampleID,
			"error", err.Error(),
		)
		return GenerateProtocolResult{}, err
	}

	if err := (emitter{outbox: uc.Outbox, idGen: uc.IDGen}).emit(ctx, EventProtocolGenerated, issued.SampleID, now, map[string]any{
		"protocol_id":     issued.ProtocolID,
		"event_id":        issued.EventID,
		"sample_id":       issued.SampleID,
		"applicant_id":    issued.ApplicantID,
		"protocol_number": issued.ProtocolNumber,
		"version":         issued.Version,
		"final_score":     issued.FinalScore,
		"issued_by":       issued.IssuedBy,
		"occurred_at":     now.Format(time.RFC3339),
	}); err != nil {
		return GenerateProtocolResult{}, err
	}

	if cmd.IdempotencyKey != "" && uc.Idempotency != nil {
		if err := uc.Idempotency.Put(ctx, ports.IdempotencyRecord{
			Key:         cmd.IdempotencyKey,
			RequestHash: requestHash,
			ResourceID:  issued.ProtocolID,
			ExpiresAt:   now.Add(uc.idempotencyTTL()),
		}); err != nil {
			return GenerateProtocolResult{}, err
		}
	}

	logger.Info("protocol generated",
		"event", "evaluation_protocol_generated",
		"module", application.ModuleName,
		"layer", "application",
		"protocol_id", issued.ProtocolID,
		"sample_id", issued.SampleID,
		"event_id", issued.EventID,
		"protocol_number", issued.ProtocolNumber,
		"user_id", issued.IssuedBy,
	)
	return GenerateProtocolResult{Protocol: issued}, nil
}

func (uc ProtocolUseCase) idempotencyTTL() time.Duration {
	if uc.IdempotencyTTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return uc.IdempotencyTTL
}

func requireScored(sample entities.ProductSample) error {
	if sample.Status != entities.SampleStatusEvaluated || !sample.HasFinalScore() {
		return domainerrors.ErrSampleNotEvaluated.On("product_sample", sample.SampleID, string(sample.Status))
	}
	return nil
}

func hashPayload(payload map[string]any) string {
	raw, _ := json.Marshal(payload)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
