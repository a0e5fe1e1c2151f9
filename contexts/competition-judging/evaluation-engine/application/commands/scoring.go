package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "degusta/contexts/competition-judging/evaluation-engine/application"
	"degusta/contexts/competition-judging/evaluation-engine/domain/entities"
	domainerrors "degusta/contexts/competition-judging/evaluation-engine/domain/errors"
	"degusta/contexts/competition-judging/evaluation-engine/ports"

	"go.opentelemetry.io/otel/attribute"
)

// ScoringUseCase computes a sample's final score from the evaluations of its
// most recently completed session.
type ScoringUseCase struct {
	Samples     ports.SampleRepository
	Sessions    ports.SessionRepository
	Evaluations ports.EvaluationRepository
	Policies    ports.PolicyRepository
	Outbox      ports.OutboxWriter
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Logger      *slog.Logger
}

// Calculate returns a nil score, and leaves the sample untouched, when there
// is no completed session or no counted score yet.
func (uc ScoringUseCase) Calculate(ctx context.Context, sampleID string) (result entities.ScoreResult, err error) {
	sampleID = strings.TrimSpace(sampleID)
	ctx, span := application.StartSpan(ctx, "evaluation.calculate_score",
		attribute.String("sample_id", sampleID),
	)
	defer func() { application.EndSpan(span, err) }()

	logger := application.ResolveLogger(uc.Logger)
	if sampleID == "" {
		return entities.ScoreResult{}, domainerrors.ErrInvalidInput
	}

	sample, err := uc.Samples.GetSample(ctx, sampleID)
	if err != nil {
		return entities.ScoreResult{}, err
	}
	now := nowFrom(uc.Clock)
	policy, created, err := uc.Policies.GetOrCreatePolicy(ctx, entities.DefaultScoringPolicy(sample.EventID, now))
	if err != nil {
		return entities.ScoreResult{}, err
	}
	if created {
		logger.Info("default scoring policy created",
			"event", "evaluation_scoring_policy_defaulted",
			"module", application.ModuleName,
			"layer", "application",
			"event_id", sample.EventID,
		)
	}

	result = entities.ScoreResult{
		SampleID:     sample.SampleID,
		Policy:       policy,
		CalculatedAt: now,
	}
	session, found, err := uc.Sessions.GetLatestCompletedSession(ctx, sample.SampleID)
	if err != nil {
		return entities.ScoreResult{}, err
	}
	if !found {
		return result, nil
	}
	result.SessionID = session.SessionID

	evaluations, err := uc.Evaluations.ListSessionEvaluations(ctx, session.SessionID)
	if err != nil {
		return entities.ScoreResult{}, err
	}
	scores := entities.CountedScores(evaluations)
	if len(scores) == 0 {
		return result, nil
	}

	aggregate, err := policy.Aggregate(scores)
	if err != nil {
		logger.Error("score aggregation failed",
			"event", "evaluation_score_aggregation_failed",
			"module", application.ModuleName,
			"layer", "application",
			"sample_id", sample.SampleID,
			"session_id", session.SessionID,
			"evaluation_count", len(scores),
			"error", err.Error(),
		)
		return entities.ScoreResult{}, err
	}

	previous := sample.Status
	updated, moved, err := uc.Samples.ApplySampleScore(ctx, sample.SampleID, aggregate.Score, now)
	if err != nil {
		return entities.ScoreResult{}, err
	}
	score := aggregate.Score
	result.Score = &score
	result.EvaluationCount = aggregate.Count
	result.Trimmed = aggregate.Trimmed

	events := emitter{outbox: uc.Outbox, idGen: uc.IDGen}
	if err := events.emit(ctx, EventScoreCalculated, updated.SampleID, now, map[string]any{
		"sample_id":        updated.SampleID,
		"event_id":         updated.EventID,
		"session_id":       session.SessionID,
		"final_score":      score,
		"evaluation_count": aggregate.Count,
		"trimmed":          aggregate.Trimmed,
		"occurred_at":      now.Format(time.RFC3339),
	}); err != nil {
		return entities.ScoreResult{}, err
	}
	if moved {
		if err := events.emitStatusChanged(ctx, updated, previous, now); err != nil {
			return entities.ScoreResult{}, err
		}
	}

	logger.Info("score calculated",
		"event", "evaluation_score_calculated",
		"module", application.ModuleName,
		"layer", "application",
		"sample_id", updated.SampleID,
		"session_id", session.SessionID,
		"final_score", score,
		"evaluation_count", aggregate.Count,
		"trimmed", aggregate.Trimmed,
		"status", string(updated.Status),
	)
	return result, nil
}
