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

type CreateEvaluationCommand struct {
	SessionID          string
	SampleID           string
	CommissionMemberID string
	Score              *float64
	ExcludeVote        bool
	ExclusionNote      string
}

type UpdateEvaluationCommand struct {
	EvaluationID  string
	Score         *float64
	ExcludeVote   bool
	ExclusionNote string
}

type SubmitEvaluationCommand struct {
	EvaluationID string
	SubmittedBy  string
}

// SubmitEvaluationResult carries the finalized evaluation together with the
// exclusion tally it triggered.
type SubmitEvaluationResult struct {
	Evaluation     entities.ExpertEvaluation
	Sample         entities.ProductSample
	Tally          entities.ExclusionTally
	SampleExcluded bool
}

// EvaluationUseCase collects commission members' ballots for active sessions.
type EvaluationUseCase struct {
	Sessions    ports.SessionRepository
	Commissions ports.CommissionRepository
	Evaluations ports.EvaluationRepository
	Outbox      ports.OutboxWriter
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Logger      *slog.Logger
}

// CreateEvaluation records a member's ballot. Trainee ballots are always kept
// out of the score calculation.
func (uc EvaluationUseCase) CreateEvaluation(ctx context.Context, cmd CreateEvaluationCommand) (evaluation entities.ExpertEvaluation, err error) {
	ctx, span := application.StartSpan(ctx, "evaluation.create_evaluation",
		attribute.String("session_id", strings.TrimSpace(cmd.SessionID)),
		attribute.String("commission_member_id", strings.TrimSpace(cmd.CommissionMemberID)),
	)
	defer func() { application.EndSpan(span, err) }()

	logger := application.ResolveLogger(uc.Logger)
	cmd.SessionID = strings.TrimSpace(cmd.SessionID)
	cmd.SampleID = strings.TrimSpace(cmd.SampleID)
	cmd.CommissionMemberID = strings.TrimSpace(cmd.CommissionMemberID)
	if cmd.SessionID == "" || cmd.CommissionMemberID == "" {
		logger.Warn("evaluation create validation failed",
			"event", "evaluation_create_validation_failed",
			"module", application.ModuleName,
			"layer", "application",
			"session_id", cmd.SessionID,
			"commission_member_id", cmd.CommissionMemberID,
		)
		return entities.ExpertEvaluation{}, domainerrors.ErrInvalidInput
	}

	session, err := uc.Sessions.GetSession(ctx, cmd.SessionID)
	if err != nil {
		return entities.ExpertEvaluation{}, err
	}
	if !session.IsActive() {
		return entities.ExpertEvaluation{}, domainerrors.ErrSessionNotActive.On("evaluation_session", session.SessionID, string(session.Status))
	}
	if cmd.SampleID != "" && cmd.SampleID != session.SampleID {
		return entities.ExpertEvaluation{}, domainerrors.ErrSampleSessionMismatch.On("evaluation_session", session.SessionID, "")
	}

	roster, err := uc.Commissions.GetRoster(ctx, session.CommissionID)
	if err != nil {
		return entities.ExpertEvaluation{}, err
	}
	member, ok := roster.Member(cmd.CommissionMemberID)
	if !ok || member.Excluded {
		return entities.ExpertEvaluation{}, domainerrors.ErrMemberNotInCommission.On("commission_member", cmd.CommissionMemberID, "")
	}

	if existing, found, err := uc.Evaluations.GetEvaluationByMember(ctx, session.SessionID, member.MemberID); err != nil {
		return entities.ExpertEvaluation{}, err
	} else if found {
		logger.Warn("evaluation create rejected: duplicate",
			"event", "evaluation_create_duplicate",
			"module", application.ModuleName,
			"layer", "application",
			"session_id", session.SessionID,
			"commission_member_id", member.MemberID,
			"evaluation_id", existing.EvaluationID,
		)
		return entities.ExpertEvaluation{}, domainerrors.ErrDuplicateEvaluation.On("expert_evaluation", existing.EvaluationID, "")
	}
	if err := entities.ValidateBallot(cmd.Score, cmd.ExcludeVote, cmd.ExclusionNote); err != nil {
		return entities.ExpertEvaluation{}, err
	}

	evaluationID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.ExpertEvaluation{}, err
	}
	now := nowFrom(uc.Clock)
	evaluation = entities.ExpertEvaluation{
		EvaluationID:              evaluationID,
		SessionID:                 session.SessionID,
		SampleID:                  session.SampleID,
		CommissionMemberID:        member.MemberID,
		FinalScore:                copyScore(cmd.Score),
		ExcludeVote:               cmd.ExcludeVote,
		ExclusionNote:             strings.TrimSpace(cmd.ExclusionNote),
		IsExcludedFromCalculation: !member.Role.CountsTowardScore(),
		CreatedAt:                 now,
		UpdatedAt:                 now,
	}
	if err := uc.Evaluations.CreateEvaluation(ctx, evaluation); err != nil {
		return entities.ExpertEvaluation{}, err
	}

	logger.Info("evaluation created",
		"event", "evaluation_created",
		"module", application.ModuleName,
		"layer", "application",
		"evaluation_id", evaluation.EvaluationID,
		"session_id", evaluation.SessionID,
		"commission_member_id", evaluation.CommissionMemberID,
		"role", string(member.Role),
		"excluded_from_calculation", evaluation.IsExcludedFromCalculation,
	)
	return evaluation, nil
}

// UpdateEvaluation replaces the ballot of an evaluation that is not yet
// submitted while its session is active.
func (uc EvaluationUseCase) UpdateEvaluation(ctx context.Context, cmd UpdateEvaluationCommand) (evaluation entities.ExpertEvaluation, err error) {
	ctx, span := application.StartSpan(ctx, "evaluation.update_evaluation",
		attribute.String("evaluation_id", strings.TrimSpace(cmd.EvaluationID)),
	)
	defer func() { application.EndSpan(span, err) }()

	logger := application.ResolveLogger(uc.Logger)
	cmd.EvaluationID = strings.TrimSpace(cmd.EvaluationID)
	if cmd.EvaluationID == "" {
		return entities.ExpertEvaluation{}, domainerrors.ErrInvalidInput
	}

	evaluation, err = uc.Evaluations.GetEvaluation(ctx, cmd.EvaluationID)
	if err != nil {
		return entities.ExpertEvaluation{}, err
	}
	if err := uc.requireEditable(ctx, evaluation); err != nil {
		return entities.ExpertEvaluation{}, err
	}
	if err := entities.ValidateBallot(cmd.Score, cmd.ExcludeVote, cmd.ExclusionNote); err != nil {
		return entities.ExpertEvaluation{}, err
	}

	evaluation.FinalScore = copyScore(cmd.Score)
	evaluation.ExcludeVote = cmd.ExcludeVote
	evaluation.ExclusionNote = strings.TrimSpace(cmd.ExclusionNote)
	evaluation.UpdatedAt = nowFrom(uc.Clock)
	if err := uc.Evaluations.UpdateEvaluation(ctx, evaluation); err != nil {
		return entities.ExpertEvaluation{}, err
	}

	logger.Info("evaluation updated",
		"event", "evaluation_updated",
		"module", application.ModuleName,
		"layer", "application",
		"evaluation_id", evaluation.EvaluationID,
		"session_id", evaluation.SessionID,
		"exclude_vote", evaluation.ExcludeVote,
	)
	return evaluation, nil
}

// SubmitEvaluation finalizes an evaluation. The store applies the exclusion
// vote tally in the same transaction, so a majority reached by this ballot
// excludes the sample before the call returns.
func (uc EvaluationUseCase) SubmitEvaluation(ctx context.Context, cmd SubmitEvaluationCommand) (result SubmitEvaluationResult, err error) {
	ctx, span := application.StartSpan(ctx, "evaluation.submit_evaluation",
		attribute.String("evaluation_id", strings.TrimSpace(cmd.EvaluationID)),
	)
	defer func() { application.EndSpan(span, err) }()

	logger := application.ResolveLogger(uc.Logger)
	cmd.EvaluationID = strings.TrimSpace(cmd.EvaluationID)
	cmd.SubmittedBy = strings.TrimSpace(cmd.SubmittedBy)
	logger.Info("evaluation submit started",
		"event", "evaluation_submit_started",
		"module", application.ModuleName,
		"layer", "application",
		"evaluation_id", cmd.EvaluationID,
		"user_id", cmd.SubmittedBy,
	)
	if cmd.EvaluationID == "" {
		return SubmitEvaluationResult{}, domainerrors.ErrInvalidInput
	}

	evaluation, err := uc.Evaluations.GetEvaluation(ctx, cmd.EvaluationID)
	if err != nil {
		return SubmitEvaluationResult{}, err
	}
	if err := uc.requireEditable(ctx, evaluation); err != nil {
		return SubmitEvaluationResult{}, err
	}

	now := nowFrom(uc.Clock)
	outcome, err := uc.Evaluations.SubmitEvaluation(ctx, evaluation.EvaluationID, now)
	if err != nil {
		logger.Error("evaluation submit failed",
			"event", "evaluation_submit_failed",
			"module", application.ModuleName,
			"layer", "application",
			"evaluation_id", evaluation.EvaluationID,
			"error", err.Error(),
		)
		return SubmitEvaluationResult{}, err
	}

	events := emitter{outbox: uc.Outbox, idGen: uc.IDGen}
	if err := events.emit(ctx, EventEvaluationSubmitted, outcome.Evaluation.SampleID, now, map[string]any{
		"evaluation_id":        outcome.Evaluation.EvaluationID,
		"session_id":           outcome.Evaluation.SessionID,
		"sample_id":            outcome.Evaluation.SampleID,
		"commission_member_id": outcome.Evaluation.CommissionMemberID,
		"submitted_by":         cmd.SubmittedBy,
		"exclude_vote":         outcome.Evaluation.ExcludeVote,
		"counted":              !outcome.Evaluation.IsExcludedFromCalculation,
		"total_votes":          outcome.Tally.TotalVotes,
		"exclude_votes":        outcome.Tally.ExcludeVotes,
		"occurred_at":          now.Format(time.RFC3339),
	}); err != nil {
		return SubmitEvaluationResult{}, err
	}
	if outcome.SampleExcluded {
		if err := events.emitStatusChanged(ctx, outcome.Sample, entities.SampleStatusSubmitted, now); err != nil {
			return SubmitEvaluationResult{}, err
		}
		logger.Info("sample excluded by majority vote",
			"event", "evaluation_sample_auto_excluded",
			"module", application.ModuleName,
			"layer", "application",
			"sample_id", outcome.Sample.SampleID,
			"session_id", outcome.Evaluation.SessionID,
			"exclude_votes", outcome.Tally.ExcludeVotes,
			"total_votes", outcome.Tally.TotalVotes,
		)
	}

	logger.Info("evaluation submitted",
		"event", "evaluation_submitted",
		"module", application.ModuleName,
		"layer", "application",
		"evaluation_id", outcome.Evaluation.EvaluationID,
		"session_id", outcome.Evaluation.SessionID,
		"sample_id", outcome.Evaluation.SampleID,
	)
	return SubmitEvaluationResult{
		Evaluation:     outcome.Evaluation,
		Sample:         outcome.Sample,
		Tally:          outcome.Tally,
		SampleExcluded: outcome.SampleExcluded,
	}, nil
}

func (uc EvaluationUseCase) requireEditable(ctx context.Context, evaluation entities.ExpertEvaluation) error {
	if evaluation.IsSubmitted() {
		return domainerrors.ErrEvaluationSubmitted.On("expert_evaluation", evaluation.EvaluationID, "submitted")
	}
	session, err := uc.Sessions.GetSession(ctx, evaluation.SessionID)
	if err != nil {
		return err
	}
	if !session.IsActive() {
		return domainerrors.ErrSessionNotActive.On("evaluation_session", session.SessionID, string(session.Status))
	}
	return nil
}

func copyScore(score *float64) *float64 {
	if score == nil {
		return nil
	}
	value := *score
	return &value
}
