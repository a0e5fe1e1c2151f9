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

// ActivateSessionCommand opens a judging session. EventID is the event the
// caller is working in; when set the sample must belong to it.
type ActivateSessionCommand struct {
	EventID      string
	SampleID     string
	CommissionID string
	RequestedBy  string
}

// SessionUseCase opens evaluation sessions, enforcing one active session per
// sample and the commission's activation rule.
type SessionUseCase struct {
	Samples     ports.SampleRepository
	Commissions ports.CommissionRepository
	Sessions    ports.SessionRepository
	Outbox      ports.OutboxWriter
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Logger      *slog.Logger
}

// ActivateSession checks, in order: the sample exists in the event, it has no
// active session, the requester is a non-excluded commission member, and the
// requester holds the activating role. The store repeats the active-session
// check atomically when inserting.
func (uc SessionUseCase) ActivateSession(ctx context.Context, cmd ActivateSessionCommand) (session entities.EvaluationSession, err error) {
	ctx, span := application.StartSpan(ctx, "evaluation.activate_session",
		attribute.String("sample_id", strings.TrimSpace(cmd.SampleID)),
		attribute.String("commission_id", strings.TrimSpace(cmd.CommissionID)),
	)
	defer func() { application.EndSpan(span, err) }()

	logger := application.ResolveLogger(uc.Logger)
	cmd.EventID = strings.TrimSpace(cmd.EventID)
	cmd.SampleID = strings.TrimSpace(cmd.SampleID)
	cmd.CommissionID = strings.TrimSpace(cmd.CommissionID)
	cmd.RequestedBy = strings.TrimSpace(cmd.RequestedBy)
	logger.Info("session activation started",
		"event", "evaluation_session_activate_started",
		"module", application.ModuleName,
		"layer", "application",
		"sample_id", cmd.SampleID,
		"commission_id", cmd.CommissionID,
		"user_id", cmd.RequestedBy,
	)
	if cmd.SampleID == "" || cmd.CommissionID == "" || cmd.RequestedBy == "" {
		logger.Warn("session activation validation failed",
			"event", "evaluation_session_activate_validation_failed",
			"module", application.ModuleName,
			"layer", "application",
			"sample_id", cmd.SampleID,
			"commission_id", cmd.CommissionID,
		)
		return entities.EvaluationSession{}, domainerrors.ErrInvalidInput
	}

	sample, err := uc.Samples.GetSample(ctx, cmd.SampleID)
	if err != nil {
		return entities.EvaluationSession{}, err
	}
	if cmd.EventID != "" && sample.EventID != cmd.EventID {
		return entities.EvaluationSession{}, domainerrors.ErrSampleEventMismatch.On("product_sample", sample.SampleID, "")
	}

	if active, found, err := uc.Sessions.GetActiveSession(ctx, sample.SampleID); err != nil {
		return entities.EvaluationSession{}, err
	} else if found {
		logger.Warn("session activation rejected: session already active",
			"event", "evaluation_session_activate_conflict",
			"module", application.ModuleName,
			"layer", "application",
			"sample_id", sample.SampleID,
			"active_session_id", active.SessionID,
		)
		return entities.EvaluationSession{}, domainerrors.ErrSessionAlreadyActive.On("product_sample", sample.SampleID, string(sample.Status))
	}
	if sample.Status != entities.SampleStatusSubmitted {
		return entities.EvaluationSession{}, domainerrors.ErrSampleNotSubmitted.On("product_sample", sample.SampleID, string(sample.Status))
	}

	roster, err := uc.Commissions.GetRoster(ctx, cmd.CommissionID)
	if err != nil {
		return entities.EvaluationSession{}, err
	}
	if roster.Commission.Status != entities.CommissionStatusActive {
		return entities.EvaluationSession{}, domainerrors.ErrCommissionNotActive.On("commission", roster.Commission.CommissionID, string(roster.Commission.Status))
	}
	activator, err := entities.AuthorizeActivation(roster, cmd.RequestedBy)
	if err != nil {
		logger.Warn("session activation not authorized",
			"event", "evaluation_session_activate_forbidden",
			"module", application.ModuleName,
			"layer", "application",
			"sample_id", sample.SampleID,
			"commission_id", cmd.CommissionID,
			"user_id", cmd.RequestedBy,
			"required_role", string(roster.ActivatingRole()),
		)
		return entities.EvaluationSession{}, err
	}

	sessionID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.EvaluationSession{}, err
	}
	now := nowFrom(uc.Clock)
	session = entities.EvaluationSession{
		SessionID:    sessionID,
		EventID:      sample.EventID,
		SampleID:     sample.SampleID,
		CommissionID: roster.Commission.CommissionID,
		Status:       entities.SessionStatusActive,
		ActivatedBy:  cmd.RequestedBy,
		ActivatedAt:  now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.Sessions.ActivateSession(ctx, session); err != nil {
		return entities.EvaluationSession{}, err
	}

	if err := (emitter{outbox: uc.Outbox, idGen: uc.IDGen}).emit(ctx, EventSessionCreated, session.SampleID, now, map[string]any{
		"session_id":     session.SessionID,
		"sample_id":      session.SampleID,
		"event_id":       session.EventID,
		"commission_id":  session.CommissionID,
		"activated_by":   session.ActivatedBy,
		"activator_role": string(activator.Role),
		"status":         string(session.Status),
		"occurred_at":    now.Format(time.RFC3339),
	}); err != nil {
		return entities.EvaluationSession{}, err
	}

	logger.Info("session activated",
		"event", "evaluation_session_activated",
		"module", application.ModuleName,
		"layer", "application",
		"session_id", session.SessionID,
		"sample_id", session.SampleID,
		"commission_id", session.CommissionID,
		"user_id", session.ActivatedBy,
		"role", string(activator.Role),
	)
	return session, nil
}
