package commands

import (
	"context"
	"log/slog"
	"strings"

	application "degusta/contexts/competition-judging/evaluation-engine/application"
	"degusta/contexts/competition-judging/evaluation-engine/domain/entities"
	domainerrors "degusta/contexts/competition-judging/evaluation-engine/domain/errors"
	"degusta/contexts/competition-judging/evaluation-engine/ports"
)

type ConfigurePolicyCommand struct {
	EventID              string
	TrimHighLowFromCount int
	TrimCountHigh        int
	TrimCountLow         int
	RoundingDecimals     int
}

type PolicyUseCase struct {
	Policies ports.PolicyRepository
	Clock    ports.Clock
	Logger   *slog.Logger
}

// PolicyFor returns the event's scoring policy, persisting defaults first if
// the event has none.
func (uc PolicyUseCase) PolicyFor(ctx context.Context, eventID string) (entities.ScoringPolicy, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return entities.ScoringPolicy{}, domainerrors.ErrInvalidInput
	}
	policy, _, err := uc.Policies.GetOrCreatePolicy(ctx, entities.DefaultScoringPolicy(eventID, nowFrom(uc.Clock)))
	return policy, err
}

func (uc PolicyUseCase) ConfigurePolicy(ctx context.Context, cmd ConfigurePolicyCommand) (entities.ScoringPolicy, error) {
	logger := application.ResolveLogger(uc.Logger)
	cmd.EventID = strings.TrimSpace(cmd.EventID)
	if cmd.EventID == "" {
		return entities.ScoringPolicy{}, domainerrors.ErrInvalidInput
	}

	now := nowFrom(uc.Clock)
	current, _, err := uc.Policies.GetOrCreatePolicy(ctx, entities.DefaultScoringPolicy(cmd.EventID, now))
	if err != nil {
		return entities.ScoringPolicy{}, err
	}
	policy := entities.ScoringPolicy{
		EventID:              cmd.EventID,
		TrimHighLowFromCount: cmd.TrimHighLowFromCount,
		TrimCountHigh:        cmd.TrimCountHigh,
		TrimCountLow:         cmd.TrimCountLow,
		RoundingDecimals:     cmd.RoundingDecimals,
		CreatedAt:            current.CreatedAt,
		UpdatedAt:            now,
	}
	if err := policy.Validate(); err != nil {
		logger.Warn("scoring policy rejected",
			"event", "evaluation_scoring_policy_rejected",
			"module", application.ModuleName,
			"layer", "application",
			"event_id", cmd.EventID,
			"error", err.Error(),
		)
		return entities.ScoringPolicy{}, err
	}
	if err := uc.Policies.SavePolicy(ctx, policy); err != nil {
		return entities.ScoringPolicy{}, err
	}

	logger.Info("scoring policy configured",
		"event", "evaluation_scoring_policy_configured",
		"module", application.ModuleName,
		"layer", "application",
		"event_id", policy.EventID,
		"trim_high_low_from_count", policy.TrimHighLowFromCount,
		"trim_count_high", policy.TrimCountHigh,
		"trim_count_low", policy.TrimCountLow,
		"rounding_decimals", policy.RoundingDecimals,
	)
	return policy, nil
}
