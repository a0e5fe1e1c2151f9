package queries

import (
	"context"
	"sort"
	"strings"

	"degusta/contexts/competition-judging/evaluation-engine/domain/entities"
	domainerrors "degusta/contexts/competition-judging/evaluation-engine/domain/errors"
	"degusta/contexts/competition-judging/evaluation-engine/ports"
)

type QueryUseCase struct {
	Samples     ports.SampleRepository
	Commissions ports.CommissionRepository
	Sessions    ports.SessionRepository
	Evaluations ports.EvaluationRepository
	Protocols   ports.ProtocolRepository
}

func (uc QueryUseCase) GetSample(ctx context.Context, sampleID string) (entities.ProductSample, error) {
	sampleID = strings.TrimSpace(sampleID)
	if sampleID == "" {
		return entities.ProductSample{}, domainerrors.ErrInvalidInput
	}
	return uc.Samples.GetSample(ctx, sampleID)
}

func (uc QueryUseCase) GetSession(ctx context.Context, sessionID string) (entities.EvaluationSession, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return entities.EvaluationSession{}, domainerrors.ErrInvalidInput
	}
	return uc.Sessions.GetSession(ctx, sessionID)
}

func (uc QueryUseCase) GetRoster(ctx context.Context, commissionID string) (entities.Roster, error) {
	commissionID = strings.TrimSpace(commissionID)
	if commissionID == "" {
		return entities.Roster{}, domainerrors.ErrInvalidInput
	}
	return uc.Commissions.GetRoster(ctx, commissionID)
}

// ListSessionEvaluations returns the session's evaluations oldest first.
func (uc QueryUseCase) ListSessionEvaluations(ctx context.Context, sessionID string) ([]entities.ExpertEvaluation, error) {
	session, err := uc.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	items, err := uc.Evaluations.ListSessionEvaluations(ctx, session.SessionID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].EvaluationID < items[j].EvaluationID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

// ListProtocols returns the sample's protocols by number, then version.
func (uc QueryUseCase) ListProtocols(ctx context.Context, sampleID string) ([]entities.Protocol, error) {
	sample, err := uc.GetSample(ctx, sampleID)
	if err != nil {
		return nil, err
	}
	items, err := uc.Protocols.ListProtocolsBySample(ctx, sample.SampleID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].ProtocolNumber == items[j].ProtocolNumber {
			return items[i].Version < items[j].Version
		}
		return items[i].ProtocolNumber < items[j].ProtocolNumber
	})
	return items, nil
}
