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

type RegisterSampleCommand struct {
	EventID     string
	CategoryID  string
	ApplicantID string
}

// SampleUseCase registers samples into events and hands them over for judging.
type SampleUseCase struct {
	Samples ports.SampleRepository
	Outbox  ports.OutboxWriter
	Clock   ports.Clock
	IDGen   ports.IDGenerator
	Logger  *slog.Logger
}

// RegisterSample stores a draft sample; the store assigns its number.
func (uc SampleUseCase) RegisterSample(ctx context.Context, cmd RegisterSampleCommand) (entities.ProductSample, error) {
	logger := application.ResolveLogger(uc.Logger)
	cmd.EventID = strings.TrimSpace(cmd.EventID)
	cmd.CategoryID = strings.TrimSpace(cmd.CategoryID)
	cmd.ApplicantID = strings.TrimSpace(cmd.ApplicantID)
	if cmd.EventID == "" || cmd.CategoryID == "" || cmd.ApplicantID == "" {
		return entities.ProductSample{}, domainerrors.ErrInvalidInput
	}

	sampleID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.ProductSample{}, err
	}
	now := nowFrom(uc.Clock)
	sample, err := uc.Samples.RegisterSample(ctx, entities.ProductSample{
		SampleID:    sampleID,
		EventID:     cmd.EventID,
		CategoryID:  cmd.CategoryID,
		ApplicantID: cmd.ApplicantID,
		Status:      entities.SampleStatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return entities.ProductSample{}, err
	}

	logger.Info("sample registered",
		"event", "evaluation_sample_registered",
		"module", application.ModuleName,
		"layer", "application",
		"sample_id", sample.SampleID,
		"event_id", sample.EventID,
		"sample_number", sample.SampleNumber,
	)
	return sample, nil
}

// SubmitSample moves a draft sample to submitted.
func (uc SampleUseCase) SubmitSample(ctx context.Context, sampleID string) (entities.ProductSample, error) {
	sampleID = strings.TrimSpace(sampleID)
	if sampleID == "" {
		return entities.ProductSample{}, domainerrors.ErrInvalidInput
	}
	now := nowFrom(uc.Clock)
	sample, err := uc.Samples.SubmitSample(ctx, sampleID, now)
	if err != nil {
		return entities.ProductSample{}, err
	}
	if err := (emitter{outbox: uc.Outbox, idGen: uc.IDGen}).emitStatusChanged(ctx, sample, entities.SampleStatusDraft, now); err != nil {
		return entities.ProductSample{}, err
	}

	application.ResolveLogger(uc.Logger).Info("sample submitted",
		"event", "evaluation_sample_submitted",
		"module", application.ModuleName,
		"layer", "application",
		"sample_id", sample.SampleID,
		"event_id", sample.EventID,
	)
	return sample, nil
}
