package postgresadapter

import (
	"context"
	"strings"
	"time"

	"degusta/contexts/competition-judging/evaluation-engine/domain/entities"
	domainerrors "degusta/contexts/competition-judging/evaluation-engine/domain/errors"

	"gorm.io/gorm"
)

func (r *Repository) RegisterSample(ctx context.Context, sample entities.ProductSample) (entities.ProductSample, error) {
	sample.SampleID = strings.TrimSpace(sample.SampleID)
	sample.EventID = strings.TrimSpace(sample.EventID)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		number, err := nextSequence(tx, sample.EventID, sequenceSampleNumber)
		if err != nil {
			return err
		}
		sample.SampleNumber = number
		row := sampleModelFromEntity(sample)
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrRepositoryInvariant.On("product_sample", sample.SampleID, "")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return entities.ProductSample{}, r.txError("evaluation_repo_register_sample_failed", err,
			"sample_id", sample.SampleID,
			"event_id", sample.EventID,
		)
	}
	return sample, nil
}

func (r *Repository) GetSample(ctx context.Context, sampleID string) (entities.ProductSample, error) {
	sampleID = strings.TrimSpace(sampleID)
	var row productSampleModel
	if err := r.db.WithContext(ctx).
		Where("sample_id = ?", sampleID).
		First(&row).Error; err != nil {
		if isNotFound(err) {
			return entities.ProductSample{}, domainerrors.ErrSampleNotFound.On("product_sample", sampleID, "")
		}
		return entities.ProductSample{}, r.logError("evaluation_repo_get_sample_failed", err, "sample_id", sampleID)
	}
	return row.toEntity(), nil
}

func (r *Repository) SubmitSample(ctx context.Context, sampleID string, submittedAt time.Time) (entities.ProductSample, error) {
	sampleID = strings.TrimSpace(sampleID)
	var sample entities.ProductSample
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := lockSample(tx, sampleID)
		if err != nil {
			return err
		}
		if locked.Status != entities.SampleStatusDraft {
			return domainerrors.ErrSampleNotDraft.On("product_sample", locked.SampleID, string(locked.Status))
		}
		locked.Status = entities.SampleStatusSubmitted
		locked.UpdatedAt = submittedAt.UTC()
		if err := tx.Model(&productSampleModel{}).
			Where("sample_id = ?", locked.SampleID).
			Updates(sampleUpdates(locked)).Error; err != nil {
			return err
		}
		sample = locked
		return nil
	})
	if err != nil {
		return entities.ProductSample{}, r.txError("evaluation_repo_submit_sample_failed", err, "sample_id", sampleID)
	}
	return sample, nil
}

func (r *Repository) ApplySampleScore(
	ctx context.Context,
	sampleID string,
	score float64,
	evaluatedAt time.Time,
) (entities.ProductSample, bool, error) {
	sampleID = strings.TrimSpace(sampleID)
	var (
		sample entities.ProductSample
		moved  bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := lockSample(tx, sampleID)
		if err != nil {
			return err
		}
		moved = locked.ApplyScore(score, evaluatedAt)
		if err := tx.Model(&productSampleModel{}).
			Where("sample_id = ?", locked.SampleID).
			Updates(sampleUpdates(locked)).Error; err != nil {
			return err
		}
		sample = locked
		return nil
	})
	if err != nil {
		return entities.ProductSample{}, false, r.txError("evaluation_repo_apply_sample_score_failed", err,
			"sample_id", sampleID,
		)
	}
	return sample, moved, nil
}

func lockSample(tx *gorm.DB, sampleID string) (entities.ProductSample, error) {
	var row productSampleModel
	if err := tx.Clauses(forUpdate()).
		Where("sample_id = ?", sampleID).
		First(&row).Error; err != nil {
		if isNotFound(err) {
			return entities.ProductSample{}, domainerrors.ErrSampleNotFound.On("product_sample", sampleID, "")
		}
		return entities.ProductSample{}, err
	}
	return row.toEntity(), nil
}
