package postgresadapter

import (
	"context"
	"strings"
	"time"

	"degusta/contexts/competition-judging/evaluation-engine/domain/entities"
	domainerrors "degusta/contexts/competition-judging/evaluation-engine/domain/errors"
	"degusta/contexts/competition-judging/evaluation-engine/ports"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (r *Repository) CreateEvaluation(ctx context.Context, evaluation entities.ExpertEvaluation) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireActiveSession(tx, evaluation.SessionID, forShare()); err != nil {
			return err
		}
		row := evaluationModelFromEntity(evaluation)
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrDuplicateEvaluation.On("evaluation_session", evaluation.SessionID, "")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return r.txError("evaluation_repo_create_evaluation_failed", err,
			"evaluation_id", evaluation.EvaluationID,
			"session_id", evaluation.SessionID,
			"commission_member_id", evaluation.CommissionMemberID,
		)
	}
	return nil
}

func (r *Repository) GetEvaluation(ctx context.Context, evaluationID string) (entities.ExpertEvaluation, error) {
	evaluationID = strings.TrimSpace(evaluationID)
	var row expertEvaluationModel
	if err := r.db.WithContext(ctx).
		Where("evaluation_id = ?", evaluationID).
		First(&row).Error; err != nil {
		if isNotFound(err) {
			return entities.ExpertEvaluation{}, domainerrors.ErrEvaluationNotFound.On("expert_evaluation", evaluationID, "")
		}
		return entities.ExpertEvaluation{}, r.logError("evaluation_repo_get_evaluation_failed", err,
			"evaluation_id", evaluationID,
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) GetEvaluationByMember(
	ctx context.Context,
	sessionID string,
	commissionMemberID string,
) (entities.ExpertEvaluation, bool, error) {
	sessionID = strings.TrimSpace(sessionID)
	commissionMemberID = strings.TrimSpace(commissionMemberID)
	var row expertEvaluationModel
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Where("commission_member_id = ?", commissionMemberID).
		First(&row).Error
	if err != nil {
		if isNotFound(err) {
			return entities.ExpertEvaluation{}, false, nil
		}
		return entities.ExpertEvaluation{}, false, r.logError("evaluation_repo_get_evaluation_by_member_failed", err,
			"session_id", sessionID,
			"commission_member_id", commissionMemberID,
		)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) UpdateEvaluation(ctx context.Context, evaluation entities.ExpertEvaluation) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := lockEvaluation(tx, evaluation.EvaluationID)
		if err != nil {
			return err
		}
		if current.IsSubmitted() {
			return domainerrors.ErrEvaluationSubmitted.On("expert_evaluation", current.EvaluationID, "submitted")
		}
		if err := requireActiveSession(tx, current.SessionID, forShare()); err != nil {
			return err
		}
		return tx.Model(&expertEvaluationModel{}).
			Where("evaluation_id = ?", current.EvaluationID).
			Updates(map[string]any{
				"final_score":    evaluation.FinalScore,
				"exclude_vote":   evaluation.ExcludeVote,
				"exclusion_note": evaluation.ExclusionNote,
				"updated_at":     evaluation.UpdatedAt.UTC(),
			}).Error
	})
	if err != nil {
		return r.txError("evaluation_repo_update_evaluation_failed", err,
			"evaluation_id", evaluation.EvaluationID,
		)
	}
	return nil
}

// SubmitEvaluation locks the session row before touching the evaluation, so
// submissions to one session serialize and each tally sees every earlier
// submission.
func (r *Repository) SubmitEvaluation(ctx context.Context, evaluationID string, submittedAt time.Time) (ports.SubmitOutcome, error) {
	evaluationID = strings.TrimSpace(evaluationID)
	var outcome ports.SubmitOutcome
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var probe expertEvaluationModel
		if err := tx.Select("session_id").
			Where("evaluation_id = ?", evaluationID).
			First(&probe).Error; err != nil {
			if isNotFound(err) {
				return domainerrors.ErrEvaluationNotFound.On("expert_evaluation", evaluationID, "")
			}
			return err
		}
		if err := requireActiveSession(tx, probe.SessionID, forUpdate()); err != nil {
			return err
		}
		evaluation, err := lockEvaluation(tx, evaluationID)
		if err != nil {
			return err
		}
		if evaluation.IsSubmitted() {
			return domainerrors.ErrEvaluationSubmitted.On("expert_evaluation", evaluation.EvaluationID, "submitted")
		}

		at := submittedAt.UTC()
		evaluation.SubmittedAt = &at
		evaluation.UpdatedAt = at
		if err := tx.Model(&expertEvaluationModel{}).
			Where("evaluation_id = ?", evaluation.EvaluationID).
			Updates(map[string]any{
				"submitted_at": at,
				"updated_at":   at,
			}).Error; err != nil {
			return err
		}
		outcome.Evaluation = evaluation

		var rows []expertEvaluationModel
		if err := tx.Where("session_id = ?", evaluation.SessionID).Find(&rows).Error; err != nil {
			return err
		}
		outcome.Tally = entities.TallyExclusion(toEvaluationEntities(rows))

		sample, err := lockSample(tx, evaluation.SampleID)
		if err != nil {
			return err
		}
		if outcome.Tally.Exclude && sample.Exclude(outcome.Tally.Reason, at) {
			if err := tx.Model(&productSampleModel{}).
				Where("sample_id = ?", sample.SampleID).
				Updates(sampleUpdates(sample)).Error; err != nil {
				return err
			}
			outcome.SampleExcluded = true
		}
		outcome.Sample = sample
		return nil
	})
	if err != nil {
		return ports.SubmitOutcome{}, r.txError("evaluation_repo_submit_evaluation_failed", err,
			"evaluation_id", evaluationID,
		)
	}
	return outcome, nil
}

func (r *Repository) ListSessionEvaluations(ctx context.Context, sessionID string) ([]entities.ExpertEvaluation, error) {
	sessionID = strings.TrimSpace(sessionID)
	var rows []expertEvaluationModel
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("evaluation_repo_list_session_evaluations_failed", err, "session_id", sessionID)
	}
	return toEvaluationEntities(rows), nil
}

func lockEvaluation(tx *gorm.DB, evaluationID string) (entities.ExpertEvaluation, error) {
	var row expertEvaluationModel
	if err := tx.Clauses(forUpdate()).
		Where("evaluation_id = ?", evaluationID).
		First(&row).Error; err != nil {
		if isNotFound(err) {
			return entities.ExpertEvaluation{}, domainerrors.ErrEvaluationNotFound.On("expert_evaluation", evaluationID, "")
		}
		return entities.ExpertEvaluation{}, err
	}
	return row.toEntity(), nil
}

func requireActiveSession(tx *gorm.DB, sessionID string, lock clause.Locking) error {
	var row evaluationSessionModel
	if err := tx.Clauses(lock).
		Where("session_id = ?", sessionID).
		First(&row).Error; err != nil {
		if isNotFound(err) {
			return domainerrors.ErrSessionNotFound.On("evaluation_session", sessionID, "")
		}
		return err
	}
	if row.Status != string(entities.SessionStatusActive) {
		return domainerrors.ErrSessionNotActive.On("evaluation_session", row.SessionID, row.Status)
	}
	return nil
}
