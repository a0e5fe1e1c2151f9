package postgresadapter

import (
	"context"
	"strings"
	"time"

	"degusta/contexts/competition-judging/evaluation-engine/domain/entities"
	domainerrors "degusta/contexts/competition-judging/evaluation-engine/domain/errors"

	"gorm.io/gorm"
)

// ActivateSession locks the sample row, so two activations for one sample
// run one after the other. The partial unique index on active sessions
// rejects anything that slips past the lock.
func (r *Repository) ActivateSession(ctx context.Context, session entities.EvaluationSession) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sample, err := lockSample(tx, session.SampleID)
		if err != nil {
			return err
		}
		if sample.ActiveSessionID != "" {
			return domainerrors.ErrSessionAlreadyActive.On("product_sample", sample.SampleID, string(sample.Status))
		}
		if sample.Status != entities.SampleStatusSubmitted {
			return domainerrors.ErrSampleNotSubmitted.On("product_sample", sample.SampleID, string(sample.Status))
		}

		row := sessionModelFromEntity(session)
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrSessionAlreadyActive.On("product_sample", sample.SampleID, string(sample.Status))
			}
			return err
		}
		return tx.Model(&productSampleModel{}).
			Where("sample_id = ?", sample.SampleID).
			Updates(map[string]any{
				"active_session_id": session.SessionID,
				"updated_at":        session.ActivatedAt.UTC(),
			}).Error
	})
	if err != nil {
		return r.txError("evaluation_repo_activate_session_failed", err,
			"session_id", session.SessionID,
			"sample_id", session.SampleID,
		)
	}
	return nil
}

func (r *Repository) GetSession(ctx context.Context, sessionID string) (entities.EvaluationSession, error) {
	sessionID = strings.TrimSpace(sessionID)
	var row evaluationSessionModel
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&row).Error; err != nil {
		if isNotFound(err) {
			return entities.EvaluationSession{}, domainerrors.ErrSessionNotFound.On("evaluation_session", sessionID, "")
		}
		return entities.EvaluationSession{}, r.logError("evaluation_repo_get_session_failed", err, "session_id", sessionID)
	}
	return row.toEntity(), nil
}

func (r *Repository) GetActiveSession(ctx context.Context, sampleID string) (entities.EvaluationSession, bool, error) {
	return r.findSession(ctx, "evaluation_repo_get_active_session_failed", sampleID, entities.SessionStatusActive, "activated_at DESC")
}

// GetLatestCompletedSession orders by completion time only; of two sessions
// completed at the same instant, whichever row comes back first wins.
func (r *Repository) GetLatestCompletedSession(ctx context.Context, sampleID string) (entities.EvaluationSession, bool, error) {
	return r.findSession(ctx, "evaluation_repo_get_latest_completed_session_failed", sampleID, entities.SessionStatusCompleted, "completed_at DESC")
}

func (r *Repository) findSession(
	ctx context.Context,
	event string,
	sampleID string,
	status entities.SessionStatus,
	order string,
) (entities.EvaluationSession, bool, error) {
	sampleID = strings.TrimSpace(sampleID)
	var row evaluationSessionModel
	err := r.db.WithContext(ctx).
		Where("sample_id = ?", sampleID).
		Where("status = ?", string(status)).
		Order(order).
		First(&row).Error
	if err != nil {
		if isNotFound(err) {
			return entities.EvaluationSession{}, false, nil
		}
		return entities.EvaluationSession{}, false, r.logError(event, err, "sample_id", sampleID)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) CompleteSession(
	ctx context.Context,
	sessionID string,
	completedBy string,
	completedAt time.Time,
) (entities.EvaluationSession, bool, error) {
	sessionID = strings.TrimSpace(sessionID)
	var (
		session entities.EvaluationSession
		changed bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := lockSession(tx, sessionID)
		if err != nil {
			return err
		}
		session = locked
		if !locked.IsActive() {
			return nil
		}
		at := completedAt.UTC()
		session.Status = entities.SessionStatusCompleted
		session.CompletedBy = completedBy
		session.CompletedAt = &at
		session.UpdatedAt = at
		if err := tx.Model(&evaluationSessionModel{}).
			Where("session_id = ?", session.SessionID).
			Updates(map[string]any{
				"status":       string(session.Status),
				"completed_by": session.CompletedBy,
				"completed_at": at,
				"updated_at":   at,
			}).Error; err != nil {
			return err
		}
		if err := tx.Model(&productSampleModel{}).
			Where("sample_id = ?", session.SampleID).
			Where("active_session_id = ?", session.SessionID).
			Updates(map[string]any{
				"active_session_id": nil,
				"updated_at":        at,
			}).Error; err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return entities.EvaluationSession{}, false, r.txError("evaluation_repo_complete_session_failed", err,
			"session_id", sessionID,
		)
	}
	return session, changed, nil
}

func lockSession(tx *gorm.DB, sessionID string) (entities.EvaluationSession, error) {
	var row evaluationSessionModel
	if err := tx.Clauses(forUpdate()).
		Where("session_id = ?", sessionID).
		First(&row).Error; err != nil {
		if isNotFound(err) {
			return entities.EvaluationSession{}, domainerrors.ErrSessionNotFound.On("evaluation_session", sessionID, "")
		}
		return entities.EvaluationSession{}, err
	}
	return row.toEntity(), nil
}
