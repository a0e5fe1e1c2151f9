package postgresadapter

import (
	"context"

	"gorm.io/gorm"
)

// partialIndexes are the constraints AutoMigrate cannot express.
var partialIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_evaluation_sessions_active_sample
ON evaluation_sessions (sample_id) WHERE status = 'active'`,
	`CREATE INDEX IF NOT EXISTS ix_evaluation_sessions_completed
ON evaluation_sessions (sample_id, completed_at DESC) WHERE status = 'completed'`,
}

// Migrate creates or updates the evaluation engine schema.
func Migrate(ctx context.Context, db *gorm.DB) error {
	tx := db.WithContext(ctx)
	if err := tx.AutoMigrate(
		&productSampleModel{},
		&commissionModel{},
		&commissionMemberModel{},
		&evaluationSessionModel{},
		&expertEvaluationModel{},
		&scoringPolicyModel{},
		&protocolModel{},
		&eventSequenceModel{},
		&idempotencyModel{},
		&outboxModel{},
		&eventDedupModel{},
	); err != nil {
		return err
	}
	for _, statement := range partialIndexes {
		if err := tx.Exec(statement).Error; err != nil {
			return err
		}
	}
	return nil
}
