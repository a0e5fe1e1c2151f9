package postgresadapter

import (
	"context"
	"strings"

	"degusta/contexts/competition-judging/evaluation-engine/domain/entities"

	"gorm.io/gorm/clause"
)

func (r *Repository) GetOrCreatePolicy(ctx context.Context, defaults entities.ScoringPolicy) (entities.ScoringPolicy, bool, error) {
	defaults.EventID = strings.TrimSpace(defaults.EventID)
	row := policyModelFromEntity(defaults)
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return entities.ScoringPolicy{}, false, r.logError("evaluation_repo_create_policy_failed", create.Error,
			"event_id", defaults.EventID,
		)
	}
	if create.RowsAffected > 0 {
		return row.toEntity(), true, nil
	}

	var existing scoringPolicyModel
	if err := r.db.WithContext(ctx).
		Where("event_id = ?", defaults.EventID).
		First(&existing).Error; err != nil {
		return entities.ScoringPolicy{}, false, r.logError("evaluation_repo_get_policy_failed", err,
			"event_id", defaults.EventID,
		)
	}
	return existing.toEntity(), false, nil
}

func (r *Repository) SavePolicy(ctx context.Context, policy entities.ScoringPolicy) error {
	row := policyModelFromEntity(policy)
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "event_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"trim_high_low_from_count": row.TrimHighLowFromCount,
			"trim_count_high":          row.TrimCountHigh,
			"trim_count_low":           row.TrimCountLow,
			"rounding_decimals":        row.RoundingDecimals,
			"updated_at":               row.UpdatedAt,
		}),
	}).Create(&row).Error; err != nil {
		return r.logError("evaluation_repo_save_policy_failed", err, "event_id", row.EventID)
	}
	return nil
}
