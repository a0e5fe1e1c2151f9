package postgresadapter

import (
	"context"
	"strings"
	"time"

	"degusta/contexts/competition-judging/evaluation-engine/domain/entities"
	domainerrors "degusta/contexts/competition-judging/evaluation-engine/domain/errors"

	"gorm.io/gorm"
)

func (r *Repository) CreateCommission(
	ctx context.Context,
	commission entities.Commission,
	mainMember entities.CommissionMember,
) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := commissionModel{
			CommissionID: commission.CommissionID,
			Name:         commission.Name,
			Status:       string(commission.Status),
			CreatedAt:    commission.CreatedAt.UTC(),
			UpdatedAt:    commission.UpdatedAt.UTC(),
		}
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrRepositoryInvariant.On("commission", commission.CommissionID, "")
			}
			return err
		}
		member := memberModelFromEntity(mainMember)
		return tx.Create(&member).Error
	})
	if err != nil {
		return r.txError("evaluation_repo_create_commission_failed", err,
			"commission_id", commission.CommissionID,
		)
	}
	return nil
}

func (r *Repository) GetRoster(ctx context.Context, commissionID string) (entities.Roster, error) {
	commissionID = strings.TrimSpace(commissionID)
	roster, err := loadRoster(r.db.WithContext(ctx), commissionID, false)
	if err != nil {
		return entities.Roster{}, r.txError("evaluation_repo_get_roster_failed", err, "commission_id", commissionID)
	}
	return roster, nil
}

// AddMember locks the commission row so concurrent additions see each
// other when checking role uniqueness.
func (r *Repository) AddMember(ctx context.Context, member entities.CommissionMember) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		roster, err := loadRoster(tx, member.CommissionID, true)
		if err != nil {
			return err
		}
		if err := roster.ValidateAddition(member.UserID, member.Role); err != nil {
			return err
		}
		row := memberModelFromEntity(member)
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrDuplicateMember.On("commission", member.CommissionID, "")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return r.txError("evaluation_repo_add_member_failed", err,
			"commission_id", member.CommissionID,
			"user_id", member.UserID,
		)
	}
	return nil
}

func (r *Repository) SetMemberExcluded(
	ctx context.Context,
	commissionID string,
	memberID string,
	excluded bool,
	updatedAt time.Time,
) (entities.CommissionMember, error) {
	commissionID = strings.TrimSpace(commissionID)
	memberID = strings.TrimSpace(memberID)
	var member entities.CommissionMember
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row commissionMemberModel
		if err := tx.Clauses(forUpdate()).
			Where("member_id = ?", memberID).
			Where("commission_id = ?", commissionID).
			First(&row).Error; err != nil {
			if isNotFound(err) {
				return domainerrors.ErrMemberNotFound.On("commission_member", memberID, "")
			}
			return err
		}
		row.Excluded = excluded
		row.UpdatedAt = updatedAt.UTC()
		if err := tx.Model(&commissionMemberModel{}).
			Where("member_id = ?", row.MemberID).
			Updates(map[string]any{
				"excluded":   row.Excluded,
				"updated_at": row.UpdatedAt,
			}).Error; err != nil {
			return err
		}
		member = row.toEntity()
		return nil
	})
	if err != nil {
		return entities.CommissionMember{}, r.txError("evaluation_repo_set_member_excluded_failed", err,
			"commission_id", commissionID,
			"member_id", memberID,
		)
	}
	return member, nil
}

func loadRoster(db *gorm.DB, commissionID string, lock bool) (entities.Roster, error) {
	query := db
	if lock {
		query = query.Clauses(forUpdate())
	}
	var commission commissionModel
	if err := query.Where("commission_id = ?", commissionID).First(&commission).Error; err != nil {
		if isNotFound(err) {
			return entities.Roster{}, domainerrors.ErrCommissionNotFound.On("commission", commissionID, "")
		}
		return entities.Roster{}, err
	}
	var rows []commissionMemberModel
	if err := db.Where("commission_id = ?", commissionID).
		Order("created_at ASC").
		Order("member_id ASC").
		Find(&rows).Error; err != nil {
		return entities.Roster{}, err
	}
	members := make([]entities.CommissionMember, 0, len(rows))
	for _, row := range rows {
		members = append(members, row.toEntity())
	}
	return entities.Roster{Commission: commission.toEntity(), Members: members}, nil
}
