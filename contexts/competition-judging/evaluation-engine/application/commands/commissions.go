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

type CreateCommissionCommand struct {
	Name             string
	MainMemberUserID string
}

type AddMemberCommand struct {
	CommissionID string
	UserID       string
	Role         string
}

type SetMemberExcludedCommand struct {
	CommissionID string
	MemberID     string
	Excluded     bool
}

// CommissionUseCase maintains commission rosters.
type CommissionUseCase struct {
	Commissions ports.CommissionRepository
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Logger      *slog.Logger
}

// CreateCommission creates an active commission with its main member.
func (uc CommissionUseCase) CreateCommission(ctx context.Context, cmd CreateCommissionCommand) (entities.Roster, error) {
	logger := application.ResolveLogger(uc.Logger)
	cmd.Name = strings.TrimSpace(cmd.Name)
	cmd.MainMemberUserID = strings.TrimSpace(cmd.MainMemberUserID)
	if cmd.Name == "" || cmd.MainMemberUserID == "" {
		return entities.Roster{}, domainerrors.ErrInvalidInput
	}

	commissionID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Roster{}, err
	}
	memberID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Roster{}, err
	}
	now := nowFrom(uc.Clock)
	commission := entities.Commission{
		CommissionID: commissionID,
		Name:         cmd.Name,
		Status:       entities.CommissionStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	mainMember := entities.CommissionMember{
		MemberID:     memberID,
		CommissionID: commissionID,
		UserID:       cmd.MainMemberUserID,
		Role:         entities.RoleMainMember,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.Commissions.CreateCommission(ctx, commission, mainMember); err != nil {
		return entities.Roster{}, err
	}

	logger.Info("commission created",
		"event", "evaluation_commission_created",
		"module", application.ModuleName,
		"layer", "application",
		"commission_id", commission.CommissionID,
		"user_id", mainMember.UserID,
	)
	return entities.Roster{Commission: commission, Members: []entities.CommissionMember{mainMember}}, nil
}

func (uc CommissionUseCase) AddMember(ctx context.Context, cmd AddMemberCommand) (entities.CommissionMember, error) {
	logger := application.ResolveLogger(uc.Logger)
	cmd.CommissionID = strings.TrimSpace(cmd.CommissionID)
	cmd.UserID = strings.TrimSpace(cmd.UserID)
	if cmd.CommissionID == "" || cmd.UserID == "" {
		return entities.CommissionMember{}, domainerrors.ErrInvalidInput
	}
	role, ok := entities.ParseRole(cmd.Role)
	if !ok {
		return entities.CommissionMember{}, domainerrors.ErrInvalidRole.On("commission", cmd.CommissionID, cmd.Role)
	}

	roster, err := uc.Commissions.GetRoster(ctx, cmd.CommissionID)
	if err != nil {
		return entities.CommissionMember{}, err
	}
	if err := roster.ValidateAddition(cmd.UserID, role); err != nil {
		logger.Warn("commission member rejected",
			"event", "evaluation_commission_member_rejected",
			"module", application.ModuleName,
			"layer", "application",
			"commission_id", cmd.CommissionID,
			"user_id", cmd.UserID,
			"role", string(role),
			"error", err.Error(),
		)
		return entities.CommissionMember{}, err
	}

	memberID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.CommissionMember{}, err
	}
	now := nowFrom(uc.Clock)
	member := entities.CommissionMember{
		MemberID:     memberID,
		CommissionID: cmd.CommissionID,
		UserID:       cmd.UserID,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.Commissions.AddMember(ctx, member); err != nil {
		return entities.CommissionMember{}, err
	}

	logger.Info("commission member added",
		"event", "evaluation_commission_member_added",
		"module", application.ModuleName,
		"layer", "application",
		"commission_id", member.CommissionID,
		"member_id", member.MemberID,
		"user_id", member.UserID,
		"role", string(member.Role),
	)
	return member, nil
}

// SetMemberExcluded toggles a member's exclusion. Excluded members can neither
// activate sessions nor enter evaluations.
func (uc CommissionUseCase) SetMemberExcluded(ctx context.Context, cmd SetMemberExcludedCommand) (entities.CommissionMember, error) {
	cmd.CommissionID = strings.TrimSpace(cmd.CommissionID)
	cmd.MemberID = strings.TrimSpace(cmd.MemberID)
	if cmd.CommissionID == "" || cmd.MemberID == "" {
		return entities.CommissionMember{}, domainerrors.ErrInvalidInput
	}
	member, err := uc.Commissions.SetMemberExcluded(ctx, cmd.CommissionID, cmd.MemberID, cmd.Excluded, nowFrom(uc.Clock))
	if err != nil {
		return entities.CommissionMember{}, err
	}
	application.ResolveLogger(uc.Logger).Info("commission member exclusion changed",
		"event", "evaluation_commission_member_exclusion_changed",
		"module", application.ModuleName,
		"layer", "application",
		"commission_id", member.CommissionID,
		"member_id", member.MemberID,
		"excluded", member.Excluded,
	)
	return member, nil
}
