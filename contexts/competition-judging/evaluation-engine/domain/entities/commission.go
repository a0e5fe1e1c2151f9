package entities

import (
	"strings"
	"time"

	domainerrors "degusta/contexts/competition-judging/evaluation-engine/domain/errors"
)

// Role is the closed set of positions a member can hold in a commission.
type Role string

const (
	RoleMainMember Role = "main_member"
	RolePresident  Role = "president"
	RoleMember     Role = "member"
	RoleTrainee    Role = "trainee"
)

func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	switch role {
	case RoleMainMember, RolePresident, RoleMember, RoleTrainee:
		return role, true
	default:
		return "", false
	}
}

// Unique reports whether a commission may hold at most one member with the role.
func (r Role) Unique() bool {
	return r == RoleMainMember || r == RolePresident
}

// CountsTowardScore is false for trainees: their votes are recorded but never
// enter the final average or the exclusion tally.
func (r Role) CountsTowardScore() bool {
	return r != RoleTrainee
}

type CommissionStatus string

const (
	CommissionStatusActive   CommissionStatus = "active"
	CommissionStatusInactive CommissionStatus = "inactive"
	CommissionStatusArchived CommissionStatus = "archived"
)

type Commission struct {
	CommissionID string
	Name         string
	Status       CommissionStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type CommissionMember struct {
	MemberID     string
	CommissionID string
	UserID       string
	Role         Role
	Excluded     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Roster is a commission together with its membership.
type Roster struct {
	Commission Commission
	Members    []CommissionMember
}

func (r Roster) Member(memberID string) (CommissionMember, bool) {
	memberID = strings.TrimSpace(memberID)
	for _, member := range r.Members {
		if member.MemberID == memberID {
			return member, true
		}
	}
	return CommissionMember{}, false
}

// ActiveMemberByUser returns the non-excluded membership of userID.
func (r Roster) ActiveMemberByUser(userID string) (CommissionMember, bool) {
	userID = strings.TrimSpace(userID)
	for _, member := range r.Members {
		if member.UserID == userID && !member.Excluded {
			return member, true
		}
	}
	return CommissionMember{}, false
}

func (r Roster) holder(role Role) (CommissionMember, bool) {
	for _, member := range r.Members {
		if member.Role == role && !member.Excluded {
			return member, true
		}
	}
	return CommissionMember{}, false
}

// ActivatingRole is the only role allowed to open a session: the president
// when the roster has one, otherwise the main member.
func (r Roster) ActivatingRole() Role {
	if _, ok := r.holder(RolePresident); ok {
		return RolePresident
	}
	return RoleMainMember
}

// AuthorizeActivation is the single place deciding who may activate an
// evaluation session for the commission.
func AuthorizeActivation(roster Roster, userID string) (CommissionMember, error) {
	member, ok := roster.ActiveMemberByUser(userID)
	if !ok {
		return CommissionMember{}, domainerrors.ErrNotCommissionMember.On("commission", roster.Commission.CommissionID, "")
	}
	required := roster.ActivatingRole()
	if member.Role != required {
		return CommissionMember{}, domainerrors.ErrActivationNotAllowed.
			Because("only the " + strings.ReplaceAll(string(required), "_", " ") + " may activate a session").
			On("commission_member", member.MemberID, string(member.Role))
	}
	return member, nil
}

// ValidateAddition checks the roster invariants for a prospective member:
// one membership per user and at most one holder of a unique role.
func (r Roster) ValidateAddition(userID string, role Role) error {
	if _, ok := ParseRole(string(role)); !ok {
		return domainerrors.ErrInvalidRole.On("commission", r.Commission.CommissionID, string(role))
	}
	userID = strings.TrimSpace(userID)
	for _, member := range r.Members {
		if member.UserID == userID {
			return domainerrors.ErrDuplicateMember.On("commission", r.Commission.CommissionID, "")
		}
		if role.Unique() && member.Role == role {
			return domainerrors.ErrRoleAlreadyAssigned.Because(string(role)).On("commission", r.Commission.CommissionID, "")
		}
	}
	return nil
}
