package entities

import (
	"errors"
	"testing"

	domainerrors "degusta/contexts/competition-judging/evaluation-engine/domain/errors"
)

func roster(members ...CommissionMember) Roster {
	return Roster{
		Commission: Commission{CommissionID: "commission-1", Status: CommissionStatusActive},
		Members:    members,
	}
}

func member(id string, role Role) CommissionMember {
	return CommissionMember{MemberID: "m-" + id, CommissionID: "commission-1", UserID: id, Role: role}
}

func TestAuthorizeActivationWithPresident(t *testing.T) {
	r := roster(
		member("main", RoleMainMember),
		member("president", RolePresident),
		member("judge", RoleMember),
		member("trainee", RoleTrainee),
	)
	if _, err := AuthorizeActivation(r, "president"); err != nil {
		t.Fatalf("president should activate: %v", err)
	}
	for _, userID := range []string{"main", "judge", "trainee"} {
		_, err := AuthorizeActivation(r, userID)
		if !errors.Is(err, domainerrors.ErrActivationNotAllowed) {
			t.Fatalf("%s: expected ErrActivationNotAllowed, got %v", userID, err)
		}
		if !errors.Is(err, domainerrors.ErrAuthorization) {
			t.Fatalf("%s: expected authorization kind, got %v", userID, err)
		}
	}
}

func TestAuthorizeActivationWithoutPresident(t *testing.T) {
	r := roster(
		member("main", RoleMainMember),
		member("judge", RoleMember),
	)
	if _, err := AuthorizeActivation(r, "main"); err != nil {
		t.Fatalf("main member should activate: %v", err)
	}
	if _, err := AuthorizeActivation(r, "judge"); !errors.Is(err, domainerrors.ErrActivationNotAllowed) {
		t.Fatalf("expected ErrActivationNotAllowed, got %v", err)
	}
}

func TestAuthorizeActivationRejectsOutsidersAndExcludedMembers(t *testing.T) {
	excludedPresident := member("president", RolePresident)
	excludedPresident.Excluded = true
	r := roster(member("main", RoleMainMember), excludedPresident)

	if _, err := AuthorizeActivation(r, "stranger"); !errors.Is(err, domainerrors.ErrNotCommissionMember) {
		t.Fatalf("expected ErrNotCommissionMember, got %v", err)
	}
	if _, err := AuthorizeActivation(r, "president"); !errors.Is(err, domainerrors.ErrNotCommissionMember) {
		t.Fatalf("excluded president: expected ErrNotCommissionMember, got %v", err)
	}
	if r.ActivatingRole() != RoleMainMember {
		t.Fatalf("excluded president must not hold the activating role")
	}
	if _, err := AuthorizeActivation(r, "main"); err != nil {
		t.Fatalf("main member should activate when the president is excluded: %v", err)
	}
}

func TestValidateAddition(t *testing.T) {
	r := roster(member("main", RoleMainMember), member("president", RolePresident))
	tests := []struct {
		name   string
		userID string
		role   Role
		want   error
	}{
		{name: "new member", userID: "judge", role: RoleMember},
		{name: "second trainee slot", userID: "trainee", role: RoleTrainee},
		{name: "duplicate user", userID: "main", role: RoleMember, want: domainerrors.ErrDuplicateMember},
		{name: "second president", userID: "judge", role: RolePresident, want: domainerrors.ErrRoleAlreadyAssigned},
		{name: "second main member", userID: "judge", role: RoleMainMember, want: domainerrors.ErrRoleAlreadyAssigned},
		{name: "unknown role", userID: "judge", role: Role("chair"), want: domainerrors.ErrInvalidRole},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := r.ValidateAddition(tc.userID, tc.role)
			if tc.want == nil && err != nil {
				t.Fatalf("expected addition to pass, got %v", err)
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestParseRole(t *testing.T) {
	if role, ok := ParseRole(" President "); !ok || role != RolePresident {
		t.Fatalf("expected president, got %q %v", role, ok)
	}
	if _, ok := ParseRole("chair"); ok {
		t.Fatalf("expected unknown role to fail")
	}
	if RoleTrainee.CountsTowardScore() || !RoleMember.CountsTowardScore() {
		t.Fatalf("unexpected CountsTowardScore result")
	}
}
