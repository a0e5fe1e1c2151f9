package errors

import (
	"errors"
	"strings"
)

// Error kinds. Every domain error unwraps to exactly one of these so callers
// can map failures without knowing the concrete sentinel.
var (
	ErrValidation    = errors.New("validation failed")
	ErrConflict      = errors.New("conflict")
	ErrAuthorization = errors.New("not authorized")
	ErrInvalidState  = errors.New("invalid state")
	ErrNotFound      = errors.New("not found")
	ErrConfiguration = errors.New("configuration error")
)

var (
	ErrInvalidInput          = newError(ErrValidation, "invalid input")
	ErrExclusionNoteRequired = newError(ErrValidation, "exclusion note is required when voting to exclude")
	ErrScoreOutOfRange       = newError(ErrValidation, "score is out of range")
	ErrMemberNotInCommission = newError(ErrValidation, "commission member does not belong to the session commission")
	ErrSampleEventMismatch   = newError(ErrValidation, "sample does not belong to the event")
	ErrSampleSessionMismatch = newError(ErrValidation, "sample does not belong to the session")
	ErrInvalidRole           = newError(ErrValidation, "invalid commission role")
	ErrInvalidScoringPolicy  = newError(ErrValidation, "invalid scoring policy")
	ErrSessionAlreadyActive  = newError(ErrConflict, "session already active")
	ErrDuplicateEvaluation   = newError(ErrConflict, "duplicate evaluation")
	ErrDuplicateMember       = newError(ErrConflict, "user is already a commission member")
	ErrRoleAlreadyAssigned   = newError(ErrConflict, "role is already assigned in this commission")
	ErrIdempotencyConflict   = newError(ErrConflict, "idempotency key conflict")
	ErrNotCommissionMember   = newError(ErrAuthorization, "not a commission member")
	ErrActivationNotAllowed  = newError(ErrAuthorization, "role may not activate a session")
	ErrSessionNotActive      = newError(ErrInvalidState, "session is not active")
	ErrEvaluationSubmitted   = newError(ErrInvalidState, "evaluation is already submitted")
	ErrSampleNotSubmitted    = newError(ErrInvalidState, "sample is not submitted")
	ErrSampleNotEvaluated    = newError(ErrInvalidState, "sample has no final score")
	ErrSampleNotDraft        = newError(ErrInvalidState, "sample is not a draft")
	ErrCommissionNotActive   = newError(ErrInvalidState, "commission is not active")
	ErrNoCountedScores       = newError(ErrInvalidState, "no counted scores")
	ErrSampleNotFound        = newError(ErrNotFound, "product sample not found")
	ErrCommissionNotFound    = newError(ErrNotFound, "commission not found")
	ErrMemberNotFound        = newError(ErrNotFound, "commission member not found")
	ErrSessionNotFound       = newError(ErrNotFound, "evaluation session not found")
	ErrEvaluationNotFound    = newError(ErrNotFound, "expert evaluation not found")
	ErrProtocolNotFound      = newError(ErrNotFound, "protocol not found")
	ErrTrimEmptiesRemainder  = newError(ErrConfiguration, "trim policy removes every evaluation")
	ErrRepositoryInvariant   = newError(ErrConflict, "repository invariant broken")
)

// Error is a domain failure carrying its kind and, when known, the entity it
// concerns so transport code can render a precise message.
type Error struct {
	Kind    error
	Message string
	Detail  string
	Entity  string
	ID      string
	State   string

	base *Error
}

func newError(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Entity != "" {
		b.WriteString(" (")
		b.WriteString(e.Entity)
		if e.ID != "" {
			b.WriteString(" ")
			b.WriteString(e.ID)
		}
		if e.State != "" {
			b.WriteString(", state ")
			b.WriteString(e.State)
		}
		b.WriteString(")")
	}
	return b.String()
}

// Unwrap returns the sentinel this error was derived from, or its kind for
// sentinels themselves.
func (e *Error) Unwrap() error {
	if e.base != nil {
		return e.base
	}
	return e.Kind
}

// On returns a copy of the sentinel bound to a concrete entity.
func (e *Error) On(entity string, id string, state string) *Error {
	out := e.derive()
	out.Entity = strings.TrimSpace(entity)
	out.ID = strings.TrimSpace(id)
	out.State = strings.TrimSpace(state)
	return out
}

// Because returns a copy of the error with an explanatory detail.
func (e *Error) Because(detail string) *Error {
	out := e.derive()
	out.Detail = strings.TrimSpace(detail)
	return out
}

func (e *Error) derive() *Error {
	out := *e
	if e.base != nil {
		out.base = e.base
	} else {
		out.base = e
	}
	return &out
}

// KindOf reports which error kind err belongs to, or nil for foreign errors.
func KindOf(err error) error {
	for _, kind := range []error{
		ErrValidation,
		ErrConflict,
		ErrAuthorization,
		ErrInvalidState,
		ErrNotFound,
		ErrConfiguration,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
