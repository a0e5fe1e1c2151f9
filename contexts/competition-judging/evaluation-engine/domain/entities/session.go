package entities

import "time"

type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
)

// EvaluationSession is a judging window binding one sample to one commission.
// Completion is driven by an external workflow; this module only reads it.
type EvaluationSession struct {
	SessionID    string
	EventID      string
	SampleID     string
	CommissionID string
	Status       SessionStatus
	ActivatedBy  string
	ActivatedAt  time.Time
	CompletedBy  string
	CompletedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (s EvaluationSession) IsActive() bool {
	return s.Status == SessionStatusActive
}

// LatestCompleted picks the completed session with the latest completion
// time. Sessions completing at the same instant resolve to whichever comes
// first in the input.
func LatestCompleted(sessions []EvaluationSession) (EvaluationSession, bool) {
	var (
		latest EvaluationSession
		found  bool
	)
	for _, session := range sessions {
		if session.Status != SessionStatusCompleted || session.CompletedAt == nil {
			continue
		}
		if !found || session.CompletedAt.After(*latest.CompletedAt) {
			latest = session
			found = true
		}
	}
	return latest, found
}
