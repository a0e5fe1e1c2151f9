package entities

import "time"

type SampleStatus string

const (
	SampleStatusDraft     SampleStatus = "draft"
	SampleStatusSubmitted SampleStatus = "submitted"
	SampleStatusEvaluated SampleStatus = "evaluated"
	SampleStatusExcluded  SampleStatus = "excluded"
)

// ProductSample is a product entry registered into a competition event.
// ActiveSessionID mirrors the single active evaluation session, if any.
type ProductSample struct {
	SampleID        string
	EventID         string
	CategoryID      string
	ApplicantID     string
	SampleNumber    int
	Status          SampleStatus
	FinalScore      *float64
	EvaluatedAt     *time.Time
	ExcludedAt      *time.Time
	ExclusionReason string
	ActiveSessionID string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (s ProductSample) HasFinalScore() bool {
	return s.FinalScore != nil
}

// ApplyScore records a calculated score. Status advances only from submitted;
// evaluated and excluded samples keep their status. It reports whether the
// status changed.
func (s *ProductSample) ApplyScore(score float64, evaluatedAt time.Time) bool {
	value := score
	at := evaluatedAt.UTC()
	s.FinalScore = &value
	s.EvaluatedAt = &at
	s.UpdatedAt = at
	if s.Status == SampleStatusSubmitted {
		s.Status = SampleStatusEvaluated
		return true
	}
	return false
}

// Exclude moves a submitted sample to excluded. Other statuses are left alone.
func (s *ProductSample) Exclude(reason string, excludedAt time.Time) bool {
	if s.Status != SampleStatusSubmitted {
		return false
	}
	at := excludedAt.UTC()
	s.Status = SampleStatusExcluded
	s.ExclusionReason = reason
	s.ExcludedAt = &at
	s.UpdatedAt = at
	return true
}
