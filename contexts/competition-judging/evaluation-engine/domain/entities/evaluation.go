package entities

import (
	"math"
	"strings"
	"time"

	domainerrors "degusta/contexts/competition-judging/evaluation-engine/domain/errors"
)

const (
	MinScore = 0.0
	MaxScore = 100.0
)

// ExpertEvaluation is one commission member's score and exclusion vote within
// a session. SubmittedAt nil means the entry is still editable.
type ExpertEvaluation struct {
	EvaluationID              string
	SessionID                 string
	SampleID                  string
	CommissionMemberID        string
	FinalScore                *float64
	ExcludeVote               bool
	ExclusionNote             string
	SubmittedAt               *time.Time
	IsExcludedFromCalculation bool
	CreatedAt                 time.Time
	UpdatedAt                 time.Time
}

func (e ExpertEvaluation) IsSubmitted() bool {
	return e.SubmittedAt != nil
}

// ValidateBallot checks a score/vote pair before it is recorded.
func ValidateBallot(score *float64, excludeVote bool, exclusionNote string) error {
	if score != nil {
		value := *score
		if math.IsNaN(value) || math.IsInf(value, 0) || value < MinScore || value > MaxScore {
			return domainerrors.ErrScoreOutOfRange
		}
	}
	if excludeVote && strings.TrimSpace(exclusionNote) == "" {
		return domainerrors.ErrExclusionNoteRequired
	}
	return nil
}

// ExclusionTally is the outcome of counting exclusion votes for a session.
type ExclusionTally struct {
	TotalVotes   int
	ExcludeVotes int
	Exclude      bool
	Reason       string
}

// TallyExclusion counts submitted votes from members whose score counts. A
// strict majority of exclude votes excludes the sample; ties do not.
func TallyExclusion(evaluations []ExpertEvaluation) ExclusionTally {
	tally := ExclusionTally{}
	notes := make([]string, 0)
	for _, evaluation := range evaluations {
		if !evaluation.IsSubmitted() || evaluation.IsExcludedFromCalculation {
			continue
		}
		tally.TotalVotes++
		if !evaluation.ExcludeVote {
			continue
		}
		tally.ExcludeVotes++
		if note := strings.TrimSpace(evaluation.ExclusionNote); note != "" {
			notes = append(notes, note)
		}
	}
	if tally.TotalVotes == 0 {
		return tally
	}
	tally.Exclude = tally.ExcludeVotes*2 > tally.TotalVotes
	if tally.Exclude {
		tally.Reason = strings.Join(notes, "; ")
	}
	return tally
}

// CountedScores returns the scores that enter the final average.
func CountedScores(evaluations []ExpertEvaluation) []float64 {
	scores := make([]float64, 0, len(evaluations))
	for _, evaluation := range evaluations {
		if evaluation.IsExcludedFromCalculation || evaluation.FinalScore == nil {
			continue
		}
		scores = append(scores, *evaluation.FinalScore)
	}
	return scores
}
