package entities

import (
	"errors"
	"math"
	"testing"
	"time"

	domainerrors "degusta/contexts/competition-judging/evaluation-engine/domain/errors"
)

func submitted(excludeVote bool, note string, trainee bool) ExpertEvaluation {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return ExpertEvaluation{
		ExcludeVote:               excludeVote,
		ExclusionNote:             note,
		SubmittedAt:               &at,
		IsExcludedFromCalculation: trainee,
	}
}

func TestTallyExclusion(t *testing.T) {
	tests := []struct {
		name        string
		evaluations []ExpertEvaluation
		exclude     bool
		total       int
		reason      string
	}{
		{
			name: "two of three exclude",
			evaluations: []ExpertEvaluation{
				submitted(true, "off smell", false),
				submitted(true, "foreign body", false),
				submitted(false, "", false),
			},
			exclude: true,
			total:   3,
			reason:  "off smell; foreign body",
		},
		{
			name: "one of three exclude",
			evaluations: []ExpertEvaluation{
				submitted(true, "off smell", false),
				submitted(false, "", false),
				submitted(false, "", false),
			},
			total: 3,
		},
		{
			name: "tie does not exclude",
			evaluations: []ExpertEvaluation{
				submitted(true, "off smell", false),
				submitted(false, "", false),
			},
			total: 2,
		},
		{
			name: "trainee and draft votes ignored",
			evaluations: []ExpertEvaluation{
				submitted(true, "trainee note", true),
				submitted(true, "trainee note", true),
				submitted(false, "", false),
				{ExcludeVote: true, ExclusionNote: "draft"},
			},
			total: 1,
		},
		{name: "empty", evaluations: nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tally := TallyExclusion(tc.evaluations)
			if tally.Exclude != tc.exclude || tally.TotalVotes != tc.total || tally.Reason != tc.reason {
				t.Fatalf("unexpected tally %+v", tally)
			}
		})
	}
}

func TestCountedScoresSkipsTraineesAndMissingScores(t *testing.T) {
	score := func(value float64) *float64 { return &value }
	scores := CountedScores([]ExpertEvaluation{
		{FinalScore: score(80)},
		{FinalScore: score(95), IsExcludedFromCalculation: true},
		{FinalScore: nil},
		{FinalScore: score(70)},
	})
	if len(scores) != 2 || scores[0] != 80 || scores[1] != 70 {
		t.Fatalf("unexpected counted scores %v", scores)
	}
}

func TestValidateBallot(t *testing.T) {
	valid := 88.5
	negative := -1.0
	tooHigh := 100.01
	nan := math.NaN()
	tests := []struct {
		name    string
		score   *float64
		exclude bool
		note    string
		want    error
	}{
		{name: "score only", score: &valid},
		{name: "no score", score: nil},
		{name: "negative", score: &negative, want: domainerrors.ErrScoreOutOfRange},
		{name: "above max", score: &tooHigh, want: domainerrors.ErrScoreOutOfRange},
		{name: "nan", score: &nan, want: domainerrors.ErrScoreOutOfRange},
		{name: "exclude without note", exclude: true, note: "  ", want: domainerrors.ErrExclusionNoteRequired},
		{name: "exclude with note", exclude: true, note: "mould"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateBallot(tc.score, tc.exclude, tc.note)
			if tc.want == nil && err != nil {
				t.Fatalf("expected valid ballot, got %v", err)
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if tc.want != nil && !errors.Is(err, domainerrors.ErrValidation) {
				t.Fatalf("expected validation kind, got %v", err)
			}
		})
	}
}
