package entities

import (
	"errors"
	"testing"
	"time"

	domainerrors "degusta/contexts/competition-judging/evaluation-engine/domain/errors"
)

func TestAggregateTrimmedAndUntrimmed(t *testing.T) {
	policy := DefaultScoringPolicy("event-1", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	tests := []struct {
		name    string
		scores  []float64
		want    float64
		kept    int
		trimmed bool
	}{
		{name: "five scores trim one low one high", scores: []float64{85, 200, 70, 80, 75}, want: 80.00, kept: 3, trimmed: true},
		{name: "four scores plain mean", scores: []float64{70, 75, 80, 85}, want: 77.50, kept: 4},
		{name: "half rounds away from zero", scores: []float64{77.50, 77.51}, want: 77.51, kept: 2},
		{name: "duplicates trimmed by position", scores: []float64{90, 90, 90, 60, 60}, want: 80.00, kept: 3, trimmed: true},
		{name: "single score", scores: []float64{64.333}, want: 64.33, kept: 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := policy.Aggregate(tc.scores)
			if err != nil {
				t.Fatalf("aggregate failed: %v", err)
			}
			if got.Score != tc.want {
				t.Fatalf("expected %.4f, got %.4f", tc.want, got.Score)
			}
			if got.Count != len(tc.scores) || got.Kept != tc.kept || got.Trimmed != tc.trimmed {
				t.Fatalf("unexpected aggregate shape: %+v", got)
			}
		})
	}
}

func TestAggregateDoesNotReorderInput(t *testing.T) {
	policy := DefaultScoringPolicy("event-1", time.Now())
	scores := []float64{85, 70, 200, 75, 80}
	if _, err := policy.Aggregate(scores); err != nil {
		t.Fatalf("aggregate failed: %v", err)
	}
	if scores[0] != 85 || scores[2] != 200 {
		t.Fatalf("input slice was reordered: %v", scores)
	}
}

func TestAggregateRoundingDecimals(t *testing.T) {
	policy := ScoringPolicy{EventID: "event-1", TrimHighLowFromCount: 5, TrimCountHigh: 1, TrimCountLow: 1, RoundingDecimals: 0}
	got, err := policy.Aggregate([]float64{80, 81})
	if err != nil {
		t.Fatalf("aggregate failed: %v", err)
	}
	if got.Score != 81 {
		t.Fatalf("expected 80.5 to round to 81, got %v", got.Score)
	}
}

func TestAggregateGuardsEmptyRemainder(t *testing.T) {
	// Legacy rows can hold a policy Validate would reject.
	policy := ScoringPolicy{EventID: "event-1", TrimHighLowFromCount: 2, TrimCountHigh: 1, TrimCountLow: 1, RoundingDecimals: 2}
	_, err := policy.Aggregate([]float64{70, 80})
	if !errors.Is(err, domainerrors.ErrTrimEmptiesRemainder) {
		t.Fatalf("expected ErrTrimEmptiesRemainder, got %v", err)
	}
	if !errors.Is(err, domainerrors.ErrConfiguration) {
		t.Fatalf("expected configuration kind, got %v", err)
	}

	got, err := policy.Aggregate([]float64{70, 80, 90})
	if err != nil {
		t.Fatalf("three scores should leave one: %v", err)
	}
	if got.Score != 80 {
		t.Fatalf("expected 80, got %v", got.Score)
	}
}

func TestAggregateWithoutScores(t *testing.T) {
	policy := DefaultScoringPolicy("event-1", time.Now())
	if _, err := policy.Aggregate(nil); !errors.Is(err, domainerrors.ErrNoCountedScores) {
		t.Fatalf("expected ErrNoCountedScores, got %v", err)
	}
}

func TestPolicyValidate(t *testing.T) {
	tests := []struct {
		name    string
		policy  ScoringPolicy
		wantErr bool
	}{
		{name: "defaults", policy: ScoringPolicy{TrimHighLowFromCount: 5, TrimCountHigh: 1, TrimCountLow: 1, RoundingDecimals: 2}},
		{name: "no trimming", policy: ScoringPolicy{TrimHighLowFromCount: 0, RoundingDecimals: 2}},
		{name: "negative count", policy: ScoringPolicy{TrimHighLowFromCount: 5, TrimCountHigh: -1, RoundingDecimals: 2}, wantErr: true},
		{name: "too many decimals", policy: ScoringPolicy{TrimHighLowFromCount: 5, RoundingDecimals: 7}, wantErr: true},
		{name: "trim empties remainder", policy: ScoringPolicy{TrimHighLowFromCount: 4, TrimCountHigh: 2, TrimCountLow: 2, RoundingDecimals: 2}, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.policy.Validate()
			if tc.wantErr && !errors.Is(err, domainerrors.ErrInvalidScoringPolicy) {
				t.Fatalf("expected ErrInvalidScoringPolicy, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("expected valid policy, got %v", err)
			}
		})
	}
}
