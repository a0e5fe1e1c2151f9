package entities

import (
	"testing"
	"time"
)

func TestApplyScoreAdvancesOnlySubmittedSamples(t *testing.T) {
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		status  SampleStatus
		want    SampleStatus
		changed bool
	}{
		{status: SampleStatusSubmitted, want: SampleStatusEvaluated, changed: true},
		{status: SampleStatusEvaluated, want: SampleStatusEvaluated},
		{status: SampleStatusExcluded, want: SampleStatusExcluded},
	}
	for _, tc := range tests {
		sample := ProductSample{SampleID: "sample-1", Status: tc.status}
		changed := sample.ApplyScore(81.25, at)
		if changed != tc.changed || sample.Status != tc.want {
			t.Fatalf("%s: expected %s/%v, got %s/%v", tc.status, tc.want, tc.changed, sample.Status, changed)
		}
		if !sample.HasFinalScore() || *sample.FinalScore != 81.25 || !sample.EvaluatedAt.Equal(at) {
			t.Fatalf("%s: score not recorded: %+v", tc.status, sample)
		}
	}
}

func TestExcludeIsOneWayFromSubmitted(t *testing.T) {
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	sample := ProductSample{SampleID: "sample-1", Status: SampleStatusSubmitted}
	if !sample.Exclude("off smell", at) {
		t.Fatalf("expected submitted sample to be excluded")
	}
	if sample.Status != SampleStatusExcluded || sample.ExclusionReason != "off smell" || !sample.ExcludedAt.Equal(at) {
		t.Fatalf("unexpected excluded sample %+v", sample)
	}
	if sample.Exclude("again", at.Add(time.Minute)) {
		t.Fatalf("expected excluded sample to stay untouched")
	}
	evaluated := ProductSample{Status: SampleStatusEvaluated}
	if evaluated.Exclude("late", at) {
		t.Fatalf("expected evaluated sample not to be excluded")
	}
}

func TestLatestCompleted(t *testing.T) {
	early := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)
	sessions := []EvaluationSession{
		{SessionID: "active", Status: SessionStatusActive},
		{SessionID: "early", Status: SessionStatusCompleted, CompletedAt: &early},
		{SessionID: "late", Status: SessionStatusCompleted, CompletedAt: &late},
	}
	latest, ok := LatestCompleted(sessions)
	if !ok || latest.SessionID != "late" {
		t.Fatalf("expected late session, got %+v %v", latest, ok)
	}
	if _, ok := LatestCompleted(sessions[:1]); ok {
		t.Fatalf("expected no completed session")
	}
}
