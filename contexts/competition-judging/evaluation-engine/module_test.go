package evaluationengine_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	evaluationengine "degusta/contexts/competition-judging/evaluation-engine"
	"degusta/contexts/competition-judging/evaluation-engine/domain/entities"
	domainerrors "degusta/contexts/competition-judging/evaluation-engine/domain/errors"
	httptransport "degusta/contexts/competition-judging/evaluation-engine/transport/http"
)

type fixture struct {
	module       evaluationengine.Module
	sampleID     string
	commissionID string
	members      map[string]string
}

// newFixture registers and submits a sample of event-1 and a commission whose
// members are keyed by user id. The main member is always "main".
func newFixture(t *testing.T, roles map[string]string) fixture {
	t.Helper()
	ctx := context.Background()
	module := evaluationengine.NewInMemoryModule(nil)

	sample, err := module.Handler.RegisterSampleHandler(ctx, httptransport.RegisterSampleRequest{
		EventID:     "event-1",
		CategoryID:  "cheese",
		ApplicantID: "dairy-co",
	})
	if err != nil {
		t.Fatalf("register sample failed: %v", err)
	}
	if _, err := module.Handler.SubmitSampleHandler(ctx, sample.SampleID); err != nil {
		t.Fatalf("submit sample failed: %v", err)
	}

	roster, err := module.Handler.CreateCommissionHandler(ctx, httptransport.CreateCommissionRequest{
		Name:             "Dairy panel",
		MainMemberUserID: "main",
	})
	if err != nil {
		t.Fatalf("create commission failed: %v", err)
	}
	members := map[string]string{"main": roster.Members[0].MemberID}
	for userID, role := range roles {
		member, err := module.Handler.AddMemberHandler(ctx, roster.CommissionID, httptransport.AddMemberRequest{
			UserID: userID,
			Role:   role,
		})
		if err != nil {
			t.Fatalf("add member %s failed: %v", userID, err)
		}
		members[userID] = member.MemberID
	}
	return fixture{
		module:       module,
		sampleID:     sample.SampleID,
		commissionID: roster.CommissionID,
		members:      members,
	}
}

func (f fixture) activate(t *testing.T, userID string) httptransport.SessionResponse {
	t.Helper()
	session, err := f.module.Handler.ActivateSessionHandler(context.Background(), userID, httptransport.ActivateSessionRequest{
		EventID:      "event-1",
		SampleID:     f.sampleID,
		CommissionID: f.commissionID,
	})
	if err != nil {
		t.Fatalf("activate by %s failed: %v", userID, err)
	}
	return session
}

func (f fixture) vote(t *testing.T, sessionID string, userID string, score float64, exclude bool, note string) httptransport.SubmitEvaluationResponse {
	t.Helper()
	ctx := context.Background()
	evaluation, err := f.module.Handler.CreateEvaluationHandler(ctx, sessionID, httptransport.CreateEvaluationRequest{
		SampleID:           f.sampleID,
		CommissionMemberID: f.members[userID],
		Score:              &score,
		ExcludeVote:        exclude,
		ExclusionNote:      note,
	})
	if err != nil {
		t.Fatalf("create evaluation for %s failed: %v", userID, err)
	}
	submitted, err := f.module.Handler.SubmitEvaluationHandler(ctx, userID, evaluation.EvaluationID)
	if err != nil {
		t.Fatalf("submit evaluation for %s failed: %v", userID, err)
	}
	return submitted
}

func TestActivationFollowsCommissionRoles(t *testing.T) {
	ctx := context.Background()

	withPresident := newFixture(t, map[string]string{
		"president": "president",
		"judge":     "member",
		"trainee":   "trainee",
	})
	for _, userID := range []string{"main", "judge", "trainee"} {
		_, err := withPresident.module.Handler.ActivateSessionHandler(ctx, userID, httptransport.ActivateSessionRequest{
			SampleID:     withPresident.sampleID,
			CommissionID: withPresident.commissionID,
		})
		if !errors.Is(err, domainerrors.ErrAuthorization) {
			t.Fatalf("%s: expected authorization error, got %v", userID, err)
		}
	}
	session := withPresident.activate(t, "president")
	if session.Status != "active" || session.ActivatedBy != "president" {
		t.Fatalf("unexpected session %+v", session)
	}

	withoutPresident := newFixture(t, map[string]string{"judge": "member"})
	if _, err := withoutPresident.module.Handler.ActivateSessionHandler(ctx, "judge", httptransport.ActivateSessionRequest{
		SampleID:     withoutPresident.sampleID,
		CommissionID: withoutPresident.commissionID,
	}); !errors.Is(err, domainerrors.ErrActivationNotAllowed) {
		t.Fatalf("expected ErrActivationNotAllowed, got %v", err)
	}
	if _, err := withoutPresident.module.Handler.ActivateSessionHandler(ctx, "stranger", httptransport.ActivateSessionRequest{
		SampleID:     withoutPresident.sampleID,
		CommissionID: withoutPresident.commissionID,
	}); !errors.Is(err, domainerrors.ErrNotCommissionMember) {
		t.Fatalf("expected ErrNotCommissionMember, got %v", err)
	}
	withoutPresident.activate(t, "main")

	sample, err := withoutPresident.module.Handler.GetSampleHandler(ctx, withoutPresident.sampleID)
	if err != nil {
		t.Fatalf("get sample failed: %v", err)
	}
	if sample.ActiveSessionID == "" {
		t.Fatalf("expected sample to reference its active session")
	}
}

func TestActivationRejectsSecondActiveSessionAndWrongEvent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	if _, err := f.module.Handler.ActivateSessionHandler(ctx, "main", httptransport.ActivateSessionRequest{
		EventID:      "event-2",
		SampleID:     f.sampleID,
		CommissionID: f.commissionID,
	}); !errors.Is(err, domainerrors.ErrSampleEventMismatch) {
		t.Fatalf("expected ErrSampleEventMismatch, got %v", err)
	}

	f.activate(t, "main")
	_, err := f.module.Handler.ActivateSessionHandler(ctx, "main", httptransport.ActivateSessionRequest{
		EventID:      "event-1",
		SampleID:     f.sampleID,
		CommissionID: f.commissionID,
	})
	if !errors.Is(err, domainerrors.ErrSessionAlreadyActive) || !errors.Is(err, domainerrors.ErrConflict) {
		t.Fatalf("expected session already active conflict, got %v", err)
	}
}

func TestActivationRequiresSubmittedSample(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	draft, err := f.module.Handler.RegisterSampleHandler(ctx, httptransport.RegisterSampleRequest{
		EventID:     "event-1",
		CategoryID:  "cheese",
		ApplicantID: "dairy-co",
	})
	if err != nil {
		t.Fatalf("register sample failed: %v", err)
	}
	if draft.SampleNumber != 2 {
		t.Fatalf("expected second sample number in event, got %d", draft.SampleNumber)
	}
	_, err = f.module.Handler.ActivateSessionHandler(ctx, "main", httptransport.ActivateSessionRequest{
		SampleID:     draft.SampleID,
		CommissionID: f.commissionID,
	})
	if !errors.Is(err, domainerrors.ErrSampleNotSubmitted) {
		t.Fatalf("expected ErrSampleNotSubmitted, got %v", err)
	}
}

func TestEvaluationLifecycleRules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]string{"judge": "member", "trainee": "trainee"})
	session := f.activate(t, "main")

	score := 82.0
	evaluation, err := f.module.Handler.CreateEvaluationHandler(ctx, session.SessionID, httptransport.CreateEvaluationRequest{
		SampleID:           f.sampleID,
		CommissionMemberID: f.members["judge"],
		Score:              &score,
	})
	if err != nil {
		t.Fatalf("create evaluation failed: %v", err)
	}
	if _, err := f.module.Handler.CreateEvaluationHandler(ctx, session.SessionID, httptransport.CreateEvaluationRequest{
		CommissionMemberID: f.members["judge"],
		Score:              &score,
	}); !errors.Is(err, domainerrors.ErrDuplicateEvaluation) {
		t.Fatalf("expected ErrDuplicateEvaluation, got %v", err)
	}
	if _, err := f.module.Handler.CreateEvaluationHandler(ctx, session.SessionID, httptransport.CreateEvaluationRequest{
		CommissionMemberID: "not-a-member",
		Score:              &score,
	}); !errors.Is(err, domainerrors.ErrMemberNotInCommission) {
		t.Fatalf("expected ErrMemberNotInCommission, got %v", err)
	}
	if _, err := f.module.Handler.CreateEvaluationHandler(ctx, session.SessionID, httptransport.CreateEvaluationRequest{
		SampleID:           "other-sample",
		CommissionMemberID: f.members["main"],
		Score:              &score,
	}); !errors.Is(err, domainerrors.ErrSampleSessionMismatch) {
		t.Fatalf("expected ErrSampleSessionMismatch, got %v", err)
	}

	trainee, err := f.module.Handler.CreateEvaluationHandler(ctx, session.SessionID, httptransport.CreateEvaluationRequest{
		CommissionMemberID: f.members["trainee"],
		Score:              &score,
	})
	if err != nil {
		t.Fatalf("trainee evaluation failed: %v", err)
	}
	if !trainee.IsExcludedFromCalculation {
		t.Fatalf("expected trainee evaluation to be excluded from calculation")
	}

	updatedScore := 85.5
	updated, err := f.module.Handler.UpdateEvaluationHandler(ctx, evaluation.EvaluationID, httptransport.UpdateEvaluationRequest{
		Score:         &updatedScore,
		ExcludeVote:   true,
		ExclusionNote: "cloudy brine",
	})
	if err != nil {
		t.Fatalf("update evaluation failed: %v", err)
	}
	if updated.Score == nil || *updated.Score != 85.5 || !updated.ExcludeVote {
		t.Fatalf("unexpected updated evaluation %+v", updated)
	}

	if _, err := f.module.Handler.SubmitEvaluationHandler(ctx, "judge", evaluation.EvaluationID); err != nil {
		t.Fatalf("submit evaluation failed: %v", err)
	}
	if _, err := f.module.Handler.SubmitEvaluationHandler(ctx, "judge", evaluation.EvaluationID); !errors.Is(err, domainerrors.ErrEvaluationSubmitted) {
		t.Fatalf("expected ErrEvaluationSubmitted on resubmit, got %v", err)
	}
	if _, err := f.module.Handler.UpdateEvaluationHandler(ctx, evaluation.EvaluationID, httptransport.UpdateEvaluationRequest{
		Score: &score,
	}); !errors.Is(err, domainerrors.ErrInvalidState) {
		t.Fatalf("expected invalid state on update after submit, got %v", err)
	}

	listed, err := f.module.Handler.ListSessionEvaluationsHandler(ctx, session.SessionID)
	if err != nil {
		t.Fatalf("list evaluations failed: %v", err)
	}
	if len(listed.Items) != 2 {
		t.Fatalf("expected 2 evaluations, got %d", len(listed.Items))
	}
}

func TestEvaluationRejectedOnCompletedSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]string{"judge": "member"})
	session := f.activate(t, "main")
	if _, _, err := f.module.Store.CompleteSession(ctx, session.SessionID, "workflow", time.Now().UTC()); err != nil {
		t.Fatalf("complete session failed: %v", err)
	}

	score := 70.0
	_, err := f.module.Handler.CreateEvaluationHandler(ctx, session.SessionID, httptransport.CreateEvaluationRequest{
		CommissionMemberID: f.members["judge"],
		Score:              &score,
	})
	if !errors.Is(err, domainerrors.ErrSessionNotActive) {
		t.Fatalf("expected ErrSessionNotActive, got %v", err)
	}
}

func TestExclusionMajorityExcludesSample(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]string{"judge-1": "member", "judge-2": "member", "trainee": "trainee"})
	session := f.activate(t, "main")

	// Trainee votes never count, even when they vote to exclude.
	f.vote(t, session.SessionID, "trainee", 10, true, "trainee dislikes it")
	first := f.vote(t, session.SessionID, "judge-1", 20, true, "mould on rind")
	if first.SampleExcluded || first.TotalVotes != 1 || first.ExcludeVotes != 1 {
		t.Fatalf("a single vote is a majority of one counted vote, got %+v", first)
	}
	sample, err := f.module.Handler.GetSampleHandler(ctx, f.sampleID)
	if err != nil {
		t.Fatalf("get sample failed: %v", err)
	}
	if sample.Status != "excluded" || sample.ExclusionReason != "mould on rind" {
		t.Fatalf("expected sample excluded after the first counted vote, got %+v", sample)
	}
}

func TestExclusionTwoOfThree(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]string{"judge-1": "member", "judge-2": "member"})
	session := f.activate(t, "main")

	f.vote(t, session.SessionID, "main", 80, false, "")
	second := f.vote(t, session.SessionID, "judge-1", 20, true, "mould on rind")
	if second.SampleExcluded {
		t.Fatalf("a tie must not exclude, got %+v", second)
	}
	third := f.vote(t, session.SessionID, "judge-2", 25, true, "off smell")
	if !third.SampleExcluded || third.SampleStatus != "excluded" || third.TotalVotes != 3 || third.ExcludeVotes != 2 {
		t.Fatalf("expected 2 of 3 to exclude, got %+v", third)
	}

	sample, err := f.module.Handler.GetSampleHandler(ctx, f.sampleID)
	if err != nil {
		t.Fatalf("get sample failed: %v", err)
	}
	if sample.ExclusionReason != "mould on rind; off smell" || sample.ExcludedAt == nil {
		t.Fatalf("unexpected exclusion record %+v", sample)
	}

	var statusChanges int
	for _, event := range f.module.Store.OutboxEvents() {
		if event.EventType == "sample.status_changed" {
			statusChanges++
		}
	}
	// draft -> submitted, then submitted -> excluded.
	if statusChanges != 2 {
		t.Fatalf("expected 2 status change events, got %d", statusChanges)
	}
}

func TestExclusionOneOfThreeKeepsSampleSubmitted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]string{"judge-1": "member", "judge-2": "member"})
	session := f.activate(t, "main")

	f.vote(t, session.SessionID, "main", 80, false, "")
	f.vote(t, session.SessionID, "judge-1", 78, false, "")
	last := f.vote(t, session.SessionID, "judge-2", 20, true, "off smell")
	if last.SampleExcluded || last.SampleStatus != "submitted" {
		t.Fatalf("expected no exclusion for 1 of 3, got %+v", last)
	}
	sample, err := f.module.Handler.GetSampleHandler(ctx, f.sampleID)
	if err != nil {
		t.Fatalf("get sample failed: %v", err)
	}
	if sample.Status != "submitted" {
		t.Fatalf("expected submitted sample, got %s", sample.Status)
	}
}

// seedScoredSession stores a submitted sample with one completed session
// holding the given scores.
func seedScoredSession(module evaluationengine.Module, eventID string, sampleID string, completedAt time.Time, scores ...float64) {
	module.Store.SetSample(entities.ProductSample{
		SampleID:    sampleID,
		EventID:     eventID,
		CategoryID:  "cheese",
		ApplicantID: "dairy-co",
		Status:      entities.SampleStatusSubmitted,
		CreatedAt:   completedAt.Add(-time.Hour),
		UpdatedAt:   completedAt.Add(-time.Hour),
	})
	sessionID := sampleID + "-session"
	module.Store.SetSession(entities.EvaluationSession{
		SessionID:    sessionID,
		EventID:      eventID,
		SampleID:     sampleID,
		CommissionID: "commission-1",
		Status:       entities.SessionStatusCompleted,
		ActivatedBy:  "main",
		ActivatedAt:  completedAt.Add(-time.Hour),
		CompletedBy:  "workflow",
		CompletedAt:  &completedAt,
	})
	for i, score := range scores {
		value := score
		module.Store.SetEvaluation(entities.ExpertEvaluation{
			EvaluationID:       fmt.Sprintf("%s-eval-%d", sampleID, i),
			SessionID:          sessionID,
			SampleID:           sampleID,
			CommissionMemberID: fmt.Sprintf("member-%d", i),
			FinalScore:         &value,
			SubmittedAt:        &completedAt,
			CreatedAt:          completedAt.Add(-30 * time.Minute),
		})
	}
}

func TestCalculateScoreTrimsAndIsRepeatable(t *testing.T) {
	ctx := context.Background()
	module := evaluationengine.NewInMemoryModule(nil)
	completedAt := time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)
	seedScoredSession(module, "event-1", "sample-trim", completedAt, 70, 75, 80, 85, 200)
	seedScoredSession(module, "event-1", "sample-mean", completedAt, 70, 75, 80, 85)

	first, err := module.Handler.CalculateScoreHandler(ctx, "sample-trim")
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	if first.Score == nil || *first.Score != 80.00 || first.EvaluationCount != 5 || !first.Trimmed {
		t.Fatalf("unexpected trimmed score %+v", first)
	}
	second, err := module.Handler.CalculateScoreHandler(ctx, "sample-trim")
	if err != nil {
		t.Fatalf("second calculate failed: %v", err)
	}
	if second.Score == nil || *second.Score != *first.Score {
		t.Fatalf("expected repeatable score, got %+v", second)
	}

	mean, err := module.Handler.CalculateScoreHandler(ctx, "sample-mean")
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	if mean.Score == nil || *mean.Score != 77.50 || mean.Trimmed {
		t.Fatalf("unexpected untrimmed score %+v", mean)
	}

	sample, err := module.Handler.GetSampleHandler(ctx, "sample-trim")
	if err != nil {
		t.Fatalf("get sample failed: %v", err)
	}
	if sample.Status != "evaluated" || sample.FinalScore == nil || *sample.FinalScore != 80 || sample.EvaluatedAt == nil {
		t.Fatalf("expected evaluated sample, got %+v", sample)
	}
	policy, err := module.Handler.GetPolicyHandler(ctx, "event-1")
	if err != nil {
		t.Fatalf("get policy failed: %v", err)
	}
	if policy.TrimHighLowFromCount != 5 || policy.TrimCountHigh != 1 || policy.TrimCountLow != 1 || policy.RoundingDecimals != 2 {
		t.Fatalf("expected persisted default policy, got %+v", policy)
	}
}

func TestCalculateScoreUsesLatestCompletedSession(t *testing.T) {
	ctx := context.Background()
	module := evaluationengine.NewInMemoryModule(nil)
	earlier := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	seedScoredSession(module, "event-1", "sample-1", earlier, 50, 60)

	later := earlier.Add(2 * time.Hour)
	module.Store.SetSession(entities.EvaluationSession{
		SessionID:    "sample-1-rerun",
		EventID:      "event-1",
		SampleID:     "sample-1",
		CommissionID: "commission-1",
		Status:       entities.SessionStatusCompleted,
		ActivatedAt:  later.Add(-time.Hour),
		CompletedAt:  &later,
	})
	score := 90.0
	module.Store.SetEvaluation(entities.ExpertEvaluation{
		EvaluationID:       "rerun-eval",
		SessionID:          "sample-1-rerun",
		SampleID:           "sample-1",
		CommissionMemberID: "member-9",
		FinalScore:         &score,
		SubmittedAt:        &later,
	})

	result, err := module.Handler.CalculateScoreHandler(ctx, "sample-1")
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	if result.SessionID != "sample-1-rerun" || result.Score == nil || *result.Score != 90 {
		t.Fatalf("expected latest session score, got %+v", result)
	}
}

func TestCalculateScoreWithoutCompletedSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.activate(t, "main")

	result, err := f.module.Handler.CalculateScoreHandler(ctx, f.sampleID)
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	if result.Score != nil || result.EvaluationCount != 0 {
		t.Fatalf("expected null score, got %+v", result)
	}
	sample, err := f.module.Handler.GetSampleHandler(ctx, f.sampleID)
	if err != nil {
		t.Fatalf("get sample failed: %v", err)
	}
	if sample.Status != "submitted" || sample.FinalScore != nil {
		t.Fatalf("expected untouched sample, got %+v", sample)
	}
}

func TestCalculateScoreFailsWhenTrimEmptiesRemainder(t *testing.T) {
	ctx := context.Background()
	module := evaluationengine.NewInMemoryModule(nil)
	seedScoredSession(module, "event-legacy", "sample-1", time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), 70, 80)
	module.Store.SetPolicy(entities.ScoringPolicy{
		EventID:              "event-legacy",
		TrimHighLowFromCount: 2,
		TrimCountHigh:        1,
		TrimCountLow:         1,
		RoundingDecimals:     2,
	})

	_, err := module.Handler.CalculateScoreHandler(ctx, "sample-1")
	if !errors.Is(err, domainerrors.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	sample, err := module.Handler.GetSampleHandler(ctx, "sample-1")
	if err != nil {
		t.Fatalf("get sample failed: %v", err)
	}
	if sample.FinalScore != nil || sample.Status != "submitted" {
		t.Fatalf("expected untouched sample, got %+v", sample)
	}
}

func TestConfigurePolicy(t *testing.T) {
	ctx := context.Background()
	module := evaluationengine.NewInMemoryModule(nil)

	policy, err := module.Handler.ConfigurePolicyHandler(ctx, "event-1", httptransport.ConfigurePolicyRequest{
		TrimHighLowFromCount: 7,
		TrimCountHigh:        2,
		TrimCountLow:         2,
		RoundingDecimals:     1,
	})
	if err != nil {
		t.Fatalf("configure policy failed: %v", err)
	}
	if policy.TrimHighLowFromCount != 7 || policy.RoundingDecimals != 1 {
		t.Fatalf("unexpected policy %+v", policy)
	}
	if _, err := module.Handler.ConfigurePolicyHandler(ctx, "event-1", httptransport.ConfigurePolicyRequest{
		TrimHighLowFromCount: 3,
		TrimCountHigh:        2,
		TrimCountLow:         1,
		RoundingDecimals:     2,
	}); !errors.Is(err, domainerrors.ErrInvalidScoringPolicy) {
		t.Fatalf("expected ErrInvalidScoringPolicy, got %v", err)
	}
	stored, err := module.Handler.GetPolicyHandler(ctx, "event-1")
	if err != nil {
		t.Fatalf("get policy failed: %v", err)
	}
	if stored.TrimHighLowFromCount != 7 {
		t.Fatalf("rejected policy must not be stored, got %+v", stored)
	}
}

func TestGenerateProtocol(t *testing.T) {
	ctx := context.Background()
	module := evaluationengine.NewInMemoryModule(nil)
	seedScoredSession(module, "event-1", "sample-1", time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), 80, 90)

	if _, err := module.Handler.GenerateProtocolHandler(ctx, "main", "", httptransport.GenerateProtocolRequest{
		SampleID: "sample-1",
	}); !errors.Is(err, domainerrors.ErrSampleNotEvaluated) {
		t.Fatalf("expected ErrSampleNotEvaluated before scoring, got %v", err)
	}
	if _, err := module.Handler.CalculateScoreHandler(ctx, "sample-1"); err != nil {
		t.Fatalf("calculate failed: %v", err)
	}

	first, err := module.Handler.GenerateProtocolHandler(ctx, "main", "idem-protocol-1", httptransport.GenerateProtocolRequest{
		SampleID: "sample-1",
	})
	if err != nil {
		t.Fatalf("generate protocol failed: %v", err)
	}
	if first.ProtocolNumber != 1 || first.Version != 1 || first.Status != "generated" || first.FinalScore != 85 || first.Replayed {
		t.Fatalf("unexpected protocol %+v", first)
	}
	if first.ApplicantID != "dairy-co" || first.EvaluationCount != 2 || first.IssuedBy != "main" {
		t.Fatalf("protocol did not capture the sample: %+v", first)
	}

	replay, err := module.Handler.GenerateProtocolHandler(ctx, "main", "idem-protocol-1", httptransport.GenerateProtocolRequest{
		SampleID: "sample-1",
	})
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if !replay.Replayed || replay.ProtocolID != first.ProtocolID {
		t.Fatalf("expected replay of %s, got %+v", first.ProtocolID, replay)
	}
	if _, err := module.Handler.GenerateProtocolHandler(ctx, "president", "idem-protocol-1", httptransport.GenerateProtocolRequest{
		SampleID: "sample-1",
	}); !errors.Is(err, domainerrors.ErrIdempotencyConflict) {
		t.Fatalf("expected ErrIdempotencyConflict, got %v", err)
	}

	second, err := module.Handler.GenerateProtocolHandler(ctx, "main", "", httptransport.GenerateProtocolRequest{
		SampleID: "sample-1",
	})
	if err != nil {
		t.Fatalf("second protocol failed: %v", err)
	}
	if second.ProtocolNumber != 2 {
		t.Fatalf("expected protocol number 2, got %d", second.ProtocolNumber)
	}
	listed, err := module.Handler.ListProtocolsHandler(ctx, "sample-1")
	if err != nil {
		t.Fatalf("list protocols failed: %v", err)
	}
	if len(listed.Items) != 2 || listed.Items[0].ProtocolNumber != 1 || listed.Items[1].ProtocolNumber != 2 {
		t.Fatalf("unexpected protocol list %+v", listed.Items)
	}
}

func TestConcurrentProtocolNumbersAreUniquePerEvent(t *testing.T) {
	ctx := context.Background()
	module := evaluationengine.NewInMemoryModule(nil)
	const samples = 24
	completedAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < samples; i++ {
		sampleID := fmt.Sprintf("sample-%02d", i)
		seedScoredSession(module, "event-1", sampleID, completedAt, 70+float64(i%10), 80)
		if _, err := module.Handler.CalculateScoreHandler(ctx, sampleID); err != nil {
			t.Fatalf("calculate %s failed: %v", sampleID, err)
		}
	}
	seedScoredSession(module, "event-2", "other-event-sample", completedAt, 90)
	if _, err := module.Handler.CalculateScoreHandler(ctx, "other-event-sample"); err != nil {
		t.Fatalf("calculate other event failed: %v", err)
	}

	type outcome struct {
		number int
		err    error
	}
	results := make(chan outcome, samples)
	start := make(chan struct{})
	for i := 0; i < samples; i++ {
		sampleID := fmt.Sprintf("sample-%02d", i)
		go func() {
			<-start
			protocol, err := module.Handler.GenerateProtocolHandler(ctx, "main", "", httptransport.GenerateProtocolRequest{
				SampleID: sampleID,
			})
			results <- outcome{number: protocol.ProtocolNumber, err: err}
		}()
	}
	close(start)

	seen := make(map[int]bool, samples)
	for i := 0; i < samples; i++ {
		result := <-results
		if result.err != nil {
			t.Fatalf("concurrent generate failed: %v", result.err)
		}
		if seen[result.number] {
			t.Fatalf("protocol number %d issued twice", result.number)
		}
		seen[result.number] = true
	}
	for number := 1; number <= samples; number++ {
		if !seen[number] {
			t.Fatalf("protocol number %d missing from %v", number, seen)
		}
	}

	other, err := module.Handler.GenerateProtocolHandler(ctx, "main", "", httptransport.GenerateProtocolRequest{
		SampleID: "other-event-sample",
	})
	if err != nil {
		t.Fatalf("generate for other event failed: %v", err)
	}
	if other.ProtocolNumber != 1 {
		t.Fatalf("expected numbering to be scoped per event, got %d", other.ProtocolNumber)
	}
}

func TestCommissionRosterRules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]string{"president": "president", "judge": "member"})

	if _, err := f.module.Handler.AddMemberHandler(ctx, f.commissionID, httptransport.AddMemberRequest{
		UserID: "other-president",
		Role:   "president",
	}); !errors.Is(err, domainerrors.ErrRoleAlreadyAssigned) {
		t.Fatalf("expected ErrRoleAlreadyAssigned, got %v", err)
	}
	if _, err := f.module.Handler.AddMemberHandler(ctx, f.commissionID, httptransport.AddMemberRequest{
		UserID: "judge",
		Role:   "trainee",
	}); !errors.Is(err, domainerrors.ErrDuplicateMember) {
		t.Fatalf("expected ErrDuplicateMember, got %v", err)
	}

	if _, err := f.module.Handler.SetMemberExcludedHandler(ctx, f.commissionID, f.members["president"], httptransport.SetMemberExcludedRequest{
		Excluded: true,
	}); err != nil {
		t.Fatalf("exclude president failed: %v", err)
	}
	roster, err := f.module.Handler.RosterHandler(ctx, f.commissionID)
	if err != nil {
		t.Fatalf("roster failed: %v", err)
	}
	if roster.ActivatingRole != "main_member" || len(roster.Members) != 3 {
		t.Fatalf("unexpected roster %+v", roster)
	}
	f.activate(t, "main")
}
