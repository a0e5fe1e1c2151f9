package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"degusta/contexts/competition-judging/evaluation-engine/domain/entities"
	domainerrors "degusta/contexts/competition-judging/evaluation-engine/domain/errors"
	"degusta/contexts/competition-judging/evaluation-engine/ports"
)

func TestConcurrentActivationAdmitsOneSession(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	store.SetSample(entities.ProductSample{SampleID: "sample-1", EventID: "event-1", Status: entities.SampleStatusSubmitted})

	const attempts = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := store.ActivateSession(ctx, entities.EvaluationSession{
				SessionID:   fmt.Sprintf("session-%d", i),
				SampleID:    "sample-1",
				Status:      entities.SessionStatusActive,
				ActivatedAt: time.Now().UTC(),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, domainerrors.ErrSessionAlreadyActive):
				conflicts++
			default:
				t.Errorf("unexpected activation error: %v", err)
			}
		}(i)
	}
	wg.Wait()
	if succeeded != 1 || conflicts != attempts-1 {
		t.Fatalf("expected exactly one activation, got %d ok / %d conflicts", succeeded, conflicts)
	}
}

func TestSampleNumbersAreSequentialPerEvent(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	var wg sync.WaitGroup
	numbers := make(chan int, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sample, err := store.RegisterSample(ctx, entities.ProductSample{
				SampleID: fmt.Sprintf("sample-%d", i),
				EventID:  "event-1",
				Status:   entities.SampleStatusDraft,
			})
			if err != nil {
				t.Errorf("register sample: %v", err)
				return
			}
			numbers <- sample.SampleNumber
		}(i)
	}
	wg.Wait()
	close(numbers)

	seen := make(map[int]bool)
	for number := range numbers {
		if seen[number] {
			t.Fatalf("sample number %d assigned twice", number)
		}
		seen[number] = true
	}
	for number := 1; number <= 20; number++ {
		if !seen[number] {
			t.Fatalf("sample number %d missing", number)
		}
	}

	other, err := store.RegisterSample(ctx, entities.ProductSample{SampleID: "other", EventID: "event-2"})
	if err != nil {
		t.Fatalf("register other event sample: %v", err)
	}
	if other.SampleNumber != 1 {
		t.Fatalf("expected per-event numbering, got %d", other.SampleNumber)
	}
}

func TestIssueProtocolRequiresScoredSample(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	store.SetSample(entities.ProductSample{SampleID: "sample-1", EventID: "event-1", Status: entities.SampleStatusSubmitted})

	_, err := store.IssueProtocol(ctx, entities.Protocol{ProtocolID: "p-1", EventID: "event-1", SampleID: "sample-1", Version: 1})
	if !errors.Is(err, domainerrors.ErrSampleNotEvaluated) {
		t.Fatalf("expected ErrSampleNotEvaluated, got %v", err)
	}

	if _, _, err := store.ApplySampleScore(ctx, "sample-1", 81, time.Now().UTC()); err != nil {
		t.Fatalf("apply score: %v", err)
	}
	issued, err := store.IssueProtocol(ctx, entities.Protocol{ProtocolID: "p-1", EventID: "event-1", SampleID: "sample-1", Version: 1})
	if err != nil {
		t.Fatalf("issue protocol: %v", err)
	}
	if issued.ProtocolNumber != 1 {
		t.Fatalf("expected protocol number 1, got %d", issued.ProtocolNumber)
	}
}

func TestIdempotencyPutDetectsConflicts(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	now := time.Now().UTC()
	record := ports.IdempotencyRecord{Key: "idem-1", RequestHash: "hash-a", ResourceID: "p-1", ExpiresAt: now.Add(time.Hour)}
	if err := store.Put(ctx, record); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Put(ctx, record); err != nil {
		t.Fatalf("identical put should be a no-op: %v", err)
	}
	record.RequestHash = "hash-b"
	if err := store.Put(ctx, record); !errors.Is(err, domainerrors.ErrIdempotencyConflict) {
		t.Fatalf("expected ErrIdempotencyConflict, got %v", err)
	}
	if _, found, err := store.Get(ctx, "idem-1", now.Add(2*time.Hour)); err != nil || found {
		t.Fatalf("expected expired record to be gone, found=%v err=%v", found, err)
	}
}

func TestSubmitEvaluationTalliesActiveSession(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store.SetSample(entities.ProductSample{SampleID: "sample-1", EventID: "event-1", Status: entities.SampleStatusSubmitted, ActiveSessionID: "session-1"})
	store.SetSession(entities.EvaluationSession{SessionID: "session-1", SampleID: "sample-1", Status: entities.SessionStatusActive})
	store.SetEvaluation(entities.ExpertEvaluation{EvaluationID: "e-1", SessionID: "session-1", SampleID: "sample-1", ExcludeVote: true, ExclusionNote: "sour"})

	outcome, err := store.SubmitEvaluation(ctx, "e-1", now)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !outcome.SampleExcluded || outcome.Sample.Status != entities.SampleStatusExcluded || outcome.Sample.ExclusionReason != "sour" {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if _, err := store.SubmitEvaluation(ctx, "e-1", now); !errors.Is(err, domainerrors.ErrEvaluationSubmitted) {
		t.Fatalf("expected ErrEvaluationSubmitted, got %v", err)
	}
}
