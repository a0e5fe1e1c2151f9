package workers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	application "degusta/contexts/competition-judging/evaluation-engine/application"
	domainerrors "degusta/contexts/competition-judging/evaluation-engine/domain/errors"
	"degusta/contexts/competition-judging/evaluation-engine/ports"
)

const (
	SessionCompletedTopic      = "evaluation_session.completed"
	defaultSessionCompletionCG = "evaluation-engine-session-completion-cg"
)

// SessionCompletionConsumer applies session completions decided by the
// judging workflow. Completed sessions are what scoring reads from.
type SessionCompletionConsumer struct {
	Subscriber    ports.EventSubscriber
	Dedup         ports.EventDedupStore
	Sessions      ports.SessionRepository
	Clock         ports.Clock
	ConsumerGroup string
	DedupTTL      time.Duration
	Logger        *slog.Logger
}

func (c SessionCompletionConsumer) Start(ctx context.Context) error {
	logger := application.ResolveLogger(c.Logger)
	group := strings.TrimSpace(c.ConsumerGroup)
	if group == "" {
		group = defaultSessionCompletionCG
	}
	if err := c.Subscriber.Subscribe(ctx, SessionCompletedTopic, group, c.handleSessionCompleted); err != nil {
		logger.Error("session completion consumer subscribe failed",
			"event", "evaluation_session_completion_subscribe_failed",
			"module", application.ModuleName,
			"layer", "worker",
			"topic", SessionCompletedTopic,
			"consumer_group", group,
			"error", err.Error(),
		)
		return err
	}
	logger.Info("session completion consumer subscribed",
		"event", "evaluation_session_completion_consumer_started",
		"module", application.ModuleName,
		"layer", "worker",
		"topic", SessionCompletedTopic,
		"consumer_group", group,
	)
	return nil
}

func (c SessionCompletionConsumer) handleSessionCompleted(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)
	if err := event.Validate(); err != nil {
		logger.Warn("session completion event rejected",
			"event", "evaluation_session_completion_rejected",
			"module", application.ModuleName,
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}
	alreadyProcessed, err := c.Dedup.ReserveEvent(ctx, event.EventID, hashPayload(event.Data), c.now().Add(c.dedupTTL()))
	if err != nil {
		logger.Error("session completion dedupe failed",
			"event", "evaluation_session_completion_dedupe_failed",
			"module", application.ModuleName,
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}
	if alreadyProcessed {
		logger.Debug("session completion replay skipped",
			"event", "evaluation_session_completion_replayed",
			"module", application.ModuleName,
			"layer", "worker",
			"event_id", event.EventID,
		)
		return nil
	}

	var payload struct {
		SessionID   string    `json:"session_id"`
		CompletedBy string    `json:"completed_by"`
		CompletedAt time.Time `json:"completed_at"`
	}
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		logger.Error("session completion payload decode failed",
			"event", "evaluation_session_completion_decode_failed",
			"module", application.ModuleName,
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}
	sessionID := strings.TrimSpace(payload.SessionID)
	if sessionID == "" {
		return domainerrors.ErrInvalidInput
	}
	completedAt := payload.CompletedAt.UTC()
	if payload.CompletedAt.IsZero() {
		completedAt = c.now()
	}

	session, changed, err := c.Sessions.CompleteSession(ctx, sessionID, strings.TrimSpace(payload.CompletedBy), completedAt)
	if err != nil {
		logger.Error("session completion apply failed",
			"event", "evaluation_session_completion_failed",
			"module", application.ModuleName,
			"layer", "worker",
			"event_id", event.EventID,
			"session_id", sessionID,
			"error", err.Error(),
		)
		return err
	}
	logger.Info("session completion consumed",
		"event", "evaluation_session_completion_consumed",
		"module", application.ModuleName,
		"layer", "worker",
		"event_id", event.EventID,
		"session_id", session.SessionID,
		"sample_id", session.SampleID,
		"changed", changed,
	)
	return nil
}

func (c SessionCompletionConsumer) now() time.Time {
	if c.Clock != nil {
		return c.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func (c SessionCompletionConsumer) dedupTTL() time.Duration {
	if c.DedupTTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return c.DedupTTL
}

func hashPayload(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
