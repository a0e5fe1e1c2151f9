package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"degusta/contexts/competition-judging/evaluation-engine/domain/entities"
	domainerrors "degusta/contexts/competition-judging/evaluation-engine/domain/errors"
	"degusta/contexts/competition-judging/evaluation-engine/ports"

	"github.com/google/uuid"
)

const (
	sequenceSampleNumber   = "sample_number"
	sequenceProtocolNumber = "protocol_number"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	sequence  int
	published bool
}

type dedupRecord struct {
	payloadHash string
	expiresAt   time.Time
}

// Store keeps the whole evaluation engine state behind one mutex, so every
// multi-row write below is atomic with respect to the others.
type Store struct {
	mu sync.RWMutex

	samples     map[string]entities.ProductSample
	commissions map[string]entities.Commission
	members     map[string]entities.CommissionMember
	sessions    map[string]entities.EvaluationSession
	evaluations map[string]entities.ExpertEvaluation
	policies    map[string]entities.ScoringPolicy
	protocols   map[string]entities.Protocol
	sequences   map[string]int

	idempotency map[string]ports.IdempotencyRecord
	outbox      map[string]outboxRecord
	outboxSeq   int
	eventDedup  map[string]dedupRecord
}

func NewStore() *Store {
	return &Store{
		samples:     make(map[string]entities.ProductSample),
		commissions: make(map[string]entities.Commission),
		members:     make(map[string]entities.CommissionMember),
		sessions:    make(map[string]entities.EvaluationSession),
		evaluations: make(map[string]entities.ExpertEvaluation),
		policies:    make(map[string]entities.ScoringPolicy),
		protocols:   make(map[string]entities.Protocol),
		sequences:   make(map[string]int),
		idempotency: make(map[string]ports.IdempotencyRecord),
		outbox:      make(map[string]outboxRecord),
		eventDedup:  make(map[string]dedupRecord),
	}
}

// SetSample seeds a sample as-is, bypassing registration.
func (s *Store) SetSample(sample entities.ProductSample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples[strings.TrimSpace(sample.SampleID)] = sample
}

// SetSession seeds a session as-is, e.g. a completed one for scoring tests.
func (s *Store) SetSession(session entities.EvaluationSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[strings.TrimSpace(session.SessionID)] = session
}

func (s *Store) SetEvaluation(evaluation entities.ExpertEvaluation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evaluations[strings.TrimSpace(evaluation.EvaluationID)] = evaluation
}

func (s *Store) SetPolicy(policy entities.ScoringPolicy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies[strings.TrimSpace(policy.EventID)] = policy
}

func (s *Store) RegisterSample(_ context.Context, sample entities.ProductSample) (entities.ProductSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sample.SampleID = strings.TrimSpace(sample.SampleID)
	if _, exists := s.samples[sample.SampleID]; exists {
		return entities.ProductSample{}, domainerrors.ErrRepositoryInvariant.On("product_sample", sample.SampleID, "")
	}
	sample.SampleNumber = s.nextSequenceLocked(sample.EventID, sequenceSampleNumber)
	s.samples[sample.SampleID] = sample
	return sample, nil
}

func (s *Store) GetSample(_ context.Context, sampleID string) (entities.ProductSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sample, ok := s.samples[strings.TrimSpace(sampleID)]
	if !ok {
		return entities.ProductSample{}, domainerrors.ErrSampleNotFound.On("product_sample", sampleID, "")
	}
	return sample, nil
}

func (s *Store) SubmitSample(_ context.Context, sampleID string, submittedAt time.Time) (entities.ProductSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sample, ok := s.samples[strings.TrimSpace(sampleID)]
	if !ok {
		return entities.ProductSample{}, domainerrors.ErrSampleNotFound.On("product_sample", sampleID, "")
	}
	if sample.Status != entities.SampleStatusDraft {
		return entities.ProductSample{}, domainerrors.ErrSampleNotDraft.On("product_sample", sample.SampleID, string(sample.Status))
	}
	sample.Status = entities.SampleStatusSubmitted
	sample.UpdatedAt = submittedAt.UTC()
	s.samples[sample.SampleID] = sample
	return sample, nil
}

func (s *Store) ApplySampleScore(_ context.Context, sampleID string, score float64, evaluatedAt time.Time) (entities.ProductSample, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sample, ok := s.samples[strings.TrimSpace(sampleID)]
	if !ok {
		return entities.ProductSample{}, false, domainerrors.ErrSampleNotFound.On("product_sample", sampleID, "")
	}
	moved := sample.ApplyScore(score, evaluatedAt)
	s.samples[sample.SampleID] = sample
	return sample, moved, nil
}

func (s *Store) CreateCommission(_ context.Context, commission entities.Commission, mainMember entities.CommissionMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.commissions[commission.CommissionID]; exists {
		return domainerrors.ErrRepositoryInvariant.On("commission", commission.CommissionID, "")
	}
	s.commissions[commission.CommissionID] = commission
	s.members[mainMember.MemberID] = mainMember
	return nil
}

func (s *Store) GetRoster(_ context.Context, commissionID string) (entities.Roster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rosterLocked(strings.TrimSpace(commissionID))
}

func (s *Store) AddMember(_ context.Context, member entities.CommissionMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	roster, err := s.rosterLocked(member.CommissionID)
	if err != nil {
		return err
	}
	if err := roster.ValidateAddition(member.UserID, member.Role); err != nil {
		return err
	}
	s.members[member.MemberID] = member
	return nil
}

func (s *Store) SetMemberExcluded(
	_ context.Context,
	commissionID string,
	memberID string,
	excluded bool,
	updatedAt time.Time,
) (entities.CommissionMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	member, ok := s.members[strings.TrimSpace(memberID)]
	if !ok || member.CommissionID != strings.TrimSpace(commissionID) {
		return entities.CommissionMember{}, domainerrors.ErrMemberNotFound.On("commission_member", memberID, "")
	}
	member.Excluded = excluded
	member.UpdatedAt = updatedAt.UTC()
	s.members[member.MemberID] = member
	return member, nil
}

func (s *Store) ActivateSession(_ context.Context, session entities.EvaluationSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sample, ok := s.samples[session.SampleID]
	if !ok {
		return domainerrors.ErrSampleNotFound.On("product_sample", session.SampleID, "")
	}
	if sample.ActiveSessionID != "" || s.hasActiveSessionLocked(sample.SampleID) {
		return domainerrors.ErrSessionAlreadyActive.On("product_sample", sample.SampleID, string(sample.Status))
	}
	if sample.Status != entities.SampleStatusSubmitted {
		return domainerrors.ErrSampleNotSubmitted.On("product_sample", sample.SampleID, string(sample.Status))
	}
	s.sessions[session.SessionID] = session
	sample.ActiveSessionID = session.SessionID
	sample.UpdatedAt = session.ActivatedAt
	s.samples[sample.SampleID] = sample
	return nil
}

func (s *Store) GetSession(_ context.Context, sessionID string) (entities.EvaluationSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[strings.TrimSpace(sessionID)]
	if !ok {
		return entities.EvaluationSession{}, domainerrors.ErrSessionNotFound.On("evaluation_session", sessionID, "")
	}
	return session, nil
}

func (s *Store) GetActiveSession(_ context.Context, sampleID string) (entities.EvaluationSession, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sampleID = strings.TrimSpace(sampleID)
	for _, session := range s.sessions {
		if session.SampleID == sampleID && session.IsActive() {
			return session, true, nil
		}
	}
	return entities.EvaluationSession{}, false, nil
}

func (s *Store) GetLatestCompletedSession(_ context.Context, sampleID string) (entities.EvaluationSession, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sampleID = strings.TrimSpace(sampleID)
	items := make([]entities.EvaluationSession, 0)
	for _, session := range s.sessions {
		if session.SampleID == sampleID {
			items = append(items, session)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].SessionID < items[j].SessionID
	})
	session, found := entities.LatestCompleted(items)
	return session, found, nil
}

func (s *Store) CompleteSession(
	_ context.Context,
	sessionID string,
	completedBy string,
	completedAt time.Time,
) (entities.EvaluationSession, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[strings.TrimSpace(sessionID)]
	if !ok {
		return entities.EvaluationSession{}, false, domainerrors.ErrSessionNotFound.On("evaluation_session", sessionID, "")
	}
	if !session.IsActive() {
		return session, false, nil
	}
	at := completedAt.UTC()
	session.Status = entities.SessionStatusCompleted
	session.CompletedBy = completedBy
	session.CompletedAt = &at
	session.UpdatedAt = at
	s.sessions[session.SessionID] = session

	if sample, ok := s.samples[session.SampleID]; ok && sample.ActiveSessionID == session.SessionID {
		sample.ActiveSessionID = ""
		sample.UpdatedAt = at
		s.samples[sample.SampleID] = sample
	}
	return session, true, nil
}

func (s *Store) CreateEvaluation(_ context.Context, evaluation entities.ExpertEvaluation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.evaluations {
		if existing.SessionID == evaluation.SessionID && existing.CommissionMemberID == evaluation.CommissionMemberID {
			return domainerrors.ErrDuplicateEvaluation.On("expert_evaluation", existing.EvaluationID, "")
		}
	}
	session, ok := s.sessions[evaluation.SessionID]
	if !ok {
		return domainerrors.ErrSessionNotFound.On("evaluation_session", evaluation.SessionID, "")
	}
	if !session.IsActive() {
		return domainerrors.ErrSessionNotActive.On("evaluation_session", session.SessionID, string(session.Status))
	}
	s.evaluations[evaluation.EvaluationID] = evaluation
	return nil
}

func (s *Store) GetEvaluation(_ context.Context, evaluationID string) (entities.ExpertEvaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	evaluation, ok := s.evaluations[strings.TrimSpace(evaluationID)]
	if !ok {
		return entities.ExpertEvaluation{}, domainerrors.ErrEvaluationNotFound.On("expert_evaluation", evaluationID, "")
	}
	return evaluation, nil
}

func (s *Store) GetEvaluationByMember(
	_ context.Context,
	sessionID string,
	commissionMemberID string,
) (entities.ExpertEvaluation, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sessionID = strings.TrimSpace(sessionID)
	commissionMemberID = strings.TrimSpace(commissionMemberID)
	for _, evaluation := range s.evaluations {
		if evaluation.SessionID == sessionID && evaluation.CommissionMemberID == commissionMemberID {
			return evaluation, true, nil
		}
	}
	return entities.ExpertEvaluation{}, false, nil
}

func (s *Store) UpdateEvaluation(_ context.Context, evaluation entities.ExpertEvaluation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.evaluations[evaluation.EvaluationID]
	if !ok {
		return domainerrors.ErrEvaluationNotFound.On("expert_evaluation", evaluation.EvaluationID, "")
	}
	if err := s.requireEditableLocked(current); err != nil {
		return err
	}
	current.FinalScore = evaluation.FinalScore
	current.ExcludeVote = evaluation.ExcludeVote
	current.ExclusionNote = evaluation.ExclusionNote
	current.UpdatedAt = evaluation.UpdatedAt
	s.evaluations[current.EvaluationID] = current
	return nil
}

func (s *Store) SubmitEvaluation(_ context.Context, evaluationID string, submittedAt time.Time) (ports.SubmitOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	evaluation, ok := s.evaluations[strings.TrimSpace(evaluationID)]
	if !ok {
		return ports.SubmitOutcome{}, domainerrors.ErrEvaluationNotFound.On("expert_evaluation", evaluationID, "")
	}
	if err := s.requireEditableLocked(evaluation); err != nil {
		return ports.SubmitOutcome{}, err
	}
	at := submittedAt.UTC()
	evaluation.SubmittedAt = &at
	evaluation.UpdatedAt = at
	s.evaluations[evaluation.EvaluationID] = evaluation

	outcome := ports.SubmitOutcome{Evaluation: evaluation}
	sessionEvaluations := make([]entities.ExpertEvaluation, 0)
	for _, item := range s.evaluations {
		if item.SessionID == evaluation.SessionID {
			sessionEvaluations = append(sessionEvaluations, item)
		}
	}
	outcome.Tally = entities.TallyExclusion(sessionEvaluations)

	sample, ok := s.samples[evaluation.SampleID]
	if !ok {
		return ports.SubmitOutcome{}, domainerrors.ErrSampleNotFound.On("product_sample", evaluation.SampleID, "")
	}
	if outcome.Tally.Exclude && sample.Exclude(outcome.Tally.Reason, at) {
		s.samples[sample.SampleID] = sample
		outcome.SampleExcluded = true
	}
	outcome.Sample = sample
	return outcome, nil
}

func (s *Store) ListSessionEvaluations(_ context.Context, sessionID string) ([]entities.ExpertEvaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sessionID = strings.TrimSpace(sessionID)
	items := make([]entities.ExpertEvaluation, 0)
	for _, evaluation := range s.evaluations {
		if evaluation.SessionID == sessionID {
			items = append(items, evaluation)
		}
	}
	return items, nil
}

func (s *Store) GetOrCreatePolicy(_ context.Context, defaults entities.ScoringPolicy) (entities.ScoringPolicy, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.TrimSpace(defaults.EventID)
	if policy, ok := s.policies[key]; ok {
		return policy, false, nil
	}
	s.policies[key] = defaults
	return defaults, true, nil
}

func (s *Store) SavePolicy(_ context.Context, policy entities.ScoringPolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies[strings.TrimSpace(policy.EventID)] = policy
	return nil
}

func (s *Store) IssueProtocol(_ context.Context, protocol entities.Protocol) (entities.Protocol, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sample, ok := s.samples[protocol.SampleID]
	if !ok {
		return entities.Protocol{}, domainerrors.ErrSampleNotFound.On("product_sample", protocol.SampleID, "")
	}
	if sample.Status != entities.SampleStatusEvaluated || !sample.HasFinalScore() {
		return entities.Protocol{}, domainerrors.ErrSampleNotEvaluated.On("product_sample", sample.SampleID, string(sample.Status))
	}
	protocol.ProtocolNumber = s.nextSequenceLocked(protocol.EventID, sequenceProtocolNumber)
	s.protocols[protocol.ProtocolID] = protocol
	return protocol, nil
}

func (s *Store) GetProtocol(_ context.Context, protocolID string) (entities.Protocol, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	protocol, ok := s.protocols[strings.TrimSpace(protocolID)]
	if !ok {
		return entities.Protocol{}, domainerrors.ErrProtocolNotFound.On("protocol", protocolID, "")
	}
	return protocol, nil
}

func (s *Store) ListProtocolsBySample(_ context.Context, sampleID string) ([]entities.Protocol, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sampleID = strings.TrimSpace(sampleID)
	items := make([]entities.Protocol, 0)
	for _, protocol := range s.protocols {
		if protocol.SampleID == sampleID {
			items = append(items, protocol)
		}
	}
	return items, nil
}

func (s *Store) Get(_ context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key = strings.TrimSpace(key)
	record, exists := s.idempotency[key]
	if !exists {
		return ports.IdempotencyRecord{}, false, nil
	}
	if !record.ExpiresAt.After(now.UTC()) {
		delete(s.idempotency, key)
		return ports.IdempotencyRecord{}, false, nil
	}
	return record, true, nil
}

func (s *Store) Put(_ context.Context, record ports.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.TrimSpace(record.Key)
	if existing, exists := s.idempotency[key]; exists {
		if existing.RequestHash != record.RequestHash || existing.ResourceID != record.ResourceID {
			return domainerrors.ErrIdempotencyConflict
		}
		return nil
	}
	record.Key = key
	s.idempotency[key] = record
	return nil
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	if existing, ok := s.outbox[outboxID]; ok {
		if !bytes.Equal(existing.message.Payload, payload) {
			return domainerrors.ErrIdempotencyConflict
		}
		return nil
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	s.outboxSeq++
	s.outbox[outboxID] = outboxRecord{
		message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    strings.TrimSpace(envelope.EventType),
			PartitionKey: strings.TrimSpace(envelope.PartitionKey),
			Payload:      payload,
			CreatedAt:    createdAt,
		},
		sequence: s.outboxSeq,
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	pending := make([]outboxRecord, 0)
	for _, record := range s.outbox {
		if !record.published {
			pending = append(pending, record)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].sequence < pending[j].sequence
	})
	if len(pending) > limit {
		pending = pending[:limit]
	}
	items := make([]ports.OutboxMessage, 0, len(pending))
	for _, record := range pending {
		items = append(items, record.message)
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrNotFound
	}
	record.published = true
	s.outbox[strings.TrimSpace(outboxID)] = record
	return nil
}

// OutboxEvents returns every appended event in append order.
func (s *Store) OutboxEvents() []ports.EventEnvelope {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]outboxRecord, 0, len(s.outbox))
	for _, record := range s.outbox {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].sequence < records[j].sequence
	})
	events := make([]ports.EventEnvelope, 0, len(records))
	for _, record := range records {
		var event ports.EventEnvelope
		if err := json.Unmarshal(record.message.Payload, &event); err == nil {
			events = append(events, event)
		}
	}
	return events
}

func (s *Store) ReserveEvent(
	_ context.Context,
	eventID string,
	payloadHash string,
	expiresAt time.Time,
) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.TrimSpace(eventID)
	if existing, ok := s.eventDedup[key]; ok {
		if !existing.expiresAt.IsZero() && time.Now().UTC().After(existing.expiresAt.UTC()) {
			delete(s.eventDedup, key)
		} else {
			if existing.payloadHash != strings.TrimSpace(payloadHash) {
				return false, domainerrors.ErrConflict
			}
			return true, nil
		}
	}
	s.eventDedup[key] = dedupRecord{
		payloadHash: strings.TrimSpace(payloadHash),
		expiresAt:   expiresAt.UTC(),
	}
	return false, nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (s *Store) rosterLocked(commissionID string) (entities.Roster, error) {
	commission, ok := s.commissions[commissionID]
	if !ok {
		return entities.Roster{}, domainerrors.ErrCommissionNotFound.On("commission", commissionID, "")
	}
	members := make([]entities.CommissionMember, 0)
	for _, member := range s.members {
		if member.CommissionID == commissionID {
			members = append(members, member)
		}
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].CreatedAt.Equal(members[j].CreatedAt) {
			return members[i].MemberID < members[j].MemberID
		}
		return members[i].CreatedAt.Before(members[j].CreatedAt)
	})
	return entities.Roster{Commission: commission, Members: members}, nil
}

func (s *Store) hasActiveSessionLocked(sampleID string) bool {
	for _, session := range s.sessions {
		if session.SampleID == sampleID && session.IsActive() {
			return true
		}
	}
	return false
}

func (s *Store) requireEditableLocked(evaluation entities.ExpertEvaluation) error {
	if evaluation.IsSubmitted() {
		return domainerrors.ErrEvaluationSubmitted.On("expert_evaluation", evaluation.EvaluationID, "submitted")
	}
	session, ok := s.sessions[evaluation.SessionID]
	if !ok {
		return domainerrors.ErrSessionNotFound.On("evaluation_session", evaluation.SessionID, "")
	}
	if !session.IsActive() {
		return domainerrors.ErrSessionNotActive.On("evaluation_session", session.SessionID, string(session.Status))
	}
	return nil
}

func (s *Store) nextSequenceLocked(eventID string, kind string) int {
	key := strings.TrimSpace(eventID) + "/" + kind
	s.sequences[key]++
	return s.sequences[key]
}
