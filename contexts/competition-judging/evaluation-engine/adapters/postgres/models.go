package postgresadapter

import (
	"encoding/json"
	"time"

	"degusta/contexts/competition-judging/evaluation-engine/domain/entities"

	"gorm.io/datatypes"
)

type productSampleModel struct {
	SampleID        string     `gorm:"column:sample_id;primaryKey"`
	EventID         string     `gorm:"column:event_id;not null;uniqueIndex:ux_product_samples_event_number,priority:1"`
	CategoryID      string     `gorm:"column:category_id;not null"`
	ApplicantID     string     `gorm:"column:applicant_id;not null"`
	SampleNumber    int        `gorm:"column:sample_number;not null;uniqueIndex:ux_product_samples_event_number,priority:2"`
	Status          string     `gorm:"column:status;not null"`
	FinalScore      *float64   `gorm:"column:final_score"`
	EvaluatedAt     *time.Time `gorm:"column:evaluated_at"`
	ExcludedAt      *time.Time `gorm:"column:excluded_at"`
	ExclusionReason string     `gorm:"column:exclusion_reason"`
	ActiveSessionID *string    `gorm:"column:active_session_id"`
	CreatedAt       time.Time  `gorm:"column:created_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at"`
}

func (productSampleModel) TableName() string {
	return "product_samples"
}

func sampleModelFromEntity(sample entities.ProductSample) productSampleModel {
	return productSampleModel{
		SampleID:        sample.SampleID,
		EventID:         sample.EventID,
		CategoryID:      sample.CategoryID,
		ApplicantID:     sample.ApplicantID,
		SampleNumber:    sample.SampleNumber,
		Status:          string(sample.Status),
		FinalScore:      sample.FinalScore,
		EvaluatedAt:     normalizeOptionalTime(sample.EvaluatedAt),
		ExcludedAt:      normalizeOptionalTime(sample.ExcludedAt),
		ExclusionReason: sample.ExclusionReason,
		ActiveSessionID: optionalString(sample.ActiveSessionID),
		CreatedAt:       sample.CreatedAt.UTC(),
		UpdatedAt:       sample.UpdatedAt.UTC(),
	}
}

func (m productSampleModel) toEntity() entities.ProductSample {
	return entities.ProductSample{
		SampleID:        m.SampleID,
		EventID:         m.EventID,
		CategoryID:      m.CategoryID,
		ApplicantID:     m.ApplicantID,
		SampleNumber:    m.SampleNumber,
		Status:          entities.SampleStatus(m.Status),
		FinalScore:      m.FinalScore,
		EvaluatedAt:     normalizeOptionalTime(m.EvaluatedAt),
		ExcludedAt:      normalizeOptionalTime(m.ExcludedAt),
		ExclusionReason: m.ExclusionReason,
		ActiveSessionID: derefString(m.ActiveSessionID),
		CreatedAt:       m.CreatedAt.UTC(),
		UpdatedAt:       m.UpdatedAt.UTC(),
	}
}

// sampleUpdates lists the mutable columns of a sample row.
func sampleUpdates(sample entities.ProductSample) map[string]any {
	row := sampleModelFromEntity(sample)
	return map[string]any{
		"status":            row.Status,
		"final_score":       row.FinalScore,
		"evaluated_at":      row.EvaluatedAt,
		"excluded_at":       row.ExcludedAt,
		"exclusion_reason":  row.ExclusionReason,
		"active_session_id": row.ActiveSessionID,
		"updated_at":        row.UpdatedAt,
	}
}

type commissionModel struct {
	CommissionID string    `gorm:"column:commission_id;primaryKey"`
	Name         string    `gorm:"column:name;not null"`
	Status       string    `gorm:"column:status;not null"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (commissionModel) TableName() string {
	return "commissions"
}

func (m commissionModel) toEntity() entities.Commission {
	return entities.Commission{
		CommissionID: m.CommissionID,
		Name:         m.Name,
		Status:       entities.CommissionStatus(m.Status),
		CreatedAt:    m.CreatedAt.UTC(),
		UpdatedAt:    m.UpdatedAt.UTC(),
	}
}

type commissionMemberModel struct {
	MemberID     string    `gorm:"column:member_id;primaryKey"`
	CommissionID string    `gorm:"column:commission_id;not null;uniqueIndex:ux_commission_members_user,priority:1"`
	UserID       string    `gorm:"column:user_id;not null;uniqueIndex:ux_commission_members_user,priority:2"`
	Role         string    `gorm:"column:role;not null"`
	Excluded     bool      `gorm:"column:excluded;not null;default:false"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (commissionMemberModel) TableName() string {
	return "commission_members"
}

func memberModelFromEntity(member entities.CommissionMember) commissionMemberModel {
	return commissionMemberModel{
		MemberID:     member.MemberID,
		CommissionID: member.CommissionID,
		UserID:       member.UserID,
		Role:         string(member.Role),
		Excluded:     member.Excluded,
		CreatedAt:    member.CreatedAt.UTC(),
		UpdatedAt:    member.UpdatedAt.UTC(),
	}
}

func (m commissionMemberModel) toEntity() entities.CommissionMember {
	return entities.CommissionMember{
		MemberID:     m.MemberID,
		CommissionID: m.CommissionID,
		UserID:       m.UserID,
		Role:         entities.Role(m.Role),
		Excluded:     m.Excluded,
		CreatedAt:    m.CreatedAt.UTC(),
		UpdatedAt:    m.UpdatedAt.UTC(),
	}
}

type evaluationSessionModel struct {
	SessionID    string     `gorm:"column:session_id;primaryKey"`
	EventID      string     `gorm:"column:event_id;not null"`
	SampleID     string     `gorm:"column:sample_id;not null;index"`
	CommissionID string     `gorm:"column:commission_id;not null"`
	Status       string     `gorm:"column:status;not null"`
	ActivatedBy  string     `gorm:"column:activated_by;not null"`
	ActivatedAt  time.Time  `gorm:"column:activated_at"`
	CompletedBy  string     `gorm:"column:completed_by"`
	CompletedAt  *time.Time `gorm:"column:completed_at"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at"`
}

func (evaluationSessionModel) TableName() string {
	return "evaluation_sessions"
}

func sessionModelFromEntity(session entities.EvaluationSession) evaluationSessionModel {
	return evaluationSessionModel{
		SessionID:    session.SessionID,
		EventID:      session.EventID,
		SampleID:     session.SampleID,
		CommissionID: session.CommissionID,
		Status:       string(session.Status),
		ActivatedBy:  session.ActivatedBy,
		ActivatedAt:  session.ActivatedAt.UTC(),
		CompletedBy:  session.CompletedBy,
		CompletedAt:  normalizeOptionalTime(session.CompletedAt),
		CreatedAt:    session.CreatedAt.UTC(),
		UpdatedAt:    session.UpdatedAt.UTC(),
	}
}

func (m evaluationSessionModel) toEntity() entities.EvaluationSession {
	return entities.EvaluationSession{
		SessionID:    m.SessionID,
		EventID:      m.EventID,
		SampleID:     m.SampleID,
		CommissionID: m.CommissionID,
		Status:       entities.SessionStatus(m.Status),
		ActivatedBy:  m.ActivatedBy,
		ActivatedAt:  m.ActivatedAt.UTC(),
		CompletedBy:  m.CompletedBy,
		CompletedAt:  normalizeOptionalTime(m.CompletedAt),
		CreatedAt:    m.CreatedAt.UTC(),
		UpdatedAt:    m.UpdatedAt.UTC(),
	}
}

type expertEvaluationModel struct {
	EvaluationID              string     `gorm:"column:evaluation_id;primaryKey"`
	SessionID                 string     `gorm:"column:session_id;not null;uniqueIndex:ux_expert_evaluations_member,priority:1"`
	SampleID                  string     `gorm:"column:sample_id;not null"`
	CommissionMemberID        string     `gorm:"column:commission_member_id;not null;uniqueIndex:ux_expert_evaluations_member,priority:2"`
	FinalScore                *float64   `gorm:"column:final_score"`
	ExcludeVote               bool       `gorm:"column:exclude_vote;not null;default:false"`
	ExclusionNote             string     `gorm:"column:exclusion_note"`
	SubmittedAt               *time.Time `gorm:"column:submitted_at"`
	IsExcludedFromCalculation bool       `gorm:"column:is_excluded_from_calculation;not null;default:false"`
	CreatedAt                 time.Time  `gorm:"column:created_at"`
	UpdatedAt                 time.Time  `gorm:"column:updated_at"`
}

func (expertEvaluationModel) TableName() string {
	return "expert_evaluations"
}

func evaluationModelFromEntity(evaluation entities.ExpertEvaluation) expertEvaluationModel {
	return expertEvaluationModel{
		EvaluationID:              evaluation.EvaluationID,
		SessionID:                 evaluation.SessionID,
		SampleID:                  evaluation.SampleID,
		CommissionMemberID:        evaluation.CommissionMemberID,
		FinalScore:                evaluation.FinalScore,
		ExcludeVote:               evaluation.ExcludeVote,
		ExclusionNote:             evaluation.ExclusionNote,
		SubmittedAt:               normalizeOptionalTime(evaluation.SubmittedAt),
		IsExcludedFromCalculation: evaluation.IsExcludedFromCalculation,
		CreatedAt:                 evaluation.CreatedAt.UTC(),
		UpdatedAt:                 evaluation.UpdatedAt.UTC(),
	}
}

func (m expertEvaluationModel) toEntity() entities.ExpertEvaluation {
	return entities.ExpertEvaluation{
		EvaluationID:              m.EvaluationID,
		SessionID:                 m.SessionID,
		SampleID:                  m.SampleID,
		CommissionMemberID:        m.CommissionMemberID,
		FinalScore:                m.FinalScore,
		ExcludeVote:               m.ExcludeVote,
		ExclusionNote:             m.ExclusionNote,
		SubmittedAt:               normalizeOptionalTime(m.SubmittedAt),
		IsExcludedFromCalculation: m.IsExcludedFromCalculation,
		CreatedAt:                 m.CreatedAt.UTC(),
		UpdatedAt:                 m.UpdatedAt.UTC(),
	}
}

func toEvaluationEntities(rows []expertEvaluationModel) []entities.ExpertEvaluation {
	items := make([]entities.ExpertEvaluation, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items
}

type scoringPolicyModel struct {
	EventID              string    `gorm:"column:event_id;primaryKey"`
	TrimHighLowFromCount int       `gorm:"column:trim_high_low_from_count;not null"`
	TrimCountHigh        int       `gorm:"column:trim_count_high;not null"`
	TrimCountLow         int       `gorm:"column:trim_count_low;not null"`
	RoundingDecimals     int       `gorm:"column:rounding_decimals;not null"`
	CreatedAt            time.Time `gorm:"column:created_at"`
	UpdatedAt            time.Time `gorm:"column:updated_at"`
}

func (scoringPolicyModel) TableName() string {
	return "scoring_policies"
}

func policyModelFromEntity(policy entities.ScoringPolicy) scoringPolicyModel {
	return scoringPolicyModel{
		EventID:              policy.EventID,
		TrimHighLowFromCount: policy.TrimHighLowFromCount,
		TrimCountHigh:        policy.TrimCountHigh,
		TrimCountLow:         policy.TrimCountLow,
		RoundingDecimals:     policy.RoundingDecimals,
		CreatedAt:            policy.CreatedAt.UTC(),
		UpdatedAt:            policy.UpdatedAt.UTC(),
	}
}

func (m scoringPolicyModel) toEntity() entities.ScoringPolicy {
	return entities.ScoringPolicy{
		EventID:              m.EventID,
		TrimHighLowFromCount: m.TrimHighLowFromCount,
		TrimCountHigh:        m.TrimCountHigh,
		TrimCountLow:         m.TrimCountLow,
		RoundingDecimals:     m.RoundingDecimals,
		CreatedAt:            m.CreatedAt.UTC(),
		UpdatedAt:            m.UpdatedAt.UTC(),
	}
}

type protocolModel struct {
	ProtocolID        string         `gorm:"column:protocol_id;primaryKey"`
	EventID           string         `gorm:"column:event_id;not null;uniqueIndex:ux_protocols_event_number_version,priority:1"`
	SampleID          string         `gorm:"column:sample_id;not null;index"`
	ApplicantID       string         `gorm:"column:applicant_id"`
	ProtocolNumber    int            `gorm:"column:protocol_number;not null;uniqueIndex:ux_protocols_event_number_version,priority:2"`
	Version           int            `gorm:"column:version;not null;uniqueIndex:ux_protocols_event_number_version,priority:3"`
	PreviousVersionID *string        `gorm:"column:previous_version_id"`
	FinalScore        float64        `gorm:"column:final_score;not null"`
	Status            string         `gorm:"column:status;not null"`
	IssuedBy          string         `gorm:"column:issued_by;not null"`
	Snapshot          datatypes.JSON `gorm:"column:snapshot"`
	GeneratedAt       time.Time      `gorm:"column:generated_at"`
}

func (protocolModel) TableName() string {
	return "protocols"
}

func protocolModelFromEntity(protocol entities.Protocol) (protocolModel, error) {
	snapshot, err := json.Marshal(protocol.Snapshot)
	if err != nil {
		return protocolModel{}, err
	}
	return protocolModel{
		ProtocolID:        protocol.ProtocolID,
		EventID:           protocol.EventID,
		SampleID:          protocol.SampleID,
		ApplicantID:       protocol.ApplicantID,
		ProtocolNumber:    protocol.ProtocolNumber,
		Version:           protocol.Version,
		PreviousVersionID: optionalString(protocol.PreviousVersionID),
		FinalScore:        protocol.FinalScore,
		Status:            string(protocol.Status),
		IssuedBy:          protocol.IssuedBy,
		Snapshot:          datatypes.JSON(snapshot),
		GeneratedAt:       protocol.GeneratedAt.UTC(),
	}, nil
}

func (m protocolModel) toEntity() (entities.Protocol, error) {
	var snapshot entities.ScoreSnapshot
	if len(m.Snapshot) > 0 {
		if err := json.Unmarshal(m.Snapshot, &snapshot); err != nil {
			return entities.Protocol{}, err
		}
	}
	return entities.Protocol{
		ProtocolID:        m.ProtocolID,
		EventID:           m.EventID,
		SampleID:          m.SampleID,
		ApplicantID:       m.ApplicantID,
		ProtocolNumber:    m.ProtocolNumber,
		Version:           m.Version,
		PreviousVersionID: derefString(m.PreviousVersionID),
		FinalScore:        m.FinalScore,
		Status:            entities.ProtocolStatus(m.Status),
		IssuedBy:          m.IssuedBy,
		Snapshot:          snapshot,
		GeneratedAt:       m.GeneratedAt.UTC(),
	}, nil
}

type eventSequenceModel struct {
	EventID   string `gorm:"column:event_id;primaryKey"`
	Kind      string `gorm:"column:kind;primaryKey"`
	LastValue int    `gorm:"column:last_value;not null"`
}

func (eventSequenceModel) TableName() string {
	return "event_sequences"
}

type idempotencyModel struct {
	Key         string    `gorm:"column:key;primaryKey"`
	RequestHash string    `gorm:"column:request_hash;not null"`
	ResourceID  string    `gorm:"column:resource_id;not null"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
}

func (idempotencyModel) TableName() string {
	return "evaluation_idempotency"
}

type outboxModel struct {
	OutboxID     string         `gorm:"column:outbox_id;primaryKey"`
	EventType    string         `gorm:"column:event_type;not null"`
	PartitionKey string         `gorm:"column:partition_key"`
	Payload      datatypes.JSON `gorm:"column:payload;not null"`
	Status       string         `gorm:"column:status;not null;index"`
	CreatedAt    time.Time      `gorm:"column:created_at"`
	PublishedAt  *time.Time     `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "evaluation_outbox"
}

type eventDedupModel struct {
	EventID     string    `gorm:"column:event_id;primaryKey"`
	PayloadHash string    `gorm:"column:payload_hash;not null"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
	ProcessedAt time.Time `gorm:"column:processed_at"`
}

func (eventDedupModel) TableName() string {
	return "evaluation_event_dedup"
}
