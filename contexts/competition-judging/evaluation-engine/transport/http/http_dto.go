package http

import "time"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Entity  string `json:"entity,omitempty"`
	ID      string `json:"id,omitempty"`
	State   string `json:"state,omitempty"`
}

type RegisterSampleRequest struct {
	EventID     string `json:"event_id" validate:"required,max=64"`
	CategoryID  string `json:"category_id" validate:"required,max=64"`
	ApplicantID string `json:"applicant_id" validate:"required,max=64"`
}

type SampleResponse struct {
	SampleID        string     `json:"sample_id"`
	EventID         string     `json:"event_id"`
	CategoryID      string     `json:"category_id"`
	ApplicantID     string     `json:"applicant_id"`
	SampleNumber    int        `json:"sample_number"`
	Status          string     `json:"status"`
	FinalScore      *float64   `json:"final_score,omitempty"`
	EvaluatedAt     *time.Time `json:"evaluated_at,omitempty"`
	ExcludedAt      *time.Time `json:"excluded_at,omitempty"`
	ExclusionReason string     `json:"exclusion_reason,omitempty"`
	ActiveSessionID string     `json:"active_session_id,omitempty"`
}

type CreateCommissionRequest struct {
	Name             string `json:"name" validate:"required,max=200"`
	MainMemberUserID string `json:"main_member_user_id" validate:"required,max=64"`
}

type AddMemberRequest struct {
	UserID string `json:"user_id" validate:"required,max=64"`
	Role   string `json:"role" validate:"required,oneof=main_member president member trainee"`
}

type SetMemberExcludedRequest struct {
	Excluded bool `json:"excluded"`
}

type CommissionMemberResponse struct {
	MemberID string `json:"member_id"`
	UserID   string `json:"user_id"`
	Role     string `json:"role"`
	Excluded bool   `json:"excluded"`
}

type RosterResponse struct {
	CommissionID   string                     `json:"commission_id"`
	Name           string                     `json:"name"`
	Status         string                     `json:"status"`
	ActivatingRole string                     `json:"activating_role"`
	Members        []CommissionMemberResponse `json:"members"`
}

type ActivateSessionRequest struct {
	EventID      string `json:"event_id" validate:"omitempty,max=64"`
	SampleID     string `json:"sample_id" validate:"required,max=64"`
	CommissionID string `json:"commission_id" validate:"required,max=64"`
}

type SessionResponse struct {
	SessionID    string     `json:"session_id"`
	EventID      string     `json:"event_id"`
	SampleID     string     `json:"sample_id"`
	CommissionID string     `json:"commission_id"`
	Status       string     `json:"status"`
	ActivatedBy  string     `json:"activated_by"`
	ActivatedAt  time.Time  `json:"activated_at"`
	CompletedBy  string     `json:"completed_by,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

type CreateEvaluationRequest struct {
	SampleID           string   `json:"sample_id" validate:"omitempty,max=64"`
	CommissionMemberID string   `json:"commission_member_id" validate:"required,max=64"`
	Score              *float64 `json:"score" validate:"omitempty,gte=0,lte=100"`
	ExcludeVote        bool     `json:"exclude_vote"`
	ExclusionNote      string   `json:"exclusion_note" validate:"required_if=ExcludeVote true,max=2000"`
}

type UpdateEvaluationRequest struct {
	Score         *float64 `json:"score" validate:"omitempty,gte=0,lte=100"`
	ExcludeVote   bool     `json:"exclude_vote"`
	ExclusionNote string   `json:"exclusion_note" validate:"required_if=ExcludeVote true,max=2000"`
}

type EvaluationResponse struct {
	EvaluationID              string     `json:"evaluation_id"`
	SessionID                 string     `json:"session_id"`
	SampleID                  string     `json:"sample_id"`
	CommissionMemberID        string     `json:"commission_member_id"`
	Score                     *float64   `json:"score,omitempty"`
	ExcludeVote               bool       `json:"exclude_vote"`
	ExclusionNote             string     `json:"exclusion_note,omitempty"`
	SubmittedAt               *time.Time `json:"submitted_at,omitempty"`
	IsExcludedFromCalculation bool       `json:"is_excluded_from_calculation"`
}

type SubmitEvaluationResponse struct {
	Evaluation     EvaluationResponse `json:"evaluation"`
	TotalVotes     int                `json:"total_votes"`
	ExcludeVotes   int                `json:"exclude_votes"`
	SampleExcluded bool               `json:"sample_excluded"`
	SampleStatus   string             `json:"sample_status"`
}

type ListEvaluationsResponse struct {
	Items []EvaluationResponse `json:"items"`
}

type ConfigurePolicyRequest struct {
	TrimHighLowFromCount int `json:"trim_high_low_from_count" validate:"gte=0"`
	TrimCountHigh        int `json:"trim_count_high" validate:"gte=0"`
	TrimCountLow         int `json:"trim_count_low" validate:"gte=0"`
	RoundingDecimals     int `json:"rounding_decimals" validate:"gte=0,lte=6"`
}

type PolicyResponse struct {
	EventID              string `json:"event_id"`
	TrimHighLowFromCount int    `json:"trim_high_low_from_count"`
	TrimCountHigh        int    `json:"trim_count_high"`
	TrimCountLow         int    `json:"trim_count_low"`
	RoundingDecimals     int    `json:"rounding_decimals"`
}

type ScoreResponse struct {
	SampleID        string    `json:"sample_id"`
	SessionID       string    `json:"session_id,omitempty"`
	Score           *float64  `json:"score"`
	EvaluationCount int       `json:"evaluation_count"`
	Trimmed         bool      `json:"trimmed"`
	CalculatedAt    time.Time `json:"calculated_at"`
}

type GenerateProtocolRequest struct {
	SampleID string `json:"sample_id" validate:"required,max=64"`
}

type ProtocolResponse struct {
	ProtocolID        string    `json:"protocol_id"`
	EventID           string    `json:"event_id"`
	SampleID          string    `json:"sample_id"`
	ApplicantID       string    `json:"applicant_id"`
	ProtocolNumber    int       `json:"protocol_number"`
	Version           int       `json:"version"`
	PreviousVersionID string    `json:"previous_version_id,omitempty"`
	FinalScore        float64   `json:"final_score"`
	Status            string    `json:"status"`
	IssuedBy          string    `json:"issued_by"`
	EvaluationCount   int       `json:"evaluation_count"`
	GeneratedAt       time.Time `json:"generated_at"`
	Replayed          bool      `json:"replayed"`
}

type ListProtocolsResponse struct {
	Items []ProtocolResponse `json:"items"`
}
