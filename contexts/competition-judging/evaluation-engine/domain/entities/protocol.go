package entities

import "time"

type ProtocolStatus string

const (
	ProtocolStatusGenerated  ProtocolStatus = "generated"
	ProtocolStatusSuperseded ProtocolStatus = "superseded"
)

// Protocol is the immutable certificate record issued for an evaluated sample.
// Revisions are new rows pointing back through PreviousVersionID.
type Protocol struct {
	ProtocolID        string
	EventID           string
	SampleID          string
	ApplicantID       string
	ProtocolNumber    int
	Version           int
	PreviousVersionID string
	FinalScore        float64
	Status            ProtocolStatus
	IssuedBy          string
	Snapshot          ScoreSnapshot
	GeneratedAt       time.Time
}

// ScoreSnapshot freezes how the protocol's score was produced.
type ScoreSnapshot struct {
	SessionID            string    `json:"session_id"`
	EvaluationCount      int       `json:"evaluation_count"`
	TrimHighLowFromCount int       `json:"trim_high_low_from_count"`
	TrimCountHigh        int       `json:"trim_count_high"`
	TrimCountLow         int       `json:"trim_count_low"`
	RoundingDecimals     int       `json:"rounding_decimals"`
	CalculatedAt         time.Time `json:"calculated_at"`
}

// ScoreResult is what a score calculation reports back. Score is nil when the
// sample has no completed session or no counted scores yet.
type ScoreResult struct {
	SampleID        string
	SessionID       string
	Score           *float64
	EvaluationCount int
	Trimmed         bool
	Policy          ScoringPolicy
	CalculatedAt    time.Time
}

func (r ScoreResult) Snapshot() ScoreSnapshot {
	return ScoreSnapshot{
		SessionID:            r.SessionID,
		EvaluationCount:      r.EvaluationCount,
		TrimHighLowFromCount: r.Policy.TrimHighLowFromCount,
		TrimCountHigh:        r.Policy.TrimCountHigh,
		TrimCountLow:         r.Policy.TrimCountLow,
		RoundingDecimals:     r.Policy.RoundingDecimals,
		CalculatedAt:         r.CalculatedAt.UTC(),
	}
}
