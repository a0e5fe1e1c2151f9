package entities

import (
	"fmt"
	"sort"
	"time"

	domainerrors "degusta/contexts/competition-judging/evaluation-engine/domain/errors"

	"github.com/shopspring/decimal"
)

const (
	DefaultTrimHighLowFromCount = 5
	DefaultTrimCountHigh        = 1
	DefaultTrimCountLow         = 1
	DefaultRoundingDecimals     = 2

	MaxRoundingDecimals = 6

	// meanPrecision keeps the division exact well past any rounding setting
	// so rounding happens exactly once.
	meanPrecision = 16
)

// ScoringPolicy configures how an event's final scores are aggregated.
// Trimming applies once at least TrimHighLowFromCount scores are present.
type ScoringPolicy struct {
	EventID              string
	TrimHighLowFromCount int
	TrimCountHigh        int
	TrimCountLow         int
	RoundingDecimals     int
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func DefaultScoringPolicy(eventID string, now time.Time) ScoringPolicy {
	return ScoringPolicy{
		EventID:              eventID,
		TrimHighLowFromCount: DefaultTrimHighLowFromCount,
		TrimCountHigh:        DefaultTrimCountHigh,
		TrimCountLow:         DefaultTrimCountLow,
		RoundingDecimals:     DefaultRoundingDecimals,
		CreatedAt:            now.UTC(),
		UpdatedAt:            now.UTC(),
	}
}

// Validate rejects policies that are malformed or that could trim away every
// score once trimming kicks in.
func (p ScoringPolicy) Validate() error {
	switch {
	case p.TrimHighLowFromCount < 0 || p.TrimCountHigh < 0 || p.TrimCountLow < 0:
		return domainerrors.ErrInvalidScoringPolicy.Because("counts must not be negative")
	case p.RoundingDecimals < 0 || p.RoundingDecimals > MaxRoundingDecimals:
		return domainerrors.ErrInvalidScoringPolicy.Because(fmt.Sprintf("rounding decimals must be between 0 and %d", MaxRoundingDecimals))
	case p.TrimCountHigh+p.TrimCountLow > 0 && p.TrimCountHigh+p.TrimCountLow >= p.TrimHighLowFromCount:
		return domainerrors.ErrInvalidScoringPolicy.Because("trimmed counts must leave at least one score")
	}
	return nil
}

// ScoreAggregate is the result of applying a policy to a set of scores.
type ScoreAggregate struct {
	Score   float64
	Count   int
	Kept    int
	Trimmed bool
}

// Aggregate averages scores under the policy: below the trim threshold the
// plain mean, otherwise the mean after dropping TrimCountLow lowest and
// TrimCountHigh highest by sorted position. The result is rounded half away
// from zero to RoundingDecimals places.
func (p ScoringPolicy) Aggregate(scores []float64) (ScoreAggregate, error) {
	if len(scores) == 0 {
		return ScoreAggregate{}, domainerrors.ErrNoCountedScores.On("scoring_policy", p.EventID, "")
	}
	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)

	result := ScoreAggregate{Count: len(sorted)}
	kept := sorted
	if len(sorted) >= p.TrimHighLowFromCount {
		if p.TrimCountLow+p.TrimCountHigh >= len(sorted) {
			return ScoreAggregate{}, domainerrors.ErrTrimEmptiesRemainder.
				Because(fmt.Sprintf("%d scores, trimming %d low and %d high", len(sorted), p.TrimCountLow, p.TrimCountHigh)).
				On("scoring_policy", p.EventID, "")
		}
		kept = sorted[p.TrimCountLow : len(sorted)-p.TrimCountHigh]
		result.Trimmed = p.TrimCountLow+p.TrimCountHigh > 0
	}
	result.Kept = len(kept)

	sum := decimal.Zero
	for _, value := range kept {
		sum = sum.Add(decimal.NewFromFloat(value))
	}
	mean := sum.DivRound(decimal.NewFromInt(int64(len(kept))), meanPrecision)
	result.Score = RoundScore(mean, p.RoundingDecimals)
	return result, nil
}

// RoundScore rounds half away from zero.
func RoundScore(value decimal.Decimal, places int) float64 {
	rounded, _ := value.Round(int32(places)).Float64()
	return rounded
}
