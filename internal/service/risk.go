package service

import (
	"context"

	"dispatch/internal/domain"
)

// RiskScorer evaluates a ride for fraud or safety risk before settlement.
type RiskScorer interface {
	Score(ctx context.Context, ride *domain.Ride, amount int64) float64
}

// HeuristicRiskScorer applies simple additive rules. Scores range 0 to 1;
// anything at or above the threshold should be reviewed.
type HeuristicRiskScorer struct {
	HighAmount int64
}

// NewHeuristicRiskScorer creates a scorer with the given high-amount cutoff.
func NewHeuristicRiskScorer(highAmount int64) *HeuristicRiskScorer {
	return &HeuristicRiskScorer{HighAmount: highAmount}
}

func (s *HeuristicRiskScorer) Score(ctx context.Context, ride *domain.Ride, amount int64) float64 {
	score := 0.0
	if ride.SOSTriggered {
		score += 0.5
	}
	if ride.RouteDeviation {
		score += 0.3
	}
	if s.HighAmount > 0 && amount >= s.HighAmount {
		score += 0.2
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}
