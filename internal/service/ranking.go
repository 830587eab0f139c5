package service

import (
	"context"
	"sort"

	"dispatch/internal/domain"
)

// Candidate is a driver under consideration for a ride, with their current
// distance from the pickup point.
type Candidate struct {
	Driver     *domain.Driver
	DistanceKm float64
}

// Scorer ranks matching candidates for a ride. Higher scores are better.
// The ride is part of the signature so implementations can fold in
// ride-level signals such as fraud risk.
type Scorer interface {
	Score(ctx context.Context, c Candidate, ride *domain.Ride, radiusKm float64) float64
}

// WeightedScorer combines proximity, rating and acceptance rate with
// fixed weights.
type WeightedScorer struct {
	DistanceWeight   float64
	RatingWeight     float64
	AcceptanceWeight float64
}

// NewWeightedScorer returns the default scorer weighting proximity highest.
func NewWeightedScorer() *WeightedScorer {
	return &WeightedScorer{
		DistanceWeight:   0.5,
		RatingWeight:     0.3,
		AcceptanceWeight: 0.2,
	}
}

// Score computes the weighted score. Distance is normalized against the
// search radius so a driver at the pickup point scores 1.0 and one at the
// radius edge scores 0. Rating is normalized to its 0-5 scale.
func (s *WeightedScorer) Score(ctx context.Context, c Candidate, ride *domain.Ride, radiusKm float64) float64 {
	proximity := 0.0
	if radiusKm > 0 {
		proximity = 1.0 - c.DistanceKm/radiusKm
		if proximity < 0 {
			proximity = 0
		}
	}
	rating := c.Driver.Rating / 5.0
	return s.DistanceWeight*proximity + s.RatingWeight*rating + s.AcceptanceWeight*c.Driver.AcceptanceRate()
}

// RiskAwareScorer wraps a base scorer and steers risky rides toward
// trusted drivers: the riskier the ride, the harder low-rated candidates
// are penalized. With a nil risk scorer it is the base scorer.
type RiskAwareScorer struct {
	Base    Scorer
	Risk    RiskScorer
	Penalty float64
}

// NewRiskAwareScorer creates a risk-aware scorer with the default penalty.
func NewRiskAwareScorer(base Scorer, risk RiskScorer) *RiskAwareScorer {
	return &RiskAwareScorer{Base: base, Risk: risk, Penalty: 0.5}
}

func (s *RiskAwareScorer) Score(ctx context.Context, c Candidate, ride *domain.Ride, radiusKm float64) float64 {
	score := s.Base.Score(ctx, c, ride, radiusKm)
	if s.Risk == nil {
		return score
	}
	risk := s.Risk.Score(ctx, ride, ride.EstimatedFare)
	distrust := 1.0 - c.Driver.Rating/5.0
	return score - s.Penalty*risk*distrust
}

// Rank sorts candidates best first. The sort is stable so equally scored
// drivers keep their nearest-first discovery order.
func Rank(ctx context.Context, candidates []Candidate, scorer Scorer, ride *domain.Ride, radiusKm float64) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return scorer.Score(ctx, candidates[i], ride, radiusKm) > scorer.Score(ctx, candidates[j], ride, radiusKm)
	})
}
