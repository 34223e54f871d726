// Package policy scores per-order return risk and searches for the
// profit-maximizing approval threshold for a gatekeeping policy.
package policy

import "github.com/Veraticus/mentat/internal/model"

// RiskScorer maps order features to a return-risk score in [0,100].
// Implementations must be pure so scores can be computed concurrently; the
// default is a fixed-weight heuristic meant to be swapped for a trained
// model later without touching the optimizer.
type RiskScorer interface {
	Score(features model.OrderFeatures) float64
}

// LinearScorer is the heuristic risk model: a weighted sum of the
// customer's historical return rate, the SKU's return rate and a first-time
// flag, discounted by order value and clipped to [0,100].
type LinearScorer struct {
	Alpha float64 // weight on customer return rate
	Beta  float64 // weight on SKU return rate
	Gamma float64 // weight on the first-time-customer flag
	Delta float64 // discount per unit of order value
}

// DefaultScorer returns the heuristic scorer with its fixed default weights.
func DefaultScorer() LinearScorer {
	return LinearScorer{
		Alpha: 40,
		Beta:  35,
		Gamma: 15,
		Delta: 0.05,
	}
}

// Score implements RiskScorer.
func (s LinearScorer) Score(f model.OrderFeatures) float64 {
	var firstTime float64
	if f.FirstTimeCustomer {
		firstTime = 1
	}

	score := s.Alpha*f.CustomerReturnRate +
		s.Beta*f.SKUReturnRate +
		s.Gamma*firstTime -
		s.Delta*f.OrderValue

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
