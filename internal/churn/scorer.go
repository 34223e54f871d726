// Package churn flags customers at risk of churning using population
// percentiles of recency and frequency, and scores each flagged customer
// on a 0-100 scale.
package churn

import (
	"fmt"
	"sort"

	"github.com/Veraticus/mentat/internal/common"
	"github.com/Veraticus/mentat/internal/model"
)

// Risk levels for the population as a whole.
const (
	RiskHigh   = "High"
	RiskMedium = "Medium"
	RiskLow    = "Low"
)

// Config holds the percentile cuts that define "at risk". A customer is
// flagged when recency is at or above the RecencyPct percentile and
// frequency at or below the FrequencyPct percentile.
type Config struct {
	RecencyPct   float64
	FrequencyPct float64
}

// DefaultConfig returns the default churn thresholds.
func DefaultConfig() Config {
	return Config{
		RecencyPct:   75,
		FrequencyPct: 25,
	}
}

// AtRiskCustomer is a flagged customer with a risk score and suggested
// retention actions.
type AtRiskCustomer struct {
	Customer model.CustomerRFM
	Actions  []string
	Score    float64
}

// Summary aggregates the churn picture for the whole population.
type Summary struct {
	RiskLevel      string
	TotalCustomers int
	AtRiskCount    int
	RiskPercentage float64
	AvgRiskScore   float64
	ValueAtRisk    float64
}

// Result is the outcome of one churn scoring pass.
type Result struct {
	AtRisk             []AtRiskCustomer
	Recommendations    []string
	Summary            Summary
	RecencyThreshold   float64
	FrequencyThreshold float64
}

// Score flags at-risk customers and scores them. The per-customer score
// blends how stale the customer is against the population maximum recency
// with how far below the maximum frequency they sit, equally weighted; a
// degenerate population maximum of zero contributes zero rather than
// dividing by it.
func Score(customers []model.CustomerRFM, cfg Config) (*Result, error) {
	if len(customers) == 0 {
		return nil, fmt.Errorf("scoring churn risk: %w", common.ErrEmptyDataset)
	}
	if cfg.RecencyPct < 0 || cfg.RecencyPct > 100 {
		return nil, fmt.Errorf("scoring churn risk: recency percentile %v: %w", cfg.RecencyPct, common.ErrInvalidPercent)
	}
	if cfg.FrequencyPct < 0 || cfg.FrequencyPct > 100 {
		return nil, fmt.Errorf("scoring churn risk: frequency percentile %v: %w", cfg.FrequencyPct, common.ErrInvalidPercent)
	}

	recency := make([]float64, len(customers))
	frequency := make([]float64, len(customers))
	monetary := make([]float64, len(customers))
	var maxRecency, maxFrequency float64
	for i, c := range customers {
		recency[i] = float64(c.Recency)
		frequency[i] = float64(c.Frequency)
		monetary[i] = c.Monetary
		if recency[i] > maxRecency {
			maxRecency = recency[i]
		}
		if frequency[i] > maxFrequency {
			maxFrequency = frequency[i]
		}
	}

	recencyThreshold := common.Percentile(recency, cfg.RecencyPct)
	frequencyThreshold := common.Percentile(frequency, cfg.FrequencyPct)
	vipCut := common.Percentile(monetary, 75)

	var atRisk []AtRiskCustomer
	var scoreSum, valueAtRisk float64
	for _, c := range customers {
		if float64(c.Recency) < recencyThreshold || float64(c.Frequency) > frequencyThreshold {
			continue
		}
		score := riskScore(c, maxRecency, maxFrequency)
		atRisk = append(atRisk, AtRiskCustomer{
			Customer: c,
			Score:    score,
			Actions:  retentionActions(c, vipCut),
		})
		scoreSum += score
		valueAtRisk += c.Monetary
	}
	sort.Slice(atRisk, func(i, j int) bool {
		if atRisk[i].Score != atRisk[j].Score {
			return atRisk[i].Score > atRisk[j].Score
		}
		return atRisk[i].Customer.CustomerID < atRisk[j].Customer.CustomerID
	})

	riskPct := float64(len(atRisk)) / float64(len(customers)) * 100
	summary := Summary{
		TotalCustomers: len(customers),
		AtRiskCount:    len(atRisk),
		RiskPercentage: riskPct,
		RiskLevel:      riskLevel(riskPct),
		ValueAtRisk:    valueAtRisk,
	}
	if len(atRisk) > 0 {
		summary.AvgRiskScore = scoreSum / float64(len(atRisk))
	}

	return &Result{
		AtRisk:             atRisk,
		Summary:            summary,
		RecencyThreshold:   recencyThreshold,
		FrequencyThreshold: frequencyThreshold,
		Recommendations:    recommendations(summary),
	}, nil
}

// riskScore is 100 x (0.5 recency share + 0.5 frequency deficit share),
// clamped to [0,100]. Zero population maxima degrade each half to 0.
func riskScore(c model.CustomerRFM, maxRecency, maxFrequency float64) float64 {
	var score float64
	if maxRecency > 0 {
		score += 0.5 * float64(c.Recency) / maxRecency
	}
	if maxFrequency > 0 {
		score += 0.5 * (maxFrequency - float64(c.Frequency)) / maxFrequency
	}
	score *= 100
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func riskLevel(riskPct float64) string {
	switch {
	case riskPct > 20:
		return RiskHigh
	case riskPct > 10:
		return RiskMedium
	default:
		return RiskLow
	}
}

// retentionActions is a fixed ordered playbook, with the discount step
// upgraded for customers above the population's 75th monetary percentile.
func retentionActions(c model.CustomerRFM, vipCut float64) []string {
	actions := []string{"Send a personalized \"we miss you\" email"}
	if c.Monetary > vipCut {
		actions = append(actions, "Special 20% VIP offer - high value customer")
	} else {
		actions = append(actions, "Time-limited 15% discount code")
	}
	actions = append(actions,
		"Recommend products from purchase history",
		"Free shipping on the next order",
	)
	return actions
}

func recommendations(s Summary) []string {
	var recs []string
	switch s.RiskLevel {
	case RiskHigh:
		recs = append(recs,
			fmt.Sprintf("High alert: %.1f%% of customers are at risk of churning", s.RiskPercentage),
			"Launch an urgent retention campaign within 7 days")
	case RiskMedium:
		recs = append(recs,
			fmt.Sprintf("Warning: %.1f%% of customers are at risk of churning", s.RiskPercentage),
			"Plan a re-engagement campaign within 14 days")
	default:
		recs = append(recs, fmt.Sprintf("Healthy: only %.1f%% of customers are at risk of churning", s.RiskPercentage))
	}
	recs = append(recs,
		fmt.Sprintf("Recoverable value: %.0f across %d customers", s.ValueAtRisk, s.AtRiskCount),
		"Prioritize the highest-monetary customers first",
		"Track conversion after 30 days")
	return recs
}
