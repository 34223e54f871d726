package churn

import (
	"fmt"
	"testing"

	"github.com/Veraticus/mentat/internal/common"
	"github.com/Veraticus/mentat/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreValidation(t *testing.T) {
	customers := []model.CustomerRFM{{CustomerID: "a", Recency: 1, Frequency: 1, Monetary: 1}}

	tests := []struct {
		name    string
		input   []model.CustomerRFM
		cfg     Config
		wantErr error
	}{
		{"empty population", nil, DefaultConfig(), common.ErrEmptyDataset},
		{"negative recency percentile", customers, Config{RecencyPct: -1, FrequencyPct: 25}, common.ErrInvalidPercent},
		{"frequency percentile above 100", customers, Config{RecencyPct: 75, FrequencyPct: 101}, common.ErrInvalidPercent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Score(tt.input, tt.cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestScoreFlagsHighRecencyLowFrequency(t *testing.T) {
	customers := []model.CustomerRFM{
		{CustomerID: "c1", Recency: 10, Frequency: 10, Monetary: 5000},
		{CustomerID: "c2", Recency: 200, Frequency: 1, Monetary: 50},
		{CustomerID: "c3", Recency: 5, Frequency: 8, Monetary: 4200},
	}

	res, err := Score(customers, Config{RecencyPct: 75, FrequencyPct: 25})
	require.NoError(t, err)

	require.Len(t, res.AtRisk, 1, "only the stale, infrequent customer is at risk")
	flagged := res.AtRisk[0]
	assert.Equal(t, "c2", flagged.Customer.CustomerID)

	// 100 x (0.5 x 200/200 + 0.5 x (10-1)/10) = 95.
	assert.InDelta(t, 95, flagged.Score, 1e-9)
	assert.NotEmpty(t, flagged.Actions)

	assert.Equal(t, 3, res.Summary.TotalCustomers)
	assert.Equal(t, 1, res.Summary.AtRiskCount)
	assert.InDelta(t, 100.0/3, res.Summary.RiskPercentage, 1e-9)
	assert.Equal(t, RiskHigh, res.Summary.RiskLevel)
	assert.InDelta(t, 50, res.Summary.ValueAtRisk, 1e-9)
	assert.NotEmpty(t, res.Recommendations)
}

func TestScoreMonotoneInRecencyCut(t *testing.T) {
	// Loosening the recency cut can only admit more customers.
	customers := make([]model.CustomerRFM, 0, 40)
	for i := 0; i < 40; i++ {
		customers = append(customers, model.CustomerRFM{
			CustomerID: fmt.Sprintf("c%02d", i),
			Recency:    i * 10,
			Frequency:  1 + i%6,
			Monetary:   float64(100 + i),
		})
	}

	prev := -1
	for _, pct := range []float64{95, 90, 75, 50, 25, 10, 0} {
		res, err := Score(customers, Config{RecencyPct: pct, FrequencyPct: 25})
		require.NoError(t, err)
		if prev >= 0 {
			assert.GreaterOrEqual(t, res.Summary.AtRiskCount, prev, "at pct %v", pct)
		}
		prev = res.Summary.AtRiskCount
	}
}

func TestScoreRiskLevels(t *testing.T) {
	// All customers identical: everyone sits at the percentile cuts, so
	// everyone is flagged and the share is 100%.
	same := []model.CustomerRFM{
		{CustomerID: "a", Recency: 30, Frequency: 2, Monetary: 10},
		{CustomerID: "b", Recency: 30, Frequency: 2, Monetary: 10},
	}
	res, err := Score(same, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Summary.AtRiskCount)
	assert.Equal(t, RiskHigh, res.Summary.RiskLevel)

	// One flagged out of twelve: 8.3%, low risk.
	var population []model.CustomerRFM
	for i := 0; i < 11; i++ {
		population = append(population, model.CustomerRFM{
			CustomerID: fmt.Sprintf("fresh%d", i), Recency: i + 1, Frequency: 5 + i, Monetary: 100,
		})
	}
	population = append(population, model.CustomerRFM{CustomerID: "stale", Recency: 400, Frequency: 1, Monetary: 20})
	res, err = Score(population, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Summary.AtRiskCount)
	assert.Equal(t, RiskLow, res.Summary.RiskLevel)
}

func TestRiskScoreDegradesOnZeroMaxima(t *testing.T) {
	c := model.CustomerRFM{CustomerID: "z", Recency: 0, Frequency: 0}
	assert.Equal(t, 0.0, riskScore(c, 0, 0))
}

func TestRetentionActionsVIPGate(t *testing.T) {
	vip := retentionActions(model.CustomerRFM{Monetary: 1000}, 500)
	assert.Contains(t, vip[1], "VIP")

	standard := retentionActions(model.CustomerRFM{Monetary: 100}, 500)
	assert.Contains(t, standard[1], "15%")

	// The playbook order is fixed.
	assert.Contains(t, vip[0], "we miss you")
	assert.Contains(t, vip[3], "Free shipping")
}
