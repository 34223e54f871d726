package basket

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Veraticus/mentat/internal/common"
	"github.com/Veraticus/mentat/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ledger turns a list of baskets into transaction records, one invoice per
// basket.
func ledger(baskets [][]string) []model.TransactionRecord {
	when := time.Date(2011, time.June, 1, 0, 0, 0, 0, time.UTC)
	var batch []model.TransactionRecord
	for i, items := range baskets {
		for _, item := range items {
			batch = append(batch, model.TransactionRecord{
				InvoiceNo:   fmt.Sprintf("I%03d", i),
				StockCode:   item,
				Description: "desc " + item,
				CustomerID:  fmt.Sprintf("C%d", i),
				Quantity:    1,
				UnitPrice:   2.5,
				InvoiceDate: when,
			})
		}
	}
	return batch
}

func TestMineValidation(t *testing.T) {
	tests := []struct {
		name    string
		batch   []model.TransactionRecord
		cfg     Config
		wantErr error
	}{
		{
			name:    "empty batch",
			batch:   nil,
			cfg:     DefaultConfig(),
			wantErr: common.ErrEmptyDataset,
		},
		{
			name:    "zero min support",
			batch:   ledger([][]string{{"A", "B"}}),
			cfg:     Config{MinSupport: 0, MinConfidence: 0.2},
			wantErr: common.ErrInvalidConfig,
		},
		{
			name:    "min confidence above one",
			batch:   ledger([][]string{{"A", "B"}}),
			cfg:     Config{MinSupport: 0.1, MinConfidence: 1.5},
			wantErr: common.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Mine(context.Background(), tt.batch, tt.cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestMineKnownCooccurrence(t *testing.T) {
	// 10 baskets: A in 9, B in 8, A and B together in 8.
	baskets := [][]string{
		{"A", "B"}, {"A", "B"}, {"A", "B"}, {"A", "B"},
		{"A", "B"}, {"A", "B"}, {"A", "B"}, {"A", "B"},
		{"A"}, {"C"},
	}
	cfg := DefaultConfig()
	cfg.MinSupport = 0.5
	cfg.MinConfidence = 0.8

	res, err := Mine(context.Background(), ledger(baskets), cfg)
	require.NoError(t, err)
	require.Empty(t, res.Diagnostic)
	assert.Equal(t, 10, res.Invoices)

	var aToB *model.AssociationRule
	for i := range res.Rules {
		r := res.Rules[i]
		if len(r.Antecedent) == 1 && r.Antecedent[0] == "A" && len(r.Consequent) == 1 && r.Consequent[0] == "B" {
			aToB = &res.Rules[i]
		}
	}
	require.NotNil(t, aToB, "rule A -> B must be mined")
	assert.InDelta(t, 0.8, aToB.Support, 1e-9)
	assert.InDelta(t, 0.8/0.9, aToB.Confidence, 1e-9)
	assert.InDelta(t, (0.8/0.9)/0.8, aToB.Lift, 1e-9)
	require.NotNil(t, aToB.Conviction)

	// B -> A holds with certainty, so conviction is undefined there.
	var bToA *model.AssociationRule
	for i := range res.Rules {
		r := res.Rules[i]
		if len(r.Antecedent) == 1 && r.Antecedent[0] == "B" {
			bToA = &res.Rules[i]
		}
	}
	require.NotNil(t, bToA)
	assert.InDelta(t, 1.0, bToA.Confidence, 1e-9)
	assert.Nil(t, bToA.Conviction)

	// The certain rule outranks the 88.9% one.
	assert.Equal(t, "B", res.Rules[0].Antecedent[0])
	require.NotNil(t, res.TopRule)
	assert.NotEmpty(t, res.Insights)
}

func TestMineDownwardClosure(t *testing.T) {
	baskets := [][]string{
		{"A", "B", "C"}, {"A", "B", "C"}, {"A", "B", "C"}, {"A", "B"},
		{"A", "C"}, {"B", "C"}, {"A", "B", "C", "D"}, {"D"},
		{"A", "D"}, {"B", "C", "D"},
	}
	cfg := DefaultConfig()
	cfg.MinSupport = 0.2
	cfg.MinConfidence = 0.2

	res, err := Mine(context.Background(), ledger(baskets), cfg)
	require.NoError(t, err)
	require.NotEmpty(t, res.Itemsets)

	reported := make(map[string]float64)
	for _, is := range res.Itemsets {
		reported[itemsetKey(is.Items)] = is.Support
	}

	for _, is := range res.Itemsets {
		n := len(is.Items)
		if n < 2 {
			continue
		}
		for skip := 0; skip < n; skip++ {
			sub := make([]string, 0, n-1)
			for i, item := range is.Items {
				if i != skip {
					sub = append(sub, item)
				}
			}
			subSupport, ok := reported[itemsetKey(sub)]
			require.True(t, ok, "subset %v of %v must be frequent", sub, is.Items)
			assert.GreaterOrEqual(t, subSupport, is.Support, "subset support can only shrink upward")
		}
	}

	// Every emitted rule satisfies the thresholds and the lift identity.
	for _, r := range res.Rules {
		assert.GreaterOrEqual(t, r.Confidence, cfg.MinConfidence)
		assert.GreaterOrEqual(t, r.Support, cfg.MinSupport)
		conSupport, ok := reported[itemsetKey(r.Consequent)]
		require.True(t, ok)
		assert.InDelta(t, r.Confidence/conSupport, r.Lift, 1e-9)
	}
}

func TestMineDegenerateOutcomes(t *testing.T) {
	t.Run("single product", func(t *testing.T) {
		res, err := Mine(context.Background(), ledger([][]string{{"A"}, {"A"}}), DefaultConfig())
		require.NoError(t, err)
		assert.Empty(t, res.Rules)
		assert.Contains(t, res.Diagnostic, "distinct products")
	})

	t.Run("nothing frequent", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.MinSupport = 0.99
		res, err := Mine(context.Background(), ledger([][]string{{"A", "B"}, {"C", "D"}, {"E", "F"}}), cfg)
		require.NoError(t, err)
		assert.Empty(t, res.Rules)
		assert.Contains(t, res.Diagnostic, "min support")
	})

	t.Run("no qualifying rules", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.MinSupport = 0.3
		cfg.MinConfidence = 0.95
		// A and B co-occur in half their invoices: confident enough to
		// be frequent together, never 95% confident.
		baskets := [][]string{
			{"A", "B"}, {"A", "B"}, {"A"}, {"B"},
			{"A"}, {"B"}, {"A", "B"}, {"A"}, {"B"}, {"A", "B"},
		}
		res, err := Mine(context.Background(), ledger(baskets), cfg)
		require.NoError(t, err)
		assert.Empty(t, res.Rules)
		assert.Contains(t, res.Diagnostic, "min confidence")
	})
}

func TestMineTopProductsCap(t *testing.T) {
	// 5 products but only the top 2 by invoice count are allowed in.
	baskets := [][]string{
		{"A", "B"}, {"A", "B"}, {"A", "B"}, {"A", "B", "C"},
		{"A", "B", "D"}, {"A", "E"},
	}
	cfg := DefaultConfig()
	cfg.TopProducts = 2
	cfg.MinSupport = 0.5
	cfg.MinConfidence = 0.5

	res, err := Mine(context.Background(), ledger(baskets), cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Products)
	for _, is := range res.Itemsets {
		for _, item := range is.Items {
			assert.Contains(t, []string{"A", "B"}, item)
		}
	}
}

func TestMineMaxRulesTruncation(t *testing.T) {
	baskets := [][]string{
		{"A", "B", "C"}, {"A", "B", "C"}, {"A", "B", "C"},
		{"A", "B", "C"}, {"A", "B", "C"},
	}
	cfg := DefaultConfig()
	cfg.MinSupport = 0.5
	cfg.MinConfidence = 0.2
	cfg.MaxRules = 3

	res, err := Mine(context.Background(), ledger(baskets), cfg)
	require.NoError(t, err)
	assert.Len(t, res.Rules, 3)
}

func TestMineCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	baskets := [][]string{{"A", "B"}, {"A", "B"}, {"A", "C"}}
	_, err := Mine(ctx, ledger(baskets), DefaultConfig())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
