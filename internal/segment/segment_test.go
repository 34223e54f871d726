package segment

import (
	"context"
	"fmt"
	"testing"

	"github.com/Veraticus/mentat/internal/common"
	"github.com/Veraticus/mentat/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoGroups builds an obviously separable population: recent big spenders
// and long-gone one-timers.
func twoGroups() []model.CustomerRFM {
	customers := make([]model.CustomerRFM, 0, 8)
	for i := 0; i < 4; i++ {
		customers = append(customers, model.CustomerRFM{
			CustomerID: fmt.Sprintf("hi%d", i),
			Recency:    5 + i,
			Frequency:  20 + i,
			Monetary:   5000 + float64(i)*100,
		})
	}
	for i := 0; i < 4; i++ {
		customers = append(customers, model.CustomerRFM{
			CustomerID: fmt.Sprintf("lo%d", i),
			Recency:    300 + i,
			Frequency:  1,
			Monetary:   50 + float64(i),
		})
	}
	return customers
}

func TestSegmentValidation(t *testing.T) {
	tests := []struct {
		name      string
		customers []model.CustomerRFM
		cfg       Config
		wantErr   error
	}{
		{
			name:      "empty population",
			customers: nil,
			cfg:       DefaultConfig(),
			wantErr:   common.ErrEmptyDataset,
		},
		{
			name:      "more clusters than customers",
			customers: twoGroups(),
			cfg:       Config{K: 9, Seed: 1, Restarts: 2, MaxIterations: 10},
			wantErr:   common.ErrTooManyClusters,
		},
		{
			name:      "zero clusters",
			customers: twoGroups(),
			cfg:       Config{K: 0, Seed: 1},
			wantErr:   common.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Segment(context.Background(), tt.customers, tt.cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSegmentSeparatesObviousGroups(t *testing.T) {
	cfg := DefaultConfig()
	cfg.K = 2

	res, err := Segment(context.Background(), twoGroups(), cfg)
	require.NoError(t, err)
	require.Len(t, res.Customers, 8)

	clusters := make(map[int]struct{})
	var hiCluster, loCluster int
	for _, c := range res.Customers {
		require.NotNil(t, c.Cluster)
		clusters[*c.Cluster] = struct{}{}
		if c.CustomerID == "hi0" {
			hiCluster = *c.Cluster
		}
		if c.CustomerID == "lo0" {
			loCluster = *c.Cluster
		}
	}
	assert.Len(t, clusters, 2, "exactly K distinct cluster ids")
	assert.NotEqual(t, hiCluster, loCluster)

	for _, c := range res.Customers {
		if c.CustomerID[:2] == "hi" {
			assert.Equal(t, hiCluster, *c.Cluster, "customer %s", c.CustomerID)
		} else {
			assert.Equal(t, loCluster, *c.Cluster, "customer %s", c.CustomerID)
		}
	}

	require.NotNil(t, res.Silhouette)
	assert.GreaterOrEqual(t, *res.Silhouette, -1.0)
	assert.LessOrEqual(t, *res.Silhouette, 1.0)
	assert.Greater(t, *res.Silhouette, 0.5, "well separated groups should score high")

	assert.Len(t, res.Centroids, 2)
	assert.NotEmpty(t, res.Summaries)
}

func TestSegmentDeterministic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.K = 3

	first, err := Segment(context.Background(), twoGroups(), cfg)
	require.NoError(t, err)
	second, err := Segment(context.Background(), twoGroups(), cfg)
	require.NoError(t, err)

	for i := range first.Customers {
		assert.Equal(t, *first.Customers[i].Cluster, *second.Customers[i].Cluster)
	}
	assert.InDelta(t, first.WCSS, second.WCSS, 1e-12)
}

func TestSegmentSilhouetteUndefined(t *testing.T) {
	customers := twoGroups()

	t.Run("single cluster", func(t *testing.T) {
		cfg := Config{K: 1, Seed: 7, Restarts: 2, MaxIterations: 10}
		res, err := Segment(context.Background(), customers, cfg)
		require.NoError(t, err)
		assert.Nil(t, res.Silhouette)
	})

	t.Run("as many clusters as customers", func(t *testing.T) {
		cfg := Config{K: len(customers), Seed: 7, Restarts: 2, MaxIterations: 10}
		res, err := Segment(context.Background(), customers, cfg)
		require.NoError(t, err)
		assert.Nil(t, res.Silhouette)
	})
}

func TestSegmentZeroVarianceFeature(t *testing.T) {
	customers := []model.CustomerRFM{
		{CustomerID: "a", Recency: 1, Frequency: 5, Monetary: 100},
		{CustomerID: "b", Recency: 50, Frequency: 2, Monetary: 100},
		{CustomerID: "c", Recency: 200, Frequency: 1, Monetary: 100},
	}
	cfg := Config{K: 2, Seed: 3, Restarts: 3, MaxIterations: 20}

	res, err := Segment(context.Background(), customers, cfg)
	require.NoError(t, err)
	require.NotNil(t, res.Silhouette)
	assert.False(t, *res.Silhouette != *res.Silhouette, "silhouette must not be NaN")
	for _, centroid := range res.Centroids {
		assert.InDelta(t, 100, centroid[2], 1e-9, "zero variance feature denormalizes to its mean")
	}
}

func TestSegmentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Segment(ctx, twoGroups(), DefaultConfig())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLabelCascade(t *testing.T) {
	customers := []model.CustomerRFM{
		{CustomerID: "c1", Recency: 2, Frequency: 12, Monetary: 9000},
		{CustomerID: "c2", Recency: 10, Frequency: 8, Monetary: 3000},
		{CustomerID: "c3", Recency: 30, Frequency: 7, Monetary: 2500},
		{CustomerID: "c4", Recency: 40, Frequency: 6, Monetary: 2000},
		{CustomerID: "c5", Recency: 60, Frequency: 4, Monetary: 900},
		{CustomerID: "c6", Recency: 120, Frequency: 3, Monetary: 500},
		{CustomerID: "c7", Recency: 180, Frequency: 2, Monetary: 200},
		{CustomerID: "c8", Recency: 220, Frequency: 1, Monetary: 100},
		{CustomerID: "c9", Recency: 30, Frequency: 3, Monetary: 1000},
	}

	labelCustomers(customers)

	want := map[string]string{
		"c1": model.SegmentChampions,
		"c2": model.SegmentChampions,
		"c3": model.SegmentChampions,
		"c4": model.SegmentLoyal,
		"c5": model.SegmentHibernating,
		"c6": model.SegmentAtRisk,
		"c7": model.SegmentAtRisk,
		"c8": model.SegmentAtRisk,
		"c9": model.SegmentRegulars,
	}
	for _, c := range customers {
		assert.Equal(t, want[c.CustomerID], c.Segment, "label for %s", c.CustomerID)
	}
}

func TestMarketingActions(t *testing.T) {
	assert.Equal(t, defaultActions[model.SegmentChampions], marketingActions(model.SegmentChampions, nil))

	override := map[string][]string{model.SegmentChampions: {"call them"}}
	assert.Equal(t, []string{"call them"}, marketingActions(model.SegmentChampions, override))

	assert.Equal(t, []string{"General promotion"}, marketingActions("Unknown", nil))
}
