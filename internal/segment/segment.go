// Package segment groups customers into behavioral segments. It combines
// centroid-based clustering over standardized RFM features with a
// quartile-driven rule cascade that attaches a semantic label (Champions,
// Loyal, At-Risk, Hibernating, Regulars) independently of the numeric
// cluster id.
package segment

import (
	"context"
	"fmt"

	"github.com/Veraticus/mentat/internal/common"
	"github.com/Veraticus/mentat/internal/model"
)

// Config holds clustering parameters.
type Config struct {
	// Actions overrides the default marketing-action lookup per segment
	// label. Nil means use the built-in table.
	Actions map[string][]string

	K             int
	Seed          int64
	Restarts      int
	MaxIterations int
}

// DefaultConfig returns the default clustering configuration.
func DefaultConfig() Config {
	return Config{
		K:             4,
		Seed:          42,
		Restarts:      10,
		MaxIterations: 100,
	}
}

// Summary describes one semantic segment of the final assignment.
type Summary struct {
	SegmentName      string
	Characteristics  string
	MarketingActions []string
	CustomerCount    int
	TotalValue       float64
	AvgRecency       float64
	AvgFrequency     float64
	AvgMonetary      float64
}

// Result is the outcome of one segmentation run.
type Result struct {
	// Silhouette is nil when the coefficient is undefined: a single
	// cluster, or no more points than clusters.
	Silhouette *float64
	Customers  []model.CustomerRFM
	Summaries  []Summary
	// Centroids holds the cluster centers in original (denormalized)
	// R/F/M units, indexed by cluster id.
	Centroids [][3]float64
	WCSS      float64
}

// Segment clusters the customers and labels every one of them. The input is
// not modified; the returned customers carry cluster ids and segment labels.
// Restarts run concurrently; the restart with the lowest within-cluster sum
// of squares wins, with the lowest restart index breaking ties so a fixed
// seed always reproduces the same assignment.
func Segment(ctx context.Context, customers []model.CustomerRFM, cfg Config) (*Result, error) {
	if len(customers) == 0 {
		return nil, fmt.Errorf("segmenting customers: %w", common.ErrEmptyDataset)
	}
	if cfg.K < 1 {
		return nil, fmt.Errorf("segmenting customers: cluster count %d: %w", cfg.K, common.ErrInvalidConfig)
	}
	if cfg.K > len(customers) {
		return nil, fmt.Errorf("segmenting customers: %d clusters for %d customers: %w",
			cfg.K, len(customers), common.ErrTooManyClusters)
	}
	if cfg.Restarts < 1 {
		cfg.Restarts = 1
	}
	if cfg.MaxIterations < 1 {
		cfg.MaxIterations = 100
	}

	points, means, stds := standardize(customers)

	best, err := runRestarts(ctx, points, cfg)
	if err != nil {
		return nil, err
	}

	out := make([]model.CustomerRFM, len(customers))
	copy(out, customers)
	for i := range out {
		cluster := best.assignment[i]
		out[i].Cluster = &cluster
	}

	labelCustomers(out)

	centroids := make([][3]float64, cfg.K)
	for c := range centroids {
		for d := 0; d < 3; d++ {
			centroids[c][d] = best.centroids[c][d]*stds[d] + means[d]
		}
	}

	var sil *float64
	if cfg.K > 1 && len(points) > cfg.K {
		s := silhouette(points, best.assignment, cfg.K)
		sil = &s
	}

	return &Result{
		Customers:  out,
		Centroids:  centroids,
		Silhouette: sil,
		WCSS:       best.wcss,
		Summaries:  summarize(out, cfg.Actions),
	}, nil
}

// standardize converts customers to z-scored (recency, frequency, monetary)
// points. A zero-variance feature maps to a constant 0 column.
func standardize(customers []model.CustomerRFM) (points [][3]float64, means, stds [3]float64) {
	cols := [3][]float64{}
	for i := range cols {
		cols[i] = make([]float64, len(customers))
	}
	for i, c := range customers {
		cols[0][i] = float64(c.Recency)
		cols[1][i] = float64(c.Frequency)
		cols[2][i] = c.Monetary
	}

	for d := 0; d < 3; d++ {
		means[d] = common.Mean(cols[d])
		stds[d] = common.StdDev(cols[d])
	}

	points = make([][3]float64, len(customers))
	for i := range points {
		for d := 0; d < 3; d++ {
			if stds[d] == 0 {
				points[i][d] = 0
				continue
			}
			points[i][d] = (cols[d][i] - means[d]) / stds[d]
		}
	}
	return points, means, stds
}

func summarize(customers []model.CustomerRFM, actions map[string][]string) []Summary {
	order := make([]string, 0, 5)
	grouped := make(map[string][]model.CustomerRFM)
	for _, c := range customers {
		if _, ok := grouped[c.Segment]; !ok {
			order = append(order, c.Segment)
		}
		grouped[c.Segment] = append(grouped[c.Segment], c)
	}

	summaries := make([]Summary, 0, len(order))
	for _, name := range order {
		members := grouped[name]
		var totalValue, sumR, sumF float64
		for _, m := range members {
			totalValue += m.Monetary
			sumR += float64(m.Recency)
			sumF += float64(m.Frequency)
		}
		n := float64(len(members))
		avgR, avgF, avgM := sumR/n, sumF/n, totalValue/n

		summaries = append(summaries, Summary{
			SegmentName:      name,
			CustomerCount:    len(members),
			TotalValue:       totalValue,
			AvgRecency:       avgR,
			AvgFrequency:     avgF,
			AvgMonetary:      avgM,
			Characteristics:  characteristics(name, avgR, avgF, avgM),
			MarketingActions: marketingActions(name, actions),
		})
	}
	return summaries
}
