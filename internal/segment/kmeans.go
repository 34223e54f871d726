package segment

import (
	"context"
	"math"
	"math/rand"
	"sync"
)

// restartResult holds one converged k-means run.
type restartResult struct {
	assignment []int
	centroids  [][3]float64
	wcss       float64
}

// runRestarts executes cfg.Restarts independent k-means runs concurrently
// and returns the one with the lowest within-cluster sum of squares. Each
// restart derives its own deterministic source from the configured seed, so
// the winner is stable across runs and across scheduling order.
func runRestarts(ctx context.Context, points [][3]float64, cfg Config) (*restartResult, error) {
	results := make([]*restartResult, cfg.Restarts)

	var wg sync.WaitGroup
	for r := 0; r < cfg.Restarts; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(cfg.Seed + int64(r)))
			results[r] = kmeans(ctx, points, cfg.K, cfg.MaxIterations, rng)
		}(r)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var best *restartResult
	for _, res := range results {
		if res == nil {
			continue
		}
		if best == nil || res.wcss < best.wcss {
			best = res
		}
	}
	if best == nil {
		return nil, context.Canceled
	}
	return best, nil
}

// kmeans runs Lloyd's algorithm once: seed centroids from k distinct
// points, then alternate nearest-centroid assignment and mean recomputation
// until the assignment is stable or maxIter is hit. Returns nil if the
// context is cancelled mid-run.
func kmeans(ctx context.Context, points [][3]float64, k, maxIter int, rng *rand.Rand) *restartResult {
	centroids := make([][3]float64, k)
	for i, idx := range rng.Perm(len(points))[:k] {
		centroids[i] = points[idx]
	}

	assignment := make([]int, len(points))
	for i := range assignment {
		assignment[i] = -1
	}

	for iter := 0; iter < maxIter; iter++ {
		if ctx.Err() != nil {
			return nil
		}

		changed := false
		for i, p := range points {
			nearest := nearestCentroid(p, centroids)
			if nearest != assignment[i] {
				assignment[i] = nearest
				changed = true
			}
		}

		repairEmptyClusters(points, assignment, centroids, k)

		if !changed {
			break
		}

		recomputeCentroids(points, assignment, centroids, k)
	}

	return &restartResult{
		assignment: assignment,
		centroids:  centroids,
		wcss:       wcss(points, assignment, centroids),
	}
}

func nearestCentroid(p [3]float64, centroids [][3]float64) int {
	best, bestDist := 0, math.Inf(1)
	for c, centroid := range centroids {
		if d := sqDist(p, centroid); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// repairEmptyClusters keeps every cluster populated by stealing the point
// farthest from its assigned centroid. Without this, a bad seed could
// silently produce fewer than k clusters.
func repairEmptyClusters(points [][3]float64, assignment []int, centroids [][3]float64, k int) {
	counts := make([]int, k)
	for _, a := range assignment {
		counts[a]++
	}

	for c := 0; c < k; c++ {
		if counts[c] > 0 {
			continue
		}
		farthest, farthestDist := -1, -1.0
		for i, p := range points {
			if counts[assignment[i]] <= 1 {
				continue
			}
			if d := sqDist(p, centroids[assignment[i]]); d > farthestDist {
				farthest, farthestDist = i, d
			}
		}
		if farthest < 0 {
			continue
		}
		counts[assignment[farthest]]--
		assignment[farthest] = c
		counts[c] = 1
		centroids[c] = points[farthest]
	}
}

func recomputeCentroids(points [][3]float64, assignment []int, centroids [][3]float64, k int) {
	sums := make([][3]float64, k)
	counts := make([]int, k)
	for i, p := range points {
		c := assignment[i]
		for d := 0; d < 3; d++ {
			sums[c][d] += p[d]
		}
		counts[c]++
	}
	for c := 0; c < k; c++ {
		if counts[c] == 0 {
			continue
		}
		for d := 0; d < 3; d++ {
			centroids[c][d] = sums[c][d] / float64(counts[c])
		}
	}
}

func wcss(points [][3]float64, assignment []int, centroids [][3]float64) float64 {
	var total float64
	for i, p := range points {
		total += sqDist(p, centroids[assignment[i]])
	}
	return total
}

func sqDist(a, b [3]float64) float64 {
	var sum float64
	for d := 0; d < 3; d++ {
		diff := a[d] - b[d]
		sum += diff * diff
	}
	return sum
}
