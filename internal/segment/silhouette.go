package segment

import "math"

// silhouette computes the mean silhouette coefficient over all points:
// (b-a)/max(a,b) where a is the mean distance to points in the same cluster
// and b the mean distance to the nearest other cluster. Points alone in
// their cluster contribute 0. Callers are responsible for only invoking
// this when the coefficient is defined (k > 1 and n > k).
func silhouette(points [][3]float64, assignment []int, k int) float64 {
	n := len(points)
	counts := make([]int, k)
	for _, a := range assignment {
		counts[a]++
	}

	var total float64
	for i, p := range points {
		own := assignment[i]
		if counts[own] <= 1 {
			continue
		}

		sums := make([]float64, k)
		for j, q := range points {
			if i == j {
				continue
			}
			sums[assignment[j]] += math.Sqrt(sqDist(p, q))
		}

		a := sums[own] / float64(counts[own]-1)
		b := math.Inf(1)
		for c := 0; c < k; c++ {
			if c == own || counts[c] == 0 {
				continue
			}
			if mean := sums[c] / float64(counts[c]); mean < b {
				b = mean
			}
		}

		if max := math.Max(a, b); max > 0 {
			total += (b - a) / max
		}
	}

	return total / float64(n)
}
