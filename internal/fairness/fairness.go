// Package fairness computes distributional metrics over per-building cost
// vectors. All functions are pure: inputs are never mutated and results are
// deterministic.
package fairness

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Report holds the fairness metrics for one scenario's cost vector.
type Report struct {
	// CoV is stddev/mean, 0 when the mean or spread is 0.
	CoV float64 `json:"cov"`
	// Gini is the pairwise-difference coefficient, 0 when all costs are
	// equal or sum to 0.
	Gini float64 `json:"gini"`
	// Jain is (Σc)²/(n·Σc²), 1 when n=1 or all costs are 0.
	Jain float64 `json:"jain"`
	// RangeRatio is max/min, +Inf when the minimum cost is 0.
	RangeRatio float64 `json:"range_ratio"`
	// Theil is the mean of r·ln(r) over positive cost/mean ratios.
	Theil float64 `json:"theil"`

	TotalCost float64 `json:"total_cost"`
	MeanCost  float64 `json:"mean_cost"`
	StdCost   float64 `json:"std_cost"`
	MinCost   float64 `json:"min_cost"`
	MaxCost   float64 `json:"max_cost"`
}

// Analyze computes the fairness report for an ordered per-building cost
// vector. An empty vector yields the degenerate report (Jain = 1).
func Analyze(costs []float64) Report {
	n := len(costs)
	if n == 0 {
		return Report{Jain: 1}
	}

	mean := stat.Mean(costs, nil)
	variance := 0.0
	total := 0.0
	sumSq := 0.0
	minCost := costs[0]
	maxCost := costs[0]
	for _, c := range costs {
		d := c - mean
		variance += d * d
		total += c
		sumSq += c * c
		if c < minCost {
			minCost = c
		}
		if c > maxCost {
			maxCost = c
		}
	}
	variance /= float64(n)
	std := math.Sqrt(variance)

	r := Report{
		TotalCost: total,
		MeanCost:  mean,
		StdCost:   std,
		MinCost:   minCost,
		MaxCost:   maxCost,
	}

	if mean != 0 && std != 0 {
		r.CoV = std / mean
	}
	r.Gini = gini(costs, total)
	r.Jain = jain(total, sumSq, n)
	r.RangeRatio = rangeRatio(minCost, maxCost)
	r.Theil = theil(costs, mean)
	return r
}

// gini evaluates (Σᵢ Σⱼ |cᵢ−cⱼ|) / (2n Σ cᵢ) via the sorted form.
func gini(costs []float64, total float64) float64 {
	if total == 0 {
		return 0
	}
	n := len(costs)
	sorted := make([]float64, n)
	copy(sorted, costs)
	sort.Float64s(sorted)

	weighted := 0.0
	for i, c := range sorted {
		weighted += c * float64(2*i-n+1)
	}
	return weighted / (float64(n) * total)
}

func jain(total, sumSq float64, n int) float64 {
	if sumSq == 0 {
		return 1
	}
	return total * total / (float64(n) * sumSq)
}

func rangeRatio(minCost, maxCost float64) float64 {
	if minCost == 0 {
		return math.Inf(1)
	}
	return maxCost / minCost
}

func theil(costs []float64, mean float64) float64 {
	if mean == 0 {
		return 0
	}
	sum := 0.0
	count := 0
	for _, c := range costs {
		ratio := c / mean
		if ratio > 0 {
			sum += ratio * math.Log(ratio)
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
