package bench

import "sort"

// Ranked pairs a scenario record with its ranking score.
type Ranked struct {
	Record ScenarioRecord `json:"record"`
	Score  float64        `json:"score"`
}

// Composite ranking weights. Cost dominates; fairness breaks near-ties.
const (
	costWeight     = 0.7
	fairnessWeight = 0.3
)

// RankByCost orders usable records by total community cost, cheapest first.
// The input slice is never mutated.
func RankByCost(records []ScenarioRecord) []Ranked {
	out := usable(records)
	for i := range out {
		out[i].Score = out[i].Record.Dispatch.TotalCost
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score < out[j].Score })
	return out
}

// RankComposite orders usable records by a weighted blend of normalized
// cost and cost CoV, best first. With a single record the score is 0.
func RankComposite(records []ScenarioRecord) []Ranked {
	out := usable(records)
	if len(out) == 0 {
		return out
	}

	costs := make([]float64, len(out))
	covs := make([]float64, len(out))
	for i := range out {
		costs[i] = out[i].Record.Dispatch.TotalCost
		covs[i] = out[i].Record.Fairness.CoV
	}
	normCost := normalize(costs)
	normCoV := normalize(covs)

	for i := range out {
		out[i].Score = costWeight*normCost[i] + fairnessWeight*normCoV[i]
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score < out[j].Score })
	return out
}

func usable(records []ScenarioRecord) []Ranked {
	out := make([]Ranked, 0, len(records))
	for i := range records {
		if records[i].Usable() && records[i].Dispatch != nil && records[i].Fairness != nil {
			out = append(out, Ranked{Record: records[i]})
		}
	}
	return out
}

// normalize maps values onto [0, 1]; a constant vector maps to all zeros.
func normalize(xs []float64) []float64 {
	lo, hi := xs[0], xs[0]
	for _, v := range xs[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	out := make([]float64, len(xs))
	if hi == lo {
		return out
	}
	for i, v := range xs {
		out[i] = (v - lo) / (hi - lo)
	}
	return out
}
