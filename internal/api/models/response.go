package models

import (
	"math"

	"tariff-bench/internal/bench"
	"tariff-bench/internal/fairness"
	"tariff-bench/internal/model"
	"tariff-bench/internal/surrogate"
)

// BenchmarkResponse represents the outcome of a benchmark batch
type BenchmarkResponse struct {
	RunID      string            `json:"run_id"`
	Succeeded  int               `json:"succeeded"`
	Infeasible int               `json:"infeasible"`
	Degraded   int               `json:"degraded"`
	TimedOut   int               `json:"timed_out"`
	Failed     int               `json:"failed"`
	Records    []ScenarioSummary `json:"records"`
	Rankings   []Ranking         `json:"rankings"`
}

// ScenarioSummary is the headline view of one scenario record
type ScenarioSummary struct {
	Index    int                   `json:"index"`
	Name     string                `json:"name"`
	Status   string                `json:"status"`
	Error    string                `json:"error,omitempty"`
	Trading  model.TradingConfig   `json:"trading"`
	Cost     *CostSummary          `json:"cost,omitempty"`
	Fairness *FairnessSummary      `json:"fairness,omitempty"`
	Dispatch *model.DispatchResult `json:"dispatch,omitempty"`
}

// CostSummary contains the aggregate cost figures of a solved scenario
type CostSummary struct {
	TotalCost   float64 `json:"total_cost"`
	MeanCost    float64 `json:"mean_cost"`
	MinCost     float64 `json:"min_cost"`
	MaxCost     float64 `json:"max_cost"`
	SolveTimeMS float64 `json:"solve_time_ms"`
}

// FairnessSummary mirrors fairness.Report with JSON-safe numbers: a range
// ratio of +Inf (some building pays nothing) is omitted.
type FairnessSummary struct {
	CoV        float64  `json:"cov"`
	Gini       float64  `json:"gini"`
	Jain       float64  `json:"jain"`
	RangeRatio *float64 `json:"range_ratio,omitempty"`
	Theil      float64  `json:"theil"`
}

// Ranking represents one ranked scenario
type Ranking struct {
	Rank  int     `json:"rank"`
	Index int     `json:"index"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// TariffInfo describes one named tariff and its price series
type TariffInfo struct {
	Name   string    `json:"name"`
	Prices []float64 `json:"prices"`
}

// TrainResponse reports surrogate training quality
type TrainResponse struct {
	Samples int               `json:"samples"`
	Metrics surrogate.Metrics `json:"metrics"`
}

// PredictResponse carries a surrogate estimate
type PredictResponse struct {
	Cost     float64 `json:"cost"`
	Fairness float64 `json:"fairness"`
}

// SensitivityResponse carries an evaluated sweep
type SensitivityResponse struct {
	Mode              string             `json:"mode"`
	Points            []bench.SweepPoint `json:"points"`
	Influence         map[string]float64 `json:"influence"`
	FairnessInfluence map[string]float64 `json:"fairness_influence"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// NewFairnessSummary converts a fairness report to its JSON-safe form.
func NewFairnessSummary(r *fairness.Report) *FairnessSummary {
	if r == nil {
		return nil
	}
	out := &FairnessSummary{CoV: r.CoV, Gini: r.Gini, Jain: r.Jain, Theil: r.Theil}
	if !math.IsInf(r.RangeRatio, 0) && !math.IsNaN(r.RangeRatio) {
		rr := r.RangeRatio
		out.RangeRatio = &rr
	}
	return out
}
