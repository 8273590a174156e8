package models

import "tariff-bench/internal/model"

// ScenarioInput describes one scenario to benchmark. Either a named tariff
// (tou, cpp, rtp, edr) or an explicit price profile must be given.
type ScenarioInput struct {
	Name    string              `json:"name,omitempty"`
	Tariff  string              `json:"tariff,omitempty"`
	Prices  *model.PriceProfile `json:"prices,omitempty"`
	Trading model.TradingConfig `json:"trading"`

	// Named-tariff knobs. Zero values fall back to server defaults.
	PriceScale      float64 `json:"price_scale,omitempty"`
	ExportRatio     float64 `json:"export_ratio,omitempty"`
	CommunitySpread float64 `json:"community_spread,omitempty"`
}

// BenchmarkRequest represents the request body for running a benchmark batch
type BenchmarkRequest struct {
	Scenarios []ScenarioInput `json:"scenarios" binding:"required"`

	// Buildings overrides the server's configured community when non-empty.
	Buildings []model.Building `json:"buildings,omitempty"`

	// IncludeDispatch attaches the full per-building dispatch series to
	// each record. Default: headline figures only.
	IncludeDispatch bool `json:"include_dispatch,omitempty"`
}

// PredictRequest asks the surrogate for a cost/fairness estimate
type PredictRequest struct {
	Scenario ScenarioInput `json:"scenario" binding:"required"`
}

// SensitivityRequest defines a parameter sweep
type SensitivityRequest struct {
	Tariff  string              `json:"tariff" binding:"required"`
	Trading model.TradingConfig `json:"trading"`

	// Params maps sweep parameter names (export_ratio, community_spread,
	// trading_efficiency, price_scale) to the values they take.
	Params map[string][]float64 `json:"params" binding:"required"`

	// Mode is "exact" (default) or "surrogate".
	Mode string `json:"mode,omitempty"`
}
