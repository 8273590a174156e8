package bench

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"tariff-bench/internal/model"
	"tariff-bench/internal/surrogate"
	"tariff-bench/internal/tariff"
)

// Sweep parameter names accepted by Sensitivity.
const (
	ParamExportRatio     = "export_ratio"
	ParamCommunitySpread = "community_spread"
	ParamTradingEff      = "trading_efficiency"
	ParamPriceScale      = "price_scale"
)

// Sweep defines a sensitivity study: the cross product of every parameter's
// value list, each combination solved (or predicted) as one scenario.
type Sweep struct {
	Tariff  tariff.Tariff
	Horizon int
	Trading model.TradingConfig

	// Params maps a parameter name to the values it sweeps over. Absent
	// parameters hold their defaults.
	Params map[string][]float64
}

func (s *Sweep) validate() error {
	if s.Tariff == nil {
		return &model.ValidationError{Reason: "sweep requires a base tariff"}
	}
	if s.Horizon <= 0 {
		return &model.ValidationError{Reason: "sweep horizon must be > 0"}
	}
	if len(s.Params) == 0 {
		return &model.ValidationError{Reason: "sweep requires at least one parameter"}
	}
	for name, values := range s.Params {
		switch name {
		case ParamExportRatio, ParamCommunitySpread, ParamTradingEff, ParamPriceScale:
		default:
			return &model.ValidationError{Reason: fmt.Sprintf("unknown sweep parameter %q", name)}
		}
		if len(values) == 0 {
			return &model.ValidationError{Reason: fmt.Sprintf("sweep parameter %q has no values", name)}
		}
	}
	return nil
}

// SweepPoint is one parameter combination with its outcome.
type SweepPoint struct {
	Values   map[string]float64 `json:"values"`
	Status   ScenarioStatus     `json:"status"`
	Cost     float64            `json:"cost"`
	Fairness float64            `json:"fairness"`
}

// SweepResult carries the evaluated grid plus each parameter's influence:
// the absolute Pearson correlation of its values against total cost and
// against the fairness metric over usable points.
type SweepResult struct {
	Mode              string             `json:"mode"`
	Points            []SweepPoint       `json:"points"`
	Influence         map[string]float64 `json:"influence"`
	FairnessInfluence map[string]float64 `json:"fairness_influence"`
}

// combinations expands the cross product in a stable order: parameter names
// sorted, last parameter varying fastest.
func (s *Sweep) combinations() ([]string, []map[string]float64) {
	names := make([]string, 0, len(s.Params))
	for name := range s.Params {
		names = append(names, name)
	}
	sort.Strings(names)

	total := 1
	for _, name := range names {
		total *= len(s.Params[name])
	}

	combos := make([]map[string]float64, 0, total)
	idx := make([]int, len(names))
	for {
		combo := make(map[string]float64, len(names))
		for i, name := range names {
			combo[name] = s.Params[name][idx[i]]
		}
		combos = append(combos, combo)

		k := len(names) - 1
		for k >= 0 {
			idx[k]++
			if idx[k] < len(s.Params[names[k]]) {
				break
			}
			idx[k] = 0
			k--
		}
		if k < 0 {
			return names, combos
		}
	}
}

func (s *Sweep) scenario(combo map[string]float64) (model.PriceProfile, model.TradingConfig) {
	exportRatio := tariff.DefaultExportRatio
	spread := tariff.DefaultCommunitySpread
	scale := 1.0
	trading := s.Trading

	if v, ok := combo[ParamExportRatio]; ok {
		exportRatio = v
	}
	if v, ok := combo[ParamCommunitySpread]; ok {
		spread = v
	}
	if v, ok := combo[ParamPriceScale]; ok {
		scale = v
	}
	if v, ok := combo[ParamTradingEff]; ok {
		trading.Efficiency = v
	}

	prices := tariff.ProfileWith(s.Tariff, s.Horizon, exportRatio, spread)
	if scale != 1.0 {
		prices = tariff.Scale(prices, scale)
	}
	return prices, trading
}

func comboName(names []string, combo map[string]float64) string {
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%.3f", name, combo[name])
	}
	return strings.Join(parts, ",")
}

// Sensitivity evaluates the sweep with exact solves through the
// orchestrator's worker pool.
func (o *Orchestrator) Sensitivity(ctx context.Context, community []model.Building, sweep *Sweep) (*SweepResult, error) {
	if err := sweep.validate(); err != nil {
		return nil, err
	}
	names, combos := sweep.combinations()

	scenarios := make([]ScenarioSpec, len(combos))
	for i, combo := range combos {
		prices, trading := sweep.scenario(combo)
		scenarios[i] = ScenarioSpec{
			Name:    comboName(names, combo),
			Prices:  prices,
			Trading: trading,
		}
	}

	batch, err := o.Run(ctx, community, scenarios)
	if err != nil {
		return nil, err
	}

	result := &SweepResult{Mode: "exact", Points: make([]SweepPoint, len(combos))}
	for i := range batch.Records {
		rec := &batch.Records[i]
		point := SweepPoint{Values: combos[i], Status: rec.Status}
		if rec.Usable() && rec.Dispatch != nil && rec.Fairness != nil {
			point.Cost = rec.Dispatch.TotalCost
			point.Fairness = rec.Fairness.CoV
		}
		result.Points[i] = point
	}
	result.Influence = influence(names, result.Points, func(p *SweepPoint) float64 { return p.Cost })
	result.FairnessInfluence = influence(names, result.Points, func(p *SweepPoint) float64 { return p.Fairness })
	return result, nil
}

// SensitivitySurrogate evaluates the sweep with surrogate predictions
// instead of exact solves. Every point reports success.
func SensitivitySurrogate(sweep *Sweep, m *surrogate.Model) (*SweepResult, error) {
	if err := sweep.validate(); err != nil {
		return nil, err
	}
	names, combos := sweep.combinations()

	result := &SweepResult{Mode: "surrogate", Points: make([]SweepPoint, len(combos))}
	for i, combo := range combos {
		prices, trading := sweep.scenario(combo)
		cost, fair, err := m.PredictScenario(prices, trading)
		if err != nil {
			return nil, err
		}
		result.Points[i] = SweepPoint{
			Values:   combo,
			Status:   ScenarioSuccess,
			Cost:     cost,
			Fairness: fair,
		}
	}
	result.Influence = influence(names, result.Points, func(p *SweepPoint) float64 { return p.Cost })
	result.FairnessInfluence = influence(names, result.Points, func(p *SweepPoint) float64 { return p.Fairness })
	return result, nil
}

// influence computes |corr(param, outcome)| over usable points. Parameters
// with fewer than two distinct values, or a degenerate correlation, score 0.
func influence(names []string, points []SweepPoint, outcome func(*SweepPoint) float64) map[string]float64 {
	out := make(map[string]float64, len(names))
	for _, name := range names {
		var xs, ys []float64
		for i := range points {
			if points[i].Status != ScenarioSuccess && points[i].Status != ScenarioDegraded {
				continue
			}
			xs = append(xs, points[i].Values[name])
			ys = append(ys, outcome(&points[i]))
		}
		out[name] = 0
		if len(xs) < 2 {
			continue
		}
		r := stat.Correlation(xs, ys, nil)
		if !math.IsNaN(r) {
			out[name] = math.Abs(r)
		}
	}
	return out
}
