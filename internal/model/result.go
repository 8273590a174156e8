package model

import "time"

// SolveStatus classifies the outcome of one dispatch solve.
type SolveStatus string

const (
	// StatusOptimal: the solver reported an optimal solution and the
	// energy-balance residual is within tolerance.
	StatusOptimal SolveStatus = "OPTIMAL"
	// StatusDegraded: a solution exists but is not verified optimal, or
	// its balance residual exceeds tolerance. Usable with caveats.
	StatusDegraded SolveStatus = "DEGRADED"
	// StatusTimeout: the solve exceeded its deadline. No series available.
	StatusTimeout SolveStatus = "TIMEOUT"
)

// BuildingDispatch is the solved dispatch of one building. All series have
// horizon length except SOCKWh, which carries the initial state first and
// therefore has horizon+1 points.
type BuildingDispatch struct {
	BuildingID string `json:"building_id"`

	ChargeKWh    []float64 `json:"charge_kwh"`
	DischargeKWh []float64 `json:"discharge_kwh"`
	SOCKWh       []float64 `json:"soc_kwh"`

	ImportKWh []float64 `json:"import_kwh"`
	ExportKWh []float64 `json:"export_kwh"`

	// TradeInKWh is delivered energy received from the community,
	// TradeOutKWh is energy sent (before transfer losses).
	TradeInKWh  []float64 `json:"trade_in_kwh"`
	TradeOutKWh []float64 `json:"trade_out_kwh"`

	ServedLoadKWh []float64 `json:"served_load_kwh"`

	// Cost is the building's net cost including community settlement
	// (positive = pays, negative = earns).
	Cost float64 `json:"cost"`
}

// DispatchResult is the outcome of a single-scenario dispatch solve.
type DispatchResult struct {
	Status SolveStatus `json:"status"`
	// StatusDetail explains a degraded or timed-out status.
	StatusDetail string `json:"status_detail,omitempty"`

	Objective float64       `json:"objective"`
	TotalCost float64       `json:"total_cost"`
	SolveTime time.Duration `json:"solve_time_ns"`

	// MaxBalanceResidual is the largest per-building per-interval
	// energy-balance residual observed in the solution.
	MaxBalanceResidual float64 `json:"max_balance_residual"`

	Buildings []BuildingDispatch `json:"buildings"`
}

// BuildingCosts returns the per-building cost vector in building order.
func (r *DispatchResult) BuildingCosts() []float64 {
	costs := make([]float64, len(r.Buildings))
	for i := range r.Buildings {
		costs[i] = r.Buildings[i].Cost
	}
	return costs
}
