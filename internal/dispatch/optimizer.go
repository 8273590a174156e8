// Package dispatch builds and solves the per-scenario prosumer dispatch
// problem: battery operation, grid exchange, load shifting and optional
// peer-to-peer trading, minimising total community cost.
package dispatch

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/optimize/convex/lp"

	"tariff-bench/internal/linprog"
	"tariff-bench/internal/model"
)

var infinity = math.Inf(1)

// noiseFloor: solved series are rounded so solver noise does not leak into
// results as phantom micro-flows.
const noiseFloor = 1e-9

// Options configure the optimizer.
type Options struct {
	// IntervalHours converts battery power caps (kW) to per-interval
	// energy (kWh). Defaults to 1.
	IntervalHours float64

	// SolverTolerance is forwarded to the simplex routine; 0 selects its
	// default.
	SolverTolerance float64

	// BalanceTolerance is the largest acceptable energy-balance residual
	// before a solution is flagged degraded. Defaults to 1e-6.
	BalanceTolerance float64

	// Timeout bounds one solve. Zero means no limit. A timed-out solve is
	// reported as TIMEOUT; the in-flight simplex run is not interrupted,
	// its result is discarded.
	Timeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.IntervalHours <= 0 {
		o.IntervalHours = 1
	}
	if o.BalanceTolerance <= 0 {
		o.BalanceTolerance = 1e-6
	}
	return o
}

// Optimizer solves single-scenario dispatch problems. It is stateless
// between calls and safe for concurrent use.
type Optimizer struct {
	opts Options
}

func New(opts Options) *Optimizer {
	return &Optimizer{opts: opts.withDefaults()}
}

// buildingVars collects the LP variable indices for one building.
type buildingVars struct {
	imports []int
	exports []int
	battery *batteryVars
	load    []int // nil when the building is inflexible
}

// Solve builds one LP for the scenario and solves it.
//
// Returned errors: *model.ValidationError for malformed input (raised
// before any solve attempt) and *model.InfeasibleError when the solver
// proves no feasible dispatch. Degraded and timed-out solves return a
// result with the corresponding status and a nil error.
func (o *Optimizer) Solve(buildings []model.Building, prices model.PriceProfile, trading model.TradingConfig) (*model.DispatchResult, error) {
	if err := prices.Validate(); err != nil {
		return nil, err
	}
	horizon := prices.Horizon()
	if err := model.ValidateCommunity(buildings, horizon); err != nil {
		return nil, err
	}
	if err := trading.Validate(); err != nil {
		return nil, err
	}

	prob, vars, trades := o.buildProblem(buildings, prices, trading, horizon)

	start := time.Now()
	sol, err := o.solveWithTimeout(prob)
	elapsed := time.Since(start)

	switch {
	case err == nil:
		// fall through to extraction
	case errors.Is(err, lp.ErrInfeasible):
		return nil, &model.InfeasibleError{}
	case errors.Is(err, errTimeout):
		return &model.DispatchResult{
			Status:       model.StatusTimeout,
			StatusDetail: fmt.Sprintf("solve exceeded %s", o.opts.Timeout),
			SolveTime:    elapsed,
		}, nil
	default:
		return &model.DispatchResult{
			Status:       model.StatusDegraded,
			StatusDetail: fmt.Sprintf("solver: %v", err),
			SolveTime:    elapsed,
		}, nil
	}

	res := o.extract(sol, buildings, prices, trading, vars, trades, horizon)
	res.SolveTime = elapsed
	return res, nil
}

func (o *Optimizer) buildProblem(buildings []model.Building, prices model.PriceProfile, trading model.TradingConfig, horizon int) (*linprog.Problem, []buildingVars, *tradeVars) {
	n := len(buildings)
	prob := linprog.NewProblem()

	vars := make([]buildingVars, n)
	for i := range buildings {
		b := &buildings[i]
		bv := buildingVars{
			imports: make([]int, horizon),
			exports: make([]int, horizon),
		}
		for t := 0; t < horizon; t++ {
			bv.imports[t] = prob.AddVar(0, infinity, prices.ImportPrice[t])
			bv.exports[t] = prob.AddVar(0, infinity, -prices.ExportPrice[t])
		}
		bv.battery = addBattery(prob, b.Battery, horizon, o.opts.IntervalHours)
		if b.Flex != nil {
			bv.load = make([]int, horizon)
			for t := 0; t < horizon; t++ {
				bv.load[t] = prob.AddVar(b.Flex.MinLoadKWh[t], b.Flex.MaxLoadKWh[t], 0)
			}
			// Load shifting conserves total energy over the horizon.
			terms := make([]linprog.Term, horizon)
			for t := 0; t < horizon; t++ {
				terms[t] = linprog.Term{Var: bv.load[t], Coef: 1}
			}
			prob.AddRow(linprog.EQ, b.TotalLoadKWh(), terms...)
		}
		vars[i] = bv
	}

	trades := addTrading(prob, n, horizon, trading)
	if trades != nil {
		trades.addHubBalance(prob, horizon, trading.Efficiency)
	}

	for i := range buildings {
		b := &buildings[i]
		bv := &vars[i]
		var out, in []int
		if trades != nil {
			out = trades.outFlows(i)
			in = trades.inFlows(i)
		}
		for t := 0; t < horizon; t++ {
			// Energy balance:
			// load + charge + export + sentOut = PV + import + discharge + deliveredIn
			terms := []linprog.Term{
				{Var: bv.exports[t], Coef: 1},
				{Var: bv.imports[t], Coef: -1},
			}
			rhs := b.PVKWh[t]
			if bv.load != nil {
				terms = append(terms, linprog.Term{Var: bv.load[t], Coef: 1})
			} else {
				rhs -= b.LoadKWh[t]
			}
			if bv.battery != nil {
				terms = append(terms,
					linprog.Term{Var: bv.battery.charge[t], Coef: 1},
					linprog.Term{Var: bv.battery.discharge[t], Coef: -1},
				)
			}
			for _, pi := range out {
				terms = append(terms, linprog.Term{Var: trades.flows[pi][t], Coef: 1})
			}
			for _, pi := range in {
				terms = append(terms, linprog.Term{Var: trades.flows[pi][t], Coef: -trading.Efficiency})
			}
			prob.AddRow(linprog.EQ, rhs, terms...)

			// Export surplus: outbound energy must come from own PV or
			// storage, never from grid imports or received trades.
			surplus := []linprog.Term{{Var: bv.exports[t], Coef: 1}}
			if bv.battery != nil {
				surplus = append(surplus, linprog.Term{Var: bv.battery.discharge[t], Coef: -1})
			}
			for _, pi := range out {
				surplus = append(surplus, linprog.Term{Var: trades.flows[pi][t], Coef: 1})
			}
			prob.AddRow(linprog.LE, b.PVKWh[t], surplus...)
		}
	}

	return prob, vars, trades
}

var errTimeout = errors.New("dispatch: solve timed out")

func (o *Optimizer) solveWithTimeout(prob *linprog.Problem) (*linprog.Solution, error) {
	type out struct {
		sol *linprog.Solution
		err error
	}
	if o.opts.Timeout <= 0 {
		return linprog.Solve(prob, o.opts.SolverTolerance)
	}
	ch := make(chan out, 1)
	go func() {
		sol, err := linprog.Solve(prob, o.opts.SolverTolerance)
		ch <- out{sol, err}
	}()
	select {
	case r := <-ch:
		return r.sol, r.err
	case <-time.After(o.opts.Timeout):
		return nil, errTimeout
	}
}

func (o *Optimizer) extract(sol *linprog.Solution, buildings []model.Building, prices model.PriceProfile, trading model.TradingConfig, vars []buildingVars, trades *tradeVars, horizon int) *model.DispatchResult {
	n := len(buildings)
	x := sol.X

	credit, charge := trades.settlement(x, prices.CommunityPrice, n, horizon, trading.Efficiency)

	res := &model.DispatchResult{
		Status:    model.StatusOptimal,
		Objective: sol.Objective,
		Buildings: make([]model.BuildingDispatch, n),
	}

	maxResidual := 0.0
	for i := range buildings {
		b := &buildings[i]
		bv := &vars[i]

		bd := model.BuildingDispatch{
			BuildingID:    b.ID,
			ChargeKWh:     make([]float64, horizon),
			DischargeKWh:  make([]float64, horizon),
			SOCKWh:        make([]float64, horizon+1),
			ImportKWh:     make([]float64, horizon),
			ExportKWh:     make([]float64, horizon),
			TradeInKWh:    make([]float64, horizon),
			TradeOutKWh:   make([]float64, horizon),
			ServedLoadKWh: make([]float64, horizon),
		}
		bd.SOCKWh[0] = b.Battery.InitialSOCKWh

		var out, in []int
		if trades != nil {
			out = trades.outFlows(i)
			in = trades.inFlows(i)
		}

		for t := 0; t < horizon; t++ {
			bd.ImportKWh[t] = clean(x[bv.imports[t]])
			bd.ExportKWh[t] = clean(x[bv.exports[t]])
			if bv.battery != nil {
				bd.ChargeKWh[t] = clean(x[bv.battery.charge[t]])
				bd.DischargeKWh[t] = clean(x[bv.battery.discharge[t]])
				bd.SOCKWh[t+1] = clean(x[bv.battery.soc[t]])
			} else {
				bd.SOCKWh[t+1] = bd.SOCKWh[0]
			}
			if bv.load != nil {
				bd.ServedLoadKWh[t] = clean(x[bv.load[t]])
			} else {
				bd.ServedLoadKWh[t] = b.LoadKWh[t]
			}
			for _, pi := range out {
				bd.TradeOutKWh[t] += clean(x[trades.flows[pi][t]])
			}
			for _, pi := range in {
				bd.TradeInKWh[t] += trading.Efficiency * clean(x[trades.flows[pi][t]])
			}

			bd.Cost += prices.ImportPrice[t]*bd.ImportKWh[t] - prices.ExportPrice[t]*bd.ExportKWh[t]
			bd.Cost += charge[i][t] - credit[i][t]

			residual := bd.ServedLoadKWh[t] + bd.ChargeKWh[t] - bd.DischargeKWh[t] -
				b.PVKWh[t] - bd.ImportKWh[t] + bd.ExportKWh[t] -
				(bd.TradeInKWh[t] - bd.TradeOutKWh[t])
			if r := math.Abs(residual); r > maxResidual {
				maxResidual = r
			}
		}

		res.TotalCost += bd.Cost
		res.Buildings[i] = bd
	}

	res.MaxBalanceResidual = maxResidual
	if maxResidual > o.opts.BalanceTolerance {
		res.Status = model.StatusDegraded
		res.StatusDetail = fmt.Sprintf("energy balance residual %.3g exceeds tolerance %.3g", maxResidual, o.opts.BalanceTolerance)
	}
	return res
}

func clean(v float64) float64 {
	if math.Abs(v) < noiseFloor {
		return 0
	}
	return v
}
