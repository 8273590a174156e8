// Package bench runs batches of tariff/trading scenarios against the exact
// dispatch optimizer, collects per-scenario cost and fairness outcomes, and
// feeds the surrogate's training set.
package bench

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"tariff-bench/internal/dispatch"
	"tariff-bench/internal/fairness"
	"tariff-bench/internal/model"
	"tariff-bench/internal/surrogate"
)

// ScenarioStatus classifies one scenario's outcome within a batch.
type ScenarioStatus string

const (
	// ScenarioSuccess: solved to verified optimality.
	ScenarioSuccess ScenarioStatus = "success"
	// ScenarioInfeasible: the scenario's constraints admit no solution.
	ScenarioInfeasible ScenarioStatus = "infeasible"
	// ScenarioDegraded: a solution exists but optimality or balance
	// verification failed.
	ScenarioDegraded ScenarioStatus = "degraded"
	// ScenarioTimeout: the solve hit its deadline before finishing.
	ScenarioTimeout ScenarioStatus = "timeout"
	// ScenarioFailed: validation or an unexpected solver error.
	ScenarioFailed ScenarioStatus = "failed"
)

// ScenarioSpec is one scenario to benchmark. Buildings overrides the batch
// community when non-nil, which lets a batch probe sensitivity to community
// composition alongside prices.
type ScenarioSpec struct {
	Name      string              `json:"name"`
	Prices    model.PriceProfile  `json:"prices"`
	Trading   model.TradingConfig `json:"trading"`
	Buildings []model.Building    `json:"buildings,omitempty"`
}

// ScenarioRecord is the outcome of one scenario. Dispatch and Fairness are
// nil unless the scenario produced a usable solution.
type ScenarioRecord struct {
	Index   int                 `json:"index"`
	Name    string              `json:"name"`
	Prices  model.PriceProfile  `json:"-"`
	Trading model.TradingConfig `json:"trading"`

	Status ScenarioStatus `json:"status"`
	Error  string         `json:"error,omitempty"`

	Dispatch *model.DispatchResult `json:"dispatch,omitempty"`
	Fairness *fairness.Report      `json:"fairness,omitempty"`
}

// Usable reports whether the record carries a solution worth analysing.
func (r *ScenarioRecord) Usable() bool {
	return r.Status == ScenarioSuccess || r.Status == ScenarioDegraded
}

// BatchResult is the outcome of a whole benchmark run. Records preserve
// scenario order regardless of completion order.
type BatchResult struct {
	RunID      string           `json:"run_id"`
	StartedAt  time.Time        `json:"started_at"`
	Elapsed    time.Duration    `json:"elapsed_ns"`
	Records    []ScenarioRecord `json:"records"`
	Succeeded  int              `json:"succeeded"`
	Infeasible int              `json:"infeasible"`
	Degraded   int              `json:"degraded"`
	TimedOut   int              `json:"timed_out"`
	Failed     int              `json:"failed"`
}

// Orchestrator fans scenarios out over a bounded worker pool. Safe for
// concurrent use.
type Orchestrator struct {
	opt     *dispatch.Optimizer
	workers int
}

// DefaultWorkers bounds the solver pool when no worker count is given.
const DefaultWorkers = 4

func NewOrchestrator(opt *dispatch.Optimizer, workers int) *Orchestrator {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Orchestrator{opt: opt, workers: workers}
}

// Run benchmarks every scenario against the community. Individual scenario
// failures are recorded, never returned: the only error cases are an empty
// batch and context cancellation before all scenarios launched.
func (o *Orchestrator) Run(ctx context.Context, community []model.Building, scenarios []ScenarioSpec) (*BatchResult, error) {
	if len(scenarios) == 0 {
		return nil, &model.ValidationError{Reason: "at least one scenario is required"}
	}

	batch := &BatchResult{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		Records:   make([]ScenarioRecord, len(scenarios)),
	}

	parent := ctx
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)

	for i := range scenarios {
		if err := ctx.Err(); err != nil {
			batch.Records[i] = ScenarioRecord{
				Index:   i,
				Name:    scenarios[i].Name,
				Trading: scenarios[i].Trading,
				Status:  ScenarioFailed,
				Error:   err.Error(),
			}
			continue
		}
		i := i
		g.Go(func() error {
			batch.Records[i] = o.runScenario(community, i, scenarios[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range batch.Records {
		switch batch.Records[i].Status {
		case ScenarioSuccess:
			batch.Succeeded++
		case ScenarioInfeasible:
			batch.Infeasible++
		case ScenarioDegraded:
			batch.Degraded++
		case ScenarioTimeout:
			batch.TimedOut++
		default:
			batch.Failed++
		}
	}
	batch.Elapsed = time.Since(batch.StartedAt)
	return batch, parent.Err()
}

func (o *Orchestrator) runScenario(community []model.Building, index int, sc ScenarioSpec) ScenarioRecord {
	rec := ScenarioRecord{
		Index:   index,
		Name:    sc.Name,
		Prices:  sc.Prices,
		Trading: sc.Trading,
	}
	buildings := community
	if sc.Buildings != nil {
		buildings = sc.Buildings
	}

	result, err := o.opt.Solve(buildings, sc.Prices, sc.Trading)
	if err != nil {
		var infeasible *model.InfeasibleError
		if errors.As(err, &infeasible) {
			rec.Status = ScenarioInfeasible
			if infeasible.Scenario == "" {
				infeasible.Scenario = sc.Name
			}
			rec.Error = infeasible.Error()
			return rec
		}
		rec.Status = ScenarioFailed
		rec.Error = err.Error()
		return rec
	}

	switch result.Status {
	case model.StatusOptimal:
		rec.Status = ScenarioSuccess
	case model.StatusDegraded:
		rec.Status = ScenarioDegraded
		rec.Error = result.StatusDetail
	case model.StatusTimeout:
		rec.Status = ScenarioTimeout
		rec.Error = result.StatusDetail
		return rec
	default:
		rec.Status = ScenarioFailed
		rec.Error = fmt.Sprintf("unexpected solve status %q", result.Status)
		return rec
	}

	rec.Dispatch = result
	report := fairness.Analyze(result.BuildingCosts())
	rec.Fairness = &report
	return rec
}

// TrainingDataset converts usable batch records into surrogate training
// rows: scenario features against exact total cost and cost CoV.
func TrainingDataset(records []ScenarioRecord) *surrogate.Dataset {
	ds := &surrogate.Dataset{}
	for i := range records {
		rec := &records[i]
		if !rec.Usable() || rec.Dispatch == nil || rec.Fairness == nil {
			continue
		}
		ds.Append(surrogate.Features(rec.Prices, rec.Trading), rec.Dispatch.TotalCost, rec.Fairness.CoV)
	}
	return ds
}
