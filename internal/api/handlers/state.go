package handlers

import (
	"fmt"
	"sync"

	"tariff-bench/internal/api/models"
	"tariff-bench/internal/bench"
	"tariff-bench/internal/config"
	"tariff-bench/internal/model"
	"tariff-bench/internal/surrogate"
	"tariff-bench/internal/tariff"
)

// State is the shared server state: the configured community, the solver
// pool, the accumulated scenario records and the surrogate trained on them.
type State struct {
	Cfg       *config.Config
	Community []model.Building
	Horizon   int
	Orc       *bench.Orchestrator

	mu        sync.Mutex
	records   []bench.ScenarioRecord
	surrogate *surrogate.Model
}

func NewState(cfg *config.Config, community []model.Building, horizon int, orc *bench.Orchestrator) *State {
	return &State{
		Cfg:       cfg,
		Community: community,
		Horizon:   horizon,
		Orc:       orc,
		surrogate: surrogate.New(surrogate.DefaultGBTParams()),
	}
}

// AppendRecords adds a batch's records to the training pool.
func (s *State) AppendRecords(recs []bench.ScenarioRecord) {
	s.mu.Lock()
	s.records = append(s.records, recs...)
	s.mu.Unlock()
}

// Records returns a copy of the accumulated records.
func (s *State) Records() []bench.ScenarioRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]bench.ScenarioRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Surrogate returns the shared surrogate model.
func (s *State) Surrogate() *surrogate.Model { return s.surrogate }

// tariffByName resolves the named tariffs exposed by the API.
func tariffByName(name string, seed uint64) (tariff.Tariff, error) {
	switch name {
	case "tou":
		return tariff.NewTimeOfUse(), nil
	case "cpp":
		return tariff.NewCriticalPeak(), nil
	case "rtp":
		return tariff.NewRealTime(seed), nil
	case "edr":
		return tariff.NewEmergencyDR(), nil
	default:
		return nil, fmt.Errorf("unknown tariff %q (want tou, cpp, rtp or edr)", name)
	}
}

// resolveScenario turns a scenario input into a solver-ready spec against
// the given horizon.
func (s *State) resolveScenario(in models.ScenarioInput, index, horizon int) (bench.ScenarioSpec, error) {
	spec := bench.ScenarioSpec{Name: in.Name, Trading: in.Trading}

	switch {
	case in.Prices != nil:
		if err := in.Prices.Validate(); err != nil {
			return spec, err
		}
		if in.Prices.Horizon() != horizon {
			return spec, fmt.Errorf("prices cover %d intervals, community has %d", in.Prices.Horizon(), horizon)
		}
		spec.Prices = *in.Prices
	case in.Tariff != "":
		t, err := tariffByName(in.Tariff, s.Cfg.Tariffs.Seed)
		if err != nil {
			return spec, err
		}
		exportRatio := in.ExportRatio
		if exportRatio == 0 {
			exportRatio = s.Cfg.Tariffs.ExportRatio
		}
		spread := in.CommunitySpread
		if spread == 0 {
			spread = s.Cfg.Tariffs.CommunitySpread
		}
		prices := tariff.ProfileWith(t, horizon, exportRatio, spread)
		if in.PriceScale != 0 && in.PriceScale != 1 {
			prices = tariff.Scale(prices, in.PriceScale)
		}
		spec.Prices = prices
		if spec.Name == "" {
			spec.Name = in.Tariff
		}
	default:
		return spec, fmt.Errorf("scenario %d: either tariff or prices is required", index)
	}

	if spec.Name == "" {
		spec.Name = fmt.Sprintf("scenario-%d", index)
	}
	return spec, nil
}
