package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"tariff-bench/internal/bench"
	"tariff-bench/internal/config"
	"tariff-bench/internal/data"
	"tariff-bench/internal/dispatch"
	"tariff-bench/internal/model"
	"tariff-bench/internal/surrogate"
	"tariff-bench/internal/tariff"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "benchmark":
		cmdBenchmark(os.Args[2:])
	case "sensitivity":
		cmdSensitivity(os.Args[2:])
	case "train":
		cmdTrain(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("usage:")
	fmt.Println("  cli benchmark --config examples/config.yaml --out results/scenarios.csv")
	fmt.Println("  cli sensitivity --config examples/config.yaml --tariff tou --param export_ratio=0.2,0.4,0.6")
	fmt.Println("  cli train --config examples/config.yaml --out results/surrogate.json")
	fmt.Println("")
	fmt.Println("notes:")
	fmt.Println("  - benchmark runs every named tariff at every configured price scale")
	fmt.Println("  - train benchmarks a scenario grid first, then fits the surrogate on it")
}

func setup(cfgPath string) (*config.Config, []model.Building, int, *bench.Orchestrator) {
	cfg := config.Default()
	if cfgPath != "" {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			fatal(err)
		}
		cfg = loaded
	}

	var buildings []model.Building
	horizon := cfg.Synthetic.Horizon
	if cfg.CommunityFile != "" {
		cf, err := data.LoadCommunityJSON(cfg.CommunityFile)
		if err != nil {
			fatal(err)
		}
		buildings, horizon = cf.Buildings, cf.Horizon
	} else {
		buildings = data.SyntheticCommunity(data.SyntheticOptions{
			Buildings:    cfg.Synthetic.Buildings,
			Horizon:      cfg.Synthetic.Horizon,
			Seed:         cfg.Synthetic.Seed,
			BatteryShare: cfg.Synthetic.BatteryShare,
			PVShare:      cfg.Synthetic.PVShare,
			FlexShare:    cfg.Synthetic.FlexShare,
			FlexBand:     cfg.Synthetic.FlexBand,
		})
	}

	opt := dispatch.New(dispatch.Options{
		IntervalHours:    cfg.Solver.IntervalHours,
		SolverTolerance:  cfg.Solver.Tolerance,
		BalanceTolerance: cfg.Solver.BalanceTolerance,
		Timeout:          cfg.SolveTimeout(),
	})
	return cfg, buildings, horizon, bench.NewOrchestrator(opt, cfg.Solver.Workers)
}

// scenarioGrid crosses every named tariff with every configured price scale.
func scenarioGrid(cfg *config.Config, horizon int) []bench.ScenarioSpec {
	trading := cfg.ModelTrading()
	scales := cfg.Tariffs.PriceScales
	if len(scales) == 0 {
		scales = []float64{1.0}
	}

	var scenarios []bench.ScenarioSpec
	for _, t := range tariff.All(cfg.Tariffs.Seed) {
		base := tariff.ProfileWith(t, horizon, cfg.Tariffs.ExportRatio, cfg.Tariffs.CommunitySpread)
		for _, scale := range scales {
			prices := base
			if scale != 1.0 {
				prices = tariff.Scale(base, scale)
			}
			scenarios = append(scenarios, bench.ScenarioSpec{
				Name:    fmt.Sprintf("%s@%.2f", t.Name(), scale),
				Prices:  prices,
				Trading: trading,
			})
		}
	}
	return scenarios
}

func cmdBenchmark(args []string) {
	fs := flag.NewFlagSet("benchmark", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to YAML config")
	outPath := fs.String("out", "results/scenarios.csv", "Output CSV path")
	_ = fs.Parse(args)

	cfg, buildings, horizon, orc := setup(*cfgPath)
	scenarios := scenarioGrid(cfg, horizon)

	batch, err := orc.Run(context.Background(), buildings, scenarios)
	if err != nil {
		fatal(err)
	}

	fmt.Printf("run %s: %d succeeded, %d infeasible, %d degraded, %d timed out, %d failed (%.1fs)\n",
		batch.RunID, batch.Succeeded, batch.Infeasible, batch.Degraded, batch.TimedOut, batch.Failed,
		batch.Elapsed.Seconds())

	ranked := bench.RankComposite(batch.Records)
	for i, r := range ranked {
		fmt.Printf("%2d. %-12s cost=%9.2f cov=%.4f score=%.4f\n",
			i+1, r.Record.Name, r.Record.Dispatch.TotalCost, r.Record.Fairness.CoV, r.Score)
	}

	if *outPath != "" {
		if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
			fatal(err)
		}
		if err := bench.WriteScenarioCSV(*outPath, batch.Records); err != nil {
			fatal(err)
		}
		fmt.Printf("wrote %s\n", *outPath)
	}
}

func cmdSensitivity(args []string) {
	fs := flag.NewFlagSet("sensitivity", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to YAML config")
	tariffName := fs.String("tariff", "tou", "Base tariff (tou, cpp, rtp, edr)")
	var params paramFlags
	fs.Var(&params, "param", "Sweep parameter as name=v1,v2,... (repeatable)")
	_ = fs.Parse(args)

	cfg, buildings, horizon, orc := setup(*cfgPath)

	t, err := tariffFor(*tariffName, cfg.Tariffs.Seed)
	if err != nil {
		fatal(err)
	}
	if len(params.values) == 0 {
		fatal(fmt.Errorf("at least one --param is required"))
	}

	sweep := &bench.Sweep{
		Tariff:  t,
		Horizon: horizon,
		Trading: cfg.ModelTrading(),
		Params:  params.values,
	}
	result, err := orc.Sensitivity(context.Background(), buildings, sweep)
	if err != nil {
		fatal(err)
	}

	names := make([]string, 0, len(result.Influence))
	for name := range result.Influence {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return result.Influence[names[i]] > result.Influence[names[j]]
	})
	fmt.Printf("%d points evaluated\n", len(result.Points))
	for _, name := range names {
		fmt.Printf("  %-20s cost=%.4f fairness=%.4f\n",
			name, result.Influence[name], result.FairnessInfluence[name])
	}
}

func cmdTrain(args []string) {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to YAML config")
	outPath := fs.String("out", "results/surrogate.json", "Output model path")
	_ = fs.Parse(args)

	cfg, buildings, horizon, orc := setup(*cfgPath)
	scenarios := scenarioGrid(cfg, horizon)

	batch, err := orc.Run(context.Background(), buildings, scenarios)
	if err != nil {
		fatal(err)
	}

	ds := bench.TrainingDataset(batch.Records)
	m := surrogate.New(surrogate.DefaultGBTParams())
	if err := m.Fit(ds); err != nil {
		fatal(err)
	}
	metrics, err := m.Metrics()
	if err != nil {
		fatal(err)
	}
	fmt.Printf("trained on %d samples: cost R2 %.3f (test), fairness R2 %.3f (test)\n",
		ds.Len(), metrics.CostTestR2, metrics.FairnessTestR2)

	if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
		fatal(err)
	}
	if err := m.Save(*outPath); err != nil {
		fatal(err)
	}
	fmt.Printf("wrote %s\n", *outPath)
}

func tariffFor(name string, seed uint64) (tariff.Tariff, error) {
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
		return nil, fmt.Errorf("unknown tariff %q", name)
	}
}

// paramFlags collects repeated --param name=v1,v2 flags.
type paramFlags struct {
	values map[string][]float64
}

func (p *paramFlags) String() string { return fmt.Sprint(p.values) }

func (p *paramFlags) Set(s string) error {
	name, list, ok := strings.Cut(s, "=")
	if !ok {
		return fmt.Errorf("expected name=v1,v2,..., got %q", s)
	}
	var values []float64
	for _, part := range strings.Split(list, ",") {
		var v float64
		if _, err := fmt.Sscanf(strings.TrimSpace(part), "%g", &v); err != nil {
			return fmt.Errorf("bad value %q in %q", part, s)
		}
		values = append(values, v)
	}
	if p.values == nil {
		p.values = map[string][]float64{}
	}
	p.values[name] = values
	return nil
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
