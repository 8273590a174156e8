// Demo: solve one day for a small synthetic community under a time-of-use
// tariff, with and without peer trading, and print the comparison.
package main

import (
	"fmt"
	"os"

	"tariff-bench/internal/data"
	"tariff-bench/internal/dispatch"
	"tariff-bench/internal/fairness"
	"tariff-bench/internal/model"
	"tariff-bench/internal/tariff"
)

func main() {
	buildings := data.SyntheticCommunity(data.SyntheticOptions{
		Buildings: 4,
		Horizon:   24,
		Seed:      11,
	})
	prices := tariff.Profile(tariff.NewTimeOfUse(), 24)

	opt := dispatch.New(dispatch.Options{})

	baseline, err := opt.Solve(buildings, prices, model.TradingConfig{})
	if err != nil {
		fmt.Fprintln(os.Stderr, "baseline solve:", err)
		os.Exit(1)
	}
	trading, err := opt.Solve(buildings, prices, model.TradingConfig{
		Enabled:    true,
		Efficiency: 0.95,
		Topology:   model.TopologyFull,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "trading solve:", err)
		os.Exit(1)
	}

	fmt.Printf("baseline:   cost %8.2f  status %s\n", baseline.TotalCost, baseline.Status)
	fmt.Printf("with P2P:   cost %8.2f  status %s\n", trading.TotalCost, trading.Status)
	fmt.Printf("savings:    %8.2f\n\n", baseline.TotalCost-trading.TotalCost)

	base := fairness.Analyze(baseline.BuildingCosts())
	p2p := fairness.Analyze(trading.BuildingCosts())
	fmt.Printf("fairness (CoV):  %.4f -> %.4f\n", base.CoV, p2p.CoV)
	fmt.Printf("fairness (Gini): %.4f -> %.4f\n", base.Gini, p2p.Gini)

	fmt.Println("\nper-building costs:")
	for i := range trading.Buildings {
		b := &trading.Buildings[i]
		fmt.Printf("  %-10s baseline %7.2f  with P2P %7.2f\n",
			b.BuildingID, baseline.Buildings[i].Cost, b.Cost)
	}
}
