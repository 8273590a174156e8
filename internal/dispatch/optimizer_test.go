package dispatch

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tariff-bench/internal/model"
)

func flatPrices(horizon int, imp, exp, community float64) model.PriceProfile {
	p := model.PriceProfile{
		ImportPrice:    make([]float64, horizon),
		ExportPrice:    make([]float64, horizon),
		CommunityPrice: make([]float64, horizon),
	}
	for t := 0; t < horizon; t++ {
		p.ImportPrice[t] = imp
		p.ExportPrice[t] = exp
		p.CommunityPrice[t] = community
	}
	return p
}

func plainBuilding(id string, load []float64) model.Building {
	return model.Building{ID: id, LoadKWh: load, PVKWh: make([]float64, len(load))}
}

func testBattery(capacity float64) model.BatterySpec {
	return model.BatterySpec{
		CapacityKWh:         capacity,
		MaxChargeKW:         capacity / 2,
		MaxDischargeKW:      capacity / 2,
		ChargeEfficiency:    0.95,
		DischargeEfficiency: 0.95,
		MinSOCKWh:           0,
		MaxSOCKWh:           capacity,
		InitialSOCKWh:       0,
	}
}

func TestSolveGridOnlyExactCost(t *testing.T) {
	// No PV, no batteries, no flexibility: every kWh must be imported, so
	// the optimum is known in closed form.
	buildings := []model.Building{
		plainBuilding("a", []float64{2, 3, 1, 4}),
		plainBuilding("b", []float64{1, 1, 1, 1}),
		plainBuilding("c", []float64{5, 0, 2, 3}),
	}
	prices := flatPrices(4, 0.20, 0.08, 0.14)

	opt := New(Options{})
	res, err := opt.Solve(buildings, prices, model.TradingConfig{})
	require.NoError(t, err)
	require.Equal(t, model.StatusOptimal, res.Status)

	wantTotal := 0.0
	for _, b := range buildings {
		for _, l := range b.LoadKWh {
			wantTotal += l * 0.20
		}
	}
	assert.InDelta(t, wantTotal, res.TotalCost, 1e-8)
	assert.InDelta(t, wantTotal, res.Objective, 1e-8)

	for _, bd := range res.Buildings {
		for tt := 0; tt < 4; tt++ {
			assert.InDelta(t, 0, bd.ExportKWh[tt], 1e-9)
		}
	}
}

func TestSolveEnergyBalanceCloses(t *testing.T) {
	buildings := []model.Building{
		{
			ID:      "pv-battery",
			LoadKWh: []float64{2, 2, 3, 4, 5, 3},
			PVKWh:   []float64{0, 4, 6, 5, 1, 0},
			Battery: testBattery(8),
		},
		{
			ID:      "flexible",
			LoadKWh: []float64{3, 3, 3, 3, 3, 3},
			PVKWh:   []float64{0, 1, 2, 2, 1, 0},
			Flex: &model.Flexibility{
				MinLoadKWh: []float64{1, 1, 1, 1, 1, 1},
				MaxLoadKWh: []float64{5, 5, 5, 5, 5, 5},
			},
		},
		plainBuilding("plain", []float64{1, 2, 1, 2, 1, 2}),
	}
	prices := flatPrices(6, 0.25, 0.05, 0.15)
	trading := model.TradingConfig{Enabled: true, Efficiency: 0.9, Topology: model.TopologyFull}

	opt := New(Options{})
	res, err := opt.Solve(buildings, prices, trading)
	require.NoError(t, err)
	require.Equal(t, model.StatusOptimal, res.Status)
	assert.LessOrEqual(t, res.MaxBalanceResidual, 1e-6)

	// Settlement redistributes cost but never creates or destroys it.
	sum := 0.0
	for _, c := range res.BuildingCosts() {
		sum += c
	}
	assert.InDelta(t, res.TotalCost, sum, 1e-9)
	assert.InDelta(t, res.Objective, res.TotalCost, 1e-6)
}

func TestSolveDisabledTradingMatchesEmptyTopology(t *testing.T) {
	// One building under the local topology has nobody to trade with; the
	// model must collapse to exactly the trading-disabled formulation.
	buildings := []model.Building{
		{
			ID:      "solo",
			LoadKWh: []float64{2, 4, 1},
			PVKWh:   []float64{3, 0, 2},
			Battery: testBattery(5),
		},
	}
	prices := flatPrices(3, 0.22, 0.07, 0.12)
	opt := New(Options{})

	off, err := opt.Solve(buildings, prices, model.TradingConfig{})
	require.NoError(t, err)
	on, err := opt.Solve(buildings, prices, model.TradingConfig{
		Enabled: true, Efficiency: 0.9, Topology: model.TopologyLocal,
	})
	require.NoError(t, err)

	assert.InDelta(t, off.TotalCost, on.TotalCost, 1e-9)
	assert.InDelta(t, off.Objective, on.Objective, 1e-9)
	for tt := 0; tt < 3; tt++ {
		assert.InDelta(t, off.Buildings[0].ImportKWh[tt], on.Buildings[0].ImportKWh[tt], 1e-8)
		assert.InDelta(t, off.Buildings[0].ExportKWh[tt], on.Buildings[0].ExportKWh[tt], 1e-8)
	}
}

func TestSolveNoSimultaneousChargeDischarge(t *testing.T) {
	// With positive prices and round-trip losses, charging and discharging
	// in the same interval is strictly wasteful, so the LP never does both.
	buildings := []model.Building{
		{
			ID:      "b",
			LoadKWh: []float64{1, 1, 6, 6, 1, 1},
			PVKWh:   []float64{0, 5, 0, 0, 5, 0},
			Battery: testBattery(10),
		},
	}
	prices := model.PriceProfile{
		ImportPrice:    []float64{0.08, 0.08, 0.30, 0.30, 0.08, 0.08},
		ExportPrice:    []float64{0.03, 0.03, 0.10, 0.10, 0.03, 0.03},
		CommunityPrice: []float64{0.05, 0.05, 0.20, 0.20, 0.05, 0.05},
	}

	opt := New(Options{})
	res, err := opt.Solve(buildings, prices, model.TradingConfig{})
	require.NoError(t, err)
	require.Equal(t, model.StatusOptimal, res.Status)

	bd := res.Buildings[0]
	for tt := 0; tt < 6; tt++ {
		assert.InDelta(t, 0, math.Min(bd.ChargeKWh[tt], bd.DischargeKWh[tt]), 1e-7,
			"interval %d charges %.6f and discharges %.6f", tt, bd.ChargeKWh[tt], bd.DischargeKWh[tt])
	}
}

func TestSolveSOCTrajectory(t *testing.T) {
	spec := testBattery(6)
	spec.InitialSOCKWh = 3
	spec.MinSOCKWh = 1
	spec.FinalSOCFloorKWh = 2
	buildings := []model.Building{
		{ID: "b", LoadKWh: []float64{4, 4, 4, 4}, PVKWh: []float64{0, 0, 0, 0}, Battery: spec},
	}
	prices := model.PriceProfile{
		ImportPrice:    []float64{0.05, 0.30, 0.30, 0.05},
		ExportPrice:    []float64{0.02, 0.10, 0.10, 0.02},
		CommunityPrice: []float64{0.03, 0.20, 0.20, 0.03},
	}

	opt := New(Options{})
	res, err := opt.Solve(buildings, prices, model.TradingConfig{})
	require.NoError(t, err)
	require.Equal(t, model.StatusOptimal, res.Status)

	soc := res.Buildings[0].SOCKWh
	require.Len(t, soc, 5)
	assert.InDelta(t, 3.0, soc[0], 1e-9)
	for _, s := range soc {
		assert.GreaterOrEqual(t, s, 1.0-1e-7)
		assert.LessOrEqual(t, s, 6.0+1e-7)
	}
	assert.GreaterOrEqual(t, soc[4], 2.0-1e-7)

	// SOC dynamics hold between consecutive states.
	bd := res.Buildings[0]
	for tt := 0; tt < 4; tt++ {
		want := soc[tt] + 0.95*bd.ChargeKWh[tt] - bd.DischargeKWh[tt]/0.95
		assert.InDelta(t, want, soc[tt+1], 1e-6)
	}
}

func TestSolveFlexibilityConservesEnergy(t *testing.T) {
	buildings := []model.Building{
		{
			ID:      "flex",
			LoadKWh: []float64{2, 2, 6, 6},
			PVKWh:   []float64{0, 0, 0, 0},
			Flex: &model.Flexibility{
				MinLoadKWh: []float64{1, 1, 2, 2},
				MaxLoadKWh: []float64{6, 6, 8, 8},
			},
		},
	}
	prices := model.PriceProfile{
		ImportPrice:    []float64{0.05, 0.05, 0.40, 0.40},
		ExportPrice:    []float64{0.02, 0.02, 0.10, 0.10},
		CommunityPrice: []float64{0.03, 0.03, 0.20, 0.20},
	}

	opt := New(Options{})
	res, err := opt.Solve(buildings, prices, model.TradingConfig{})
	require.NoError(t, err)

	served := res.Buildings[0].ServedLoadKWh
	total := 0.0
	for tt, s := range served {
		total += s
		assert.GreaterOrEqual(t, s, buildings[0].Flex.MinLoadKWh[tt]-1e-7)
		assert.LessOrEqual(t, s, buildings[0].Flex.MaxLoadKWh[tt]+1e-7)
	}
	assert.InDelta(t, 16.0, total, 1e-6)

	// Expensive-hour load moves to the floor; cheap hours absorb it.
	assert.InDelta(t, 2.0, served[2], 1e-6)
	assert.InDelta(t, 2.0, served[3], 1e-6)
}

func TestSolveBatteryArbitrageReducesCost(t *testing.T) {
	load := []float64{3, 3, 3, 3}
	prices := model.PriceProfile{
		ImportPrice:    []float64{0.05, 0.05, 0.40, 0.40},
		ExportPrice:    []float64{0.02, 0.02, 0.10, 0.10},
		CommunityPrice: []float64{0.03, 0.03, 0.20, 0.20},
	}
	opt := New(Options{})

	without, err := opt.Solve([]model.Building{plainBuilding("b", load)}, prices, model.TradingConfig{})
	require.NoError(t, err)

	b := plainBuilding("b", load)
	b.Battery = testBattery(8)
	with, err := opt.Solve([]model.Building{b}, prices, model.TradingConfig{})
	require.NoError(t, err)

	assert.Less(t, with.TotalCost, without.TotalCost)
	// Charging happens only in the cheap first half.
	bd := with.Buildings[0]
	assert.InDelta(t, 0, bd.ChargeKWh[2]+bd.ChargeKWh[3], 1e-7)
	assert.Greater(t, bd.DischargeKWh[2]+bd.DischargeKWh[3], 0.0)
}

func TestSolveTradingReducesCommunityCost(t *testing.T) {
	// One building has surplus PV worth only the export price on the grid;
	// its neighbour imports at a much higher price. Trading bridges the gap.
	buildings := []model.Building{
		{ID: "producer", LoadKWh: []float64{1, 1}, PVKWh: []float64{6, 6}},
		plainBuilding("consumer", []float64{4, 4}),
	}
	prices := flatPrices(2, 0.30, 0.05, 0.15)
	opt := New(Options{})

	baseline, err := opt.Solve(buildings, prices, model.TradingConfig{})
	require.NoError(t, err)
	traded, err := opt.Solve(buildings, prices, model.TradingConfig{
		Enabled: true, Efficiency: 0.9, Topology: model.TopologyFull,
	})
	require.NoError(t, err)

	assert.Less(t, traded.TotalCost, baseline.TotalCost)

	// Receiver accounting: delivered quantity carries the loss.
	consumer := traded.Buildings[1]
	for tt := 0; tt < 2; tt++ {
		assert.GreaterOrEqual(t, consumer.TradeInKWh[tt], 0.0)
	}
}

func TestSolveHubSettlementZeroSum(t *testing.T) {
	buildings := []model.Building{
		{ID: "p1", LoadKWh: []float64{1, 1}, PVKWh: []float64{5, 5}},
		{ID: "p2", LoadKWh: []float64{1, 1}, PVKWh: []float64{4, 4}},
		plainBuilding("c1", []float64{4, 4}),
		plainBuilding("c2", []float64{3, 3}),
	}
	prices := flatPrices(2, 0.30, 0.05, 0.15)
	opt := New(Options{})

	res, err := opt.Solve(buildings, prices, model.TradingConfig{
		Enabled: true, Efficiency: 0.92, Topology: model.TopologyHub,
	})
	require.NoError(t, err)
	require.Equal(t, model.StatusOptimal, res.Status)

	sum := 0.0
	for _, c := range res.BuildingCosts() {
		sum += c
	}
	assert.InDelta(t, res.Objective, sum, 1e-6)
	assert.InDelta(t, res.TotalCost, sum, 1e-9)
}

func TestSolveImpossibleBatteryCapIsInfeasible(t *testing.T) {
	spec := testBattery(5)
	spec.MaxChargeKW = -1
	buildings := []model.Building{
		{ID: "b", LoadKWh: []float64{1, 1}, PVKWh: []float64{0, 0}, Battery: spec},
	}
	prices := flatPrices(2, 0.20, 0.08, 0.14)

	opt := New(Options{})
	_, err := opt.Solve(buildings, prices, model.TradingConfig{})
	var infeasible *model.InfeasibleError
	require.ErrorAs(t, err, &infeasible)
}

func TestSolveRejectsMalformedInput(t *testing.T) {
	prices := flatPrices(4, 0.20, 0.08, 0.14)
	opt := New(Options{})

	_, err := opt.Solve([]model.Building{plainBuilding("short", []float64{1, 2})}, prices, model.TradingConfig{})
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = opt.Solve([]model.Building{plainBuilding("b", []float64{1, 1, 1, 1})}, prices,
		model.TradingConfig{Enabled: true, Efficiency: 1.5, Topology: model.TopologyFull})
	require.ErrorAs(t, err, &verr)
}

func TestSolveTimeout(t *testing.T) {
	buildings := make([]model.Building, 6)
	load := make([]float64, 48)
	for i := range load {
		load[i] = 2
	}
	for i := range buildings {
		b := plainBuilding("b", load)
		b.ID = b.ID + string(rune('a'+i))
		b.Battery = testBattery(10)
		buildings[i] = b
	}
	prices := flatPrices(48, 0.20, 0.08, 0.14)

	opt := New(Options{Timeout: time.Nanosecond})
	res, err := opt.Solve(buildings, prices, model.TradingConfig{
		Enabled: true, Efficiency: 0.9, Topology: model.TopologyFull,
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusTimeout, res.Status)
	assert.Empty(t, res.Buildings)
}
