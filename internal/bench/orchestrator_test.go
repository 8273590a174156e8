package bench

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tariff-bench/internal/dispatch"
	"tariff-bench/internal/model"
	"tariff-bench/internal/tariff"
)

func testCommunity() []model.Building {
	battery := model.BatterySpec{
		CapacityKWh:         6,
		MaxChargeKW:         3,
		MaxDischargeKW:      3,
		ChargeEfficiency:    0.95,
		DischargeEfficiency: 0.95,
		MaxSOCKWh:           6,
	}
	return []model.Building{
		{ID: "a", LoadKWh: []float64{2, 3, 4, 2}, PVKWh: []float64{0, 3, 3, 0}, Battery: battery},
		{ID: "b", LoadKWh: []float64{1, 1, 2, 2}, PVKWh: []float64{0, 0, 0, 0}},
		{ID: "c", LoadKWh: []float64{3, 2, 2, 3}, PVKWh: []float64{0, 4, 4, 0}},
	}
}

func testPrices() model.PriceProfile {
	return model.PriceProfile{
		ImportPrice:    []float64{0.10, 0.15, 0.30, 0.20},
		ExportPrice:    []float64{0.04, 0.06, 0.12, 0.08},
		CommunityPrice: []float64{0.07, 0.10, 0.21, 0.14},
	}
}

func testOrchestrator() *Orchestrator {
	return NewOrchestrator(dispatch.New(dispatch.Options{}), 2)
}

func testScenarios() []ScenarioSpec {
	trading := model.TradingConfig{Enabled: true, Efficiency: 0.9, Topology: model.TopologyFull}

	// Scenario 2 carries an impossible battery cap and must come back
	// infeasible without failing the batch.
	broken := testCommunity()
	broken[0].Battery.MaxChargeKW = -1

	return []ScenarioSpec{
		{Name: "baseline", Prices: testPrices(), Trading: model.TradingConfig{}},
		{Name: "p2p-full", Prices: testPrices(), Trading: trading},
		{Name: "broken-battery", Prices: testPrices(), Trading: model.TradingConfig{}, Buildings: broken},
		{Name: "p2p-local", Prices: testPrices(), Trading: model.TradingConfig{Enabled: true, Efficiency: 0.9, Topology: model.TopologyLocal}},
		{Name: "p2p-hub", Prices: testPrices(), Trading: model.TradingConfig{Enabled: true, Efficiency: 0.9, Topology: model.TopologyHub}},
	}
}

func TestRunIsolatesInfeasibleScenario(t *testing.T) {
	orc := testOrchestrator()
	batch, err := orc.Run(context.Background(), testCommunity(), testScenarios())
	require.NoError(t, err)

	assert.Equal(t, 4, batch.Succeeded)
	assert.Equal(t, 1, batch.Infeasible)
	assert.Equal(t, 0, batch.Failed)
	assert.NotEmpty(t, batch.RunID)

	// Records keep scenario order regardless of completion order.
	require.Len(t, batch.Records, 5)
	for i, name := range []string{"baseline", "p2p-full", "broken-battery", "p2p-local", "p2p-hub"} {
		assert.Equal(t, i, batch.Records[i].Index)
		assert.Equal(t, name, batch.Records[i].Name)
	}

	infeasible := batch.Records[2]
	assert.Equal(t, ScenarioInfeasible, infeasible.Status)
	assert.Contains(t, infeasible.Error, `"broken-battery"`)
	assert.Nil(t, infeasible.Dispatch)
	assert.Nil(t, infeasible.Fairness)

	for _, i := range []int{0, 1, 3, 4} {
		rec := batch.Records[i]
		assert.Equal(t, ScenarioSuccess, rec.Status, rec.Name)
		require.NotNil(t, rec.Dispatch, rec.Name)
		require.NotNil(t, rec.Fairness, rec.Name)
	}
}

func TestRunEmptyBatch(t *testing.T) {
	orc := testOrchestrator()
	_, err := orc.Run(context.Background(), testCommunity(), nil)
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	orc := testOrchestrator()
	batch, err := orc.Run(ctx, testCommunity(), testScenarios())
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, batch)
	assert.Equal(t, 5, batch.Failed)
}

func TestTrainingDatasetSkipsUnusable(t *testing.T) {
	orc := testOrchestrator()
	batch, err := orc.Run(context.Background(), testCommunity(), testScenarios())
	require.NoError(t, err)

	ds := TrainingDataset(batch.Records)
	assert.Equal(t, 4, ds.Len())
}

func TestRankByCost(t *testing.T) {
	orc := testOrchestrator()
	batch, err := orc.Run(context.Background(), testCommunity(), testScenarios())
	require.NoError(t, err)

	before := make([]ScenarioRecord, len(batch.Records))
	copy(before, batch.Records)

	ranked := RankByCost(batch.Records)
	require.Len(t, ranked, 4)
	for i := 1; i < len(ranked); i++ {
		assert.LessOrEqual(t, ranked[i-1].Score, ranked[i].Score)
	}
	// Full-mesh trading cannot cost more than the grid-only baseline.
	assert.NotEqual(t, "baseline", ranked[0].Record.Name)

	// Ranking never reorders the input.
	for i := range before {
		assert.Equal(t, before[i].Name, batch.Records[i].Name)
	}
}

func TestRankComposite(t *testing.T) {
	orc := testOrchestrator()
	batch, err := orc.Run(context.Background(), testCommunity(), testScenarios())
	require.NoError(t, err)

	ranked := RankComposite(batch.Records)
	require.Len(t, ranked, 4)
	for i := 1; i < len(ranked); i++ {
		assert.LessOrEqual(t, ranked[i-1].Score, ranked[i].Score)
	}
	for _, r := range ranked {
		assert.GreaterOrEqual(t, r.Score, 0.0)
		assert.LessOrEqual(t, r.Score, 1.0)
	}
}

func TestSensitivityExact(t *testing.T) {
	orc := testOrchestrator()
	sweep := &Sweep{
		Tariff:  tariff.NewTimeOfUse(),
		Horizon: 4,
		Trading: model.TradingConfig{Enabled: true, Efficiency: 0.9, Topology: model.TopologyFull},
		Params: map[string][]float64{
			ParamPriceScale:  {0.8, 1.0, 1.2},
			ParamExportRatio: {0.2, 0.5},
		},
	}

	result, err := orc.Sensitivity(context.Background(), testCommunity(), sweep)
	require.NoError(t, err)
	require.Len(t, result.Points, 6)
	assert.Equal(t, "exact", result.Mode)

	for _, pt := range result.Points {
		assert.Equal(t, ScenarioSuccess, pt.Status)
	}

	// Scaling all prices up scales cost up, so price_scale dominates.
	require.Contains(t, result.Influence, ParamPriceScale)
	assert.Greater(t, result.Influence[ParamPriceScale], 0.5)
	require.Contains(t, result.FairnessInfluence, ParamPriceScale)
}

func TestSensitivityRejectsUnknownParam(t *testing.T) {
	orc := testOrchestrator()
	sweep := &Sweep{
		Tariff:  tariff.NewTimeOfUse(),
		Horizon: 4,
		Params:  map[string][]float64{"voltage": {1, 2}},
	}
	_, err := orc.Sensitivity(context.Background(), testCommunity(), sweep)
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
}
