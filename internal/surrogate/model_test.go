package surrogate

import (
	"encoding/json"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tariff-bench/internal/model"
)

func testScenario(scale float64, enabled bool) (model.PriceProfile, model.TradingConfig) {
	horizon := 24
	p := model.PriceProfile{
		ImportPrice:    make([]float64, horizon),
		ExportPrice:    make([]float64, horizon),
		CommunityPrice: make([]float64, horizon),
	}
	for t := 0; t < horizon; t++ {
		imp := scale * (0.10 + 0.10*float64(t%8)/8)
		p.ImportPrice[t] = imp
		p.ExportPrice[t] = 0.4 * imp
		p.CommunityPrice[t] = 0.7 * imp
	}
	tc := model.TradingConfig{Enabled: enabled, Efficiency: 0.9, Topology: model.TopologyFull}
	if !enabled {
		tc = model.TradingConfig{}
	}
	return p, tc
}

func TestFeaturesDeterministic(t *testing.T) {
	p, tc := testScenario(1.0, true)
	a := Features(p, tc)
	b := Features(p, tc)

	require.Len(t, a, NumFeatures())
	require.Len(t, FeatureNames(), NumFeatures())
	assert.Equal(t, a, b)
}

func TestFeaturesSeparateScenarios(t *testing.T) {
	p1, tc1 := testScenario(1.0, true)
	p2, tc2 := testScenario(1.5, false)
	assert.NotEqual(t, Features(p1, tc1), Features(p2, tc2))
}

// trainingSet builds scenarios whose targets are near-linear in price scale,
// a function a boosted tree ensemble fits easily.
func trainingSet(n int) *Dataset {
	rng := rand.New(rand.NewPCG(3, 0))
	ds := &Dataset{}
	for i := 0; i < n; i++ {
		scale := 0.5 + 1.5*float64(i)/float64(n-1)
		enabled := i%2 == 0
		p, tc := testScenario(scale, enabled)
		cost := 100*scale + 5*rng.Float64()
		if enabled {
			cost -= 10
		}
		fair := 0.3 - 0.1*scale/2 + 0.01*rng.Float64()
		ds.Append(Features(p, tc), cost, fair)
	}
	return ds
}

func TestFitAndPredict(t *testing.T) {
	m := New(DefaultGBTParams())
	ds := trainingSet(60)
	require.NoError(t, m.Fit(ds))

	metrics, err := m.Metrics()
	require.NoError(t, err)
	assert.Equal(t, 60, metrics.Samples)
	assert.Greater(t, metrics.CostTrainR2, 0.9)

	// Predictions on training-range scenarios stay within a loose band.
	p, tc := testScenario(1.0, true)
	cost, fair, err := m.Predict(Features(p, tc))
	require.NoError(t, err)
	assert.InDelta(t, 95, cost, 25)
	assert.InDelta(t, 0.25, fair, 0.15)
}

func TestPredictBeforeFit(t *testing.T) {
	m := New(DefaultGBTParams())
	p, tc := testScenario(1.0, true)
	_, _, err := m.Predict(Features(p, tc))
	require.ErrorIs(t, err, ErrNotFitted)

	_, err = m.Metrics()
	require.ErrorIs(t, err, ErrNotFitted)
}

func TestFitRejectsSmallDataset(t *testing.T) {
	m := New(DefaultGBTParams())
	require.Error(t, m.Fit(trainingSet(5)))
}

func TestSaveLoadRoundtrip(t *testing.T) {
	m := New(DefaultGBTParams())
	require.NoError(t, m.Fit(trainingSet(40)))

	path := filepath.Join(t.TempDir(), "surrogate.json")
	require.NoError(t, m.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)

	p, tc := testScenario(0.8, false)
	x := Features(p, tc)
	wantCost, wantFair, err := m.Predict(x)
	require.NoError(t, err)
	gotCost, gotFair, err := loaded.Predict(x)
	require.NoError(t, err)

	assert.InDelta(t, wantCost, gotCost, 1e-12)
	assert.InDelta(t, wantFair, gotFair, 1e-12)
}

func TestLoadRejectsSchemaMismatch(t *testing.T) {
	m := New(DefaultGBTParams())
	require.NoError(t, m.Fit(trainingSet(40)))

	path := filepath.Join(t.TempDir(), "surrogate.json")
	require.NoError(t, m.Save(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var art map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &art))
	art["schema_version"] = json.RawMessage("999")
	raw, err = json.Marshal(art)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	_, err = Load(path)
	require.Error(t, err)
}

// A feature added to the layout without a schema bump leaves older
// artifacts with a shorter scaler; Load must report that, not hand back a
// model that panics on the first Predict.
func TestLoadRejectsFeatureLayoutDrift(t *testing.T) {
	m := New(DefaultGBTParams())
	require.NoError(t, m.Fit(trainingSet(40)))

	path := filepath.Join(t.TempDir(), "surrogate.json")
	require.NoError(t, m.Save(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var art map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &art))

	var sc struct {
		Mean []float64 `json:"mean"`
		Std  []float64 `json:"std"`
	}
	require.NoError(t, json.Unmarshal(art["scaler"], &sc))
	sc.Mean = sc.Mean[:len(sc.Mean)-1]
	sc.Std = sc.Std[:len(sc.Std)-1]
	art["scaler"], err = json.Marshal(sc)
	require.NoError(t, err)

	raw, err = json.Marshal(art)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "features")
}

func TestLoadRejectsOutOfRangeTreeSplit(t *testing.T) {
	m := New(DefaultGBTParams())
	require.NoError(t, m.Fit(trainingSet(40)))

	path := filepath.Join(t.TempDir(), "surrogate.json")
	require.NoError(t, m.Save(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var art map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &art))

	var ensemble struct {
		Base         float64           `json:"base"`
		LearningRate float64           `json:"learning_rate"`
		Trees        []json.RawMessage `json:"trees"`
	}
	require.NoError(t, json.Unmarshal(art["cost"], &ensemble))
	ensemble.Trees[0] = json.RawMessage(
		`{"leaf":false,"feature":1000,"threshold":0,"left":{"leaf":true,"value":0},"right":{"leaf":true,"value":0}}`)
	art["cost"], err = json.Marshal(ensemble)
	require.NoError(t, err)

	raw, err = json.Marshal(art)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	_, err = Load(path)
	require.Error(t, err)
}
