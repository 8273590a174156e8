package surrogate

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"sync"

	"tariff-bench/internal/model"
)

// SchemaVersion is bumped whenever the persisted artifact layout changes.
// Load refuses artifacts written with a different version.
const SchemaVersion = 1

// ErrNotFitted is returned by Predict before a successful Fit or Load.
var ErrNotFitted = errors.New("surrogate: model not fitted")

const minFitSamples = 10

// Metrics records train/test fit quality for both targets.
type Metrics struct {
	CostTrainMSE     float64 `json:"cost_train_mse"`
	CostTestMSE      float64 `json:"cost_test_mse"`
	CostTrainR2      float64 `json:"cost_train_r2"`
	CostTestR2       float64 `json:"cost_test_r2"`
	FairnessTrainMSE float64 `json:"fairness_train_mse"`
	FairnessTestMSE  float64 `json:"fairness_test_mse"`
	FairnessTrainR2  float64 `json:"fairness_train_r2"`
	FairnessTestR2   float64 `json:"fairness_test_r2"`
	Samples          int     `json:"samples"`
}

// Dataset holds feature rows with their exact-solve targets. Rows are
// appended by the benchmark layer as scenarios complete.
type Dataset struct {
	Features [][]float64 `json:"features"`
	Cost     []float64   `json:"cost"`
	Fairness []float64   `json:"fairness"`
}

func (d *Dataset) Append(features []float64, cost, fairness float64) {
	d.Features = append(d.Features, features)
	d.Cost = append(d.Cost, cost)
	d.Fairness = append(d.Fairness, fairness)
}

func (d *Dataset) Len() int { return len(d.Cost) }

// Model predicts community cost and fairness (coefficient of variation)
// from scenario features without running the exact optimizer. Fit takes the
// write lock; Predict and Metrics are safe to call concurrently.
type Model struct {
	mu      sync.RWMutex
	params  GBTParams
	scaler  scaler
	cost    *gbt
	fair    *gbt
	metrics Metrics
	fitted  bool
}

func New(params GBTParams) *Model {
	return &Model{params: params}
}

// Fit trains both targets on an 80/20 shuffled split. The feature scaler is
// fit on the training split only.
func (m *Model) Fit(data *Dataset) error {
	n := data.Len()
	if n < minFitSamples {
		return fmt.Errorf("surrogate: need at least %d samples, got %d", minFitSamples, n)
	}
	if len(data.Features) != n || len(data.Fairness) != n {
		return fmt.Errorf("surrogate: dataset lengths disagree: %d features, %d cost, %d fairness",
			len(data.Features), n, len(data.Fairness))
	}
	want := NumFeatures()
	for i, row := range data.Features {
		if len(row) != want {
			return fmt.Errorf("surrogate: row %d has %d features, want %d", i, len(row), want)
		}
	}

	rng := rand.New(rand.NewPCG(m.params.Seed, 0))
	perm := rng.Perm(n)
	split := n - n/5
	if split == n {
		split = n - 1
	}
	trainIdx, testIdx := perm[:split], perm[split:]

	trainX := make([][]float64, len(trainIdx))
	for i, j := range trainIdx {
		trainX[i] = data.Features[j]
	}
	sc := fitScaler(trainX)

	scaled := sc.transformAll(data.Features)
	gather := func(y []float64, idx []int) ([][]float64, []float64) {
		xs := make([][]float64, len(idx))
		ys := make([]float64, len(idx))
		for i, j := range idx {
			xs[i] = scaled[j]
			ys[i] = y[j]
		}
		return xs, ys
	}

	costTrainX, costTrainY := gather(data.Cost, trainIdx)
	costTestX, costTestY := gather(data.Cost, testIdx)
	fairTrainX, fairTrainY := gather(data.Fairness, trainIdx)
	fairTestX, fairTestY := gather(data.Fairness, testIdx)

	costModel := fitGBT(costTrainX, costTrainY, m.params, rng)
	fairModel := fitGBT(fairTrainX, fairTrainY, m.params, rng)

	met := Metrics{Samples: n}
	met.CostTrainMSE, met.CostTrainR2 = evaluate(costModel, costTrainX, costTrainY)
	met.CostTestMSE, met.CostTestR2 = evaluate(costModel, costTestX, costTestY)
	met.FairnessTrainMSE, met.FairnessTrainR2 = evaluate(fairModel, fairTrainX, fairTrainY)
	met.FairnessTestMSE, met.FairnessTestR2 = evaluate(fairModel, fairTestX, fairTestY)

	m.mu.Lock()
	m.scaler = *sc
	m.cost = costModel
	m.fair = fairModel
	m.metrics = met
	m.fitted = true
	m.mu.Unlock()
	return nil
}

// Predict returns (cost, fairness) for a raw feature row.
func (m *Model) Predict(features []float64) (float64, float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.fitted {
		return 0, 0, ErrNotFitted
	}
	if len(features) != NumFeatures() {
		return 0, 0, fmt.Errorf("surrogate: got %d features, want %d", len(features), NumFeatures())
	}
	x := m.scaler.transform(features)
	return m.cost.predict(x), m.fair.predict(x), nil
}

// PredictScenario derives features from a scenario and predicts both targets.
func (m *Model) PredictScenario(prices model.PriceProfile, trading model.TradingConfig) (float64, float64, error) {
	return m.Predict(Features(prices, trading))
}

func (m *Model) Metrics() (Metrics, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.fitted {
		return Metrics{}, ErrNotFitted
	}
	return m.metrics, nil
}

func (m *Model) Fitted() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fitted
}

type artifact struct {
	SchemaVersion int       `json:"schema_version"`
	Params        GBTParams `json:"params"`
	Scaler        scaler    `json:"scaler"`
	Cost          *gbt      `json:"cost"`
	Fairness      *gbt      `json:"fairness"`
	Metrics       Metrics   `json:"metrics"`
}

// Save writes the fitted model as a versioned JSON artifact.
func (m *Model) Save(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.fitted {
		return ErrNotFitted
	}
	art := artifact{
		SchemaVersion: SchemaVersion,
		Params:        m.params,
		Scaler:        m.scaler,
		Cost:          m.cost,
		Fairness:      m.fair,
		Metrics:       m.metrics,
	}
	data, err := json.MarshalIndent(art, "", "  ")
	if err != nil {
		return fmt.Errorf("surrogate: marshal artifact: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("surrogate: write artifact: %w", err)
	}
	return nil
}

// Load reads a Save artifact and returns a ready-to-predict model.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("surrogate: read artifact: %w", err)
	}
	var art artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("surrogate: parse artifact: %w", err)
	}
	if art.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("surrogate: artifact schema version %d, want %d", art.SchemaVersion, SchemaVersion)
	}
	if art.Cost == nil || art.Fairness == nil {
		return nil, errors.New("surrogate: artifact missing trained ensembles")
	}
	// The feature layout can drift between the artifact and this build;
	// a mismatch must surface here, not as an index panic at predict time.
	if len(art.Scaler.Mean) != NumFeatures() || len(art.Scaler.Std) != NumFeatures() {
		return nil, fmt.Errorf("surrogate: artifact fitted on %d features, current layout has %d",
			len(art.Scaler.Mean), NumFeatures())
	}
	for _, g := range []*gbt{art.Cost, art.Fairness} {
		for _, tree := range g.Trees {
			if !tree.featuresInRange(NumFeatures()) {
				return nil, errors.New("surrogate: artifact tree splits on a feature outside the current layout")
			}
		}
	}
	return &Model{
		params:  art.Params,
		scaler:  art.Scaler,
		cost:    art.Cost,
		fair:    art.Fairness,
		metrics: art.Metrics,
		fitted:  true,
	}, nil
}

func evaluate(g *gbt, x [][]float64, y []float64) (mse, r2 float64) {
	n := len(y)
	if n == 0 {
		return 0, 1
	}
	mean := 0.0
	for _, v := range y {
		mean += v
	}
	mean /= float64(n)

	var sse, sst float64
	for i, row := range x {
		d := y[i] - g.predict(row)
		sse += d * d
		dm := y[i] - mean
		sst += dm * dm
	}
	mse = sse / float64(n)
	if sst == 0 {
		if sse == 0 {
			return mse, 1
		}
		return mse, 0
	}
	return mse, 1 - sse/sst
}
