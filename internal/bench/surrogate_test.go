package bench

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tariff-bench/internal/model"
	"tariff-bench/internal/surrogate"
)

func scaledPrices(scale float64) model.PriceProfile {
	p := testPrices()
	out := model.PriceProfile{
		ImportPrice:    make([]float64, len(p.ImportPrice)),
		ExportPrice:    make([]float64, len(p.ExportPrice)),
		CommunityPrice: make([]float64, len(p.CommunityPrice)),
	}
	for t := range p.ImportPrice {
		out.ImportPrice[t] = scale * p.ImportPrice[t]
		out.ExportPrice[t] = scale * p.ExportPrice[t]
		out.CommunityPrice[t] = scale * p.CommunityPrice[t]
	}
	return out
}

// The surrogate trained on exact solves must track the solver on scenarios
// it never saw: predictions on held-out grid points stay within 10% of the
// true total cost.
func TestSurrogateTracksSolverOnHeldOutScenarios(t *testing.T) {
	holdout := map[string]bool{"scale-0.750": true, "scale-1.250": true}

	var scenarios []ScenarioSpec
	for scale := 0.5; scale <= 1.501; scale += 0.025 {
		scenarios = append(scenarios, ScenarioSpec{
			Name:   fmt.Sprintf("scale-%.3f", scale),
			Prices: scaledPrices(scale),
		})
	}

	orc := testOrchestrator()
	batch, err := orc.Run(context.Background(), testCommunity(), scenarios)
	require.NoError(t, err)
	require.Equal(t, len(scenarios), batch.Succeeded)

	var train, held []ScenarioRecord
	for _, rec := range batch.Records {
		if holdout[rec.Name] {
			held = append(held, rec)
		} else {
			train = append(train, rec)
		}
	}
	require.Len(t, held, 2)

	m := surrogate.New(surrogate.DefaultGBTParams())
	require.NoError(t, m.Fit(TrainingDataset(train)))

	for _, rec := range held {
		exact := rec.Dispatch.TotalCost
		require.Greater(t, exact, 0.0, rec.Name)

		cost, fair, err := m.PredictScenario(rec.Prices, rec.Trading)
		require.NoError(t, err, rec.Name)
		assert.InDelta(t, exact, cost, 0.10*exact, rec.Name)
		assert.InDelta(t, rec.Fairness.CoV, fair, 0.05, rec.Name)
	}
}
