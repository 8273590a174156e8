// Package surrogate approximates the optimizer's cost and fairness outputs
// with gradient-boosted regression trees over scenario features, enabling
// large sweeps without re-solving the dispatch problem.
package surrogate

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"tariff-bench/internal/model"
)

// Features derives the scenario feature vector from a price profile and
// trading config. It is the single shared deriver used both when building
// training datasets and when predicting, so trained models and live
// predictions can never diverge on feature semantics.
func Features(p model.PriceProfile, tc model.TradingConfig) []float64 {
	features := make([]float64, 0, len(featureNames))

	for _, series := range [][]float64{p.ImportPrice, p.ExportPrice, p.CommunityPrice} {
		features = append(features, seriesStats(series)...)
	}

	features = append(features,
		meanDiff(p.ImportPrice, p.ExportPrice),
		meanDiff(p.CommunityPrice, p.ExportPrice),
		meanDiff(p.ImportPrice, p.CommunityPrice),
		safeCorrelation(p.ImportPrice, p.ExportPrice),
	)

	features = append(features,
		windowRatio(p.ImportPrice, 17, 20, 0, 7), // peak vs off-peak
		trendSlope(p.ImportPrice),
		trendSlope(p.ExportPrice),
		windowRatio(p.ImportPrice, 7, 11, 0, 7),  // morning vs night
		windowRatio(p.ImportPrice, 17, 21, 0, 7), // evening vs night
	)

	enabled := 0.0
	if tc.Enabled {
		enabled = 1
	}
	features = append(features, enabled, tc.TopologyCode(), tc.Efficiency)

	return features
}

var featureNames = buildFeatureNames()

// FeatureNames returns the stable names of the feature vector positions.
func FeatureNames() []string {
	out := make([]string, len(featureNames))
	copy(out, featureNames)
	return out
}

// NumFeatures is the length of every derived feature vector.
func NumFeatures() int { return len(featureNames) }

func buildFeatureNames() []string {
	stats := []string{"mean", "std", "min", "max", "median", "p25", "p75", "p90", "p95", "var", "range", "cv"}
	var names []string
	for _, prefix := range []string{"import", "export", "community"} {
		for _, s := range stats {
			names = append(names, prefix+"_"+s)
		}
	}
	names = append(names,
		"import_export_spread",
		"community_export_premium",
		"import_community_premium",
		"import_export_correlation",
		"peak_offpeak_ratio",
		"import_trend",
		"export_trend",
		"morning_night_ratio",
		"evening_night_ratio",
		"trading_enabled",
		"topology_code",
		"trading_efficiency",
	)
	return names
}

func seriesStats(series []float64) []float64 {
	mean := stat.Mean(series, nil)
	variance := 0.0
	minV := series[0]
	maxV := series[0]
	for _, v := range series {
		d := v - mean
		variance += d * d
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	variance /= float64(len(series))
	std := math.Sqrt(variance)

	sorted := make([]float64, len(series))
	copy(sorted, series)
	sort.Float64s(sorted)

	cv := 0.0
	if mean > 0 {
		cv = std / mean
	}
	return []float64{
		mean, std, minV, maxV,
		stat.Quantile(0.5, stat.LinInterp, sorted, nil),
		stat.Quantile(0.25, stat.LinInterp, sorted, nil),
		stat.Quantile(0.75, stat.LinInterp, sorted, nil),
		stat.Quantile(0.9, stat.LinInterp, sorted, nil),
		stat.Quantile(0.95, stat.LinInterp, sorted, nil),
		variance,
		maxV - minV,
		cv,
	}
}

func meanDiff(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] - b[i]
	}
	return sum / float64(len(a))
}

// safeCorrelation is Pearson correlation, with 0 for constant series where
// the coefficient is undefined.
func safeCorrelation(a, b []float64) float64 {
	c := stat.Correlation(a, b, nil)
	if math.IsNaN(c) {
		return 0
	}
	return c
}

func trendSlope(series []float64) float64 {
	if len(series) < 2 {
		return 0
	}
	ts := make([]float64, len(series))
	for i := range ts {
		ts[i] = float64(i)
	}
	_, beta := stat.LinearRegression(ts, series, nil, false)
	return beta
}

// windowRatio compares the mean price over two hour-of-day windows, mapping
// intervals onto a 24h day by position. Degenerate windows yield 1.
func windowRatio(series []float64, numStart, numEnd, denStart, denEnd int) float64 {
	num, nOK := windowMean(series, numStart, numEnd)
	den, dOK := windowMean(series, denStart, denEnd)
	if !nOK || !dOK || den <= 0 {
		return 1
	}
	return num / den
}

func windowMean(series []float64, hourStart, hourEnd int) (float64, bool) {
	horizon := len(series)
	sum := 0.0
	count := 0
	for t := 0; t < horizon; t++ {
		h := hourOf(t, horizon)
		if h >= hourStart && h < hourEnd {
			sum += series[t]
			count++
		}
	}
	if count == 0 {
		return 0, false
	}
	return sum / float64(count), true
}

// hourOf maps interval t onto an hour of day. Horizons that are whole
// multiples of 24 are treated as uniform sub-hourly intervals; anything
// else is stretched over a single day.
func hourOf(t, horizon int) int {
	if horizon >= 24 && horizon%24 == 0 {
		perHour := horizon / 24
		return (t / perHour) % 24
	}
	return (t * 24 / horizon) % 24
}
