package bench

import (
	"encoding/csv"
	"math"
	"os"
	"strconv"
)

// WriteScenarioCSV writes one row per scenario record with the headline
// cost and fairness figures. Unusable scenarios appear with empty metric
// columns so batch composition stays visible.
func WriteScenarioCSV(path string, records []ScenarioRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"index",
		"name",
		"status",
		"trading_enabled",
		"topology",
		"trading_efficiency",
		"total_cost",
		"mean_cost",
		"cov",
		"gini",
		"jain",
		"range_ratio",
		"theil",
		"solve_time_ms",
		"error",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i := range records {
		r := &records[i]
		row := []string{
			strconv.Itoa(r.Index),
			r.Name,
			string(r.Status),
			strconv.FormatBool(r.Trading.Enabled),
			string(r.Trading.Topology),
			fmtFloat(r.Trading.Efficiency),
			"", "", "", "", "", "", "", "",
			r.Error,
		}
		if r.Usable() && r.Dispatch != nil && r.Fairness != nil {
			row[6] = fmtFloat(r.Dispatch.TotalCost)
			row[7] = fmtFloat(r.Fairness.MeanCost)
			row[8] = fmtFloat(r.Fairness.CoV)
			row[9] = fmtFloat(r.Fairness.Gini)
			row[10] = fmtFloat(r.Fairness.Jain)
			row[11] = fmtFloat(r.Fairness.RangeRatio)
			row[12] = fmtFloat(r.Fairness.Theil)
			row[13] = fmtFloat(float64(r.Dispatch.SolveTime.Milliseconds()))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}

func fmtFloat(x float64) string {
	if math.IsInf(x, 0) || math.IsNaN(x) {
		return ""
	}
	return strconv.FormatFloat(x, 'f', 6, 64)
}
