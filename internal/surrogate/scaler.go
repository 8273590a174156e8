package surrogate

import "math"

// scaler standardises features to zero mean and unit variance, fitted on
// the training split only. Exported fields so a fitted scaler round-trips
// through the persisted artifact.
type scaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

func fitScaler(rows [][]float64) *scaler {
	cols := len(rows[0])
	s := &scaler{
		Mean: make([]float64, cols),
		Std:  make([]float64, cols),
	}
	for j := 0; j < cols; j++ {
		sum := 0.0
		for _, r := range rows {
			sum += r[j]
		}
		mean := sum / float64(len(rows))
		variance := 0.0
		for _, r := range rows {
			d := r[j] - mean
			variance += d * d
		}
		variance /= float64(len(rows))
		std := math.Sqrt(variance)
		if std == 0 {
			// Constant columns pass through unscaled.
			std = 1
		}
		s.Mean[j] = mean
		s.Std[j] = std
	}
	return s
}

func (s *scaler) transform(row []float64) []float64 {
	out := make([]float64, len(row))
	for j := range row {
		out[j] = (row[j] - s.Mean[j]) / s.Std[j]
	}
	return out
}

func (s *scaler) transformAll(rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, r := range rows {
		out[i] = s.transform(r)
	}
	return out
}
