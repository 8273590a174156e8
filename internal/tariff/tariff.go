// Package tariff generates the import, export, and community price series
// the benchmark sweeps over. Each tariff produces one import price per
// interval; export and community prices are derived from it.
package tariff

import (
	"math"
	"math/rand/v2"

	"tariff-bench/internal/model"
)

// Tariff produces an import price series for a horizon of intervals.
type Tariff interface {
	Name() string
	Prices(horizon int) []float64
}

// DefaultExportRatio is the feed-in price as a fraction of the import price.
const DefaultExportRatio = 0.4

// DefaultCommunitySpread places the community trade price between export
// and import: community = export + spread*(import-export).
const DefaultCommunitySpread = 0.5

// TimeOfUse is a three-tier schedule keyed on hour of day.
type TimeOfUse struct {
	OffPeak  float64 // $/kWh, hours 23:00-06:59
	MidPeak  float64 // $/kWh, remaining hours
	OnPeak   float64 // $/kWh, hours 17:00-19:59
	TariffID string
}

func NewTimeOfUse() *TimeOfUse {
	return &TimeOfUse{OffPeak: 0.08, MidPeak: 0.12, OnPeak: 0.20, TariffID: "tou"}
}

func (t *TimeOfUse) Name() string { return t.TariffID }

func (t *TimeOfUse) Prices(horizon int) []float64 {
	out := make([]float64, horizon)
	for i := range out {
		h := hourOf(i, horizon)
		switch {
		case h >= 17 && h < 20:
			out[i] = t.OnPeak
		case h < 7 || h == 23:
			out[i] = t.OffPeak
		default:
			out[i] = t.MidPeak
		}
	}
	return out
}

// CriticalPeak layers a surcharge on a base tariff during event hours.
type CriticalPeak struct {
	Base      Tariff
	Surcharge float64 // $/kWh added during events
	EventFrom int     // first event hour, inclusive
	EventTo   int     // last event hour, exclusive
}

func NewCriticalPeak() *CriticalPeak {
	return &CriticalPeak{Base: NewTimeOfUse(), Surcharge: 0.40, EventFrom: 17, EventTo: 21}
}

func (t *CriticalPeak) Name() string { return "cpp" }

func (t *CriticalPeak) Prices(horizon int) []float64 {
	out := t.Base.Prices(horizon)
	for i := range out {
		h := hourOf(i, horizon)
		if h >= t.EventFrom && h < t.EventTo {
			out[i] += t.Surcharge
		}
	}
	return out
}

// RealTime is a synthetic wholesale-tracking price: a daily sine around the
// base plus seeded noise, floored so prices stay strictly positive.
type RealTime struct {
	Base       float64 // $/kWh mean price
	Volatility float64 // $/kWh sine amplitude and noise scale
	Seed       uint64
}

func NewRealTime(seed uint64) *RealTime {
	return &RealTime{Base: 0.12, Volatility: 0.04, Seed: seed}
}

func (t *RealTime) Name() string { return "rtp" }

func (t *RealTime) Prices(horizon int) []float64 {
	rng := rand.New(rand.NewPCG(t.Seed, 0))
	out := make([]float64, horizon)
	for i := range out {
		h := float64(hourOf(i, horizon))
		// Peak of the daily cycle lands in the early evening.
		cycle := math.Sin(2 * math.Pi * (h - 9) / 24)
		noise := (rng.Float64()*2 - 1) * t.Volatility * 0.5
		p := t.Base + t.Volatility*cycle + noise
		if p < 0.01 {
			p = 0.01
		}
		out[i] = p
	}
	return out
}

// EmergencyDR models demand-response emergencies: a flat base with a steep
// adder during declared event hours.
type EmergencyDR struct {
	Base       Tariff
	EventPrice float64 // $/kWh added during the emergency window
	EventFrom  int
	EventTo    int
}

func NewEmergencyDR() *EmergencyDR {
	return &EmergencyDR{Base: NewTimeOfUse(), EventPrice: 0.80, EventFrom: 17, EventTo: 20}
}

func (t *EmergencyDR) Name() string { return "edr" }

func (t *EmergencyDR) Prices(horizon int) []float64 {
	out := t.Base.Prices(horizon)
	for i := range out {
		h := hourOf(i, horizon)
		if h >= t.EventFrom && h < t.EventTo {
			out[i] += t.EventPrice
		}
	}
	return out
}

// ExportPrices derives the feed-in series as a fixed fraction of import.
func ExportPrices(importPrices []float64, ratio float64) []float64 {
	out := make([]float64, len(importPrices))
	for i, p := range importPrices {
		out[i] = p * ratio
	}
	return out
}

// CommunityPrices places the peer trade price between export and import.
// spread=0 settles at the export price, spread=1 at the import price.
func CommunityPrices(importPrices, exportPrices []float64, spread float64) []float64 {
	out := make([]float64, len(importPrices))
	for i := range out {
		out[i] = exportPrices[i] + spread*(importPrices[i]-exportPrices[i])
	}
	return out
}

// Profile assembles a full price profile from a tariff using the default
// export ratio and community spread.
func Profile(t Tariff, horizon int) model.PriceProfile {
	return ProfileWith(t, horizon, DefaultExportRatio, DefaultCommunitySpread)
}

func ProfileWith(t Tariff, horizon int, exportRatio, communitySpread float64) model.PriceProfile {
	imp := t.Prices(horizon)
	exp := ExportPrices(imp, exportRatio)
	return model.PriceProfile{
		ImportPrice:    imp,
		ExportPrice:    exp,
		CommunityPrice: CommunityPrices(imp, exp, communitySpread),
	}
}

// Scale multiplies every price in the profile by the same factor.
func Scale(p model.PriceProfile, factor float64) model.PriceProfile {
	mul := func(xs []float64) []float64 {
		out := make([]float64, len(xs))
		for i, v := range xs {
			out[i] = v * factor
		}
		return out
	}
	return model.PriceProfile{
		ImportPrice:    mul(p.ImportPrice),
		ExportPrice:    mul(p.ExportPrice),
		CommunityPrice: mul(p.CommunityPrice),
	}
}

// All returns the standard tariff set used by the benchmark CLI and API.
func All(seed uint64) []Tariff {
	return []Tariff{NewTimeOfUse(), NewCriticalPeak(), NewRealTime(seed), NewEmergencyDR()}
}

// hourOf maps an interval index to an hour of day. Horizons that divide
// evenly into days are treated as sub-hourly series over one day; anything
// else is stretched across a single day.
func hourOf(t, horizon int) int {
	if horizon >= 24 && horizon%24 == 0 {
		perHour := horizon / 24
		return (t / perHour) % 24
	}
	return (t * 24 / horizon) % 24
}
