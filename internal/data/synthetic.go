// Package data builds and loads prosumer communities: synthetic generation
// for benchmarks and demos, JSON loading for real building profiles.
package data

import (
	"fmt"
	"math"
	"math/rand/v2"

	"tariff-bench/internal/model"
)

// SyntheticOptions controls the generated community. Zero values fall back
// to the defaults below.
type SyntheticOptions struct {
	Buildings    int
	Horizon      int // intervals
	Seed         uint64
	BatteryShare float64 // fraction of buildings with a battery
	PVShare      float64 // fraction of buildings with rooftop PV
	FlexShare    float64 // fraction of buildings with flexible load
	FlexBand     float64 // per-interval flexibility as a fraction of load
}

func DefaultSyntheticOptions() SyntheticOptions {
	return SyntheticOptions{
		Buildings:    6,
		Horizon:      24,
		Seed:         7,
		BatteryShare: 0.5,
		PVShare:      0.7,
		FlexShare:    0.3,
		FlexBand:     0.2,
	}
}

// SyntheticCommunity generates a seeded community of residential prosumers.
// Loads follow a daily cycle with an evening peak, PV a midday bell.
func SyntheticCommunity(opts SyntheticOptions) []model.Building {
	def := DefaultSyntheticOptions()
	if opts.Buildings <= 0 {
		opts.Buildings = def.Buildings
	}
	if opts.Horizon <= 0 {
		opts.Horizon = def.Horizon
	}
	if opts.FlexBand <= 0 {
		opts.FlexBand = def.FlexBand
	}

	rng := rand.New(rand.NewPCG(opts.Seed, 0))
	buildings := make([]model.Building, opts.Buildings)
	for i := range buildings {
		scale := 0.7 + rng.Float64()*0.6
		b := model.Building{
			ID:      fmt.Sprintf("bldg-%02d", i+1),
			LoadKWh: loadProfile(opts.Horizon, scale, rng),
		}
		if rng.Float64() < opts.PVShare {
			b.PVKWh = pvProfile(opts.Horizon, 2.0+rng.Float64()*4.0)
		} else {
			b.PVKWh = make([]float64, opts.Horizon)
		}
		if rng.Float64() < opts.BatteryShare {
			b.Battery = batterySpec(rng)
		}
		if rng.Float64() < opts.FlexShare {
			b.Flex = flexibility(b.LoadKWh, opts.FlexBand)
		}
		buildings[i] = b
	}
	return buildings
}

// loadProfile is a base demand plus a daily sine, an evening peak bump, and
// seeded noise, floored at 0.5 kWh.
func loadProfile(horizon int, scale float64, rng *rand.Rand) []float64 {
	out := make([]float64, horizon)
	for t := range out {
		h := float64(hourOf(t, horizon))
		base := 3.0 + 1.2*math.Sin(2*math.Pi*(h-10)/24)
		evening := 1.5 * math.Exp(-0.5*math.Pow((h-19)/1.5, 2))
		noise := (rng.Float64()*2 - 1) * 0.4
		v := scale * (base + evening + noise)
		if v < 0.5 {
			v = 0.5
		}
		out[t] = v
	}
	return out
}

// pvProfile is a midday bell: zero outside 06:00-19:59, peaking at 13:00.
func pvProfile(horizon int, peak float64) []float64 {
	out := make([]float64, horizon)
	for t := range out {
		h := float64(hourOf(t, horizon))
		if h < 6 || h >= 20 {
			continue
		}
		out[t] = peak * math.Exp(-0.5*math.Pow((h-13)/3.0, 2))
	}
	return out
}

func batterySpec(rng *rand.Rand) model.BatterySpec {
	cap := 8.0 + rng.Float64()*8.0
	power := cap / 4
	return model.BatterySpec{
		CapacityKWh:         cap,
		MaxChargeKW:         power,
		MaxDischargeKW:      power,
		ChargeEfficiency:    0.95,
		DischargeEfficiency: 0.95,
		MinSOCKWh:           cap * 0.1,
		MaxSOCKWh:           cap * 0.95,
		InitialSOCKWh:       cap * 0.5,
	}
}

// flexibility allows each interval's served load to move within a band
// around the base profile; total energy is conserved by the optimizer.
func flexibility(load []float64, band float64) *model.Flexibility {
	minLoad := make([]float64, len(load))
	maxLoad := make([]float64, len(load))
	for i, v := range load {
		minLoad[i] = v * (1 - band)
		maxLoad[i] = v * (1 + band)
	}
	return &model.Flexibility{MinLoadKWh: minLoad, MaxLoadKWh: maxLoad}
}

func hourOf(t, horizon int) int {
	if horizon >= 24 && horizon%24 == 0 {
		perHour := horizon / 24
		return (t / perHour) % 24
	}
	return (t * 24 / horizon) % 24
}
