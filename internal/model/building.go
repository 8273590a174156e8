package model

import (
	"errors"
	"fmt"
)

// BatterySpec defines the physical parameters of one building's battery.
// Units:
// - CapacityKWh: kWh
// - MaxChargeKW / MaxDischargeKW: kW
// - Efficiencies: 0..1
// - SOC values: kWh of stored energy (absolute, not fractions)
//
// A zero-value spec (CapacityKWh == 0) means the building has no battery.
type BatterySpec struct {
	CapacityKWh         float64 `json:"capacity_kwh"`
	MaxChargeKW         float64 `json:"max_charge_kw"`
	MaxDischargeKW      float64 `json:"max_discharge_kw"`
	ChargeEfficiency    float64 `json:"charge_efficiency"`
	DischargeEfficiency float64 `json:"discharge_efficiency"`
	MinSOCKWh           float64 `json:"min_soc_kwh"`
	MaxSOCKWh           float64 `json:"max_soc_kwh"`
	InitialSOCKWh       float64 `json:"initial_soc_kwh"`

	// FinalSOCFloorKWh is an optional lower bound on the end-of-horizon SOC.
	// Zero means unconstrained.
	FinalSOCFloorKWh float64 `json:"final_soc_floor_kwh,omitempty"`
}

// IsZero reports whether the building has no battery at all.
func (b BatterySpec) IsZero() bool { return b.CapacityKWh == 0 }

// Validate checks the structural invariants of the spec. Power caps are
// deliberately not sign-checked here: they are dispatch constraints, and an
// impossible cap surfaces as an infeasible solve rather than a rejected input.
func (b BatterySpec) Validate() error {
	if b.IsZero() {
		return nil
	}
	if b.CapacityKWh < 0 {
		return errors.New("CapacityKWh must be >= 0")
	}
	if b.ChargeEfficiency <= 0 || b.ChargeEfficiency > 1 {
		return errors.New("ChargeEfficiency must be in (0, 1]")
	}
	if b.DischargeEfficiency <= 0 || b.DischargeEfficiency > 1 {
		return errors.New("DischargeEfficiency must be in (0, 1]")
	}
	if b.MinSOCKWh < 0 || b.MinSOCKWh > b.MaxSOCKWh || b.MaxSOCKWh > b.CapacityKWh {
		return errors.New("SOC bounds must satisfy 0 <= MinSOCKWh <= MaxSOCKWh <= CapacityKWh")
	}
	if b.InitialSOCKWh < b.MinSOCKWh || b.InitialSOCKWh > b.MaxSOCKWh {
		return errors.New("InitialSOCKWh must be within [MinSOCKWh, MaxSOCKWh]")
	}
	if b.FinalSOCFloorKWh < 0 || b.FinalSOCFloorKWh > b.MaxSOCKWh {
		return errors.New("FinalSOCFloorKWh must be within [0, MaxSOCKWh]")
	}
	return nil
}

// Flexibility bounds the load the building may serve in each interval.
// The optimizer may shift load within these bounds as long as the total
// served energy over the horizon equals the total base demand.
type Flexibility struct {
	MinLoadKWh []float64 `json:"min_load_kwh"`
	MaxLoadKWh []float64 `json:"max_load_kwh"`
}

func (f *Flexibility) validate(horizon int, baseTotal float64) error {
	if len(f.MinLoadKWh) != horizon || len(f.MaxLoadKWh) != horizon {
		return fmt.Errorf("flexibility bounds must have length %d", horizon)
	}
	minTotal, maxTotal := 0.0, 0.0
	for t := 0; t < horizon; t++ {
		if f.MinLoadKWh[t] < 0 {
			return fmt.Errorf("MinLoadKWh[%d] must be >= 0", t)
		}
		if f.MaxLoadKWh[t] < f.MinLoadKWh[t] {
			return fmt.Errorf("MaxLoadKWh[%d] must be >= MinLoadKWh[%d]", t, t)
		}
		minTotal += f.MinLoadKWh[t]
		maxTotal += f.MaxLoadKWh[t]
	}
	// Total demand must stay reachable, otherwise every solve is doomed.
	if baseTotal < minTotal || baseTotal > maxTotal {
		return fmt.Errorf("total base demand %.3f kWh outside flexible range [%.3f, %.3f]", baseTotal, minTotal, maxTotal)
	}
	return nil
}

// Building is one prosumer: a load series, a PV generation series, an
// optional battery and optional load flexibility. Series are energy per
// interval (kWh) and must match the scenario horizon. A Building is
// immutable for the duration of a solve.
type Building struct {
	ID      string      `json:"id"`
	LoadKWh []float64   `json:"load_kwh"`
	PVKWh   []float64   `json:"pv_kwh"`
	Battery BatterySpec `json:"battery,omitempty"`

	// Flex is nil for an inflexible building: served load equals LoadKWh.
	Flex *Flexibility `json:"flex,omitempty"`
}

// TotalLoadKWh is the building's base demand summed over the horizon.
func (b *Building) TotalLoadKWh() float64 {
	total := 0.0
	for _, v := range b.LoadKWh {
		total += v
	}
	return total
}

// Validate checks the building against the scenario horizon.
func (b *Building) Validate(horizon int) error {
	if b.ID == "" {
		return &ValidationError{Reason: "building ID is required"}
	}
	if len(b.LoadKWh) != horizon {
		return &ValidationError{Reason: fmt.Sprintf("building %s: load series has length %d, want %d", b.ID, len(b.LoadKWh), horizon)}
	}
	if len(b.PVKWh) != horizon {
		return &ValidationError{Reason: fmt.Sprintf("building %s: PV series has length %d, want %d", b.ID, len(b.PVKWh), horizon)}
	}
	for t := 0; t < horizon; t++ {
		if b.LoadKWh[t] < 0 {
			return &ValidationError{Reason: fmt.Sprintf("building %s: negative load at interval %d", b.ID, t)}
		}
		if b.PVKWh[t] < 0 {
			return &ValidationError{Reason: fmt.Sprintf("building %s: negative PV at interval %d", b.ID, t)}
		}
	}
	if err := b.Battery.Validate(); err != nil {
		return &ValidationError{Reason: fmt.Sprintf("building %s: battery: %v", b.ID, err)}
	}
	if b.Flex != nil {
		if err := b.Flex.validate(horizon, b.TotalLoadKWh()); err != nil {
			return &ValidationError{Reason: fmt.Sprintf("building %s: %v", b.ID, err)}
		}
	}
	return nil
}

// ValidateCommunity checks a building set against a shared horizon and
// asserts unique IDs.
func ValidateCommunity(buildings []Building, horizon int) error {
	if len(buildings) == 0 {
		return &ValidationError{Reason: "at least one building is required"}
	}
	if horizon <= 0 {
		return &ValidationError{Reason: "horizon must be > 0"}
	}
	seen := make(map[string]bool, len(buildings))
	for i := range buildings {
		if err := buildings[i].Validate(horizon); err != nil {
			return err
		}
		if seen[buildings[i].ID] {
			return &ValidationError{Reason: fmt.Sprintf("duplicate building ID %q", buildings[i].ID)}
		}
		seen[buildings[i].ID] = true
	}
	return nil
}
