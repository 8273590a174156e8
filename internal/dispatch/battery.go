package dispatch

import (
	"tariff-bench/internal/linprog"
	"tariff-bench/internal/model"
)

// batteryVars holds the LP variable indices for one building's battery.
// charge and discharge are bus-side energies per interval (kWh); soc[t] is
// the state of charge at the END of interval t. The initial state is a
// constant folded into the first dynamics row, so every interval's flows
// bind a bounded state.
type batteryVars struct {
	charge    []int
	discharge []int
	soc       []int
}

// addBattery registers the battery variables and SOC dynamics for one
// building. Returns nil when the building has no battery.
//
// Charge/discharge exclusivity is handled by LP relaxation: with positive
// import prices and round-trip efficiency below one, simultaneous charge
// and discharge is strictly dominated, so optimal vertices never carry
// both. See DESIGN.md.
func addBattery(p *linprog.Problem, spec model.BatterySpec, horizon int, intervalHours float64) *batteryVars {
	if spec.IsZero() {
		return nil
	}

	bv := &batteryVars{
		charge:    make([]int, horizon),
		discharge: make([]int, horizon),
		soc:       make([]int, horizon),
	}

	chargeCap := spec.MaxChargeKW * intervalHours
	dischargeCap := spec.MaxDischargeKW * intervalHours
	for t := 0; t < horizon; t++ {
		bv.charge[t] = p.AddVar(0, chargeCap, 0)
		bv.discharge[t] = p.AddVar(0, dischargeCap, 0)
		lo := spec.MinSOCKWh
		if t == horizon-1 && spec.FinalSOCFloorKWh > lo {
			lo = spec.FinalSOCFloorKWh
		}
		bv.soc[t] = p.AddVar(lo, spec.MaxSOCKWh, 0)
	}

	// SOC[t] = SOC[t-1] + ηc·charge[t] − discharge[t]/ηd
	for t := 0; t < horizon; t++ {
		terms := []linprog.Term{
			{Var: bv.soc[t], Coef: 1},
			{Var: bv.charge[t], Coef: -spec.ChargeEfficiency},
			{Var: bv.discharge[t], Coef: 1 / spec.DischargeEfficiency},
		}
		rhs := 0.0
		if t == 0 {
			rhs = spec.InitialSOCKWh
		} else {
			terms = append(terms, linprog.Term{Var: bv.soc[t-1], Coef: -1})
		}
		p.AddRow(linprog.EQ, rhs, terms...)
	}

	return bv
}
