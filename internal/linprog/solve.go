package linprog

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// Solution is the optimum of a Problem in the original variable space.
type Solution struct {
	Objective float64
	X         []float64
}

// Solve converts the problem to standard form (min cᵀy, Ay = b, y ≥ 0) and
// runs gonum's simplex method. The conversion shifts every variable by its
// lower bound and adds one slack column per inequality and per finite upper
// bound. tol is forwarded to the simplex routine (0 selects its default).
//
// Errors from the lp package pass through unchanged; callers match on
// lp.ErrInfeasible and friends.
func Solve(p *Problem, tol float64) (*Solution, error) {
	n := p.NumVars()
	if n == 0 {
		return &Solution{}, nil
	}
	for j := 0; j < n; j++ {
		if p.hi[j] < p.lo[j] {
			return nil, lp.ErrInfeasible
		}
	}

	// Shifted variables y = x − lo contribute a constant to the objective
	// and move bound terms into the right-hand sides.
	offset := 0.0
	for j := 0; j < n; j++ {
		offset += p.cost[j] * p.lo[j]
	}

	nSlack := 0
	for _, r := range p.rows {
		if r.op != EQ {
			nSlack++
		}
	}
	nBound := 0
	for j := 0; j < n; j++ {
		if !math.IsInf(p.hi[j], 1) {
			nBound++
		}
	}

	cols := n + nSlack + nBound
	rows := len(p.rows) + nBound
	if rows == 0 {
		// No rows and no finite upper bounds: every variable sits at its
		// lower bound, unless a negative cost can push it to +Inf.
		for j := 0; j < n; j++ {
			if p.cost[j] < 0 {
				return nil, lp.ErrUnbounded
			}
		}
		x := make([]float64, n)
		copy(x, p.lo)
		return &Solution{Objective: offset, X: x}, nil
	}

	a := mat.NewDense(rows, cols, nil)
	b := make([]float64, rows)
	c := make([]float64, cols)
	copy(c, p.cost)

	slack := n
	for i, r := range p.rows {
		rhs := r.rhs
		sign := 1.0
		if r.op == GE {
			sign = -1
		}
		for _, t := range r.terms {
			a.Set(i, t.Var, a.At(i, t.Var)+sign*t.Coef)
			rhs -= t.Coef * p.lo[t.Var]
		}
		b[i] = sign * rhs
		if r.op != EQ {
			a.Set(i, slack, 1)
			slack++
		}
	}
	bound := len(p.rows)
	for j := 0; j < n; j++ {
		if math.IsInf(p.hi[j], 1) {
			continue
		}
		a.Set(bound, j, 1)
		a.Set(bound, slack, 1)
		b[bound] = p.hi[j] - p.lo[j]
		bound++
		slack++
	}

	// Simplex expects b ≥ 0; flipping an equality row is harmless.
	for i := 0; i < rows; i++ {
		if b[i] < 0 {
			b[i] = -b[i]
			for j := 0; j < cols; j++ {
				if v := a.At(i, j); v != 0 {
					a.Set(i, j, -v)
				}
			}
		}
	}

	opt, y, err := lp.Simplex(c, a, b, tol, nil)
	if err != nil {
		return nil, err
	}

	x := make([]float64, n)
	for j := 0; j < n; j++ {
		x[j] = p.lo[j] + y[j]
	}
	return &Solution{Objective: opt + offset, X: x}, nil
}
