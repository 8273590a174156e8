// Package linprog provides an explicit linear-program description and a
// stateless solve function on top of gonum's simplex method. A Problem is a
// plain value (variables with bounds, linear rows, minimisation objective);
// it carries no solver state and can be built, inspected and solved
// independently.
package linprog

import "math"

// Op is a constraint relation.
type Op int

const (
	EQ Op = iota
	LE
	GE
)

// Term is one coefficient of a constraint row.
type Term struct {
	Var  int
	Coef float64
}

type row struct {
	terms []Term
	op    Op
	rhs   float64
}

// Problem describes min cᵀx subject to linear rows and per-variable bounds.
type Problem struct {
	lo   []float64
	hi   []float64
	cost []float64
	rows []row
}

func NewProblem() *Problem {
	return &Problem{}
}

// AddVar registers a variable with bounds [lo, hi] and objective
// coefficient cost, returning its index. lo must be finite; hi may be
// +Inf. A variable with hi < lo makes the problem infeasible.
func (p *Problem) AddVar(lo, hi, cost float64) int {
	if math.IsInf(lo, 0) || math.IsNaN(lo) {
		panic("linprog: variable lower bound must be finite")
	}
	p.lo = append(p.lo, lo)
	p.hi = append(p.hi, hi)
	p.cost = append(p.cost, cost)
	return len(p.lo) - 1
}

// AddRow adds the constraint Σ terms <op> rhs.
func (p *Problem) AddRow(op Op, rhs float64, terms ...Term) {
	p.rows = append(p.rows, row{terms: terms, op: op, rhs: rhs})
}

// NumVars is the number of registered variables.
func (p *Problem) NumVars() int { return len(p.lo) }

// NumRows is the number of constraint rows (excluding variable bounds).
func (p *Problem) NumRows() int { return len(p.rows) }
