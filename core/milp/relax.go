package milp

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// feasTol is the slack allowed when checking constraints that no longer
// involve any free variable, and when deciding that a variable is fixed.
const feasTol = 1e-9

// checkTol is the relative slack a relaxed solution may show against the
// original constraints before it is rejected as numerically unsound.
const checkTol = 1e-6

var (
	errInfeasible = errors.New("relaxation infeasible")
	errUnbounded  = errors.New("relaxation unbounded")
)

type relaxation struct {
	// objective in minimization form
	objective float64
	values    []float64
}

type stdRow struct {
	cols []int
	coef []float64
	rhs  float64
	eq   bool
}

// relax solves the LP relaxation of p with variable bounds replaced by lo/hi.
//
// Every free variable is shifted by its lower bound so that x' >= 0 holds and
// fixed variables are substituted into the right-hand sides. Upper bounds stay
// bounds of the simplex. Rows left without coefficients are checked and
// dropped.
func relax(ctx context.Context, p *Problem, lo, hi []float64, tol float64) (relaxation, error) {
	n := len(p.Variables)
	sign := p.Sense.sign()
	cost := make([]float64, n)
	for _, t := range p.Objective {
		cost[t.Var] += sign * t.Coef
	}

	x := make([]float64, n)
	col := make([]int, n)
	ncols := 0
	for j := 0; j < n; j++ {
		if hi[j] < lo[j]-feasTol {
			return relaxation{}, errInfeasible
		}
		x[j] = lo[j]
		col[j] = -1
		if hi[j]-lo[j] > feasTol {
			col[j] = ncols
			ncols++
		}
	}

	lp := boundedLP{cost: make([]float64, ncols), upper: make([]float64, ncols)}
	for j, k := range col {
		if k >= 0 {
			lp.cost[k] = cost[j]
			lp.upper[k] = hi[j] - lo[j]
		}
	}
	for _, c := range p.Constraints {
		rhs := c.RHS
		acc := make(map[int]float64, len(c.Terms))
		for _, t := range c.Terms {
			rhs -= t.Coef * lo[t.Var]
			if k := col[t.Var]; k >= 0 && t.Coef != 0 {
				acc[k] += t.Coef
			}
		}
		r := stdRow{rhs: rhs, eq: c.Op == EQ}
		for _, t := range c.Terms {
			k := col[t.Var]
			if k < 0 {
				continue
			}
			if v := acc[k]; v != 0 {
				r.cols = append(r.cols, k)
				r.coef = append(r.coef, v)
				delete(acc, k)
			}
		}
		if len(r.cols) == 0 {
			if !emptyRowHolds(c.Op, rhs) {
				return relaxation{}, errInfeasible
			}
			continue
		}
		if c.Op == GE {
			for i := range r.coef {
				r.coef[i] = -r.coef[i]
			}
			r.rhs = -r.rhs
		}
		lp.rows = append(lp.rows, r)
	}

	if ncols > 0 {
		sol, err := newTableau(lp, tol).solve(ctx, lp.cost)
		if err != nil {
			return relaxation{}, err
		}
		for j, k := range col {
			if k >= 0 {
				x[j] = lo[j] + sol[k]
			}
		}
	}
	if i, ok := p.violated(x, checkTol); !ok {
		return relaxation{}, fmt.Errorf("milp: relaxed solution violates constraint %d (%s)", i, p.Constraints[i].Name)
	}
	return relaxation{objective: dot(cost, x), values: x}, nil
}

func emptyRowHolds(op Op, rhs float64) bool {
	switch op {
	case LE:
		return rhs >= -feasTol
	case GE:
		return rhs <= feasTol
	default:
		return math.Abs(rhs) <= feasTol
	}
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
