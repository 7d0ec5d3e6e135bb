package milp

import (
	"context"
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	// pivotTol is the smallest tableau entry accepted as a pivot.
	pivotTol = 1e-9
	// blandAfter is the number of consecutive degenerate pivots after which
	// the entering rule falls back to Bland's rule.
	blandAfter = 50
	// ctxEvery is how many pivots run between two context checks.
	ctxEvery = 32
)

var errIterationLimit = errors.New("milp: simplex iteration limit reached")

// boundedLP is minimize cost·x subject to rows, 0 <= x <= upper. Upper
// bounds may be +Inf and are handled by the pivoting rules, not as rows.
type boundedLP struct {
	rows  []stdRow
	cost  []float64
	upper []float64
}

// tableau is a dense bounded-variable primal simplex. Columns are the
// structural variables, then one slack per inequality row, then one
// artificial per row that needs one for a feasible start.
type tableau struct {
	t       *mat.Dense
	m, n    int
	nstruct int
	beta    []float64 // values of the basic variables, by row
	basis   []int     // basic column of each row
	pos     []int     // row of a basic column, -1 when nonbasic
	upper   []float64
	atUpper []bool
	art     []bool
	d       []float64 // reduced costs
	tol     float64
}

func newTableau(lp boundedLP, tol float64) *tableau {
	m := len(lp.rows)
	nstruct := len(lp.cost)
	nslack, nart := 0, 0
	for _, r := range lp.rows {
		if !r.eq {
			nslack++
		}
		if r.eq || r.rhs < 0 {
			nart++
		}
	}
	n := nstruct + nslack + nart
	tb := &tableau{
		m:       m,
		n:       n,
		nstruct: nstruct,
		beta:    make([]float64, m),
		basis:   make([]int, m),
		pos:     make([]int, n),
		upper:   make([]float64, n),
		atUpper: make([]bool, n),
		art:     make([]bool, n),
		d:       make([]float64, n),
		tol:     tol,
	}
	if m > 0 {
		tb.t = mat.NewDense(m, n, nil)
	}
	copy(tb.upper, lp.upper)
	for j := nstruct; j < n; j++ {
		tb.upper[j] = math.Inf(1)
	}
	for j := range tb.pos {
		tb.pos[j] = -1
	}

	slack, artCol := nstruct, nstruct+nslack
	for i, r := range lp.rows {
		row := tb.t.RawRowView(i)
		sign := 1.0
		if r.rhs < 0 {
			sign = -1
		}
		for k, j := range r.cols {
			row[j] = sign * r.coef[k]
		}
		basic := -1
		if !r.eq {
			row[slack] = sign
			if sign > 0 {
				basic = slack
			}
			slack++
		}
		if basic < 0 {
			row[artCol] = 1
			tb.art[artCol] = true
			basic = artCol
			artCol++
		}
		tb.basis[i] = basic
		tb.pos[basic] = i
		tb.beta[i] = sign * r.rhs
	}
	return tb
}

// solve runs both phases and returns the structural values.
func (tb *tableau) solve(ctx context.Context, cost []float64) ([]float64, error) {
	phase1 := make([]float64, tb.n)
	needed := false
	for j, a := range tb.art {
		if a {
			phase1[j] = 1
			needed = true
		}
	}
	if needed {
		if err := tb.run(ctx, phase1); err != nil {
			if errors.Is(err, errUnbounded) {
				return nil, errors.New("milp: phase one unbounded")
			}
			return nil, err
		}
		var infeas, scale float64
		for i, j := range tb.basis {
			if tb.art[j] {
				infeas += tb.beta[i]
			}
			scale = math.Max(scale, math.Abs(tb.beta[i]))
		}
		if infeas > feasTol*(1+scale) {
			return nil, errInfeasible
		}
		for j, a := range tb.art {
			if !a {
				continue
			}
			tb.upper[j] = 0
			if i := tb.pos[j]; i >= 0 {
				tb.beta[i] = 0
			}
		}
	}

	phase2 := make([]float64, tb.n)
	copy(phase2, cost)
	if err := tb.run(ctx, phase2); err != nil {
		return nil, err
	}

	x := make([]float64, tb.nstruct)
	for j := range x {
		switch {
		case tb.pos[j] >= 0:
			x[j] = tb.beta[tb.pos[j]]
		case tb.atUpper[j]:
			x[j] = tb.upper[j]
		}
		x[j] = math.Max(0, math.Min(x[j], tb.upper[j]))
	}
	return x, nil
}

// run iterates to optimality for cost from the current basis.
func (tb *tableau) run(ctx context.Context, cost []float64) error {
	for j := range tb.d {
		tb.d[j] = cost[j]
	}
	for i, b := range tb.basis {
		if cb := cost[b]; cb != 0 {
			floats.AddScaled(tb.d, -cb, tb.t.RawRowView(i))
		}
	}

	limit := 50*(tb.m+tb.n) + 1000
	degenerate := 0
	for iter := 0; ; iter++ {
		if iter%ctxEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if iter >= limit {
			return errIterationLimit
		}
		bland := degenerate >= blandAfter
		j, dir := tb.entering(bland)
		if j < 0 {
			return nil
		}
		r, theta := tb.ratio(j, dir, bland)
		if math.IsInf(theta, 1) {
			return errUnbounded
		}
		tb.step(j, dir, r, theta)
		if theta <= pivotTol {
			degenerate++
		} else {
			degenerate = 0
		}
	}
}

// entering picks the nonbasic column to move and its direction: +1 to
// increase from the lower bound, -1 to decrease from the upper bound.
func (tb *tableau) entering(bland bool) (int, float64) {
	best, dir, score := -1, 0.0, 0.0
	for j := 0; j < tb.n; j++ {
		if tb.pos[j] >= 0 || tb.upper[j] <= pivotTol {
			continue
		}
		var s, dj float64
		switch {
		case !tb.atUpper[j] && tb.d[j] < -tb.tol:
			s, dj = -tb.d[j], 1
		case tb.atUpper[j] && tb.d[j] > tb.tol:
			s, dj = tb.d[j], -1
		default:
			continue
		}
		if bland {
			return j, dj
		}
		if s > score {
			best, dir, score = j, dj, s
		}
	}
	return best, dir
}

// ratio returns the blocking row and the step length. r is -1 when the
// entering column reaches its own opposite bound first.
func (tb *tableau) ratio(j int, dir float64, bland bool) (int, float64) {
	r, theta := -1, tb.upper[j]
	var pivot float64
	for i := 0; i < tb.m; i++ {
		a := dir * tb.t.At(i, j)
		var lim float64
		switch {
		case a > pivotTol:
			lim = math.Max(0, tb.beta[i]) / a
		case a < -pivotTol:
			ub := tb.upper[tb.basis[i]]
			if math.IsInf(ub, 1) {
				continue
			}
			lim = math.Max(0, ub-tb.beta[i]) / -a
		default:
			continue
		}
		switch {
		case lim < theta-pivotTol:
		case lim <= theta+pivotTol && r >= 0:
			// Ties: Bland keeps the lowest basic index, otherwise the
			// largest pivot wins.
			if bland && tb.basis[i] > tb.basis[r] {
				continue
			}
			if !bland && math.Abs(a) <= pivot {
				continue
			}
		default:
			continue
		}
		r, theta, pivot = i, lim, math.Abs(a)
	}
	return r, theta
}

func (tb *tableau) step(j int, dir float64, r int, theta float64) {
	if theta > 0 {
		for i := 0; i < tb.m; i++ {
			if a := tb.t.At(i, j); a != 0 {
				tb.beta[i] -= dir * theta * a
			}
		}
	}
	if r < 0 {
		tb.atUpper[j] = !tb.atUpper[j]
		return
	}

	entering := theta
	if dir < 0 {
		entering = tb.upper[j] - theta
	}
	leaving := tb.basis[r]
	tb.atUpper[leaving] = dir*tb.t.At(r, j) < 0
	tb.pos[leaving] = -1
	tb.beta[r] = entering
	tb.basis[r] = j
	tb.pos[j] = r
	tb.atUpper[j] = false
	tb.pivot(r, j)
}

func (tb *tableau) pivot(r, j int) {
	rowR := tb.t.RawRowView(r)
	floats.Scale(1/rowR[j], rowR)
	rowR[j] = 1
	// Only the nonzero span of the pivot row changes the other rows.
	lo, hi := 0, len(rowR)-1
	for lo < j && rowR[lo] == 0 {
		lo++
	}
	for hi > j && rowR[hi] == 0 {
		hi--
	}
	span := rowR[lo : hi+1]
	for i := 0; i < tb.m; i++ {
		if i == r {
			continue
		}
		row := tb.t.RawRowView(i)
		if f := row[j]; f != 0 {
			floats.AddScaled(row[lo:hi+1], -f, span)
			row[j] = 0
		}
	}
	if f := tb.d[j]; f != 0 {
		floats.AddScaled(tb.d[lo:hi+1], -f, span)
		tb.d[j] = 0
	}
}
