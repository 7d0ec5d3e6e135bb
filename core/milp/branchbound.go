package milp

import (
	"context"
	"errors"
	"fmt"
	"math"
)

const (
	// IntegralityTolerance is how far a binary may be from 0 or 1 and still
	// count as integral.
	IntegralityTolerance = 1e-6
	// DefaultNodeLimit bounds the number of relaxations solved per problem.
	DefaultNodeLimit = 10000
	// DefaultLPTolerance is the reduced cost tolerance of the simplex.
	DefaultLPTolerance = 1e-9
	// DefaultGap is the absolute objective gap under which a node is pruned.
	DefaultGap = 1e-9
)

// BranchAndBound is a depth-first branch-and-bound solver over LP
// relaxations. It is stateless and safe for concurrent use.
type BranchAndBound struct {
	NodeLimit   int
	LPTolerance float64
	Gap         float64
}

// Option configures a BranchAndBound solver.
type Option func(*BranchAndBound)

// WithNodeLimit caps the number of explored nodes.
func WithNodeLimit(n int) Option {
	return func(b *BranchAndBound) {
		if n > 0 {
			b.NodeLimit = n
		}
	}
}

// WithGap sets the absolute pruning gap.
func WithGap(g float64) Option {
	return func(b *BranchAndBound) {
		if g >= 0 {
			b.Gap = g
		}
	}
}

// NewBranchAndBound returns a solver with default limits.
func NewBranchAndBound(opts ...Option) *BranchAndBound {
	b := &BranchAndBound{NodeLimit: DefaultNodeLimit, LPTolerance: DefaultLPTolerance, Gap: DefaultGap}
	for _, o := range opts {
		o(b)
	}
	return b
}

type node struct {
	lo, hi []float64
}

// relaxFn is swapped in tests to simulate back-end failures.
var relaxFn = relax

// search is the state of one Solve call.
type search struct {
	p     *Problem
	tol   float64
	gap   float64
	limit int
	best  *relaxation
	nodes int
}

// Solve implements Solver. The relaxations run on the calling goroutine and
// stop within a few pivots once ctx is done.
func (b *BranchAndBound) Solve(ctx context.Context, p *Problem) (Solution, error) {
	if err := p.Validate(); err != nil {
		return Solution{}, err
	}
	s := &search{p: p, tol: b.LPTolerance, gap: b.Gap, limit: b.NodeLimit}
	if s.tol <= 0 {
		s.tol = DefaultLPTolerance
	}
	if s.limit <= 0 {
		s.limit = DefaultNodeLimit
	}

	hitLimit, err := s.run(ctx)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			return Solution{Status: se.Status, Nodes: s.nodes}, err
		}
		return Solution{Nodes: s.nodes}, err
	}
	return s.result(hitLimit)
}

func (s *search) run(ctx context.Context) (bool, error) {
	stack := []node{s.root()}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return false, &StatusError{Status: StatusTimedOut, Err: err}
		}
		if s.nodes >= s.limit {
			return true, nil
		}
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		s.nodes++

		rel, err := relaxFn(ctx, s.p, cur.lo, cur.hi, s.tol)
		switch {
		case err == nil:
		case errors.Is(err, errInfeasible):
			continue
		case errors.Is(err, errUnbounded):
			return false, &StatusError{Status: StatusUnbounded}
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
			return false, &StatusError{Status: StatusTimedOut, Err: err}
		default:
			return false, fmt.Errorf("milp: node %d: %w", s.nodes, err)
		}

		if s.pruned(rel.objective) {
			continue
		}
		j := mostFractional(s.p, rel.values)
		if j < 0 {
			s.offer(rel)
			continue
		}
		s.heuristics(rel.values)
		if s.pruned(rel.objective) {
			continue
		}
		stack = append(stack, cur.branch(j, rel.values[j])...)
	}
	return false, nil
}

func (s *search) root() node {
	n := len(s.p.Variables)
	root := node{lo: make([]float64, n), hi: make([]float64, n)}
	for j, v := range s.p.Variables {
		root.lo[j], root.hi[j] = v.Lower, v.Upper
		if v.Kind == Binary {
			root.lo[j] = math.Max(0, math.Ceil(v.Lower-IntegralityTolerance))
			root.hi[j] = math.Min(1, math.Floor(v.Upper+IntegralityTolerance))
		}
	}
	return root
}

func (s *search) result(hitLimit bool) (Solution, error) {
	if s.best == nil {
		if hitLimit {
			return Solution{Status: StatusNodeLimit, Nodes: s.nodes}, &StatusError{Status: StatusNodeLimit}
		}
		return Solution{Status: StatusInfeasible, Nodes: s.nodes}, &StatusError{Status: StatusInfeasible}
	}
	values := s.best.values
	for j, v := range s.p.Variables {
		if v.Kind == Binary {
			values[j] = math.Round(values[j])
		}
	}
	sol := Solution{Status: StatusOptimal, Objective: s.p.Evaluate(values), Values: values, Nodes: s.nodes}
	if hitLimit {
		sol.Status = StatusNodeLimit
		return sol, &StatusError{Status: StatusNodeLimit}
	}
	return sol, nil
}

// pruned reports whether a node bounded by objective cannot beat the
// incumbent.
func (s *search) pruned(objective float64) bool {
	if s.best == nil {
		return false
	}
	return objective >= s.best.objective-(s.gap+s.gap*math.Abs(s.best.objective))
}

// offer keeps rel when it improves on the incumbent.
func (s *search) offer(rel relaxation) {
	if s.best == nil || rel.objective < s.best.objective {
		r := rel
		s.best = &r
	}
}

// heuristics tries to turn a fractional relaxation into an incumbent: the
// problem's own heuristic first, then plain rounding of the binaries.
func (s *search) heuristics(x []float64) {
	if s.p.Heuristic != nil {
		s.candidate(s.fromHeuristic(x))
	}
	s.candidate(s.rounded(x))
}

func (s *search) fromHeuristic(x []float64) (cand []float64) {
	defer func() {
		if recover() != nil {
			cand = nil
		}
	}()
	in := make([]float64, len(x))
	copy(in, x)
	return s.p.Heuristic(in)
}

func (s *search) rounded(x []float64) []float64 {
	out := make([]float64, len(x))
	for j, v := range s.p.Variables {
		out[j] = x[j]
		if v.Kind == Binary {
			out[j] = math.Round(x[j])
		}
	}
	return out
}

func (s *search) candidate(x []float64) {
	if x == nil || !s.p.Feasible(x, checkTol) {
		return
	}
	s.offer(relaxation{objective: s.p.Sense.sign() * s.p.Evaluate(x), values: x})
}

// branch splits nd on binary j. The child nearest to the relaxed value v is
// returned last so that it is explored first.
func (nd node) branch(j int, v float64) []node {
	down, up := nd.clone(), nd.clone()
	down.hi[j] = math.Floor(v)
	up.lo[j] = math.Ceil(v)
	if v-math.Floor(v) >= 0.5 {
		return []node{down, up}
	}
	return []node{up, down}
}

func (nd node) clone() node {
	c := node{lo: make([]float64, len(nd.lo)), hi: make([]float64, len(nd.hi))}
	copy(c.lo, nd.lo)
	copy(c.hi, nd.hi)
	return c
}

// mostFractional returns the binary variable whose value is farthest from an
// integer, or -1 when all binaries are integral.
func mostFractional(p *Problem, x []float64) int {
	idx, worst := -1, IntegralityTolerance
	for j, v := range p.Variables {
		if v.Kind != Binary {
			continue
		}
		f := math.Abs(x[j] - math.Round(x[j]))
		if f > worst {
			idx, worst = j, f
		}
	}
	return idx
}
