package milp

import (
	"fmt"
	"math"
)

// Kind tags a decision variable.
type Kind int

const (
	Continuous Kind = iota
	Binary
)

func (k Kind) String() string {
	switch k {
	case Continuous:
		return "continuous"
	case Binary:
		return "binary"
	default:
		return "unknown"
	}
}

// Variable is a bounded decision variable. Lower must be finite; Upper may be
// +Inf for continuous variables. Binary variables are restricted to {0,1}
// whatever their bounds say.
type Variable struct {
	Name  string
	Kind  Kind
	Lower float64
	Upper float64
}

// Term is coef * x[Var].
type Term struct {
	Var  int
	Coef float64
}

// Op is the relation between the left-hand side and the RHS of a constraint.
type Op int

const (
	LE Op = iota
	EQ
	GE
)

func (o Op) String() string {
	switch o {
	case LE:
		return "<="
	case EQ:
		return "=="
	case GE:
		return ">="
	default:
		return "?"
	}
}

// Constraint is sum(Terms) Op RHS.
type Constraint struct {
	Name  string
	Terms []Term
	Op    Op
	RHS   float64
}

// Sense selects the direction of optimization.
type Sense int

const (
	Minimize Sense = iota
	Maximize
)

// sign maps the objective to minimization form.
func (s Sense) sign() float64 {
	if s == Maximize {
		return -1
	}
	return 1
}

// Heuristic turns the values of a fractional relaxation into a candidate
// integral assignment, or returns nil. Candidates are checked against the
// problem before they are used, so a heuristic only has to be good, not
// always right.
type Heuristic func(relaxed []float64) []float64

// Problem is a mixed-integer linear program.
type Problem struct {
	Sense       Sense
	Variables   []Variable
	Objective   []Term
	Constraints []Constraint
	// Heuristic, when set, proposes incumbents during branch-and-bound.
	Heuristic Heuristic
}

// NewProblem returns an empty problem with the given sense.
func NewProblem(sense Sense) *Problem {
	return &Problem{Sense: sense}
}

// AddVariable appends v and returns its index.
func (p *Problem) AddVariable(v Variable) int {
	p.Variables = append(p.Variables, v)
	return len(p.Variables) - 1
}

// Continuous adds a continuous variable bounded by [lo, hi].
func (p *Problem) Continuous(name string, lo, hi float64) int {
	return p.AddVariable(Variable{Name: name, Kind: Continuous, Lower: lo, Upper: hi})
}

// Binary adds a {0,1} variable.
func (p *Problem) Binary(name string) int {
	return p.AddVariable(Variable{Name: name, Kind: Binary, Lower: 0, Upper: 1})
}

// AddConstraint appends sum(terms) op rhs and returns its index.
func (p *Problem) AddConstraint(name string, op Op, rhs float64, terms ...Term) int {
	p.Constraints = append(p.Constraints, Constraint{Name: name, Terms: terms, Op: op, RHS: rhs})
	return len(p.Constraints) - 1
}

// SetObjective replaces the objective terms.
func (p *Problem) SetObjective(terms ...Term) {
	p.Objective = terms
}

// Evaluate returns the objective value of x in the problem's own sense.
func (p *Problem) Evaluate(x []float64) float64 {
	var v float64
	for _, t := range p.Objective {
		v += t.Coef * x[t.Var]
	}
	return v
}

// Feasible reports whether x satisfies every bound, integrality requirement
// and constraint of p within the relative tolerance tol.
func (p *Problem) Feasible(x []float64, tol float64) bool {
	if len(x) != len(p.Variables) {
		return false
	}
	for j, v := range p.Variables {
		if x[j] < v.Lower-tol*(1+math.Abs(v.Lower)) || x[j] > v.Upper+tol*(1+math.Abs(v.Upper)) {
			return false
		}
		if v.Kind == Binary && math.Abs(x[j]-math.Round(x[j])) > IntegralityTolerance {
			return false
		}
	}
	_, ok := p.violated(x, tol)
	return ok
}

// violated returns the index of the first constraint x breaks by more than
// tol relative to the magnitude of its terms.
func (p *Problem) violated(x []float64, tol float64) (int, bool) {
	for i, c := range p.Constraints {
		var lhs, mag float64
		for _, t := range c.Terms {
			v := t.Coef * x[t.Var]
			lhs += v
			mag += math.Abs(v)
		}
		slack := tol * (1 + math.Abs(c.RHS) + mag)
		switch c.Op {
		case LE:
			if lhs > c.RHS+slack {
				return i, false
			}
		case GE:
			if lhs < c.RHS-slack {
				return i, false
			}
		default:
			if math.Abs(lhs-c.RHS) > slack {
				return i, false
			}
		}
	}
	return -1, true
}

// Validate checks indices and numeric values. It does not check feasibility.
func (p *Problem) Validate() error {
	n := len(p.Variables)
	for i, v := range p.Variables {
		if math.IsNaN(v.Lower) || math.IsInf(v.Lower, 0) {
			return fmt.Errorf("milp: variable %d (%s): lower bound must be finite", i, v.Name)
		}
		if math.IsNaN(v.Upper) || math.IsInf(v.Upper, -1) {
			return fmt.Errorf("milp: variable %d (%s): invalid upper bound %v", i, v.Name, v.Upper)
		}
		if v.Kind != Continuous && v.Kind != Binary {
			return fmt.Errorf("milp: variable %d (%s): unknown kind %d", i, v.Name, v.Kind)
		}
	}
	if err := checkTerms(p.Objective, n); err != nil {
		return fmt.Errorf("milp: objective: %w", err)
	}
	for i, c := range p.Constraints {
		if err := checkTerms(c.Terms, n); err != nil {
			return fmt.Errorf("milp: constraint %d (%s): %w", i, c.Name, err)
		}
		if math.IsNaN(c.RHS) || math.IsInf(c.RHS, 0) {
			return fmt.Errorf("milp: constraint %d (%s): rhs must be finite", i, c.Name)
		}
		if c.Op != LE && c.Op != EQ && c.Op != GE {
			return fmt.Errorf("milp: constraint %d (%s): unknown op %d", i, c.Name, c.Op)
		}
	}
	return nil
}

func checkTerms(terms []Term, n int) error {
	for _, t := range terms {
		if t.Var < 0 || t.Var >= n {
			return fmt.Errorf("variable index %d out of range [0,%d)", t.Var, n)
		}
		if math.IsNaN(t.Coef) || math.IsInf(t.Coef, 0) {
			return fmt.Errorf("coefficient of variable %d must be finite", t.Var)
		}
	}
	return nil
}
