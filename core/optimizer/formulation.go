package optimizer

import (
	"fmt"
	"math"

	"github.com/kilianp07/arbitrage/core/milp"
	"github.com/kilianp07/arbitrage/core/model"
)

// pricePerKWh converts a feed price quoted per MWh to the kWh unit the
// capacity is expressed in.
const pricePerKWh = 1.0 / 1000

// formulation is the problem built for one window together with the index of
// every variable, per family.
type formulation struct {
	problem       *milp.Problem
	charge        []int
	discharge     []int
	netFlow       []int
	soc           []int
	chargeFlag    []int
	dischargeFlag []int
}

// formulate builds the arbitrage program for prices starting from initialSoC.
// Inputs are expected to be validated already; anything unexpected is reported
// as an InternalError naming the interval being built.
func formulate(prices []model.PricePoint, cfg model.StorageConfig, initialSoC float64) (f *formulation, err error) {
	n := len(prices)
	p := cfg.PowerPerInterval()
	f = &formulation{
		problem:       milp.NewProblem(milp.Maximize),
		charge:        make([]int, n),
		discharge:     make([]int, n),
		netFlow:       make([]int, n),
		soc:           make([]int, n),
		chargeFlag:    make([]int, n),
		dischargeFlag: make([]int, n),
	}
	pb := f.problem
	objective := make([]milp.Term, 0, 2*n)

	t := -1
	defer func() {
		if r := recover(); r != nil {
			f, err = nil, &InternalError{Stage: "formulation", Index: t, Err: fmt.Errorf("%v", r)}
		}
	}()

	for t = 0; t < n; t++ {
		price := prices[t].Price * pricePerKWh
		if math.IsNaN(price) || math.IsInf(price, 0) {
			return nil, &InternalError{Stage: "formulation", Index: t, Err: fmt.Errorf("price %v is not finite", prices[t].Price)}
		}

		c := pb.Continuous(fmt.Sprintf("charge_%d", t), 0, p)
		d := pb.Continuous(fmt.Sprintf("discharge_%d", t), 0, p)
		net := pb.Continuous(fmt.Sprintf("net_flow_%d", t), -p, p)
		soc := pb.Continuous(fmt.Sprintf("soc_%d", t), 0, cfg.Capacity)
		cf := pb.Binary(fmt.Sprintf("charge_flag_%d", t))
		df := pb.Binary(fmt.Sprintf("discharge_flag_%d", t))
		f.charge[t], f.discharge[t], f.netFlow[t], f.soc[t] = c, d, net, soc
		f.chargeFlag[t], f.dischargeFlag[t] = cf, df

		if t == 0 {
			pb.AddConstraint(fmt.Sprintf("soc_balance_%d", t), milp.EQ, initialSoC,
				milp.Term{Var: soc, Coef: 1}, milp.Term{Var: net, Coef: -1})
		} else {
			pb.AddConstraint(fmt.Sprintf("soc_balance_%d", t), milp.EQ, 0,
				milp.Term{Var: soc, Coef: 1}, milp.Term{Var: f.soc[t-1], Coef: -1}, milp.Term{Var: net, Coef: -1})
		}
		pb.AddConstraint(fmt.Sprintf("net_flow_def_%d", t), milp.EQ, 0,
			milp.Term{Var: net, Coef: 1}, milp.Term{Var: c, Coef: -1}, milp.Term{Var: d, Coef: 1})
		pb.AddConstraint(fmt.Sprintf("charge_limit_%d", t), milp.LE, 0,
			milp.Term{Var: c, Coef: 1}, milp.Term{Var: cf, Coef: -p})
		pb.AddConstraint(fmt.Sprintf("discharge_limit_%d", t), milp.LE, 0,
			milp.Term{Var: d, Coef: 1}, milp.Term{Var: df, Coef: -p})
		pb.AddConstraint(fmt.Sprintf("exclusivity_%d", t), milp.LE, 1,
			milp.Term{Var: cf, Coef: 1}, milp.Term{Var: df, Coef: 1})

		objective = append(objective, milp.Term{Var: d, Coef: price}, milp.Term{Var: c, Coef: -price})
	}
	pb.SetObjective(objective...)
	pb.Heuristic = f.netOff

	t = -1
	if err := pb.Validate(); err != nil {
		return nil, &InternalError{Stage: "formulation", Index: -1, Err: err}
	}
	return f, nil
}

// netOff turns a relaxed point into an integral one. Where an interval both
// charges and discharges, the smaller flow is removed from both sides, which
// leaves the net flow, the state of charge and the revenue unchanged. Each
// indicator is then raised exactly when its flow is positive.
func (f *formulation) netOff(x []float64) []float64 {
	for t := range f.charge {
		c, d := x[f.charge[t]], x[f.discharge[t]]
		m := math.Min(c, d)
		c, d = math.Max(0, c-m), math.Max(0, d-m)
		x[f.charge[t]], x[f.discharge[t]] = c, d
		x[f.chargeFlag[t]], x[f.dischargeFlag[t]] = 0, 0
		if c > 0 {
			x[f.chargeFlag[t]] = 1
		}
		if d > 0 {
			x[f.dischargeFlag[t]] = 1
		}
	}
	return x
}

// assignment copies the solved values of every family out of sol.
func (f *formulation) assignment(sol milp.Solution) (Assignment, error) {
	n := len(f.charge)
	if len(sol.Values) != len(f.problem.Variables) {
		return Assignment{}, &InternalError{Stage: "solution", Index: -1,
			Err: fmt.Errorf("got %d values for %d variables", len(sol.Values), len(f.problem.Variables))}
	}
	a := newAssignment(n)
	for t := 0; t < n; t++ {
		a.Charge[t] = sol.Values[f.charge[t]]
		a.Discharge[t] = sol.Values[f.discharge[t]]
		a.NetFlow[t] = sol.Values[f.netFlow[t]]
		a.SoC[t] = sol.Values[f.soc[t]]
		a.ChargeFlag[t] = sol.Values[f.chargeFlag[t]]
		a.DischargeFlag[t] = sol.Values[f.dischargeFlag[t]]
	}
	return a, nil
}
