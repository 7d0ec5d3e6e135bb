package optimizer

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/kilianp07/arbitrage/core/model"
)

// valuePlaces is the precision solved quantities are rounded to before they
// are reported or summed. It absorbs simplex round-off such as 99.9999999998.
const valuePlaces = 6

// Assignment holds the solved per-interval values of every variable family.
type Assignment struct {
	Charge        []float64
	Discharge     []float64
	NetFlow       []float64
	SoC           []float64
	ChargeFlag    []float64
	DischargeFlag []float64
}

func newAssignment(n int) Assignment {
	return Assignment{
		Charge:        make([]float64, n),
		Discharge:     make([]float64, n),
		NetFlow:       make([]float64, n),
		SoC:           make([]float64, n),
		ChargeFlag:    make([]float64, n),
		DischargeFlag: make([]float64, n),
	}
}

// Len returns the number of intervals.
func (a Assignment) Len() int { return len(a.Charge) }

func (a *Assignment) append(b Assignment) {
	a.Charge = append(a.Charge, b.Charge...)
	a.Discharge = append(a.Discharge, b.Discharge...)
	a.NetFlow = append(a.NetFlow, b.NetFlow...)
	a.SoC = append(a.SoC, b.SoC...)
	a.ChargeFlag = append(a.ChargeFlag, b.ChargeFlag...)
	a.DischargeFlag = append(a.DischargeFlag, b.DischargeFlag...)
}

func (a Assignment) check(n int) error {
	families := []struct {
		name string
		v    []float64
	}{
		{"charge", a.Charge},
		{"discharge", a.Discharge},
		{"net_flow", a.NetFlow},
		{"soc", a.SoC},
		{"charge_flag", a.ChargeFlag},
		{"discharge_flag", a.DischargeFlag},
	}
	for _, f := range families {
		if len(f.v) != n {
			return &InternalError{Stage: "extract", Index: -1, Err: fmt.Errorf("%s has %d values for %d intervals", f.name, len(f.v), n)}
		}
		for t, v := range f.v {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return &InternalError{Stage: "extract", Index: t, Err: fmt.Errorf("%s is %v", f.name, v)}
			}
		}
	}
	return nil
}

// flagSet reports whether an indicator equals 1 within FlagTolerance.
func flagSet(v float64) bool { return math.Abs(v-1) <= FlagTolerance }

// classify maps a pair of indicators to an action. Exclusivity guarantees at
// most one of them is set.
func classify(chargeFlag, dischargeFlag float64) model.Action {
	switch {
	case flagSet(chargeFlag):
		return model.ActionBuy
	case flagSet(dischargeFlag):
		return model.ActionSell
	default:
		return model.ActionHold
	}
}

func quantity(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(valuePlaces)
}

// Extract turns a solved assignment into the schedule and its aggregates.
//
// Cycles are floor(min(total charge, total discharge) / capacity), 0 when the
// capacity is 0. Revenue is the floor of the summed profit. Both truncations
// are deliberate: only completed round trips and whole currency units count.
func Extract(prices []model.PricePoint, a Assignment, cfg model.StorageConfig) (model.OptimizationResult, error) {
	n := len(prices)
	if err := a.check(n); err != nil {
		return model.OptimizationResult{}, err
	}

	schedule := make([]model.ScheduleEntry, n)
	var totalCharge, totalDischarge, profit decimal.Decimal
	for t, pp := range prices {
		c, d := quantity(a.Charge[t]), quantity(a.Discharge[t])
		totalCharge = totalCharge.Add(c)
		totalDischarge = totalDischarge.Add(d)
		price := decimal.NewFromFloat(pp.Price).Shift(-3)
		profit = profit.Add(price.Mul(d.Sub(c)))

		schedule[t] = model.ScheduleEntry{
			Timestamp:     pp.Timestamp,
			NetFlow:       quantity(a.NetFlow[t]).InexactFloat64(),
			StateOfCharge: quantity(a.SoC[t]).InexactFloat64(),
			Action:        classify(a.ChargeFlag[t], a.DischargeFlag[t]),
			Price:         price.InexactFloat64(),
		}
	}

	cycles := 0
	if cfg.Capacity > 0 {
		roundTrip := decimal.Min(totalCharge, totalDischarge)
		cycles = int(roundTrip.Div(decimal.NewFromFloat(cfg.Capacity)).Floor().IntPart())
	}
	return model.OptimizationResult{
		TotalCycles: cycles,
		Revenue:     int(profit.Floor().IntPart()),
		Schedule:    schedule,
	}, nil
}
