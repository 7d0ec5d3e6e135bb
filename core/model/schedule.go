package model

// Action is the operating mode chosen for one interval.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionBuy, ActionSell, ActionHold:
		return true
	default:
		return false
	}
}

// ScheduleEntry is the plan for a single interval.
type ScheduleEntry struct {
	Timestamp     string  `json:"date"`
	NetFlow       float64 `json:"net_flow_kWh"`
	StateOfCharge float64 `json:"SoC_kWh"`
	Action        Action  `json:"action"`
	// Price is the interval price converted to EUR/kWh, the unit the
	// flows are expressed in.
	Price         float64 `json:"price"`
}

// OptimizationResult is the schedule together with its aggregates.
type OptimizationResult struct {
	TotalCycles int             `json:"total_cycles"`
	Revenue     int             `json:"revenue"`
	Schedule    []ScheduleEntry `json:"data"`
}

// Counts returns how many intervals carry each action.
func (r OptimizationResult) Counts() map[Action]int {
	out := map[Action]int{ActionBuy: 0, ActionSell: 0, ActionHold: 0}
	for _, e := range r.Schedule {
		out[e.Action]++
	}
	return out
}
