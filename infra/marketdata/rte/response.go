package rte

import (
	"fmt"
	"sort"
	"time"
)

// Response is the payload of the france_power_exchanges endpoint.
type Response struct {
	FrancePowerExchanges []Exchange `json:"france_power_exchanges"`
}

// Exchange groups the delivery periods of one publication.
type Exchange struct {
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
	UpdatedDate string  `json:"updated_date"`
	Values      []Value `json:"values"`
}

// Value is one priced delivery period.
type Value struct {
	StartDate string  `json:"start_date"`
	EndDate   string  `json:"end_date"`
	Value     float64 `json:"value"`
	Price     float64 `json:"price"`
}

type slot struct {
	start time.Time
	end   time.Time
	price float64
}

func (r *Response) slots() ([]slot, error) {
	var out []slot
	for _, ex := range r.FrancePowerExchanges {
		for _, v := range ex.Values {
			start, err := time.Parse(time.RFC3339, v.StartDate)
			if err != nil {
				return nil, fmt.Errorf("failed to parse time: %w", err)
			}
			end, err := time.Parse(time.RFC3339, v.EndDate)
			if err != nil {
				return nil, fmt.Errorf("failed to parse time: %w", err)
			}
			out = append(out, slot{start: start, end: end, price: v.Price})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].start.Before(out[j].start) })
	return out, nil
}

// Grid lays the prices out on a regular grid from start (inclusive) to end
// (exclusive). The step is the duration of the first delivery period; slots
// without a price are nil and the first price seen for a slot wins.
func (r *Response) Grid(start, end time.Time) ([]*float64, int, error) {
	slots, err := r.slots()
	if err != nil {
		return nil, 0, err
	}
	if len(slots) == 0 {
		return []*float64{}, 0, nil
	}
	step := slots[0].end.Sub(slots[0].start)
	if step < time.Minute || step%time.Minute != 0 {
		return nil, 0, fmt.Errorf("unsupported delivery period %s", step)
	}
	n := int(end.Sub(start) / step)
	if n < 0 {
		n = 0
	}
	grid := make([]*float64, n)
	for _, s := range slots {
		off := s.start.Sub(start)
		if off < 0 || off%step != 0 {
			continue
		}
		i := int(off / step)
		if i >= n || grid[i] != nil {
			continue
		}
		p := s.price
		grid[i] = &p
	}
	return grid, int(step / time.Minute), nil
}
