package prices

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/kilianp07/arbitrage/core/model"
)

// TimestampLayout is the ISO-8601 layout used for prepared price points.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// DefaultStart is the reference time of index 0 when no start is given.
var DefaultStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type options struct {
	start time.Time
	unit  string
}

// Option customises Prepare.
type Option func(*options)

// WithStart sets the time of the first slot of the feed.
func WithStart(t time.Time) Option {
	return func(o *options) { o.start = t.UTC() }
}

// WithUnit sets the price unit recorded on every point.
func WithUnit(unit string) Option {
	return func(o *options) {
		if unit != "" {
			o.unit = unit
		}
	}
}

// Prepare converts a raw feed into price points. Nil entries are skipped and
// never interpolated; the i-th raw value is stamped start + i*interval.
func Prepare(raw []*float64, intervalMinutes int, opts ...Option) ([]model.PricePoint, error) {
	if intervalMinutes <= 0 {
		return nil, model.NewInputError("interval_minutes", "must be > 0, got %d", intervalMinutes)
	}
	o := options{start: DefaultStart, unit: model.DefaultPriceUnit}
	for _, opt := range opts {
		opt(&o)
	}
	step := time.Duration(intervalMinutes) * time.Minute
	points := make([]model.PricePoint, 0, len(raw))
	for i, v := range raw {
		if v == nil {
			continue
		}
		if math.IsNaN(*v) || math.IsInf(*v, 0) {
			return nil, model.NewInputError(fmt.Sprintf("data[%d]", i), "must be a finite number")
		}
		points = append(points, model.PricePoint{
			Timestamp: o.start.Add(time.Duration(i) * step).Format(TimestampLayout),
			Price:     *v,
			Unit:      o.unit,
		})
	}
	return points, nil
}

// ParseRaw decodes a JSON array of nullable numbers.
func ParseRaw(data []byte) ([]*float64, error) {
	var raw []*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, model.NewInputError("data", "decode price series: %v", err)
	}
	return raw, nil
}

// Floats is a helper turning plain values into a raw feed without gaps.
func Floats(values ...float64) []*float64 {
	out := make([]*float64, len(values))
	for i := range values {
		v := values[i]
		out[i] = &v
	}
	return out
}
