package metrics

import "time"

// Run statuses that are not a solver status.
const (
	StatusInputError    = "input_error"
	StatusInternalError = "internal_error"
	StatusNotFound      = "not_found"
)

// RunEvent describes one optimization run, successful or not.
type RunEvent struct {
	RunID       string
	MarketID    string
	Profile     string
	Intervals   int
	Status      string
	TotalCycles int
	Revenue     int
	Duration    time.Duration
	Time        time.Time
}

// OK reports whether the run produced a schedule.
func (e RunEvent) OK() bool { return e.Status == "optimal" }

// MetricsSink records optimization runs for observability purposes.
type MetricsSink interface {
	RecordRun(ev RunEvent) error
}

// BatchEvent summarizes a batch evaluation.
type BatchEvent struct {
	Jobs     int
	Failed   int
	Duration time.Duration
	Time     time.Time
}

// BatchRecorder is implemented by sinks able to record batch summaries.
type BatchRecorder interface {
	RecordBatch(ev BatchEvent) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordRun(RunEvent) error     { return nil }
func (NopSink) RecordBatch(BatchEvent) error { return nil }
