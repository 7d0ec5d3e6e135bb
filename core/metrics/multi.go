package metrics

import "errors"

// MultiSink fans events out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordRun forwards the event to every sink. A failing sink does not stop the
// others; all errors are joined.
func (m *MultiSink) RecordRun(ev RunEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordRun(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordBatch forwards batch summaries to the sinks supporting them.
func (m *MultiSink) RecordBatch(ev BatchEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if br, ok := s.(BatchRecorder); ok {
			if err := br.RecordBatch(ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Close closes the sinks that hold resources.
func (m *MultiSink) Close() {
	for _, s := range m.Sinks {
		if c, ok := s.(interface{ Close() }); ok {
			c.Close()
		}
	}
}
