package optimizer

import "time"

const (
	// DefaultSolveTimeout bounds a single Optimize call.
	DefaultSolveTimeout = 60 * time.Second
	// FlagTolerance is the distance from 1 under which a mode indicator counts
	// as set.
	FlagTolerance = 1e-6
)

// Config tunes the engine. The zero value is usable.
type Config struct {
	// SolveTimeoutSeconds bounds every Optimize call. 0 selects
	// DefaultSolveTimeout.
	SolveTimeoutSeconds int `json:"solve_timeout_seconds"`
	// NodeLimit caps branch-and-bound nodes per solve when the engine builds
	// its own solver. 0 keeps the solver default.
	NodeLimit int `json:"node_limit"`
	// WindowIntervals splits the horizon into consecutive windows solved one
	// after the other, the final state of charge of a window seeding the
	// next. This is a heuristic opt-in: the result is optimal per window
	// only. 0 solves the full horizon at once.
	WindowIntervals int `json:"window_intervals"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.SolveTimeoutSeconds <= 0 {
		c.SolveTimeoutSeconds = int(DefaultSolveTimeout / time.Second)
	}
	if c.WindowIntervals < 0 {
		c.WindowIntervals = 0
	}
}

// Timeout returns the per-call solve deadline.
func (c Config) Timeout() time.Duration {
	if c.SolveTimeoutSeconds <= 0 {
		return DefaultSolveTimeout
	}
	return time.Duration(c.SolveTimeoutSeconds) * time.Second
}
