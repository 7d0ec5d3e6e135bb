package diagnostics

import (
	"context"
	"fmt"

	"github.com/kilianp07/arbitrage/core/optimizer"
)

// Recorder is an optimizer.InputRecorder that holds resources.
type Recorder interface {
	optimizer.InputRecorder
	Close() error
}

// NopRecorder discards every snapshot.
type NopRecorder struct{}

func (NopRecorder) RecordInput(context.Context, optimizer.Snapshot) error { return nil }
func (NopRecorder) Close() error                                         { return nil }

// New builds the recorder selected by cfg.
func New(cfg Config) (Recorder, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case BackendDir:
		return NewDirRecorder(cfg.Dir)
	case BackendJSONL:
		return NewJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	case BackendNone:
		return NopRecorder{}, nil
	}
	return nil, fmt.Errorf("diagnostics: unknown backend %q", cfg.Backend)
}
