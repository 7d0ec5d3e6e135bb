package diagnostics

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/kilianp07/arbitrage/core/optimizer"
)

// DirRecorder writes one indented JSON document per snapshot into a
// directory. Files are named <yyyymmdd_hhmmss>_<id>.json.
type DirRecorder struct {
	dir string
}

// NewDirRecorder creates dir if needed.
func NewDirRecorder(dir string) (*DirRecorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("diagnostics: %w", err)
	}
	return &DirRecorder{dir: dir}, nil
}

// RecordInput writes s to a new file.
func (r *DirRecorder) RecordInput(ctx context.Context, s optimizer.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name := fmt.Sprintf("%s_%s.json", s.Time.Format("20060102_150405"), uuid.NewString()[:8])
	b, err := json.MarshalIndent(s, "", "    ")
	if err != nil {
		return fmt.Errorf("diagnostics: encode snapshot: %w", err)
	}
	return os.WriteFile(filepath.Join(r.dir, name), b, 0o644)
}

// Close is a no-op.
func (r *DirRecorder) Close() error { return nil }
