package diagnostics

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/kilianp07/arbitrage/core/optimizer"
)

// Entry is one line of the JSONL store.
type Entry struct {
	Timestamp time.Time          `json:"timestamp"`
	Snapshot  optimizer.Snapshot `json:"snapshot"`
}

// SnapshotQuery filters entries by time. Zero bounds are open.
type SnapshotQuery struct {
	Start time.Time
	End   time.Time
	Limit int
}

// JSONLStore appends snapshots to a JSONL file with size-based rotation.
type JSONLStore struct {
	mu     sync.Mutex
	logger *lumberjack.Logger
	path   string
}

// NewJSONLStore creates a store with rotation options in megabytes and days.
func NewJSONLStore(path string, maxSizeMB, maxBackups, maxAgeDays int) (*JSONLStore, error) {
	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   false,
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return &JSONLStore{logger: lj, path: path}, nil
}

// RecordInput appends s and triggers rotation if needed.
func (s *JSONLStore) RecordInput(ctx context.Context, snap optimizer.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ts := snap.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return json.NewEncoder(s.logger).Encode(Entry{Timestamp: ts.UTC(), Snapshot: snap})
}

// Query reads the active file and its rotated backups, oldest first.
func (s *JSONLStore) Query(ctx context.Context, q SnapshotQuery) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ext := filepath.Ext(s.path)
	base := s.path[:len(s.path)-len(ext)]
	files, err := filepath.Glob(base + "*" + ext)
	if err != nil {
		return nil, err
	}
	var res []Entry
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		file, err := os.Open(f)
		if err != nil {
			continue
		}
		scanner := bufio.NewScanner(file)
		scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
		for scanner.Scan() {
			var e Entry
			if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
				continue
			}
			if !q.Start.IsZero() && e.Timestamp.Before(q.Start) {
				continue
			}
			if !q.End.IsZero() && e.Timestamp.After(q.End) {
				continue
			}
			e.Snapshot.Time = e.Timestamp
			res = append(res, e)
		}
		_ = file.Close()
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].Timestamp.Before(res[j].Timestamp) })
	if q.Limit > 0 && len(res) > q.Limit {
		res = res[len(res)-q.Limit:]
	}
	return res, nil
}

// Close closes the underlying writer.
func (s *JSONLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logger.Close()
}
