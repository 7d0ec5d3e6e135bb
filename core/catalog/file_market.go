package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// marketFile is the on-disk market layout:
//
//	{"metadata": {"market": "...", "year": "..."}, "interval": 60, "data": [..]}
type marketFile struct {
	Metadata *struct {
		Market string          `json:"market"`
		Year   json.RawMessage `json:"year"`
	} `json:"metadata"`
	Interval *int       `json:"interval"`
	Data     []*float64 `json:"data"`
}

func (f marketFile) complete() bool {
	return f.Metadata != nil && f.Interval != nil && f.Data != nil
}

func (f marketFile) market(id string) Market {
	name := f.Metadata.Market
	if name == "" {
		name = "Unknown"
	}
	return Market{ID: id, Name: name, Year: rawString(f.Metadata.Year), Interval: *f.Interval}
}

// rawString accepts a JSON string or number.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return "Unknown"
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// FileMarketSource reads markets from dir/*.json. The market id is the file
// stem. Files that are not valid market documents are skipped when listing.
type FileMarketSource struct {
	dir string
}

// NewFileMarketSource returns a source rooted at dir.
func NewFileMarketSource(dir string) *FileMarketSource {
	return &FileMarketSource{dir: dir}
}

// Dir returns the directory the source reads.
func (s *FileMarketSource) Dir() string { return s.dir }

// List returns the valid markets sorted by id.
func (s *FileMarketSource) List(ctx context.Context) ([]Market, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("markets directory %s: %w", s.dir, ErrNotFound)
		}
		return nil, fmt.Errorf("read markets directory: %w", err)
	}
	out := []Market{}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".json")
		f, err := s.read(id)
		if err != nil || !f.complete() {
			continue
		}
		out = append(out, f.market(id))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Load reads a single market by id.
func (s *FileMarketSource) Load(ctx context.Context, id string) (MarketData, error) {
	if err := ctx.Err(); err != nil {
		return MarketData{}, err
	}
	if !validID(id) {
		return MarketData{}, notFound("market", id)
	}
	f, err := s.read(id)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return MarketData{}, notFound("market", id)
		}
		return MarketData{}, err
	}
	if !f.complete() {
		return MarketData{}, fmt.Errorf("market %q: missing metadata, interval or data", id)
	}
	return MarketData{Market: f.market(id), Data: f.Data}, nil
}

func (s *FileMarketSource) read(id string) (marketFile, error) {
	var f marketFile
	raw, err := os.ReadFile(filepath.Join(s.dir, id+".json"))
	if err != nil {
		return f, err
	}
	if err := json.Unmarshal(raw, &f); err != nil {
		return f, fmt.Errorf("decode market %q: %w", id, err)
	}
	return f, nil
}
