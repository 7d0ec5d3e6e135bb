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

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/arbitrage/core/model"
)

// FileProfileSource reads storage profiles from dir. JSON and YAML files are
// accepted; a profile is addressed by its name field.
type FileProfileSource struct {
	dir string
}

// NewFileProfileSource returns a source rooted at dir.
func NewFileProfileSource(dir string) *FileProfileSource {
	return &FileProfileSource{dir: dir}
}

// List returns every decodable profile with a name, sorted by name.
func (s *FileProfileSource) List(ctx context.Context) ([]model.StorageProfile, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("configurations directory %s: %w", s.dir, ErrNotFound)
		}
		return nil, fmt.Errorf("read configurations directory: %w", err)
	}
	out := []model.StorageProfile{}
	seen := map[string]bool{}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.IsDir() {
			continue
		}
		p, ok := s.read(e.Name())
		if !ok || seen[p.Name] {
			continue
		}
		seen[p.Name] = true
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Get returns the profile called name.
func (s *FileProfileSource) Get(ctx context.Context, name string) (model.StorageProfile, error) {
	list, err := s.List(ctx)
	if err != nil {
		return model.StorageProfile{}, err
	}
	for _, p := range list {
		if p.Name == name {
			return p, nil
		}
	}
	return model.StorageProfile{}, notFound("configuration", name)
}

func (s *FileProfileSource) read(file string) (model.StorageProfile, bool) {
	var p model.StorageProfile
	ext := filepath.Ext(file)
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return p, false
	}
	raw, err := os.ReadFile(filepath.Join(s.dir, file))
	if err != nil {
		return p, false
	}
	if ext == ".json" {
		err = json.Unmarshal(raw, &p)
	} else {
		err = yaml.Unmarshal(raw, &p)
	}
	return p, err == nil && p.Name != ""
}
