package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kilianp07/arbitrage/core/model"
)

// ErrNotFound is returned when a market or profile id is unknown.
var ErrNotFound = errors.New("not found")

// Market describes a price feed available for optimization.
type Market struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Year     string `json:"year"`
	Interval int    `json:"interval"`
}

// MarketData is the raw feed of a market. Nil entries are missing prices.
type MarketData struct {
	Market Market     `json:"market"`
	Data   []*float64 `json:"data"`
}

// MarketSource lists and loads markets.
type MarketSource interface {
	List(ctx context.Context) ([]Market, error)
	Load(ctx context.Context, id string) (MarketData, error)
}

// ProfileSource lists and resolves storage profiles by name.
type ProfileSource interface {
	List(ctx context.Context) ([]model.StorageProfile, error)
	Get(ctx context.Context, name string) (model.StorageProfile, error)
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}

// validID rejects ids that could escape the catalog directory.
func validID(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	return !strings.ContainsAny(id, `/\`)
}

// MultiMarketSource merges several sources. The first source that knows an id
// wins; listing errors from one source do not hide the others.
type MultiMarketSource []MarketSource

// List returns the markets of every source, de-duplicated by id.
func (m MultiMarketSource) List(ctx context.Context) ([]Market, error) {
	seen := map[string]bool{}
	out := []Market{}
	var errs []error
	for _, src := range m {
		list, err := src.List(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, mk := range list {
			if seen[mk.ID] {
				continue
			}
			seen[mk.ID] = true
			out = append(out, mk)
		}
	}
	if len(out) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

// Load asks each source in turn.
func (m MultiMarketSource) Load(ctx context.Context, id string) (MarketData, error) {
	for _, src := range m {
		d, err := src.Load(ctx, id)
		if err == nil {
			return d, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return MarketData{}, err
		}
	}
	return MarketData{}, notFound("market", id)
}
