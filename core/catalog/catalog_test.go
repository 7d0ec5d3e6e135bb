package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/arbitrage/core/model"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestFileMarketSourceList(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "fr-2023.json", `{"metadata":{"market":"EPEX FR","year":"2023"},"interval":60,"data":[10,null,30]}`)
	writeFile(t, dir, "de-2022.json", `{"metadata":{"market":"EPEX DE","year":2022},"interval":15,"data":[]}`)
	writeFile(t, dir, "partial.json", `{"metadata":{"market":"x"},"data":[1]}`)
	writeFile(t, dir, "broken.json", `{not json`)
	writeFile(t, dir, "notes.txt", `ignored`)

	src := NewFileMarketSource(dir)
	list, err := src.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, Market{ID: "de-2022", Name: "EPEX DE", Year: "2022", Interval: 15}, list[0])
	assert.Equal(t, Market{ID: "fr-2023", Name: "EPEX FR", Year: "2023", Interval: 60}, list[1])
}

func TestFileMarketSourceMissingMetadataFields(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "anon.json", `{"metadata":{},"interval":30,"data":[1]}`)
	list, err := NewFileMarketSource(dir).List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Unknown", list[0].Name)
	assert.Equal(t, "Unknown", list[0].Year)
}

func TestFileMarketSourceLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "fr-2023.json", `{"metadata":{"market":"EPEX FR","year":"2023"},"interval":60,"data":[10,null,30]}`)
	src := NewFileMarketSource(dir)

	d, err := src.Load(context.Background(), "fr-2023")
	require.NoError(t, err)
	assert.Equal(t, 60, d.Market.Interval)
	require.Len(t, d.Data, 3)
	assert.Nil(t, d.Data[1])
	assert.Equal(t, 30.0, *d.Data[2])

	_, err = src.Load(context.Background(), "unknown")
	assert.ErrorIs(t, err, ErrNotFound)

	for _, id := range []string{"../etc/passwd", `a\b`, "..", ""} {
		_, err = src.Load(context.Background(), id)
		assert.ErrorIs(t, err, ErrNotFound, id)
	}
}

func TestFileMarketSourceLoadIncomplete(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "partial.json", `{"metadata":{"market":"x"},"data":[1]}`)
	_, err := NewFileMarketSource(dir).Load(context.Background(), "partial")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestFileMarketSourceMissingDir(t *testing.T) {
	_, err := NewFileMarketSource(filepath.Join(t.TempDir(), "nope")).List(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileMarketSourceCancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "m.json", `{"metadata":{},"interval":60,"data":[]}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewFileMarketSource(dir).List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileProfileSource(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "small.json", `{"name":"small","power_limit":10,"capacity":20,"initial_soc":5}`)
	writeFile(t, dir, "big.yaml", "name: big\npower_limit: 1000\ncapacity: 2000\ninitial_soc: 0\n")
	writeFile(t, dir, "noname.yml", "power_limit: 1\n")
	writeFile(t, dir, "dup.json", `{"name":"small","power_limit":99}`)
	writeFile(t, dir, "readme.md", "# hi")

	src := NewFileProfileSource(dir)
	list, err := src.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "big", list[0].Name)
	assert.Equal(t, 2000.0, list[0].Capacity)

	p, err := src.Get(context.Background(), "small")
	require.NoError(t, err)
	assert.Equal(t, model.StorageProfile{Name: "small", PowerLimit: 10, Capacity: 20, InitialSoC: 5}, p)

	_, err = src.Get(context.Background(), "medium")
	assert.ErrorIs(t, err, ErrNotFound)
}

type stubSource struct {
	markets []Market
	err     error
}

func (s stubSource) List(context.Context) ([]Market, error) { return s.markets, s.err }

func (s stubSource) Load(_ context.Context, id string) (MarketData, error) {
	if s.err != nil {
		return MarketData{}, s.err
	}
	for _, m := range s.markets {
		if m.ID == id {
			return MarketData{Market: m}, nil
		}
	}
	return MarketData{}, notFound("market", id)
}

func TestMultiMarketSource(t *testing.T) {
	a := stubSource{markets: []Market{{ID: "a"}, {ID: "shared", Name: "first"}}}
	b := stubSource{markets: []Market{{ID: "shared", Name: "second"}, {ID: "b"}}}
	broken := stubSource{err: errors.New("down")}
	m := MultiMarketSource{a, broken, b}

	list, err := m.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 3)

	d, err := m.Load(context.Background(), "shared")
	require.NoError(t, err)
	assert.Equal(t, "first", d.Market.Name)

	_, err = MultiMarketSource{a}.Load(context.Background(), "zzz")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = MultiMarketSource{broken}.List(context.Background())
	assert.ErrorContains(t, err, "down")
}
