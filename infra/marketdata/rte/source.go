package rte

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/kilianp07/arbitrage/auth"
	"github.com/kilianp07/arbitrage/core/catalog"
	"github.com/kilianp07/arbitrage/core/logger"
	infralogger "github.com/kilianp07/arbitrage/infra/logger"
)

// Source serves the configured RTE window as a single market. Fetched data is
// cached for the configured TTL.
type Source struct {
	cfg    Config
	client *Client
	start  time.Time
	end    time.Time
	ttl    time.Duration
	log    logger.Logger
	now    func() time.Time

	mu      sync.Mutex
	cached  catalog.MarketData
	fetched time.Time
}

// NewSource validates cfg and builds the source.
func NewSource(cfg Config, opts ...Option) (*Source, error) {
	cfg.SetDefaults()
	cfg.Enabled = true
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	start, end, _ := cfg.Window()
	cred := auth.NewClientCred(cfg.Auth)
	opts = append([]Option{WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second})}, opts...)
	return &Source{
		cfg:    cfg,
		client: NewClient(cfg.APIURL, cred, opts...),
		start:  start,
		end:    end,
		ttl:    time.Duration(cfg.CacheTTLSeconds) * time.Second,
		log:    infralogger.New("rte-market"),
		now:    time.Now,
	}, nil
}

// List returns the single RTE market.
func (s *Source) List(ctx context.Context) ([]catalog.Market, error) {
	d, err := s.data(ctx)
	if err != nil {
		return nil, err
	}
	return []catalog.Market{d.Market}, nil
}

// Load returns the price grid for the configured window.
func (s *Source) Load(ctx context.Context, id string) (catalog.MarketData, error) {
	if id != s.cfg.MarketID {
		return catalog.MarketData{}, fmt.Errorf("market %q: %w", id, catalog.ErrNotFound)
	}
	return s.data(ctx)
}

func (s *Source) data(ctx context.Context) (catalog.MarketData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached.Data != nil && s.now().Sub(s.fetched) < s.ttl {
		return s.cached, nil
	}
	resp, err := s.client.Fetch(ctx, s.start, s.end)
	if err != nil {
		return catalog.MarketData{}, fmt.Errorf("rte: %w", err)
	}
	grid, interval, err := resp.Grid(s.start, s.end)
	if err != nil {
		return catalog.MarketData{}, fmt.Errorf("rte: %w", err)
	}
	if interval == 0 {
		return catalog.MarketData{}, fmt.Errorf("rte: no prices between %s and %s", s.start.Format(time.DateOnly), s.end.Format(time.DateOnly))
	}
	s.cached = catalog.MarketData{
		Market: catalog.Market{
			ID:       s.cfg.MarketID,
			Name:     s.cfg.Name,
			Year:     strconv.Itoa(s.start.Year()),
			Interval: interval,
		},
		Data: grid,
	}
	s.fetched = s.now()
	s.log.Infof("fetched %d slots of %d min from RTE", len(grid), interval)
	return s.cached, nil
}
