package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	coremetrics "github.com/kilianp07/arbitrage/core/metrics"
	"github.com/kilianp07/arbitrage/core/model"
)

// Job pairs a market with a storage profile.
type Job struct {
	MarketID string
	Profile  model.StorageProfile
}

// JobResult is the outcome of one job. Err is set instead of Run on failure.
type JobResult struct {
	Job Job
	Run Run
	Err error
}

// Status returns the run status of the job.
func (r JobResult) Status() string { return Status(r.Err) }

// Batch runs every job, at most Workers at a time. A failed job does not
// cancel the others; results keep the order of jobs.
func (s *Service) Batch(ctx context.Context, jobs []Job) []JobResult {
	start := time.Now()
	out := make([]JobResult, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, job := range jobs {
		g.Go(func() error {
			run, err := s.CalculateRevenue(gctx, job.MarketID, job.Profile)
			out[i] = JobResult{Job: job, Run: run, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range out {
		if r.Err != nil {
			failed++
		}
	}
	if br, ok := s.sink.(coremetrics.BatchRecorder); ok {
		ev := coremetrics.BatchEvent{Jobs: len(jobs), Failed: failed, Duration: time.Since(start), Time: time.Now()}
		if err := br.RecordBatch(ev); err != nil {
			s.log.Warnf("record batch: %v", err)
		}
	}
	s.log.Infof("batch of %d jobs done in %s, %d failed", len(jobs), time.Since(start), failed)
	return out
}

// AllJobs pairs every market with every profile.
func (s *Service) AllJobs(ctx context.Context) ([]Job, error) {
	markets, err := s.Markets(ctx)
	if err != nil {
		return nil, err
	}
	profiles, err := s.Profiles(ctx)
	if err != nil {
		return nil, err
	}
	jobs := make([]Job, 0, len(markets)*len(profiles))
	for _, m := range markets {
		for _, p := range profiles {
			jobs = append(jobs, Job{MarketID: m.ID, Profile: p})
		}
	}
	return jobs, nil
}
