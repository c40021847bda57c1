package node

import (
	"context"
	"time"

	"github.com/yanun0323/errors"
	"golang.org/x/sync/errgroup"

	"main/internal/bus"
	"main/internal/exception"
	"main/internal/model"
	"main/internal/obs"
	"main/internal/store"
	"main/internal/valuator"
)

// MemoryBound bulk-loads every portfolio's full bond set before any pricing
// begins, then prices all portfolios as a bounded parallel map over resident
// data. Phase one is pure I/O, phase two pure compute.
type MemoryBound struct {
	gateway  store.Gateway
	valuator valuator.Valuator
	workers  int
	metrics  *obs.Metrics
}

// NewMemoryBound creates the memory-bound strategy. workers <= 0 defaults to
// the CPU count.
func NewMemoryBound(gateway store.Gateway, v valuator.Valuator, workers int, metrics *obs.Metrics) *MemoryBound {
	return &MemoryBound{
		gateway:  gateway,
		valuator: v,
		workers:  resolveWorkers(workers),
		metrics:  metrics,
	}
}

func (s *MemoryBound) Name() string { return "memory-bound" }

// Run loads then prices. The load barrier guarantees no pricing touches a
// partially loaded batch.
func (s *MemoryBound) Run(ctx context.Context, jobs []*model.Job, results *bus.Queue) error {
	if err := s.load(ctx, jobs); err != nil {
		return err
	}
	return s.price(ctx, jobs, results)
}

// load fetches every portfolio's bonds concurrently and joins on completion.
// The first failing fetch cancels the group and aborts the run.
func (s *MemoryBound) load(ctx context.Context, jobs []*model.Job) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, job := range jobs {
		g.Go(func() error {
			start := time.Now()
			portfolio, err := s.gateway.FetchBonds(gctx, job.PortfID)
			if err != nil {
				return errors.Wrapf(err, "load portfolio %d", job.PortfID)
			}
			if len(portfolio.Bonds) == 0 {
				return errors.Wrapf(exception.ErrEmptyPortfolio, "portfolio: %d", job.PortfID)
			}
			job.Bonds = portfolio.Bonds
			s.metrics.ObserveLoad(time.Since(start), len(portfolio.Bonds))
			return nil
		})
	}
	return g.Wait()
}

// price folds each job's resident bonds into a portfolio total, persists it,
// and publishes the Result. Summation order within a job is fixed; across
// jobs nothing is ordered.
func (s *MemoryBound) price(ctx context.Context, jobs []*model.Job, results *bus.Queue) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, job := range jobs {
		g.Go(func() error {
			start := time.Now()
			sum := sumBondPrices(s.valuator, job.Bonds)
			if err := persistPrice(gctx, s.gateway, s.metrics, job.PortfID, sum); err != nil {
				return err
			}
			end := time.Now()
			job.Result = &model.Result{
				PortfID:    job.PortfID,
				TotalPrice: sum,
				BondCount:  len(job.Bonds),
				StartNanos: start.UnixNano(),
				EndNanos:   end.UnixNano(),
			}
			s.metrics.ObservePrice(end.Sub(start), len(job.Bonds))
			return publish(results, *job.Result)
		})
	}
	return g.Wait()
}
