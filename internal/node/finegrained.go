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

// priceUnit is the reduction carrier for per-bond pricing. It deliberately
// carries nothing but the computed price: the fold only accumulates price,
// and the bond count is preserved by the Result independently.
type priceUnit struct {
	price float64
}

// FineGrained processes portfolios one at a time but fetches and prices each
// portfolio's bonds concurrently, trading one network round-trip per bond for
// bond-level parallelism.
type FineGrained struct {
	gateway  store.Gateway
	valuator valuator.Valuator
	workers  int
	metrics  *obs.Metrics
}

// NewFineGrained creates the fine-grained strategy. workers <= 0 defaults to
// the CPU count.
func NewFineGrained(gateway store.Gateway, v valuator.Valuator, workers int, metrics *obs.Metrics) *FineGrained {
	return &FineGrained{
		gateway:  gateway,
		valuator: v,
		workers:  resolveWorkers(workers),
		metrics:  metrics,
	}
}

func (s *FineGrained) Name() string { return "fine-grained" }

// Run prices each job in deck order; the first failing portfolio aborts the
// batch.
func (s *FineGrained) Run(ctx context.Context, jobs []*model.Job, results *bus.Queue) error {
	for _, job := range jobs {
		if err := s.priceOne(ctx, job, results); err != nil {
			return err
		}
	}
	return nil
}

// priceOne fans out over the portfolio's bond ids, reduces the price-only
// units into the portfolio total, persists it, and publishes the Result.
func (s *FineGrained) priceOne(ctx context.Context, job *model.Job, results *bus.Queue) error {
	start := time.Now()

	ids, err := s.gateway.FetchBondIDs(ctx, job.PortfID)
	if err != nil {
		return errors.Wrapf(err, "fetch bond ids for portfolio %d", job.PortfID)
	}
	if len(ids) == 0 {
		return errors.Wrapf(exception.ErrEmptyPortfolio, "portfolio: %d", job.PortfID)
	}

	// Each goroutine owns exactly one slot; no locking needed.
	units := make([]priceUnit, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, bondID := range ids {
		g.Go(func() error {
			fetchStart := time.Now()
			bond, err := s.gateway.FetchBond(gctx, bondID)
			if err != nil {
				return errors.Wrapf(err, "fetch bond %d", bondID)
			}
			s.metrics.ObserveLoad(time.Since(fetchStart), 1)
			units[i] = priceUnit{price: s.valuator.Price(bond)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	sum := 0.0
	for _, unit := range units {
		sum += unit.price
	}
	if sum <= 0 {
		return errors.Wrapf(exception.ErrNonPositivePrice, "portfolio: %d, price: %f", job.PortfID, sum)
	}

	if err := persistPrice(ctx, s.gateway, s.metrics, job.PortfID, sum); err != nil {
		return err
	}
	end := time.Now()
	job.Result = &model.Result{
		PortfID:    job.PortfID,
		TotalPrice: sum,
		BondCount:  len(ids),
		StartNanos: start.UnixNano(),
		EndNanos:   end.UnixNano(),
	}
	s.metrics.ObservePrice(end.Sub(start), len(ids))
	return publish(results, *job.Result)
}
