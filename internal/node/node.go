package node

import (
	"context"
	"runtime"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/bus"
	"main/internal/deck"
	"main/internal/model"
	"main/internal/obs"
	"main/internal/store"
	"main/internal/valuator"
)

// Strategy loads, prices, and persists every job, publishing exactly one
// finalized Result per job to the queue.
type Strategy interface {
	Name() string
	Run(ctx context.Context, jobs []*model.Job, results *bus.Queue) error
}

// Node runs one benchmark batch: deck, job specs, strategy, analysis.
type Node struct {
	strategy Strategy
}

// New creates a node around the given strategy.
func New(strategy Strategy) *Node {
	return &Node{strategy: strategy}
}

// Run executes the full batch for the partition and returns its analysis.
// Results arrive in completion order; each carries its own identifier and
// timestamps.
func (n *Node) Run(ctx context.Context, part model.Partition) (model.Analysis, error) {
	runStart := time.Now().UnixNano()

	ids, err := deck.Build(part)
	if err != nil {
		return model.Analysis{}, err
	}
	if err := deck.Verify(ids, part); err != nil {
		return model.Analysis{}, err
	}
	logs.Infof("run start: strategy=%s n=%d begin=%d seed=%d", n.strategy.Name(), part.N, part.Begin, part.Seed)

	jobs := make([]*model.Job, len(ids))
	for i, id := range ids {
		jobs[i] = &model.Job{PortfID: id}
	}

	results := bus.NewQueue(len(jobs))
	collected := make([]model.Result, 0, len(jobs))
	done := make(chan struct{})
	go func() {
		defer close(done)
		results.Run(ctx, func(r model.Result) {
			collected = append(collected, r)
		})
	}()

	runErr := n.strategy.Run(ctx, jobs, results)
	results.Close()
	<-done
	if runErr != nil {
		return model.Analysis{}, runErr
	}
	if len(collected) != len(jobs) {
		return model.Analysis{}, errors.Errorf("result count mismatch: results=%d jobs=%d", len(collected), len(jobs))
	}

	analysis := model.Analysis{
		Strategy:      n.strategy.Name(),
		Partition:     part,
		Results:       collected,
		RunStartNanos: runStart,
		RunEndNanos:   time.Now().UnixNano(),
	}
	logs.Infof("run done: strategy=%s portfolios=%d bonds=%d", n.strategy.Name(), len(collected), analysis.TotalBonds())
	return analysis, nil
}

func resolveWorkers(workers int) int {
	if workers <= 0 {
		return runtime.NumCPU()
	}
	return workers
}

// persistPrice writes a portfolio total back through the gateway, recording
// the persist latency. Every job persists its price before its Result is
// published.
func persistPrice(ctx context.Context, gateway store.Gateway, metrics *obs.Metrics, portfolioID int64, price float64) error {
	start := time.Now()
	if err := gateway.UpdatePrice(ctx, portfolioID, price); err != nil {
		return errors.Wrapf(err, "persist price for portfolio %d", portfolioID)
	}
	metrics.ObservePersist(time.Since(start))
	return nil
}

func publish(results *bus.Queue, r model.Result) error {
	if err := results.TryPublish(r); err != nil {
		return errors.Wrapf(err, "publish result for portfolio %d", r.PortfID)
	}
	return nil
}

func sumBondPrices(v valuator.Valuator, bonds []model.Bond) float64 {
	sum := 0.0
	for _, bond := range bonds {
		sum += v.Price(bond)
	}
	return sum
}
