package node

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yanun0323/errors"

	"main/internal/exception"
	"main/internal/model"
	"main/internal/obs"
	"main/internal/valuator"
)

// fakeGateway is an in-memory document store for tests.
type fakeGateway struct {
	mu       sync.Mutex
	holdings map[int64][]int64
	bonds    map[int64]model.Bond
	prices   map[int64]float64
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		holdings: make(map[int64][]int64),
		bonds:    make(map[int64]model.Bond),
		prices:   make(map[int64]float64),
	}
}

func (f *fakeGateway) addPortfolio(id int64, bonds ...model.Bond) {
	ids := make([]int64, 0, len(bonds))
	for _, bond := range bonds {
		ids = append(ids, bond.ID)
		f.bonds[bond.ID] = bond
	}
	f.holdings[id] = ids
}

func (f *fakeGateway) FetchBondIDs(_ context.Context, portfolioID int64) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids, ok := f.holdings[portfolioID]
	if !ok {
		return nil, errors.Wrapf(exception.ErrNotFound, "portfolio: %d", portfolioID)
	}
	return ids, nil
}

func (f *fakeGateway) FetchBonds(ctx context.Context, portfolioID int64) (model.Portfolio, error) {
	ids, err := f.FetchBondIDs(ctx, portfolioID)
	if err != nil {
		return model.Portfolio{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	bonds := make([]model.Bond, 0, len(ids))
	for _, id := range ids {
		bond, ok := f.bonds[id]
		if !ok {
			return model.Portfolio{}, errors.Wrapf(exception.ErrNotFound, "bond: %d", id)
		}
		bonds = append(bonds, bond)
	}
	return model.Portfolio{ID: portfolioID, Bonds: bonds}, nil
}

func (f *fakeGateway) FetchBond(_ context.Context, bondID int64) (model.Bond, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bond, ok := f.bonds[bondID]
	if !ok {
		return model.Bond{}, errors.Wrapf(exception.ErrNotFound, "bond: %d", bondID)
	}
	return bond, nil
}

func (f *fakeGateway) UpdatePrice(_ context.Context, portfolioID int64, price float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.holdings[portfolioID]; !ok {
		return errors.Wrapf(exception.ErrNotFound, "portfolio: %d", portfolioID)
	}
	f.prices[portfolioID] = price
	return nil
}

func (f *fakeGateway) storedPrice(portfolioID int64) (float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	price, ok := f.prices[portfolioID]
	return price, ok
}

// negValuator forces the non-positive price invariant to trip.
type negValuator struct{}

func (negValuator) Price(model.Bond) float64 { return -1 }

func seedThreePortfolios(gw *fakeGateway) *valuator.Engine {
	gw.addPortfolio(1,
		model.Bond{ID: 101, Coupon: 5, Frequency: 2, Tenor: 10},
		model.Bond{ID: 102, Coupon: 3, Frequency: 1, Tenor: 5},
	)
	gw.addPortfolio(2,
		model.Bond{ID: 103, Coupon: 4.5, Frequency: 2, Tenor: 7},
	)
	gw.addPortfolio(3,
		model.Bond{ID: 104, Coupon: 6, Frequency: 4, Tenor: 30},
		model.Bond{ID: 105, Coupon: 2.75, Frequency: 1, Tenor: 2},
		model.Bond{ID: 106, Coupon: 5, Frequency: 2, Tenor: 10},
	)
	return valuator.NewEngine(valuator.DefaultCurve())
}

func resultByID(t *testing.T, a model.Analysis, id int64) model.Result {
	t.Helper()
	for _, r := range a.Results {
		if r.PortfID == id {
			return r
		}
	}
	t.Fatalf("no result for portfolio %d", id)
	return model.Result{}
}

func TestMemoryBoundRun(t *testing.T) {
	gw := newFakeGateway()
	engine := seedThreePortfolios(gw)
	metrics := obs.NewMetrics()

	n := New(NewMemoryBound(gw, engine, 4, metrics))
	analysis, err := n.Run(context.Background(), model.Partition{N: 3, Begin: 1, Seed: 0})
	require.NoError(t, err)
	require.Len(t, analysis.Results, 3)
	require.Equal(t, "memory-bound", analysis.Strategy)
	require.GreaterOrEqual(t, analysis.RunEndNanos, analysis.RunStartNanos)

	r1 := resultByID(t, analysis, 1)
	require.Equal(t, 2, r1.BondCount)
	want := engine.Price(model.Bond{ID: 101, Coupon: 5, Frequency: 2, Tenor: 10}) +
		engine.Price(model.Bond{ID: 102, Coupon: 3, Frequency: 1, Tenor: 5})
	require.InDelta(t, want, r1.TotalPrice, 1e-9)
	require.GreaterOrEqual(t, r1.EndNanos, r1.StartNanos)

	// Every priced portfolio was persisted before its result was emitted.
	for _, r := range analysis.Results {
		stored, ok := gw.storedPrice(r.PortfID)
		require.True(t, ok, "portfolio %d not persisted", r.PortfID)
		require.InDelta(t, r.TotalPrice, stored, 1e-12)
	}

	snap := metrics.Snapshot()
	require.EqualValues(t, 3, snap.PortfoliosPriced)
	require.EqualValues(t, 6, snap.BondsLoaded)
	require.EqualValues(t, 3, snap.PersistLatency.Count)
}

func TestFineGrainedRun(t *testing.T) {
	gw := newFakeGateway()
	engine := seedThreePortfolios(gw)

	n := New(NewFineGrained(gw, engine, 4, obs.NewMetrics()))
	analysis, err := n.Run(context.Background(), model.Partition{N: 3, Begin: 1, Seed: 0})
	require.NoError(t, err)
	require.Len(t, analysis.Results, 3)
	require.Equal(t, "fine-grained", analysis.Strategy)

	r3 := resultByID(t, analysis, 3)
	require.Equal(t, 3, r3.BondCount)
	require.Greater(t, r3.TotalPrice, 0.0)
}

func TestCrossStrategyAgreement(t *testing.T) {
	gwA := newFakeGateway()
	engine := seedThreePortfolios(gwA)
	gwB := newFakeGateway()
	seedThreePortfolios(gwB)

	part := model.Partition{N: 3, Begin: 1, Seed: 0}
	memory, err := New(NewMemoryBound(gwA, engine, 4, nil)).Run(context.Background(), part)
	require.NoError(t, err)
	fine, err := New(NewFineGrained(gwB, engine, 4, nil)).Run(context.Background(), part)
	require.NoError(t, err)

	for _, mr := range memory.Results {
		fr := resultByID(t, fine, mr.PortfID)
		require.Equal(t, mr.BondCount, fr.BondCount)
		require.InDelta(t, mr.TotalPrice, fr.TotalPrice, 1e-9)
	}
}

func TestPricingIdempotent(t *testing.T) {
	gw := newFakeGateway()
	engine := seedThreePortfolios(gw)
	part := model.Partition{N: 3, Begin: 1, Seed: 0}

	first, err := New(NewMemoryBound(gw, engine, 2, nil)).Run(context.Background(), part)
	require.NoError(t, err)
	second, err := New(NewMemoryBound(gw, engine, 8, nil)).Run(context.Background(), part)
	require.NoError(t, err)

	for _, r := range first.Results {
		again := resultByID(t, second, r.PortfID)
		require.True(t, math.Abs(r.TotalPrice-again.TotalPrice) < 1e-9)
	}
}

func TestSeededDeckPricesSameSet(t *testing.T) {
	gw := newFakeGateway()
	engine := seedThreePortfolios(gw)

	analysis, err := New(NewFineGrained(gw, engine, 4, nil)).Run(context.Background(), model.Partition{N: 3, Begin: 1, Seed: 7})
	require.NoError(t, err)
	require.Len(t, analysis.Results, 3)
	for id := int64(1); id <= 3; id++ {
		resultByID(t, analysis, id)
	}
}

func TestInvalidPartition(t *testing.T) {
	gw := newFakeGateway()
	engine := seedThreePortfolios(gw)

	_, err := New(NewMemoryBound(gw, engine, 4, nil)).Run(context.Background(), model.Partition{N: -1, Begin: 1})
	require.ErrorIs(t, err, exception.ErrInvalidPartition)
}

func TestUnknownPortfolioAborts(t *testing.T) {
	gw := newFakeGateway()
	engine := seedThreePortfolios(gw)
	part := model.Partition{N: 4, Begin: 1, Seed: 0} // portfolio 4 does not exist

	for name, strategy := range map[string]Strategy{
		"memory-bound": NewMemoryBound(gw, engine, 4, nil),
		"fine-grained": NewFineGrained(gw, engine, 4, nil),
	} {
		analysis, err := New(strategy).Run(context.Background(), part)
		require.ErrorIs(t, err, exception.ErrNotFound, name)
		require.Empty(t, analysis.Results, name)
	}
	_, persisted := gw.storedPrice(4)
	require.False(t, persisted)
}

func TestEmptyPortfolioAborts(t *testing.T) {
	gw := newFakeGateway()
	engine := seedThreePortfolios(gw)
	gw.holdings[4] = []int64{} // present but holds nothing

	_, err := New(NewFineGrained(gw, engine, 4, nil)).Run(context.Background(), model.Partition{N: 4, Begin: 1, Seed: 0})
	require.ErrorIs(t, err, exception.ErrEmptyPortfolio)

	_, err = New(NewMemoryBound(gw, engine, 4, nil)).Run(context.Background(), model.Partition{N: 4, Begin: 1, Seed: 0})
	require.ErrorIs(t, err, exception.ErrEmptyPortfolio)

	// The empty portfolio never reached pricing or persistence.
	_, persisted := gw.storedPrice(4)
	require.False(t, persisted)
}

func TestNonPositivePriceAborts(t *testing.T) {
	gw := newFakeGateway()
	seedThreePortfolios(gw)

	_, err := New(NewFineGrained(gw, negValuator{}, 4, nil)).Run(context.Background(), model.Partition{N: 1, Begin: 1, Seed: 0})
	require.ErrorIs(t, err, exception.ErrNonPositivePrice)
}
