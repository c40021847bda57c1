package obs

import (
	"sync/atomic"
	"time"
)

// Metrics collects lightweight benchmark counters and latency stats. All
// methods are safe for concurrent use and tolerate a nil receiver so callers
// can run without instrumentation.
type Metrics struct {
	portfoliosPriced uint64
	bondsLoaded      uint64
	bondsPriced      uint64

	loadLatency    LatencyStats
	priceLatency   LatencyStats
	persistLatency LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	PortfoliosPriced uint64
	BondsLoaded      uint64
	BondsPriced      uint64
	LoadLatency      LatencySnapshot
	PriceLatency     LatencySnapshot
	PersistLatency   LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// ObserveLoad records one gateway load call returning the given bond count.
func (m *Metrics) ObserveLoad(d time.Duration, bonds int) {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.bondsLoaded, uint64(bonds))
	m.loadLatency.Observe(d)
}

// ObservePrice records the pricing of one portfolio's bonds.
func (m *Metrics) ObservePrice(d time.Duration, bonds int) {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.portfoliosPriced, 1)
	atomic.AddUint64(&m.bondsPriced, uint64(bonds))
	m.priceLatency.Observe(d)
}

// ObservePersist records one price write-back to the store.
func (m *Metrics) ObservePersist(d time.Duration) {
	if m == nil {
		return
	}
	m.persistLatency.Observe(d)
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	return Snapshot{
		PortfoliosPriced: atomic.LoadUint64(&m.portfoliosPriced),
		BondsLoaded:      atomic.LoadUint64(&m.bondsLoaded),
		BondsPriced:      atomic.LoadUint64(&m.bondsPriced),
		LoadLatency:      m.loadLatency.Snapshot(),
		PriceLatency:     m.priceLatency.Snapshot(),
		PersistLatency:   m.persistLatency.Snapshot(),
	}
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		min := atomic.LoadUint64(&l.min)
		if min != 0 && nanos >= min {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, min, nanos) {
			break
		}
	}

	for {
		max := atomic.LoadUint64(&l.max)
		if nanos <= max {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, max, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&l.sum)
	min := atomic.LoadUint64(&l.min)
	max := atomic.LoadUint64(&l.max)
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(min),
		Max:   time.Duration(max),
		Avg:   time.Duration(sum / count),
	}
}
