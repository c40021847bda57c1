package model

// Partition describes one run's workload: the contiguous portfolio
// identifier range [Begin, Begin+N) and the permutation seed that fixes
// the deck order. Immutable once constructed.
type Partition struct {
	N     int64 `json:"n"`
	Begin int64 `json:"begin"`
	Seed  int64 `json:"seed"`
}

// Contains reports whether id lies in the partition's identifier range.
func (p Partition) Contains(id int64) bool {
	return id >= p.Begin && id < p.Begin+p.N
}

// Bond carries the valuation terms of a single instrument.
type Bond struct {
	ID        int64   `json:"id"`
	Coupon    float64 `json:"coupon"`    // annual coupon rate, percent of face
	Frequency int     `json:"frequency"` // coupon payments per year
	Tenor     float64 `json:"tenor"`     // years to maturity
	Price     float64 `json:"price"`     // last stored valuation
}

// Portfolio is the bulk fetch form: a portfolio id with its resident bonds.
type Portfolio struct {
	ID    int64  `json:"id"`
	Bonds []Bond `json:"bonds"`
}

// Holding is the persisted Portfolios document shape: a portfolio id and
// the ordered ids of the instruments it holds.
type Holding struct {
	PortfolioID int64   `json:"portfolioId"`
	BondIDs     []int64 `json:"bondIds"`
}

// Job is the in-flight unit of work for one portfolio. Bonds is populated
// while loading and pricing, Result once pricing completes; each concurrent
// worker owns exactly one Job, so no field needs locking.
type Job struct {
	PortfID int64
	Bonds   []Bond
	Result  *Result
}

// Result is the finalized outcome for one portfolio, created exactly once
// by the pricing step and never mutated afterward.
type Result struct {
	PortfID    int64   `json:"portfId"`
	TotalPrice float64 `json:"totalPrice"`
	BondCount  int     `json:"bondCount"`
	StartNanos int64   `json:"startNanos"`
	EndNanos   int64   `json:"endNanos"`
}

// Analysis aggregates one node run. Results are in completion order; each
// entry carries its own identifier and timestamps.
type Analysis struct {
	Strategy      string    `json:"strategy"`
	Partition     Partition `json:"partition"`
	Results       []Result  `json:"results"`
	RunStartNanos int64     `json:"runStartNanos"`
	RunEndNanos   int64     `json:"runEndNanos"`
}

// TotalBonds sums the bond counts across all results.
func (a Analysis) TotalBonds() int {
	total := 0
	for _, r := range a.Results {
		total += r.BondCount
	}
	return total
}

// TotalPrice sums the portfolio valuations across all results.
func (a Analysis) TotalPrice() float64 {
	total := 0.0
	for _, r := range a.Results {
		total += r.TotalPrice
	}
	return total
}
