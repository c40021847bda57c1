package store

import (
	"context"

	"main/internal/model"
)

// Gateway is the pricing core's view of the remote document store. Every
// call is a potentially suspending network operation; every failure is fatal
// to the run. Implementations hold no state between calls.
type Gateway interface {
	// FetchBondIDs returns the ordered bond ids held by the portfolio.
	// Fails with exception.ErrNotFound when the portfolio id is unknown.
	FetchBondIDs(ctx context.Context, portfolioID int64) ([]int64, error)

	// FetchBonds returns the portfolio with its full bond collection
	// resident. Bulk form used by the memory-bound strategy.
	FetchBonds(ctx context.Context, portfolioID int64) (model.Portfolio, error)

	// FetchBond returns a single bond by id. Fails with
	// exception.ErrNotFound when unknown.
	FetchBond(ctx context.Context, bondID int64) (model.Bond, error)

	// UpdatePrice overwrites the portfolio's stored valuation. Idempotent.
	UpdatePrice(ctx context.Context, portfolioID int64, price float64) error
}
