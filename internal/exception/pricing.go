package exception

import "errors"

var (
	ErrInvalidPartition = errors.New("pricing: invalid partition")
	ErrCorruptDeck      = errors.New("pricing: corrupt deck")
	ErrEmptyPortfolio   = errors.New("pricing: empty portfolio")
	ErrNonPositivePrice = errors.New("pricing: non-positive price")
	ErrNotFound         = errors.New("store: not found")
	ErrTransport        = errors.New("store: transport failure")
)
