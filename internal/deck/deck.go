package deck

import (
	"math/rand"

	"github.com/yanun0323/errors"

	"main/internal/exception"
	"main/internal/model"
)

// Build returns the ordered portfolio identifiers for one run. Seed 0 keeps
// the ascending identity order; any other seed applies a reproducible
// pseudo-random permutation of the same range.
func Build(p model.Partition) ([]int64, error) {
	if p.N < 0 {
		return nil, errors.Wrapf(exception.ErrInvalidPartition, "n: %d", p.N)
	}
	ids := make([]int64, p.N)
	for i := range ids {
		ids[i] = p.Begin + int64(i)
	}
	if p.Seed != 0 {
		rng := rand.New(rand.NewSource(p.Seed))
		rng.Shuffle(len(ids), func(i, j int) {
			ids[i], ids[j] = ids[j], ids[i]
		})
	}
	return ids, nil
}

// Verify checks the deck invariants against its partition: the count matches
// N, every identifier is positive, lies in the partition range, and appears
// exactly once.
func Verify(ids []int64, p model.Partition) error {
	if int64(len(ids)) != p.N {
		return errors.Wrapf(exception.ErrCorruptDeck, "deck length: %d, n: %d", len(ids), p.N)
	}
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return errors.Wrapf(exception.ErrCorruptDeck, "non-positive id: %d", id)
		}
		if !p.Contains(id) {
			return errors.Wrapf(exception.ErrCorruptDeck, "id out of range: %d", id)
		}
		if _, ok := seen[id]; ok {
			return errors.Wrapf(exception.ErrCorruptDeck, "duplicate id: %d", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// Checksum folds a deck into an order-independent check value. Two decks over
// the same identifier set produce the same checksum regardless of seed, which
// is what the pre-run reset check compares against.
func Checksum(ids []int64) uint64 {
	var sum uint64
	for _, id := range ids {
		sum += mix(uint64(id))
	}
	return sum
}

// Expected returns the checksum a well-formed deck over the partition's
// range must carry.
func Expected(p model.Partition) (uint64, error) {
	if p.N < 0 {
		return 0, errors.Wrapf(exception.ErrInvalidPartition, "n: %d", p.N)
	}
	var sum uint64
	for id := p.Begin; id < p.Begin+p.N; id++ {
		sum += mix(uint64(id))
	}
	return sum, nil
}

// mix is a splitmix64 finalizer round, so near-identical ids do not cancel.
func mix(v uint64) uint64 {
	v += 0x9e3779b97f4a7c15
	v = (v ^ (v >> 30)) * 0xbf58476d1ce4e5b9
	v = (v ^ (v >> 27)) * 0x94d049bb133111eb
	return v ^ (v >> 31)
}
