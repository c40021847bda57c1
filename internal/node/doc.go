/*
Node orchestrates one benchmark run over a partition of portfolio ids.

# Flow
 1. build the deck (identity or seeded permutation) and verify its invariants
 2. create one job spec per deck entry
 3. hand the jobs to the strategy, which loads, prices, and persists each one
 4. drain the finalized results and assemble the run analysis

# Strategies
  - memory-bound: bulk-loads every portfolio's bonds behind a join barrier,
    then prices all portfolios as a bounded parallel map with no further I/O
  - fine-grained: per portfolio, fetches and prices each bond concurrently
    and folds the per-bond prices into the portfolio total

# Failure
Every error is fatal to the run: the first failing unit cancels its siblings
through the group context and surfaces as the run error. No retries, no
partial results.
*/
package node
