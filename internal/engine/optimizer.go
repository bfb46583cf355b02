package engine

import (
	"context"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// RunFactory builds a fully isolated run for one parameter set: its own
// feed, broker and strategy, sharing no mutable state with any other
// run. That isolation is what makes the sweep safe to parallelize.
type RunFactory func() (*Runner, error)

type SweepResult struct {
	Index       int
	FinalEquity decimal.Decimal
	State       RunState
}

// Sweep runs every factory's backtest, at most parallelism at a time,
// and returns per-run results in factory order. The first setup or
// strategy error cancels the remaining runs.
func Sweep(ctx context.Context, factories []RunFactory, parallelism int) ([]SweepResult, error) {
	if parallelism <= 0 {
		parallelism = 1
	}
	results := make([]SweepResult, len(factories))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)

	for i, factory := range factories {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			runner, err := factory()
			if err != nil {
				return err
			}
			if err := runner.Run(); err != nil {
				return err
			}
			results[i] = SweepResult{
				Index:       i,
				FinalEquity: runner.broker.Equity(),
				State:       runner.State(),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Best picks the result with the highest final equity.
func Best(results []SweepResult) (SweepResult, bool) {
	if len(results) == 0 {
		return SweepResult{}, false
	}
	best := results[0]
	for _, r := range results[1:] {
		if r.FinalEquity.GreaterThan(best.FinalEquity) {
			best = r
		}
	}
	return best, true
}
