package sim

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// BuildFunc constructs the i-th independent simulator of an ensemble.
type BuildFunc func(i int) (*Simulator, error)

// Ensemble runs independently built simulators concurrently, one per
// parameter set of a sweep.
type Ensemble struct {
	build BuildFunc
	runs  int
	limit int
}

func NewEnsemble(runs int, build BuildFunc) *Ensemble {
	return &Ensemble{build: build, runs: runs, limit: runtime.GOMAXPROCS(0)}
}

// SetLimit caps the number of simulators running at once.
func (e *Ensemble) SetLimit(n int) {
	if n > 0 {
		e.limit = n
	}
}

// Run builds and runs every member. The first failure cancels the rest.
func (e *Ensemble) Run(ctx context.Context) ([]*Result, error) {
	results := make([]*Result, e.runs)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.limit)
	for i := 0; i < e.runs; i++ {
		g.Go(func() error {
			s, err := e.build(i)
			if err != nil {
				return fmt.Errorf("ensemble member %d: %w", i, err)
			}
			res, err := s.Run(gctx)
			if err != nil {
				return fmt.Errorf("ensemble member %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
