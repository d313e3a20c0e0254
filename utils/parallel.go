package utils

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Runner executes n independent units of work and returns once all of them
// finished.
type Runner interface {
	Run(ctx context.Context, n int, work func(ctx context.Context, i int) error, progress ProgressFunc) error
}

// ParallelRunner runs work on a bounded pool of goroutines. A failing unit
// does not cancel its siblings; Run returns the first error after the
// barrier.
type ParallelRunner struct {
	Workers int
}

func NewParallelRunner(workers int) *ParallelRunner {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &ParallelRunner{Workers: workers}
}

func (r *ParallelRunner) Run(ctx context.Context, n int, work func(ctx context.Context, i int) error, progress ProgressFunc) error {
	var g errgroup.Group
	g.SetLimit(max(r.Workers, 1))
	tracker := NewMatchingProgress(n, progress)

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			g.Wait()
			return err
		}
		g.Go(func() error {
			defer tracker.Add(1)
			return work(ctx, i)
		})
	}
	return g.Wait()
}

// RunInParallel runs work once per item through r.
func RunInParallel[T any](ctx context.Context, r Runner, items []T, work func(ctx context.Context, item T) error, progress ProgressFunc) error {
	return r.Run(ctx, len(items), func(ctx context.Context, i int) error {
		return work(ctx, items[i])
	}, progress)
}
