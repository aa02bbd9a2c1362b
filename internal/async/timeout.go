// Package async provides small concurrency helpers shared by the service's
// suspension points: timeout racing and bounded-parallel file hydration.
package async

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// WithTimeout races fn against a cancel timer, always stopping the timer on
// settle to avoid a leak. fn must respect ctx cancellation for the race to
// actually bound wall-clock time; WithTimeout itself only arranges the
// race, it cannot preempt a non-cooperative fn.
func WithTimeout[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)

	go func() {
		v, err := fn(timeoutCtx)
		done <- result{value: v, err: err}
	}()

	select {
	case <-timeoutCtx.Done():
		return zero, timeoutCtx.Err()
	case r := <-done:
		return r.value, r.err
	}
}

// HydrateFile reads one memory file's content for a bounded-parallelism
// hydration pass.
type HydrateFile func(ctx context.Context, path string) (string, error)

// HydrateAll reads paths with bounded parallelism (maxConcurrent
// simultaneous reads), returning results in input order. The first error
// cancels the remaining in-flight reads and is returned to the caller.
func HydrateAll(ctx context.Context, paths []string, maxConcurrent int, read HydrateFile) ([]string, error) {
	if maxConcurrent <= 0 {
		maxConcurrent = 8
	}

	results := make([]string, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)

	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			content, err := read(gctx, p)
			if err != nil {
				return err
			}
			results[i] = content
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
