// Package parallel provides a small bounded-concurrency map helper. It is
// trimmed down from the teacher's goroutine/channel/semaphore fan-out
// executor (originally built to run releaser's archive/package/sign/
// publish stages across many build targets at once); the meta build
// system's resolver and generator must stay single-threaded and
// deterministic (see the concurrency model), so the only legal home left
// for that machinery is hashing an unbounded number of independent source
// files for the project cache, where the result order the caller imposes
// afterward — not the order work completes in — is what determinism
// depends on.
package parallel

import (
	"context"
	"runtime"
	"sync"
)

// Map runs fn over items with up to runtime.NumCPU() workers and returns
// results in the same order as items, regardless of completion order. The
// first error encountered is returned after all in-flight work drains;
// results for items after the failing one are not meaningful.
func Map[T any, R any](ctx context.Context, items []T, fn func(context.Context, T) (R, error)) ([]R, error) {
	return MapN(ctx, runtime.NumCPU(), items, fn)
}

// MapN is Map with an explicit worker count.
func MapN[T any, R any](ctx context.Context, workers int, items []T, fn func(context.Context, T) (R, error)) ([]R, error) {
	if workers < 1 {
		workers = 1
	}
	results := make([]R, len(items))
	errs := make([]error, len(items))

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, item := range items {
		i, item := i, item
		wg.Add(1)
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			wg.Done()
			errs[i] = ctx.Err()
			continue
		}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			r, err := fn(ctx, item)
			results[i] = r
			errs[i] = err
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// ForEach is Map without a return value.
func ForEach[T any](ctx context.Context, items []T, fn func(context.Context, T) error) error {
	_, err := Map(ctx, items, func(ctx context.Context, item T) (struct{}, error) {
		return struct{}{}, fn(ctx, item)
	})
	return err
}
