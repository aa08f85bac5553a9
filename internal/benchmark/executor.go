package benchmark

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// taskResult is the slot one task reports into.
type taskResult[T any] struct {
	metric T
	err    error
}

// runTasks launches n tasks with at most concurrency of them between permit
// acquisition and release. Each task writes only its own slot; the slice is
// returned once every task has finished. A panicking task is recovered into an
// error. When limiter is non-nil each task waits on it after acquiring a permit.
func runTasks[T any](ctx context.Context, n, concurrency int, limiter *rate.Limiter, task func(ctx context.Context) (T, error)) []taskResult[T] {
	sem := semaphore.NewWeighted(int64(concurrency))
	results := make([]taskResult[T], n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(slot *taskResult[T]) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				slot.err = fmt.Errorf("acquire permit: %w", err)
				return
			}
			defer sem.Release(1)
			defer func() {
				if p := recover(); p != nil {
					slot.err = fmt.Errorf("task panicked: %v", p)
				}
			}()

			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					slot.err = fmt.Errorf("rate limit: %w", err)
					return
				}
			}
			slot.metric, slot.err = task(ctx)
		}(&results[i])
	}
	wg.Wait()

	return results
}
