package runner

import (
	"context"
	"fmt"
	"sync"
)

// Result is the outcome of one pool item: either Value or, when Failed is
// set, the original Item plus the error that sank it.
type Result[T, R any] struct {
	Item   T
	Value  R
	Err    error
	Failed bool
}

// Pool runs worker over every item with at most concurrency goroutines
// pulling from a shared FIFO queue. Results are collected in completion
// order, not input order; callers must not assume index alignment with the
// input. A single item's failure (error or panic) never aborts the batch or
// other in-flight items. An empty input returns immediately.
func Pool[T, R any](ctx context.Context, items []T, concurrency int, worker func(ctx context.Context, item T) (R, error)) []Result[T, R] {
	if len(items) == 0 {
		return nil
	}
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > len(items) {
		concurrency = len(items)
	}

	queue := make(chan T, len(items))
	for _, item := range items {
		queue <- item
	}
	close(queue)

	var (
		mu      sync.Mutex
		results []Result[T, R]
		wg      sync.WaitGroup
	)

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range queue {
				res := runOne(ctx, item, worker)
				mu.Lock()
				results = append(results, res)
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	return results
}

// runOne executes worker for a single item, converting panics into failure
// results so one bad item cannot take down its pool lane.
func runOne[T, R any](ctx context.Context, item T, worker func(ctx context.Context, item T) (R, error)) (res Result[T, R]) {
	defer func() {
		if r := recover(); r != nil {
			res = Result[T, R]{Item: item, Err: fmt.Errorf("worker panic: %v", r), Failed: true}
		}
	}()

	value, err := worker(ctx, item)
	if err != nil {
		return Result[T, R]{Item: item, Err: err, Failed: true}
	}
	return Result[T, R]{Item: item, Value: value}
}
