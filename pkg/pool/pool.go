package pool

import (
	"context"
	"sync"
)

// WorkerFunc defines the function signature for a worker that processes an item and may return an error.
type WorkerFunc[T any] func(ctx context.Context, item T) error

// Result is the outcome of processing one item.
type Result[T any] struct {
	Item T
	Err  error
}

type task[T any] struct {
	index int
	item  T
}

// Run processes items on numWorkers goroutines (at least one) and returns
// one Result per item, in input order. Items never started because ctx was
// cancelled carry ctx.Err().
func Run[T any](ctx context.Context, items []T, numWorkers int, workerFunc WorkerFunc[T]) []Result[T] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	results := make([]Result[T], len(items))
	started := make([]bool, len(items))

	var wg sync.WaitGroup
	taskChan := make(chan task[T], numWorkers)

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range taskChan {
				if ctx.Err() != nil {
					continue
				}
				started[t.index] = true
				results[t.index] = Result[T]{Item: t.item, Err: workerFunc(ctx, t.item)}
			}
		}()
	}

OUT:
	for i, item := range items {
		select {
		case taskChan <- task[T]{index: i, item: item}:
		case <-ctx.Done():
			// Stop feeding tasks if the context is cancelled
			break OUT
		}
	}
	close(taskChan)
	wg.Wait()

	for i := range results {
		if !started[i] {
			results[i] = Result[T]{Item: items[i], Err: ctx.Err()}
		}
	}
	return results
}

// Errors returns the non-nil errors of results.
func Errors[T any](results []Result[T]) []error {
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errs
}
