package fanout

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrErrorsLimitExceeded = errors.New("errors limit exceeded")
	ErrIncorrectWorkers    = errors.New("incorrect number of workers")
)

type Task func(ctx context.Context) error

// Run executes tasks in workers goroutines. It stops handing out tasks once
// maxErrors tasks have failed (maxErrors <= 0 means no limit) or ctx is done.
// Tasks already started are waited for.
func Run(ctx context.Context, tasks []Task, workers, maxErrors int) error {
	if workers <= 0 {
		return ErrIncorrectWorkers
	}
	if len(tasks) == 0 {
		return nil
	}

	done := make(chan struct{})
	tasksCh := make(chan Task)
	results := make(chan error)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range tasksCh {
				select {
				case results <- task(ctx):
				case <-done:
					return
				}
			}
		}()
	}

	go func() {
		defer func() {
			close(tasksCh)
			wg.Wait()
			close(results)
		}()
		for _, task := range tasks {
			select {
			case tasksCh <- task:
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	var errCount int
	var stopErr error
	for result := range results {
		if result == nil || stopErr != nil {
			continue
		}
		errCount++
		if maxErrors > 0 && errCount >= maxErrors {
			stopErr = ErrErrorsLimitExceeded
			close(done)
		}
	}
	if stopErr != nil {
		return stopErr
	}
	return ctx.Err()
}
