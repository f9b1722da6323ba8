package async

import (
	"context"
	"errors"
	"fmt"
)

// Task represents an asynchronous operation with a name and function.
type Task struct {
	Name string
	Func func(context.Context) error
}

// RunParallel executes multiple tasks in parallel and waits for all of them.
// Every task error is wrapped with the task name and returned joined.
//
// Example:
//
//	tasks := []Task{
//	    {Name: "ai-team-repository", Func: applyRepository},
//	    {Name: "web-team-repository", Func: applyOtherRepository},
//	}
//	if err := RunParallel(ctx, tasks); err != nil {
//	    return err
//	}
func RunParallel(ctx context.Context, tasks []Task) error {
	return RunBounded(ctx, tasks, 0)
}

// RunBounded is RunParallel with at most limit tasks running at once.
// A limit of zero or less means unbounded.
func RunBounded(ctx context.Context, tasks []Task, limit int) error {
	if len(tasks) == 0 {
		return nil
	}

	type result struct {
		name string
		err  error
	}

	if limit <= 0 || limit > len(tasks) {
		limit = len(tasks)
	}

	sem := make(chan struct{}, limit)
	resultChan := make(chan result, len(tasks))

	for _, task := range tasks {
		go func() {
			sem <- struct{}{}
			defer func() { <-sem }()
			err := task.Func(ctx)
			resultChan <- result{name: task.Name, err: err}
		}()
	}

	var errs []error
	for range len(tasks) {
		res := <-resultChan
		if res.err != nil {
			errs = append(errs, fmt.Errorf("failed to run %s: %w", res.name, res.err))
		}
	}

	return errors.Join(errs...)
}
