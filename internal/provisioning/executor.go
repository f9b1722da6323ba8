package provisioning

import (
	"context"
	"fmt"
	"time"

	"github.com/imamik/fluxtenancy/internal/util/async"
)

// Executor applies a Graph.
type Executor struct {
	observer    Observer
	metrics     *Metrics
	parallelism int
	now         func() time.Time
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithObserver sets the observer receiving node events.
func WithObserver(o Observer) ExecutorOption {
	return func(e *Executor) {
		e.observer = o
	}
}

// WithMetrics records node outcomes and durations in m.
func WithMetrics(m *Metrics) ExecutorOption {
	return func(e *Executor) {
		e.metrics = m
	}
}

// WithParallelism limits how many nodes of one level run at once. Zero means unbounded.
func WithParallelism(n int) ExecutorOption {
	return func(e *Executor) {
		e.parallelism = n
	}
}

// NewExecutor creates an executor.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		observer: NopObserver{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute applies every node of g in dependency order and returns the run report.
// The returned error aggregates all failed nodes; the report is always non-nil.
func (e *Executor) Execute(ctx context.Context, g *Graph) (*Report, error) {
	report := newReport(g, e.now())
	e.observer.Event(Event{
		Type:      EventRunStarted,
		Message:   fmt.Sprintf("applying %d resources", g.Len()),
		Timestamp: report.StartedAt,
	})

	for _, level := range g.levels() {
		tasks := make([]async.Task, 0, len(level))
		for _, n := range level {
			if dep, blocked := report.incomplete(n.DependsOn); blocked {
				e.skip(report, n, fmt.Errorf("%w: %s did not complete", ErrDependencyNotReady, dep))
				continue
			}
			if err := ctx.Err(); err != nil {
				e.skip(report, n, err)
				continue
			}
			tasks = append(tasks, async.Task{
				Name: string(n.ID),
				Func: func(ctx context.Context) error {
					e.apply(ctx, report, n)
					return nil
				},
			})
		}
		_ = async.RunBounded(ctx, tasks, e.parallelism)
	}

	report.FinishedAt = e.now()
	e.metrics.recordRun(report)

	err := report.Err()
	e.observer.Event(Event{
		Type:      EventRunCompleted,
		Message:   "run completed",
		Duration:  report.FinishedAt.Sub(report.StartedAt),
		Err:       err,
		Timestamp: report.FinishedAt,
	})
	return report, err
}

func (e *Executor) apply(ctx context.Context, report *Report, n *node) {
	start := e.now()
	e.observer.Event(Event{
		Type:      EventNodeStarted,
		Scope:     n.Scope,
		Resource:  n.ID,
		Kind:      n.Kind,
		Timestamp: start,
	})

	outcome, err := n.run(ctx)
	duration := e.now().Sub(start)

	if err != nil {
		report.record(n.ID, OutcomeFailed, duration, err)
		e.metrics.recordNode(n.Kind, OutcomeFailed, duration)
		e.observer.Event(Event{
			Type:      EventNodeFailed,
			Scope:     n.Scope,
			Resource:  n.ID,
			Kind:      n.Kind,
			Outcome:   OutcomeFailed,
			Duration:  duration,
			Err:       err,
			Timestamp: e.now(),
		})
		return
	}

	report.record(n.ID, outcome, duration, nil)
	if !n.Component {
		e.metrics.recordNode(n.Kind, outcome, duration)
	}
	e.observer.Event(Event{
		Type:      EventNodeCompleted,
		Scope:     n.Scope,
		Resource:  n.ID,
		Kind:      n.Kind,
		Outcome:   outcome,
		Duration:  duration,
		Timestamp: e.now(),
	})
}

func (e *Executor) skip(report *Report, n *node, reason error) {
	report.record(n.ID, OutcomeSkipped, 0, reason)
	e.metrics.recordNode(n.Kind, OutcomeSkipped, 0)
	e.observer.Event(Event{
		Type:      EventNodeSkipped,
		Scope:     n.Scope,
		Resource:  n.ID,
		Kind:      n.Kind,
		Outcome:   OutcomeSkipped,
		Err:       reason,
		Timestamp: e.now(),
	})
}
