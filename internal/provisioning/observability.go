package provisioning

import (
	"time"

	"github.com/go-logr/logr"
)

// Observer receives structured events while a graph is applied.
type Observer interface {
	Event(event Event)
}

// Event represents a structured provisioning event.
type Event struct {
	Type      EventType     // Type of event
	Scope     string        // Scope of the node, e.g. "tenant/ai-team"
	Resource  ID            // Node ID if applicable
	Kind      string        // Node kind if applicable
	Outcome   Outcome       // Set on completion events
	Message   string        // Human-readable message
	Duration  time.Duration // Set on completion events
	Err       error         // Set on failure and skip events
	Timestamp time.Time     // When the event occurred
}

// EventType represents the type of provisioning event.
type EventType string

const (
	// EventRunStarted indicates the executor started applying a graph.
	EventRunStarted EventType = "run.started"
	// EventRunCompleted indicates the executor finished, successfully or not.
	EventRunCompleted EventType = "run.completed"
	// EventNodeStarted indicates a node is being applied.
	EventNodeStarted EventType = "node.started"
	// EventNodeCompleted indicates a node was applied successfully.
	EventNodeCompleted EventType = "node.completed"
	// EventNodeFailed indicates applying a node failed.
	EventNodeFailed EventType = "node.failed"
	// EventNodeSkipped indicates a node was not applied because a dependency did not complete.
	EventNodeSkipped EventType = "node.skipped"
)

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

// Event implements Observer.
func (f ObserverFunc) Event(event Event) {
	f(event)
}

// NopObserver discards all events.
type NopObserver struct{}

// Event implements Observer.
func (NopObserver) Event(Event) {}

// MultiObserver fans events out to several observers.
type MultiObserver []Observer

// Event implements Observer.
func (m MultiObserver) Event(event Event) {
	for _, o := range m {
		if o != nil {
			o.Event(event)
		}
	}
}

// LogObserver writes events to a logr.Logger.
type LogObserver struct {
	log logr.Logger
}

// NewLogObserver creates an observer logging through log.
func NewLogObserver(log logr.Logger) *LogObserver {
	return &LogObserver{log: log}
}

// Event implements Observer.
func (o *LogObserver) Event(event Event) {
	log := o.log
	if event.Scope != "" {
		log = log.WithValues("scope", event.Scope)
	}
	if event.Resource != "" {
		log = log.WithValues("resource", string(event.Resource), "kind", event.Kind)
	}

	switch event.Type {
	case EventNodeFailed:
		log.Error(event.Err, "resource failed", "duration", event.Duration.Round(time.Millisecond).String())
	case EventNodeSkipped:
		log.Info("resource skipped", "reason", errString(event.Err))
	case EventNodeCompleted:
		log.Info("resource applied", "outcome", string(event.Outcome), "duration", event.Duration.Round(time.Millisecond).String())
	case EventNodeStarted:
		log.V(1).Info("applying resource")
	default:
		log.Info(event.Message)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
