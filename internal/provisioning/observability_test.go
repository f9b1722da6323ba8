package provisioning

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/go-logr/logr/funcr"
	"github.com/stretchr/testify/assert"
)

// recordingObserver is a test implementation of Observer that records events.
type recordingObserver struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingObserver) Event(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingObserver) ofType(t EventType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func TestObserverFunc(t *testing.T) {
	t.Parallel()
	var got Event
	o := ObserverFunc(func(e Event) { got = e })
	o.Event(Event{Type: EventNodeStarted, Resource: "ai-team-repository"})
	assert.Equal(t, ID("ai-team-repository"), got.Resource)
}

func TestMultiObserver(t *testing.T) {
	t.Parallel()
	a, b := &recordingObserver{}, &recordingObserver{}
	m := MultiObserver{a, nil, b}

	m.Event(Event{Type: EventRunStarted})

	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
}

func TestNopObserver(t *testing.T) {
	t.Parallel()
	assert.NotPanics(t, func() {
		NopObserver{}.Event(Event{Type: EventNodeFailed})
	})
}

func TestLogObserver(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		event    Event
		contains []string
	}{
		{
			name: "completed",
			event: Event{
				Type: EventNodeCompleted, Scope: "tenant/ai-team", Resource: "ai-team-repository",
				Kind: "repository", Outcome: OutcomeCreated,
			},
			contains: []string{`"resource applied"`, `"outcome"="created"`, `"scope"="tenant/ai-team"`},
		},
		{
			name:     "failed",
			event:    Event{Type: EventNodeFailed, Resource: "ai-team-repository", Kind: "repository", Err: errors.New("boom")},
			contains: []string{`"resource failed"`, `"error"="boom"`},
		},
		{
			name:     "skipped",
			event:    Event{Type: EventNodeSkipped, Resource: "ai-team-flux-sync", Kind: "flux-sync", Err: ErrDependencyNotReady},
			contains: []string{`"resource skipped"`, `"reason"="dependency not ready"`},
		},
		{
			name:     "started at verbosity 1",
			event:    Event{Type: EventNodeStarted, Resource: "workspace-admin-private-key", Kind: "private-key"},
			contains: []string{`"applying resource"`},
		},
		{
			name:     "run message",
			event:    Event{Type: EventRunStarted, Message: "applying 3 resources"},
			contains: []string{`"applying 3 resources"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var lines []string
			log := funcr.New(func(prefix, args string) {
				lines = append(lines, args)
			}, funcr.Options{Verbosity: 1})

			NewLogObserver(log).Event(tt.event)

			out := strings.Join(lines, "\n")
			for _, c := range tt.contains {
				assert.Contains(t, out, c)
			}
		})
	}
}
