package provisioning

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"sigs.k8s.io/yaml"
)

// NodeResult is the recorded result of one node.
type NodeResult struct {
	ID        ID            `json:"id"`
	Kind      string        `json:"kind"`
	Scope     string        `json:"scope,omitempty"`
	Component bool          `json:"component,omitempty"`
	Outcome   Outcome       `json:"outcome"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`

	err error
}

// Err returns the error the node failed or was skipped with.
func (r NodeResult) Err() error {
	return r.err
}

// Report is the outcome of one executor run.
type Report struct {
	RunID      string       `json:"runID"`
	StartedAt  time.Time    `json:"startedAt"`
	FinishedAt time.Time    `json:"finishedAt"`
	Results    []NodeResult `json:"results"`

	mu    sync.Mutex
	index map[ID]int
}

func newReport(g *Graph, now time.Time) *Report {
	nodes := g.Nodes()
	r := &Report{
		RunID:     uuid.NewString(),
		StartedAt: now,
		Results:   make([]NodeResult, len(nodes)),
		index:     make(map[ID]int, len(nodes)),
	}
	for i, n := range nodes {
		r.Results[i] = NodeResult{ID: n.ID, Kind: n.Kind, Scope: n.Scope, Component: n.Component}
		r.index[n.ID] = i
	}
	return r
}

func (r *Report) record(id ID, outcome Outcome, duration time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.index[id]
	if !ok {
		return
	}
	r.Results[i].Outcome = outcome
	r.Results[i].Duration = duration
	r.Results[i].err = err
	if err != nil {
		r.Results[i].Error = err.Error()
	}
}

// Result returns the recorded result for a node.
func (r *Report) Result(id ID) (NodeResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.index[id]
	if !ok {
		return NodeResult{}, false
	}
	return r.Results[i], true
}

// incomplete returns the first dependency of deps that did not succeed.
func (r *Report) incomplete(deps []ID) (ID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, dep := range deps {
		i, ok := r.index[dep]
		if !ok {
			return dep, true
		}
		switch r.Results[i].Outcome {
		case OutcomeFailed, OutcomeSkipped, "":
			return dep, true
		}
	}
	return "", false
}

// Counts returns the number of resource nodes per outcome. Component nodes are not counted.
func (r *Report) Counts() map[Outcome]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[Outcome]int)
	for _, res := range r.Results {
		if res.Component {
			continue
		}
		counts[res.Outcome]++
	}
	return counts
}

// Failed returns the results of nodes that returned an error.
func (r *Report) Failed() []NodeResult {
	return r.filter(OutcomeFailed)
}

// Skipped returns the results of nodes that never ran.
func (r *Report) Skipped() []NodeResult {
	return r.filter(OutcomeSkipped)
}

func (r *Report) filter(outcome Outcome) []NodeResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []NodeResult
	for _, res := range r.Results {
		if res.Outcome == outcome {
			out = append(out, res)
		}
	}
	return out
}

// ScopeSucceeded reports whether every node in scope succeeded.
func (r *Report) ScopeSucceeded(scope string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	found := false
	for _, res := range r.Results {
		if res.Scope != scope {
			continue
		}
		found = true
		if res.Outcome == OutcomeFailed || res.Outcome == OutcomeSkipped || res.Outcome == "" {
			return false
		}
	}
	return found
}

// Err aggregates every failed node into a single error. Skipped nodes are
// consequences of those failures and are not repeated.
func (r *Report) Err() error {
	var result *multierror.Error
	for _, res := range r.Failed() {
		result = multierror.Append(result, &ResourceError{
			ID:    res.ID,
			Kind:  res.Kind,
			Scope: res.Scope,
			Err:   res.err,
		})
	}
	return result.ErrorOrNil()
}

// YAML renders the report for archiving.
func (r *Report) YAML() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, err := yaml.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return data, nil
}

// ObjectStore stores archived reports.
type ObjectStore interface {
	PutObject(ctx context.Context, bucket, key string, data []byte) error
}

// ArchiveKey returns the object key a report is archived under.
func ArchiveKey(owner string, r *Report) string {
	return fmt.Sprintf("reports/%s/%s-%s.yaml", owner, r.StartedAt.UTC().Format("20060102T150405Z"), r.RunID)
}

// Archive uploads the report to bucket and returns the object key.
func Archive(ctx context.Context, store ObjectStore, bucket, owner string, r *Report) (string, error) {
	data, err := r.YAML()
	if err != nil {
		return "", err
	}
	key := ArchiveKey(owner, r)
	if err := store.PutObject(ctx, bucket, key, data); err != nil {
		return "", fmt.Errorf("failed to archive report: %w", err)
	}
	return key, nil
}
