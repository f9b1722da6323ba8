package provisioning

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// ID identifies a node in a Graph. IDs are derived names and must be unique.
type ID string

// Outcome is the result of applying a single node.
type Outcome string

const (
	// OutcomeCreated means a new remote object was created.
	OutcomeCreated Outcome = "created"
	// OutcomeUpdated means an existing remote object was changed.
	OutcomeUpdated Outcome = "updated"
	// OutcomeUnchanged means the remote object already matched.
	OutcomeUnchanged Outcome = "unchanged"
	// OutcomeAdopted means a pre-existing object was taken over as is.
	OutcomeAdopted Outcome = "adopted"
	// OutcomeReady means a component node saw all its members succeed.
	OutcomeReady Outcome = "ready"
	// OutcomeFailed means the node returned an error.
	OutcomeFailed Outcome = "failed"
	// OutcomeSkipped means the node never ran because a dependency did not complete.
	OutcomeSkipped Outcome = "skipped"
)

// Ref is anything that names a declared node, typically an *Output.
type Ref interface {
	NodeID() ID
}

// Spec describes a node to declare.
type Spec struct {
	ID    ID
	Kind  string
	Scope string
	// DependsOn lists the nodes that must succeed before this one runs.
	// Every entry must already be declared in the same Graph.
	DependsOn []Ref
}

// NodeInfo is a read-only view of a declared node.
type NodeInfo struct {
	ID        ID
	Kind      string
	Scope     string
	DependsOn []ID
	Component bool
	Level     int
}

type node struct {
	NodeInfo
	run func(ctx context.Context) (Outcome, error)
}

// Graph is an arena of resource-declaration nodes.
type Graph struct {
	mu    sync.RWMutex
	nodes map[ID]*node
	order []ID
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{nodes: make(map[ID]*node)}
}

// Output is the typed value a node produces once it has run successfully.
type Output[T any] struct {
	id       ID
	mu       sync.RWMutex
	value    T
	outcome  Outcome
	resolved bool
}

// NodeID implements Ref.
func (o *Output[T]) NodeID() ID {
	return o.id
}

// Value returns the resolved value and whether the node has resolved.
func (o *Output[T]) Value() (T, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.value, o.resolved
}

// Outcome returns the outcome the node resolved with.
func (o *Output[T]) Outcome() (Outcome, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.outcome, o.resolved
}

func (o *Output[T]) resolve(v T, outcome Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.value = v
	o.outcome = outcome
	o.resolved = true
}

// Inputs gives a running node access to the outputs of its declared dependencies.
type Inputs struct {
	node    ID
	allowed map[ID]struct{}
}

// Resolve reads the value of a dependency. It fails with ErrDependencyNotReady
// when the dependency is not declared on the reading node or has not resolved.
func Resolve[T any](in *Inputs, out *Output[T]) (T, error) {
	var zero T
	if out == nil {
		return zero, fmt.Errorf("%w: %s read a nil output", ErrDependencyNotReady, in.node)
	}
	if _, ok := in.allowed[out.id]; !ok {
		return zero, fmt.Errorf("%w: %s reads %s without depending on it", ErrDependencyNotReady, in.node, out.id)
	}
	v, ok := out.Value()
	if !ok {
		return zero, fmt.Errorf("%w: %s is not resolved", ErrDependencyNotReady, out.id)
	}
	return v, nil
}

// ResolveOutcome reads how a dependency was applied, under the same rules as Resolve.
func ResolveOutcome[T any](in *Inputs, out *Output[T]) (Outcome, error) {
	if _, err := Resolve(in, out); err != nil {
		return "", err
	}
	outcome, _ := out.Outcome()
	return outcome, nil
}

// ApplyFunc applies one node and returns its value and outcome.
type ApplyFunc[T any] func(ctx context.Context, in *Inputs) (T, Outcome, error)

// Declare adds a node to the graph and returns its deferred output.
func Declare[T any](g *Graph, spec Spec, apply ApplyFunc[T]) (*Output[T], error) {
	out := &Output[T]{id: spec.ID}
	in := &Inputs{node: spec.ID, allowed: make(map[ID]struct{}, len(spec.DependsOn))}
	for _, dep := range spec.DependsOn {
		if dep != nil {
			in.allowed[dep.NodeID()] = struct{}{}
		}
	}

	run := func(ctx context.Context) (Outcome, error) {
		v, outcome, err := apply(ctx, in)
		if err != nil {
			return OutcomeFailed, err
		}
		out.resolve(v, outcome)
		return outcome, nil
	}

	if err := g.add(spec, false, run); err != nil {
		return nil, err
	}
	return out, nil
}

// DeclareComponent adds a grouping node that resolves once all members succeeded.
// Depending on a component is depending on its completion.
func DeclareComponent(g *Graph, spec Spec) (*Output[struct{}], error) {
	out := &Output[struct{}]{id: spec.ID}
	run := func(context.Context) (Outcome, error) {
		out.resolve(struct{}{}, OutcomeReady)
		return OutcomeReady, nil
	}
	if err := g.add(spec, true, run); err != nil {
		return nil, err
	}
	return out, nil
}

func (g *Graph) add(spec Spec, component bool, run func(context.Context) (Outcome, error)) error {
	if spec.ID == "" {
		return fmt.Errorf("%w: node ID must not be empty", ErrInvalidIdentifier)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[spec.ID]; exists {
		return fmt.Errorf("%w: %s is already declared", ErrNameCollision, spec.ID)
	}

	n := &node{
		NodeInfo: NodeInfo{
			ID:        spec.ID,
			Kind:      spec.Kind,
			Scope:     spec.Scope,
			Component: component,
		},
		run: run,
	}

	for _, ref := range spec.DependsOn {
		if ref == nil {
			return fmt.Errorf("%w: %s has a nil dependency", ErrDependencyNotReady, spec.ID)
		}
		depID := ref.NodeID()
		dep, ok := g.nodes[depID]
		if !ok {
			return fmt.Errorf("%w: %s depends on undeclared node %s", ErrDependencyNotReady, spec.ID, depID)
		}
		if slices.Contains(n.DependsOn, depID) {
			continue
		}
		n.DependsOn = append(n.DependsOn, depID)
		n.Level = max(n.Level, dep.Level+1)
	}

	g.nodes[spec.ID] = n
	g.order = append(g.order, spec.ID)
	return nil
}

// Len returns the number of declared nodes.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.order)
}

// Node returns the node with the given ID.
func (g *Graph) Node(id ID) (NodeInfo, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	if !ok {
		return NodeInfo{}, false
	}
	return n.info(), true
}

// Nodes returns all nodes in declaration order, which is a valid topological order.
func (g *Graph) Nodes() []NodeInfo {
	g.mu.RLock()
	defer g.mu.RUnlock()
	infos := make([]NodeInfo, 0, len(g.order))
	for _, id := range g.order {
		infos = append(infos, g.nodes[id].info())
	}
	return infos
}

// Scopes returns the distinct node scopes in first-declared order.
func (g *Graph) Scopes() []string {
	var scopes []string
	for _, n := range g.Nodes() {
		if !slices.Contains(scopes, n.Scope) {
			scopes = append(scopes, n.Scope)
		}
	}
	return scopes
}

// DependsOn reports whether a transitively depends on b.
func (g *Graph) DependsOn(a, b ID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := make(map[ID]bool)
	stack := []ID{a}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n, ok := g.nodes[id]
		if !ok {
			continue
		}
		for _, dep := range n.DependsOn {
			if dep == b {
				return true
			}
			if !visited[dep] {
				visited[dep] = true
				stack = append(stack, dep)
			}
		}
	}
	return false
}

// levels groups node IDs by dependency depth, each level in declaration order.
func (g *Graph) levels() [][]*node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var levels [][]*node
	for _, id := range g.order {
		n := g.nodes[id]
		for len(levels) <= n.Level {
			levels = append(levels, nil)
		}
		levels[n.Level] = append(levels[n.Level], n)
	}
	return levels
}

func (n *node) info() NodeInfo {
	info := n.NodeInfo
	info.DependsOn = slices.Clone(n.DependsOn)
	return info
}
