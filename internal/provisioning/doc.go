// Package provisioning is the declarative resource-graph engine.
//
// # Core Types
//
// Graph is an arena of resource-declaration nodes keyed by ID. Each node
// lists its dependencies explicitly and may only depend on nodes declared
// before it, so every Graph is acyclic by construction.
//
// Output is a typed deferred value produced by a node. A node reads the
// outputs of its dependencies through Resolve, which refuses to read any
// output the node did not declare a dependency on.
//
// Executor applies a Graph level by level. Nodes on the same level run
// concurrently; a failed node skips every node that depends on it. Nothing
// is retried.
//
// Report records the outcome of every node and aggregates failures.
package provisioning
