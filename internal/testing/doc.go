// Package testing provides fakes, builders, and fixtures shared by unit tests.
//
// The fakes are stateful in-memory stand-ins for the remote systems a run
// touches, so a second apply against the same fakes observes the first:
//   - FakeSourceHost: repositories, deploy keys, and team grants
//   - FakeStore: namespaces, secrets, role bindings, and manifest objects
//   - FluxChart: a minimal Flux chart for rendering without a download
//
// Usage:
//
//	cfg := testing.NewConfigBuilder().
//	    WithTenant("ai-team", []string{"ai"}, []string{"ai-admins"}).
//	    Build()
//
//	source := testing.NewFakeSourceHost("foot-org", "ai-admins")
//	cluster := testing.NewFakeStore()
package testing
