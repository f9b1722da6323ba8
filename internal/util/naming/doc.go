// Package naming provides deterministic naming functions for tenant resources.
//
// Every child resource is named {parent}-{role}, where parent is a validated
// tenant name (or the admin system name) and role is drawn from the closed
// set declared here. Re-running with the same inputs always yields the same
// names, which is what makes re-applying a configuration idempotent.
package naming
