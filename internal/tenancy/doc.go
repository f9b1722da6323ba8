// Package tenancy declares the multi-tenant GitOps bootstrap as a dependency
// graph and applies it.
//
// A TenantSystem provisions the shared admin repository and installs Flux
// against it. Each Tenant then gets a workspace repository, a deploy key and
// matching Flux credentials, namespaces with admin bindings for its GitHub
// teams, and a sync binding that points Flux at the workspace. Every tenant
// resource depends on the system's completion; tenants never depend on each
// other.
//
// Resource names are derived with naming.ChildName, so re-applying the same
// configuration addresses the same remote objects.
package tenancy
