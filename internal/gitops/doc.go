// Package gitops drives the Flux control plane for tenant workspaces.
//
// A Flux agent is configured against the admin repository, bootstrapped by
// rendering the Flux Helm chart into the cluster, and then given one sync
// binding (a GitRepository plus a Kustomization) per repository it should
// reconcile. The in-cluster pull loop itself is Flux's job; this package only
// installs and points it.
package gitops
