// Package k8s is the cluster object store used by tenant provisioning.
//
// [Client] wraps a controller-runtime client and exposes idempotent
// create-or-update operations for the objects fluxtenancy owns: tenant
// namespaces, Flux credential secrets, admin RoleBindings and rendered
// manifest bundles. Every operation reports a provisioning.Outcome so
// the executor can tell created objects from unchanged ones.
package k8s
