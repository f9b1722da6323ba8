// Package labels provides consistent labeling for the Kubernetes objects
// fluxtenancy manages.
//
// Every managed object carries the managed-by label. Objects owned by a
// tenant also carry the tenant label, which is how a namespace claimed by
// one tenant is recognized when another tenant asks for it.
package labels
