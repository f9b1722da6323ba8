// Package helm renders Helm charts into plain Kubernetes manifests.
//
// Charts are fetched from their HTTP repositories at runtime and cached on
// disk by name and version. Rendering runs the Helm template engine locally;
// nothing is installed as a Helm release. CRDs shipped under crds/ are
// emitted ahead of the templated objects so callers can apply the output in
// order.
package helm
