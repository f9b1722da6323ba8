package k8s

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"k8s.io/apimachinery/pkg/api/equality"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/apimachinery/pkg/util/yaml"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/imamik/fluxtenancy/internal/provisioning"
	"github.com/imamik/fluxtenancy/internal/util/labels"
)

var crdGVK = schema.GroupVersionKind{
	Group:   "apiextensions.k8s.io",
	Version: "v1",
	Kind:    "CustomResourceDefinition",
}

// DecodeManifests splits multi-document YAML into unstructured objects.
// Empty documents are skipped.
func DecodeManifests(manifests []byte) ([]*unstructured.Unstructured, error) {
	decoder := yaml.NewYAMLOrJSONDecoder(bytes.NewReader(manifests), 4096)

	var objs []*unstructured.Unstructured
	for docIndex := 0; ; docIndex++ {
		var raw runtime.RawExtension
		if err := decoder.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to decode manifest document %d: %w", docIndex, err)
		}
		raw.Raw = bytes.TrimSpace(raw.Raw)
		if len(raw.Raw) == 0 || bytes.Equal(raw.Raw, []byte("null")) || bytes.Equal(raw.Raw, []byte("{}")) {
			continue
		}
		obj := &unstructured.Unstructured{}
		if err := obj.UnmarshalJSON(raw.Raw); err != nil {
			return nil, fmt.Errorf("failed to decode manifest document %d: %w", docIndex, err)
		}
		if obj.GetKind() == "" || obj.GetName() == "" {
			return nil, fmt.Errorf("manifest document %d has no kind or name", docIndex)
		}
		objs = append(objs, obj)
	}
	return objs, nil
}

// ApplyManifests creates or updates every object in a multi-document YAML bundle.
// The bundle is created when every object was new, unchanged when none
// differed, and updated otherwise.
func (k *Client) ApplyManifests(ctx context.Context, manifests []byte) (provisioning.Outcome, error) {
	objs, err := DecodeManifests(manifests)
	if err != nil {
		return provisioning.OutcomeFailed, err
	}

	created, changed := 0, 0
	for _, obj := range objs {
		outcome, err := k.applyObject(ctx, obj)
		if err != nil {
			return provisioning.OutcomeFailed, fmt.Errorf("failed to apply %s %s: %w",
				obj.GetKind(), client.ObjectKeyFromObject(obj), err)
		}
		switch outcome {
		case provisioning.OutcomeCreated:
			created++
		case provisioning.OutcomeUpdated:
			changed++
		}
	}

	switch {
	case len(objs) > 0 && created == len(objs):
		return provisioning.OutcomeCreated, nil
	case created == 0 && changed == 0:
		return provisioning.OutcomeUnchanged, nil
	default:
		return provisioning.OutcomeUpdated, nil
	}
}

func (k *Client) applyObject(ctx context.Context, desired *unstructured.Unstructured) (provisioning.Outcome, error) {
	desired.SetLabels(labels.Apply(desired.GetLabels(), labels.NewLabelBuilder().Build()))

	existing := &unstructured.Unstructured{}
	existing.SetGroupVersionKind(desired.GroupVersionKind())
	err := k.c.Get(ctx, client.ObjectKeyFromObject(desired), existing)
	switch {
	case err == nil:
	case isNotFound(err):
		if err := k.c.Create(ctx, desired, client.FieldOwner(FieldOwner)); err != nil {
			return provisioning.OutcomeFailed, err
		}
		return provisioning.OutcomeCreated, nil
	default:
		return provisioning.OutcomeFailed, err
	}

	if !differs(desired, existing) {
		return provisioning.OutcomeUnchanged, nil
	}

	desired.SetResourceVersion(existing.GetResourceVersion())
	if err := k.c.Update(ctx, desired, client.FieldOwner(FieldOwner)); err != nil {
		return provisioning.OutcomeFailed, err
	}
	return provisioning.OutcomeUpdated, nil
}

// differs reports whether applying desired would change existing.
// Only fields set in desired are compared; status and server-set metadata are ignored.
func differs(desired, existing *unstructured.Unstructured) bool {
	for key, want := range desired.Object {
		switch key {
		case "metadata", "status":
			continue
		}
		if !equality.Semantic.DeepEqual(want, existing.Object[key]) {
			return true
		}
	}

	have := existing.GetLabels()
	for k, v := range desired.GetLabels() {
		if have[k] != v {
			return true
		}
	}
	haveAnn := existing.GetAnnotations()
	for k, v := range desired.GetAnnotations() {
		if haveAnn[k] != v {
			return true
		}
	}
	return false
}

// WaitForCRDs polls until every named CustomResourceDefinition is Established.
func (k *Client) WaitForCRDs(ctx context.Context, names []string, timeout time.Duration) error {
	pending := append([]string(nil), names...)

	err := wait.PollUntilContextTimeout(ctx, k.pollInterval, timeout, true, func(ctx context.Context) (bool, error) {
		remaining := pending[:0]
		for _, name := range pending {
			crd := &unstructured.Unstructured{}
			crd.SetGroupVersionKind(crdGVK)
			if err := k.c.Get(ctx, client.ObjectKey{Name: name}, crd); err != nil {
				if isNotFound(err) {
					remaining = append(remaining, name)
					continue
				}
				return false, err
			}
			if !crdEstablished(crd) {
				remaining = append(remaining, name)
			}
		}
		pending = remaining
		return len(pending) == 0, nil
	})
	if err != nil {
		return fmt.Errorf("failed waiting for CRDs %v: %w", pending, err)
	}
	return nil
}

func crdEstablished(crd *unstructured.Unstructured) bool {
	conditions, _, _ := unstructured.NestedSlice(crd.Object, "status", "conditions")
	for _, c := range conditions {
		cond, ok := c.(map[string]interface{})
		if !ok {
			continue
		}
		if cond["type"] == "Established" && cond["status"] == "True" {
			return true
		}
	}
	return false
}

func isNotFound(err error) bool {
	return apierrors.IsNotFound(err) || meta.IsNoMatchError(err)
}
