// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package peering

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"

	peeringv1alpha1 "github.com/telekom/k8s-peering/api/v1alpha1"
)

// ErrPeeringNotFound is returned when an explicitly configured peering object
// exists in none of the supported flavors.
var ErrPeeringNotFound = errors.New("peering object not found")

var (
	// ClusterPeeringGVK identifies the cluster-scoped peering objects.
	ClusterPeeringGVK = peeringv1alpha1.GroupVersion.WithKind("ClusterPeering")
	// PeeringGVK identifies the namespaced peering objects.
	PeeringGVK = peeringv1alpha1.GroupVersion.WithKind("Peering")
	// LegacyPeeringGVK identifies the deprecated cluster-scoped peering objects.
	LegacyPeeringGVK = schema.GroupVersionKind{Group: "coordination.t-caas.telekom.com", Version: "v1beta1", Kind: "Peering"}

	legacyPeeringCRD = "peerings.coordination.t-caas.telekom.com"
)

// Target is the peering object an instance coordinates through.
type Target struct {
	// Name of the peering object.
	Name string
	// Namespace the instance is restricted to; published in its records.
	Namespace string
	// GVK of the peering object.
	GVK schema.GroupVersionKind
	// ObjectNamespace is the namespace of the peering object itself,
	// empty for cluster-scoped objects.
	ObjectNamespace string
	// Deprecated marks targets resolved through the legacy flavor.
	Deprecated bool
}

// Key returns the object key of the peering object.
func (t *Target) Key() types.NamespacedName {
	return types.NamespacedName{Name: t.Name, Namespace: t.ObjectNamespace}
}

// Matches reports whether the given object identity is this target.
func (t *Target) Matches(name, namespace string) bool {
	return name != "" && name == t.Name && namespace == t.ObjectNamespace
}

// NewObject returns an empty unstructured object addressing the target.
func (t *Target) NewObject() *unstructured.Unstructured {
	u := &unstructured.Unstructured{}
	u.SetGroupVersionKind(t.GVK)
	u.SetName(t.Name)
	u.SetNamespace(t.ObjectNamespace)
	return u
}

// TargetOptions configures target resolution.
type TargetOptions struct {
	// Standalone disables peering entirely.
	Standalone bool
	// Name of the peering object; empty means the default object is probed.
	Name string
	// Namespace the instance serves; empty for cluster-wide instances.
	Namespace string
}

// ResolveTarget decides which peering object the instance uses. A nil target
// with a nil error means standalone mode. Only this function knows about the
// legacy flavor; everything downstream works on the returned GVK and key.
func ResolveTarget(ctx context.Context, r client.Reader, opts TargetOptions, log *zap.SugaredLogger) (*Target, error) {
	if opts.Standalone {
		log.Infow("Peering is disabled, running in standalone mode")
		return nil, nil
	}

	name := opts.Name
	if name == "" {
		name = peeringv1alpha1.DefaultPeeringName
	}

	target, err := probeTarget(ctx, r, name, opts.Namespace)
	if err != nil {
		return nil, err
	}
	if target != nil {
		if target.Deprecated {
			log.Warnw("Using the deprecated legacy peering flavor; migrate to ClusterPeering/Peering",
				"peering", target.Name, "kind", target.GVK.String())
		}
		return target, nil
	}

	if opts.Name != "" {
		return nil, fmt.Errorf("%w: %q", ErrPeeringNotFound, opts.Name)
	}
	log.Warnw("Default peering object not found, falling back to the standalone mode", "peering", name)
	return nil, nil
}

func probeTarget(ctx context.Context, r client.Reader, name, namespace string) (*Target, error) {
	modern := &Target{Name: name, Namespace: namespace, GVK: ClusterPeeringGVK}
	if namespace != "" {
		modern.GVK = PeeringGVK
		modern.ObjectNamespace = namespace
	}
	exists, err := objectExists(ctx, r, modern)
	if err != nil {
		return nil, err
	}
	if exists {
		return modern, nil
	}

	legacy := &Target{Name: name, Namespace: namespace, GVK: LegacyPeeringGVK, Deprecated: true}
	ok, err := isLegacyClusterScoped(ctx, r)
	if err != nil || !ok {
		return nil, err
	}
	exists, err = objectExists(ctx, r, legacy)
	if err != nil || !exists {
		return nil, err
	}
	return legacy, nil
}

func objectExists(ctx context.Context, r client.Reader, t *Target) (bool, error) {
	err := r.Get(ctx, t.Key(), t.NewObject())
	switch {
	case err == nil:
		return true, nil
	case apierrors.IsNotFound(err), meta.IsNoMatchError(err):
		return false, nil
	default:
		return false, fmt.Errorf("failed to read %s %s: %w", t.GVK.Kind, t.Key(), err)
	}
}

// isLegacyClusterScoped reports whether the legacy CRD is installed with cluster scope.
func isLegacyClusterScoped(ctx context.Context, r client.Reader) (bool, error) {
	crd := &apiextensionsv1.CustomResourceDefinition{}
	if err := r.Get(ctx, client.ObjectKey{Name: legacyPeeringCRD}, crd); err != nil {
		if apierrors.IsNotFound(err) || meta.IsNoMatchError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read CRD %s: %w", legacyPeeringCRD, err)
	}
	return crd.Spec.Scope == apiextensionsv1.ClusterScoped, nil
}
