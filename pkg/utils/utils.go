package utils

import (
	"fmt"

	corev1 "k8s.io/api/core/v1"
	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	"k8s.io/apimachinery/pkg/runtime"

	"github.com/telekom/k8s-peering/api/v1alpha1"
)

// CreateScheme creates and returns a runtime scheme with all necessary types registered.
// This includes standard Kubernetes types, CRD definitions (read to detect the
// legacy peering flavor) and the peering CRDs.
// The same scheme instance should be reused for all Kubernetes clients to ensure consistency.
func CreateScheme() (*runtime.Scheme, error) {
	scheme := runtime.NewScheme()

	// Add standard Kubernetes types (core API)
	if err := corev1.AddToScheme(scheme); err != nil {
		return nil, fmt.Errorf("failed to add corev1 to scheme: %w", err)
	}

	if err := apiextensionsv1.AddToScheme(scheme); err != nil {
		return nil, fmt.Errorf("failed to add apiextensions/v1 to scheme: %w", err)
	}

	// Add custom peering CRD types (v1alpha1)
	if err := v1alpha1.AddToScheme(scheme); err != nil {
		return nil, fmt.Errorf("failed to add v1alpha1 CRDs to scheme: %w", err)
	}

	return scheme, nil
}
