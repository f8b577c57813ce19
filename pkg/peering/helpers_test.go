package peering

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	clocktesting "k8s.io/utils/clock/testing"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	"sigs.k8s.io/controller-runtime/pkg/client/interceptor"

	peeringv1alpha1 "github.com/telekom/k8s-peering/api/v1alpha1"
)

var testNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func newTestScheme(t *testing.T) *runtime.Scheme {
	t.Helper()
	scheme := runtime.NewScheme()
	require.NoError(t, apiextensionsv1.AddToScheme(scheme))
	require.NoError(t, peeringv1alpha1.AddToScheme(scheme))
	return scheme
}

func newTestRESTMapper(withLegacy bool) meta.RESTMapper {
	gvs := []schema.GroupVersion{peeringv1alpha1.GroupVersion, apiextensionsv1.SchemeGroupVersion}
	m := meta.NewDefaultRESTMapper(gvs)
	m.Add(ClusterPeeringGVK, meta.RESTScopeRoot)
	m.Add(PeeringGVK, meta.RESTScopeNamespace)
	m.Add(apiextensionsv1.SchemeGroupVersion.WithKind("CustomResourceDefinition"), meta.RESTScopeRoot)
	if withLegacy {
		m.Add(LegacyPeeringGVK, meta.RESTScopeRoot)
	}
	return m
}

func newTestClient(t *testing.T, funcs *interceptor.Funcs, objs ...client.Object) client.WithWatch {
	t.Helper()
	b := fake.NewClientBuilder().
		WithScheme(newTestScheme(t)).
		WithRESTMapper(newTestRESTMapper(true)).
		WithObjects(objs...)
	if funcs != nil {
		b = b.WithInterceptorFuncs(*funcs)
	}
	return b.Build()
}

func clusterPeering(name string, status peeringv1alpha1.PeeringStatus) *peeringv1alpha1.ClusterPeering {
	return &peeringv1alpha1.ClusterPeering{
		TypeMeta:   metav1.TypeMeta{APIVersion: peeringv1alpha1.GroupVersion.String(), Kind: "ClusterPeering"},
		ObjectMeta: metav1.ObjectMeta{Name: name},
		Status:     status,
	}
}

func namespacedPeering(name, namespace string) *peeringv1alpha1.Peering {
	return &peeringv1alpha1.Peering{
		TypeMeta:   metav1.TypeMeta{APIVersion: peeringv1alpha1.GroupVersion.String(), Kind: "Peering"},
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace},
	}
}

func legacyPeering(name string) *unstructured.Unstructured {
	u := &unstructured.Unstructured{}
	u.SetGroupVersionKind(LegacyPeeringGVK)
	u.SetName(name)
	return u
}

func legacyCRD(scope apiextensionsv1.ResourceScope) *apiextensionsv1.CustomResourceDefinition {
	return &apiextensionsv1.CustomResourceDefinition{
		ObjectMeta: metav1.ObjectMeta{Name: legacyPeeringCRD},
		Spec: apiextensionsv1.CustomResourceDefinitionSpec{
			Group: LegacyPeeringGVK.Group,
			Scope: scope,
			Names: apiextensionsv1.CustomResourceDefinitionNames{Plural: "peerings", Kind: "Peering"},
		},
	}
}

func entry(priority int, lastseen time.Time, lifetimeSeconds int64) map[string]interface{} {
	return map[string]interface{}{
		"namespace": nil,
		"priority":  int64(priority),
		"lastseen":  lastseen.Format(time.RFC3339Nano),
		"lifetime":  lifetimeSeconds,
	}
}

func newObservedLogger() (*zap.SugaredLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core).Sugar(), logs
}

func mustLease(t *testing.T, id string, clk *clocktesting.FakeClock, opts ...LeaseOption) *Lease {
	t.Helper()
	l, err := NewLease(id, "default", "", append([]LeaseOption{WithClock(clk)}, opts...)...)
	require.NoError(t, err)
	return l
}

// recordedLease captures what a synchronizer was asked to write.
type recordedLease struct {
	ID       string
	Dead     bool
	Lifetime time.Duration
	CtxErr   error
}

type recordingSync struct {
	mu    sync.Mutex
	calls [][]recordedLease
	errs  []error
}

func (r *recordingSync) Apply(ctx context.Context, leases ...*Lease) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	call := make([]recordedLease, 0, len(leases))
	for _, l := range leases {
		call = append(call, recordedLease{ID: l.ID, Dead: l.IsDead(), Lifetime: l.Lifetime, CtxErr: ctx.Err()})
	}
	r.calls = append(r.calls, call)
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		return err
	}
	return ctx.Err()
}

func (r *recordingSync) Calls() [][]recordedLease {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]recordedLease, len(r.calls))
	copy(out, r.calls)
	return out
}
