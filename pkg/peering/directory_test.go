package peering

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	clocktesting "k8s.io/utils/clock/testing"
	"k8s.io/utils/ptr"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/interceptor"

	peeringv1alpha1 "github.com/telekom/k8s-peering/api/v1alpha1"
)

func clusterTarget(name string) *Target {
	return &Target{Name: name, GVK: ClusterPeeringGVK}
}

func TestBuildPatch_TombstonesDeadAndSerializesAlive(t *testing.T) {
	clk := clocktesting.NewFakeClock(testNow)
	alive := mustLease(t, "alive", clk, WithPriority(5))
	dead := mustLease(t, "dead", clk, WithLastSeen(testNow.Add(-2*time.Minute)))
	leaving := mustLease(t, "leaving", clk)
	leaving.TouchWithLifetime(0)

	data, err := buildPatch([]*Lease{alive, dead, leaving})
	require.NoError(t, err)

	var patch map[string]map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &patch))
	require.Len(t, patch, 1)
	status := patch["status"]
	require.Len(t, status, 3)

	assert.JSONEq(t, "null", string(status["dead"]))
	assert.JSONEq(t, "null", string(status["leaving"]))
	assert.JSONEq(t, `{"namespace":null,"priority":5,"lastseen":"2026-10-19T12:00:00Z","lifetime":60}`, string(status["alive"]))
}

func TestDirectory_ApplyTouchesOnlyGivenKeys(t *testing.T) {
	clk := clocktesting.NewFakeClock(testNow)
	existing := clusterPeering("default", peeringv1alpha1.PeeringStatus{
		"other": {Priority: 1, LastSeen: "2026-10-19T11:59:00Z", Lifetime: 60},
		"dead":  {Priority: 1, LastSeen: "2026-10-19T11:00:00Z", Lifetime: 60},
	})
	c := newTestClient(t, nil, existing)
	dir := NewDirectory(c, clusterTarget("default"))

	self := mustLease(t, "self", clk, WithPriority(3))
	dead := mustLease(t, "dead", clk, WithLastSeen(testNow.Add(-time.Hour)))
	require.NoError(t, dir.Apply(context.Background(), self, dead))

	got := &peeringv1alpha1.ClusterPeering{}
	require.NoError(t, c.Get(context.Background(), client.ObjectKey{Name: "default"}, got))
	require.Contains(t, got.Status, "self")
	require.Contains(t, got.Status, "other")
	assert.NotContains(t, got.Status, "dead")
	assert.Equal(t, 3, got.Status["self"].Priority)
	assert.Equal(t, "2026-10-19T11:59:00Z", got.Status["other"].LastSeen)
}

func TestDirectory_ApplySendsMergePatch(t *testing.T) {
	clk := clocktesting.NewFakeClock(testNow)
	var patchType string
	funcs := &interceptor.Funcs{
		Patch: func(ctx context.Context, c client.WithWatch, obj client.Object, patch client.Patch, opts ...client.PatchOption) error {
			patchType = string(patch.Type())
			return c.Patch(ctx, obj, patch, opts...)
		},
	}
	c := newTestClient(t, funcs, clusterPeering("default", nil))
	dir := NewDirectory(c, clusterTarget("default"))

	require.NoError(t, dir.Apply(context.Background(), mustLease(t, "self", clk)))
	assert.Equal(t, "application/merge-patch+json", patchType)
}

func TestDirectory_ApplyNamespacedTarget(t *testing.T) {
	clk := clocktesting.NewFakeClock(testNow)
	c := newTestClient(t, nil, namespacedPeering("default", "team-a"))
	target := &Target{Name: "default", Namespace: "team-a", GVK: PeeringGVK, ObjectNamespace: "team-a"}
	dir := NewDirectory(c, target)

	self, err := NewLease("self", "default", "team-a", WithClock(clk))
	require.NoError(t, err)
	require.NoError(t, dir.Apply(context.Background(), self))

	got := &peeringv1alpha1.Peering{}
	require.NoError(t, c.Get(context.Background(), client.ObjectKey{Name: "default", Namespace: "team-a"}, got))
	require.Contains(t, got.Status, "self")
	assert.Equal(t, ptr.To("team-a"), got.Status["self"].Namespace)
}

func TestDirectory_ApplyPropagatesErrors(t *testing.T) {
	clk := clocktesting.NewFakeClock(testNow)
	boom := errors.New("apiserver unavailable")
	funcs := &interceptor.Funcs{
		Patch: func(ctx context.Context, c client.WithWatch, obj client.Object, patch client.Patch, opts ...client.PatchOption) error {
			return boom
		},
	}
	dir := NewDirectory(newTestClient(t, funcs), clusterTarget("default"))

	err := dir.Apply(context.Background(), mustLease(t, "self", clk))
	require.ErrorIs(t, err, boom)
}

func TestDirectory_ApplyWithoutLeasesIsNoop(t *testing.T) {
	called := false
	funcs := &interceptor.Funcs{
		Patch: func(ctx context.Context, c client.WithWatch, obj client.Object, patch client.Patch, opts ...client.PatchOption) error {
			called = true
			return nil
		},
	}
	dir := NewDirectory(newTestClient(t, funcs), clusterTarget("default"))
	require.NoError(t, dir.Apply(context.Background()))
	assert.False(t, called)
}

func TestDirectory_Read(t *testing.T) {
	existing := clusterPeering("default", peeringv1alpha1.PeeringStatus{
		"a": {Priority: 2, LastSeen: "2026-10-19T11:59:00Z", Lifetime: 60},
	})
	dir := NewDirectory(newTestClient(t, nil, existing), clusterTarget("default"))

	snap, err := dir.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "default", snap.Name)
	assert.Empty(t, snap.Namespace)
	require.Contains(t, snap.Entries, "a")
	assert.EqualValues(t, 2, snap.Entries["a"]["priority"])
}

func TestSnapshotFromObject(t *testing.T) {
	u := &unstructured.Unstructured{Object: map[string]interface{}{
		"metadata": map[string]interface{}{"name": "default", "namespace": "ns"},
		"status": map[string]interface{}{
			"a":       map[string]interface{}{"priority": int64(1)},
			"gone":    nil,
			"garbage": "not-a-record",
		},
	}}

	snap := SnapshotFromObject(u)
	assert.Equal(t, "default", snap.Name)
	assert.Equal(t, "ns", snap.Namespace)
	assert.Len(t, snap.Entries, 2)
	assert.Contains(t, snap.Entries, "gone")
	assert.Nil(t, snap.Entries["gone"])
	assert.NotContains(t, snap.Entries, "garbage")
}

func TestSnapshotFromObject_NoStatus(t *testing.T) {
	u := &unstructured.Unstructured{}
	u.SetName("default")
	snap := SnapshotFromObject(u)
	assert.Empty(t, snap.Entries)
}
