package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestFreezeMetricsExistAndIncrement(t *testing.T) {
	// Use a test label to avoid colliding with other tests
	lbl := "test-peering"

	FreezeActive.WithLabelValues(lbl).Set(1)
	if v := testutil.ToFloat64(FreezeActive.WithLabelValues(lbl)); v != 1 {
		t.Fatalf("expected FreezeActive == 1, got %v", v)
	}

	FreezeTransitions.WithLabelValues(lbl, "on").Inc()
	if v := testutil.ToFloat64(FreezeTransitions.WithLabelValues(lbl, "on")); v < 1 {
		t.Fatalf("expected FreezeTransitions >= 1, got %v", v)
	}

	PriorityConflicts.WithLabelValues(lbl).Add(2)
	if v := testutil.ToFloat64(PriorityConflicts.WithLabelValues(lbl)); v < 2 {
		t.Fatalf("expected PriorityConflicts >= 2, got %v", v)
	}
}

func TestKeepaliveWritesLabelCardinality(t *testing.T) {
	KeepaliveWrites.Reset()
	defer KeepaliveWrites.Reset()
	labels := []string{"default", "success"}
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("KeepaliveWrites panicked with labels %v: %v", labels, r)
		}
	}()

	KeepaliveWrites.WithLabelValues(labels...).Inc()
	if v := testutil.ToFloat64(KeepaliveWrites.WithLabelValues(labels...)); v != 1 {
		t.Fatalf("expected metric value 1 after increment, got %v", v)
	}
}

func TestPeersObservedGauge(t *testing.T) {
	PeersObserved.Reset()
	defer PeersObserved.Reset()

	PeersObserved.WithLabelValues("default", "dead").Set(3)
	PeersObserved.WithLabelValues("default", "dead").Set(1)
	if v := testutil.ToFloat64(PeersObserved.WithLabelValues("default", "dead")); v != 1 {
		t.Fatalf("expected gauge to hold last value 1, got %v", v)
	}
}
