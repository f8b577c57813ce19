package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/telekom/k8s-peering/pkg/config"
	"github.com/telekom/k8s-peering/pkg/freeze"
	"github.com/telekom/k8s-peering/pkg/peering"
	"github.com/telekom/k8s-peering/pkg/version"
)

var testNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

type nopSync struct{}

func (nopSync) Apply(context.Context, ...*peering.Lease) error { return nil }

func peerEntry(priority int, lastseen time.Time) map[string]interface{} {
	return map[string]interface{}{
		"priority": int64(priority),
		"lastseen": lastseen.Format(time.RFC3339Nano),
		"lifetime": int64(60),
	}
}

func newTestArbitrator(t *testing.T) (*peering.Arbitrator, *freeze.Gate) {
	t.Helper()
	clk := clocktesting.NewFakeClock(testNow)
	self, err := peering.NewLease("A", "default", "", peering.WithPriority(5), peering.WithClock(clk))
	require.NoError(t, err)
	gate := freeze.NewGate()
	target := &peering.Target{Name: "default", GVK: peering.ClusterPeeringGVK}
	return peering.NewArbitrator(self, target, gate, nopSync{}, zap.NewNop().Sugar(), peering.WithArbitrationClock(clk)), gate
}

func getView(t *testing.T, s *Server) PeeringView {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/peering", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var view PeeringView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	return view
}

func TestGetPeering_Standalone(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := NewServer(zaptest.NewLogger(t), config.Config{}, true, nil, freeze.NewGate())

	view := getView(t, s)
	assert.True(t, view.Standalone)
	assert.False(t, view.Frozen)
	assert.Nil(t, view.Self)
	assert.Empty(t, view.Peers)
}

func TestGetPeering_BeforeFirstRound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	arb, gate := newTestArbitrator(t)
	s := NewServer(zaptest.NewLogger(t), config.Config{}, true, arb, gate)

	view := getView(t, s)
	assert.False(t, view.Standalone)
	assert.Equal(t, "default", view.Peering)
	assert.Equal(t, "ClusterPeering", view.Kind)
	require.NotNil(t, view.Self)
	assert.Equal(t, SelfView{ID: "A", Priority: 5}, *view.Self)
	assert.Empty(t, view.Reason)
	assert.Empty(t, view.Peers)
}

func TestGetPeering_ReportsLastDecision(t *testing.T) {
	gin.SetMode(gin.TestMode)
	arb, gate := newTestArbitrator(t)
	_, err := arb.Handle(context.Background(), &peering.Snapshot{Name: "default", Entries: map[string]map[string]interface{}{
		"A":   peerEntry(5, testNow),
		"B":   peerEntry(10, testNow),
		"C":   peerEntry(1, testNow),
		"old": peerEntry(20, testNow.Add(-time.Hour)),
	}})
	require.NoError(t, err)
	s := NewServer(zaptest.NewLogger(t), config.Config{}, true, arb, gate)

	view := getView(t, s)
	assert.True(t, view.Frozen)
	assert.Equal(t, string(peering.ReasonHigherPriority), view.Reason)

	roles := map[string]string{}
	for _, p := range view.Peers {
		roles[p.ID] = p.Role
	}
	assert.Equal(t, map[string]string{"A": RoleSelf, "B": RoleHigher, "C": RoleLower, "old": RoleDead}, roles)
}

func TestGetBuildInfo(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := NewServer(zaptest.NewLogger(t), config.Config{}, true, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/debug/buildinfo", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var info version.BuildInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, version.Version, info.Version)
}

func TestRequestCorrelationID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := NewServer(zaptest.NewLogger(t), config.Config{}, true, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/peering", nil)
	req.Header.Set(CorrelationIDHeader, "cid-123")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, "cid-123", w.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/api/peering", nil)
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Len(t, w.Header().Get("X-Request-ID"), 36, "a uuid is generated when none is sent")
}

func TestServer_StartStopsOnCancel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	s := NewServer(zaptest.NewLogger(t), config.Config{Server: config.Server{ListenAddress: addr}}, true, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/api/peering")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}
