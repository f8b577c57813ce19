package peering

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"
)

func TestNewLease_Defaults(t *testing.T) {
	clk := clocktesting.NewFakeClock(testNow)
	l, err := NewLease("a", "default", "", WithClock(clk))
	require.NoError(t, err)

	assert.Equal(t, 0, l.Priority)
	assert.Equal(t, DefaultLifetime, l.Lifetime)
	assert.Equal(t, testNow, l.LastSeen)
	assert.Equal(t, testNow.Add(60*time.Second), l.Deadline())
	assert.False(t, l.IsDead())
}

func TestNewLease_EmptyIDRejected(t *testing.T) {
	_, err := NewLease("", "default", "")
	require.ErrorIs(t, err, ErrEmptyID)
}

func TestNewLease_NegativeLifetimeRejected(t *testing.T) {
	_, err := NewLease("a", "default", "", WithLifetime(-time.Second))
	require.Error(t, err)
}

func TestLease_IsDeadEvaluatedAtCallTime(t *testing.T) {
	clk := clocktesting.NewFakeClock(testNow)
	l := mustLease(t, "a", clk)

	clk.Step(59 * time.Second)
	assert.False(t, l.IsDead(), "lease must be alive before its deadline")

	clk.Step(time.Second)
	assert.True(t, l.IsDead(), "lease must be dead exactly at its deadline")
}

func TestLease_TouchRenewsAndKeepsLifetime(t *testing.T) {
	clk := clocktesting.NewFakeClock(testNow)
	l := mustLease(t, "a", clk, WithLifetime(30*time.Second))

	clk.Step(45 * time.Second)
	require.True(t, l.IsDead())

	l.Touch()
	assert.Equal(t, testNow.Add(45*time.Second), l.LastSeen)
	assert.Equal(t, 30*time.Second, l.Lifetime)
	assert.Equal(t, testNow.Add(75*time.Second), l.Deadline())
	assert.False(t, l.IsDead())
}

func TestLease_TouchWithZeroLifetimeIsDeadImmediately(t *testing.T) {
	clk := clocktesting.NewFakeClock(testNow)
	l := mustLease(t, "a", clk)

	l.TouchWithLifetime(0)
	assert.Equal(t, time.Duration(0), l.Lifetime)
	assert.True(t, l.IsDead())
}

func TestWithLastSeenString_NormalizesToUTC(t *testing.T) {
	clk := clocktesting.NewFakeClock(testNow)
	tests := []struct {
		name  string
		value string
		want  time.Time
	}{
		{name: "utc", value: "2026-10-19T11:59:30Z", want: testNow.Add(-30 * time.Second)},
		{name: "offset", value: "2026-10-19T13:59:30+02:00", want: testNow.Add(-30 * time.Second)},
		{name: "zone-less", value: "2026-10-19T11:59:30.500000", want: testNow.Add(-29500 * time.Millisecond)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := mustLease(t, "a", clk, WithLastSeenString(tt.value))
			assert.True(t, tt.want.Equal(l.LastSeen), "got %s", l.LastSeen)
			assert.Equal(t, time.UTC, l.LastSeen.Location())
		})
	}
}

func TestWithLastSeenString_Invalid(t *testing.T) {
	_, err := NewLease("a", "default", "", WithLastSeenString("yesterday"))
	require.Error(t, err)
}

func TestLease_StatusOmitsIdentity(t *testing.T) {
	clk := clocktesting.NewFakeClock(testNow)
	l := mustLease(t, "a", clk, WithPriority(7), WithLifetime(90*time.Second))

	st := l.Status()
	assert.Nil(t, st.Namespace)
	assert.Equal(t, 7, st.Priority)
	assert.Equal(t, "2026-10-19T12:00:00Z", st.LastSeen)
	assert.Equal(t, int64(90), st.Lifetime)

	ns, err := NewLease("b", "default", "team-a", WithClock(clk))
	require.NoError(t, err)
	require.NotNil(t, ns.Status().Namespace)
	assert.Equal(t, "team-a", *ns.Status().Namespace)
}

func TestLeaseFromStatus(t *testing.T) {
	clk := clocktesting.NewFakeClock(testNow)

	t.Run("typed values", func(t *testing.T) {
		l, err := LeaseFromStatus("b", "default", entry(10, testNow, 60), clk)
		require.NoError(t, err)
		assert.Equal(t, "b", l.ID)
		assert.Equal(t, "default", l.Name)
		assert.Equal(t, 10, l.Priority)
		assert.Equal(t, 60*time.Second, l.Lifetime)
		assert.True(t, testNow.Equal(l.LastSeen))
	})

	t.Run("float lifetime and unknown fields", func(t *testing.T) {
		l, err := LeaseFromStatus("b", "default", map[string]interface{}{
			"namespace": "ns1",
			"priority":  float64(3),
			"lifetime":  float64(60),
			"lastseen":  "2026-10-19T12:00:00",
			"message":   "deploying v2",
		}, clk)
		require.NoError(t, err)
		assert.Equal(t, "ns1", l.Namespace)
		assert.Equal(t, 3, l.Priority)
		assert.Equal(t, 60*time.Second, l.Lifetime)
	})

	t.Run("missing fields fall back to defaults", func(t *testing.T) {
		l, err := LeaseFromStatus("b", "default", map[string]interface{}{}, clk)
		require.NoError(t, err)
		assert.Equal(t, 0, l.Priority)
		assert.Equal(t, DefaultLifetime, l.Lifetime)
		assert.Equal(t, testNow, l.LastSeen)
	})

	t.Run("invalid priority", func(t *testing.T) {
		_, err := LeaseFromStatus("b", "default", map[string]interface{}{"priority": true}, clk)
		require.Error(t, err)
	})

	t.Run("numeric string", func(t *testing.T) {
		l, err := LeaseFromStatus("b", "default", map[string]interface{}{"lifetime": "15"}, clk)
		require.NoError(t, err)
		assert.Equal(t, 15*time.Second, l.Lifetime)
	})
}
