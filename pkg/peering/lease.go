// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package peering

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"k8s.io/utils/clock"
	"k8s.io/utils/ptr"

	peeringv1alpha1 "github.com/telekom/k8s-peering/api/v1alpha1"
)

const (
	// DefaultLifetime is the lease lifetime used when none is configured.
	DefaultLifetime = 60 * time.Second
	// DevPriority is the priority used by the --dev flags, high enough to
	// freeze every regularly deployed instance.
	DevPriority = 666
)

// ErrEmptyID is returned when a lease is constructed without an id.
var ErrEmptyID = errors.New("peer id must not be empty")

// isoLayouts are tried in order when parsing lastseen values. Zone-less
// values are written by older peers and are interpreted as UTC.
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// Lease is one instance's liveness claim in a peering object.
// Deadline and IsDead are derived from LastSeen and Lifetime on every call.
type Lease struct {
	ID        string
	Name      string
	Namespace string
	Priority  int
	LastSeen  time.Time
	Lifetime  time.Duration

	clock clock.PassiveClock
}

// LeaseOption customizes a lease at construction time.
type LeaseOption func(*Lease) error

// WithPriority sets the lease priority.
func WithPriority(priority int) LeaseOption {
	return func(l *Lease) error {
		l.Priority = priority
		return nil
	}
}

// WithLifetime sets the lease lifetime.
func WithLifetime(lifetime time.Duration) LeaseOption {
	return func(l *Lease) error {
		if lifetime < 0 {
			return fmt.Errorf("negative lifetime %s", lifetime)
		}
		l.Lifetime = lifetime
		return nil
	}
}

// WithLastSeen sets the last keep-alive instant, normalized to UTC.
func WithLastSeen(t time.Time) LeaseOption {
	return func(l *Lease) error {
		l.LastSeen = t.UTC()
		return nil
	}
}

// WithLastSeenString parses an ISO-8601 timestamp as the last keep-alive instant.
func WithLastSeenString(value string) LeaseOption {
	return func(l *Lease) error {
		t, err := parseLastSeen(value)
		if err != nil {
			return err
		}
		l.LastSeen = t
		return nil
	}
}

// WithClock replaces the clock used for lastseen defaults and liveness checks.
func WithClock(clk clock.PassiveClock) LeaseOption {
	return func(l *Lease) error {
		l.clock = clk
		return nil
	}
}

// NewLease creates a lease with priority 0, the default lifetime and lastseen
// set to now unless overridden by options.
func NewLease(id, name, namespace string, opts ...LeaseOption) (*Lease, error) {
	if id == "" {
		return nil, ErrEmptyID
	}
	l := &Lease{
		ID:        id,
		Name:      name,
		Namespace: namespace,
		Lifetime:  DefaultLifetime,
		clock:     clock.RealClock{},
	}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, fmt.Errorf("invalid lease %q: %w", id, err)
		}
	}
	if l.LastSeen.IsZero() {
		l.LastSeen = l.clock.Now().UTC()
	}
	return l, nil
}

// Deadline is the instant the lease expires.
func (l *Lease) Deadline() time.Time {
	return l.LastSeen.Add(l.Lifetime)
}

// IsDead reports whether the deadline has been reached at the time of the call.
func (l *Lease) IsDead() bool {
	return !l.clock.Now().Before(l.Deadline())
}

// Touch renews the lease: lastseen becomes now, the lifetime is kept.
func (l *Lease) Touch() {
	l.LastSeen = l.clock.Now().UTC()
}

// TouchWithLifetime renews the lease and replaces its lifetime.
// A zero lifetime expires the lease immediately.
func (l *Lease) TouchWithLifetime(lifetime time.Duration) {
	l.Touch()
	l.Lifetime = lifetime
}

// Status serializes the non-identifying fields of the lease.
func (l *Lease) Status() *peeringv1alpha1.PeerStatus {
	var ns *string
	if l.Namespace != "" {
		ns = ptr.To(l.Namespace)
	}
	return &peeringv1alpha1.PeerStatus{
		Namespace: ns,
		Priority:  l.Priority,
		LastSeen:  l.LastSeen.UTC().Format(time.RFC3339Nano),
		Lifetime:  int64(l.Lifetime / time.Second),
	}
}

func (l *Lease) String() string {
	return fmt.Sprintf("%s(namespace=%q, priority=%d, lastseen=%s, lifetime=%s)",
		l.ID, l.Namespace, l.Priority, l.LastSeen.Format(time.RFC3339), l.Lifetime)
}

// LeaseFromStatus reconstructs a lease from one loosely typed status entry.
// Only namespace, priority, lastseen and lifetime are read; unrecognized
// fields are dropped.
func LeaseFromStatus(id, name string, fields map[string]interface{}, clk clock.PassiveClock) (*Lease, error) {
	opts := []LeaseOption{WithClock(clk)}
	namespace, _ := fields["namespace"].(string)

	if v, ok := fields["priority"]; ok && v != nil {
		priority, err := toInt64(v)
		if err != nil {
			return nil, fmt.Errorf("peer %q: priority: %w", id, err)
		}
		opts = append(opts, WithPriority(int(priority)))
	}
	if v, ok := fields["lifetime"]; ok && v != nil {
		seconds, err := toInt64(v)
		if err != nil {
			return nil, fmt.Errorf("peer %q: lifetime: %w", id, err)
		}
		opts = append(opts, WithLifetime(time.Duration(seconds)*time.Second))
	}
	if v, ok := fields["lastseen"].(string); ok && v != "" {
		opts = append(opts, WithLastSeenString(v))
	}
	return NewLease(id, name, namespace, opts...)
}

func parseLastSeen(value string) (time.Time, error) {
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable lastseen %q", value)
}

func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		return int64(n), nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, err
		}
		return int64(f), nil
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}
