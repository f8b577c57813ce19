// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package peering

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"k8s.io/utils/clock"

	"github.com/telekom/k8s-peering/pkg/freeze"
	"github.com/telekom/k8s-peering/pkg/metrics"
)

// Reason explains an arbitration outcome.
type Reason string

const (
	// ReasonHigherPriority means a peer with a higher priority is alive.
	ReasonHigherPriority Reason = "higher-priority"
	// ReasonSamePriority means another peer with the same priority is alive.
	ReasonSamePriority Reason = "same-priority"
	// ReasonClear means no competing peer is alive.
	ReasonClear Reason = "clear"
)

// Decision is the outcome of one arbitration round.
type Decision struct {
	Reason Reason
	// Frozen is the gate state after the round.
	Frozen bool
	// Transitioned is true when the round changed the gate state.
	Transitioned bool
	Dead         []*Lease
	Higher       []*Lease
	Same         []*Lease
	// Peers holds every parsed record, including self.
	Peers []*Lease
}

// Arbitrator evaluates directory snapshots and drives the freeze gate.
// Every instance runs the same function on the same snapshot, so all of them
// converge to the same decision without talking to each other.
type Arbitrator struct {
	self      *Lease
	target    *Target
	gate      *freeze.Gate
	directory Synchronizer
	autoclean bool
	clock     clock.PassiveClock
	log       *zap.SugaredLogger

	mu   sync.RWMutex
	last *Decision
}

// ArbitratorOption customizes an Arbitrator.
type ArbitratorOption func(*Arbitrator)

// WithAutoclean enables removal of dead peers from the directory.
func WithAutoclean(enabled bool) ArbitratorOption {
	return func(a *Arbitrator) { a.autoclean = enabled }
}

// WithArbitrationClock replaces the clock used to evaluate peer liveness.
func WithArbitrationClock(clk clock.PassiveClock) ArbitratorOption {
	return func(a *Arbitrator) { a.clock = clk }
}

// NewArbitrator returns an arbitrator for the given self lease and target.
// Autoclean is enabled by default.
func NewArbitrator(self *Lease, target *Target, gate *freeze.Gate, dir Synchronizer, log *zap.SugaredLogger, opts ...ArbitratorOption) *Arbitrator {
	a := &Arbitrator{
		self:      self,
		target:    target,
		gate:      gate,
		directory: dir,
		autoclean: true,
		clock:     clock.RealClock{},
		log:       log,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handle processes one directory notification. Snapshots of other peering
// objects are ignored and yield a nil decision. Records are rebuilt from the
// snapshot on every call; nothing is carried over between calls. A failed
// prune is returned after the gate decision has been applied.
func (a *Arbitrator) Handle(ctx context.Context, snap *Snapshot) (*Decision, error) {
	if snap == nil || !a.target.Matches(snap.Name, snap.Namespace) {
		return nil, nil
	}
	log := a.log.With("peering", a.target.Name)

	d := &Decision{}
	for _, id := range sortedIDs(snap.Entries) {
		fields := snap.Entries[id]
		if fields == nil {
			continue
		}
		peer, err := LeaseFromStatus(id, snap.Name, fields, a.clock)
		if err != nil {
			log.Warnw("Ignoring malformed peer record", "id", id, "error", err)
			continue
		}
		d.Peers = append(d.Peers, peer)
		switch {
		case peer.IsDead():
			d.Dead = append(d.Dead, peer)
		case peer.Priority > a.self.Priority:
			d.Higher = append(d.Higher, peer)
		case peer.Priority == a.self.Priority && peer.ID != a.self.ID:
			d.Same = append(d.Same, peer)
		}
	}
	a.observe(d)

	var pruneErr error
	if a.autoclean && len(d.Dead) > 0 {
		log.Debugw("Removing dead peers", "peers", describe(d.Dead))
		if err := a.directory.Apply(ctx, d.Dead...); err != nil {
			pruneErr = fmt.Errorf("failed to remove dead peers: %w", err)
		} else {
			metrics.DeadPeersPruned.WithLabelValues(a.target.Name).Add(float64(len(d.Dead)))
		}
	}

	switch {
	case len(d.Higher) > 0:
		d.Reason = ReasonHigherPriority
		if a.gate.IsOff() {
			log.Infow("Freezing operations in favour of higher-priority peers", "peers", describe(d.Higher))
		}
		d.Transitioned = a.gate.TurnOn()
	case len(d.Same) > 0:
		d.Reason = ReasonSamePriority
		metrics.PriorityConflicts.WithLabelValues(a.target.Name).Inc()
		log.Warnw("Possibly conflicting operators with the same priority", "priority", a.self.Priority, "peers", describe(d.Same))
		log.Warnw("Freezing all operators, including self", "self", a.self.ID, "peers", describe(d.Peers))
		d.Transitioned = a.gate.TurnOn()
	default:
		d.Reason = ReasonClear
		if d.Transitioned = a.gate.TurnOff(); d.Transitioned {
			log.Infow("Resuming operations after the freeze; competing peers are gone")
		}
	}
	d.Frozen = a.gate.IsOn()

	metrics.ArbitrationDecisions.WithLabelValues(a.target.Name, string(d.Reason)).Inc()
	if d.Transitioned {
		state := "off"
		if d.Frozen {
			state = "on"
		}
		metrics.FreezeTransitions.WithLabelValues(a.target.Name, state).Inc()
	}
	if d.Frozen {
		metrics.FreezeActive.WithLabelValues(a.target.Name).Set(1)
	} else {
		metrics.FreezeActive.WithLabelValues(a.target.Name).Set(0)
	}

	a.mu.Lock()
	a.last = d
	a.mu.Unlock()
	return d, pruneErr
}

// Last returns the most recent decision, or nil before the first snapshot.
// It is kept for reporting only and never feeds back into arbitration.
func (a *Arbitrator) Last() *Decision {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.last
}

// Self returns the lease of the running instance.
func (a *Arbitrator) Self() *Lease { return a.self }

// Target returns the peering object the arbitrator watches.
func (a *Arbitrator) Target() *Target { return a.target }

// Gate returns the freeze gate driven by the arbitrator.
func (a *Arbitrator) Gate() *freeze.Gate { return a.gate }

func (a *Arbitrator) observe(d *Decision) {
	metrics.PeersObserved.WithLabelValues(a.target.Name, "dead").Set(float64(len(d.Dead)))
	metrics.PeersObserved.WithLabelValues(a.target.Name, "higher").Set(float64(len(d.Higher)))
	metrics.PeersObserved.WithLabelValues(a.target.Name, "same").Set(float64(len(d.Same)))
}

func describe(leases []*Lease) []string {
	out := make([]string, 0, len(leases))
	for _, l := range leases {
		out = append(out, l.String())
	}
	return out
}

func sortedIDs(entries map[string]map[string]interface{}) []string {
	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
