package freeze

import (
	"context"
	"sync"
)

// Gate is an awaitable on/off flag. Waiters are woken only on genuine
// transitions; setting the current state again is a no-op. Reads never block.
type Gate struct {
	mu      sync.Mutex
	on      bool
	changed chan struct{}
}

// NewGate returns a gate in the OFF state.
func NewGate() *Gate {
	return &Gate{changed: make(chan struct{})}
}

// Set moves the gate to the given state and reports whether this was a transition.
func (g *Gate) Set(on bool) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.on == on {
		return false
	}
	g.on = on
	close(g.changed)
	g.changed = make(chan struct{})
	return true
}

// TurnOn is Set(true).
func (g *Gate) TurnOn() bool { return g.Set(true) }

// TurnOff is Set(false).
func (g *Gate) TurnOff() bool { return g.Set(false) }

// IsOn reports the current state.
func (g *Gate) IsOn() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.on
}

// IsOff reports the opposite of IsOn.
func (g *Gate) IsOff() bool { return !g.IsOn() }

// Changed returns a channel closed at the next transition.
func (g *Gate) Changed() <-chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.changed
}

// WaitFor blocks until the gate is in the requested state or ctx is done.
func (g *Gate) WaitFor(ctx context.Context, on bool) error {
	for {
		g.mu.Lock()
		state, changed := g.on, g.changed
		g.mu.Unlock()
		if state == on {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}
