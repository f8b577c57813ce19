// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package peering

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"k8s.io/utils/clock"

	"github.com/telekom/k8s-peering/pkg/metrics"
	"github.com/telekom/k8s-peering/pkg/utils"
)

const (
	// renewalMargin is subtracted from the lifetime so a renewal completes
	// before the lease expires even with a slow write.
	renewalMargin = 10 * time.Second
	// minRenewalInterval keeps a misconfigured tiny lifetime from spinning.
	minRenewalInterval = time.Second
	// DefaultCleanupTimeout bounds the deregistration write on shutdown.
	DefaultCleanupTimeout = 10 * time.Second
)

// Keepalive periodically renews the own lease and deregisters it on shutdown.
type Keepalive struct {
	Self      *Lease
	Directory Synchronizer
	Log       *zap.SugaredLogger
	// Force aborts the deregistration when cancelled. It stands for the second,
	// forced stop signal; the first one only cancels the context given to Run.
	Force          context.Context
	CleanupTimeout time.Duration
	Clock          clock.Clock
	Retry          utils.RetryConfig
}

// NewKeepalive returns a keepalive for the own lease with default settings.
func NewKeepalive(self *Lease, dir Synchronizer, log *zap.SugaredLogger) *Keepalive {
	return &Keepalive{
		Self:           self,
		Directory:      dir,
		Log:            log,
		Force:          context.Background(),
		CleanupTimeout: DefaultCleanupTimeout,
		Clock:          clock.RealClock{},
		Retry:          utils.DefaultRetryConfig(),
	}
}

// Interval is the pause between two renewals: the lifetime minus a safety
// margin, but never less than a second.
func (k *Keepalive) Interval() time.Duration {
	interval := (k.Self.Lifetime - renewalMargin).Truncate(time.Second)
	if interval < minRenewalInterval {
		return minRenewalInterval
	}
	return interval
}

// Start runs the keepalive until ctx is cancelled and marks wg done afterwards.
func Start(ctx context.Context, wg *sync.WaitGroup, k *Keepalive) {
	defer wg.Done()
	k.Run(ctx)
}

// Run renews the lease until ctx is cancelled, then publishes a zero-lifetime
// lease exactly once so peers see the departure immediately.
func (k *Keepalive) Run(ctx context.Context) {
	log := k.Log.With("peering", k.Self.Name, "id", k.Self.ID)
	log.Infow("Starting peering keep-alive", "priority", k.Self.Priority, "lifetime", k.Self.Lifetime.String())

	backoff := utils.NewBackoff(k.Retry)
	for {
		log.Debugw("Peering keep-alive update", "priority", k.Self.Priority)
		k.Self.Touch()
		delay := k.Interval()
		if err := k.Directory.Apply(ctx, k.Self); err != nil {
			if ctx.Err() != nil {
				break
			}
			metrics.KeepaliveWrites.WithLabelValues(k.Self.Name, "failure").Inc()
			if retry := backoff.Next(); retry < delay {
				delay = retry
			}
			log.Warnw("Peering keep-alive failed", "error", err, "retryIn", delay.String())
		} else {
			backoff.Reset()
			metrics.KeepaliveWrites.WithLabelValues(k.Self.Name, "success").Inc()
			metrics.KeepaliveLastSuccess.WithLabelValues(k.Self.Name).Set(float64(k.Clock.Now().Unix()))
		}

		if !k.sleep(ctx, delay) {
			break
		}
	}

	k.disappear(log)
}

// sleep waits for the delay and reports false if ctx was cancelled first.
func (k *Keepalive) sleep(ctx context.Context, delay time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-k.Clock.After(delay):
		return true
	}
}

// disappear deregisters the lease. It does not observe the context that
// stopped the loop, only the Force context and the cleanup timeout.
func (k *Keepalive) disappear(log *zap.SugaredLogger) {
	force := k.Force
	if force == nil {
		force = context.Background()
	}
	timeout := k.CleanupTimeout
	if timeout <= 0 {
		timeout = DefaultCleanupTimeout
	}
	ctx, cancel := context.WithTimeout(force, timeout)
	defer cancel()

	k.Self.TouchWithLifetime(0)
	if err := k.Directory.Apply(ctx, k.Self); err != nil {
		if force.Err() != nil {
			log.Warnw("Peering deregistration abandoned by forced shutdown")
			return
		}
		log.Errorw("Couldn't remove self from the peering; ignoring", "error", err)
		return
	}
	log.Infow("Removed self from the peering")
}
