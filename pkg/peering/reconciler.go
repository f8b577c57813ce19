// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package peering

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/client-go/util/workqueue"
	"k8s.io/utils/clock"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/builder"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller"
	"sigs.k8s.io/controller-runtime/pkg/predicate"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	"github.com/telekom/k8s-peering/pkg/system"
)

// PeeringReconciler feeds peering object notifications into the Arbitrator.
type PeeringReconciler struct {
	client.Client
	Arbitrator *Arbitrator
	Log        *zap.SugaredLogger
	Clock      clock.PassiveClock
}

// NewPeeringReconciler wires a reconciler for the arbitrator's target.
func NewPeeringReconciler(c client.Client, a *Arbitrator, log *zap.SugaredLogger) *PeeringReconciler {
	return &PeeringReconciler{Client: c, Arbitrator: a, Log: log, Clock: clock.RealClock{}}
}

// Reconcile handles create/update events of the peering object.
func (r *PeeringReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	target := r.Arbitrator.Target()
	if !target.Matches(req.Name, req.Namespace) {
		return reconcile.Result{}, nil
	}
	log := r.Log.With(system.NamespacedFields(req.Name, req.Namespace)...)

	obj := target.NewObject()
	if err := r.Get(ctx, req.NamespacedName, obj); err != nil {
		if apierrors.IsNotFound(err) {
			log.Warnw("Peering object is gone; keeping the current freeze state")
			return reconcile.Result{}, nil
		}
		log.Errorw("Failed to get peering object", "error", err)
		return reconcile.Result{}, err
	}

	decision, err := r.Arbitrator.Handle(ctx, SnapshotFromObject(obj))
	if err != nil {
		log.Errorw("Peering arbitration failed", "error", err)
		return reconcile.Result{}, err
	}
	if decision == nil {
		return reconcile.Result{}, nil
	}
	if after := r.nextExpiry(decision); after > 0 {
		return reconcile.Result{RequeueAfter: after}, nil
	}
	return reconcile.Result{}, nil
}

// nextExpiry returns the time until the nearest deadline of a competing peer,
// so a peer that stops renewing silently is noticed without another write.
func (r *PeeringReconciler) nextExpiry(d *Decision) time.Duration {
	now := r.Clock.Now()
	var next time.Duration
	for _, group := range [][]*Lease{d.Higher, d.Same} {
		for _, p := range group {
			left := p.Deadline().Sub(now)
			if left <= 0 {
				continue
			}
			if next == 0 || left < next {
				next = left
			}
		}
	}
	if next > 0 {
		next += time.Second
	}
	return next
}

// SetupWithManager watches only the resolved peering object.
func (r *PeeringReconciler) SetupWithManager(mgr ctrl.Manager) error {
	target := r.Arbitrator.Target()
	obj := &unstructured.Unstructured{}
	obj.SetGroupVersionKind(target.GVK)

	onlyTarget := predicate.NewPredicateFuncs(func(o client.Object) bool {
		return target.Matches(o.GetName(), o.GetNamespace())
	})

	return ctrl.NewControllerManagedBy(mgr).
		Named("peering").
		For(obj, builder.WithPredicates(onlyTarget)).
		WithOptions(controller.Options{
			MaxConcurrentReconciles: 1,
			RateLimiter: workqueue.NewTypedMaxOfRateLimiter(
				workqueue.NewTypedItemExponentialFailureRateLimiter[reconcile.Request](500*time.Millisecond, 30*time.Second),
				&workqueue.TypedBucketRateLimiter[reconcile.Request]{Limiter: rate.NewLimiter(rate.Limit(5), 20)},
			),
		}).
		Complete(r)
}
