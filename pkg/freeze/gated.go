package freeze

import (
	"context"
	"time"

	"go.uber.org/zap"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"
)

// DefaultFrozenRequeue is how long a frozen request is parked before it is retried.
const DefaultFrozenRequeue = 30 * time.Second

// GatedReconciler skips the wrapped reconciler while the gate is ON and
// requeues the request so it is handled once the freeze is lifted.
type GatedReconciler struct {
	Inner   reconcile.Reconciler
	Gate    *Gate
	Log     *zap.SugaredLogger
	Requeue time.Duration
}

// Reconcile implements reconcile.Reconciler.
func (r *GatedReconciler) Reconcile(ctx context.Context, req reconcile.Request) (reconcile.Result, error) {
	if r.Gate != nil && r.Gate.IsOn() {
		requeue := r.Requeue
		if requeue <= 0 {
			requeue = DefaultFrozenRequeue
		}
		if r.Log != nil {
			r.Log.Debugw("Operations are frozen, postponing request", "request", req.String(), "requeueAfter", requeue.String())
		}
		return reconcile.Result{RequeueAfter: requeue}, nil
	}
	return r.Inner.Reconcile(ctx, req)
}
