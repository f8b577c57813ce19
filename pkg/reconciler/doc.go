// Package reconciler sets up the controller-runtime manager of the peering
// controller, wires the peering arbitration controller for the resolved
// peering object and runs the keep-alive next to the manager.
//
// Reconcilers that must pause while a peer outranks this instance are
// registered through Peering.Gated:
//
//	p, err := reconciler.Setup(ctx, mgr, opts, log)
//	...
//	err = ctrl.NewControllerManagedBy(mgr).
//		For(&corev1.ConfigMap{}).
//		Complete(p.Gated(&MyReconciler{Client: mgr.GetClient()}, log))
package reconciler
