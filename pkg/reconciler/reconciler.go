package reconciler

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/rest"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	"github.com/telekom/k8s-peering/pkg/cli"
	"github.com/telekom/k8s-peering/pkg/config"
	"github.com/telekom/k8s-peering/pkg/freeze"
	"github.com/telekom/k8s-peering/pkg/peering"
)

// ErrFrozen is reported by the readiness check while the gate is ON.
var ErrFrozen = errors.New("operations are frozen by a peering")

func NewManager(
	restCfg *rest.Config,
	scheme *runtime.Scheme,
	metricsAddr string,
	metricsSecure bool,
	metricsCertPath string,
	metricsCertName string,
	metricsCertKey string,
	probeAddr string,
	enableHTTP2 bool,
	log *zap.SugaredLogger,
) (ctrl.Manager, error) {
	tlsOpts := []func(*tls.Config){}
	if !enableHTTP2 {
		tlsOpts = append(tlsOpts, cli.DisableHTTP2)
	}

	metricsServerOptions := metricsserver.Options{
		BindAddress:   metricsAddr,
		SecureServing: metricsSecure,
		TLSOpts:       tlsOpts,
	}

	if len(metricsCertPath) > 0 {
		log.Infow("Initializing metrics certificate watcher using provided certificates",
			"metrics-cert-path", metricsCertPath, "metrics-cert-name", metricsCertName,
			"metrics-cert-key", metricsCertKey)
		metricsServerOptions.CertDir = metricsCertPath
		metricsServerOptions.CertName = metricsCertName
		metricsServerOptions.KeyName = metricsCertKey
	}

	// Peering replaces leader election: every instance runs, lower priorities freeze.
	return ctrl.NewManager(restCfg, ctrl.Options{
		Scheme:                 scheme,
		Metrics:                metricsServerOptions,
		HealthProbeBindAddress: probeAddr,
		WebhookServer:          nil,
		LeaderElection:         false,
	})
}

// Options configures the peering of one controller process.
type Options struct {
	Peering  config.Peering
	Identity string
	// Force is cancelled by the second stop signal and aborts deregistration.
	Force context.Context
	// Reader resolves the peering target; defaults to the manager's API reader.
	Reader client.Reader
}

// Peering is the wired peering of a controller process. Target, Arbitrator
// and Keepalive are nil in standalone mode; the gate then stays OFF.
type Peering struct {
	Target        *peering.Target
	Gate          *freeze.Gate
	Arbitrator    *peering.Arbitrator
	Keepalive     *peering.Keepalive
	FrozenRequeue time.Duration
}

// Standalone reports whether the process runs without peering.
func (p *Peering) Standalone() bool {
	return p.Target == nil
}

// Gated wraps a reconciler so it only does work while the process is not frozen.
func (p *Peering) Gated(inner reconcile.Reconciler, log *zap.SugaredLogger) reconcile.Reconciler {
	return &freeze.GatedReconciler{Inner: inner, Gate: p.Gate, Log: log, Requeue: p.FrozenRequeue}
}

// Setup registers health checks, resolves the peering target and registers
// the peering controller for it. Nothing is started.
func Setup(ctx context.Context, mgr ctrl.Manager, opts Options, log *zap.SugaredLogger) (*Peering, error) {
	gate := freeze.NewGate()

	// Register health check handlers for liveness and readiness probes
	if err := mgr.AddHealthzCheck("ping", healthz.Ping); err != nil {
		return nil, fmt.Errorf("failed to add healthz check to reconciler manager: %w", err)
	}
	if err := mgr.AddReadyzCheck("ping", healthz.Ping); err != nil {
		return nil, fmt.Errorf("failed to add readyz check to reconciler manager: %w", err)
	}
	if err := mgr.AddReadyzCheck("peering", FreezeCheck(gate)); err != nil {
		return nil, fmt.Errorf("failed to add peering readyz check to reconciler manager: %w", err)
	}
	log.Info("Health check handlers registered")

	p := &Peering{Gate: gate, FrozenRequeue: opts.Peering.FrozenRequeueDuration()}

	reader := opts.Reader
	if reader == nil {
		reader = mgr.GetAPIReader()
	}
	target, err := peering.ResolveTarget(ctx, reader, peering.TargetOptions{
		Standalone: opts.Peering.Standalone,
		Name:       opts.Peering.Name,
		Namespace:  opts.Peering.Namespace,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve peering: %w", err)
	}
	if target == nil {
		return p, nil
	}
	p.Target = target

	self, err := peering.NewLease(opts.Identity, target.Name, target.Namespace,
		peering.WithPriority(opts.Peering.Priority),
		peering.WithLifetime(opts.Peering.LifetimeDuration()))
	if err != nil {
		return nil, fmt.Errorf("failed to create own peering lease: %w", err)
	}

	dir := peering.NewDirectory(mgr.GetClient(), target)
	p.Arbitrator = peering.NewArbitrator(self, target, gate, dir, log,
		peering.WithAutoclean(opts.Peering.AutocleanEnabled()))

	log.Debugw("Setting up peering reconciler", "peering", target.Name, "kind", target.GVK.Kind)
	if err := peering.NewPeeringReconciler(mgr.GetClient(), p.Arbitrator, log).SetupWithManager(mgr); err != nil {
		return nil, fmt.Errorf("failed to setup peering reconciler with manager: %w", err)
	}

	p.Keepalive = peering.NewKeepalive(self, dir, log)
	if opts.Force != nil {
		p.Keepalive.Force = opts.Force
	}
	p.Keepalive.CleanupTimeout = opts.Peering.CleanupTimeoutDuration()

	log.Infow("Successfully registered peering reconciler",
		"peering", target.Name, "kind", target.GVK.Kind, "id", self.ID, "priority", self.Priority)
	return p, nil
}

// Run starts the keep-alive and the manager and blocks until both are done.
// The own lease is removed from the peering after the manager has stopped.
func Run(ctx context.Context, mgr ctrl.Manager, p *Peering, log *zap.SugaredLogger) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	if p.Keepalive != nil {
		wg.Add(1)
		go peering.Start(runCtx, &wg, p.Keepalive)
	}

	log.Infow("Starting controller-runtime reconciler manager (no leader election at manager level)")
	err := mgr.Start(runCtx)
	// A manager that fails on its own must still stop the keep-alive.
	cancel()
	wg.Wait()
	if err != nil {
		return fmt.Errorf("controller-runtime reconciler manager exited: %w", err)
	}
	return nil
}

// FreezeCheck fails readiness while the gate is ON.
func FreezeCheck(gate *freeze.Gate) healthz.Checker {
	return func(_ *http.Request) error {
		if gate.IsOn() {
			return ErrFrozen
		}
		return nil
	}
}
