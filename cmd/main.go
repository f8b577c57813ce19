package main

import (
	stdlog "log"

	"github.com/go-logr/zapr"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/telekom/k8s-peering/pkg/api"
	"github.com/telekom/k8s-peering/pkg/cli"
	"github.com/telekom/k8s-peering/pkg/config"
	"github.com/telekom/k8s-peering/pkg/peering"
	"github.com/telekom/k8s-peering/pkg/reconciler"
	"github.com/telekom/k8s-peering/pkg/system"
	"github.com/telekom/k8s-peering/pkg/utils"
	"github.com/telekom/k8s-peering/pkg/version"
)

func main() {
	cliConfig := cli.Parse()

	zl, err := system.NewLogger(cliConfig.Debug)
	if err != nil {
		stdlog.Fatal(err)
	}
	// Ensure controller-runtime uses our zap logger to avoid its default stacktrace output
	ctrl.SetLogger(zapr.NewLogger(zl))

	log := zl.Sugar()
	log.With("version", version.Version).Info("Starting peering controller")
	cliConfig.Print(log)

	cfg, err := buildConfig(cliConfig)
	if err != nil {
		log.Fatalf("Error loading config for peering controller: %v", err)
	}

	// First signal stops the controller, a second one abandons the cleanup.
	ctx, force := system.SetupSignalContexts()

	scheme, err := utils.CreateScheme()
	if err != nil {
		log.Fatalw("Failed to create scheme", "error", err)
	}
	mgr, err := reconciler.NewManager(
		ctrl.GetConfigOrDie(),
		scheme,
		cliConfig.MetricsAddr,
		cliConfig.MetricsSecure,
		cliConfig.MetricsCertPath,
		cliConfig.MetricsCertName,
		cliConfig.MetricsCertKey,
		cliConfig.ProbeAddr,
		cliConfig.EnableHTTP2,
		log,
	)
	if err != nil {
		log.Fatalw("Failed to create controller-runtime manager", "error", err)
	}

	p, err := reconciler.Setup(ctx, mgr, reconciler.Options{
		Peering:  cfg.Peering,
		Identity: peering.DetectOwnID(),
		Force:    force,
	}, log)
	if err != nil {
		log.Fatalw("Failed to set up peering", "error", err)
	}

	if cfg.Server.ListenAddress != "0" {
		server := api.NewServer(zl, cfg, cliConfig.Debug, p.Arbitrator, p.Gate)
		go func() {
			if err := server.Start(ctx); err != nil {
				log.Errorw("Peering status API stopped with error", "error", err)
			}
		}()
	}

	if err := reconciler.Run(ctx, mgr, p, log); err != nil {
		log.Fatalw("Peering controller failed", "error", err)
	}
	log.Info("Peering controller stopped")
}

// buildConfig merges the optional config file with explicitly set flags.
func buildConfig(c *cli.Config) (config.Config, error) {
	cfg, err := config.LoadOptional(c.ConfigPath)
	if err != nil {
		return cfg, err
	}
	c.Apply(&cfg)
	cfg.Defaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
