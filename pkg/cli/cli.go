package cli

import (
	"crypto/tls"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/telekom/k8s-peering/pkg/config"
	"github.com/telekom/k8s-peering/pkg/peering"
)

type Config struct {
	// Application flags
	Debug bool

	// Peering flags
	Standalone       bool
	PeeringName      string
	Namespace        string
	Priority         int
	Dev              bool
	PeeringLifetime  string
	PeeringAutoclean bool

	// Metrics server flags
	MetricsAddr     string
	MetricsSecure   bool
	MetricsCertPath string
	MetricsCertName string
	MetricsCertKey  string

	// Health probe flags
	ProbeAddr string

	// Status API flags
	StatusAddr  string
	EnableHTTP2 bool

	// Configuration flags
	ConfigPath string

	// explicit holds the flags given on the command line or through their
	// environment variable; only those override the config file.
	explicit map[string]bool
}

// Parse parses the process arguments. It exits on invalid flags.
func Parse() *Config {
	cfg, err := ParseArgs(flag.CommandLine, os.Args[1:])
	if err != nil {
		// flag.CommandLine exits on its own; this covers validation errors.
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	return cfg
}

// ParseArgs registers the controller flags on fs and parses args.
func ParseArgs(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg := &Config{explicit: map[string]bool{}}
	env := func(name, key string) string {
		if _, ok := os.LookupEnv(key); ok {
			cfg.explicit[name] = true
		}
		return key
	}

	// Define command-line flags with environment variable fallbacks.
	// The pattern: fs.XxxVar(&variable, "flag-name", defaultValueOrEnvValue, "help text")
	fs.BoolVar(&cfg.Debug, "debug", getEnvBool("DEBUG", false), "Enable debug level logging")

	// Peering configuration
	fs.BoolVar(&cfg.Standalone, "standalone", getEnvBool(env("standalone", "PEERING_STANDALONE"), false),
		"Run without peering; never freeze")
	fs.StringVar(&cfg.PeeringName, "peering", getEnvString(env("peering", "PEERING_NAME"), ""),
		"Name of the peering object. If empty, the default peering is used when it exists")
	fs.StringVar(&cfg.Namespace, "namespace", getEnvString(env("namespace", "PEERING_NAMESPACE"), ""),
		"Namespace this instance serves; uses a namespaced Peering instead of a ClusterPeering")
	fs.IntVar(&cfg.Priority, "priority", getEnvInt(env("priority", "PEERING_PRIORITY"), 0),
		"Priority of this instance; higher priorities freeze lower ones")
	fs.BoolVar(&cfg.Dev, "dev", getEnvBool(env("dev", "PEERING_DEV"), false),
		fmt.Sprintf("Development mode: run with priority %d to take over from deployed instances", peering.DevPriority))
	fs.StringVar(&cfg.PeeringLifetime, "peering-lifetime", getEnvString(env("peering-lifetime", "PEERING_LIFETIME"), config.DefaultLifetime.String()),
		"Lifetime of the own lease (e.g., '60s'); renewed ahead of expiry")
	fs.BoolVar(&cfg.PeeringAutoclean, "peering-autoclean", getEnvBool(env("peering-autoclean", "PEERING_AUTOCLEAN"), true),
		"Remove expired peers from the peering object")

	// Metrics server configuration
	fs.StringVar(&cfg.MetricsAddr, "metrics-bind-address", getEnvString("METRICS_BIND_ADDRESS", "0.0.0.0:8081"),
		"The address the metrics endpoint binds to. "+
			"Use :8443 for HTTPS or :8081 for HTTP, or leave as 0 to disable the metrics service")
	fs.BoolVar(&cfg.MetricsSecure, "metrics-secure", getEnvBool("METRICS_SECURE", false),
		"If set, the metrics endpoint is served securely via HTTPS. Use --metrics-secure=false to use HTTP instead")
	fs.StringVar(&cfg.MetricsCertPath, "metrics-cert-path", getEnvString("METRICS_CERT_PATH", ""),
		"The directory that contains the metrics server certificate")
	fs.StringVar(&cfg.MetricsCertName, "metrics-cert-name", getEnvString("METRICS_CERT_NAME", "tls.crt"),
		"The name of the metrics server certificate file")
	fs.StringVar(&cfg.MetricsCertKey, "metrics-cert-key", getEnvString("METRICS_CERT_KEY", "tls.key"),
		"The name of the metrics server key file")

	// Health probe configuration
	fs.StringVar(&cfg.ProbeAddr, "health-probe-bind-address", getEnvString("PROBE_BIND_ADDRESS", ":8082"),
		"The address the probe endpoint binds to")

	// Status API configuration
	fs.StringVar(&cfg.StatusAddr, "status-bind-address", getEnvString(env("status-bind-address", "STATUS_BIND_ADDRESS"), config.DefaultStatusListenAddress),
		"The address the peering status API binds to, or 0 to disable it")
	fs.BoolVar(&cfg.EnableHTTP2, "enable-http2", getEnvBool("ENABLE_HTTP2", false),
		"If set, HTTP/2 will be enabled for the metrics server")

	fs.StringVar(&cfg.ConfigPath, "config-path", getEnvString("PEERING_CONFIG_PATH", config.DefaultPath),
		"Path to the optional peering configuration file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) { cfg.explicit[f.Name] = true })

	if cfg.Standalone && cfg.PeeringName != "" {
		return nil, fmt.Errorf("--standalone and --peering are mutually exclusive")
	}
	lifetime, err := parseDuration("peering-lifetime", cfg.PeeringLifetime, config.DefaultLifetime)
	if err != nil {
		return nil, err
	}
	if err := config.ValidateLifetime(lifetime); err != nil {
		return nil, fmt.Errorf("invalid peering-lifetime %q: %w", cfg.PeeringLifetime, err)
	}
	return cfg, nil
}

// IsSet reports whether a flag was given explicitly, either on the command
// line or through its environment variable.
func (c *Config) IsSet(name string) bool {
	return c.explicit[name]
}

// EffectivePriority is the priority the instance runs with.
func (c *Config) EffectivePriority() int {
	if c.Dev {
		return peering.DevPriority
	}
	return c.Priority
}

// Apply overlays the explicitly set flags onto the file configuration.
// Flags win over the file; the file wins over flag defaults.
func (c *Config) Apply(cfg *config.Config) {
	if c.IsSet("standalone") {
		cfg.Peering.Standalone = c.Standalone
	}
	if c.IsSet("peering") {
		cfg.Peering.Name = c.PeeringName
		cfg.Peering.Standalone = false
	}
	if c.IsSet("namespace") {
		cfg.Peering.Namespace = c.Namespace
	}
	if c.IsSet("priority") || c.IsSet("dev") {
		cfg.Peering.Priority = c.EffectivePriority()
	}
	if c.IsSet("peering-lifetime") {
		cfg.Peering.Lifetime = c.PeeringLifetime
	}
	if c.IsSet("peering-autoclean") {
		autoclean := c.PeeringAutoclean
		cfg.Peering.Autoclean = &autoclean
	}
	if c.IsSet("status-bind-address") {
		cfg.Server.ListenAddress = c.StatusAddr
	}
}

func (c *Config) Print(log *zap.SugaredLogger) {
	log.Infow("CLI Configuration",
		// Debug and logging
		"debug", c.Debug,
		// Peering
		"standalone", c.Standalone,
		"peering", c.PeeringName,
		"namespace", c.Namespace,
		"priority", c.EffectivePriority(),
		"dev", c.Dev,
		"peering_lifetime", c.PeeringLifetime,
		"peering_autoclean", c.PeeringAutoclean,
		// Metrics server configuration
		"metrics_bind_address", c.MetricsAddr,
		"metrics_secure", c.MetricsSecure,
		"metrics_cert_path", c.MetricsCertPath,
		// Health probe
		"health_probe_bind_address", c.ProbeAddr,
		// Status API
		"status_bind_address", c.StatusAddr,
		"enable_http2", c.EnableHTTP2,
		// Configuration paths
		"config_path", c.ConfigPath,
	)
}

// DisableHTTP2 is used to configure TLS options to disable HTTP/2.
// This is important because HTTP/2 has known vulnerabilities (CVE-2023-44487, CVE-2024-3156).
func DisableHTTP2(c *tls.Config) {
	c.NextProtos = []string{"http/1.1"}
}

func parseDuration(name, value string, def time.Duration) (time.Duration, error) {
	duration := def
	if value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			duration = d
		} else {
			return duration, fmt.Errorf("invalid %s %q: %w", name, value, err)
		}
	}

	return duration, nil
}

// getEnvString returns the value of an environment variable, or the provided default if not set.
func getEnvString(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

// getEnvBool returns the value of an environment variable as a bool, or the provided default if not set.
// Valid true values are "true", "1", "yes" (case-insensitive).
func getEnvBool(key string, defaultVal bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(val) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
	}
	return defaultVal
}

// getEnvInt returns the value of an environment variable as an int, or the provided default if not set or invalid.
func getEnvInt(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return n
		}
	}
	return defaultVal
}
