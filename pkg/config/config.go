package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	// DefaultPath is used when no config path is given.
	DefaultPath = "./config.yaml"
	// DefaultStatusListenAddress is where the status API listens unless configured.
	DefaultStatusListenAddress = ":8084"
	// DefaultLifetime is the lease lifetime used when none is configured.
	DefaultLifetime = 60 * time.Second
	// DefaultCleanupTimeout bounds the deregistration write on shutdown.
	DefaultCleanupTimeout = 10 * time.Second
	// DefaultFrozenRequeue is how long frozen requests are parked.
	DefaultFrozenRequeue = 30 * time.Second
)

type Server struct {
	ListenAddress  string   `yaml:"listenAddress"`
	TrustedProxies []string `yaml:"trustedProxies"` // IPs/CIDRS to trust for X-Forwarded-For headers
}

// Peering configures how this instance takes part in a peering.
type Peering struct {
	// Name of the peering object. Empty means the default peering, which is
	// optional: the instance runs standalone when it does not exist.
	Name string `yaml:"name"`
	// Namespace the instance serves; empty for cluster-wide operation.
	Namespace  string `yaml:"namespace"`
	Standalone bool   `yaml:"standalone"`
	Priority   int    `yaml:"priority"`
	// Lifetime, CleanupTimeout and FrozenRequeue are Go durations, e.g. "60s".
	Lifetime       string `yaml:"lifetime"`
	Autoclean      *bool  `yaml:"autoclean"`
	CleanupTimeout string `yaml:"cleanupTimeout"`
	FrozenRequeue  string `yaml:"frozenRequeue"`
}

type Config struct {
	Server  Server  `yaml:"server"`
	Peering Peering `yaml:"peering"`
}

// Load loads the configuration from a file path.
// If configPath is empty, defaults to "./config.yaml".
func Load(configPath ...string) (Config, error) {
	path := DefaultPath
	if len(configPath) > 0 && configPath[0] != "" {
		path = configPath[0]
	}

	var config Config

	content, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("trying to open peering config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(content, &config); err != nil {
		return config, fmt.Errorf("error unmarshaling YAML %s: %w", path, err)
	}
	return config, nil
}

// LoadOptional is Load, except that a missing file yields an empty config.
func LoadOptional(configPath string) (Config, error) {
	cfg, err := Load(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return Config{}, nil
	}
	return cfg, err
}

// Defaults fills every unset field with its default value.
func (c *Config) Defaults() {
	if c.Server.ListenAddress == "" {
		c.Server.ListenAddress = DefaultStatusListenAddress
	}
	if c.Peering.Lifetime == "" {
		c.Peering.Lifetime = DefaultLifetime.String()
	}
	if c.Peering.Autoclean == nil {
		autoclean := true
		c.Peering.Autoclean = &autoclean
	}
	if c.Peering.CleanupTimeout == "" {
		c.Peering.CleanupTimeout = DefaultCleanupTimeout.String()
	}
	if c.Peering.FrozenRequeue == "" {
		c.Peering.FrozenRequeue = DefaultFrozenRequeue.String()
	}
}

// Validate checks the duration fields. It expects Defaults to have run.
func (c *Config) Validate() error {
	var errs []error
	for name, value := range map[string]string{
		"peering.lifetime":       c.Peering.Lifetime,
		"peering.cleanupTimeout": c.Peering.CleanupTimeout,
		"peering.frozenRequeue":  c.Peering.FrozenRequeue,
	} {
		d, err := time.ParseDuration(value)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s %q: %w", name, value, err))
			continue
		}
		if d < 0 {
			errs = append(errs, fmt.Errorf("invalid %s %q: must not be negative", name, value))
			continue
		}
		if name == "peering.lifetime" {
			if err := ValidateLifetime(d); err != nil {
				errs = append(errs, fmt.Errorf("invalid %s %q: %w", name, value, err))
			}
		}
	}
	return errors.Join(errs...)
}

// ValidateLifetime checks that a lease lifetime survives publication, which
// carries whole seconds only.
func ValidateLifetime(d time.Duration) error {
	if d < time.Second {
		return errors.New("must be at least 1s")
	}
	if d%time.Second != 0 {
		return errors.New("must be a whole number of seconds")
	}
	return nil
}

// LifetimeDuration returns the parsed lease lifetime.
func (p Peering) LifetimeDuration() time.Duration {
	return parseOr(p.Lifetime, DefaultLifetime)
}

// CleanupTimeoutDuration returns the parsed deregistration timeout.
func (p Peering) CleanupTimeoutDuration() time.Duration {
	return parseOr(p.CleanupTimeout, DefaultCleanupTimeout)
}

// FrozenRequeueDuration returns the parsed requeue delay for frozen requests.
func (p Peering) FrozenRequeueDuration() time.Duration {
	return parseOr(p.FrozenRequeue, DefaultFrozenRequeue)
}

// AutocleanEnabled reports whether dead peers are removed; true when unset.
func (p Peering) AutocleanEnabled() bool {
	return p.Autoclean == nil || *p.Autoclean
}

func parseOr(value string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(value); err == nil && d >= 0 {
		return d
	}
	return def
}
