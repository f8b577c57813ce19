// Package cli defines the flag configuration of the peering controller binary,
// with environment variable fallbacks for every peering, metrics, health probe
// and status API setting.
package cli
