// Package config loads the optional YAML configuration file of the peering
// controller and provides defaults for every peering setting.
package config
