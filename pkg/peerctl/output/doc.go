// Package output renders peerctl results as tables, JSON or YAML.
package output
