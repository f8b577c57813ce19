// Package utils provides shared utility functions for the peering controller,
// including Kubernetes scheme creation and retry backoff helpers.
package utils
