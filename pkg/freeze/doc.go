// Package freeze provides the process-local freeze gate that suspends
// protected work while a competing controller instance is active, and a
// controller-runtime reconciler wrapper that honors it.
package freeze
