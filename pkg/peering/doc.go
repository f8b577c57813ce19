// Package peering implements keep-alive based coordination between controller
// instances that share a cluster. Every instance publishes a time-bounded
// lease into a shared peering object and freezes its own work while a peer
// with a higher or equal priority is alive.
//
// WARNING: there are no per-object locks between the instances. The protocol
// is advisory and only guarantees convergence of the freeze decision on top of
// an eventually consistent directory. Only one instance with the highest
// priority should be running per cluster.
package peering
