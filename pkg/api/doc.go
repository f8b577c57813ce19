// Package api implements the Gin-based status server of the peering
// controller. It reports the own identity, the freeze state and the peers seen
// in the last arbitration round.
package api
