// Package cmd implements the peerctl command tree: manual freezes and resumes
// of peering controllers, listing of peering objects and version output.
package cmd
