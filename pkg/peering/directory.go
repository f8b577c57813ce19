// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package peering

import (
	"context"
	"encoding/json"
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// Snapshot is the content of a peering object at one point in time.
// A nil entry is a tombstone.
type Snapshot struct {
	Name      string
	Namespace string
	Entries   map[string]map[string]interface{}
}

// SnapshotFromObject extracts the peer entries from a peering object.
// Entries that are neither objects nor null are ignored.
func SnapshotFromObject(u *unstructured.Unstructured) *Snapshot {
	snap := &Snapshot{
		Name:      u.GetName(),
		Namespace: u.GetNamespace(),
		Entries:   map[string]map[string]interface{}{},
	}
	status, _ := u.Object["status"].(map[string]interface{})
	for id, raw := range status {
		switch v := raw.(type) {
		case nil:
			snap.Entries[id] = nil
		case map[string]interface{}:
			snap.Entries[id] = v
		}
	}
	return snap
}

// Synchronizer publishes leases into the shared peering object.
type Synchronizer interface {
	Apply(ctx context.Context, leases ...*Lease) error
}

// Directory reads and partially updates one peering object.
type Directory struct {
	client client.Client
	target *Target
}

// NewDirectory returns a directory bound to the resolved target.
func NewDirectory(c client.Client, target *Target) *Directory {
	return &Directory{client: c, target: target}
}

// Apply stores alive leases and tombstones dead ones in a single merge patch.
// Only the keys of the given leases are touched, so concurrent writers of
// other keys never conflict. Write errors are returned to the caller.
func (d *Directory) Apply(ctx context.Context, leases ...*Lease) error {
	if len(leases) == 0 {
		return nil
	}
	data, err := buildPatch(leases)
	if err != nil {
		return err
	}
	obj := d.target.NewObject()
	if err := d.client.Patch(ctx, obj, client.RawPatch(types.MergePatchType, data)); err != nil {
		return fmt.Errorf("failed to patch %s %s: %w", d.target.GVK.Kind, d.target.Key(), err)
	}
	return nil
}

// Read fetches the current snapshot of the peering object.
func (d *Directory) Read(ctx context.Context) (*Snapshot, error) {
	obj := d.target.NewObject()
	if err := d.client.Get(ctx, d.target.Key(), obj); err != nil {
		return nil, fmt.Errorf("failed to read %s %s: %w", d.target.GVK.Kind, d.target.Key(), err)
	}
	return SnapshotFromObject(obj), nil
}

func buildPatch(leases []*Lease) ([]byte, error) {
	entries := make(map[string]interface{}, len(leases))
	for _, l := range leases {
		if l.IsDead() {
			entries[l.ID] = nil
		} else {
			entries[l.ID] = l.Status()
		}
	}
	data, err := json.Marshal(map[string]interface{}{"status": entries})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal peering patch: %w", err)
	}
	return data, nil
}
