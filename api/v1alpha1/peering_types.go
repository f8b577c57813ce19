/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// DefaultPeeringName is the name of the peering object probed when no explicit
// peering name is configured.
const DefaultPeeringName = "default"

// PeerStatus is the published keep-alive record of one controller instance.
// The instance id is the key in the peering status map and is never repeated here.
type PeerStatus struct {
	// Namespace the instance is restricted to, or null for cluster-wide instances.
	// +optional
	// +nullable
	Namespace *string `json:"namespace"`

	// Priority of the instance. Instances with a lower priority freeze while a
	// higher-priority instance is alive.
	Priority int `json:"priority"`

	// LastSeen is the ISO-8601 UTC timestamp of the last keep-alive.
	LastSeen string `json:"lastseen"`

	// Lifetime is the number of seconds after LastSeen the record stays valid.
	// +kubebuilder:validation:Minimum=0
	Lifetime int64 `json:"lifetime"`
}

// PeeringStatus maps instance ids to their keep-alive records.
// A null value is a tombstone for a departed instance.
type PeeringStatus map[string]*PeerStatus

// +kubebuilder:object:root=true
// +kubebuilder:resource:scope=Cluster,shortName=cpeer
// +kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`
// ClusterPeering is the shared keep-alive directory for cluster-wide controller instances.
type ClusterPeering struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	// +kubebuilder:pruning:PreserveUnknownFields
	// +optional
	Status PeeringStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// ClusterPeeringList contains a list of ClusterPeering
type ClusterPeeringList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []ClusterPeering `json:"items"`
}

// +kubebuilder:object:root=true
// +kubebuilder:resource:scope=Namespaced,shortName=peer
// +kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`
// Peering is the shared keep-alive directory for namespace-restricted controller instances.
type Peering struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	// +kubebuilder:pruning:PreserveUnknownFields
	// +optional
	Status PeeringStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// PeeringList contains a list of Peering
type PeeringList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []Peering `json:"items"`
}

func init() {
	SchemeBuilder.Register(&ClusterPeering{}, &ClusterPeeringList{}, &Peering{}, &PeeringList{})
}
