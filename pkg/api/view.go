package api

import (
	"time"

	"github.com/telekom/k8s-peering/pkg/freeze"
	"github.com/telekom/k8s-peering/pkg/peering"
)

// Peer roles as seen by this instance.
const (
	RoleSelf   = "self"
	RoleHigher = "higher"
	RoleSame   = "same"
	RoleLower  = "lower"
	RoleDead   = "dead"
)

// SelfView identifies the running instance.
type SelfView struct {
	ID       string `json:"id"`
	Priority int    `json:"priority"`
}

// PeerView is one record of the last arbitration round.
type PeerView struct {
	ID        string    `json:"id"`
	Namespace string    `json:"namespace,omitempty"`
	Priority  int       `json:"priority"`
	LastSeen  time.Time `json:"lastSeen"`
	Lifetime  int64     `json:"lifetimeSeconds"`
	Deadline  time.Time `json:"deadline"`
	Role      string    `json:"role"`
}

// PeeringView is the response of GET /api/peering.
type PeeringView struct {
	Standalone bool       `json:"standalone"`
	Peering    string     `json:"peering,omitempty"`
	Namespace  string     `json:"namespace,omitempty"`
	Kind       string     `json:"kind,omitempty"`
	Deprecated bool       `json:"deprecated,omitempty"`
	Self       *SelfView  `json:"self,omitempty"`
	Frozen     bool       `json:"frozen"`
	Reason     string     `json:"reason,omitempty"`
	Peers      []PeerView `json:"peers"`
}

// NewPeeringView reports the state of the given arbitrator; a nil arbitrator
// means the instance runs standalone.
func NewPeeringView(arbitrator *peering.Arbitrator, gate *freeze.Gate) PeeringView {
	view := PeeringView{Peers: []PeerView{}}
	if gate != nil {
		view.Frozen = gate.IsOn()
	}
	if arbitrator == nil {
		view.Standalone = true
		return view
	}

	target := arbitrator.Target()
	self := arbitrator.Self()
	view.Peering = target.Name
	view.Namespace = target.ObjectNamespace
	view.Kind = target.GVK.Kind
	view.Deprecated = target.Deprecated
	view.Self = &SelfView{ID: self.ID, Priority: self.Priority}

	d := arbitrator.Last()
	if d == nil {
		return view
	}
	view.Reason = string(d.Reason)

	roles := map[*peering.Lease]string{}
	for _, group := range []struct {
		role   string
		leases []*peering.Lease
	}{
		{RoleDead, d.Dead},
		{RoleHigher, d.Higher},
		{RoleSame, d.Same},
	} {
		for _, l := range group.leases {
			roles[l] = group.role
		}
	}
	for _, p := range d.Peers {
		role, ok := roles[p]
		switch {
		case ok:
		case p.ID == self.ID:
			role = RoleSelf
		default:
			role = RoleLower
		}
		view.Peers = append(view.Peers, PeerView{
			ID:        p.ID,
			Namespace: p.Namespace,
			Priority:  p.Priority,
			LastSeen:  p.LastSeen,
			Lifetime:  int64(p.Lifetime / time.Second),
			Deadline:  p.Deadline(),
			Role:      role,
		})
	}
	return view
}
