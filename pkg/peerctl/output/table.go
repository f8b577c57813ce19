package output

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"
)

// PeerRow is one entry of a peering object as shown by peerctl list.
type PeerRow struct {
	ID        string    `json:"id" yaml:"id"`
	Namespace string    `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Priority  int       `json:"priority" yaml:"priority"`
	LastSeen  time.Time `json:"lastSeen" yaml:"lastSeen"`
	Lifetime  int64     `json:"lifetimeSeconds" yaml:"lifetimeSeconds"`
	State     string    `json:"state" yaml:"state"`
}

// Peer states.
const (
	StateAlive   = "alive"
	StateDead    = "dead"
	StateInvalid = "invalid"
)

func WritePeerTable(w io.Writer, rows []PeerRow) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tNAMESPACE\tPRIORITY\tLASTSEEN\tLIFETIME\tSTATE")
	for _, r := range rows {
		namespace := r.Namespace
		if namespace == "" {
			namespace = "-"
		}
		lastSeen := "-"
		if !r.LastSeen.IsZero() {
			lastSeen = formatTime(r.LastSeen)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%ds\t%s\n", r.ID, namespace, r.Priority, lastSeen, r.Lifetime, r.State)
	}
	_ = tw.Flush()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
