package cmd

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/telekom/k8s-peering/pkg/peerctl/output"
	"github.com/telekom/k8s-peering/pkg/peering"
)

func NewListCommand() *cobra.Command {
	var target peeringFlags

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the peers of a peering object",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			format, err := output.ParseFormat(rt.outputFormat)
			if err != nil {
				return err
			}

			c, t, err := target.resolve(cmd.Context(), rt)
			if err != nil {
				return err
			}
			snap, err := peering.NewDirectory(c, t).Read(cmd.Context())
			if err != nil {
				return err
			}

			rows := peerRows(snap, rt)
			if format == output.FormatTable {
				output.WritePeerTable(rt.Writer(), rows)
				return nil
			}
			return output.WriteObject(rt.Writer(), format, rows)
		},
	}

	target.register(cmd)
	return cmd
}

// peerRows converts a snapshot into rows ordered by priority, highest first.
func peerRows(snap *peering.Snapshot, rt *runtimeState) []output.PeerRow {
	rows := make([]output.PeerRow, 0, len(snap.Entries))
	for id, fields := range snap.Entries {
		if fields == nil {
			continue
		}
		lease, err := peering.LeaseFromStatus(id, snap.Name, fields, rt.clock)
		if err != nil {
			rt.log.Warnw("Malformed peer record", "id", id, "error", err)
			rows = append(rows, output.PeerRow{ID: id, State: output.StateInvalid})
			continue
		}
		state := output.StateAlive
		if lease.IsDead() {
			state = output.StateDead
		}
		rows = append(rows, output.PeerRow{
			ID:        lease.ID,
			Namespace: lease.Namespace,
			Priority:  lease.Priority,
			LastSeen:  lease.LastSeen,
			Lifetime:  int64(lease.Lifetime.Seconds()),
			State:     state,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Priority != rows[j].Priority {
			return rows[i].Priority > rows[j].Priority
		}
		return rows[i].ID < rows[j].ID
	})
	return rows
}
