package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/telekom/k8s-peering/pkg/peering"
)

func NewResumeCommand() *cobra.Command {
	var (
		target peeringFlags
		id     string
	)

	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Lift a freeze created with peerctl freeze",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if id == "" {
				id = peering.DetectManualID()
			}

			c, t, err := target.resolve(cmd.Context(), rt)
			if err != nil {
				return err
			}
			// A zero lifetime expires the lease at once, which removes the entry.
			lease, err := peering.NewLease(id, t.Name, t.Namespace,
				peering.WithLifetime(0),
				peering.WithClock(rt.clock))
			if err != nil {
				return err
			}
			if err := peering.NewDirectory(c, t).Apply(cmd.Context(), lease); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(rt.Writer(), "Resumed peering %s: removed %s\n", t.Key(), id)
			rt.log.Infow("Peering resumed", "peering", t.Name, "id", id)
			return nil
		},
	}

	target.register(cmd)
	cmd.Flags().StringVar(&id, "id", "", "Identity of the freeze entry (default: user@host)")

	return cmd
}
