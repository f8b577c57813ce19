package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/telekom/k8s-peering/pkg/peering"
)

// DefaultFreezePriority outranks regular deployments, which run with priority 0.
const DefaultFreezePriority = 100

func NewFreezeCommand() *cobra.Command {
	var (
		target   peeringFlags
		id       string
		message  string
		priority int
		dev      bool
		lifetime int64
	)

	cmd := &cobra.Command{
		Use:   "freeze",
		Short: "Freeze all peering controllers with a lower priority",
		Long: "Publishes a lease with the given priority for the given lifetime. " +
			"Controllers with a lower priority suspend their work until the lease expires or is resumed.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if lifetime <= 0 {
				return errors.New("--lifetime must be a positive number of seconds")
			}
			if dev {
				priority = peering.DevPriority
			}
			if id == "" {
				id = peering.DetectManualID()
			}

			c, t, err := target.resolve(cmd.Context(), rt)
			if err != nil {
				return err
			}
			lease, err := peering.NewLease(id, t.Name, t.Namespace,
				peering.WithPriority(priority),
				peering.WithLifetime(time.Duration(lifetime)*time.Second),
				peering.WithClock(rt.clock))
			if err != nil {
				return err
			}
			if err := peering.NewDirectory(c, t).Apply(cmd.Context(), lease); err != nil {
				return err
			}

			w := rt.Writer()
			_, _ = fmt.Fprintf(w, "Freezing peering %s as %s with priority %d until %s\n",
				t.Key(), id, priority, lease.Deadline().UTC().Format(time.RFC3339))
			if message != "" {
				_, _ = fmt.Fprintf(w, "Message: %s\n", message)
			}
			rt.log.Infow("Peering frozen", "peering", t.Name, "id", id, "priority", priority, "lifetime", lifetime, "message", message)
			return nil
		},
	}

	target.register(cmd)
	cmd.Flags().StringVar(&id, "id", "", "Identity of the freeze entry (default: user@host)")
	cmd.Flags().StringVarP(&message, "message", "m", "", "Reason for the freeze, shown in the output")
	cmd.Flags().IntVar(&priority, "priority", DefaultFreezePriority, "Priority of the freeze")
	cmd.Flags().BoolVar(&dev, "dev", false, fmt.Sprintf("Use the development priority %d", peering.DevPriority))
	cmd.Flags().Int64Var(&lifetime, "lifetime", 0, "How long the freeze lasts, in seconds")
	_ = cmd.MarkFlagRequired("lifetime")
	cmd.MarkFlagsMutuallyExclusive("priority", "dev")

	return cmd
}
