package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"sigs.k8s.io/controller-runtime/pkg/client"

	peeringv1alpha1 "github.com/telekom/k8s-peering/api/v1alpha1"
	"github.com/telekom/k8s-peering/pkg/peering"
)

// peeringFlags select the peering object a command works on.
type peeringFlags struct {
	name      string
	namespace string
}

func (f *peeringFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "peering", peeringv1alpha1.DefaultPeeringName, "Name of the peering object")
	cmd.Flags().StringVarP(&f.namespace, "namespace", "n", "", "Namespace of a namespaced peering; empty for a cluster peering")
}

// resolve finds the peering object; a missing object is an error.
func (f *peeringFlags) resolve(ctx context.Context, rt *runtimeState) (client.Client, *peering.Target, error) {
	c, err := rt.Client()
	if err != nil {
		return nil, nil, err
	}
	target, err := peering.ResolveTarget(ctx, c, peering.TargetOptions{Name: f.name, Namespace: f.namespace}, rt.log)
	if err != nil {
		return nil, nil, err
	}
	if target == nil {
		return nil, nil, fmt.Errorf("%w: no peering name given", peering.ErrPeeringNotFound)
	}
	return c, target, nil
}
