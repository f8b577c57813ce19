package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/telekom/k8s-peering/pkg/peerctl/output"
	"github.com/telekom/k8s-peering/pkg/version"
)

func NewVersionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show peerctl version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.GetBuildInfo()

			// Get runtime if available (for custom writer), but don't fail if missing
			rt, _ := getRuntime(cmd)
			writer := cmd.OutOrStdout()
			format := ""
			if rt != nil {
				writer = rt.Writer()
				format = rt.outputFormat
			}

			switch output.Format(format) {
			case output.FormatJSON, output.FormatYAML:
				return output.WriteObject(writer, output.Format(format), info)
			default:
				_, _ = fmt.Fprintf(writer, "peerctl %s (commit: %s, built: %s)\n", info.Version, info.GitCommit, info.BuildDate)
				return nil
			}
		},
	}

	return cmd
}
