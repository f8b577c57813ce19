package cmd

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"k8s.io/utils/clock"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/telekom/k8s-peering/pkg/system"
)

// ClientFactory builds the Kubernetes client for a kubeconfig path and context.
type ClientFactory func(kubeconfig, kubeContext string) (client.Client, error)

type Config struct {
	OutputWriter io.Writer
	NewClient    ClientFactory
	Clock        clock.PassiveClock
}

type runtimeState struct {
	kubeconfig   string
	kubeContext  string
	outputFormat string
	verbose      bool
	writer       io.Writer
	newClient    ClientFactory
	clock        clock.PassiveClock
	log          *zap.SugaredLogger
}

type runtimeKey struct{}

func DefaultConfig() Config {
	return Config{
		OutputWriter: os.Stdout,
		NewClient:    NewClient,
		Clock:        clock.RealClock{},
	}
}

func NewRootCommand(cfg Config) *cobra.Command {
	rt := &runtimeState{writer: cfg.OutputWriter, newClient: cfg.NewClient, clock: cfg.Clock}

	root := &cobra.Command{
		Use:           "peerctl",
		Short:         "Freeze, resume and inspect peering controllers",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if rt.writer == nil {
				rt.writer = os.Stdout
			}
			if rt.newClient == nil {
				rt.newClient = NewClient
			}
			if rt.clock == nil {
				rt.clock = clock.RealClock{}
			}
			if rt.kubeContext == "" {
				rt.kubeContext = os.Getenv("PEERCTL_CONTEXT")
			}
			if rt.outputFormat == "" {
				rt.outputFormat = os.Getenv("PEERCTL_OUTPUT")
			}
			if !rt.verbose {
				rt.verbose = strings.EqualFold(os.Getenv("PEERCTL_VERBOSE"), "true")
			}

			rt.log = zap.NewNop().Sugar()
			if rt.verbose {
				logger, err := system.NewLogger(true)
				if err != nil {
					return err
				}
				rt.log = logger.Sugar()
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&rt.kubeconfig, "kubeconfig", "", "Path to the kubeconfig file")
	root.PersistentFlags().StringVar(&rt.kubeContext, "context", "", "Kubeconfig context to use")
	root.PersistentFlags().StringVarP(&rt.outputFormat, "output", "o", "", "Output format: table, json, yaml")
	root.PersistentFlags().BoolVarP(&rt.verbose, "verbose", "v", false, "Enable verbose logging")

	root.SetContext(context.WithValue(context.Background(), runtimeKey{}, rt))

	root.AddCommand(
		NewFreezeCommand(),
		NewResumeCommand(),
		NewListCommand(),
		NewCompletionCommand(),
		NewVersionCommand(),
	)

	return root
}

func getRuntime(cmd *cobra.Command) (*runtimeState, error) {
	rt, ok := cmd.Context().Value(runtimeKey{}).(*runtimeState)
	if !ok || rt == nil {
		return nil, errors.New("runtime not initialized")
	}
	return rt, nil
}

func (rt *runtimeState) Writer() io.Writer {
	if rt.writer != nil {
		return rt.writer
	}
	return os.Stdout
}

func (rt *runtimeState) Client() (client.Client, error) {
	return rt.newClient(rt.kubeconfig, rt.kubeContext)
}
