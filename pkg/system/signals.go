package system

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// SetupSignalContexts returns two contexts for a graceful two-phase shutdown.
// The first SIGINT or SIGTERM cancels ctx and asks components to stop and
// clean up. A second signal cancels force, which aborts any cleanup still in
// flight.
func SetupSignalContexts() (ctx context.Context, force context.Context) {
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	return contextsFromSignals(ch)
}

func contextsFromSignals(ch <-chan os.Signal) (context.Context, context.Context) {
	ctx, cancel := context.WithCancel(context.Background())
	force, forceCancel := context.WithCancel(context.Background())
	go func() {
		<-ch
		cancel()
		<-ch
		forceCancel()
	}()
	return ctx, force
}
