package util

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// ErrSignal is the cancellation cause of a context stopped by SetupSignalHandler
var ErrSignal = errors.New("shutdown signal received")

// SetupSignalHandler returns a context cancelled on SIGINT or SIGTERM. The
// cause names the signal, so context.Cause reports why in-flight work was
// interrupted. A second signal exits the process with status 1.
func SetupSignalHandler() context.Context {
	return notifyContext(context.Background(), os.Exit, syscall.SIGINT, syscall.SIGTERM)
}

func notifyContext(parent context.Context, exit func(int), signals ...os.Signal) context.Context {
	ctx, cancel := context.WithCancelCause(parent)

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, signals...)

	go func() {
		var sig os.Signal
		select {
		case sig = <-sigCh:
		case <-parent.Done():
			signal.Stop(sigCh)
			cancel(context.Cause(parent))
			return
		}

		slog.Info("received shutdown signal, draining", "signal", sig.String())
		cancel(fmt.Errorf("%w: %s", ErrSignal, sig))

		sig = <-sigCh
		slog.Warn("received second shutdown signal, forcing exit", "signal", sig.String())
		exit(1)
	}()

	return ctx
}
