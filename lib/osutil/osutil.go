package osutil

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// SignalContext returns a context that lives until SIGINT or SIGTERM.
func SignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		slog.Info("received signal, shutting down", "signal", sig.String())
		cancel()
	}()

	return ctx
}

// Fatal logs `err` under `message` and exits.
func Fatal(message string, err error) {
	slog.Error(message, "err", err)
	os.Exit(1)
}
