package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// SignalError is the cancellation cause of a ShutdownContext stopped by a
// process signal.
type SignalError struct {
	Signal os.Signal
}

func (e *SignalError) Error() string {
	return fmt.Sprintf("received %s", e.Signal)
}

// ShutdownContext returns a context cancelled on the first SIGINT or SIGTERM.
// The signal is logged and recorded as the context's cause; see StoppedBy.
func ShutdownContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	ctx, cancel := watchSignals(parent, logger, sigs)
	return ctx, func() {
		cancel()
		signal.Stop(sigs)
	}
}

func watchSignals(parent context.Context, logger *slog.Logger, sigs <-chan os.Signal) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(parent)
	go func() {
		select {
		case sig := <-sigs:
			logger.Info("shutdown requested", "signal", sig.String())
			cancel(&SignalError{Signal: sig})
		case <-ctx.Done():
		}
	}()
	return ctx, func() { cancel(context.Canceled) }
}

// StoppedBy reports the signal that cancelled ctx, or nil when it ended any
// other way.
func StoppedBy(ctx context.Context) os.Signal {
	var se *SignalError
	if errors.As(context.Cause(ctx), &se) {
		return se.Signal
	}
	return nil
}
