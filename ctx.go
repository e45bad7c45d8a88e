package beacon

import (
	"context"
	"os"
	"os/signal"
)

// WithSigHandler returns ctx and arranges for cancel to be called on an
// interrupt signal, so manual cancellation and scan timeout converge on the
// same teardown path.
func WithSigHandler(ctx context.Context, cancel func()) context.Context {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		select {
		case <-c:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(c)
	}()
	return ctx
}
