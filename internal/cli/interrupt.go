package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const runTimeout = 3 * time.Hour

type canceller interface {
	Cancel()
}

// withInterrupts makes the first interrupt call c.Cancel, which stops the run
// after its current step and keeps finished work. A second interrupt cancels
// the returned context.
func withInterrupts(parent context.Context, errOut io.Writer, c canceller) (context.Context, func()) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, runTimeout)

	sig := make(chan os.Signal, 2)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		interrupts := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-sig:
				interrupts++
				if interrupts == 1 {
					fmt.Fprintln(errOut, "\nCancelling after the current step. Press Ctrl+C again to abort.")
					c.Cancel()
					continue
				}
				cancel()
				return
			}
		}
	}()

	return ctx, func() {
		signal.Stop(sig)
		cancel()
	}
}
