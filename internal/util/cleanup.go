package util

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// InterruptContext returns a context cancelled on the first SIGINT/SIGTERM so
// that running checks can stop and flush what they have. A second signal
// exits immediately.
func InterruptContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	stop := make(chan struct{})

	sig := make(chan os.Signal, 2)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sig)

		select {
		case <-sig:
		case <-stop:
			return
		}

		fmt.Fprintln(os.Stderr, "\nInterrupt received. Writing partial results...")
		cancel()

		select {
		case <-sig:
			fmt.Fprintln(os.Stderr, "\nExiting due to interrupt.")
			os.Exit(1)
		case <-stop:
		}
	}()

	var once sync.Once
	return ctx, func() {
		once.Do(func() { close(stop) })
		cancel()
	}
}

// RemoveIfEmpty deletes dir when it has no entries.
func RemoveIfEmpty(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	if len(entries) == 0 {
		_ = os.Remove(dir)
	}
}
