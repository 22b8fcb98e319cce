package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// setupSignalHandler sets up signal handling for graceful shutdown.
// Returns a channel that will be closed when a shutdown signal is received.
func setupSignalHandler() <-chan struct{} {
	shutdown := make(chan struct{})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan

		fmt.Fprintf(os.Stderr, "\nReceived signal: %v\n", sig)

		// Close the shutdown channel to notify all listeners
		close(shutdown)

		// Stop receiving signals so a second signal kills immediately
		signal.Stop(sigChan)

		fmt.Fprintf(os.Stderr, "Initiating graceful shutdown...\n")
	}()

	return shutdown
}
