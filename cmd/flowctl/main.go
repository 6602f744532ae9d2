// flowctl is a command line client for the Flow Graph Engine compute
// service: upload inputs, submit jobs, poll them, fetch results.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	// Ctrl-C cancels in-flight polls and downloads instead of killing
	// the process mid-write
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := Execute(ctx); err != nil {
		os.Exit(1)
	}
}
