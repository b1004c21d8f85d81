package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// main hands off to the cobra command tree. Business logic lives in
// internal services packages; this package only wires them together.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
