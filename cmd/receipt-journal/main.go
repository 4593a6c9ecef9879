// Package main is the entry point for receipt-journal CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/shunichi-ikebuchi/receipt-journal/cmd/receipt-journal/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
