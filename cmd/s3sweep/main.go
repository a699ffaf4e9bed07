package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"s3sweep/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "s3sweep: %v\n", err)
		os.Exit(1)
	}
}
