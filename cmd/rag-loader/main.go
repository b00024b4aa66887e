package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/andrew/rag-loader/pkg/cli"
	"github.com/andrew/rag-loader/pkg/logging"
)

func main() {
	// Cancel in-flight requests on Ctrl+C
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		stop()
		logging.Fatal(err)
	}
}
