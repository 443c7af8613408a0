package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/Ramsey-B/bramble/pkg/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx)
	if err != nil {
		log.Fatalf("failed to initialize: %v", err)
	}

	if err := a.Run(ctx); err != nil {
		log.Fatalf("exited with error: %v", err)
	}
}
