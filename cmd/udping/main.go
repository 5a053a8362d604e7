package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pedramktb/go-udping/internal/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	code := cli.Run(ctx, cancel)
	cancel()
	os.Exit(code)
}
