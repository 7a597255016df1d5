package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/EdinaldoPedro/emissor-nfse-mobile/internal/cli"
)

// set with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, version)
	stop()
	os.Exit(code)
}
