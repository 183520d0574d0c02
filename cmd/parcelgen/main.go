package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/kanengo/parcelgen/internal/tool"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := tool.NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
