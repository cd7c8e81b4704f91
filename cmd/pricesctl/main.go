package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
)

func init() { _ = godotenv.Load() }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	closeService()
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", redCross, err)
		os.Exit(1)
	}
}
