package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"bunkerprices-service/internal/application"
	"bunkerprices-service/internal/bootstrap"
	"bunkerprices-service/internal/config"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var ErrEphemeralStorage = errors.New("STORAGE=memory keeps history only inside this process; " +
	"point STORAGE at redis or pg, or pass --ephemeral to run anyway")

var (
	noColor   bool
	asJSON    bool
	ephemeral bool

	svc     *application.PricesService
	cleanup func()
)

var rootCmd = &cobra.Command{
	Use:   "pricesctl",
	Short: "Operator CLI for the bunker prices service",
	Long: `pricesctl talks to the same storage as the API and worker processes.
Run "pricesctl poll" from cron to drive polling without a resident worker.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			color.NoColor = true
		}
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable color output")
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false,
		"Allow history commands against in-process memory storage (results are lost on exit)")
}

// checkSharedStorage refuses history commands whose results would vanish with
// the process unless --ephemeral was given.
func checkSharedStorage(storage string, allow bool, warn io.Writer) error {
	if storage != "memory" && storage != "" {
		return nil
	}
	if !allow {
		return ErrEphemeralStorage
	}
	fmt.Fprintln(warn, color.YellowString("warning: STORAGE=memory, nothing written here outlives this command"))
	return nil
}

// historyService is service for commands that read or write price history.
func historyService(ctx context.Context) (*application.PricesService, error) {
	if err := checkSharedStorage(config.Load().Storage, ephemeral, os.Stderr); err != nil {
		return nil, err
	}
	return service(ctx)
}

// service builds the application graph on first use so that help and flag
// errors never open storage connections.
func service(ctx context.Context) (*application.PricesService, error) {
	if svc != nil {
		return svc, nil
	}
	s, c, err := bootstrap.InitService(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	svc, cleanup = s, c
	return svc, nil
}

func closeService() {
	if cleanup != nil {
		cleanup()
	}
}
