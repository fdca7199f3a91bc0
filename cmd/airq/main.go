package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/airq-etl/internal/pipeline"
)

var rootCmd = &cobra.Command{
	Use:   "airq",
	Short: "Adapt air-quality network exports to the canonical long format",
	Long: `airq reads wide-format exports from air-quality monitoring networks and
rewrites them as one canonical long CSV: one row per station, UTC timestamp
and variable, in canonical units, with station coordinates attached.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(exitCode(err))
	}
}

// exitCode maps run outcomes to distinct process exit codes.
func exitCode(err error) int {
	switch pipeline.Outcome(err) {
	case "config_error":
		return 2
	case "input_error":
		return 3
	case "io_error":
		return 4
	case "canceled":
		return 130
	default:
		return 1
	}
}
