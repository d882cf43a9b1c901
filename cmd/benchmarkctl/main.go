// Command benchmarkctl drives the benchmark core against a system under
// test, either as a single measured session (run) or as a full
// database-comparison run matrix (compare).
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/bonheur15/knowledge-bakeoff-bench/cmd/benchmarkctl/comparecmd"
	"github.com/bonheur15/knowledge-bakeoff-bench/cmd/benchmarkctl/runcmd"
	"github.com/bonheur15/knowledge-bakeoff-bench/internal/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log := logging.New("")

	app := &cli.App{
		Name:  "benchmarkctl",
		Usage: "drive latency/throughput benchmarks against a database system under test",
		Commands: []*cli.Command{
			runcmd.Command(log),
			comparecmd.Command(log),
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			log.Error().Err(err).Msg("benchmarkctl: exiting")
			return exitErr.ExitCode()
		}
		log.Error().Err(err).Msg("benchmarkctl: internal error")
		return 70
	}
	return 0
}
