// Package runcmd implements benchmarkctl's "run" subcommand: a single
// measured session against one system under test.
package runcmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
	"github.com/vbauerster/mpb/v5"
	"github.com/vbauerster/mpb/v5/decor"

	"github.com/bonheur15/knowledge-bakeoff-bench/internal/catalog"
	"github.com/bonheur15/knowledge-bakeoff-bench/internal/config"
	"github.com/bonheur15/knowledge-bakeoff-bench/internal/dataset"
	"github.com/bonheur15/knowledge-bakeoff-bench/internal/executor"
	"github.com/bonheur15/knowledge-bakeoff-bench/internal/metrics"
	"github.com/bonheur15/knowledge-bakeoff-bench/internal/report"
	"github.com/bonheur15/knowledge-bakeoff-bench/internal/threshold"
	"github.com/bonheur15/knowledge-bakeoff-bench/internal/workload"
)

// Exit codes per the specification's CLI contract.
const (
	exitPass            = 0
	exitConditionalPass = 1
	exitFail            = 2
	exitInterrupted     = 3
	exitUsage           = 64
	exitInvariant       = 70
)

// Command builds the "run" subcommand.
func Command(log zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "run a single measured session against a system under test",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "sut-url", Required: true, Usage: "base URL of the system under test"},
			&cli.StringFlag{Name: "pattern", Value: "balanced-60", Usage: "named mix pattern"},
			&cli.IntFlag{Name: "requests", Value: 1000, Usage: "total request budget"},
			&cli.IntFlag{Name: "concurrency", Value: 10, Usage: "maximum in-flight requests"},
			&cli.BoolFlag{Name: "cache", Usage: "cache layer is enabled in front of the SUT"},
			&cli.StringFlag{Name: "output", Value: "session", Usage: "output file prefix"},
			&cli.StringFlag{Name: "db-prefix", Usage: "path prefix inserted before every catalogue route"},
			&cli.Int64Flag{Name: "seed", Value: 42, Usage: "PRNG seed for reproducible request selection"},
			&cli.StringFlag{Name: "pool-dir", Usage: "directory of identifier pool files"},
			&cli.StringFlag{Name: "config", Usage: "YAML configuration file"},
			&cli.DurationFlag{Name: "timeout", Value: 30 * time.Second, Usage: "per-request timeout"},
			&cli.DurationFlag{Name: "preflight-timeout", Value: 30 * time.Second, Usage: "maximum time to wait for the SUT to become reachable"},
		},
		Action: func(c *cli.Context) error {
			return runAction(c, log)
		},
	}
}

func runAction(c *cli.Context, log zerolog.Logger) error {
	pattern, ok := workload.LookupPattern(c.String("pattern"))
	if !ok {
		return cli.Exit(fmt.Sprintf("run: unknown pattern %q", c.String("pattern")), exitUsage)
	}
	if c.Int("requests") <= 0 {
		return cli.Exit("run: --requests must be positive", exitUsage)
	}

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	sutURL := c.String("sut-url")
	if err := preflight(c.Context, sutURL, c.Duration("preflight-timeout"), log); err != nil {
		return cli.Exit(fmt.Sprintf("run: SUT unreachable: %v", err), exitInvariant)
	}

	cat := catalog.Default()

	sel := dataset.New(c.Int64("seed"))
	if poolDir := c.String("pool-dir"); poolDir != "" {
		if err := sel.LoadPools(poolDir, log); err != nil {
			return cli.Exit(err.Error(), exitInvariant)
		}
	} else if cfg.Datasets.PoolDir != "" {
		if err := sel.LoadPools(cfg.Datasets.PoolDir, log); err != nil {
			return cli.Exit(err.Error(), exitInvariant)
		}
	}

	gen, err := workload.NewGenerator(pattern, c.Int("requests"), cat, sel, c.Int64("seed"))
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	meta := metrics.SessionMetadata{
		SUTURL:             sutURL,
		PatternName:        pattern.Name,
		Concurrency:        c.Int("concurrency"),
		RequestBudget:      c.Int("requests"),
		Seed:               c.Int64("seed"),
		CacheEnabled:       c.Bool("cache"),
		WallClockStartUnix: metrics.Now().Unix(),
	}
	collector := metrics.NewCollector(meta)

	exec := executor.New(executor.Config{
		BaseURL:     sutURL,
		DBPrefix:    c.String("db-prefix"),
		Concurrency: c.Int("concurrency"),
		Timeout:     c.Duration("timeout"),
	}, log)

	progress := mpb.New(mpb.WithWidth(48))
	bar := progress.AddBar(int64(gen.Len()),
		mpb.PrependDecorators(decor.Name(pattern.Name)),
		mpb.AppendDecorators(decor.Percentage()),
	)
	onProgress := func(metrics.Observation) { bar.Increment() }

	result, err := exec.Run(c.Context, gen, cat, collector, onProgress)
	progress.Wait()
	if err != nil {
		return cli.Exit(err.Error(), exitInvariant)
	}
	if sel.SyntheticUsed {
		collector.SetSyntheticDataUsed()
	}

	snap := collector.Snapshot()
	snap.Meta.WallClockEndUnix = metrics.Now().Unix()

	if err := snap.SumInvariantCheck(result.OK, result.Failed); err != nil {
		return cli.Exit(fmt.Sprintf("run: %v", err), exitInvariant)
	}

	evaluator := threshold.NewEvaluator(cfg.Thresholds, c.Bool("cache"))
	evals, verdict := evaluator.EvaluateSession(snap)

	outPrefix := c.String("output")
	sessionRep := report.BuildSessionReport(outPrefix, snap)
	if err := report.WriteJSON(outPrefix+".json", sessionRep); err != nil {
		return cli.Exit(err.Error(), exitInvariant)
	}
	if err := report.WriteCSV(outPrefix+".csv", sessionRep); err != nil {
		return cli.Exit(err.Error(), exitInvariant)
	}
	evalRep := report.BuildEvaluationReport(evals, verdict)
	if err := report.WriteEvaluationJSON(outPrefix+"-evaluation.json", evalRep); err != nil {
		return cli.Exit(err.Error(), exitInvariant)
	}
	report.PrintSessionSummary(os.Stdout, sessionRep, verdict)

	log.Info().
		Str("verdict", string(verdict)).
		Int64("issued", result.Issued).
		Int64("ok", result.OK).
		Int64("failed", result.Failed).
		Bool("interrupted", result.Interrupted).
		Msg("run: session complete")

	if result.Interrupted {
		return cli.Exit("run: interrupted before budget exhausted", exitInterrupted)
	}

	switch verdict {
	case threshold.Pass:
		return nil
	case threshold.ConditionalPass:
		return cli.Exit("run: CONDITIONAL_PASS", exitConditionalPass)
	default:
		return cli.Exit("run: FAIL", exitFail)
	}
}

// preflight blocks until the SUT's /health endpoint answers 2xx or
// maxWait elapses, using exponential backoff. This is distinct from the
// per-request retry policy: the executor never retries a failed request,
// but the run command retries the initial reachability check so a slow
// container start doesn't fail the whole invocation.
func preflight(ctx context.Context, baseURL string, maxWait time.Duration, log zerolog.Logger) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxWait
	bctx := backoff.WithContext(b, ctx)

	client := &http.Client{Timeout: 5 * time.Second}
	attempt := 0
	op := func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := client.Do(req)
		if err != nil {
			log.Debug().Int("attempt", attempt).Err(err).Msg("run: preflight retrying")
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("health check returned status %d", resp.StatusCode)
		}
		return nil
	}

	return backoff.Retry(op, bctx)
}
