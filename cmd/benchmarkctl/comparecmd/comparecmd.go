// Package comparecmd implements benchmarkctl's "compare" subcommand: a
// full run matrix across databases, workload patterns, and concurrency
// levels, followed by crossover analysis and weighted scoring.
package comparecmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/bonheur15/knowledge-bakeoff-bench/internal/catalog"
	"github.com/bonheur15/knowledge-bakeoff-bench/internal/compare"
	"github.com/bonheur15/knowledge-bakeoff-bench/internal/config"
)

const exitUsage = 64
const exitInvariant = 70

// Command builds the "compare" subcommand.
func Command(log zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "compare",
		Usage: "run a full comparison matrix across databases, patterns, and concurrency levels",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Required: true, Usage: "YAML config listing databases and score inputs"},
			&cli.StringFlag{Name: "databases", Usage: "comma-separated subset of config databases to compare (default: all)"},
			&cli.StringFlag{Name: "workloads", Value: "lookup-90,balanced-60,analytics-20,write-30", Usage: "comma-separated pattern names"},
			&cli.StringFlag{Name: "concurrency", Value: "10,50,100", Usage: "comma-separated concurrency levels"},
			&cli.IntFlag{Name: "requests", Value: 2000, Usage: "measured-session request budget per cell"},
			&cli.Float64Flag{Name: "warmup-fraction", Value: 0.1, Usage: "fraction of --requests spent on a discarded warm-up session per cell"},
			&cli.StringFlag{Name: "db-prefix", Usage: "path prefix inserted before every catalogue route"},
			&cli.Int64Flag{Name: "seed", Value: 42, Usage: "PRNG seed for reproducible request selection"},
			&cli.StringFlag{Name: "pool-dir", Usage: "directory of identifier pool files"},
			&cli.BoolFlag{Name: "cache", Usage: "cache layer is enabled in front of every SUT"},
			&cli.StringFlag{Name: "output-dir", Value: "compare-results", Usage: "directory for run-matrix artifacts"},
			&cli.StringFlag{Name: "test-type", Value: "both", Usage: "which crossover analysis to run: workload, concurrency, or both"},
		},
		Action: func(c *cli.Context) error {
			return compareAction(c, log)
		},
	}
}

func compareAction(c *cli.Context, log zerolog.Logger) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	if len(cfg.Databases) == 0 {
		return cli.Exit("compare: config has no databases entries", exitUsage)
	}

	targets, err := selectTargets(cfg.Databases, c.String("databases"))
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	patterns := splitNonEmpty(c.String("workloads"))
	concurrency, err := parseInts(c.String("concurrency"))
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	testType := c.String("test-type")
	switch testType {
	case "workload", "concurrency", "both":
	default:
		return cli.Exit(fmt.Sprintf("compare: invalid --test-type %q, must be one of workload, concurrency, both", testType), exitUsage)
	}

	matrixCfg := compare.MatrixConfig{
		Targets:      targets,
		Patterns:     patterns,
		Concurrency:  concurrency,
		Requests:     c.Int("requests"),
		WarmupFrac:   c.Float64("warmup-fraction"),
		DBPrefix:     c.String("db-prefix"),
		Seed:         c.Int64("seed"),
		CacheEnabled: c.Bool("cache"),
		PoolDir:      c.String("pool-dir"),
		Cat:          catalog.Default(),
		Thresholds:   cfg.Thresholds,
	}

	results, err := compare.RunMatrix(c.Context, matrixCfg, log)
	if err != nil {
		log.Warn().Err(err).Msg("compare: one or more matrix cells failed")
	}
	if len(results) == 0 {
		return cli.Exit("compare: every matrix cell failed, nothing to score", exitInvariant)
	}

	outDir := c.String("output-dir")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return cli.Exit(err.Error(), exitInvariant)
	}
	if err := compare.WriteWorkloadSummaries(outDir, results); err != nil {
		return cli.Exit(err.Error(), exitInvariant)
	}
	if err := compare.WriteConcurrencySummaries(outDir, results); err != nil {
		return cli.Exit(err.Error(), exitInvariant)
	}

	var winner string
	runWorkload := testType == "workload" || testType == "both"
	runConcurrency := testType == "concurrency" || testType == "both"

	if runWorkload {
		workloadPoints := compare.AnalyzeWorkloadCrossover(results)
		var wins map[string]int
		winner, wins = compare.OverallWinner(workloadPoints)
		mitigation := !compare.ReachedConditionalPassSomewhere(results, winner)
		if err := compare.ExportCrossoverMarkdown(filepath.Join(outDir, "CROSSOVER_ANALYSIS.md"), workloadPoints, winner, wins, mitigation); err != nil {
			return cli.Exit(err.Error(), exitInvariant)
		}
	}
	if runConcurrency {
		concurrencyPoints := compare.AnalyzeConcurrencyCrossover(results)
		concWinner, concWins := compare.OverallWinnerFor(concurrencyPoints, "concurrency")
		concMitigation := !compare.ReachedConditionalPassSomewhere(results, concWinner)
		if err := compare.ExportConcurrencyCrossoverMarkdown(filepath.Join(outDir, "CONCURRENCY_CROSSOVER_ANALYSIS.md"), concurrencyPoints, concWinner, concWins, concMitigation); err != nil {
			return cli.Exit(err.Error(), exitInvariant)
		}
		if !runWorkload {
			winner = concWinner
		}
	}

	perfInputs := map[string]compare.PerformanceInput{}
	for _, t := range targets {
		perfInputs[t.Name] = compare.BestPerformanceInput(results, t.Name)
	}
	finals := compare.ComputeFinalScores(perfInputs, cfg.ScoreInputs)
	finals = compare.FlagRequiresMitigation(finals, results)

	compare.PrintFinalScores(os.Stdout, finals)

	log.Info().Str("winner", winner).Int("cells", len(results)).Msg("compare: matrix complete")
	return nil
}

func selectTargets(databases map[string]string, subset string) ([]compare.Target, error) {
	names := splitNonEmpty(subset)
	if len(names) == 0 {
		targets := make([]compare.Target, 0, len(databases))
		for name, url := range databases {
			targets = append(targets, compare.Target{Name: name, BaseURL: url})
		}
		return targets, nil
	}

	targets := make([]compare.Target, 0, len(names))
	for _, name := range names {
		url, ok := databases[name]
		if !ok {
			return nil, fmt.Errorf("compare: database %q not present in config", name)
		}
		targets = append(targets, compare.Target{Name: name, BaseURL: url})
	}
	return targets, nil
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseInts(s string) ([]int, error) {
	parts := splitNonEmpty(s)
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("compare: invalid concurrency level %q: %w", p, err)
		}
		out = append(out, n)
	}
	return out, nil
}
