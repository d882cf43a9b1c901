package compare

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/bonheur15/knowledge-bakeoff-bench/internal/catalog"
	"github.com/bonheur15/knowledge-bakeoff-bench/internal/dataset"
	"github.com/bonheur15/knowledge-bakeoff-bench/internal/executor"
	"github.com/bonheur15/knowledge-bakeoff-bench/internal/metrics"
	"github.com/bonheur15/knowledge-bakeoff-bench/internal/threshold"
	"github.com/bonheur15/knowledge-bakeoff-bench/internal/workload"
)

// Target is one system under test entered into the run matrix.
type Target struct {
	Name    string
	BaseURL string
}

// Cell is one (database, pattern, concurrency) cell of the run matrix.
type Cell struct {
	Database    string
	Pattern     string
	Concurrency int
}

// CellResult is the outcome of running the warm-up + measured pair for one
// Cell.
type CellResult struct {
	RunID    ulid.ULID
	Cell     Cell
	Snapshot metrics.SessionSnapshot
	Eval     map[string]threshold.Evaluation
	Verdict  threshold.Verdict
}

// MatrixConfig parameterises a full comparison run.
type MatrixConfig struct {
	Targets      []Target
	Patterns     []string
	Concurrency  []int
	Requests     int
	WarmupFrac   float64 // fraction of Requests spent on the discarded warm-up session
	DBPrefix     string
	Seed         int64
	CacheEnabled bool
	PoolDir      string
	Cat          *catalog.Catalogue
	Thresholds   map[catalog.Category]threshold.Thresholds
}

// newULID mints a monotonic, sortable run identifier. entropy comes from
// crypto/rand rather than the deterministic workload PRNG, since run
// identifiers must be unique across repeated invocations with the same
// --seed. All calls share one monotonic entropy source, so identifiers
// minted within the same millisecond still sort in creation order; the
// source is not safe for concurrent use, and RunMatrix mints from a single
// goroutine.
var ulidEntropy = ulid.Monotonic(rand.Reader, 0)

func newULID(t time.Time) ulid.ULID {
	return ulid.MustNew(ulid.Timestamp(t), ulidEntropy)
}

// warmupPatternName is the fixed traffic mix used to warm every matrix
// cell, independent of the pattern under measurement in that cell (see
// original_source/analysis/phase-a-optimization/test_configs.py's
// warmup_pattern).
const warmupPatternName = "lookup-95"

// RunMatrix executes every (database, pattern, concurrency) cell in turn: a
// discarded warm-up session followed by a measured session. Individual
// cell failures are collected via multierror rather than aborting the
// whole matrix, so a single unreachable database does not lose every other
// cell's results.
func RunMatrix(ctx context.Context, cfg MatrixConfig, log zerolog.Logger) ([]CellResult, error) {
	var results []CellResult
	var errs *multierror.Error

	warmupPattern, ok := workload.LookupPattern(warmupPatternName)
	if !ok {
		return nil, fmt.Errorf("compare: warm-up pattern %q not found", warmupPatternName)
	}

	for _, target := range cfg.Targets {
		for _, patternName := range cfg.Patterns {
			pattern, ok := workload.LookupPattern(patternName)
			if !ok {
				errs = multierror.Append(errs, fmt.Errorf("compare: unknown pattern %q", patternName))
				continue
			}
			for _, conc := range cfg.Concurrency {
				cell := Cell{Database: target.Name, Pattern: patternName, Concurrency: conc}

				sel := dataset.New(cfg.Seed)
				if cfg.PoolDir != "" {
					if err := sel.LoadPools(cfg.PoolDir, log); err != nil {
						errs = multierror.Append(errs, fmt.Errorf("compare: %s: loading pools: %w", target.Name, err))
					}
				}

				warmupBudget := int(float64(cfg.Requests) * cfg.WarmupFrac)
				if warmupBudget > 0 {
					if _, err := runSession(ctx, cfg, target, warmupPattern, conc, warmupBudget, sel, log); err != nil {
						errs = multierror.Append(errs, fmt.Errorf("compare: %s/%s/c%d warm-up: %w", target.Name, patternName, conc, err))
						continue
					}
				}

				snap, err := runSession(ctx, cfg, target, pattern, conc, cfg.Requests, sel, log)
				if err != nil {
					errs = multierror.Append(errs, fmt.Errorf("compare: %s/%s/c%d: %w", target.Name, patternName, conc, err))
					continue
				}

				evalr := threshold.NewEvaluator(cfg.Thresholds, cfg.CacheEnabled)
				evals, verdict := evalr.EvaluateSession(snap)

				results = append(results, CellResult{
					RunID:    newULID(time.Now()),
					Cell:     cell,
					Snapshot: snap,
					Eval:     evals,
					Verdict:  verdict,
				})
			}
		}
	}

	return results, errs.ErrorOrNil()
}

func runSession(ctx context.Context, cfg MatrixConfig, target Target, pattern workload.Pattern, conc, budget int, sel *dataset.Selector, log zerolog.Logger) (metrics.SessionSnapshot, error) {
	gen, err := workload.NewGenerator(pattern, budget, cfg.Cat, sel, cfg.Seed)
	if err != nil {
		return metrics.SessionSnapshot{}, fmt.Errorf("building generator: %w", err)
	}

	meta := metrics.SessionMetadata{
		SUTURL:             target.BaseURL,
		PatternName:        pattern.Name,
		Concurrency:        conc,
		RequestBudget:      budget,
		Seed:               cfg.Seed,
		CacheEnabled:       cfg.CacheEnabled,
		WallClockStartUnix: metrics.Now().Unix(),
	}
	collector := metrics.NewCollector(meta)

	exec := executor.New(executor.Config{
		BaseURL:     target.BaseURL,
		DBPrefix:    cfg.DBPrefix,
		Concurrency: conc,
	}, log)

	if _, err := exec.Run(ctx, gen, cfg.Cat, collector, nil); err != nil {
		return metrics.SessionSnapshot{}, err
	}
	if sel.SyntheticUsed {
		collector.SetSyntheticDataUsed()
	}

	snap := collector.Snapshot()
	snap.Meta.WallClockEndUnix = metrics.Now().Unix()
	return snap, nil
}
