package compare

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bonheur15/knowledge-bakeoff-bench/internal/catalog"
	"github.com/bonheur15/knowledge-bakeoff-bench/internal/metrics"
)

// workloadRow is one row of a database's workload_summary.json.
type workloadRow struct {
	WorkloadPattern string  `json:"workload_pattern"`
	Concurrency     int     `json:"concurrency"`
	P99Ms           float64 `json:"p99_ms"`
	ThroughputQPS   float64 `json:"throughput_qps"`
}

type workloadSummary struct {
	Database string        `json:"database"`
	Results  []workloadRow `json:"results"`
}

// concurrencyRow is one row of a database's concurrency_summary.json.
type concurrencyRow struct {
	Concurrency   int     `json:"concurrency"`
	P99Ms         float64 `json:"p99_ms"`
	ThroughputQPS float64 `json:"throughput_qps"`
}

type concurrencySummary struct {
	Database string           `json:"database"`
	Results  []concurrencyRow `json:"results"`
}

// WriteWorkloadSummaries writes one workload_summary.json per database
// under outDir/<database>/, matching the shape analyze_crossover.py
// expects to load.
func WriteWorkloadSummaries(outDir string, results []CellResult) error {
	byDB := map[string]*workloadSummary{}
	for _, r := range results {
		s, ok := byDB[r.Cell.Database]
		if !ok {
			s = &workloadSummary{Database: r.Cell.Database}
			byDB[r.Cell.Database] = s
		}
		s.Results = append(s.Results, workloadRow{
			WorkloadPattern: r.Cell.Pattern,
			Concurrency:     r.Cell.Concurrency,
			P99Ms:           aggregateP99(r.Snapshot),
			ThroughputQPS:   aggregateThroughput(r.Snapshot),
		})
	}

	for db, s := range byDB {
		dir := filepath.Join(outDir, db)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("compare: creating %s: %w", dir, err)
		}
		if err := writeJSONFile(filepath.Join(dir, "workload_summary.json"), s); err != nil {
			return err
		}
	}
	return nil
}

// WriteConcurrencySummaries writes one concurrency_summary.json per
// database under outDir/<database>/.
func WriteConcurrencySummaries(outDir string, results []CellResult) error {
	byDB := map[string]*concurrencySummary{}
	for _, r := range results {
		s, ok := byDB[r.Cell.Database]
		if !ok {
			s = &concurrencySummary{Database: r.Cell.Database}
			byDB[r.Cell.Database] = s
		}
		s.Results = append(s.Results, concurrencyRow{
			Concurrency:   r.Cell.Concurrency,
			P99Ms:         aggregateP99(r.Snapshot),
			ThroughputQPS: aggregateThroughput(r.Snapshot),
		})
	}

	for db, s := range byDB {
		dir := filepath.Join(outDir, db)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("compare: creating %s: %w", dir, err)
		}
		if err := writeJSONFile(filepath.Join(dir, "concurrency_summary.json"), s); err != nil {
			return err
		}
	}
	return nil
}

func writeJSONFile(path string, v interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("compare: creating %s: %w", path, err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// BestPerformanceInput derives a PerformanceInput for one database from its
// CellResults: the lowest measured p99 across all cells is "best", the
// highest measured throughput is "best", and the identifier/two-hop/
// three-hop p99s are read from the matching category's kinds in whichever
// cell produced the best overall p99.
func BestPerformanceInput(results []CellResult, database string) PerformanceInput {
	var in PerformanceInput
	first := true
	maxConc := 0

	for _, r := range results {
		if r.Cell.Database != database {
			continue
		}
		if r.Cell.Concurrency > maxConc {
			maxConc = r.Cell.Concurrency
		}
		p99 := aggregateP99(r.Snapshot)
		throughput := aggregateThroughput(r.Snapshot)
		if throughput > in.BestThroughputQPS {
			in.BestThroughputQPS = throughput
		}
		if first || (p99 > 0 && p99 < in.BestP99Ms) {
			in.BestP99Ms = p99
			first = false
		}

		for _, k := range r.Snapshot.Kinds {
			if k.Latency.Empty {
				continue
			}
			ms := metrics.MillisRounded(k.Latency.P99)
			switch k.Category {
			case catalog.IdentifierLookup:
				if in.IdentifierP99Ms == 0 || ms < in.IdentifierP99Ms {
					in.IdentifierP99Ms = ms
				}
			case catalog.TwoHop:
				if in.TwoHopP99Ms == 0 || ms < in.TwoHopP99Ms {
					in.TwoHopP99Ms = ms
				}
			case catalog.ThreeHop:
				if in.ThreeHopP99Ms == 0 || ms < in.ThreeHopP99Ms {
					in.ThreeHopP99Ms = ms
				}
			}
		}
	}

	in.MaxConcurrency = maxConc
	return in
}
