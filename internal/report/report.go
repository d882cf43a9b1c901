// Package report serialises a completed benchmark session as JSON, CSV, and
// a console summary, and the Threshold Evaluator's output as a companion
// JSON file.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"

	"github.com/bonheur15/knowledge-bakeoff-bench/internal/metrics"
	"github.com/bonheur15/knowledge-bakeoff-bench/internal/threshold"
)

// LatencyMs is the millisecond percentile shape written into JSON/CSV. Null
// fields (Go zero value, since JSON has no NaN) are used when a kind
// recorded no successful observations, per the specification's "reported as
// null/NaN consistently" rule.
type LatencyMs struct {
	Min    *float64 `json:"min_ms"`
	P50    *float64 `json:"p50_ms"`
	P75    *float64 `json:"p75_ms"`
	P90    *float64 `json:"p90_ms"`
	P95    *float64 `json:"p95_ms"`
	P99    *float64 `json:"p99_ms"`
	P999   *float64 `json:"p999_ms"`
	Max    *float64 `json:"max_ms"`
	Mean   *float64 `json:"mean_ms"`
	StdDev *float64 `json:"stddev_ms"`
}

func latencyMsFrom(p metrics.PercentileSnapshot) LatencyMs {
	if p.Empty {
		return LatencyMs{}
	}
	ms := func(nanos int64) *float64 { v := metrics.MillisRounded(nanos); return &v }
	msf := func(nanos float64) *float64 { v := metrics.MillisRoundedF(nanos); return &v }
	return LatencyMs{
		Min: ms(p.Min), P50: ms(p.P50), P75: ms(p.P75), P90: ms(p.P90),
		P95: ms(p.P95), P99: ms(p.P99), P999: ms(p.P999), Max: ms(p.Max),
		Mean: msf(p.Mean), StdDev: msf(p.StdDev),
	}
}

// KindReport is the JSON shape for one QueryKind's results.
type KindReport struct {
	QueryName          string    `json:"query_name"`
	Category           string    `json:"category"`
	TotalRequests      int64     `json:"total_requests"`
	SuccessfulRequests int64     `json:"successful_requests"`
	FailedRequests     int64     `json:"failed_requests"`
	DurationSec        float64   `json:"duration_sec"`
	ThroughputQPS      float64   `json:"throughput_qps"`
	ErrorRate          float64   `json:"error_rate"`
	Latency            LatencyMs `json:"latency"`
}

// SessionReport is the full <name>.json shape.
type SessionReport struct {
	SessionName       string       `json:"session_name"`
	SUTURL            string       `json:"sut_url"`
	PatternName       string       `json:"pattern_name"`
	Concurrency       int          `json:"concurrency"`
	RequestBudget     int          `json:"request_budget"`
	Seed              int64        `json:"seed"`
	CacheEnabled      bool         `json:"cache_enabled"`
	SyntheticDataUsed bool         `json:"synthetic_data_used"`
	Interrupted       bool         `json:"interrupted"`
	StartUnix         int64        `json:"start_unix"`
	EndUnix           int64        `json:"end_unix"`
	Kinds             []KindReport `json:"kinds"`
}

// BuildSessionReport converts a frozen SessionSnapshot into the stable JSON
// shape. Kind order is sorted by query_name so JSON output is
// deterministic across runs with the same kind set.
func BuildSessionReport(name string, snap metrics.SessionSnapshot) SessionReport {
	rep := SessionReport{
		SessionName:       name,
		SUTURL:            snap.Meta.SUTURL,
		PatternName:       snap.Meta.PatternName,
		Concurrency:       snap.Meta.Concurrency,
		RequestBudget:     snap.Meta.RequestBudget,
		Seed:              snap.Meta.Seed,
		CacheEnabled:      snap.Meta.CacheEnabled,
		SyntheticDataUsed: snap.Meta.SyntheticDataUsed,
		Interrupted:       snap.Meta.Interrupted,
		StartUnix:         snap.Meta.WallClockStartUnix,
		EndUnix:           snap.Meta.WallClockEndUnix,
	}

	ids := make([]string, 0, len(snap.Kinds))
	for id := range snap.Kinds {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		k := snap.Kinds[id]
		rep.Kinds = append(rep.Kinds, KindReport{
			QueryName:          id,
			Category:           string(k.Category),
			TotalRequests:      k.Issued,
			SuccessfulRequests: k.OK,
			FailedRequests:     k.Failed,
			DurationSec:        round2(k.DurationSec),
			ThroughputQPS:      round2(k.ThroughputQPS),
			ErrorRate:          round4(k.ErrorRate),
			Latency:            latencyMsFrom(k.Latency),
		})
	}
	return rep
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }
func round4(f float64) float64 { return math.Round(f*10000) / 10000 }

// WriteJSON writes the <prefix>.json artifact.
func WriteJSON(path string, rep SessionReport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: creating %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

// csvColumns fixes the CSV header and column order; downstream tools rely
// on this being bit-exact.
var csvColumns = []string{
	"query_name", "total_requests", "successful_requests", "failed_requests",
	"duration_sec", "throughput_qps", "error_rate",
	"latency_min_ms", "latency_p50_ms", "latency_p95_ms", "latency_p99_ms",
	"latency_max_ms", "latency_mean_ms", "latency_stddev_ms",
}

// WriteCSV writes the <prefix>.csv artifact with the fixed column order.
func WriteCSV(path string, rep SessionReport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: creating %s: %w", path, err)
	}
	defer f.Close()
	return writeCSVTo(f, rep)
}

func writeCSVTo(w io.Writer, rep SessionReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvColumns); err != nil {
		return err
	}
	for _, k := range rep.Kinds {
		row := []string{
			k.QueryName,
			strconv.FormatInt(k.TotalRequests, 10),
			strconv.FormatInt(k.SuccessfulRequests, 10),
			strconv.FormatInt(k.FailedRequests, 10),
			formatFloat(k.DurationSec),
			formatFloat(k.ThroughputQPS),
			formatFloat(k.ErrorRate),
			formatPtr(k.Latency.Min),
			formatPtr(k.Latency.P50),
			formatPtr(k.Latency.P95),
			formatPtr(k.Latency.P99),
			formatPtr(k.Latency.Max),
			formatPtr(k.Latency.Mean),
			formatPtr(k.Latency.StdDev),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatPtr(f *float64) string {
	if f == nil {
		return ""
	}
	return formatFloat(*f)
}

// EvaluationReport is the <name>-evaluation.json shape.
type EvaluationReport struct {
	AggregateVerdict string                        `json:"aggregate_verdict"`
	Kinds            map[string]KindEvaluationJSON `json:"kinds"`
}

// KindEvaluationJSON is the per-kind evaluation shape.
type KindEvaluationJSON struct {
	Category string   `json:"category"`
	Verdict  string   `json:"verdict"`
	P50Pass  bool     `json:"p50_pass"`
	P95Pass  bool     `json:"p95_pass"`
	P99Pass  bool     `json:"p99_pass"`
	Reasons  []string `json:"reasons,omitempty"`
}

// BuildEvaluationReport converts Evaluator output into the JSON shape.
func BuildEvaluationReport(evals map[string]threshold.Evaluation, aggregate threshold.Verdict) EvaluationReport {
	out := EvaluationReport{AggregateVerdict: string(aggregate), Kinds: map[string]KindEvaluationJSON{}}
	for id, e := range evals {
		out.Kinds[id] = KindEvaluationJSON{
			Category: string(e.Category),
			Verdict:  string(e.Verdict),
			P50Pass:  e.P50Pass,
			P95Pass:  e.P95Pass,
			P99Pass:  e.P99Pass,
			Reasons:  e.Reasons,
		}
	}
	return out
}

// WriteEvaluationJSON writes the <prefix>-evaluation.json artifact.
func WriteEvaluationJSON(path string, rep EvaluationReport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: creating %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

// PrintSessionSummary writes the fourth session artifact: a per-kind table
// followed by the aggregate threshold verdict, to w (normally stdout).
func PrintSessionSummary(w io.Writer, rep SessionReport, aggregate threshold.Verdict) {
	fmt.Fprintf(w, "%-24s %8s %8s %8s %10s %9s %10s %10s\n",
		"Query", "Total", "OK", "Failed", "Throughput", "ErrorRate", "p95(ms)", "p99(ms)")
	fmt.Fprintln(w, "--------------------------------------------------------------------------------------------")

	for _, k := range rep.Kinds {
		fmt.Fprintf(w, "%-24s %8d %8d %8d %9.1fqps %8.2f%% %10s %10s\n",
			k.QueryName, k.TotalRequests, k.SuccessfulRequests, k.FailedRequests,
			k.ThroughputQPS, k.ErrorRate*100, formatMs(k.Latency.P95), formatMs(k.Latency.P99))
	}

	fmt.Fprintf(w, "\nAggregate Verdict: %s\n", aggregate)
}

func formatMs(f *float64) string {
	if f == nil {
		return "n/a"
	}
	return strconv.FormatFloat(*f, 'f', 2, 64)
}
