// Package threshold classifies a KindMetrics snapshot against its
// category's latency thresholds, emitting PASS / CONDITIONAL_PASS / FAIL
// with per-dimension evidence.
package threshold

import (
	"fmt"

	"github.com/bonheur15/knowledge-bakeoff-bench/internal/catalog"
	"github.com/bonheur15/knowledge-bakeoff-bench/internal/metrics"
)

// Verdict is the classification of a KindMetrics or a whole session.
type Verdict string

const (
	Pass             Verdict = "PASS"
	ConditionalPass  Verdict = "CONDITIONAL_PASS"
	Fail             Verdict = "FAIL"
)

// severity orders verdicts for the "worst wins" aggregate rule: FAIL >
// CONDITIONAL_PASS > PASS.
func (v Verdict) severity() int {
	switch v {
	case Fail:
		return 2
	case ConditionalPass:
		return 1
	default:
		return 0
	}
}

// Worse returns the more severe of two verdicts.
func Worse(a, b Verdict) Verdict {
	if a.severity() >= b.severity() {
		return a
	}
	return b
}

// Thresholds is the (p50, p95, p99) triple assigned to a category, in
// milliseconds.
type Thresholds struct {
	TargetP50Ms     float64 `yaml:"target_p50_ms"`
	AcceptableP95Ms float64 `yaml:"acceptable_p95_ms"`
	MaximumP99Ms    float64 `yaml:"maximum_p99_ms"`
}

// Defaults is the specification's baseline threshold table, overridable
// per-category from YAML config.
var Defaults = map[catalog.Category]Thresholds{
	catalog.IdentifierLookup:  {TargetP50Ms: 10, AcceptableP95Ms: 50, MaximumP99Ms: 100},
	catalog.TwoHop:            {TargetP50Ms: 50, AcceptableP95Ms: 150, MaximumP99Ms: 300},
	catalog.ThreeHop:          {TargetP50Ms: 100, AcceptableP95Ms: 300, MaximumP99Ms: 500},
	catalog.SixHop:            {TargetP50Ms: 500, AcceptableP95Ms: 1000, MaximumP99Ms: 2000},
	catalog.PropertyWrite:     {TargetP50Ms: 50, AcceptableP95Ms: 200, MaximumP99Ms: 500},
	catalog.RelationshipWrite: {TargetP50Ms: 100, AcceptableP95Ms: 300, MaximumP99Ms: 500},
}

const maxErrorRate = 0.01

// Evaluation is the derived, never-mutated result of evaluating one
// KindMetrics against its Thresholds.
type Evaluation struct {
	KindID     string
	Category   catalog.Category
	Verdict    Verdict
	P50Pass    bool
	P95Pass    bool
	P99Pass    bool
	ErrorPass  bool
	Reasons    []string
}

// Evaluator classifies KindMetrics snapshots against a (possibly
// overridden) threshold table.
type Evaluator struct {
	table        map[catalog.Category]Thresholds
	cacheEnabled bool
}

// NewEvaluator builds an Evaluator. A nil table falls back to Defaults; any
// category present in table overrides the default for that category only.
func NewEvaluator(table map[catalog.Category]Thresholds, cacheEnabled bool) *Evaluator {
	merged := make(map[catalog.Category]Thresholds, len(Defaults))
	for k, v := range Defaults {
		merged[k] = v
	}
	for k, v := range table {
		merged[k] = v
	}
	return &Evaluator{table: merged, cacheEnabled: cacheEnabled}
}

// Evaluate classifies a single KindMetrics snapshot.
func (e *Evaluator) Evaluate(snap metrics.KindSnapshot) Evaluation {
	th, ok := e.table[snap.Category]
	if !ok {
		return Evaluation{
			KindID: snap.KindID, Category: snap.Category, Verdict: Fail,
			Reasons: []string{fmt.Sprintf("no threshold configured for category %q", snap.Category)},
		}
	}

	if snap.Latency.Empty {
		// No successful observations at all: percentiles are undefined
		// (reported as null/NaN by the Reporter), and an all-failure kind
		// can never PASS.
		if snap.Issued > 0 && snap.ErrorRate > maxErrorRate {
			return Evaluation{
				KindID: snap.KindID, Category: snap.Category, Verdict: Fail,
				Reasons: []string{"error_rate"},
			}
		}
		return Evaluation{
			KindID: snap.KindID, Category: snap.Category, Verdict: Fail,
			Reasons: []string{"no successful observations"},
		}
	}

	p50 := metrics.MillisRounded(snap.Latency.P50)
	p95 := metrics.MillisRounded(snap.Latency.P95)
	p99 := metrics.MillisRounded(snap.Latency.P99)

	p50Pass := p50 <= th.TargetP50Ms
	p95Pass := p95 <= th.AcceptableP95Ms
	p99Pass := p99 <= th.MaximumP99Ms
	errPass := snap.ErrorRate <= maxErrorRate

	eval := Evaluation{
		KindID: snap.KindID, Category: snap.Category,
		P50Pass: p50Pass, P95Pass: p95Pass, P99Pass: p99Pass, ErrorPass: errPass,
	}

	switch {
	case p50Pass && p95Pass && p99Pass && errPass:
		eval.Verdict = Pass
	case p99Pass && !errPass:
		eval.Verdict = Fail
		eval.Reasons = append(eval.Reasons, "error_rate")
	case p99Pass && (e.cacheEnabled || !p50Pass || !p95Pass):
		eval.Verdict = ConditionalPass
		if !p50Pass {
			eval.Reasons = append(eval.Reasons, "p50 exceeded target")
		}
		if !p95Pass {
			eval.Reasons = append(eval.Reasons, "p95 exceeded acceptable")
		}
	default:
		eval.Verdict = Fail
		if !p99Pass {
			eval.Reasons = append(eval.Reasons, "p99 exceeded maximum")
		}
		if !errPass {
			eval.Reasons = append(eval.Reasons, "error_rate")
		}
	}

	return eval
}

// EvaluateSession evaluates every kind in a session snapshot and returns the
// aggregate verdict, which is the worst verdict across kinds.
func (e *Evaluator) EvaluateSession(session metrics.SessionSnapshot) (map[string]Evaluation, Verdict) {
	evals := make(map[string]Evaluation, len(session.Kinds))
	aggregate := Pass
	for id, snap := range session.Kinds {
		ev := e.Evaluate(snap)
		evals[id] = ev
		aggregate = Worse(aggregate, ev.Verdict)
	}
	return evals, aggregate
}
