package threshold

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bonheur15/knowledge-bakeoff-bench/internal/catalog"
	"github.com/bonheur15/knowledge-bakeoff-bench/internal/metrics"
)

func snapshotWithLatency(category catalog.Category, p50, p95, p99 float64, errorRate float64, issued int64) metrics.KindSnapshot {
	return metrics.KindSnapshot{
		KindID:    "test_kind",
		Category:  category,
		Issued:    issued,
		ErrorRate: errorRate,
		Latency: metrics.PercentileSnapshot{
			P50: int64(p50 * 1e6),
			P95: int64(p95 * 1e6),
			P99: int64(p99 * 1e6),
		},
	}
}

func TestEvaluatePassesWithinAllThresholds(t *testing.T) {
	e := NewEvaluator(nil, false)
	snap := snapshotWithLatency(catalog.IdentifierLookup, 5, 20, 80, 0, 100)
	eval := e.Evaluate(snap)
	assert.Equal(t, Pass, eval.Verdict)
}

func TestEvaluateConditionalPassWhenP50MissesButP99Holds(t *testing.T) {
	e := NewEvaluator(nil, false)
	snap := snapshotWithLatency(catalog.IdentifierLookup, 15, 40, 90, 0, 100)
	eval := e.Evaluate(snap)
	assert.Equal(t, ConditionalPass, eval.Verdict)
	assert.False(t, eval.P50Pass)
	assert.Contains(t, eval.Reasons, "p50 exceeded target")
}

func TestEvaluateFailsWhenP99Exceeded(t *testing.T) {
	e := NewEvaluator(nil, false)
	snap := snapshotWithLatency(catalog.IdentifierLookup, 5, 20, 150, 0, 100)
	eval := e.Evaluate(snap)
	assert.Equal(t, Fail, eval.Verdict)
	assert.Contains(t, eval.Reasons, "p99 exceeded maximum")
}

func TestEvaluateFailsOnErrorRateEvenWithGoodLatency(t *testing.T) {
	e := NewEvaluator(nil, false)
	snap := snapshotWithLatency(catalog.IdentifierLookup, 5, 20, 80, 0.05, 100)
	eval := e.Evaluate(snap)
	assert.Equal(t, Fail, eval.Verdict)
	assert.Contains(t, eval.Reasons, "error_rate")
}

func TestEvaluateEmptyLatencyIsFail(t *testing.T) {
	e := NewEvaluator(nil, false)
	snap := metrics.KindSnapshot{KindID: "k", Category: catalog.IdentifierLookup, Latency: metrics.PercentileSnapshot{Empty: true}}
	eval := e.Evaluate(snap)
	assert.Equal(t, Fail, eval.Verdict)
}

func TestEvaluateUnknownCategoryIsFail(t *testing.T) {
	e := NewEvaluator(nil, false)
	snap := snapshotWithLatency(catalog.Category("unknown"), 5, 20, 80, 0, 100)
	eval := e.Evaluate(snap)
	assert.Equal(t, Fail, eval.Verdict)
}

func TestNewEvaluatorMergesOverridesWithoutLosingDefaults(t *testing.T) {
	e := NewEvaluator(map[catalog.Category]Thresholds{
		catalog.IdentifierLookup: {TargetP50Ms: 1, AcceptableP95Ms: 2, MaximumP99Ms: 3},
	}, false)
	assert.Equal(t, 1.0, e.table[catalog.IdentifierLookup].TargetP50Ms)
	assert.Equal(t, Defaults[catalog.TwoHop], e.table[catalog.TwoHop])
}

func TestWorseOrdersFailAboveConditionalAbovePass(t *testing.T) {
	assert.Equal(t, Fail, Worse(Pass, Fail))
	assert.Equal(t, ConditionalPass, Worse(Pass, ConditionalPass))
	assert.Equal(t, Fail, Worse(ConditionalPass, Fail))
	assert.Equal(t, Pass, Worse(Pass, Pass))
}

func TestEvaluateSessionAggregatesWorstVerdict(t *testing.T) {
	e := NewEvaluator(nil, false)
	session := metrics.SessionSnapshot{
		Kinds: map[string]metrics.KindSnapshot{
			"good": snapshotWithLatency(catalog.IdentifierLookup, 5, 20, 80, 0, 100),
			"bad":  snapshotWithLatency(catalog.IdentifierLookup, 5, 20, 150, 0, 100),
		},
	}
	evals, aggregate := e.EvaluateSession(session)
	assert.Len(t, evals, 2)
	assert.Equal(t, Fail, aggregate)
}
