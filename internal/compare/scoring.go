// Package compare implements the Comparison Engine: it drives a run matrix
// of (database x workload pattern x concurrency) sessions, derives
// crossover points between databases, and produces a weighted final score.
package compare

import (
	"math"
	"sort"

	"github.com/bonheur15/knowledge-bakeoff-bench/internal/config"
	"github.com/bonheur15/knowledge-bakeoff-bench/internal/threshold"
)

// PerformanceInput is the raw performance evidence for one database, taken
// from the best (lowest p99) session across the run matrix.
type PerformanceInput struct {
	BestP99Ms         float64
	BestThroughputQPS float64
	MaxConcurrency    int
	IdentifierP99Ms   float64
	TwoHopP99Ms       float64
	ThreeHopP99Ms     float64
}

// PerformanceScore is the /60 breakdown for one database.
type PerformanceScore struct {
	Database          string
	P99LatencyMs      float64
	ThroughputQPS     float64
	MaxConcurrency    int
	LatencyScore      float64 // /30
	ThroughputScore   float64 // /15
	ScalabilityScore  float64 // /15
	TotalPerformance  float64 // /60
}

// CurationScore is the /20 breakdown for one database.
type CurationScore struct {
	Database              string
	SelfServiceOperations int
	VisualizationRating   float64
	SelfServiceScore      float64 // /10
	VisualizationScore    float64 // /10
	TotalCuration         float64 // /20
}

// OperationalScore is the /20 breakdown for one database.
type OperationalScore struct {
	Database                string
	ResourceEfficiencyScore float64 // /5
	StabilityScore          float64 // /5
	ConfigComplexityScore   float64 // /5
	EcosystemScore          float64 // /5
	TotalOperational        float64 // /20
}

// FinalScore is the fully consolidated per-database result.
type FinalScore struct {
	Database           string
	Performance        PerformanceScore
	Curation           CurationScore
	Operational        OperationalScore
	TotalScore         float64 // /100
	Rank               int
	ThresholdStatus    threshold.Verdict
	Recommendation     string
	RequiresMitigation bool
}

// These constants are the fixed p99 ceilings used purely for the
// pass/conditional/fail rollup in a final score, independent of the
// per-category Evaluator thresholds used during a single run.
const (
	identifierLookupP99Ceiling = 100.0
	twoHopP99Ceiling           = 300.0
	threeHopP99CeilingBase     = 500.0
	conditionalSlack           = 1.2
)

// ScorePerformance computes the /60 latency+throughput+scalability score
// for every database, normalised against the best value observed across
// the whole set.
func ScorePerformance(inputs map[string]PerformanceInput) map[string]PerformanceScore {
	if len(inputs) == 0 {
		return nil
	}

	bestP99 := 0.0
	bestThroughput := 0.0
	first := true
	for _, in := range inputs {
		if first || in.BestP99Ms < bestP99 {
			bestP99 = in.BestP99Ms
		}
		if in.BestThroughputQPS > bestThroughput {
			bestThroughput = in.BestThroughputQPS
		}
		first = false
	}

	out := make(map[string]PerformanceScore, len(inputs))
	for db, in := range inputs {
		latencyScore := 0.0
		if in.BestP99Ms > 0 {
			latencyScore = 30 * (bestP99 / in.BestP99Ms)
		}
		throughputScore := 0.0
		if bestThroughput > 0 {
			throughputScore = 15 * (in.BestThroughputQPS / bestThroughput)
		}

		var scalabilityScore float64
		switch {
		case in.MaxConcurrency >= 100:
			scalabilityScore = 15
		case in.MaxConcurrency >= 50:
			scalabilityScore = 12
		case in.MaxConcurrency >= 20:
			scalabilityScore = 9
		default:
			scalabilityScore = 6
		}

		out[db] = PerformanceScore{
			Database:         db,
			P99LatencyMs:     in.BestP99Ms,
			ThroughputQPS:    in.BestThroughputQPS,
			MaxConcurrency:   in.MaxConcurrency,
			LatencyScore:     latencyScore,
			ThroughputScore:  throughputScore,
			ScalabilityScore: scalabilityScore,
			TotalPerformance: latencyScore + throughputScore + scalabilityScore,
		}
	}
	return out
}

// ScoreCuration computes the /20 self-service+visualization score from
// operator-supplied curation inputs (config.ScoreInput).
func ScoreCuration(inputs map[string]config.ScoreInput) map[string]CurationScore {
	out := make(map[string]CurationScore, len(inputs))
	for db, in := range inputs {
		var selfService float64
		switch {
		case in.SelfServiceOperations == 6:
			selfService = 10
		case in.SelfServiceOperations >= 4:
			selfService = 7
		case in.SelfServiceOperations == 3:
			selfService = 4
		default:
			selfService = 0
		}

		var viz float64
		switch {
		case in.VisualizationRating >= 4.5:
			viz = 10
		case in.VisualizationRating >= 3.5:
			viz = 8
		case in.VisualizationRating >= 2.5:
			viz = 5
		default:
			viz = 2
		}

		out[db] = CurationScore{
			Database:              db,
			SelfServiceOperations: in.SelfServiceOperations,
			VisualizationRating:   in.VisualizationRating,
			SelfServiceScore:      selfService,
			VisualizationScore:    viz,
			TotalCuration:         selfService + viz,
		}
	}
	return out
}

// ScoreOperational computes the /20 resource+stability+config+ecosystem
// score. EcosystemScore is taken verbatim from config.ScoreInput since,
// unlike the other three dimensions, ecosystem maturity is not derived
// from a measured value.
func ScoreOperational(inputs map[string]config.ScoreInput) map[string]OperationalScore {
	out := make(map[string]OperationalScore, len(inputs))
	for db, in := range inputs {
		var resource float64
		switch {
		case in.PeakMemoryMB < 100:
			resource = 5
		case in.PeakMemoryMB < 200:
			resource = 3
		default:
			resource = 1
		}

		var stability float64
		switch {
		case in.ErrorRatePct == 0:
			stability = 5
		case in.ErrorRatePct < 1:
			stability = 3
		default:
			stability = 0
		}

		var configScore float64
		switch {
		case in.ConfigParameters < 10:
			configScore = 5
		case in.ConfigParameters < 20:
			configScore = 3
		default:
			configScore = 1
		}

		out[db] = OperationalScore{
			Database:                db,
			ResourceEfficiencyScore: resource,
			StabilityScore:          stability,
			ConfigComplexityScore:   configScore,
			EcosystemScore:          in.EcosystemScore,
			TotalOperational:        resource + stability + configScore + in.EcosystemScore,
		}
	}
	return out
}

// assessThreshold rolls a database's identifier/two-hop/three-hop p99s into
// a single PASS/CONDITIONAL_PASS/FAIL verdict, independent of the
// per-category threshold.Evaluator used inside a single run.
func assessThreshold(in PerformanceInput) threshold.Verdict {
	identifierPass := in.IdentifierP99Ms <= identifierLookupP99Ceiling
	twoHopPass := in.TwoHopP99Ms <= twoHopP99Ceiling
	threeHopPass := in.ThreeHopP99Ms <= threeHopP99CeilingBase

	switch {
	case identifierPass && twoHopPass && threeHopPass:
		return threshold.Pass
	case in.ThreeHopP99Ms <= threeHopP99CeilingBase*conditionalSlack:
		return threshold.ConditionalPass
	default:
		return threshold.Fail
	}
}

// tieBreakMargin is the point spread within which two databases are
// considered tied on TotalScore and fall through to the tie-break cascade
// (threshold verdict priority, then curation subtotal, then operational
// subtotal) rather than being ranked by raw score.
const tieBreakMargin = 5.0

func verdictPriority(v threshold.Verdict) int {
	switch v {
	case threshold.Pass:
		return 2
	case threshold.ConditionalPass:
		return 1
	default:
		return 0
	}
}

// ComputeFinalScores consolidates the three dimension scores into ranked
// FinalScore values. Databases whose threshold status is not FAIL rank
// above FAIL databases regardless of raw score; within a status tier,
// databases scoring within tieBreakMargin points of each other are
// tie-broken by threshold verdict priority, then curation subtotal, then
// operational subtotal, before falling back to raw total score.
func ComputeFinalScores(perfInputs map[string]PerformanceInput, curation map[string]config.ScoreInput) map[string]FinalScore {
	perf := ScorePerformance(perfInputs)
	cur := ScoreCuration(curation)
	op := ScoreOperational(curation)

	finals := make(map[string]FinalScore, len(perf))
	for db, p := range perf {
		c := cur[db]
		o := op[db]
		finals[db] = FinalScore{
			Database:        db,
			Performance:     p,
			Curation:        c,
			Operational:     o,
			TotalScore:      p.TotalPerformance + c.TotalCuration + o.TotalOperational,
			ThresholdStatus: assessThreshold(perfInputs[db]),
		}
	}

	order := make([]string, 0, len(finals))
	for db := range finals {
		order = append(order, db)
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := finals[order[i]], finals[order[j]]
		aOK := a.ThresholdStatus != threshold.Fail
		bOK := b.ThresholdStatus != threshold.Fail
		if aOK != bOK {
			return aOK // PASS/CONDITIONAL_PASS ranks above FAIL
		}

		if math.Abs(a.TotalScore-b.TotalScore) <= tieBreakMargin {
			if aPri, bPri := verdictPriority(a.ThresholdStatus), verdictPriority(b.ThresholdStatus); aPri != bPri {
				return aPri > bPri
			}
			if a.Curation.TotalCuration != b.Curation.TotalCuration {
				return a.Curation.TotalCuration > b.Curation.TotalCuration
			}
			if a.Operational.TotalOperational != b.Operational.TotalOperational {
				return a.Operational.TotalOperational > b.Operational.TotalOperational
			}
		}
		return a.TotalScore > b.TotalScore
	})

	for i, db := range order {
		f := finals[db]
		f.Rank = i + 1
		f.Recommendation = recommendationFor(f.Rank, f.ThresholdStatus)
		finals[db] = f
	}
	return finals
}

// FlagRequiresMitigation marks the rank-1 FinalScore as requiring
// mitigation when the winning database never reached CONDITIONAL_PASS in
// any single (pattern, concurrency) cell of the run matrix, per spec.md's
// overall-winner viability rule.
func FlagRequiresMitigation(finals map[string]FinalScore, results []CellResult) map[string]FinalScore {
	for db, f := range finals {
		if f.Rank != 1 {
			continue
		}
		if !ReachedConditionalPassSomewhere(results, db) {
			f.RequiresMitigation = true
			finals[db] = f
		}
	}
	return finals
}

func recommendationFor(rank int, status threshold.Verdict) string {
	switch {
	case rank == 1 && status == threshold.Pass:
		return "RECOMMENDED - winner, meets all thresholds"
	case rank == 1 && status == threshold.ConditionalPass:
		return "RECOMMENDED - winner, requires caching/optimization"
	case rank == 1:
		return "CONDITIONAL - winner but fails thresholds, mitigation required"
	case rank == 2:
		return "ALTERNATIVE - second choice"
	default:
		return "NOT RECOMMENDED - lower ranked"
	}
}
