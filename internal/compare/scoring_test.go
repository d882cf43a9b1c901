package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bonheur15/knowledge-bakeoff-bench/internal/config"
	"github.com/bonheur15/knowledge-bakeoff-bench/internal/threshold"
)

func TestScorePerformanceGivesBestDatabaseMaxLatencyAndThroughputScore(t *testing.T) {
	inputs := map[string]PerformanceInput{
		"fast": {BestP99Ms: 50, BestThroughputQPS: 1000, MaxConcurrency: 100},
		"slow": {BestP99Ms: 200, BestThroughputQPS: 250, MaxConcurrency: 10},
	}
	scores := ScorePerformance(inputs)

	assert.Equal(t, 30.0, scores["fast"].LatencyScore)
	assert.Equal(t, 15.0, scores["fast"].ThroughputScore)
	assert.Equal(t, 15.0, scores["fast"].ScalabilityScore)

	assert.InDelta(t, 7.5, scores["slow"].LatencyScore, 0.01)
	assert.InDelta(t, 3.75, scores["slow"].ThroughputScore, 0.01)
	assert.Equal(t, 6.0, scores["slow"].ScalabilityScore)
}

func TestScorePerformanceEmptyInputs(t *testing.T) {
	assert.Nil(t, ScorePerformance(nil))
}

func TestScoreCurationTiers(t *testing.T) {
	inputs := map[string]config.ScoreInput{
		"a": {SelfServiceOperations: 6, VisualizationRating: 5},
		"b": {SelfServiceOperations: 4, VisualizationRating: 4},
		"c": {SelfServiceOperations: 3, VisualizationRating: 3},
		"d": {SelfServiceOperations: 1, VisualizationRating: 1},
	}
	scores := ScoreCuration(inputs)

	assert.Equal(t, 10.0, scores["a"].SelfServiceScore)
	assert.Equal(t, 10.0, scores["a"].VisualizationScore)
	assert.Equal(t, 7.0, scores["b"].SelfServiceScore)
	assert.Equal(t, 8.0, scores["b"].VisualizationScore)
	assert.Equal(t, 4.0, scores["c"].SelfServiceScore)
	assert.Equal(t, 5.0, scores["c"].VisualizationScore)
	assert.Equal(t, 0.0, scores["d"].SelfServiceScore)
	assert.Equal(t, 2.0, scores["d"].VisualizationScore)
}

func TestScoreOperationalTiersAndEcosystemPassthrough(t *testing.T) {
	inputs := map[string]config.ScoreInput{
		"a": {PeakMemoryMB: 50, ErrorRatePct: 0, ConfigParameters: 5, EcosystemScore: 5},
		"b": {PeakMemoryMB: 150, ErrorRatePct: 0.5, ConfigParameters: 15, EcosystemScore: 3},
		"c": {PeakMemoryMB: 300, ErrorRatePct: 2, ConfigParameters: 30, EcosystemScore: 1},
	}
	scores := ScoreOperational(inputs)

	assert.Equal(t, 5.0, scores["a"].ResourceEfficiencyScore)
	assert.Equal(t, 5.0, scores["a"].StabilityScore)
	assert.Equal(t, 5.0, scores["a"].ConfigComplexityScore)
	assert.Equal(t, 5.0, scores["a"].EcosystemScore)
	assert.Equal(t, 20.0, scores["a"].TotalOperational)

	assert.Equal(t, 3.0, scores["b"].ResourceEfficiencyScore)
	assert.Equal(t, 3.0, scores["b"].StabilityScore)
	assert.Equal(t, 3.0, scores["b"].ConfigComplexityScore)

	assert.Equal(t, 1.0, scores["c"].ResourceEfficiencyScore)
	assert.Equal(t, 0.0, scores["c"].StabilityScore)
	assert.Equal(t, 1.0, scores["c"].ConfigComplexityScore)
}

func TestAssessThresholdPassConditionalFail(t *testing.T) {
	assert.Equal(t, threshold.Pass, assessThreshold(PerformanceInput{IdentifierP99Ms: 90, TwoHopP99Ms: 250, ThreeHopP99Ms: 450}))
	assert.Equal(t, threshold.ConditionalPass, assessThreshold(PerformanceInput{IdentifierP99Ms: 90, TwoHopP99Ms: 250, ThreeHopP99Ms: 550}))
	assert.Equal(t, threshold.Fail, assessThreshold(PerformanceInput{IdentifierP99Ms: 90, TwoHopP99Ms: 250, ThreeHopP99Ms: 900}))
}

func TestComputeFinalScoresRanksPassAboveFailRegardlessOfRawScore(t *testing.T) {
	perf := map[string]PerformanceInput{
		"failing-but-fast": {BestP99Ms: 10, BestThroughputQPS: 5000, MaxConcurrency: 100, IdentifierP99Ms: 900, TwoHopP99Ms: 900, ThreeHopP99Ms: 900},
		"passing-but-slow": {BestP99Ms: 400, BestThroughputQPS: 100, MaxConcurrency: 10, IdentifierP99Ms: 90, TwoHopP99Ms: 250, ThreeHopP99Ms: 450},
	}
	curation := map[string]config.ScoreInput{
		"failing-but-fast": {SelfServiceOperations: 6, VisualizationRating: 5, EcosystemScore: 5},
		"passing-but-slow": {SelfServiceOperations: 1, VisualizationRating: 1, EcosystemScore: 1},
	}

	finals := ComputeFinalScores(perf, curation)
	assert.Equal(t, 1, finals["passing-but-slow"].Rank)
	assert.Equal(t, 2, finals["failing-but-fast"].Rank)
	assert.Equal(t, threshold.Fail, finals["failing-but-fast"].ThresholdStatus)
}

func TestComputeFinalScoresTieBreaksWithinMarginByVerdictThenCurationThenOperational(t *testing.T) {
	perf := map[string]PerformanceInput{
		"pass-db": {BestP99Ms: 100, BestThroughputQPS: 500, MaxConcurrency: 50, IdentifierP99Ms: 90, TwoHopP99Ms: 250, ThreeHopP99Ms: 450},
		"cond-db": {BestP99Ms: 100, BestThroughputQPS: 500, MaxConcurrency: 50, IdentifierP99Ms: 90, TwoHopP99Ms: 250, ThreeHopP99Ms: 550},
	}
	curation := map[string]config.ScoreInput{
		"pass-db": {SelfServiceOperations: 6, VisualizationRating: 3.5, PeakMemoryMB: 50, ErrorRatePct: 0, ConfigParameters: 5, EcosystemScore: 5},
		"cond-db": {SelfServiceOperations: 6, VisualizationRating: 4.5, PeakMemoryMB: 50, ErrorRatePct: 0, ConfigParameters: 5, EcosystemScore: 5},
	}

	finals := ComputeFinalScores(perf, curation)

	assert.Less(t, finals["pass-db"].TotalScore, finals["cond-db"].TotalScore)
	assert.Equal(t, threshold.Pass, finals["pass-db"].ThresholdStatus)
	assert.Equal(t, threshold.ConditionalPass, finals["cond-db"].ThresholdStatus)
	assert.Equal(t, 1, finals["pass-db"].Rank, "PASS must outrank CONDITIONAL_PASS when scores are within the tie-break margin, even with a lower raw total")
	assert.Equal(t, 2, finals["cond-db"].Rank)
}

func TestFlagRequiresMitigationMarksWinnerThatNeverReachedConditionalPass(t *testing.T) {
	finals := map[string]FinalScore{
		"postgres": {Database: "postgres", Rank: 1},
		"mongo":    {Database: "mongo", Rank: 2},
	}
	results := []CellResult{
		{Cell: Cell{Database: "postgres", Pattern: "lookup-90"}, Verdict: threshold.Fail},
		{Cell: Cell{Database: "mongo", Pattern: "lookup-90"}, Verdict: threshold.Pass},
	}

	flagged := FlagRequiresMitigation(finals, results)
	assert.True(t, flagged["postgres"].RequiresMitigation)
	assert.False(t, flagged["mongo"].RequiresMitigation)
}

func TestFlagRequiresMitigationLeavesWinnerUnflaggedWhenItPassedSomewhere(t *testing.T) {
	finals := map[string]FinalScore{
		"postgres": {Database: "postgres", Rank: 1},
	}
	results := []CellResult{
		{Cell: Cell{Database: "postgres", Pattern: "lookup-90"}, Verdict: threshold.Fail},
		{Cell: Cell{Database: "postgres", Pattern: "write-30"}, Verdict: threshold.ConditionalPass},
	}

	flagged := FlagRequiresMitigation(finals, results)
	assert.False(t, flagged["postgres"].RequiresMitigation)
}

func TestRecommendationForTiers(t *testing.T) {
	assert.Contains(t, recommendationFor(1, threshold.Pass), "RECOMMENDED")
	assert.Contains(t, recommendationFor(1, threshold.ConditionalPass), "RECOMMENDED")
	assert.Contains(t, recommendationFor(1, threshold.Fail), "CONDITIONAL")
	assert.Contains(t, recommendationFor(2, threshold.Pass), "ALTERNATIVE")
	assert.Contains(t, recommendationFor(3, threshold.Pass), "NOT RECOMMENDED")
}
