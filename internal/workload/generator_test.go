package workload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bonheur15/knowledge-bakeoff-bench/internal/catalog"
	"github.com/bonheur15/knowledge-bakeoff-bench/internal/dataset"
)

func TestNewGeneratorRejectsNonPositiveBudget(t *testing.T) {
	cat := catalog.Default()
	sel := dataset.New(1)
	_, err := NewGenerator(BuiltinPatterns["balanced-60"], 0, cat, sel, 1)
	assert.Error(t, err)
}

func TestGeneratorEmitsExactlyBudgetPlans(t *testing.T) {
	cat := catalog.Default()
	sel := dataset.New(1)
	gen, err := NewGenerator(BuiltinPatterns["balanced-60"], 200, cat, sel, 1)
	require.NoError(t, err)

	count := 0
	for {
		_, ok := gen.Next()
		if !ok {
			break
		}
		count++
	}
	assert.Equal(t, 200, count)
	assert.Equal(t, 200, gen.Len())
}

func TestGeneratorPlansCarryOrdinalsInSequence(t *testing.T) {
	cat := catalog.Default()
	sel := dataset.New(1)
	gen, err := NewGenerator(BuiltinPatterns["lookup-90"], 5, cat, sel, 1)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		plan, ok := gen.Next()
		require.True(t, ok)
		assert.Equal(t, i, plan.Ordinal)
	}
	_, ok := gen.Next()
	assert.False(t, ok)
}

func TestGeneratorWritePlansCarryPayload(t *testing.T) {
	cat := catalog.Default()
	sel := dataset.New(1)
	gen, err := NewGenerator(BuiltinPatterns["write-50"], 500, cat, sel, 1)
	require.NoError(t, err)

	sawWrite := false
	for {
		plan, ok := gen.Next()
		if !ok {
			break
		}
		if plan.Kind.TopLevel == catalog.Write {
			sawWrite = true
			require.NotNil(t, plan.Payload)
			assert.Empty(t, plan.Value)
		}
	}
	assert.True(t, sawWrite, "write-50 pattern over 500 draws should have produced at least one write plan")
}

func TestGeneratorTopLevelProportionsMatchDeclaredWeightsAtScale(t *testing.T) {
	cat := catalog.Default()
	sel := dataset.New(7)
	pattern := BuiltinPatterns["balanced-50"]
	budget := 20000
	gen, err := NewGenerator(pattern, budget, cat, sel, 7)
	require.NoError(t, err)

	var lookup, analytics, write int
	for {
		plan, ok := gen.Next()
		if !ok {
			break
		}
		switch plan.Kind.TopLevel {
		case catalog.Lookup:
			lookup++
		case catalog.Analytics:
			analytics++
		case catalog.Write:
			write++
		}
	}

	lookupFrac := float64(lookup) / float64(budget)
	analyticsFrac := float64(analytics) / float64(budget)
	writeFrac := float64(write) / float64(budget)

	assert.InDelta(t, float64(pattern.LookupPct)/100, lookupFrac, 0.01)
	assert.InDelta(t, float64(pattern.AnalyticsPct)/100, analyticsFrac, 0.01)
	assert.InDelta(t, float64(pattern.WritePct)/100, writeFrac, 0.01)
}

func TestGeneratorSameSeedIsDeterministic(t *testing.T) {
	cat := catalog.Default()

	genFor := func(seed int64) []string {
		sel := dataset.New(seed)
		gen, err := NewGenerator(BuiltinPatterns["balanced-60"], 50, cat, sel, seed)
		require.NoError(t, err)
		var ids []string
		for {
			plan, ok := gen.Next()
			if !ok {
				break
			}
			ids = append(ids, plan.Kind.ID)
		}
		return ids
	}

	a := genFor(99)
	b := genFor(99)
	assert.Equal(t, a, b)
}
