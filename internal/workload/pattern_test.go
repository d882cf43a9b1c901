package workload

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuiltinPatternsSumTo100(t *testing.T) {
	for name, p := range BuiltinPatterns {
		total := p.LookupPct + p.AnalyticsPct + p.WritePct
		assert.Equalf(t, 100, total, "pattern %q sums to %d", name, total)
	}
}

func TestNewPatternRejectsNegativeWeights(t *testing.T) {
	_, err := NewPattern("bad", -1, 50, 51)
	assert.Error(t, err)
}

func TestNewPatternRejectsNonHundredTotal(t *testing.T) {
	_, err := NewPattern("bad", 10, 10, 10)
	assert.Error(t, err)
}

func TestLookupPatternUnknownName(t *testing.T) {
	_, ok := LookupPattern("does-not-exist")
	assert.False(t, ok)
}

func TestPatternNamesCoversAllBuiltins(t *testing.T) {
	names := PatternNames()
	assert.Len(t, names, len(BuiltinPatterns))
	for _, n := range names {
		_, ok := BuiltinPatterns[n]
		assert.True(t, ok)
	}
}
