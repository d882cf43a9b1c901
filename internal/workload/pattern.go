// Package workload turns a named mix pattern and a request budget into a
// lazy sequence of concrete RequestPlans drawn from a catalogue.
package workload

import "fmt"

// Pattern is a named allocation of weight across the three top-level query
// categories. Weights must be non-negative and sum to exactly 100.
type Pattern struct {
	Name         string
	LookupPct    int
	AnalyticsPct int
	WritePct     int
}

// ErrInvalidPattern is returned by NewPattern when weights are malformed.
type ErrInvalidPattern struct {
	Reason string
}

func (e *ErrInvalidPattern) Error() string {
	return fmt.Sprintf("workload: invalid pattern: %s", e.Reason)
}

// NewPattern validates and constructs an ad-hoc pattern.
func NewPattern(name string, lookupPct, analyticsPct, writePct int) (Pattern, error) {
	if lookupPct < 0 || analyticsPct < 0 || writePct < 0 {
		return Pattern{}, &ErrInvalidPattern{Reason: "weights must be non-negative"}
	}
	total := lookupPct + analyticsPct + writePct
	if total != 100 {
		return Pattern{}, &ErrInvalidPattern{Reason: fmt.Sprintf("weights must sum to 100, got %d", total)}
	}
	return Pattern{Name: name, LookupPct: lookupPct, AnalyticsPct: analyticsPct, WritePct: writePct}, nil
}

// mustPattern panics on validation failure; used only for the built-in table
// below, which is a compile-time-known-good literal set.
func mustPattern(name string, lookupPct, analyticsPct, writePct int) Pattern {
	p, err := NewPattern(name, lookupPct, analyticsPct, writePct)
	if err != nil {
		panic(err)
	}
	return p
}

// BuiltinPatterns is the named catalogue of mix patterns from the
// specification, present verbatim.
var BuiltinPatterns = map[string]Pattern{
	"lookup-95":    mustPattern("lookup-95", 95, 4, 1),
	"lookup-90":    mustPattern("lookup-90", 90, 8, 2),
	"lookup-85":    mustPattern("lookup-85", 85, 12, 3),
	"lookup-80":    mustPattern("lookup-80", 80, 15, 5),
	"lookup-75":    mustPattern("lookup-75", 75, 20, 5),
	"balanced-60":  mustPattern("balanced-60", 60, 35, 5),
	"balanced-50":  mustPattern("balanced-50", 50, 40, 10),
	"balanced-40":  mustPattern("balanced-40", 40, 45, 15),
	"analytics-30": mustPattern("analytics-30", 30, 60, 10),
	"analytics-20": mustPattern("analytics-20", 20, 70, 10),
	"analytics-10": mustPattern("analytics-10", 10, 80, 10),
	"write-30":     mustPattern("write-30", 50, 20, 30),
	"write-40":     mustPattern("write-40", 40, 20, 40),
	"write-50":     mustPattern("write-50", 30, 20, 50),
}

// LookupPattern resolves a built-in pattern name.
func LookupPattern(name string) (Pattern, bool) {
	p, ok := BuiltinPatterns[name]
	return p, ok
}

// PatternNames returns the built-in pattern names in a stable order, for
// help text and CLI validation messages.
func PatternNames() []string {
	names := make([]string, 0, len(BuiltinPatterns))
	for _, n := range []string{
		"lookup-95", "lookup-90", "lookup-85", "lookup-80", "lookup-75",
		"balanced-60", "balanced-50", "balanced-40",
		"analytics-30", "analytics-20", "analytics-10",
		"write-30", "write-40", "write-50",
	} {
		names = append(names, n)
	}
	return names
}
