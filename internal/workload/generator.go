package workload

import (
	"fmt"
	"math/rand"

	"github.com/bonheur15/knowledge-bakeoff-bench/internal/catalog"
	"github.com/bonheur15/knowledge-bakeoff-bench/internal/dataset"
)

// RequestPlan is a QueryKind bound to concrete parameter values, ready for
// the executor to issue. It is emitted lazily and consumed exactly once.
type RequestPlan struct {
	Kind     catalog.QueryKind
	Value    string             // bound path parameter, empty for write kinds
	Payload  *dataset.WritePayload
	Ordinal  int
}

// Generator produces a finite, restartable-only-by-fresh-construction
// sequence of RequestPlans consistent with a Pattern. It is not safe for
// concurrent use by more than one caller of Next; the executor drives it
// from a single goroutine and fans work out from there.
type Generator struct {
	pattern   Pattern
	budget    int
	catalogue *catalog.Catalogue
	selector  *dataset.Selector
	rng       *rand.Rand

	emitted int
}

// NewGenerator validates the pattern and budget and returns a ready
// Generator. A non-positive budget is InvalidPattern per the specification.
func NewGenerator(pattern Pattern, budget int, cat *catalog.Catalogue, sel *dataset.Selector, seed int64) (*Generator, error) {
	if _, err := NewPattern(pattern.Name, pattern.LookupPct, pattern.AnalyticsPct, pattern.WritePct); err != nil {
		return nil, err
	}
	if budget <= 0 {
		return nil, &ErrInvalidPattern{Reason: fmt.Sprintf("budget must be positive, got %d", budget)}
	}
	return &Generator{
		pattern:   pattern,
		budget:    budget,
		catalogue: cat,
		selector:  sel,
		rng:       rand.New(rand.NewSource(seed)),
	}, nil
}

// Len returns the total number of plans this Generator will emit.
func (g *Generator) Len() int { return g.budget }

// Next produces the next RequestPlan, or (zero, false) once the budget is
// exhausted.
func (g *Generator) Next() (RequestPlan, bool) {
	if g.emitted >= g.budget {
		return RequestPlan{}, false
	}

	level := g.drawTopLevel()
	kind := g.drawKind(level)
	plan := g.bind(kind)
	plan.Ordinal = g.emitted
	g.emitted++
	return plan, true
}

func (g *Generator) drawTopLevel() catalog.TopLevel {
	roll := g.rng.Intn(100)
	switch {
	case roll < g.pattern.LookupPct:
		return catalog.Lookup
	case roll < g.pattern.LookupPct+g.pattern.AnalyticsPct:
		return catalog.Analytics
	default:
		return catalog.Write
	}
}

func (g *Generator) drawKind(level catalog.TopLevel) catalog.QueryKind {
	kinds := g.catalogue.KindsIn(level)
	total := 0
	for _, k := range kinds {
		total += k.Weight
	}
	if total == 0 {
		return kinds[g.rng.Intn(len(kinds))]
	}
	roll := g.rng.Intn(total)
	for _, k := range kinds {
		if roll < k.Weight {
			return k
		}
		roll -= k.Weight
	}
	return kinds[len(kinds)-1]
}

func (g *Generator) bind(kind catalog.QueryKind) RequestPlan {
	switch kind.ParamSlot {
	case catalog.ParamIdentifierAir:
		return RequestPlan{Kind: kind, Value: g.selector.PickIdentifier(dataset.TagModeS)}
	case catalog.ParamIdentifierSea:
		return RequestPlan{Kind: kind, Value: g.selector.PickIdentifier(dataset.TagMMSI)}
	case catalog.ParamCountry:
		return RequestPlan{Kind: kind, Value: g.selector.PickCountry()}
	case catalog.ParamWritePayload:
		payload := g.selector.PickWritePayload(kind.ID)
		return RequestPlan{Kind: kind, Payload: &payload}
	default:
		return RequestPlan{Kind: kind}
	}
}
