// Package workload produces the lazy RequestPlan sequence the Concurrent
// Executor consumes, drawing from a catalogue.Catalogue by weighted choice
// according to a catalogue.MixPattern and binding parameters through a
// dataset.Selector (spec.md §4.3).
package workload

import (
	"math/rand"

	"benchkit/benchkiterr"
	"benchkit/catalogue"
	"benchkit/dataset"
)

// RequestPlan is a QueryKind reference with concrete bound parameter values
// and a sequence ordinal. Emitted by the Generator, consumed once by the
// executor, then discarded.
type RequestPlan struct {
	Ordinal  int
	Kind     catalogue.QueryKind
	Value    string // the bound {v} path parameter, empty for write kinds
	Body     string // the bound JSON body, only set for write kinds
}

// Generator produces a finite, restartable-only-by-fresh-construction
// sequence of RequestPlans of exact length Budget.
type Generator struct {
	catalogue *catalogue.Catalogue
	pattern   catalogue.MixPattern
	selector  *dataset.Selector
	budget    int
	rng       *rand.Rand
}

// New validates the pattern and budget and builds a Generator.
// Budget must be a positive integer (spec.md §4.3 InvalidPattern).
func New(cat *catalogue.Catalogue, pattern catalogue.MixPattern, selector *dataset.Selector, budget int, seed int64) (*Generator, error) {
	if err := pattern.Validate(); err != nil {
		return nil, err
	}
	if budget <= 0 {
		return nil, benchkiterr.Usagef("request budget must be positive, got %d", budget)
	}
	return &Generator{
		catalogue: cat,
		pattern:   pattern,
		selector:  selector,
		budget:    budget,
		rng:       rand.New(rand.NewSource(seed)),
	}, nil
}

// Budget returns the total number of plans this generator will emit.
func (g *Generator) Budget() int { return g.budget }

// Generate emits exactly Budget RequestPlans onto the returned channel, then
// closes it. The channel is unbuffered beyond a small lookahead so the
// executor's backpressure (spec.md §5) governs how far generation runs
// ahead of consumption.
func (g *Generator) Generate() <-chan RequestPlan {
	out := make(chan RequestPlan)
	go func() {
		defer close(out)
		for i := 0; i < g.budget; i++ {
			out <- g.next(i)
		}
	}()
	return out
}

func (g *Generator) next(ordinal int) RequestPlan {
	top := g.drawTopLevel()
	kind := g.drawKind(top)
	return g.bind(ordinal, kind)
}

// drawTopLevel performs the weighted choice over {lookup, analytics, write}
// described in spec.md §4.3 step 1.
func (g *Generator) drawTopLevel() catalogue.TopLevel {
	r := g.rng.Intn(100)
	if r < g.pattern.Lookup {
		return catalogue.TopLevelLookup
	}
	r -= g.pattern.Lookup
	if r < g.pattern.Analytics {
		return catalogue.TopLevelAnalytics
	}
	return catalogue.TopLevelWrite
}

// drawKind performs step 2: within the chosen top-level category, draw a
// specific QueryKind. When the catalogue defines sub-weights for the
// top-level category (currently only analytics), first draw a Category by
// those weights, then uniformly among the kinds in it. Categories with no
// kind in the catalogue (six_hop in the builtin set) are left out of that
// draw, so their share goes to the others in proportion. Otherwise draw
// uniformly among every kind under the top-level category.
func (g *Generator) drawKind(top catalogue.TopLevel) catalogue.QueryKind {
	subWeights := g.catalogue.CategoryWeights(top)
	if len(subWeights) > 0 {
		cat := g.drawCategory(subWeights)
		kinds := g.catalogue.KindsForCategory(cat)
		return kinds[g.rng.Intn(len(kinds))]
	}

	kinds := g.catalogue.KindsForTopLevel(top)
	return kinds[g.rng.Intn(len(kinds))]
}

func (g *Generator) drawCategory(weights map[catalogue.Category]int) catalogue.Category {
	order := []catalogue.Category{catalogue.CategoryTwoHop, catalogue.CategoryThreeHop, catalogue.CategorySixHop}
	total := 0
	for _, cat := range order {
		if len(g.catalogue.KindsForCategory(cat)) > 0 {
			total += weights[cat]
		}
	}
	r := g.rng.Intn(total)
	// Iterate in a stable order so the same seed always yields the same
	// sequence regardless of Go's randomised map iteration.
	for _, cat := range order {
		w, ok := weights[cat]
		if !ok || len(g.catalogue.KindsForCategory(cat)) == 0 {
			continue
		}
		if r < w {
			return cat
		}
		r -= w
	}
	return catalogue.CategoryTwoHop
}

// bind fills a QueryKind's parameter slot via the Dataset Selector.
func (g *Generator) bind(ordinal int, kind catalogue.QueryKind) RequestPlan {
	plan := RequestPlan{Ordinal: ordinal, Kind: kind}

	switch kind.ParamSlot {
	case catalogue.ParamIdentifierAir:
		plan.Value = g.selector.PickIdentifier("air")
	case catalogue.ParamIdentifierSea:
		plan.Value = g.selector.PickIdentifier("sea")
	case catalogue.ParamCountry:
		plan.Value = g.selector.PickCountry()
	case catalogue.ParamWritePayload:
		plan.Body = g.selector.PickWritePayload(kind.ID)
	}

	return plan
}
