// Package catalogue enumerates the QueryKinds a system under test exposes
// and the mix patterns that weight request generation across them. It is
// the leaf dependency of the benchmarking pipeline: the Workload Generator
// draws from it, the Metrics Collector and Threshold Evaluator key their
// state by the kind identifiers it defines.
package catalogue

// Category is one of the six threshold categories a QueryKind belongs to.
type Category string

const (
	CategoryIdentifierLookup  Category = "identifier_lookup"
	CategoryTwoHop            Category = "two_hop"
	CategoryThreeHop          Category = "three_hop"
	CategorySixHop            Category = "six_hop"
	CategoryPropertyWrite     Category = "property_write"
	CategoryRelationshipWrite Category = "relationship_write"
)

// TopLevel is one of the three categories a MixPattern's weights are over.
type TopLevel string

const (
	TopLevelLookup    TopLevel = "lookup"
	TopLevelAnalytics TopLevel = "analytics"
	TopLevelWrite     TopLevel = "write"
)

// ParamSlot names which Dataset Selector operation binds a QueryKind's
// parameter.
type ParamSlot string

const (
	ParamIdentifierAir ParamSlot = "identifier/air"
	ParamIdentifierSea ParamSlot = "identifier/sea"
	ParamCountry       ParamSlot = "country"
	ParamWritePayload  ParamSlot = "write_payload"
)

// QueryKind is a single HTTP operation the SUT exposes, identified by a
// stable string id. Defined at startup, immutable thereafter.
type QueryKind struct {
	ID           string
	Category     Category
	Method       string
	PathTemplate string // contains "{v}" for the bound parameter
	ParamSlot    ParamSlot
}

// Path renders the kind's path template with the bound value and an
// optional db-prefix segment (spec.md §6.2 --db-prefix).
func (k QueryKind) Path(dbPrefix, value string) string {
	path := replaceParam(k.PathTemplate, value)
	if dbPrefix == "" {
		return path
	}
	return "/" + dbPrefix + path
}

func replaceParam(template, value string) string {
	out := make([]byte, 0, len(template)+len(value))
	for i := 0; i < len(template); i++ {
		if i+2 < len(template) && template[i] == '{' && template[i+1] == 'v' && template[i+2] == '}' {
			out = append(out, value...)
			i += 2
			continue
		}
		out = append(out, template[i])
	}
	return string(out)
}

// Builtin is the required set of QueryKinds from spec.md §4.2. An
// implementation may add kinds; it must not omit these.
var Builtin = []QueryKind{
	{ID: "mode_s", Category: CategoryIdentifierLookup, Method: "GET", PathTemplate: "/api/aircraft/mode_s/{v}", ParamSlot: ParamIdentifierAir},
	{ID: "mmsi", Category: CategoryIdentifierLookup, Method: "GET", PathTemplate: "/api/ship/mmsi/{v}", ParamSlot: ParamIdentifierSea},
	{ID: "country_two_hop", Category: CategoryTwoHop, Method: "GET", PathTemplate: "/api/aircraft/country/{v}", ParamSlot: ParamCountry},
	{ID: "cross_domain", Category: CategoryThreeHop, Method: "GET", PathTemplate: "/api/cross-domain/country/{v}", ParamSlot: ParamCountry},
	{ID: "activity_history", Category: CategoryTwoHop, Method: "GET", PathTemplate: "/api/activity/mmsi/{v}", ParamSlot: ParamIdentifierSea},
	{ID: "activity_log", Category: CategoryPropertyWrite, Method: "POST", PathTemplate: "/api/activity/log", ParamSlot: ParamWritePayload},
}

// AnalyticsSubWeights fixes the split within the "analytics" top-level
// category among two_hop/three_hop/six_hop (spec.md §9 Open Question),
// resolved at 60/30/10.
var AnalyticsSubWeights = map[Category]int{
	CategoryTwoHop:   60,
	CategoryThreeHop: 30,
	CategorySixHop:   10,
}

// Catalogue is a set of QueryKinds grouped by their top-level category, used
// by the Workload Generator to perform the two-stage weighted draw described
// in spec.md §4.3: first a TopLevel category, then a QueryKind within it.
type Catalogue struct {
	kinds   []QueryKind
	byID    map[string]QueryKind
	byTop   map[TopLevel][]QueryKind
	byCat   map[Category][]QueryKind
	subWts  map[Category]int
}

// New builds a Catalogue from a set of QueryKinds. Kinds whose Category is
// not one of the six known categories are rejected.
func New(kinds []QueryKind) (*Catalogue, error) {
	c := &Catalogue{
		byID:   make(map[string]QueryKind, len(kinds)),
		byTop:  make(map[TopLevel][]QueryKind),
		byCat:  make(map[Category][]QueryKind),
		subWts: AnalyticsSubWeights,
	}
	for _, k := range kinds {
		top, ok := topLevelOf(k.Category)
		if !ok {
			return nil, &catalogueError{msg: "unknown category: " + string(k.Category)}
		}
		c.kinds = append(c.kinds, k)
		c.byID[k.ID] = k
		c.byTop[top] = append(c.byTop[top], k)
		c.byCat[k.Category] = append(c.byCat[k.Category], k)
	}
	return c, nil
}

// NewBuiltin builds a Catalogue from the required builtin kind set.
func NewBuiltin() *Catalogue {
	c, err := New(Builtin)
	if err != nil {
		// Builtin is a compile-time constant known to be well-formed.
		panic(err)
	}
	return c
}

func topLevelOf(cat Category) (TopLevel, bool) {
	switch cat {
	case CategoryIdentifierLookup:
		return TopLevelLookup, true
	case CategoryTwoHop, CategoryThreeHop, CategorySixHop:
		return TopLevelAnalytics, true
	case CategoryPropertyWrite, CategoryRelationshipWrite:
		return TopLevelWrite, true
	default:
		return "", false
	}
}

// Kinds returns every QueryKind in the catalogue.
func (c *Catalogue) Kinds() []QueryKind { return c.kinds }

// Lookup returns the QueryKind with the given id.
func (c *Catalogue) Lookup(id string) (QueryKind, bool) {
	k, ok := c.byID[id]
	return k, ok
}

// KindsForTopLevel returns all QueryKinds under a top-level category.
func (c *Catalogue) KindsForTopLevel(top TopLevel) []QueryKind {
	return c.byTop[top]
}

// KindsForCategory returns all QueryKinds under a specific category.
func (c *Catalogue) KindsForCategory(cat Category) []QueryKind {
	return c.byCat[cat]
}

// CategoryWeights returns the sub-weights used to draw a QueryKind's
// category within a top-level draw (currently only analytics is split).
func (c *Catalogue) CategoryWeights(top TopLevel) map[Category]int {
	if top != TopLevelAnalytics {
		return nil
	}
	return c.subWts
}

type catalogueError struct{ msg string }

func (e *catalogueError) Error() string { return e.msg }
