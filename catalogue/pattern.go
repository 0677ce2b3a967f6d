package catalogue

import (
	"fmt"
	"os"

	"benchkit/benchkiterr"

	"gopkg.in/yaml.v3"
)

// MixPattern is a named, non-negative weighting over the three top-level
// categories. Weights sum to 100 (spec.md §3).
type MixPattern struct {
	Name      string `yaml:"name"`
	Lookup    int    `yaml:"lookup"`
	Analytics int    `yaml:"analytics"`
	Write     int    `yaml:"write"`
}

// Weight returns the pattern's weight for a top-level category.
func (p MixPattern) Weight(top TopLevel) int {
	switch top {
	case TopLevelLookup:
		return p.Lookup
	case TopLevelAnalytics:
		return p.Analytics
	case TopLevelWrite:
		return p.Write
	default:
		return 0
	}
}

// Validate enforces the MixPattern invariants: weights sum to exactly 100,
// and no weight is negative. Returns a benchkiterr KindUsage error
// ("InvalidPattern" in spec.md terms) on violation.
func (p MixPattern) Validate() error {
	if p.Lookup < 0 || p.Analytics < 0 || p.Write < 0 {
		return benchkiterr.Usagef("invalid pattern %q: weights must be non-negative", p.Name)
	}
	sum := p.Lookup + p.Analytics + p.Write
	if sum != 100 {
		return benchkiterr.Usagef("invalid pattern %q: weights sum to %d, must sum to 100", p.Name, sum)
	}
	return nil
}

// BuiltinPatterns is the verbatim named-pattern list from spec.md §4.3.
var BuiltinPatterns = map[string]MixPattern{
	"lookup-95":    {Name: "lookup-95", Lookup: 95, Analytics: 4, Write: 1},
	"lookup-90":    {Name: "lookup-90", Lookup: 90, Analytics: 8, Write: 2},
	"lookup-85":    {Name: "lookup-85", Lookup: 85, Analytics: 12, Write: 3},
	"lookup-80":    {Name: "lookup-80", Lookup: 80, Analytics: 15, Write: 5},
	"lookup-75":    {Name: "lookup-75", Lookup: 75, Analytics: 20, Write: 5},
	"balanced-60":  {Name: "balanced-60", Lookup: 60, Analytics: 35, Write: 5},
	"balanced-50":  {Name: "balanced-50", Lookup: 50, Analytics: 40, Write: 10},
	"balanced-40":  {Name: "balanced-40", Lookup: 40, Analytics: 45, Write: 15},
	"analytics-30": {Name: "analytics-30", Lookup: 30, Analytics: 60, Write: 10},
	"analytics-20": {Name: "analytics-20", Lookup: 20, Analytics: 70, Write: 10},
	"analytics-10": {Name: "analytics-10", Lookup: 10, Analytics: 80, Write: 10},
	"write-30":     {Name: "write-30", Lookup: 50, Analytics: 20, Write: 30},
	"write-40":     {Name: "write-40", Lookup: 40, Analytics: 20, Write: 40},
	"write-50":     {Name: "write-50", Lookup: 30, Analytics: 20, Write: 50},
}

// LookupPattern resolves a built-in pattern by name.
func LookupPattern(name string) (MixPattern, error) {
	p, ok := BuiltinPatterns[name]
	if !ok {
		return MixPattern{}, benchkiterr.Usagef("unknown mix pattern %q", name)
	}
	return p, nil
}

// LoadPatternFile parses an ad-hoc mix pattern from a YAML file with
// top-level keys name/lookup/analytics/write (spec.md §6.2 "--pattern
// <name>... or an ad-hoc spec"). The pattern is validated before return.
func LoadPatternFile(path string) (MixPattern, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return MixPattern{}, benchkiterr.Wrap(benchkiterr.KindUsage, fmt.Sprintf("reading pattern file %s", path), err)
	}

	var p MixPattern
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return MixPattern{}, benchkiterr.Wrap(benchkiterr.KindUsage, fmt.Sprintf("parsing pattern file %s", path), err)
	}
	if err := p.Validate(); err != nil {
		return MixPattern{}, err
	}
	return p, nil
}
