// Package dataset supplies concrete parameter values — identifiers,
// countries, write payloads — for request generation. It is grounded on the
// same pattern the knowledge-base stress tooling uses for realistic access
// sampling: a mutex-guarded *rand.Rand seeded once at construction, so every
// draw is reproducible end to end when the Selector is given an explicit
// seed (spec.md §3 determinism invariant).
package dataset

import (
	"fmt"
	"math/rand"
	"sync"

	"benchkit/common"

	"gopkg.in/yaml.v3"

	"os"
)

// Pool holds the curated parameter values loaded from a pool file.
type Pool struct {
	ModeS   []string `yaml:"mode_s"`
	MMSI    []string `yaml:"mmsi"`
	Country []string `yaml:"country"`
}

// Selector provides realistic parameter values for request generation
// (spec.md §4.1). It never fails silently: an empty pool for a tag falls
// back to the synthetic generator and flips SyntheticDataUsed.
type Selector struct {
	mu   sync.Mutex
	rng  *rand.Rand
	pool Pool

	// SyntheticDataUsed is set once any pool lookup falls back to the
	// synthetic generator. Surfaced in session metadata.
	SyntheticDataUsed bool

	log *common.ContextLogger
}

// New builds a Selector seeded deterministically. Two selectors built with
// the same seed and the same pool produce identical draw sequences.
func New(seed int64, pool Pool, log *common.ContextLogger) *Selector {
	if log == nil {
		log = common.NewContextLogger(nil, nil)
	}
	return &Selector{
		rng:  rand.New(rand.NewSource(seed)),
		pool: pool,
		log:  log,
	}
}

// LoadPool reads a YAML pool file with top-level keys mode_s, mmsi, country
// (SPEC_FULL.md §4.1–4.8). A file that cannot be read (missing or
// otherwise) is not an error: a warning is logged and ok=false is returned,
// and a Selector given the empty Pool falls back to synthetic generation
// for every tag. Only a file that fails to parse returns an error.
func LoadPool(path string, log *common.ContextLogger) (Pool, bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if log != nil {
			log.WithField("path", path).Warn("dataset pool file missing, using synthetic fallback")
		}
		return Pool{}, false, nil
	}

	var pool Pool
	if err := yaml.Unmarshal(raw, &pool); err != nil {
		return Pool{}, false, fmt.Errorf("parsing dataset pool file %s: %w", path, err)
	}
	return pool, true, nil
}

// PickIdentifier returns an identifier for the given param slot (air or
// sea). Falls back to a synthetic value when the corresponding pool is
// empty.
func (s *Selector) PickIdentifier(kindTag string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch kindTag {
	case "air":
		if len(s.pool.ModeS) > 0 {
			return s.pool.ModeS[s.rng.Intn(len(s.pool.ModeS))]
		}
		s.flagSynthetic()
		return fmt.Sprintf("A%05d", s.rng.Intn(100000))
	case "sea":
		if len(s.pool.MMSI) > 0 {
			return s.pool.MMSI[s.rng.Intn(len(s.pool.MMSI))]
		}
		s.flagSynthetic()
		return fmt.Sprintf("%09d", s.rng.Intn(1000000000))
	default:
		s.flagSynthetic()
		return fmt.Sprintf("A%05d", s.rng.Intn(100000))
	}
}

// PickCountry returns a country code drawn from the pool, or a small
// synthetic set when the pool is empty.
func (s *Selector) PickCountry() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pool.Country) > 0 {
		return s.pool.Country[s.rng.Intn(len(s.pool.Country))]
	}
	s.flagSynthetic()
	synthetic := []string{"US", "DE", "FR", "GB", "JP", "AU", "BR", "IN"}
	return synthetic[s.rng.Intn(len(synthetic))]
}

// PickWritePayload returns a semantically valid JSON body for a write
// endpoint tagged kindTag.
func (s *Selector) PickWritePayload(kindTag string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.rng.Intn(100000)
	return fmt.Sprintf(`{"kind":%q,"id":%d,"value":%d}`, kindTag, id, s.rng.Intn(1000))
}

// flagSynthetic marks that a fallback occurred. Caller must hold s.mu.
func (s *Selector) flagSynthetic() {
	if !s.SyntheticDataUsed {
		s.SyntheticDataUsed = true
		if s.log != nil {
			s.log.Warn("dataset pool exhausted for a requested tag, using synthetic fallback")
		}
	}
}
