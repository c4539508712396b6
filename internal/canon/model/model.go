// Package model holds the canonicalization engine's shared data types —
// CandidateSense, DisambiguatedSense, OntologyNode, and the process-wide
// SynonymRegistry — so that scoring, disambiguate, canonicalize, and
// resolver can all depend on one definition without import cycles.
package model

import (
	"strings"
	"sync"

	"github.com/canonengine/canonengine/internal/canon/lexical"
	"github.com/canonengine/canonengine/internal/canon/preprocess"
)

// CandidateSense is one possible meaning of a term from one lexical
// source, gathered during disambiguation and scored by the hybrid
// scorer.
type CandidateSense struct {
	Source    lexical.SourceTag
	SourceID  string
	Label     string
	Gloss     string
	AllForms  []string
	Hypernyms []string
	Score     float64
}

// DisambiguatedSense is the phase-1 winner: the same fields as
// CandidateSense, with Label's surface-form ambiguity resolved into
// ResolvedForm (the original term that was actually disambiguated).
type DisambiguatedSense struct {
	Source       lexical.SourceTag
	SourceID     string
	ResolvedForm string
	Gloss        string
	AllForms     []string
	Hypernyms    []string
	Score        float64
}

// OntologyNode is the canonical output of phase 2 (canonicalization).
type OntologyNode struct {
	ConceptID   string
	ConceptRoot string
	ConceptPath []string
	Parents     []string
	Children    []string
	Siblings    []string
	Source      string
	Confidence  float64
}

const (
	SourceSynonymRegistry = "synonym_registry"
	SourceFallback        = "fallback"
)

// SynonymRegistry is the process-wide alias->concept_id map, keyed under
// both the lowercase+trim form and the compound-normalized form
// preprocess.NormalizeForRegistryLookup defines. Bind is
// first-writer-wins per form: a form that is already bound keeps its
// concept_id, and later Binds only fill forms that are still unbound.
type SynonymRegistry struct {
	mu     sync.RWMutex
	byForm map[string]string // lowercase+trim -> concept_id
	byNorm map[string]string // compound-normalized -> concept_id
}

func NewSynonymRegistry() *SynonymRegistry {
	return &SynonymRegistry{
		byForm: make(map[string]string),
		byNorm: make(map[string]string),
	}
}

func lowerTrim(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Lookup checks both normalization forms and reports the bound
// concept_id, if any. The plain lowercase+trim form is checked first.
func (r *SynonymRegistry) Lookup(alias string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if id, ok := r.byForm[lowerTrim(alias)]; ok {
		return id, true
	}
	if id, ok := r.byNorm[preprocess.NormalizeForRegistryLookup(alias)]; ok {
		return id, true
	}
	return "", false
}

// Bind registers alias -> conceptID under both normalization forms. Each
// form is written only if it is still unbound (first writer wins): a
// form that is already bound is left as it is, while the other form is
// still written if it is free.
func (r *SynonymRegistry) Bind(alias, conceptID string) {
	if alias == "" || conceptID == "" {
		return
	}
	formKey := lowerTrim(alias)
	normKey := preprocess.NormalizeForRegistryLookup(alias)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byForm[formKey]; !ok {
		r.byForm[formKey] = conceptID
	}
	if _, ok := r.byNorm[normKey]; !ok {
		r.byNorm[normKey] = conceptID
	}
}

// Unbind removes alias from both forms — the only method by which a
// registry entry is ever removed.
func (r *SynonymRegistry) Unbind(alias string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byForm, lowerTrim(alias))
	delete(r.byNorm, preprocess.NormalizeForRegistryLookup(alias))
}

// Len reports the number of distinct lowercase+trim aliases bound, used
// by operability stats endpoints.
func (r *SynonymRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byForm)
}

// ConceptPaths is the process-local concept_id -> concept_path cache,
// populated from the persistent store at startup and written by the
// resolver after every resolve that reaches the canonicalizer or the
// fallback node.
type ConceptPaths struct {
	mu    sync.RWMutex
	paths map[string][]string
}

func NewConceptPaths() *ConceptPaths {
	return &ConceptPaths{paths: make(map[string][]string)}
}

func (c *ConceptPaths) Get(conceptID string) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.paths[conceptID]
	return p, ok
}

func (c *ConceptPaths) Set(conceptID string, path []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paths[conceptID] = path
}

func (c *ConceptPaths) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.paths)
}

// DedupPreserveFirst collapses duplicate entries in path, keeping only
// the first occurrence of each value — the concept_path construction
// rule (OntologyNode.ConceptPath).
func DedupPreserveFirst(path []string) []string {
	seen := make(map[string]struct{}, len(path))
	out := make([]string, 0, len(path))
	for _, p := range path {
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
