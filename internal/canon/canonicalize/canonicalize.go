// Package canonicalize implements phase 2 of canonicalization: turn a
// winning DisambiguatedSense into an OntologyNode, deciding whether
// cross-tier propagation, hypernym collapse, or the sense's own label
// supplies the concept_id, then writing every known form of the term
// into the shared synonym registry.
package canonicalize

import (
	"context"
	"strings"
	"sync"

	"github.com/canonengine/canonengine/internal/canon/lexical"
	"github.com/canonengine/canonengine/internal/canon/model"
	"github.com/canonengine/canonengine/internal/canon/preprocess"
	"github.com/canonengine/canonengine/internal/logger"
	"github.com/canonengine/canonengine/internal/utils"
)

// abstractParents blocks hypernym-collapse onto overly general
// concepts; collapsing onto any of these would merge unrelated terms
// under a near-meaningless parent.
var abstractParents = map[string]struct{}{
	"entity": {}, "object": {}, "abstraction": {}, "thing": {}, "whole": {},
	"matter": {}, "substance": {}, "unit": {}, "artifact": {}, "science": {},
	"discipline": {}, "study": {}, "activity": {}, "work": {}, "act": {},
	"action": {}, "physical_entity": {},
}

// WikidataAliasCache is the offline "P8814" mapping from WordNet synset
// id to Wikidata aliases. A nil or empty cache makes the enrichment
// step a no-op.
type WikidataAliasCache interface {
	AliasesFor(synsetID string) ([]string, bool)
}

// BabelNetSynonymLookup is the narrow surface Canonicalizer needs for
// step 2's BabelNet-synonym enrichment.
type BabelNetSynonymLookup interface {
	GetSynonyms(ctx context.Context, term string) []string
}

// Canonicalizer holds the optional enrichment sources and the
// per-process hypernym sibling-consolidation counter (Rule B).
type Canonicalizer struct {
	log *logger.Logger

	wikidataAliases WikidataAliasCache    // nil disables step 1
	babelnet        BabelNetSynonymLookup // nil disables step 2
	wordnet         *lexical.WordNetSource

	minSiblings int

	mu            sync.Mutex
	hypernymUsage map[string]int
}

func NewCanonicalizer(log *logger.Logger, wikidataAliases WikidataAliasCache, babelnet BabelNetSynonymLookup, wordnet *lexical.WordNetSource) *Canonicalizer {
	log = log.With("component", "canonicalize.Canonicalizer")
	return &Canonicalizer{
		log:             log,
		wikidataAliases: wikidataAliases,
		babelnet:        babelnet,
		wordnet:         wordnet,
		minSiblings:     int(utils.GetEnvAsFloat("HYPERNYM_MIN_SIBLINGS", 1, log)),
		hypernymUsage:   make(map[string]int),
	}
}

// Canonicalize converts sense into an OntologyNode and writes every
// known form of originalTerm and the sense into registry under both
// normalization forms (first-writer-wins).
func (c *Canonicalizer) Canonicalize(ctx context.Context, sense *model.DisambiguatedSense, originalTerm string, attributeKey *string, registry *model.SynonymRegistry) *model.OntologyNode {
	working := *sense // local copy; enrichment must not mutate the caller's sense

	c.enrichWikidataAliases(&working)
	c.enrichBabelNetSynonyms(ctx, &working)

	conceptID, reused := c.crossTierConceptID(registry, working.AllForms)
	if !reused {
		if c.shouldCollapseToHypernym(ctx, &working, originalTerm) {
			hyperLabel := normalizeConceptLabel(working.Hypernyms[0])
			c.bumpHypernymUsage(hyperLabel)
			conceptID = hyperLabel
		} else {
			conceptID = conceptIDForSense(&working)
		}
	}

	conceptPath := buildConceptPath(conceptID, attributeKey, working.Hypernyms)

	c.registerAllForms(registry, originalTerm, &working, conceptID)

	conceptRoot := conceptID
	if attributeKey != nil && *attributeKey != "" {
		conceptRoot = strings.ToLower(*attributeKey)
	}

	confidence := 0.7
	if working.Score > 0 {
		confidence = working.Score + 0.3
		if confidence > 1.0 {
			confidence = 1.0
		}
	}

	parents := make([]string, len(working.Hypernyms))
	for i, h := range working.Hypernyms {
		parents[i] = strings.ToLower(h)
	}

	siblings := make([]string, 0, len(working.AllForms))
	for _, f := range working.AllForms {
		lf := strings.ToLower(f)
		if lf != conceptID {
			siblings = append(siblings, lf)
		}
	}

	return &model.OntologyNode{
		ConceptID:   conceptID,
		ConceptRoot: conceptRoot,
		ConceptPath: conceptPath,
		Parents:     parents,
		Children:    nil,
		Siblings:    siblings,
		Source:      string(working.Source),
		Confidence:  confidence,
	}
}

// enrichWikidataAliases adds Wikidata aliases to WordNet senses via the
// offline P8814 mapping. No-op for non-WordNet senses or a missing
// cache.
func (c *Canonicalizer) enrichWikidataAliases(sense *model.DisambiguatedSense) {
	defer func() { recover() }()

	if c.wikidataAliases == nil || sense.Source != lexical.SourceWordNet {
		return
	}
	aliases, ok := c.wikidataAliases.AliasesFor(sense.SourceID)
	if !ok || len(aliases) == 0 {
		return
	}
	sense.AllForms = dedupeMerge(sense.AllForms, aliases)
}

// enrichBabelNetSynonyms adds BabelNet synonyms for richer synonym
// coverage. No-op when no BabelNet client is configured (API key
// absent).
func (c *Canonicalizer) enrichBabelNetSynonyms(ctx context.Context, sense *model.DisambiguatedSense) {
	defer func() { recover() }()

	if c.babelnet == nil {
		return
	}
	synonyms := c.babelnet.GetSynonyms(ctx, sense.ResolvedForm)
	if len(synonyms) == 0 {
		return
	}
	sense.AllForms = dedupeMerge(sense.AllForms, synonyms)
}

// crossTierConceptID checks every form (under both normalization forms)
// against the registry, reusing the first match found.
func (c *Canonicalizer) crossTierConceptID(registry *model.SynonymRegistry, allForms []string) (string, bool) {
	for _, form := range allForms {
		if id, ok := registry.Lookup(form); ok {
			return id, true
		}
	}
	return "", false
}

// shouldCollapseToHypernym implements the disjunction of Rule A (literal
// synonym in the hypernym's lemma set) and Rule B (sibling
// consolidation), gated by the abstract-parent safety blocklist. Rule C
// (semantic similarity) stays disabled: it is a known over-collapse
// hazard (e.g. dentist -> medical practitioner).
func (c *Canonicalizer) shouldCollapseToHypernym(ctx context.Context, sense *model.DisambiguatedSense, originalTerm string) bool {
	if len(sense.Hypernyms) == 0 {
		return false
	}
	hyperLabel := normalizeConceptLabel(sense.Hypernyms[0])
	// The blocklist keys multiword labels with underscores
	// ("physical_entity"), so membership is checked on that form.
	if _, blocked := abstractParents[strings.ReplaceAll(hyperLabel, " ", "_")]; blocked {
		return false
	}

	if sense.Source == lexical.SourceWordNet && c.wordnet != nil {
		for _, parent := range c.wordnet.SynsetsForHypernymLabel(sense.Hypernyms[0]) {
			if c.wordnet.LemmasContain(parent.ID, originalTerm) {
				return true
			}
		}
	}

	return c.hypernymUsageCount(hyperLabel) >= c.minSiblings
}

func (c *Canonicalizer) hypernymUsageCount(label string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hypernymUsage[label]
}

func (c *Canonicalizer) bumpHypernymUsage(label string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hypernymUsage[label]++
}

// registerAllForms writes originalTerm, resolvedForm, and every member
// of all_forms into the registry under both normalization forms, plus
// the concept_id itself when it isn't a bare synset/source id.
func (c *Canonicalizer) registerAllForms(registry *model.SynonymRegistry, originalTerm string, sense *model.DisambiguatedSense, conceptID string) {
	registry.Bind(originalTerm, conceptID)
	registry.Bind(sense.ResolvedForm, conceptID)
	for _, form := range sense.AllForms {
		registry.Bind(form, conceptID)
	}
	if !looksLikeSourceID(conceptID) {
		registry.Bind(conceptID, conceptID)
	}
}

// conceptIDForSense assigns the non-collapse concept id: the synset
// offset+POS for WordNet, the source id (lowercased) for Wikidata and
// BabelNet, and the lowercased resolved form otherwise or when the
// source id is missing.
func conceptIDForSense(sense *model.DisambiguatedSense) string {
	switch sense.Source {
	case lexical.SourceWordNet, lexical.SourceWikidata, lexical.SourceBabelNet:
		if sense.SourceID != "" {
			return strings.ToLower(sense.SourceID)
		}
	}
	return normalizeConceptLabel(sense.ResolvedForm)
}

func looksLikeSourceID(conceptID string) bool {
	stripped := strings.NewReplacer("-", "", "bn:", "", "mw:", "").Replace(conceptID)
	if stripped == "" {
		return false
	}
	for _, r := range stripped {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func normalizeConceptLabel(label string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(label), "_", " "))
}

func dedupeMerge(existing, extra []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(extra))
	out := make([]string, 0, len(existing)+len(extra))
	for _, v := range existing {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	for _, v := range extra {
		lv := strings.ToLower(v)
		if _, ok := seen[lv]; ok {
			continue
		}
		seen[lv] = struct{}{}
		out = append(out, lv)
	}
	return out
}

// buildConceptPath constructs [attribute_key?, ...hypernym_labels,
// concept_id] with duplicates removed, first occurrence preserved, all
// lowercased.
func buildConceptPath(conceptID string, attributeKey *string, hypernyms []string) []string {
	var path []string
	if attributeKey != nil && *attributeKey != "" {
		path = append(path, strings.ToLower(*attributeKey))
	}
	for _, h := range hypernyms {
		path = append(path, normalizeConceptLabel(h))
	}
	path = append(path, conceptID)
	return model.DedupPreserveFirst(path)
}

// NormalizeForRegistryLookup re-exports preprocess's key-normalization
// so callers outside this package can compute the same registry keys
// without importing preprocess directly.
func NormalizeForRegistryLookup(s string) string {
	return preprocess.NormalizeForRegistryLookup(s)
}
