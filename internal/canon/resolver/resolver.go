// Package resolver implements the categorical resolver: the public
// facade wiring preprocess -> disambiguate -> canonicalize,
// consulting the synonym registry and ontology store, and exposing the
// is_ancestor relation the matcher's semantic_implies contract depends
// on.
package resolver

import (
	"context"
	"strings"

	"github.com/canonengine/canonengine/internal/canon/canonicalize"
	"github.com/canonengine/canonengine/internal/canon/dicts"
	"github.com/canonengine/canonengine/internal/canon/disambiguate"
	"github.com/canonengine/canonengine/internal/canon/lexical"
	"github.com/canonengine/canonengine/internal/canon/model"
	"github.com/canonengine/canonengine/internal/canon/ontology"
	"github.com/canonengine/canonengine/internal/canon/preprocess"
	"github.com/canonengine/canonengine/internal/logger"
)

const defaultAncestorMaxDepth = 5

// Resolver is the categorical resolver facade. It owns the process-wide
// SynonymRegistry and ConceptPaths (seeded from the ontology store at
// startup) and orchestrates the three-phase pipeline for each value.
type Resolver struct {
	log *logger.Logger

	registry *model.SynonymRegistry
	paths    *model.ConceptPaths
	store    *ontology.Store

	disambiguator *disambiguate.Disambiguator
	canonicalizer *canonicalize.Canonicalizer
	wordnet       *lexical.WordNetSource
	wikidata      lexical.Source // optional third ancestor strategy (P31/P279 walk)

	ancestorMaxDepth int
}

func New(
	log *logger.Logger,
	registry *model.SynonymRegistry,
	paths *model.ConceptPaths,
	store *ontology.Store,
	disambiguator *disambiguate.Disambiguator,
	canonicalizer *canonicalize.Canonicalizer,
	wordnet *lexical.WordNetSource,
	wikidata lexical.Source,
) *Resolver {
	return &Resolver{
		log:              log.With("component", "resolver.Resolver"),
		registry:         registry,
		paths:            paths,
		store:            store,
		disambiguator:    disambiguator,
		canonicalizer:    canonicalizer,
		wordnet:          wordnet,
		wikidata:         wikidata,
		ancestorMaxDepth: defaultAncestorMaxDepth,
	}
}

// Resolve turns one free-form value into an OntologyNode:
// preprocess, registry lookup under both normalization forms,
// disambiguate-or-fallback, canonicalize, cache the path, buffer to the
// store.
func (r *Resolver) Resolve(ctx context.Context, value string, contextStr string, attributeKey *string) *model.OntologyNode {
	preprocessed := preprocess.Preprocess(value, attributeKey)

	if conceptID, ok := r.registry.Lookup(preprocessed); ok {
		path, known := r.paths.Get(conceptID)
		if !known {
			path = syntheticPath(attributeKey, conceptID)
		}
		return &model.OntologyNode{
			ConceptID:   conceptID,
			ConceptRoot: conceptRoot(attributeKey, conceptID),
			ConceptPath: path,
			Source:      model.SourceSynonymRegistry,
			Confidence:  1.0,
		}
	}

	sense, ok := r.disambiguator.Disambiguate(ctx, preprocessed, contextStr)
	if !ok {
		node := r.fallbackNode(preprocessed, attributeKey)
		r.paths.Set(node.ConceptID, node.ConceptPath)
		return node
	}

	node := r.canonicalizer.Canonicalize(ctx, sense, preprocessed, attributeKey, r.registry)
	r.paths.Set(node.ConceptID, node.ConceptPath)
	r.store.BufferConcept(node.ConceptID, node.ConceptPath, allSynonymForms(node, sense), node.Source, node.Confidence)
	return node
}

func allSynonymForms(node *model.OntologyNode, sense *model.DisambiguatedSense) []string {
	out := make([]string, 0, len(sense.AllForms)+1)
	out = append(out, sense.AllForms...)
	out = append(out, sense.ResolvedForm)
	return out
}

func (r *Resolver) fallbackNode(preprocessed string, attributeKey *string) *model.OntologyNode {
	conceptID := strings.ToLower(preprocessed)
	return &model.OntologyNode{
		ConceptID:   conceptID,
		ConceptRoot: conceptRoot(attributeKey, conceptID),
		ConceptPath: syntheticPath(attributeKey, conceptID),
		Source:      model.SourceFallback,
		Confidence:  0.3,
	}
}

func conceptRoot(attributeKey *string, conceptID string) string {
	if attributeKey != nil && *attributeKey != "" {
		return strings.ToLower(*attributeKey)
	}
	return conceptID
}

// syntheticPath builds [attribute_key?, ...known_parents, concept_id]
// for values that never went through a lexical source, consulting the
// static attribute-value hierarchy so e.g. a condition grade keeps
// "used" between the attribute and itself.
func syntheticPath(attributeKey *string, conceptID string) []string {
	var path []string
	if attributeKey != nil && *attributeKey != "" {
		attr := strings.ToLower(*attributeKey)
		path = append(path, attr)
		path = append(path, dicts.ValueParents(attr, conceptID)...)
	}
	path = append(path, conceptID)
	return model.DedupPreserveFirst(path)
}

// IsAncestor reports whether ancestor is a super-category of conceptID,
// trying the stored-path strategy first, then the WordNet
// lexical-hierarchy strategy, then the Wikidata P31/P279 walk — the
// last two measured from conceptID toward the root. Any internal error
// is caught and reported as false.
func (r *Resolver) IsAncestor(ctx context.Context, ancestor, conceptID string, maxDepth int) (result bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Warn("is_ancestor panicked, reporting false", "recovered", rec)
			result = false
		}
	}()

	if maxDepth <= 0 {
		maxDepth = r.ancestorMaxDepth
	}

	if ancestor == conceptID {
		return true
	}

	if path, ok := r.paths.Get(conceptID); ok {
		if pathContainsBefore(path, ancestor, conceptID) {
			return true
		}
	}

	if r.wordnet != nil && r.wordnet.HypernymPathContains(ctx, ancestor, conceptID, maxDepth) {
		return true
	}
	if r.wikidata != nil {
		return r.wikidata.IsSubclassOf(ctx, conceptID, ancestor, maxDepth)
	}
	return false
}

// pathContainsBefore reports whether ancestor appears strictly earlier
// than target in path.
func pathContainsBefore(path []string, ancestor, target string) bool {
	for _, p := range path {
		if p == ancestor {
			return true
		}
		if p == target {
			return false
		}
	}
	return false
}

// SemanticImplies is the resolver-side half of the matcher's
// semantic_implies(candidate_id, required_id) contract: A implies B iff
// A == B, A is a registered synonym of B (i.e. both
// resolve to the same concept_id through the registry), or B
// is_ancestor A.
func (r *Resolver) SemanticImplies(ctx context.Context, candidateID, requiredID string) bool {
	if candidateID == requiredID {
		return true
	}
	if resolvedCandidate, ok := r.registry.Lookup(candidateID); ok {
		if resolvedCandidate == requiredID {
			return true
		}
		if resolvedRequired, ok := r.registry.Lookup(requiredID); ok && resolvedCandidate == resolvedRequired {
			return true
		}
	}
	return r.IsAncestor(ctx, requiredID, candidateID, 0)
}

// MatchScope controls whether to_schema_format marks a node so the
// downstream matcher should include descendants when matching.
type MatchScope string

const (
	MatchScopeExact              MatchScope = "exact"
	MatchScopeIncludeDescendants MatchScope = "include_descendants"
)

// SchemaNode is the shape to_schema_format produces for downstream
// persistence.
type SchemaNode struct {
	ConceptID   string     `json:"concept_id"`
	ConceptRoot string     `json:"concept_root"`
	ConceptPath []string   `json:"concept_path"`
	Parents     []string   `json:"parents"`
	Children    []string   `json:"children"`
	Siblings    []string   `json:"siblings"`
	Source      string     `json:"source"`
	Confidence  float64    `json:"confidence"`
	MatchScope  MatchScope `json:"match_scope"`
}

// ToSchemaFormat shapes node for downstream persistence.
func (r *Resolver) ToSchemaFormat(node *model.OntologyNode, matchScope MatchScope) SchemaNode {
	if matchScope == "" {
		matchScope = MatchScopeExact
	}
	return SchemaNode{
		ConceptID:   node.ConceptID,
		ConceptRoot: node.ConceptRoot,
		ConceptPath: node.ConceptPath,
		Parents:     node.Parents,
		Children:    node.Children,
		Siblings:    node.Siblings,
		Source:      node.Source,
		Confidence:  node.Confidence,
		MatchScope:  matchScope,
	}
}
