// Package lexical defines the uniform adapter contract over the
// canonicalization engine's lexical knowledge bases (WordNet, BabelNet,
// Wikidata, WordsAPI, Datamuse, Merriam-Webster) and implements each
// one. Every adapter is optional at configuration time and never
// returns an error across this boundary — transient failures, missing
// data, and quota exhaustion all degrade to empty/zero results, logged
// internally.
package lexical

import "context"

// SourceTag identifies which lexical knowledge base a CandidateSense or
// SynsetGloss came from.
type SourceTag string

const (
	SourceWordNet        SourceTag = "wordnet"
	SourceWordsAPI       SourceTag = "wordsapi"
	SourceDatamuse       SourceTag = "datamuse"
	SourceWikidata       SourceTag = "wikidata"
	SourceBabelNet       SourceTag = "babelnet"
	SourceMerriamWebster SourceTag = "merriam-webster"
)

// Canonical is the uniform "best single sense" result returned by
// GetCanonical. The disambiguator turns each non-WordNet source's result
// into one candidate; only WordNet's GetCanonical uses the context for a
// gloss-vs-context pick.
type Canonical struct {
	CanonicalID    string
	CanonicalLabel string
	AllForms       []string
	Hypernyms      []string
	Gloss          string
}

// SynsetGloss is one sense of a term, used by the hybrid scorer's
// gather-everything-then-score strategy (the disambiguator reads it from
// WordNet only).
type SynsetGloss struct {
	SynsetID  string
	Gloss     string
	Lemmas    []string
	Hypernyms []string
}

// Source is the trait every lexical adapter implements. New knowledge
// bases plug in here without the disambiguator needing to change.
type Source interface {
	// GetCanonical resolves term to its single best sense, optionally
	// disambiguated against context. Returns ok=false on no match or any
	// internal failure.
	GetCanonical(ctx context.Context, term string, context string) (Canonical, bool)

	// GetGlossesPerSynset returns one entry per distinct sense. WordNet,
	// BabelNet, WordsAPI and Merriam-Webster return entries; Datamuse and
	// Wikidata return nil.
	GetGlossesPerSynset(ctx context.Context, term string) []SynsetGloss

	// GetSynonyms returns deduplicated known surface forms for term.
	GetSynonyms(ctx context.Context, term string) []string

	// GetHypernyms returns parent-concept labels, closest first, up to
	// depth levels up.
	GetHypernyms(ctx context.Context, term string, depth int) []string

	// IsSubclassOf reports whether child is a (possibly transitive)
	// subclass of parent within maxDepth hops.
	IsSubclassOf(ctx context.Context, child, parent string, maxDepth int) bool

	// Tag identifies the source for CandidateSense.Source tagging.
	Tag() SourceTag
}
