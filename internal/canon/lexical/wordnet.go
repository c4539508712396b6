package lexical

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/canonengine/canonengine/internal/logger"
)

// Embedder is the minimal surface the WordNet adapter needs from the
// shared embedding provider (internal/canon/embed) to rank competing
// synsets by gloss-context similarity. Kept as a narrow interface here
// so lexical never imports embed directly (embed, in turn, may depend
// on lexical-free plumbing only).
type Embedder interface {
	Encode(ctx context.Context, text string) ([]float32, error)
}

// WordNetSource is the local (no network) lexical adapter. It never
// fails outward: any internal error yields empty results.
type WordNetSource struct {
	log      *logger.Logger
	embedder Embedder // optional; nil disables gloss-context re-ranking
}

func NewWordNetSource(log *logger.Logger, embedder Embedder) *WordNetSource {
	return &WordNetSource{log: log.With("adapter", "wordnet"), embedder: embedder}
}

func (w *WordNetSource) Tag() SourceTag { return SourceWordNet }

func (w *WordNetSource) synsetsFor(term string) []*wnSynset {
	ids := wnLemmaIndex[normalizeLemma(term)]
	if len(ids) == 0 {
		return nil
	}
	out := make([]*wnSynset, 0, len(ids))
	for _, id := range ids {
		if ss, ok := wordnetSynsets[id]; ok {
			out = append(out, ss)
		}
	}
	// POS preference: nominal/adjectival before verb/adverb, stable
	// otherwise. This avoids classifying item-type tokens as verbs.
	sort.SliceStable(out, func(i, j int) bool {
		return posRank(out[i].POS) < posRank(out[j].POS)
	})
	return out
}

func posRank(pos string) int {
	switch pos {
	case "n", "a", "s":
		return 0
	default:
		return 1
	}
}

func hypernymLabels(ss *wnSynset) []string {
	labels := make([]string, 0, len(ss.Hypernyms))
	for _, hid := range ss.Hypernyms {
		if parent, ok := wordnetSynsets[hid]; ok && len(parent.Lemmas) > 0 {
			labels = append(labels, strings.ReplaceAll(parent.Lemmas[0], "_", " "))
		}
	}
	return labels
}

func allForms(ss *wnSynset) []string {
	forms := make([]string, len(ss.Lemmas))
	for i, l := range ss.Lemmas {
		forms[i] = strings.ReplaceAll(l, "_", " ")
	}
	return forms
}

// GetCanonical picks the single best synset for term. With a non-empty
// context it re-ranks candidate synsets by gloss-context embedding
// cosine similarity; without one it takes the POS-preferred first
// synset.
func (w *WordNetSource) GetCanonical(ctx context.Context, term string, contextStr string) (Canonical, bool) {
	synsets := w.synsetsFor(term)
	if len(synsets) == 0 {
		return Canonical{}, false
	}

	best := synsets[0]
	if contextStr != "" && w.embedder != nil {
		if reranked, ok := w.rerankByGlossContext(ctx, contextStr, synsets); ok {
			best = reranked
		}
	}

	return Canonical{
		CanonicalID:    best.ID,
		CanonicalLabel: strings.ReplaceAll(best.Lemmas[0], "_", " "),
		AllForms:       allForms(best),
		Hypernyms:      hypernymLabels(best),
		Gloss:          best.Gloss,
	}, true
}

func (w *WordNetSource) rerankByGlossContext(ctx context.Context, contextStr string, synsets []*wnSynset) (*wnSynset, bool) {
	defer func() { recover() }()

	ctxVec, err := w.embedder.Encode(ctx, contextStr)
	if err != nil || len(ctxVec) == 0 {
		return nil, false
	}

	var best *wnSynset
	bestScore := -2.0
	for _, ss := range synsets {
		if ss.Gloss == "" {
			continue
		}
		glossVec, err := w.embedder.Encode(ctx, ss.Gloss)
		if err != nil || len(glossVec) == 0 {
			continue
		}
		score := cosineSimilarity(ctxVec, glossVec)
		if score > bestScore {
			bestScore = score
			best = ss
		}
	}
	if best == nil {
		return nil, false
	}
	return best, true
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// GetGlossesPerSynset returns one entry per distinct synset, for the
// hybrid scorer's gather-then-score strategy; the disambiguator gathers
// per-synset candidates from this source only.
func (w *WordNetSource) GetGlossesPerSynset(ctx context.Context, term string) []SynsetGloss {
	synsets := w.synsetsFor(term)
	if len(synsets) == 0 {
		return nil
	}
	out := make([]SynsetGloss, 0, len(synsets))
	for _, ss := range synsets {
		out = append(out, SynsetGloss{
			SynsetID:  ss.ID,
			Gloss:     ss.Gloss,
			Lemmas:    allForms(ss),
			Hypernyms: hypernymLabels(ss),
		})
	}
	return out
}

func (w *WordNetSource) GetSynonyms(ctx context.Context, term string) []string {
	synsets := w.synsetsFor(term)
	seen := map[string]struct{}{}
	var out []string
	termLower := strings.ToLower(strings.ReplaceAll(term, "_", " "))
	for _, ss := range synsets {
		for _, form := range allForms(ss) {
			fl := strings.ToLower(form)
			if fl == termLower {
				continue
			}
			if _, ok := seen[fl]; ok {
				continue
			}
			seen[fl] = struct{}{}
			out = append(out, fl)
		}
	}
	sort.Strings(out)
	return out
}

func (w *WordNetSource) GetHypernyms(ctx context.Context, term string, depth int) []string {
	if depth <= 0 {
		depth = 1
	}
	synsets := w.synsetsFor(term)
	if len(synsets) == 0 {
		return nil
	}
	seen := map[string]struct{}{}
	var out []string
	type frontier struct {
		ss    *wnSynset
		level int
	}
	queue := []frontier{{synsets[0], 0}}
	visited := map[string]struct{}{synsets[0].ID: {}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.level >= depth {
			continue
		}
		for _, hid := range cur.ss.Hypernyms {
			parent, ok := wordnetSynsets[hid]
			if !ok {
				continue
			}
			if len(parent.Lemmas) > 0 {
				label := strings.ToLower(strings.ReplaceAll(parent.Lemmas[0], "_", " "))
				if _, ok := seen[label]; !ok {
					seen[label] = struct{}{}
					out = append(out, label)
				}
			}
			if _, ok := visited[parent.ID]; !ok {
				visited[parent.ID] = struct{}{}
				queue = append(queue, frontier{parent, cur.level + 1})
			}
		}
	}
	return out
}

func (w *WordNetSource) IsSubclassOf(ctx context.Context, child, parent string, maxDepth int) bool {
	childSynsets := w.synsetsFor(child)
	parentSynsets := w.synsetsFor(parent)
	if len(childSynsets) == 0 || len(parentSynsets) == 0 {
		return false
	}
	parentIDs := map[string]struct{}{}
	for _, ps := range parentSynsets {
		parentIDs[ps.ID] = struct{}{}
	}
	for _, cs := range childSynsets {
		if bfsContains(cs, parentIDs, maxDepth) {
			return true
		}
	}
	return false
}

func bfsContains(start *wnSynset, targets map[string]struct{}, maxDepth int) bool {
	type frontier struct {
		ss    *wnSynset
		depth int
	}
	queue := []frontier{{start, 0}}
	visited := map[string]struct{}{start.ID: {}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if _, ok := targets[cur.ss.ID]; ok {
			return true
		}
		if cur.depth >= maxDepth {
			continue
		}
		for _, hid := range cur.ss.Hypernyms {
			parent, ok := wordnetSynsets[hid]
			if !ok {
				continue
			}
			if _, ok := visited[parent.ID]; ok {
				continue
			}
			visited[parent.ID] = struct{}{}
			queue = append(queue, frontier{parent, cur.depth + 1})
		}
	}
	return false
}

// HypernymPathContains reports whether, among any hypernym path from
// any synset of concept toward the root, ancestor's synset appears
// within maxDepth edges measured from concept toward the root. This is
// the lexical-hierarchy strategy resolver.IsAncestor falls back to.
func (w *WordNetSource) HypernymPathContains(ctx context.Context, ancestor, concept string, maxDepth int) bool {
	return w.IsSubclassOf(ctx, concept, ancestor, maxDepth)
}

// LemmasContain reports whether term (case/underscore-insensitive) is a
// literal lemma of the given synset id — Rule A of the hypernym
// collapse decision in canonicalize.Canonicalize.
func (w *WordNetSource) LemmasContain(synsetID, term string) bool {
	ss, ok := wordnetSynsets[synsetID]
	if !ok {
		return false
	}
	target := normalizeLemma(term)
	for _, lemma := range ss.Lemmas {
		if normalizeLemma(lemma) == target {
			return true
		}
	}
	return false
}

// SynsetsForHypernymLabel returns every synset that has label among its
// lemmas, used by the canonicalizer to fetch "the parent
// synset" for Rule A without re-running full disambiguation.
func (w *WordNetSource) SynsetsForHypernymLabel(label string) []*wnSynset {
	return w.synsetsFor(label)
}
