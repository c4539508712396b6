// Package disambiguate implements phase 1 of canonicalization: gather
// candidate senses for a term from every configured lexical source, score
// them against a context string, and pick the winner. No single source
// short-circuits the others — the best sense wins regardless of which
// adapter produced it.
package disambiguate

import (
	"context"
	"strings"

	"github.com/canonengine/canonengine/internal/canon/lexical"
	"github.com/canonengine/canonengine/internal/canon/llmfallback"
	"github.com/canonengine/canonengine/internal/canon/model"
	"github.com/canonengine/canonengine/internal/canon/scoring"
	"github.com/canonengine/canonengine/internal/logger"
	"github.com/canonengine/canonengine/internal/utils"
	"golang.org/x/sync/errgroup"
)

const topK = 3

// Disambiguator wires the lexical adapters, the hybrid scorer, and the
// LLM fallback into the single disambiguate(term, context?) operation.
type Disambiguator struct {
	log *logger.Logger

	wordnet        *lexical.WordNetSource
	wordsapi       lexical.Source // nil disables
	datamuse       lexical.Source
	wikidata       lexical.Source
	babelnet       lexical.Source // nil disables (no API key configured)
	merriamwebster lexical.Source // nil disables; WordNet-coverage backstop only

	useHybrid       bool
	scorer          *scoring.HybridScorer
	fallback        *llmfallback.LLMFallback
	marginThreshold float64
}

type Sources struct {
	WordNet        *lexical.WordNetSource
	WordsAPI       lexical.Source
	Datamuse       lexical.Source
	Wikidata       lexical.Source
	BabelNet       lexical.Source
	MerriamWebster lexical.Source
}

func NewDisambiguator(log *logger.Logger, sources Sources, scorer *scoring.HybridScorer, fallback *llmfallback.LLMFallback) *Disambiguator {
	log = log.With("component", "disambiguate.Disambiguator")
	return &Disambiguator{
		log:             log,
		wordnet:         sources.WordNet,
		wordsapi:        sources.WordsAPI,
		datamuse:        sources.Datamuse,
		wikidata:        sources.Wikidata,
		babelnet:        sources.BabelNet,
		merriamwebster:  sources.MerriamWebster,
		useHybrid:       utils.GetEnvAsBool("USE_HYBRID_SCORER", true, log),
		scorer:          scorer,
		fallback:        fallback,
		marginThreshold: llmfallback.DefaultConfidenceThreshold(log),
	}
}

// Disambiguate gathers candidates for term from every configured source
// and scores them against context (empty context skips scoring). Returns
// ok=false only when no source produced a single candidate.
func (d *Disambiguator) Disambiguate(ctx context.Context, term string, contextStr string) (*model.DisambiguatedSense, bool) {
	candidates := d.gather(ctx, term, contextStr)
	if len(candidates) == 0 {
		return nil, false
	}

	var best model.CandidateSense
	if strings.TrimSpace(contextStr) == "" {
		best = firstWordNetOrFirst(candidates)
		best.Score = 0
	} else {
		best = d.scoreAndPick(ctx, term, contextStr, candidates)
	}

	return &model.DisambiguatedSense{
		Source:       best.Source,
		SourceID:     best.SourceID,
		ResolvedForm: best.Label,
		Gloss:        best.Gloss,
		AllForms:     best.AllForms,
		Hypernyms:    best.Hypernyms,
		Score:        best.Score,
	}, true
}

// gather fans the per-source gather calls out via errgroup — each one
// already degrades to an empty slice on failure, so the group never
// returns an error; errgroup is used purely for the concurrency, not for
// error propagation.
func (d *Disambiguator) gather(ctx context.Context, term, contextStr string) []model.CandidateSense {
	// WordNet runs first and alone: it is local (no network round trip),
	// and Merriam-Webster is only ever consulted as a backstop for terms
	// WordNet has no coverage for, so its gather must observe the
	// finished WordNet result rather than race it.
	wordnetCands := d.gatherWordNet(ctx, term)

	var (
		wordsapiCands       []model.CandidateSense
		datamuseCands       []model.CandidateSense
		wikidataCands       []model.CandidateSense
		babelnetCands       []model.CandidateSense
		merriamwebsterCands []model.CandidateSense
	)

	g, gctx := errgroup.WithContext(ctx)

	if len(wordnetCands) == 0 && d.merriamwebster != nil {
		g.Go(func() error {
			merriamwebsterCands = gatherDefinitional(gctx, d.merriamwebster, term)
			return nil
		})
	}

	if d.useHybrid {
		if d.wordsapi != nil {
			g.Go(func() error {
				wordsapiCands = gatherDefinitional(gctx, d.wordsapi, term)
				return nil
			})
		}
		if d.datamuse != nil {
			g.Go(func() error {
				datamuseCands = gatherDefinitional(gctx, d.datamuse, term)
				return nil
			})
		}
		if d.wikidata != nil {
			g.Go(func() error {
				wikidataCands = gatherDefinitional(gctx, d.wikidata, term)
				return nil
			})
		}
	}

	if d.babelnet != nil {
		g.Go(func() error {
			babelnetCands = gatherDefinitional(gctx, d.babelnet, term)
			return nil
		})
	}

	_ = g.Wait()

	all := make([]model.CandidateSense, 0, len(wordnetCands)+len(wordsapiCands)+len(datamuseCands)+len(wikidataCands)+len(babelnetCands)+len(merriamwebsterCands))
	all = append(all, wordnetCands...)
	all = append(all, wordsapiCands...)
	all = append(all, datamuseCands...)
	all = append(all, wikidataCands...)
	all = append(all, babelnetCands...)
	all = append(all, merriamwebsterCands...)
	return all
}

// gatherWordNet returns one candidate per distinct synset, mirroring the
// hybrid-mode "gather everything for ensemble scoring" path. Any panic
// inside the WordNet source degrades to no candidates.
func (d *Disambiguator) gatherWordNet(ctx context.Context, term string) []model.CandidateSense {
	defer func() { recover() }()
	if d.wordnet == nil {
		return nil
	}

	glosses := d.wordnet.GetGlossesPerSynset(ctx, term)
	out := make([]model.CandidateSense, 0, len(glosses))
	for _, g := range glosses {
		label := strings.ToLower(term)
		if len(g.Lemmas) > 0 {
			label = g.Lemmas[0]
		}
		out = append(out, model.CandidateSense{
			Source:    lexical.SourceWordNet,
			SourceID:  g.SynsetID,
			Label:     label,
			Gloss:     g.Gloss,
			AllForms:  g.Lemmas,
			Hypernyms: g.Hypernyms,
		})
	}
	return out
}

// gatherDefinitional wraps any Source's GetCanonical call into a single
// CandidateSense, the shared shape used for WordsAPI, Datamuse, Wikidata,
// and BabelNet — each of those sources resolves a term to one best sense
// per call rather than an enumerable synset list.
func gatherDefinitional(ctx context.Context, src lexical.Source, term string) (out []model.CandidateSense) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
		}
	}()

	canonical, ok := src.GetCanonical(ctx, term, "")
	if !ok {
		return nil
	}
	return []model.CandidateSense{{
		Source:    src.Tag(),
		SourceID:  canonical.CanonicalID,
		Label:     canonical.CanonicalLabel,
		Gloss:     canonical.Gloss,
		AllForms:  canonical.AllForms,
		Hypernyms: canonical.Hypernyms,
	}}
}

func firstWordNetOrFirst(candidates []model.CandidateSense) model.CandidateSense {
	for _, c := range candidates {
		if c.Source == lexical.SourceWordNet {
			return c
		}
	}
	return candidates[0]
}

// scoreAndPick runs the hybrid ensemble, consulting the LLM fallback when
// the top two scores are too close to call, else returning the argmax.
func (d *Disambiguator) scoreAndPick(ctx context.Context, term, contextStr string, candidates []model.CandidateSense) model.CandidateSense {
	if d.scorer == nil {
		return firstWordNetOrFirst(candidates)
	}

	scores := d.scorer.ScoreCandidates(ctx, contextStr, candidates)
	if len(scores) != len(candidates) {
		return firstWordNetOrFirst(candidates)
	}
	for i := range candidates {
		candidates[i].Score = scores[i]
	}

	bestIdx := argmax(scores)
	if llmfallback.ShouldUseLLMFallback(scores, d.marginThreshold) && d.fallback != nil && d.fallback.IsAvailable() {
		d.log.Debug("low confidence margin, consulting llm fallback", "term", term)
		bestIdx = d.fallback.Disambiguate(ctx, contextStr, term, candidates, scores, topK)
	}

	return candidates[bestIdx]
}

func argmax(scores []float64) int {
	best := 0
	for i, s := range scores {
		if s > scores[best] {
			best = i
		}
	}
	return best
}
