// Package scoring implements the hybrid sense-scoring ensemble: a
// transformer gloss-context scorer (optional, weight may be 0), an
// embedding cosine-similarity scorer, and a WordNet path-similarity
// knowledge scorer, combined by configurable weights. Each scorer
// degrades to a neutral vector on internal failure rather than
// propagating an error — the ensemble always returns one score per
// candidate.
package scoring

import (
	"context"
	"math"
	"strings"

	"github.com/canonengine/canonengine/internal/canon/lexical"
	"github.com/canonengine/canonengine/internal/canon/model"
	"github.com/canonengine/canonengine/internal/logger"
	"github.com/canonengine/canonengine/internal/utils"
)

// Embedder is the minimal embedding surface ScoreCandidates needs —
// satisfied by *embed.Provider.
type Embedder interface {
	Encode(ctx context.Context, text string) ([]float32, error)
}

// TransformerScorer is an optional gloss-context classifier (e.g. a
// fine-tuned DistilBERT/GlossBERT model served behind an HTTP
// endpoint). Nil disables the transformer term of the ensemble, which
// is also this engine's default (weight 0.0) until a fine-tuned model is
// wired up.
type TransformerScorer interface {
	// Score returns one relevance probability per candidate gloss, given
	// the shared context string.
	Score(ctx context.Context, context string, glosses []string) ([]float64, bool)
}

// HybridScorer combines up to three independently-normalized scorers
// into one weighted ensemble score per candidate.
type HybridScorer struct {
	log         *logger.Logger
	transformer TransformerScorer // optional
	embedder    Embedder          // optional
	wordnet     *lexical.WordNetSource

	transformerWeight float64
	embeddingWeight   float64
	knowledgeWeight   float64
}

// DefaultWeights mirrors HYBRID_WEIGHTS' documented default: transformer
// disabled until a fine-tuned model exists, so the ensemble leans on
// embedding similarity with a WordNet knowledge-graph corrective term.
var DefaultWeights = [3]float64{0.0, 0.7, 0.3}

func NewHybridScorer(log *logger.Logger, transformer TransformerScorer, embedder Embedder, wordnet *lexical.WordNetSource) *HybridScorer {
	weights := utils.GetEnvAsFloatTriple("HYBRID_WEIGHTS", DefaultWeights, log)
	total := weights[0] + weights[1] + weights[2]
	if total <= 0 {
		weights = DefaultWeights
		total = weights[0] + weights[1] + weights[2]
	}

	return &HybridScorer{
		log:               log.With("component", "scoring.HybridScorer"),
		transformer:       transformer,
		embedder:          embedder,
		wordnet:           wordnet,
		transformerWeight: weights[0] / total,
		embeddingWeight:   weights[1] / total,
		knowledgeWeight:   weights[2] / total,
	}
}

// ScoreCandidates scores every candidate against context using the
// weighted ensemble, returning one score in [0,1] per candidate in the
// same order. Returns an empty slice for an empty candidate list.
func (s *HybridScorer) ScoreCandidates(ctx context.Context, contextStr string, candidates []model.CandidateSense) []float64 {
	if len(candidates) == 0 {
		return nil
	}

	transformerScores := s.scoreWithTransformer(ctx, contextStr, candidates)
	embeddingScores := s.scoreWithEmbeddings(ctx, contextStr, candidates)
	knowledgeScores := s.scoreWithKnowledge(ctx, contextStr, candidates)

	transformerScores = normalizeScores(transformerScores)
	embeddingScores = normalizeScores(embeddingScores)
	knowledgeScores = normalizeScores(knowledgeScores)

	out := make([]float64, len(candidates))
	for i := range candidates {
		out[i] = s.transformerWeight*transformerScores[i] +
			s.embeddingWeight*embeddingScores[i] +
			s.knowledgeWeight*knowledgeScores[i]
	}
	return out
}

func neutralScores(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.5
	}
	return out
}

func (s *HybridScorer) scoreWithTransformer(ctx context.Context, contextStr string, candidates []model.CandidateSense) []float64 {
	if s.transformer == nil {
		return neutralScores(len(candidates))
	}
	glosses := make([]string, len(candidates))
	for i, c := range candidates {
		glosses[i] = c.Gloss
	}
	scores, ok := s.transformer.Score(ctx, contextStr, glosses)
	if !ok || len(scores) != len(candidates) {
		return neutralScores(len(candidates))
	}
	return scores
}

func (s *HybridScorer) scoreWithEmbeddings(ctx context.Context, contextStr string, candidates []model.CandidateSense) (out []float64) {
	defer func() {
		if recover() != nil {
			out = neutralScores(len(candidates))
		}
	}()

	if s.embedder == nil {
		return neutralScores(len(candidates))
	}
	ctxVec, err := s.embedder.Encode(ctx, contextStr)
	if err != nil || len(ctxVec) == 0 {
		return neutralScores(len(candidates))
	}

	out = make([]float64, len(candidates))
	for i, c := range candidates {
		glossVec, err := s.embedder.Encode(ctx, c.Gloss)
		if err != nil || len(glossVec) == 0 {
			out[i] = 0.5
			continue
		}
		sim := cosineSimilarity(ctxVec, glossVec)
		if sim < 0 {
			sim = 0
		}
		out[i] = sim
	}
	return out
}

// scoreWithKnowledge computes, per candidate, the maximum WordNet
// path-similarity between the candidate's WordNet synset (when
// source==wordnet) and any of the first three synsets of each of the
// first 5 context words longer than 3 bytes. Internal failure here
// returns the same neutral 0.5 vector the other two scorers use, so one
// scorer's failure cannot skew the ensemble.
func (s *HybridScorer) scoreWithKnowledge(ctx context.Context, contextStr string, candidates []model.CandidateSense) (out []float64) {
	defer func() {
		if recover() != nil {
			out = neutralScores(len(candidates))
		}
	}()

	if s.wordnet == nil {
		return neutralScores(len(candidates))
	}

	contextSynsetIDs := contextSynsets(ctx, s.wordnet, contextStr)
	if len(contextSynsetIDs) == 0 {
		return neutralScores(len(candidates))
	}

	out = make([]float64, len(candidates))
	for i, c := range candidates {
		out[i] = 0.5
		if c.Source != lexical.SourceWordNet || c.SourceID == "" {
			continue
		}
		var maxSim float64
		for _, ctxID := range contextSynsetIDs {
			sim := lexical.PathSimilarity(c.SourceID, ctxID)
			if sim > maxSim {
				maxSim = sim
			}
		}
		out[i] = maxSim
	}
	return out
}

func contextSynsets(ctx context.Context, wn *lexical.WordNetSource, contextStr string) []string {
	words := strings.Fields(contextStr)
	var tokens []string
	for _, w := range words {
		if len(w) > 3 {
			tokens = append(tokens, strings.ToLower(w))
		}
		if len(tokens) >= 5 {
			break
		}
	}

	var ids []string
	for _, t := range tokens {
		glosses := wn.GetGlossesPerSynset(ctx, t)
		for i, g := range glosses {
			if i >= 3 {
				break
			}
			ids = append(ids, g.SynsetID)
		}
	}
	return ids
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

// normalizeScores min-max normalizes to [0,1]. A degenerate (all-equal)
// input returns uniform 0.5.
func normalizeScores(scores []float64) []float64 {
	if len(scores) == 0 {
		return scores
	}
	min, max := scores[0], scores[0]
	for _, v := range scores {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if max == min {
		return neutralScores(len(scores))
	}
	out := make([]float64, len(scores))
	for i, v := range scores {
		out[i] = (v - min) / (max - min)
	}
	return out
}
