// Package llmfallback implements the margin-gated LLM tie-breaker for
// disambiguation: when the hybrid scorer's top two candidates are too
// close to call, a text-generation model picks among a numbered list of
// the existing top-K candidates. It never proposes a sense outside that
// set.
package llmfallback

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/canonengine/canonengine/internal/canon/model"
	"github.com/canonengine/canonengine/internal/logger"
	"github.com/canonengine/canonengine/internal/utils"
)

const defaultConfidenceThreshold = 0.10

// ShouldUseLLMFallback reports whether the margin between the top two
// ensemble scores is too small to trust, i.e. the fallback should fire.
// Fewer than two scores never triggers it.
func ShouldUseLLMFallback(scores []float64, threshold float64) bool {
	if len(scores) < 2 {
		return false
	}
	sorted := append([]float64(nil), scores...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))
	margin := sorted[0] - sorted[1]
	return margin < threshold
}

// DefaultConfidenceThreshold returns HYBRID_CONFIDENCE_THRESHOLD, falling
// back to 0.10.
func DefaultConfidenceThreshold(log *logger.Logger) float64 {
	return utils.GetEnvAsFloat("HYBRID_CONFIDENCE_THRESHOLD", defaultConfidenceThreshold, log)
}

// TextGenerator is the minimal surface LLMFallback needs — satisfied by
// internal/clients/openai.Client.GenerateText.
type TextGenerator interface {
	GenerateText(ctx context.Context, system string, user string) (string, error)
}

// LLMFallback selects among the top-K candidates by ensemble score using
// a text-generation model, falling back to the top ensemble score on any
// failure or when disabled.
type LLMFallback struct {
	log     *logger.Logger
	client  TextGenerator // nil disables the fallback
	enabled bool
}

func NewLLMFallback(log *logger.Logger, client TextGenerator) *LLMFallback {
	enabled := utils.GetEnvAsBool("ENABLE_LLM_FALLBACK", true, log)
	return &LLMFallback{
		log:     log.With("component", "llmfallback.LLMFallback"),
		client:  client,
		enabled: enabled && client != nil,
	}
}

func (f *LLMFallback) IsAvailable() bool { return f.enabled }

var choiceRe = regexp.MustCompile(`\b([1-9])\b`)

// Disambiguate selects the winning candidate index using the LLM,
// limited to the topK candidates by ensemble score. Returns the original
// candidates slice index. Falls back to argmax(topScores) whenever the
// LLM is unavailable, errors, or its reply can't be parsed into a valid
// choice.
func (f *LLMFallback) Disambiguate(ctx context.Context, query, term string, candidates []model.CandidateSense, topScores []float64, topK int) int {
	fallbackIdx := argmax(topScores)

	if !f.IsAvailable() || len(candidates) == 0 || len(candidates) != len(topScores) {
		return fallbackIdx
	}

	topIndices := topKIndicesByScore(topScores, topK)
	topCandidates := make([]model.CandidateSense, len(topIndices))
	for i, idx := range topIndices {
		topCandidates[i] = candidates[idx]
	}

	prompt := formatPrompt(query, term, topCandidates)

	reply, err := func() (text string, callErr error) {
		defer func() {
			if r := recover(); r != nil {
				callErr = fmt.Errorf("llm fallback panic: %v", r)
			}
		}()
		return f.client.GenerateText(ctx, "You select the correct word sense. Reply with only a number.", prompt)
	}()
	if err != nil {
		f.log.Debug("llm fallback call failed, using top ensemble score", "error", err)
		return topIndices[0]
	}

	choice, ok := parseChoice(reply)
	if !ok || choice < 0 || choice >= len(topIndices) {
		f.log.Debug("llm fallback reply unparseable, using top ensemble score", "reply", reply)
		return topIndices[0]
	}

	return topIndices[choice]
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

func topKIndicesByScore(scores []float64, topK int) []int {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return scores[idx[i]] > scores[idx[j]] })
	if topK > 0 && topK < len(idx) {
		idx = idx[:topK]
	}
	return idx
}

func formatPrompt(query, term string, candidates []model.CandidateSense) string {
	var glosses strings.Builder
	for i, c := range candidates {
		fmt.Fprintf(&glosses, "%d. %s\n", i+1, c.Gloss)
	}
	return fmt.Sprintf(
		"Given the sentence: %q\n\nWhich definition of %q fits best?\n\n%s\nReply with only the number:",
		query, term, glosses.String(),
	)
}

// parseChoice extracts the first digit 1-9 in reply and converts it to a
// 0-based index.
func parseChoice(reply string) (int, bool) {
	match := choiceRe.FindStringSubmatch(reply)
	if match == nil {
		return 0, false
	}
	n, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	return n - 1, true
}
