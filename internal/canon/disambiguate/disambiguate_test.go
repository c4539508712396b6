package disambiguate

import (
	"context"
	"testing"

	"github.com/canonengine/canonengine/internal/canon/lexical"
	"github.com/canonengine/canonengine/internal/canon/llmfallback"
	"github.com/canonengine/canonengine/internal/canon/scoring"
	"github.com/canonengine/canonengine/internal/logger"
	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	require.NoError(t, err)
	return log
}

// fakeSource is a stub lexical.Source used to exercise the gathering
// policy without hitting the network or the embedded WordNet data.
type fakeSource struct {
	tag       lexical.SourceTag
	canonical lexical.Canonical
	ok        bool
	panics    bool
}

func (f *fakeSource) GetCanonical(ctx context.Context, term, context string) (lexical.Canonical, bool) {
	if f.panics {
		panic("boom")
	}
	return f.canonical, f.ok
}
func (f *fakeSource) GetGlossesPerSynset(ctx context.Context, term string) []lexical.SynsetGloss {
	return nil
}
func (f *fakeSource) GetSynonyms(ctx context.Context, term string) []string { return nil }
func (f *fakeSource) GetHypernyms(ctx context.Context, term string, depth int) []string {
	return nil
}
func (f *fakeSource) IsSubclassOf(ctx context.Context, child, parent string, maxDepth int) bool {
	return false
}
func (f *fakeSource) Tag() lexical.SourceTag { return f.tag }

func TestDisambiguate_NoCandidates_ReturnsFalse(t *testing.T) {
	d := NewDisambiguator(testLogger(t), Sources{}, nil, nil)
	sense, ok := d.Disambiguate(context.Background(), "gizmo", "")
	require.False(t, ok)
	require.Nil(t, sense)
}

func TestDisambiguate_EmptyContext_PrefersWordNetFirstCandidate(t *testing.T) {
	wn := lexical.NewWordNetSource(testLogger(t), nil)
	babelnet := &fakeSource{tag: lexical.SourceBabelNet, ok: true, canonical: lexical.Canonical{
		CanonicalID: "bn:123", CanonicalLabel: "dog",
	}}
	d := NewDisambiguator(testLogger(t), Sources{WordNet: wn, BabelNet: babelnet}, nil, nil)

	sense, ok := d.Disambiguate(context.Background(), "dog", "")
	require.True(t, ok)
	require.Equal(t, lexical.SourceWordNet, sense.Source)
	require.Equal(t, 0.0, sense.Score)
}

func TestDisambiguate_NoWordNetCandidates_FallsBackToFirstOverall(t *testing.T) {
	babelnet := &fakeSource{tag: lexical.SourceBabelNet, ok: true, canonical: lexical.Canonical{
		CanonicalID: "bn:123", CanonicalLabel: "widget",
	}}
	d := NewDisambiguator(testLogger(t), Sources{BabelNet: babelnet}, nil, nil)

	sense, ok := d.Disambiguate(context.Background(), "widget", "")
	require.True(t, ok)
	require.Equal(t, lexical.SourceBabelNet, sense.Source)
}

func TestDisambiguate_HybridModeGathersExtraSourcesOnlyWhenEnabled(t *testing.T) {
	t.Setenv("USE_HYBRID_SCORER", "0")
	wordsapi := &fakeSource{tag: lexical.SourceWordsAPI, ok: true, canonical: lexical.Canonical{CanonicalID: "wa:1"}}
	d := NewDisambiguator(testLogger(t), Sources{WordsAPI: wordsapi}, nil, nil)

	sense, ok := d.Disambiguate(context.Background(), "thing", "")
	require.False(t, ok, "WordsAPI is not gathered when USE_HYBRID_SCORER=0 and no other source is configured")
	require.Nil(t, sense)
}

func TestDisambiguate_AdapterPanicIsSwallowed(t *testing.T) {
	wn := lexical.NewWordNetSource(testLogger(t), nil)
	broken := &fakeSource{tag: lexical.SourceBabelNet, panics: true}
	d := NewDisambiguator(testLogger(t), Sources{WordNet: wn, BabelNet: broken}, nil, nil)

	sense, ok := d.Disambiguate(context.Background(), "dog", "")
	require.True(t, ok)
	require.Equal(t, lexical.SourceWordNet, sense.Source)
}

func TestDisambiguate_WithContext_RunsScorerAndPicksArgmax(t *testing.T) {
	wn := lexical.NewWordNetSource(testLogger(t), nil)
	scorer := scoring.NewHybridScorer(testLogger(t), nil, nil, wn)
	d := NewDisambiguator(testLogger(t), Sources{WordNet: wn}, scorer, nil)

	sense, ok := d.Disambiguate(context.Background(), "dog", "I own a small puppy")
	require.True(t, ok)
	require.Equal(t, lexical.SourceWordNet, sense.Source)
	require.GreaterOrEqual(t, sense.Score, 0.0)
}

func TestDisambiguate_LowMarginConsultsLLMFallback(t *testing.T) {
	t.Setenv("ENABLE_LLM_FALLBACK", "1")
	t.Setenv("HYBRID_CONFIDENCE_THRESHOLD", "1.0") // force the margin gate to always fire
	wn := lexical.NewWordNetSource(testLogger(t), nil)
	scorer := scoring.NewHybridScorer(testLogger(t), nil, nil, wn)
	gen := &fakeGenerator{reply: "1"}
	fb := llmfallback.NewLLMFallback(testLogger(t), gen)
	// A second candidate is needed: the margin gate never fires on a
	// single score.
	babelnet := &fakeSource{tag: lexical.SourceBabelNet, ok: true, canonical: lexical.Canonical{
		CanonicalID: "bn:123", CanonicalLabel: "dog", Gloss: "a domesticated canine",
	}}
	d := NewDisambiguator(testLogger(t), Sources{WordNet: wn, BabelNet: babelnet}, scorer, fb)

	sense, ok := d.Disambiguate(context.Background(), "dog", "I own a small puppy")
	require.True(t, ok)
	require.NotNil(t, sense)
	require.Equal(t, 1, gen.calls, "the low-margin gate must consult the LLM fallback")
}

type fakeGenerator struct {
	reply string
	calls int
}

func (f *fakeGenerator) GenerateText(ctx context.Context, system, user string) (string, error) {
	f.calls++
	return f.reply, nil
}
