package lexical

import (
	"context"
	"testing"

	"github.com/canonengine/canonengine/internal/logger"
	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	require.NoError(t, err)
	return log
}

func TestWordNetSource_GetCanonical_NoContext(t *testing.T) {
	src := NewWordNetSource(testLogger(t), nil)
	canon, ok := src.GetCanonical(context.Background(), "dog", "")
	require.True(t, ok)
	require.Equal(t, "02084071-n", canon.CanonicalID)
	require.Contains(t, canon.AllForms, "domestic dog")
	require.Contains(t, canon.Hypernyms, "canine")
}

func TestWordNetSource_GetCanonical_Unknown(t *testing.T) {
	src := NewWordNetSource(testLogger(t), nil)
	_, ok := src.GetCanonical(context.Background(), "zzzznotaword", "")
	require.False(t, ok)
}

type fakeEmbedder struct {
	vectors map[string][]float32
}

func (f *fakeEmbedder) Encode(ctx context.Context, text string) ([]float32, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 0}, nil
}

func TestWordNetSource_GetCanonical_GlossContextRerank(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"a young dog": {1, 0, 0},
		"context":     {1, 0, 0},
	}}
	src := NewWordNetSource(testLogger(t), embedder)
	canon, ok := src.GetCanonical(context.Background(), "puppy", "context")
	require.True(t, ok)
	require.Equal(t, "02085272-n", canon.CanonicalID)
}

func TestWordNetSource_GetSynonyms(t *testing.T) {
	src := NewWordNetSource(testLogger(t), nil)
	syns := src.GetSynonyms(context.Background(), "car")
	require.Contains(t, syns, "auto")
	require.Contains(t, syns, "automobile")
	require.NotContains(t, syns, "car")
}

func TestWordNetSource_GetHypernyms_DepthAndAsymmetry(t *testing.T) {
	src := NewWordNetSource(testLogger(t), nil)

	puppyParents := src.GetHypernyms(context.Background(), "puppy", 1)
	require.Contains(t, puppyParents, "dog")

	dogParents := src.GetHypernyms(context.Background(), "dog", 1)
	require.NotContains(t, dogParents, "puppy")

	deep := src.GetHypernyms(context.Background(), "puppy", 3)
	require.Contains(t, deep, "animal")
}

func TestWordNetSource_IsSubclassOf(t *testing.T) {
	src := NewWordNetSource(testLogger(t), nil)
	require.True(t, src.IsSubclassOf(context.Background(), "puppy", "animal", 5))
	require.False(t, src.IsSubclassOf(context.Background(), "animal", "puppy", 5))
	require.True(t, src.IsSubclassOf(context.Background(), "laptop", "computer", 5))
	require.False(t, src.IsSubclassOf(context.Background(), "laptop", "vehicle", 5))
}

func TestWordNetSource_IsSubclassOf_MaxDepthBounds(t *testing.T) {
	src := NewWordNetSource(testLogger(t), nil)
	// puppy -> dog -> canine -> animal is three hypernym edges.
	require.False(t, src.IsSubclassOf(context.Background(), "puppy", "animal", 2))
	require.True(t, src.IsSubclassOf(context.Background(), "puppy", "animal", 3))
}

func TestWordNetSource_DentistOverCollapseHazard(t *testing.T) {
	src := NewWordNetSource(testLogger(t), nil)
	parents := src.GetHypernyms(context.Background(), "dentist", 1)
	require.Contains(t, parents, "medical practitioner")
	require.False(t, src.LemmasContain("10305802-n", "dentist"))
}

func TestWordNetSource_Tag(t *testing.T) {
	src := NewWordNetSource(testLogger(t), nil)
	require.Equal(t, SourceWordNet, src.Tag())
}
