package canonicalize

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/canonengine/canonengine/internal/canon/lexical"
	"github.com/canonengine/canonengine/internal/canon/model"
	"github.com/canonengine/canonengine/internal/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	require.NoError(t, err)
	return log
}

func attrKey(s string) *string { return &s }

func TestCanonicalize_CrossTierPropagation_ReusesRegisteredConceptID(t *testing.T) {
	registry := model.NewSynonymRegistry()
	registry.Bind("used", "used_root")

	c := NewCanonicalizer(testLogger(t), nil, nil, nil)
	sense := &model.DisambiguatedSense{
		Source:       lexical.SourceWordNet,
		SourceID:     "99999999-a",
		ResolvedForm: "second-hand",
		AllForms:     []string{"second-hand", "used"},
	}

	node := c.Canonicalize(context.Background(), sense, "second-hand", attrKey("condition"), registry)
	require.Equal(t, "used_root", node.ConceptID)
}

func TestCanonicalize_NoCrossTierHit_UsesResolvedFormAsConceptID(t *testing.T) {
	registry := model.NewSynonymRegistry()
	c := NewCanonicalizer(testLogger(t), nil, nil, nil)
	sense := &model.DisambiguatedSense{
		Source:       lexical.SourceWordNet,
		ResolvedForm: "gizmo",
		AllForms:     []string{"gizmo"},
	}

	node := c.Canonicalize(context.Background(), sense, "gizmo", nil, registry)
	require.Equal(t, "gizmo", node.ConceptID)
	require.Equal(t, []string{"gizmo"}, node.ConceptPath)
}

func TestCanonicalize_RegistersAllFormsFirstWriterWins(t *testing.T) {
	registry := model.NewSynonymRegistry()
	c := NewCanonicalizer(testLogger(t), nil, nil, nil)
	sense := &model.DisambiguatedSense{
		Source:       lexical.SourceWordNet,
		ResolvedForm: "used",
		AllForms:     []string{"used", "pre-owned"},
	}

	node := c.Canonicalize(context.Background(), sense, "used", attrKey("condition"), registry)

	id, ok := registry.Lookup("pre-owned")
	require.True(t, ok)
	require.Equal(t, node.ConceptID, id)

	// Re-registering a different concept under the same alias is a no-op.
	registry.Bind("pre-owned", "something-else")
	id2, _ := registry.Lookup("pre-owned")
	require.Equal(t, id, id2)
}

func TestCanonicalize_HypernymCollapse_SkipsAbstractParents(t *testing.T) {
	registry := model.NewSynonymRegistry()
	c := NewCanonicalizer(testLogger(t), nil, nil, nil)
	c.minSiblings = 0 // force Rule B to fire on first use if not blocked

	sense := &model.DisambiguatedSense{
		Source:       lexical.SourceWordNet,
		ResolvedForm: "gadget",
		AllForms:     []string{"gadget"},
		Hypernyms:    []string{"entity"},
	}

	node := c.Canonicalize(context.Background(), sense, "gadget", nil, registry)
	require.Equal(t, "gadget", node.ConceptID, "collapse onto a block-listed abstract parent must never happen")
	require.NotEqual(t, "entity", node.ConceptID)
}

func TestCanonicalize_HypernymCollapse_RuleB_SiblingConsolidation(t *testing.T) {
	registry := model.NewSynonymRegistry()
	c := NewCanonicalizer(testLogger(t), nil, nil, nil)
	c.minSiblings = 1

	first := &model.DisambiguatedSense{
		Source: lexical.SourceWordNet, ResolvedForm: "sedan",
		AllForms: []string{"sedan"}, Hypernyms: []string{"car"},
	}
	node := c.Canonicalize(context.Background(), first, "sedan", nil, registry)
	require.Equal(t, "sedan", node.ConceptID, "no collapse before the usage counter reaches the threshold")

	// A collapse onto "car" already happened in this process.
	c.bumpHypernymUsage("car")

	second := &model.DisambiguatedSense{
		Source: lexical.SourceWordNet, ResolvedForm: "coupe",
		AllForms: []string{"coupe"}, Hypernyms: []string{"car"},
	}
	node = c.Canonicalize(context.Background(), second, "coupe", nil, registry)
	require.Equal(t, "car", node.ConceptID, "sibling under an already-consolidated hypernym collapses per Rule B")
}

func TestCanonicalize_WikidataEnrichment_NoopWhenCacheMissing(t *testing.T) {
	registry := model.NewSynonymRegistry()
	c := NewCanonicalizer(testLogger(t), nil, nil, nil)
	sense := &model.DisambiguatedSense{
		Source:       lexical.SourceWordNet,
		SourceID:     "02084071-n",
		ResolvedForm: "dog",
		AllForms:     []string{"dog"},
	}
	require.NotPanics(t, func() {
		c.Canonicalize(context.Background(), sense, "dog", nil, registry)
	})
}

type fakeAliasCache struct {
	aliases map[string][]string
}

func (f *fakeAliasCache) AliasesFor(synsetID string) ([]string, bool) {
	a, ok := f.aliases[synsetID]
	return a, ok
}

func TestCanonicalize_WikidataEnrichment_MergesAliasesIntoAllForms(t *testing.T) {
	registry := model.NewSynonymRegistry()
	cache := &fakeAliasCache{aliases: map[string][]string{"02084071-n": {"canine companion"}}}
	c := NewCanonicalizer(testLogger(t), cache, nil, nil)

	sense := &model.DisambiguatedSense{
		Source:       lexical.SourceWordNet,
		SourceID:     "02084071-n",
		ResolvedForm: "dog",
		AllForms:     []string{"dog"},
	}
	node := c.Canonicalize(context.Background(), sense, "dog", nil, registry)
	require.Equal(t, "02084071-n", node.ConceptID, "a WordNet sense with a synset id keeps the offset+POS as its concept id")

	id, ok := registry.Lookup("canine companion")
	require.True(t, ok)
	require.Equal(t, "02084071-n", id)
}

func TestLooksLikeSourceID(t *testing.T) {
	require.True(t, looksLikeSourceID("02958343"))
	require.False(t, looksLikeSourceID("car"))
	require.False(t, looksLikeSourceID(""))
}
