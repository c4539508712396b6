package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/canonengine/canonengine/internal/canon/canonicalize"
	"github.com/canonengine/canonengine/internal/canon/disambiguate"
	"github.com/canonengine/canonengine/internal/canon/lexical"
	"github.com/canonengine/canonengine/internal/canon/model"
	"github.com/canonengine/canonengine/internal/canon/ontology"
	domain "github.com/canonengine/canonengine/internal/domain/canon"
	"github.com/canonengine/canonengine/internal/logger"
	repocanon "github.com/canonengine/canonengine/internal/repos/canon"
	"gorm.io/gorm"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	require.NoError(t, err)
	return log
}

// nullRepo never persists anything; resolver tests only exercise the
// in-memory registry/paths/buffer, never a real flush.
type nullRepo struct{}

func (nullRepo) Create(ctx context.Context, tx *gorm.DB, rows []*domain.PersistentConcept) ([]*domain.PersistentConcept, error) {
	return rows, nil
}
func (nullRepo) GetByConceptIDs(ctx context.Context, tx *gorm.DB, ids []string) ([]*domain.PersistentConcept, error) {
	return nil, nil
}
func (nullRepo) GetByConceptID(ctx context.Context, tx *gorm.DB, id string) (*domain.PersistentConcept, error) {
	return nil, nil
}
func (nullRepo) ListAll(ctx context.Context, tx *gorm.DB, page, pageSize int) ([]*domain.PersistentConcept, error) {
	return nil, nil
}
func (nullRepo) UpsertByConceptID(ctx context.Context, tx *gorm.DB, row *domain.PersistentConcept) error {
	return nil
}
func (nullRepo) UpsertMany(ctx context.Context, tx *gorm.DB, rows []*domain.PersistentConcept) error {
	return nil
}

var _ repocanon.ConceptRepo = nullRepo{}

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	log := testLogger(t)
	wn := lexical.NewWordNetSource(log, nil)
	d := disambiguate.NewDisambiguator(log, disambiguate.Sources{WordNet: wn}, nil, nil)
	c := canonicalize.NewCanonicalizer(log, nil, nil, wn)
	store := ontology.NewStore(log, nil, nullRepo{})
	registry := model.NewSynonymRegistry()
	paths := model.NewConceptPaths()
	return New(log, registry, paths, store, d, c, wn, nil)
}

func TestResolver_CrossTierPropagation_SameConceptIDBothOrders(t *testing.T) {
	r := newTestResolver(t)
	attr := "condition"

	n1 := r.Resolve(context.Background(), "used", "", &attr)
	n2 := r.Resolve(context.Background(), "pre-owned", "", &attr)
	require.Equal(t, n1.ConceptID, n2.ConceptID)

	// Reverse order should reach the same steady state.
	r2 := newTestResolver(t)
	m1 := r2.Resolve(context.Background(), "pre-owned", "", &attr)
	m2 := r2.Resolve(context.Background(), "used", "", &attr)
	require.Equal(t, m1.ConceptID, m2.ConceptID)
}

func TestResolver_RegistryHit_ReturnsSynonymRegistrySource(t *testing.T) {
	r := newTestResolver(t)
	attr := "condition"
	r.Resolve(context.Background(), "used", "", &attr)

	node := r.Resolve(context.Background(), "USED", "", &attr)
	require.Equal(t, model.SourceSynonymRegistry, node.Source)
	require.Equal(t, 1.0, node.Confidence)
}

func TestResolver_FallbackNode_WhenNoCandidate(t *testing.T) {
	log := testLogger(t)
	d := disambiguate.NewDisambiguator(log, disambiguate.Sources{}, nil, nil)
	c := canonicalize.NewCanonicalizer(log, nil, nil, nil)
	store := ontology.NewStore(log, nil, nullRepo{})
	r := New(log, model.NewSynonymRegistry(), model.NewConceptPaths(), store, d, c, nil, nil)

	node := r.Resolve(context.Background(), "Zzyzxqq", "", nil)
	require.Equal(t, model.SourceFallback, node.Source)
	require.Equal(t, 0.3, node.Confidence)
	require.Equal(t, "zzyzxqq", node.ConceptID)
}

func TestResolver_IsAncestor_DirectionAsymmetry(t *testing.T) {
	r := newTestResolver(t)
	typeAttr := "item_type"

	// Resolve both terms first so any side effects (hypernym usage
	// counters, registry entries) are in place, mirroring how the
	// orchestrator calls IsAncestor after both sides of a listing have
	// already gone through Resolve. IsAncestor itself is evaluated on
	// the raw terms: with no stored concept_path for either, it falls
	// back to the WordNet lexical-hierarchy strategy, which looks
	// synsets up by lemma, not by concept_id.
	r.Resolve(context.Background(), "dog", "dog", &typeAttr)
	r.Resolve(context.Background(), "puppy", "puppy", &typeAttr)

	require.True(t, r.IsAncestor(context.Background(), "dog", "puppy", 5))
	require.False(t, r.IsAncestor(context.Background(), "puppy", "dog", 5))
}

func TestResolver_IsAncestor_Reflexive(t *testing.T) {
	r := newTestResolver(t)
	require.True(t, r.IsAncestor(context.Background(), "dog", "dog", 5))
}

func TestResolver_IsAncestor_StoredPathStrategy(t *testing.T) {
	r := newTestResolver(t)
	// Force a stored path: [condition, used, very_good]
	r.paths.Set("very_good", []string{"condition", "used", "very_good"})

	require.True(t, r.IsAncestor(context.Background(), "used", "very_good", 5))
}

func TestResolver_ConditionGradeKeepsUsedInPath(t *testing.T) {
	r := newTestResolver(t)
	attr := "condition"

	// "gently worn" reduces to the condition grade "very_good", which
	// sits under "used" in the condition hierarchy.
	node := r.Resolve(context.Background(), "gently worn", "", &attr)
	require.Equal(t, "very_good", node.ConceptID)
	require.Equal(t, []string{"condition", "used", "very_good"}, node.ConceptPath)

	require.True(t, r.IsAncestor(context.Background(), "used", "very_good", 5))
	require.False(t, r.IsAncestor(context.Background(), "very_good", "used", 5))
}

func TestResolver_SemanticImplies_RegistrySynonymEquality(t *testing.T) {
	r := newTestResolver(t)
	attr := "condition"
	a := r.Resolve(context.Background(), "used", "", &attr)
	b := r.Resolve(context.Background(), "pre-owned", "", &attr)

	require.True(t, r.SemanticImplies(context.Background(), a.ConceptID, b.ConceptID))
}

func TestResolver_ToSchemaFormat_DefaultsToExactScope(t *testing.T) {
	r := newTestResolver(t)
	node := &model.OntologyNode{ConceptID: "dog", ConceptPath: []string{"dog"}}
	schema := r.ToSchemaFormat(node, "")
	require.Equal(t, MatchScopeExact, schema.MatchScope)
}
