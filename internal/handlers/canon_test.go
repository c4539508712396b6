package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/canonengine/canonengine/internal/canon/canonicalize"
	"github.com/canonengine/canonengine/internal/canon/disambiguate"
	"github.com/canonengine/canonengine/internal/canon/lexical"
	"github.com/canonengine/canonengine/internal/canon/model"
	"github.com/canonengine/canonengine/internal/canon/ontology"
	"github.com/canonengine/canonengine/internal/canon/orchestrate"
	"github.com/canonengine/canonengine/internal/canon/quantitative"
	"github.com/canonengine/canonengine/internal/canon/resolver"
	domain "github.com/canonengine/canonengine/internal/domain/canon"
	"github.com/canonengine/canonengine/internal/logger"
	repocanon "github.com/canonengine/canonengine/internal/repos/canon"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	require.NoError(t, err)
	return log
}

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

func newTestCanonHandler(t *testing.T) *CanonHandler {
	t.Helper()
	log := newTestLogger(t)
	wn := lexical.NewWordNetSource(log, nil)
	d := disambiguate.NewDisambiguator(log, disambiguate.Sources{WordNet: wn}, nil, nil)
	c := canonicalize.NewCanonicalizer(log, nil, nil, wn)
	store := ontology.NewStore(log, nil, nullRepo{})
	res := resolver.New(log, model.NewSynonymRegistry(), model.NewConceptPaths(), store, d, c, wn, nil)
	quant := quantitative.NewResolver(log, nil)
	orch := orchestrate.New(log, res, nil, quant, nil, store)
	return NewCanonHandler(log, res, orch, store)
}

func newTestRouter(h *CanonHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/resolve", h.Resolve)
	r.GET("/api/is-ancestor", h.IsAncestor)
	r.GET("/api/semantic-implies", h.SemanticImplies)
	r.POST("/api/listings/canonicalize", h.CanonicalizeListing)
	r.GET("/api/ontology/stats", h.OntologyStats)
	return r
}

func TestResolve_ReturnsSchemaNodeForKnownValue(t *testing.T) {
	r := newTestRouter(newTestCanonHandler(t))

	body := `{"value":"dog","context":"dog","attribute_key":"item_type"}`
	req := httptest.NewRequest(http.MethodPost, "/api/resolve", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var out resolver.SchemaNode
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.NotEmpty(t, out.ConceptID)
	require.Equal(t, resolver.MatchScopeExact, out.MatchScope)
}

func TestResolve_MissingValue_ReturnsBadRequest(t *testing.T) {
	r := newTestRouter(newTestCanonHandler(t))

	req := httptest.NewRequest(http.MethodPost, "/api/resolve", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestIsAncestor_ReflexiveTrue(t *testing.T) {
	r := newTestRouter(newTestCanonHandler(t))

	req := httptest.NewRequest(http.MethodGet, "/api/is-ancestor?ancestor=dog&concept_id=dog&max_depth=5", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var out struct {
		IsAncestor bool `json:"is_ancestor"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.True(t, out.IsAncestor)
}

func TestIsAncestor_MissingQueryParam_ReturnsBadRequest(t *testing.T) {
	r := newTestRouter(newTestCanonHandler(t))

	req := httptest.NewRequest(http.MethodGet, "/api/is-ancestor?ancestor=dog", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSemanticImplies_IdentityIsTrue(t *testing.T) {
	r := newTestRouter(newTestCanonHandler(t))

	req := httptest.NewRequest(http.MethodGet, "/api/semantic-implies?candidate_id=dog&required_id=dog", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var out struct {
		Implies bool `json:"implies"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.True(t, out.Implies)
}

func TestCanonicalizeListing_RoundTripsThroughOrchestrator(t *testing.T) {
	r := newTestRouter(newTestCanonHandler(t))

	body := `{"listing":{"items":[{"type":"Laptop"}]}}`
	req := httptest.NewRequest(http.MethodPost, "/api/listings/canonicalize", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var out struct {
		Listing map[string]any `json:"listing"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	items, ok := out.Listing["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)
}

func TestOntologyStats_ReturnsStatsPayload(t *testing.T) {
	r := newTestRouter(newTestCanonHandler(t))

	req := httptest.NewRequest(http.MethodGet, "/api/ontology/stats", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var out ontology.Stats
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
}
