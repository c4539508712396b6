package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/canonengine/canonengine/internal/canon/ontology"
	"github.com/canonengine/canonengine/internal/canon/orchestrate"
	"github.com/canonengine/canonengine/internal/canon/resolver"
	"github.com/canonengine/canonengine/internal/logger"
	pkgerrors "github.com/canonengine/canonengine/internal/pkg/errors"
)

// CanonHandler exposes the categorical resolver, the ancestor relation,
// and the listing orchestrator over HTTP, so an operator or an adjacent
// service can exercise the three-phase pipeline and inspect the
// write-behind buffer without going through a listing ingest.
type CanonHandler struct {
	log   *logger.Logger
	res   *resolver.Resolver
	orch  *orchestrate.Orchestrator
	store *ontology.Store
}

func NewCanonHandler(log *logger.Logger, res *resolver.Resolver, orch *orchestrate.Orchestrator, store *ontology.Store) *CanonHandler {
	return &CanonHandler{log: log.With("handler", "CanonHandler"), res: res, orch: orch, store: store}
}

type resolveRequest struct {
	Value        string  `json:"value" binding:"required"`
	Context      string  `json:"context"`
	AttributeKey *string `json:"attribute_key"`
}

// POST /api/resolve
func (h *CanonHandler) Resolve(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", pkgerrors.ErrInvalidArgument)
		return
	}
	node := h.res.Resolve(c.Request.Context(), req.Value, req.Context, req.AttributeKey)
	RespondOK(c, h.res.ToSchemaFormat(node, resolver.MatchScopeExact))
}

type isAncestorRequest struct {
	Ancestor  string `form:"ancestor" binding:"required"`
	ConceptID string `form:"concept_id" binding:"required"`
	MaxDepth  int    `form:"max_depth"`
}

// GET /api/is-ancestor?ancestor=..&concept_id=..&max_depth=..
func (h *CanonHandler) IsAncestor(c *gin.Context) {
	var req isAncestorRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", pkgerrors.ErrInvalidArgument)
		return
	}
	result := h.res.IsAncestor(c.Request.Context(), req.Ancestor, req.ConceptID, req.MaxDepth)
	RespondOK(c, gin.H{"is_ancestor": result})
}

type semanticImpliesRequest struct {
	CandidateID string `form:"candidate_id" binding:"required"`
	RequiredID  string `form:"required_id" binding:"required"`
}

// GET /api/semantic-implies?candidate_id=..&required_id=..
//
// HTTP mirror of Resolver.SemanticImplies, so a matcher running
// out-of-process can consult the same resolver state it would get as a
// library call.
func (h *CanonHandler) SemanticImplies(c *gin.Context) {
	var req semanticImpliesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", pkgerrors.ErrInvalidArgument)
		return
	}
	result := h.res.SemanticImplies(c.Request.Context(), req.CandidateID, req.RequiredID)
	RespondOK(c, gin.H{"implies": result})
}

type canonicalizeListingRequest struct {
	Listing map[string]any `json:"listing" binding:"required"`
}

// POST /api/listings/canonicalize
func (h *CanonHandler) CanonicalizeListing(c *gin.Context) {
	var req canonicalizeListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", pkgerrors.ErrInvalidArgument)
		return
	}
	RespondOK(c, gin.H{"listing": h.orch.CanonicalizeListing(c.Request.Context(), req.Listing)})
}

// GET /api/ontology/stats
func (h *CanonHandler) OntologyStats(c *gin.Context) {
	RespondOK(c, h.store.GetStats())
}
