// Package keycanon exposes the attribute-key canonicalizer's review
// queue to operators: borderline embedding matches sit in a pending
// queue until someone approves or rejects them, and these handlers are
// the HTTP verbs for that decision.
package keycanon

import (
	"net/http"

	"github.com/gin-gonic/gin"

	canonkey "github.com/canonengine/canonengine/internal/canon/keycanon"
	"github.com/canonengine/canonengine/internal/handlers"
	"github.com/canonengine/canonengine/internal/logger"
	pkgerrors "github.com/canonengine/canonengine/internal/pkg/errors"
)

type Handler struct {
	log  *logger.Logger
	keys *canonkey.Canonicalizer
}

func NewHandler(log *logger.Logger, keys *canonkey.Canonicalizer) *Handler {
	return &Handler{log: log.With("handler", "keycanon.Handler"), keys: keys}
}

type canonicalizeRequest struct {
	Domain string `json:"domain" binding:"required"`
	Key    string `json:"key" binding:"required"`
}

// POST /api/keys/canonicalize
func (h *Handler) Canonicalize(c *gin.Context) {
	var req canonicalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.RespondError(c, http.StatusBadRequest, "invalid_request", pkgerrors.ErrInvalidArgument)
		return
	}
	canonical := h.keys.Canonicalize(c.Request.Context(), req.Domain, req.Key)
	handlers.RespondOK(c, gin.H{"canonical": canonical})
}

// GET /api/review-queue
func (h *Handler) ListPending(c *gin.Context) {
	handlers.RespondOK(c, gin.H{"entries": h.keys.PendingReviews()})
}

type rejectRequest struct {
	HypernymToBlock string `json:"hypernym_to_block"`
}

// POST /api/review-queue/:id/approve
func (h *Handler) Approve(c *gin.Context) {
	id := c.Param("id")
	if !h.keys.Approve(id) {
		handlers.RespondError(c, http.StatusNotFound, "review_entry_not_found", pkgerrors.ErrNotFound)
		return
	}
	handlers.RespondOK(c, gin.H{"approved": id})
}

// POST /api/review-queue/:id/reject
func (h *Handler) Reject(c *gin.Context) {
	id := c.Param("id")
	var req rejectRequest
	_ = c.ShouldBindJSON(&req) // body is optional; empty block-list hint is fine
	if !h.keys.Reject(id, req.HypernymToBlock) {
		handlers.RespondError(c, http.StatusNotFound, "review_entry_not_found", pkgerrors.ErrNotFound)
		return
	}
	handlers.RespondOK(c, gin.H{"rejected": id})
}
