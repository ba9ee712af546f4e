package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/enrichment-backend/internal/http/response"
	"github.com/yungbote/enrichment-backend/internal/services"
)

type EnrichmentHandler struct {
	enrichments services.EnrichmentService
}

func NewEnrichmentHandler(enrichments services.EnrichmentService) *EnrichmentHandler {
	return &EnrichmentHandler{enrichments: enrichments}
}

func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_"+param, err)
		return uuid.Nil, false
	}
	return id, true
}

// POST /api/enrichments
func (h *EnrichmentHandler) Create(c *gin.Context) {
	var in services.CreateEnrichmentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	out, err := h.enrichments.Create(c.Request.Context(), in)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

// POST /api/enrichments/:id/uploaded
func (h *EnrichmentHandler) MarkUploaded(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	e, err := h.enrichments.MarkUploaded(c.Request.Context(), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"enrichment": e})
}

// GET /api/enrichments/:id
func (h *EnrichmentHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	view, err := h.enrichments.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, view)
}

type translateRequest struct {
	Language string `json:"language"`
}

// POST /api/enrichments/:id/translate
func (h *EnrichmentHandler) RequestTranslation(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req translateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	e, err := h.enrichments.RequestTranslation(c.Request.Context(), id, req.Language)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"enrichment": e})
}

// DELETE /api/enrichments/:id/versions/:versionId
func (h *EnrichmentHandler) DeleteVersion(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	versionID, ok := parseID(c, "versionId")
	if !ok {
		return
	}
	if err := h.enrichments.DeleteVersion(c.Request.Context(), id, versionID); err != nil {
		response.RespondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
