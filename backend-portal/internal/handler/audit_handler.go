package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/community-portal/backend-portal/internal/dto"
	"github.com/prohmpiriya/community-portal/backend-portal/internal/service"
	"github.com/prohmpiriya/community-portal/pkg/response"
)

// AuditHandler serves the audit trail
type AuditHandler struct {
	audit service.AuditLog
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(audit service.AuditLog) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// ByEntity lists the history of one event or user
// GET /api/v1/audit?entity_type=EVENT&entity_id=...
func (h *AuditHandler) ByEntity(c *gin.Context) {
	var query dto.AuditQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		bindError(c, err)
		return
	}

	actor, ctx := actorFrom(c)
	entries, err := h.audit.QueryByEntity(ctx, actor, query.EntityType, query.EntityID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(entries))
}

// ByActor lists everything one admin did
// GET /api/v1/audit/actors/:id
func (h *AuditHandler) ByActor(c *gin.Context) {
	actor, ctx := actorFrom(c)
	entries, err := h.audit.QueryByActor(ctx, actor, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(entries))
}
