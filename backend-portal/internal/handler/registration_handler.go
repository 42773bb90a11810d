package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/community-portal/backend-portal/internal/dto"
	"github.com/prohmpiriya/community-portal/backend-portal/internal/service"
	"github.com/prohmpiriya/community-portal/pkg/response"
)

// RegistrationHandler handles registration HTTP requests
type RegistrationHandler struct {
	ledger service.RegistrationLedger
}

// NewRegistrationHandler creates a new RegistrationHandler
func NewRegistrationHandler(ledger service.RegistrationLedger) *RegistrationHandler {
	return &RegistrationHandler{ledger: ledger}
}

// Register handles registering for an event
// POST /api/v1/events/:id/registrations
func (h *RegistrationHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
	}

	actor, ctx := actorFrom(c)
	result, err := h.ledger.Register(ctx, actor, req.ToInput(c.Param("id")))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(result))
}

// Cancel withdraws the caller's own registration
// DELETE /api/v1/registrations/:id
func (h *RegistrationHandler) Cancel(c *gin.Context) {
	actor, ctx := actorFrom(c)
	if err := h.ledger.Cancel(ctx, actor, c.Param("id")); err != nil {
		handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListByEvent handles listing registrants of an event
// GET /api/v1/events/:id/registrations
func (h *RegistrationHandler) ListByEvent(c *gin.Context) {
	actor, ctx := actorFrom(c)
	result, err := h.ledger.ListByEvent(ctx, actor, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(result))
}

// ListMine handles listing the caller's registrations
// GET /api/v1/me/registrations
func (h *RegistrationHandler) ListMine(c *gin.Context) {
	actor, ctx := actorFrom(c)
	result, err := h.ledger.ListMine(ctx, actor)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(result))
}
