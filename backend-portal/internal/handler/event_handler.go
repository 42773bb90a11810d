package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/community-portal/backend-portal/internal/clock"
	"github.com/prohmpiriya/community-portal/backend-portal/internal/dto"
	"github.com/prohmpiriya/community-portal/backend-portal/internal/service"
	"github.com/prohmpiriya/community-portal/pkg/response"
)

// EventHandler handles event HTTP requests
type EventHandler struct {
	events service.EventLifecycleManager
	clock  clock.Clock
}

// NewEventHandler creates a new EventHandler
func NewEventHandler(events service.EventLifecycleManager, clk clock.Clock) *EventHandler {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &EventHandler{events: events, clock: clk}
}

// Create handles event creation
// POST /api/v1/events
func (h *EventHandler) Create(c *gin.Context) {
	var req dto.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	actor, ctx := actorFrom(c)
	result, err := h.events.Create(ctx, actor, req.ToInput())
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(result))
}

// Update handles a partial event update
// PATCH /api/v1/events/:id
func (h *EventHandler) Update(c *gin.Context) {
	var req dto.UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if valid, msg := req.Validate(); !valid {
		c.JSON(http.StatusBadRequest, response.BadRequest(msg))
		return
	}

	actor, ctx := actorFrom(c)
	result, err := h.events.Update(ctx, actor, c.Param("id"), req.ToInput())
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(result))
}

// Delete handles event deletion
// DELETE /api/v1/events/:id
func (h *EventHandler) Delete(c *gin.Context) {
	actor, ctx := actorFrom(c)
	if err := h.events.Delete(ctx, actor, c.Param("id")); err != nil {
		handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// CloseRegistration ends the registration window now
// POST /api/v1/events/:id/close-registration
func (h *EventHandler) CloseRegistration(c *gin.Context) {
	actor, ctx := actorFrom(c)
	result, err := h.events.CloseRegistration(ctx, actor, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(result))
}

// Cancel cancels an event and reports the registrants to notify
// POST /api/v1/events/:id/cancel
func (h *EventHandler) Cancel(c *gin.Context) {
	var req dto.CancelEventRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
	}

	actor, ctx := actorFrom(c)
	result, err := h.events.CancelEvent(ctx, actor, c.Param("id"), req.Reason)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(result))
}

// Get handles retrieving one event with its live status
// GET /api/v1/events/:id
func (h *EventHandler) Get(c *gin.Context) {
	actor, ctx := actorFrom(c)
	result, err := h.events.Get(ctx, actor, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(result))
}

// List handles listing events with pagination
// GET /api/v1/events
func (h *EventHandler) List(c *gin.Context) {
	var query dto.ListEventsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		bindError(c, err)
		return
	}

	actor, ctx := actorFrom(c)
	filter := query.ToFilter(h.clock.Now())
	events, total, err := h.events.List(ctx, actor, filter)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paginated(events, query.Page, query.Limit, int64(total)))
}
