package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/community-portal/backend-portal/internal/domain"
	"github.com/prohmpiriya/community-portal/backend-portal/internal/dto"
	"github.com/prohmpiriya/community-portal/backend-portal/internal/service"
	"github.com/prohmpiriya/community-portal/pkg/response"
)

// UserHandler handles user account HTTP requests
type UserHandler struct {
	users service.UserAccountStateMachine
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(users service.UserAccountStateMachine) *UserHandler {
	return &UserHandler{users: users}
}

// SignUp handles self-service account requests
// POST /api/v1/auth/signup
func (h *UserHandler) SignUp(c *gin.Context) {
	var req dto.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.users.SignUp(c.Request.Context(), req.ToInput())
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(result))
}

// ChangeStatus moves a user to another status
// PATCH /api/v1/users/:id/status
func (h *UserHandler) ChangeStatus(c *gin.Context) {
	var req dto.UpdateUserStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	actor, ctx := actorFrom(c)
	change := h.users.ChangeStatus
	if req.Force {
		change = h.users.ForceStatus
	}
	result, err := change(ctx, actor, c.Param("id"), domain.UserStatus(req.Status))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(result))
}

// ChangeRole assigns a role
// PATCH /api/v1/users/:id/role
func (h *UserHandler) ChangeRole(c *gin.Context) {
	var req dto.UpdateUserRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	actor, ctx := actorFrom(c)
	result, err := h.users.ChangeRole(ctx, actor, c.Param("id"), domain.Role(req.Role))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(result))
}

// ResetPassword issues a temporary password
// POST /api/v1/users/:id/reset-password
func (h *UserHandler) ResetPassword(c *gin.Context) {
	actor, ctx := actorFrom(c)
	password, err := h.users.ResetPassword(ctx, actor, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, response.Success(dto.ResetPasswordResponse{TemporaryPassword: password}))
}

// Delete handles account deletion
// DELETE /api/v1/users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	actor, ctx := actorFrom(c)
	if err := h.users.Delete(ctx, actor, c.Param("id")); err != nil {
		handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Get handles retrieving one account
// GET /api/v1/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	actor, ctx := actorFrom(c)
	result, err := h.users.Get(ctx, actor, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(result))
}

// Me handles retrieving the caller's own account
// GET /api/v1/me
func (h *UserHandler) Me(c *gin.Context) {
	actor, ctx := actorFrom(c)
	result, err := h.users.Get(ctx, actor, actor.ID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(result))
}

// List handles listing accounts with pagination
// GET /api/v1/users
func (h *UserHandler) List(c *gin.Context) {
	var query dto.ListUsersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		bindError(c, err)
		return
	}

	actor, ctx := actorFrom(c)
	filter := query.ToFilter()
	users, total, err := h.users.List(ctx, actor, filter)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paginated(users, query.Page, query.Limit, int64(total)))
}
