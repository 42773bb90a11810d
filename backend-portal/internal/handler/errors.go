package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/community-portal/backend-portal/internal/domain"
	"github.com/prohmpiriya/community-portal/pkg/logger"
	"github.com/prohmpiriya/community-portal/pkg/middleware"
	"github.com/prohmpiriya/community-portal/pkg/response"
)

var kindToCode = map[domain.ErrorKind]string{
	domain.KindUnauthorized:        response.ErrCodeUnauthorized,
	domain.KindNotFound:            response.ErrCodeNotFound,
	domain.KindValidation:          response.ErrCodeValidationFailed,
	domain.KindCapacityExceeded:    response.ErrCodeCapacityExceeded,
	domain.KindAlreadyRegistered:   response.ErrCodeAlreadyRegistered,
	domain.KindNotOpen:             response.ErrCodeNotOpen,
	domain.KindEventAlreadyStarted: response.ErrCodeEventAlreadyStarted,
	domain.KindStateConflict:       response.ErrCodeStateConflict,
	domain.KindSelfActionForbidden: response.ErrCodeSelfActionForbidden,
	domain.KindInternal:            response.ErrCodeInternalError,
}

// handleError writes the response for a service error
func handleError(c *gin.Context, err error) {
	de := domain.AsError(err)
	code, ok := kindToCode[de.Kind]
	if !ok {
		code = response.ErrCodeInternalError
	}
	status := response.GetHTTPStatus(code)

	if code == response.ErrCodeInternalError {
		c.JSON(status, response.InternalError(de.Message))
		return
	}
	if de.Field != "" {
		c.JSON(status, response.ErrorWithDetails(code, de.Message, map[string]string{de.Field: de.Message}))
		return
	}
	c.JSON(status, response.Error(code, de.Message))
}

// bindError reports a request that failed binding or shape validation
func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, response.BadRequest(err.Error()))
}

// actorFrom resolves the authenticated caller set by the JWT middleware and
// tags the request context with the actor id for logging
func actorFrom(c *gin.Context) (domain.Actor, context.Context) {
	ctx := c.Request.Context()
	id, _ := middleware.GetUserID(c)
	role, _ := middleware.GetRole(c)
	if id != "" {
		ctx = context.WithValue(ctx, logger.ActorIDKey, id)
	}
	return domain.Actor{ID: id, Role: domain.Role(role)}, ctx
}
