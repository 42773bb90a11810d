package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/community-portal/backend-portal/internal/dto"
	"github.com/prohmpiriya/community-portal/backend-portal/internal/service"
)

// ExportHandler streams CSV exports as attachments
type ExportHandler struct {
	exporter service.Exporter
}

// NewExportHandler creates a new ExportHandler
func NewExportHandler(exporter service.Exporter) *ExportHandler {
	return &ExportHandler{exporter: exporter}
}

// Registrations exports the registrants of one event
// GET /api/v1/events/:id/registrations/export
func (h *ExportHandler) Registrations(c *gin.Context) {
	actor, ctx := actorFrom(c)
	file, err := h.exporter.ExportRegistrations(ctx, actor, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	writeFile(c, file)
}

// Users exports the user directory
// GET /api/v1/users/export
func (h *ExportHandler) Users(c *gin.Context) {
	var query dto.ExportUsersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		bindError(c, err)
		return
	}

	actor, ctx := actorFrom(c)
	file, err := h.exporter.ExportUsers(ctx, actor, query.ToFilter())
	if err != nil {
		handleError(c, err)
		return
	}
	writeFile(c, file)
}

func writeFile(c *gin.Context, file *service.ExportFile) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, []byte(file.Body))
}
