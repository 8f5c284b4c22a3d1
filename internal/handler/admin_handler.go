package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gettogather-api/internal/middleware"
	"github.com/noah-isme/gettogather-api/internal/models"
	"github.com/noah-isme/gettogather-api/internal/service"
	"github.com/noah-isme/gettogather-api/pkg/response"
)

type adminService interface {
	Stats(ctx context.Context) (*models.AdminStats, bool)
	Export(ctx context.Context, format string) (*service.ExportFile, error)
}

// AdminHandler serves the admin dashboard endpoints.
type AdminHandler struct {
	service adminService
}

// NewAdminHandler constructs the handler.
func NewAdminHandler(service adminService) *AdminHandler {
	return &AdminHandler{service: service}
}

// Stats godoc
// @Summary Platform statistics
// @Description Totals of events, users, active events and attendees, with request and cache counters.
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /admin/stats [get]
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, cacheHit := h.service.Stats(c.Request.Context())
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, stats, middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Export events
// @Tags Admin
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /admin/events/export [get]
func (h *AdminHandler) Export(c *gin.Context) {
	file, err := h.service.Export(c.Request.Context(), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}
