package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aec-internal/requisitions-api/internal/service"
	appErrors "github.com/aec-internal/requisitions-api/pkg/errors"
	"github.com/aec-internal/requisitions-api/pkg/response"
)

// ExportHandler streams rendered requisition reports.
type ExportHandler struct {
	service *service.ExportService
}

// NewExportHandler creates a new export handler.
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Download godoc
// @Summary Export the requisition list
// @Description Renders the active requisitions as CSV or PDF
// @Tags Export
// @Produce octet-stream
// @Param format query string true "Export format (csv or pdf)"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /requisitions/export [get]
func (h *ExportHandler) Download(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	format := service.ExportFormat(c.DefaultQuery("format", "csv"))
	res, err := h.service.Generate(c.Request.Context(), actor, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Filename))
	c.Data(http.StatusOK, res.ContentType, res.Payload)
}
