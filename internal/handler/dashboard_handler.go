package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aec-internal/requisitions-api/internal/dto"
	appErrors "github.com/aec-internal/requisitions-api/pkg/errors"
	"github.com/aec-internal/requisitions-api/pkg/response"
)

type statsService interface {
	Stats(ctx context.Context) (dto.DashboardStats, error)
}

// DashboardHandler serves the counter strip across the top of the dashboards.
type DashboardHandler struct {
	service statsService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service statsService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Stats godoc
// @Summary Dashboard counters
// @Description Returns group, batch, urgency and status counters
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /dashboard/stats [get]
func (h *DashboardHandler) Stats(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}
