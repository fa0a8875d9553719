package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/aec-internal/requisitions-api/internal/dto"
	"github.com/aec-internal/requisitions-api/internal/service"
	appErrors "github.com/aec-internal/requisitions-api/pkg/errors"
	"github.com/aec-internal/requisitions-api/pkg/response"
)

// RequisitionHandler exposes the requisition dashboard endpoints.
type RequisitionHandler struct {
	service *service.RequisitionService
}

// NewRequisitionHandler creates a new handler.
func NewRequisitionHandler(svc *service.RequisitionService) *RequisitionHandler {
	return &RequisitionHandler{service: svc}
}

// ListGroups godoc
// @Summary List requisition groups
// @Description Returns filtered groups sorted most urgent first
// @Tags Requisitions
// @Produce json
// @Param purchasing_status query string false "Purchasing status filter"
// @Param engineering_status query string false "Engineering status filter"
// @Param urgency query string false "Urgency band filter"
// @Param search query string false "Free text search"
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /requisitions/groups [get]
func (h *RequisitionHandler) ListGroups(c *gin.Context) {
	filter := dto.GroupFilter{
		PurchasingStatus:  c.Query("purchasing_status"),
		EngineeringStatus: c.Query("engineering_status"),
		UrgencyBand:       c.Query("urgency"),
		Search:            c.Query("search"),
	}

	groups, err := h.service.ListGroups(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, groups, nil)
}

// GetBatch godoc
// @Summary Get one batch
// @Description Returns the batch identified by requisition code
// @Tags Requisitions
// @Produce json
// @Param code path string true "Requisition code"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /requisitions/batches/{code} [get]
func (h *RequisitionHandler) GetBatch(c *gin.Context) {
	view, err := h.service.GetBatch(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, view, nil)
}

// StatusOptions godoc
// @Summary Status options for the caller
// @Description Returns the status vocabulary the caller's department may apply
// @Tags Requisitions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /requisitions/status-options [get]
func (h *RequisitionHandler) StatusOptions(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	response.JSON(c, http.StatusOK, h.service.StatusOptions(actor), nil)
}

// CreateItem godoc
// @Summary Create a standalone requisition item
// @Tags Requisitions
// @Accept json
// @Produce json
// @Param payload body dto.CreateIndividualRequest true "Item payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /requisitions/items [post]
func (h *RequisitionHandler) CreateItem(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.CreateIndividualRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid item payload"))
		return
	}

	if err := h.service.CreateIndividual(c.Request.Context(), actor, req); err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, gin.H{"status": "created"})
}

// CreateBatch godoc
// @Summary Create a requisition batch
// @Tags Requisitions
// @Accept json
// @Produce json
// @Param payload body dto.CreateBatchRequest true "Batch payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /requisitions/batches [post]
func (h *RequisitionHandler) CreateBatch(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.CreateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid batch payload"))
		return
	}

	if err := h.service.CreateBatch(c.Request.Context(), actor, req); err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, gin.H{"status": "created", "requisitionCode": req.RequisitionCode})
}

// UpdateField godoc
// @Summary Update one field of an item
// @Description Overwrites a single cell subject to department authorization
// @Tags Requisitions
// @Accept json
// @Produce json
// @Param position path int true "Row position"
// @Param payload body dto.UpdateFieldRequest true "Field update"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /requisitions/items/{position}/field [patch]
func (h *RequisitionHandler) UpdateField(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	position, err := parsePosition(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.UpdateFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid field payload"))
		return
	}

	if err := h.service.UpdateField(c.Request.Context(), actor, position, req); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// DeleteItem godoc
// @Summary Remove an item
// @Description Soft-deletes the item; the row keeps its position
// @Tags Requisitions
// @Produce json
// @Param position path int true "Row position"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /requisitions/items/{position} [delete]
func (h *RequisitionHandler) DeleteItem(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	position, err := parsePosition(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.service.SoftDelete(c.Request.Context(), actor, position); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// MarkBatchSeen godoc
// @Summary Mark a batch as seen
// @Description Stamps the seen column on every active member
// @Tags Requisitions
// @Produce json
// @Param code path string true "Requisition code"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /requisitions/batches/{code}/seen [post]
func (h *RequisitionHandler) MarkBatchSeen(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.MarkBatchSeen(c.Request.Context(), actor, c.Param("code")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// UpdateSharedFields godoc
// @Summary Update shared fields of a batch
// @Description Fans the values out to every active member in one write
// @Tags Requisitions
// @Accept json
// @Produce json
// @Param code path string true "Requisition code"
// @Param payload body dto.UpdateSharedFieldsRequest true "Shared field updates"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /requisitions/batches/{code}/shared [patch]
func (h *RequisitionHandler) UpdateSharedFields(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.UpdateSharedFieldsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid shared fields payload"))
		return
	}

	if err := h.service.UpdateSharedFields(c.Request.Context(), actor, c.Param("code"), req); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// AddProduct godoc
// @Summary Add a product to a batch
// @Description Appends one row copying the batch's shared fields
// @Tags Requisitions
// @Accept json
// @Produce json
// @Param code path string true "Requisition code"
// @Param payload body dto.BatchProductInput true "Product payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /requisitions/batches/{code}/products [post]
func (h *RequisitionHandler) AddProduct(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.BatchProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid product payload"))
		return
	}

	if err := h.service.AddProductToBatch(c.Request.Context(), actor, c.Param("code"), req); err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, gin.H{"status": "created"})
}

// ReplaceBatch godoc
// @Summary Edit batch membership
// @Description Applies shared updates, product edits, removals and additions
// @Tags Requisitions
// @Accept json
// @Produce json
// @Param code path string true "Requisition code"
// @Param payload body dto.ReplaceBatchRequest true "Batch edit payload"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /requisitions/batches/{code} [put]
func (h *RequisitionHandler) ReplaceBatch(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.ReplaceBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid batch edit payload"))
		return
	}

	if err := h.service.ReplaceBatchMembership(c.Request.Context(), actor, c.Param("code"), req); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

func parsePosition(c *gin.Context) (int, error) {
	position, err := strconv.Atoi(c.Param("position"))
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, "position must be an integer")
	}
	return position, nil
}
