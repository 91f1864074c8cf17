package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/facility-maintenance-api/internal/dto"
	"github.com/noah-isme/facility-maintenance-api/internal/models"
	"github.com/noah-isme/facility-maintenance-api/pkg/response"
)

type draftService interface {
	ListMine(ctx context.Context, actor models.Actor, filter models.MaintenanceFilter) ([]models.MaintenanceRequest, *models.Pagination, error)
	Save(ctx context.Context, actor models.Actor, req dto.DraftRequest) (*models.MaintenanceRequest, error)
	Update(ctx context.Context, actor models.Actor, id string, req dto.DraftRequest) (*models.MaintenanceRequest, error)
	Submit(ctx context.Context, actor models.Actor, id string) (*models.MaintenanceRequest, error)
	Delete(ctx context.Context, actor models.Actor, id string) error
}

// DraftHandler serves the caller's unsubmitted requests.
type DraftHandler struct {
	service draftService
}

// NewDraftHandler builds a new handler.
func NewDraftHandler(service draftService) *DraftHandler {
	return &DraftHandler{service: service}
}

// ListMine godoc
// @Summary List the caller's drafts
// @Tags Drafts
// @Produce json
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /maintenance/my-drafts [get]
func (h *DraftHandler) ListMine(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	filter, err := parseMaintenanceFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	items, pagination, err := h.service.ListMine(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Save godoc
// @Summary Save a new draft
// @Tags Drafts
// @Accept json
// @Produce json
// @Param payload body dto.CreateMaintenanceRequest true "Partial form"
// @Success 201 {object} response.Envelope
// @Router /maintenance/draft [post]
func (h *DraftHandler) Save(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.DraftRequest
	if !bindJSON(c, &req, true, "invalid draft payload") {
		return
	}
	item, err := h.service.Save(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Overwrite a draft
// @Tags Drafts
// @Accept json
// @Produce json
// @Param id path string true "Draft ID"
// @Param payload body dto.CreateMaintenanceRequest true "Partial form"
// @Success 200 {object} response.Envelope
// @Router /maintenance/draft/{id} [put]
func (h *DraftHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.DraftRequest
	if !bindJSON(c, &req, true, "invalid draft payload") {
		return
	}
	item, err := h.service.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Submit godoc
// @Summary Submit a draft for review
// @Tags Drafts
// @Produce json
// @Param id path string true "Draft ID"
// @Success 200 {object} response.Envelope
// @Router /maintenance/draft/{id}/submit [post]
func (h *DraftHandler) Submit(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	item, err := h.service.Submit(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Delete godoc
// @Summary Discard a draft
// @Tags Drafts
// @Param id path string true "Draft ID"
// @Success 204
// @Router /maintenance/draft/{id} [delete]
func (h *DraftHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
