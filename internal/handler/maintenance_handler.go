package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/facility-maintenance-api/internal/dto"
	"github.com/noah-isme/facility-maintenance-api/internal/middleware"
	"github.com/noah-isme/facility-maintenance-api/internal/models"
	"github.com/noah-isme/facility-maintenance-api/internal/service"
	"github.com/noah-isme/facility-maintenance-api/pkg/response"
)

type maintenanceService interface {
	List(ctx context.Context, filter models.MaintenanceFilter) ([]models.MaintenanceRequest, *models.Pagination, error)
	ListMine(ctx context.Context, actor models.Actor, filter models.MaintenanceFilter) ([]models.MaintenanceRequest, *models.Pagination, error)
	ListAssigned(ctx context.Context, actor models.Actor, filter models.MaintenanceFilter) ([]models.MaintenanceRequest, *models.Pagination, error)
	Get(ctx context.Context, actor models.Actor, id string) (*models.MaintenanceRequest, error)
	Create(ctx context.Context, actor models.Actor, req dto.CreateMaintenanceRequest) (*models.MaintenanceRequest, error)
	Update(ctx context.Context, actor models.Actor, id string, req dto.UpdateMaintenanceRequest) (*models.MaintenanceRequest, error)
	Delete(ctx context.Context, actor models.Actor, id string) error
	Assign(ctx context.Context, actor models.Actor, id string, technicianID *string) (*models.MaintenanceRequest, error)
	Advance(ctx context.Context, actor models.Actor, id string, req dto.StatusUpdateRequest) (*models.MaintenanceRequest, error)
	Cancel(ctx context.Context, actor models.Actor, id string, req dto.CancelRequest) (*models.MaintenanceRequest, error)
	History(ctx context.Context, actor models.Actor, id string) ([]models.MaintenanceHistory, error)
	Summary(ctx context.Context, actor models.Actor) (*dto.MaintenanceSummary, bool, error)
}

type exportService interface {
	Export(ctx context.Context, actor models.Actor, filter models.MaintenanceFilter, format service.ExportFormat) (*service.ExportResult, error)
}

// MaintenanceHandler exposes the maintenance request endpoints.
type MaintenanceHandler struct {
	service maintenanceService
	export  exportService
}

// NewMaintenanceHandler builds a new handler.
func NewMaintenanceHandler(service maintenanceService, export exportService) *MaintenanceHandler {
	return &MaintenanceHandler{service: service, export: export}
}

// List godoc
// @Summary List maintenance requests
// @Tags Maintenance
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param priority query string false "Comma separated priorities"
// @Param assignedTo query string false "Technician ID"
// @Param dateFrom query string false "Created on or after (RFC3339 or YYYY-MM-DD)"
// @Param dateTo query string false "Created on or before (RFC3339 or YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Param sortBy query string false "createdAt, updatedAt, priority or status"
// @Param sortOrder query string false "asc or desc"
// @Success 200 {object} response.Envelope
// @Router /maintenance [get]
func (h *MaintenanceHandler) List(c *gin.Context) {
	filter, err := parseMaintenanceFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	items, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// ListMine godoc
// @Summary List the caller's submitted requests
// @Tags Maintenance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /maintenance/mine [get]
func (h *MaintenanceHandler) ListMine(c *gin.Context) {
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

// ListAssigned godoc
// @Summary List requests assigned to the calling technician
// @Tags Maintenance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /maintenance/assigned [get]
func (h *MaintenanceHandler) ListAssigned(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	filter, err := parseMaintenanceFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	items, pagination, err := h.service.ListAssigned(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Summary godoc
// @Summary Count submitted requests by status
// @Tags Maintenance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /maintenance/summary [get]
func (h *MaintenanceHandler) Summary(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	summary, hit, err := h.service.Summary(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, summary, nil, middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Export filtered requests
// @Tags Maintenance
// @Produce octet-stream
// @Param format query string false "csv, pdf or xlsx"
// @Success 200 {file} file
// @Router /maintenance/export [get]
func (h *MaintenanceHandler) Export(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	filter, err := parseMaintenanceFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.export.Export(c.Request.Context(), actor, filter, service.ExportFormat(c.DefaultQuery("format", string(service.ExportCSV))))
	if err != nil {
		response.Error(c, err)
		return
	}
	if result.Truncated {
		c.Header("X-Export-Truncated", "true")
	}
	response.Attachment(c, result.Filename, result.ContentType, result.Body)
}

// Get godoc
// @Summary Get a maintenance request
// @Tags Maintenance
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /maintenance/{id} [get]
func (h *MaintenanceHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	item, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// History godoc
// @Summary List lifecycle history of a request
// @Tags Maintenance
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /maintenance/{id}/history [get]
func (h *MaintenanceHandler) History(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	entries, err := h.service.History(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Create godoc
// @Summary Submit a maintenance request
// @Tags Maintenance
// @Accept json
// @Produce json
// @Param payload body dto.CreateMaintenanceRequest true "Request payload"
// @Success 201 {object} response.Envelope
// @Router /maintenance [post]
func (h *MaintenanceHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateMaintenanceRequest
	if !bindJSON(c, &req, false, "invalid maintenance payload") {
		return
	}
	item, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Update or transition a maintenance request
// @Tags Maintenance
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.UpdateMaintenanceRequest true "Patch"
// @Success 200 {object} response.Envelope
// @Router /maintenance/{id} [put]
func (h *MaintenanceHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.UpdateMaintenanceRequest
	if !bindJSON(c, &req, false, "invalid maintenance payload") {
		return
	}
	item, err := h.service.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Delete godoc
// @Summary Delete a draft
// @Tags Maintenance
// @Param id path string true "Request ID"
// @Success 204
// @Router /maintenance/{id} [delete]
func (h *MaintenanceHandler) Delete(c *gin.Context) {
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

// Assign godoc
// @Summary Assign or clear the technician
// @Tags Maintenance
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.AssignRequest true "Technician, null to clear"
// @Success 200 {object} response.Envelope
// @Router /maintenance/{id}/assign [put]
func (h *MaintenanceHandler) Assign(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.AssignRequest
	if !bindJSON(c, &req, false, "invalid assignment payload") {
		return
	}
	item, err := h.service.Assign(c.Request.Context(), actor, c.Param("id"), req.TechnicianID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// UpdateStatus godoc
// @Summary Move work forward as the assigned technician
// @Tags Maintenance
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.StatusUpdateRequest true "Status and notes"
// @Success 200 {object} response.Envelope
// @Router /maintenance/{id}/status [put]
func (h *MaintenanceHandler) UpdateStatus(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.StatusUpdateRequest
	if !bindJSON(c, &req, false, "invalid status payload") {
		return
	}
	item, err := h.service.Advance(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Cancel godoc
// @Summary Cancel a request that has not started
// @Tags Maintenance
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.CancelRequest false "Reason"
// @Success 200 {object} response.Envelope
// @Router /maintenance/{id}/cancel [post]
func (h *MaintenanceHandler) Cancel(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.CancelRequest
	if !bindJSON(c, &req, true, "invalid cancel payload") {
		return
	}
	item, err := h.service.Cancel(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}
