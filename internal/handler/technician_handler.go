package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/facility-maintenance-api/internal/middleware"
	"github.com/noah-isme/facility-maintenance-api/internal/models"
	"github.com/noah-isme/facility-maintenance-api/pkg/response"
)

type technicianService interface {
	List(ctx context.Context) ([]models.Technician, bool, error)
}

// TechnicianHandler lists users who can be assigned work.
type TechnicianHandler struct {
	service technicianService
}

// NewTechnicianHandler builds a new handler.
func NewTechnicianHandler(service technicianService) *TechnicianHandler {
	return &TechnicianHandler{service: service}
}

// List godoc
// @Summary List assignable technicians
// @Tags Users
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /users/technicians [get]
func (h *TechnicianHandler) List(c *gin.Context) {
	items, hit, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, items, nil, middleware.ExtractMeta(c))
}
