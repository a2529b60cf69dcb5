package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-planner-api/internal/dto"
	"github.com/noah-isme/campus-planner-api/internal/models"
	"github.com/noah-isme/campus-planner-api/internal/service"
	appErrors "github.com/noah-isme/campus-planner-api/pkg/errors"
	"github.com/noah-isme/campus-planner-api/pkg/response"
)

type travelService interface {
	GenerateAllTravel(ctx context.Context) (*dto.GenerateTravelResult, error)
	GenerateTravelForAcademicYear(ctx context.Context, academicYearID string) (*dto.GenerateTravelResult, error)
	ListTravel(ctx context.Context, query dto.ListTravelQuery) ([]models.Deplacement, *models.Pagination, error)
	TravelStats(ctx context.Context) (*models.DeplacementStats, error)
}

// TravelHandler exposes deplacement endpoints.
type TravelHandler struct {
	service travelService
}

// NewTravelHandler constructs the handler.
func NewTravelHandler(svc *service.TravelService) *TravelHandler {
	return &TravelHandler{service: svc}
}

// GenerateAll godoc
// @Summary Rebuild every deplacement
// @Tags Travel
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /deplacements/generate [post]
func (h *TravelHandler) GenerateAll(c *gin.Context) {
	result, err := h.service.GenerateAllTravel(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil, actorMeta(c))
}

// GenerateForAcademicYear godoc
// @Summary Rebuild the deplacements of an academic year
// @Tags Travel
// @Produce json
// @Param id path string true "Academic year ID"
// @Success 200 {object} response.Envelope
// @Router /academic-years/{id}/deplacements/generate [post]
func (h *TravelHandler) GenerateForAcademicYear(c *gin.Context) {
	result, err := h.service.GenerateTravelForAcademicYear(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil, actorMeta(c))
}

// List godoc
// @Summary List deplacements
// @Tags Travel
// @Produce json
// @Param group_id query string false "Group ID"
// @Param date query string false "Departure date (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /deplacements [get]
func (h *TravelHandler) List(c *gin.Context) {
	var query dto.ListTravelQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid travel query"))
		return
	}
	items, pagination, err := h.service.ListTravel(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Stats godoc
// @Summary Deplacement counters
// @Tags Travel
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /deplacements/stats [get]
func (h *TravelHandler) Stats(c *gin.Context) {
	stats, err := h.service.TravelStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}
