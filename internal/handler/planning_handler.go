package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-planner-api/internal/dto"
	"github.com/noah-isme/campus-planner-api/internal/middleware"
	"github.com/noah-isme/campus-planner-api/internal/service"
	appErrors "github.com/noah-isme/campus-planner-api/pkg/errors"
	"github.com/noah-isme/campus-planner-api/pkg/response"
)

type scheduleGenerator interface {
	GenerateSchedule(ctx context.Context, academicYearID string) (*dto.GenerateScheduleResult, error)
}

type groupPlanningProvider interface {
	GetGroupPlanning(ctx context.Context, query dto.GroupPlanningQuery) (*dto.GroupPlanningResponse, error)
}

type timetableExporter interface {
	ExportGroupTimetable(ctx context.Context, req dto.ExportTimetableRequest) (*dto.ExportFile, error)
}

// PlanningHandler exposes schedule generation and group planning endpoints.
type PlanningHandler struct {
	generator scheduleGenerator
	planning  groupPlanningProvider
	exporter  timetableExporter
}

// NewPlanningHandler constructs the handler.
func NewPlanningHandler(generator *service.PlanningService, planning *service.GroupPlanningService, exporter *service.ExportService) *PlanningHandler {
	return &PlanningHandler{generator: generator, planning: planning, exporter: exporter}
}

// Generate godoc
// @Summary Generate the sessions of an academic year
// @Description Books every group/course pairing into rooms and slots. Pairing failures are listed in errors without failing the run.
// @Tags Planning
// @Produce json
// @Param id path string true "Academic year ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /academic-years/{id}/schedule/generate [post]
func (h *PlanningHandler) Generate(c *gin.Context) {
	result, err := h.generator.GenerateSchedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		if result != nil {
			response.ErrorWithData(c, err, result)
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil, actorMeta(c))
}

// GroupPlanning godoc
// @Summary Day by day planning of a group
// @Tags Planning
// @Produce json
// @Param id path string true "Group ID"
// @Param from query string true "First date (YYYY-MM-DD)"
// @Param to query string true "Last date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /groups/{id}/planning [get]
func (h *PlanningHandler) GroupPlanning(c *gin.Context) {
	var query dto.GroupPlanningQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid planning query"))
		return
	}
	query.GroupID = c.Param("id")
	result, err := h.planning.GetGroupPlanning(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, result.Cached)
	response.JSON(c, http.StatusOK, result, nil, middleware.ExtractMeta(c))
}

// ExportTimetable godoc
// @Summary Download the timetable of a group
// @Tags Planning
// @Produce octet-stream
// @Param id path string true "Group ID"
// @Param from query string true "First date (YYYY-MM-DD)"
// @Param to query string true "Last date (YYYY-MM-DD)"
// @Param format query string true "csv, pdf, xlsx or ics"
// @Success 200 {file} file
// @Router /groups/{id}/timetable/export [get]
func (h *PlanningHandler) ExportTimetable(c *gin.Context) {
	var req dto.ExportTimetableRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export query"))
		return
	}
	req.GroupID = c.Param("id")
	file, err := h.exporter.ExportGroupTimetable(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
