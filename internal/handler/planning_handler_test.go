package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-planner-api/internal/dto"
	"github.com/noah-isme/campus-planner-api/internal/middleware"
	"github.com/noah-isme/campus-planner-api/internal/models"
	appErrors "github.com/noah-isme/campus-planner-api/pkg/errors"
)

type generatorMock struct {
	result *dto.GenerateScheduleResult
	err    error
	called string
}

func (m *generatorMock) GenerateSchedule(_ context.Context, id string) (*dto.GenerateScheduleResult, error) {
	m.called = id
	return m.result, m.err
}

type planningMock struct{ query dto.GroupPlanningQuery }

func (m *planningMock) GetGroupPlanning(_ context.Context, query dto.GroupPlanningQuery) (*dto.GroupPlanningResponse, error) {
	m.query = query
	return &dto.GroupPlanningResponse{GroupID: query.GroupID, Days: []dto.PlanningDay{}}, nil
}

type exporterMock struct{ req dto.ExportTimetableRequest }

func (m *exporterMock) ExportGroupTimetable(_ context.Context, req dto.ExportTimetableRequest) (*dto.ExportFile, error) {
	m.req = req
	return &dto.ExportFile{Filename: "planning.ics", ContentType: "text/calendar; charset=utf-8", Body: []byte("BEGIN:VCALENDAR")}, nil
}

func planningRouter(h *PlanningHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "planner-7", Role: models.RolePlanner})
	})
	r.POST("/academic-years/:id/schedule/generate", h.Generate)
	r.GET("/groups/:id/planning", h.GroupPlanning)
	r.GET("/groups/:id/timetable/export", h.ExportTimetable)
	return r
}

func TestPlanningGenerateSuccess(t *testing.T) {
	gen := &generatorMock{result: &dto.GenerateScheduleResult{Success: true, SessionsCreated: 4, Errors: []string{}}}
	r := planningRouter(&PlanningHandler{generator: gen})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/academic-years/year-1/schedule/generate", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "year-1", gen.called)
	var body struct {
		Data dto.GenerateScheduleResult `json:"data"`
		Meta map[string]interface{}     `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 4, body.Data.SessionsCreated)
	assert.Equal(t, "planner-7", body.Meta["requestedBy"])
}

func TestPlanningGenerateFailureKeepsPartialResult(t *testing.T) {
	gen := &generatorMock{
		result: &dto.GenerateScheduleResult{Success: false, Message: "generation failed: boom", SessionsCreated: 2},
		err:    appErrors.Clone(appErrors.ErrInternal, "schedule generation failed"),
	}
	r := planningRouter(&PlanningHandler{generator: gen})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/academic-years/year-1/schedule/generate", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body struct {
		Data  dto.GenerateScheduleResult `json:"data"`
		Error appErrors.Error            `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Data.SessionsCreated)
	assert.Equal(t, appErrors.ErrInternal.Code, body.Error.Code)
}

func TestPlanningGenerateConflict(t *testing.T) {
	gen := &generatorMock{err: appErrors.ErrGenerationInProgress}
	r := planningRouter(&PlanningHandler{generator: gen})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/academic-years/year-1/schedule/generate", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestGroupPlanningBindsQuery(t *testing.T) {
	planning := &planningMock{}
	r := planningRouter(&PlanningHandler{planning: planning})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/groups/g-1/planning?from=2024-09-02&to=2024-09-06", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dto.GroupPlanningQuery{GroupID: "g-1", From: "2024-09-02", To: "2024-09-06"}, planning.query)
	assert.Contains(t, w.Body.String(), `"cacheHit":false`)
}

func TestExportTimetableStreamsAttachment(t *testing.T) {
	exporter := &exporterMock{}
	r := planningRouter(&PlanningHandler{exporter: exporter})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/groups/g-1/timetable/export?from=2024-09-02&to=2024-09-06&format=ics", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ics", exporter.req.Format)
	assert.Equal(t, `attachment; filename="planning.ics"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "BEGIN:VCALENDAR", w.Body.String())
}
