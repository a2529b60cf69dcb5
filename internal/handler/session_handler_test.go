package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-planner-api/internal/dto"
	"github.com/noah-isme/campus-planner-api/internal/models"
	appErrors "github.com/noah-isme/campus-planner-api/pkg/errors"
)

type mutabilityMock struct{ state dto.MutabilityState }

func (m mutabilityMock) CheckMutability(_ context.Context, id string) (*dto.MutabilityResult, error) {
	return &dto.MutabilityResult{SessionID: id, State: m.state, CanModify: m.state == dto.StateFuture}, nil
}

func (m mutabilityMock) GetSessionStatus(_ context.Context, id string) (*dto.SessionStatus, error) {
	return &dto.SessionStatus{SessionID: id, Status: m.state, Label: "En cours"}, nil
}

type editorMock struct {
	update    dto.UpdateSessionRequest
	deleteErr error
}

func (m *editorMock) UpdateSession(_ context.Context, id string, req dto.UpdateSessionRequest) (*models.CourseSession, error) {
	m.update = req
	return &models.CourseSession{ID: id, RoomID: *req.RoomID}, nil
}

func (m *editorMock) DeleteSession(context.Context, string) error {
	return m.deleteErr
}

func sessionRouter(h *SessionHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/sessions/:id/mutability", h.Mutability)
	r.GET("/sessions/:id/status", h.Status)
	r.PATCH("/sessions/:id", h.Update)
	r.DELETE("/sessions/:id", h.Delete)
	return r
}

func TestSessionMutabilityEndpoint(t *testing.T) {
	r := sessionRouter(&SessionHandler{mutability: mutabilityMock{state: dto.StateOngoing}})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/sessions/s1/mutability", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data dto.MutabilityResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, dto.StateOngoing, body.Data.State)
	assert.False(t, body.Data.CanModify)
}

func TestSessionUpdateBindsPayload(t *testing.T) {
	editor := &editorMock{}
	r := sessionRouter(&SessionHandler{editor: editor})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPatch, "/sessions/s1", bytes.NewBufferString(`{"roomId":"room-9","startAt":"2024-09-02T10:00:00Z"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, editor.update.StartAt)
	assert.Equal(t, 10, editor.update.StartAt.Hour())
}

func TestSessionUpdateRejectsMalformedJSON(t *testing.T) {
	r := sessionRouter(&SessionHandler{editor: &editorMock{}})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPatch, "/sessions/s1", bytes.NewBufferString(`{"startAt":`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionDeleteLocked(t *testing.T) {
	locked := appErrors.WithDetails(appErrors.ErrSessionLocked, map[string]any{"state": "ongoing"})
	r := sessionRouter(&SessionHandler{editor: &editorMock{deleteErr: locked}})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodDelete, "/sessions/s1", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "SESSION_LOCKED")
	assert.Contains(t, w.Body.String(), "ongoing")
}

func TestSessionDeleteNoContent(t *testing.T) {
	r := sessionRouter(&SessionHandler{editor: &editorMock{}})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodDelete, "/sessions/s1", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}
