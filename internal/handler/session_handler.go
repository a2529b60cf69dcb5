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

type sessionMutability interface {
	CheckMutability(ctx context.Context, sessionID string) (*dto.MutabilityResult, error)
	GetSessionStatus(ctx context.Context, sessionID string) (*dto.SessionStatus, error)
}

type sessionEditor interface {
	UpdateSession(ctx context.Context, sessionID string, req dto.UpdateSessionRequest) (*models.CourseSession, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// SessionHandler exposes session inspection and editing endpoints.
type SessionHandler struct {
	mutability sessionMutability
	editor     sessionEditor
}

// NewSessionHandler constructs the handler.
func NewSessionHandler(mutability *service.SessionValidationService, editor *service.SessionService) *SessionHandler {
	return &SessionHandler{mutability: mutability, editor: editor}
}

// Mutability godoc
// @Summary What may still change on a session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/mutability [get]
func (h *SessionHandler) Mutability(c *gin.Context) {
	result, err := h.mutability.CheckMutability(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Status godoc
// @Summary Display status of a session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/status [get]
func (h *SessionHandler) Status(c *gin.Context) {
	status, err := h.mutability.GetSessionStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Update godoc
// @Summary Move a session or change its groups
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.UpdateSessionRequest true "Session changes"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions/{id} [patch]
func (h *SessionHandler) Update(c *gin.Context) {
	var req dto.UpdateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid session payload"))
		return
	}
	session, err := h.editor.UpdateSession(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil, actorMeta(c))
}

// Delete godoc
// @Summary Delete a session that has not started
// @Tags Sessions
// @Param id path string true "Session ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /sessions/{id} [delete]
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.editor.DeleteSession(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
