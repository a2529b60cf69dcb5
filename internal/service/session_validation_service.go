package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-planner-api/internal/dto"
	"github.com/noah-isme/campus-planner-api/internal/models"
	appErrors "github.com/noah-isme/campus-planner-api/pkg/errors"
)

type sessionFinder interface {
	FindByID(ctx context.Context, id string) (*models.CourseSession, error)
}

type statusText struct {
	label       string
	description string
}

var sessionStatusTexts = map[dto.MutabilityState]statusText{
	dto.StateFuture:        {label: "À venir", description: "Cette session n'a pas encore commencé"},
	dto.StateOngoing:       {label: "En cours", description: "Cette session est actuellement en cours"},
	dto.StateRecentlyEnded: {label: "Récemment terminée", description: "Cette session vient de se terminer"},
	dto.StatePast:          {label: "Terminée", description: "Cette session est terminée depuis plus de %s"},
}

// SessionValidationService classifies sessions by time and derives what may still change.
type SessionValidationService struct {
	sessions sessionFinder
	margin   time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewSessionValidationService builds the mutability checker. margin is the grace
// period after a session ends before it is considered past.
func NewSessionValidationService(sessions sessionFinder, margin time.Duration, logger *zap.Logger) *SessionValidationService {
	if margin <= 0 {
		margin = 30 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionValidationService{sessions: sessions, margin: margin, logger: logger, now: time.Now}
}

// Classify returns the state of a session at the given instant.
func (s *SessionValidationService) Classify(session *models.CourseSession, at time.Time) dto.MutabilityState {
	switch {
	case at.Before(session.StartAt):
		return dto.StateFuture
	case !at.After(session.EndAt):
		return dto.StateOngoing
	case !at.After(session.EndAt.Add(s.margin)):
		return dto.StateRecentlyEnded
	default:
		return dto.StatePast
	}
}

// Evaluate derives the permission set of a loaded session.
func (s *SessionValidationService) Evaluate(session *models.CourseSession) dto.MutabilityResult {
	state := s.Classify(session, s.now())
	result := dto.MutabilityResult{SessionID: session.ID, State: state}

	switch state {
	case dto.StateFuture:
		result.CanModify = true
		result.CanDelete = true
		result.CanChangeRoom = true
		result.CanChangeGroups = true
		result.CanChangeSchedule = true
		result.Reason = "Session à venir, toutes les modifications sont autorisées"
	case dto.StateOngoing:
		result.Reason = "Session en cours, aucune modification n'est autorisée"
	case dto.StateRecentlyEnded:
		result.Reason = "Session récemment terminée, les modifications sont bloquées"
	default:
		result.Reason = fmt.Sprintf("Session terminée depuis plus de %s, elle est verrouillée", marginLabel(s.margin))
	}
	return result
}

// CheckMutability loads the session and reports what may still change.
func (s *SessionValidationService) CheckMutability(ctx context.Context, sessionID string) (*dto.MutabilityResult, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	result := s.Evaluate(session)
	return &result, nil
}

// GetSessionStatus returns the display status of a session.
func (s *SessionValidationService) GetSessionStatus(ctx context.Context, sessionID string) (*dto.SessionStatus, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	result := s.Evaluate(session)
	text := sessionStatusTexts[result.State]
	description := text.description
	if result.State == dto.StatePast {
		description = fmt.Sprintf(description, marginLabel(s.margin))
	}
	return &dto.SessionStatus{
		SessionID:   session.ID,
		Status:      result.State,
		Label:       text.label,
		Description: description,
		CanModify:   result.CanModify,
	}, nil
}

// marginLabel renders the edit margin in whole minutes.
func marginLabel(margin time.Duration) string {
	minutes := int(margin / time.Minute)
	if minutes == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}

func (s *SessionValidationService) load(ctx context.Context, sessionID string) (*models.CourseSession, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	return session, nil
}

// lockedError describes why a session refused a change.
func lockedError(result dto.MutabilityResult) *appErrors.Error {
	return appErrors.WithDetails(
		appErrors.Clone(appErrors.ErrSessionLocked, result.Reason),
		map[string]any{"state": result.State, "reason": result.Reason},
	)
}
