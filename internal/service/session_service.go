package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-planner-api/internal/dto"
	"github.com/noah-isme/campus-planner-api/internal/models"
	appErrors "github.com/noah-isme/campus-planner-api/pkg/errors"
)

// SessionStore is the persistence needed to edit booked sessions.
type SessionStore interface {
	FindByID(ctx context.Context, id string) (*models.CourseSession, error)
	ListGroupIDs(ctx context.Context, sessionID string) ([]string, error)
	ListByRoomInRange(ctx context.Context, roomID string, from, to time.Time) ([]models.CourseSession, error)
	ListByGroupInRange(ctx context.Context, groupID string, from, to time.Time, excludeSessionID string) ([]models.CourseSession, error)
	Update(ctx context.Context, exec sqlx.ExtContext, session *models.CourseSession) error
	ReplaceGroups(ctx context.Context, exec sqlx.ExtContext, sessionID string, groupIDs []string) error
	Delete(ctx context.Context, id string) error
}

type roomReader interface {
	FindByID(ctx context.Context, id string) (*models.Room, error)
}

type groupReader interface {
	FindByID(ctx context.Context, id string) (*models.Group, error)
}

// SessionService edits and removes sessions subject to their mutability.
type SessionService struct {
	sessions   SessionStore
	rooms      roomReader
	groups     groupReader
	tx         txProvider
	mutability *SessionValidationService
	duration   time.Duration
	cache      planningCacheInvalidator
	travel     travelRebuildScheduler
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewSessionService constructs the session editing service.
func NewSessionService(
	sessions SessionStore,
	rooms roomReader,
	groups groupReader,
	tx txProvider,
	mutability *SessionValidationService,
	duration time.Duration,
	cache planningCacheInvalidator,
	travel travelRebuildScheduler,
	validate *validator.Validate,
	logger *zap.Logger,
) *SessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if duration <= 0 {
		duration = 60 * time.Minute
	}
	return &SessionService{
		sessions:   sessions,
		rooms:      rooms,
		groups:     groups,
		tx:         tx,
		mutability: mutability,
		duration:   duration,
		cache:      cache,
		travel:     travel,
		validator:  validate,
		logger:     logger,
	}
}

// IsTimeSlotAvailable reports whether the group attends no other session over [start, end].
func (s *SessionService) IsTimeSlotAvailable(ctx context.Context, groupID string, start, end time.Time, excludeSessionID string) (bool, error) {
	busy, err := s.sessions.ListByGroupInRange(ctx, groupID, start, end, excludeSessionID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check group availability")
	}
	bookings := make(Bookings, 0, len(busy))
	for _, other := range busy {
		bookings.Add(other.StartAt, other.EndAt)
	}
	return !bookings.Collides(start, end), nil
}

func (s *SessionService) isRoomFree(ctx context.Context, roomID string, start, end time.Time, excludeSessionID string) (bool, error) {
	existing, err := s.sessions.ListByRoomInRange(ctx, roomID, start, end)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check room availability")
	}
	for _, booked := range existing {
		if booked.ID == excludeSessionID {
			continue
		}
		if Overlaps(Interval{Start: booked.StartAt, End: booked.EndAt}, start, end) {
			return false, nil
		}
	}
	return true, nil
}

// UpdateSession moves a session to another room or start time and optionally
// replaces its groups. The end is always start plus the course duration.
func (s *SessionService) UpdateSession(ctx context.Context, sessionID string, req dto.UpdateSessionRequest) (*models.CourseSession, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session update")
	}
	if req.RoomID == nil && req.StartAt == nil && req.GroupIDs == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "nothing to update")
	}

	session, err := s.mutability.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	verdict := s.mutability.Evaluate(session)
	if !verdict.CanModify {
		return nil, lockedError(verdict)
	}

	updated := *session
	if req.RoomID != nil && *req.RoomID != session.RoomID {
		room, err := s.rooms.FindByID(ctx, *req.RoomID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
		}
		updated.RoomID = room.ID
		updated.SiteID = room.SiteID
	}
	if req.StartAt != nil {
		start := req.StartAt.UTC()
		if !start.After(s.mutability.now()) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "a session cannot be moved into the past")
		}
		updated.StartAt = start
		updated.EndAt = start.Add(s.duration)
	}

	groupIDs := req.GroupIDs
	if groupIDs == nil {
		groupIDs, err = s.sessions.ListGroupIDs(ctx, session.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session groups")
		}
	} else {
		for _, groupID := range groupIDs {
			if _, err := s.groups.FindByID(ctx, groupID); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("group %s not found", groupID))
				}
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
			}
		}
	}

	if err := s.ensureFree(ctx, &updated, groupIDs); err != nil {
		return nil, err
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to start transaction")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := s.sessions.Update(ctx, tx, &updated); err != nil {
		if isUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "room already booked at this time")
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update session")
	}
	if req.GroupIDs != nil {
		if err := s.sessions.ReplaceGroups(ctx, tx, updated.ID, req.GroupIDs); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update session groups")
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit session update")
	}
	committed = true

	s.logger.Info("session updated",
		zap.String("session_id", updated.ID),
		zap.String("room_id", updated.RoomID),
		zap.Time("start_at", updated.StartAt),
		zap.Int("groups", len(groupIDs)),
	)
	s.afterChange(ctx, updated.AcademicYearID)
	return &updated, nil
}

// ensureFree rejects moves that collide with another booking of the room or of any attending group.
func (s *SessionService) ensureFree(ctx context.Context, session *models.CourseSession, groupIDs []string) error {
	free, err := s.isRoomFree(ctx, session.RoomID, session.StartAt, session.EndAt, session.ID)
	if err != nil {
		return err
	}
	if !free {
		return appErrors.Clone(appErrors.ErrConflict, "room already booked at this time")
	}
	for _, groupID := range groupIDs {
		free, err := s.IsTimeSlotAvailable(ctx, groupID, session.StartAt, session.EndAt, session.ID)
		if err != nil {
			return err
		}
		if !free {
			return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("group %s already attends a session at this time", groupID))
		}
	}
	return nil
}

// DeleteSession removes a session that has not started yet.
func (s *SessionService) DeleteSession(ctx context.Context, sessionID string) error {
	session, err := s.mutability.load(ctx, sessionID)
	if err != nil {
		return err
	}
	verdict := s.mutability.Evaluate(session)
	if !verdict.CanDelete {
		return lockedError(verdict)
	}
	if err := s.sessions.Delete(ctx, session.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete session")
	}
	s.logger.Info("session deleted", zap.String("session_id", session.ID), zap.Time("start_at", session.StartAt))
	s.afterChange(ctx, session.AcademicYearID)
	return nil
}

func (s *SessionService) afterChange(ctx context.Context, academicYearID string) {
	if s.cache != nil {
		if err := s.cache.InvalidatePlanning(ctx); err != nil {
			s.logger.Warn("planning cache invalidation failed", zap.Error(err))
		}
	}
	if s.travel != nil {
		if err := s.travel.ScheduleRebuild(academicYearID); err != nil {
			s.logger.Warn("travel rebuild not scheduled", zap.String("academic_year_id", academicYearID), zap.Error(err))
		}
	}
}
