package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-planner-api/internal/dto"
	"github.com/noah-isme/campus-planner-api/internal/models"
	appErrors "github.com/noah-isme/campus-planner-api/pkg/errors"
)

const otherGroupID = "0b7f4c1e-8d2a-4c55-b1a4-3f9e2d7c6a10"

type sessionFixture struct {
	svc      *SessionService
	sessions *fakeSessions
	cache    *recordingInvalidator
	travel   *recordingTravel
}

func newSessionFixture(t *testing.T, now time.Time, commits int) *sessionFixture {
	t.Helper()
	validation, sessions := validationFixture(now)
	sessions.add(models.CourseSession{ID: "s2", AcademicYearID: testYearID, SiteID: testSiteA, RoomID: roomA31, StartAt: at(2, 10), EndAt: at(2, 11)}, otherGroupID)
	rooms := fakeRooms{
		{ID: roomA30, SiteID: testSiteA, Capacity: 30},
		{ID: roomA31, SiteID: testSiteA, Capacity: 30},
		{ID: roomB50, SiteID: testSiteB, Capacity: 50},
	}
	groups := &fakeGroups{items: []models.Group{testGroup(testGroupID, 25), testGroup(otherGroupID, 25)}}
	db, _ := newMockTx(t, commits)
	f := &sessionFixture{sessions: sessions, cache: &recordingInvalidator{}, travel: &recordingTravel{}}
	f.svc = NewSessionService(sessions, rooms, groups, db, validation, time.Hour, f.cache, f.travel, nil, nil)
	return f
}

func TestUpdateSessionMovesToFreeRoom(t *testing.T) {
	f := newSessionFixture(t, at(1, 12), 1)
	room := roomB50
	start := at(2, 14)

	updated, err := f.svc.UpdateSession(context.Background(), "s1", dto.UpdateSessionRequest{RoomID: &room, StartAt: &start})
	require.NoError(t, err)
	assert.Equal(t, roomB50, updated.RoomID)
	assert.Equal(t, testSiteB, updated.SiteID)
	assert.Equal(t, at(2, 15), updated.EndAt)
	assert.Equal(t, 1, f.cache.calls)
	assert.Equal(t, []string{testYearID}, f.travel.years)
}

func TestUpdateSessionRejectsRoomCollision(t *testing.T) {
	f := newSessionFixture(t, at(1, 12), 0)
	room := roomA31
	start := at(2, 10)

	_, err := f.svc.UpdateSession(context.Background(), "s1", dto.UpdateSessionRequest{RoomID: &room, StartAt: &start})
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
}

func TestUpdateSessionRejectsGroupCollision(t *testing.T) {
	f := newSessionFixture(t, at(1, 12), 0)
	start := at(2, 10)

	_, err := f.svc.UpdateSession(context.Background(), "s1", dto.UpdateSessionRequest{
		StartAt:  &start,
		GroupIDs: []string{otherGroupID},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
	assert.Contains(t, err.Error(), otherGroupID)
}

func TestUpdateSessionRejectsUnknownGroup(t *testing.T) {
	f := newSessionFixture(t, at(1, 12), 0)

	_, err := f.svc.UpdateSession(context.Background(), "s1", dto.UpdateSessionRequest{
		GroupIDs: []string{"5f0c2a5e-2a47-4a4e-9d0e-6a1b7e0c1a99"},
	})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestUpdateSessionRejectsEmptyRequest(t *testing.T) {
	f := newSessionFixture(t, at(1, 12), 0)

	_, err := f.svc.UpdateSession(context.Background(), "s1", dto.UpdateSessionRequest{})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestUpdateSessionLockedWhenOngoing(t *testing.T) {
	f := newSessionFixture(t, at(2, 8).Add(10*time.Minute), 0)
	start := at(2, 14)

	_, err := f.svc.UpdateSession(context.Background(), "s1", dto.UpdateSessionRequest{StartAt: &start})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrSessionLocked))
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, dto.StateOngoing, appErr.Details["state"])
}

func TestDeleteSessionFuture(t *testing.T) {
	f := newSessionFixture(t, at(1, 12), 0)

	require.NoError(t, f.svc.DeleteSession(context.Background(), "s1"))
	assert.Equal(t, []string{"s1"}, f.sessions.deleted)
}

func TestDeleteSessionPastIsLocked(t *testing.T) {
	f := newSessionFixture(t, at(3, 12), 0)

	err := f.svc.DeleteSession(context.Background(), "s1")
	assert.True(t, errors.Is(err, appErrors.ErrSessionLocked))
	assert.Empty(t, f.sessions.deleted)
}

func TestIsTimeSlotAvailableIgnoresExcludedSession(t *testing.T) {
	f := newSessionFixture(t, at(1, 12), 0)

	free, err := f.svc.IsTimeSlotAvailable(context.Background(), testGroupID, at(2, 8), at(2, 9), "s1")
	require.NoError(t, err)
	assert.True(t, free)

	free, err = f.svc.IsTimeSlotAvailable(context.Background(), testGroupID, at(2, 9), at(2, 10), "")
	require.NoError(t, err)
	assert.False(t, free)
}
