package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-planner-api/internal/models"
)

var sessionRowColumns = []string{"id", "academic_year_id", "course_id", "site_id", "room_id", "start_at", "end_at", "created_at", "updated_at"}

func TestCourseSessionRepositoryCreateWithJoins(t *testing.T) {
	db, mock, cleanup := newPlanningRepoMock(t)
	defer cleanup()
	repo := NewCourseSessionRepository(db)

	start := time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO course_sessions")).
		WithArgs(sqlmock.AnyArg(), "ay-1", "course-1", "site-a", "room-30", start, start.Add(time.Hour), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO session_groups (session_id, group_id) VALUES ($1, $2) ON CONFLICT DO NOTHING")).
		WithArgs(sqlmock.AnyArg(), "grp-1").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO session_equipment (session_id, equipment_id) VALUES ($1, $2)")).
		WithArgs(sqlmock.AnyArg(), "eq-1").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	session := &models.CourseSession{
		AcademicYearID: "ay-1",
		CourseID:       "course-1",
		SiteID:         "site-a",
		RoomID:         "room-30",
		StartAt:        start,
		EndAt:          start.Add(time.Hour),
	}
	require.NoError(t, repo.Create(context.Background(), tx, session))
	require.NoError(t, repo.AttachGroups(context.Background(), tx, session.ID, []string{"grp-1"}))
	require.NoError(t, repo.AttachEquipment(context.Background(), tx, session.ID, []string{"eq-1"}))
	require.NoError(t, tx.Commit())

	assert.NotEmpty(t, session.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseSessionRepositoryCreateRejectsInvertedInterval(t *testing.T) {
	db, mock, cleanup := newPlanningRepoMock(t)
	defer cleanup()
	repo := NewCourseSessionRepository(db)

	start := time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC)
	err := repo.Create(context.Background(), nil, &models.CourseSession{StartAt: start, EndAt: start})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseSessionRepositoryListByRoomInRange(t *testing.T) {
	db, mock, cleanup := newPlanningRepoMock(t)
	defer cleanup()
	repo := NewCourseSessionRepository(db)

	from := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 7)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE cs.room_id = $1 AND cs.start_at <= $2 AND cs.end_at >= $3")).
		WithArgs("room-30", to, from).
		WillReturnRows(sqlmock.NewRows(sessionRowColumns).
			AddRow("sess-1", "ay-1", "course-1", "site-a", "room-30", from.Add(8*time.Hour), from.Add(9*time.Hour), time.Now(), time.Now()))

	sessions, err := repo.ListByRoomInRange(context.Background(), "room-30", from, to)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseSessionRepositoryListGroupSessionsScoped(t *testing.T) {
	db, mock, cleanup := newPlanningRepoMock(t)
	defer cleanup()
	repo := NewCourseSessionRepository(db)

	start := time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE cs.academic_year_id = $1 ORDER BY sg.group_id ASC, cs.start_at ASC, cs.id ASC")).
		WithArgs("ay-1").
		WillReturnRows(sqlmock.NewRows(append(append([]string{}, sessionRowColumns...), "group_id")).
			AddRow("sess-1", "ay-1", "course-1", "site-a", "room-30", start, start.Add(time.Hour), time.Now(), time.Now(), "grp-1"))

	rows, err := repo.ListGroupSessions(context.Background(), "ay-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "grp-1", rows[0].GroupID)
	assert.Equal(t, "sess-1", rows[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseSessionRepositoryListGroupSessionsAll(t *testing.T) {
	db, mock, cleanup := newPlanningRepoMock(t)
	defer cleanup()
	repo := NewCourseSessionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("JOIN session_groups sg ON sg.session_id = cs.id ORDER BY sg.group_id ASC")).
		WillReturnRows(sqlmock.NewRows(append(append([]string{}, sessionRowColumns...), "group_id")))

	rows, err := repo.ListGroupSessions(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseSessionRepositoryUpdateNotFound(t *testing.T) {
	db, mock, cleanup := newPlanningRepoMock(t)
	defer cleanup()
	repo := NewCourseSessionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE course_sessions SET site_id = $1, room_id = $2, start_at = $3, end_at = $4, updated_at = $5 WHERE id = $6")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), nil, &models.CourseSession{ID: "missing"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseSessionRepositoryReplaceGroups(t *testing.T) {
	db, mock, cleanup := newPlanningRepoMock(t)
	defer cleanup()
	repo := NewCourseSessionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM session_groups WHERE session_id = $1")).
		WithArgs("sess-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO session_groups (session_id, group_id) VALUES ($1, $2), ($1, $3)")).
		WithArgs("sess-1", "grp-1", "grp-2").
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.ReplaceGroups(context.Background(), nil, "sess-1", []string{"grp-1", "grp-2"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseSessionRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newPlanningRepoMock(t)
	defer cleanup()
	repo := NewCourseSessionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM course_sessions WHERE id = $1")).
		WithArgs("sess-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "sess-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
