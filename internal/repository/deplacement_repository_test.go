package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-planner-api/internal/models"
)

func TestDeplacementRepositoryCreateSkipsDuplicates(t *testing.T) {
	db, mock, cleanup := newPlanningRepoMock(t)
	defer cleanup()
	repo := NewDeplacementRepository(db)

	depart := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	payload := &models.Deplacement{
		SessionDepartID:    "sess-1",
		SiteDepartID:       "site-a",
		RoomDepartID:       "room-a",
		SessionArriveeID:   "sess-2",
		SiteArriveeID:      "site-b",
		RoomArriveeID:      "room-b",
		GroupID:            "grp-1",
		HeureDepart:        depart,
		HeureArrivee:       depart.Add(time.Hour),
		DureeTrajetMinutes: 60,
	}

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (session_depart_id, session_arrivee_id, group_id) DO NOTHING")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (session_depart_id, session_arrivee_id, group_id) DO NOTHING")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	inserted, err := repo.Create(context.Background(), nil, payload)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.Create(context.Background(), nil, payload)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeplacementRepositoryDeletes(t *testing.T) {
	db, mock, cleanup := newPlanningRepoMock(t)
	defer cleanup()
	repo := NewDeplacementRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM deplacements")).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM deplacements d USING course_sessions cs")).
		WithArgs("ay-1").
		WillReturnResult(sqlmock.NewResult(0, 2))

	deleted, err := repo.DeleteAll(context.Background(), nil)
	require.NoError(t, err)
	assert.EqualValues(t, 4, deleted)

	deleted, err = repo.DeleteByAcademicYear(context.Background(), nil, "ay-1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeplacementRepositoryListPaginates(t *testing.T) {
	db, mock, cleanup := newPlanningRepoMock(t)
	defer cleanup()
	repo := NewDeplacementRepository(db)

	depart := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM deplacements d WHERE d.group_id = $1")).
		WithArgs("grp-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY d.heure_depart ASC, d.id ASC LIMIT $2 OFFSET $3")).
		WithArgs("grp-1", 2, 2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "session_depart_id", "site_depart_id", "room_depart_id", "session_arrivee_id", "site_arrivee_id", "room_arrivee_id", "group_id", "heure_depart", "heure_arrivee", "duree_trajet_minutes", "created_at", "updated_at"}).
			AddRow("dep-3", "sess-3", "site-a", "room-a", "sess-4", "site-a", "room-a", "grp-1", depart, depart.Add(time.Hour), 5, time.Now(), time.Now()))

	items, total, err := repo.List(context.Background(), models.DeplacementFilter{GroupID: "grp-1", Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, items, 1)
	assert.False(t, items[0].IsInterSite())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeplacementRepositoryStats(t *testing.T) {
	db, mock, cleanup := newPlanningRepoMock(t)
	defer cleanup()
	repo := NewDeplacementRepository(db)

	day := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("COUNT(*) FILTER (WHERE site_depart_id <> site_arrivee_id) AS inter_site")).
		WithArgs(day, day.AddDate(0, 0, 1)).
		WillReturnRows(sqlmock.NewRows([]string{"total", "inter_site", "today"}).AddRow(10, 4, 2))

	stats, err := repo.Stats(context.Background(), day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, models.DeplacementStats{Total: 10, InterSite: 4, Today: 2}, *stats)
	assert.NoError(t, mock.ExpectationsWereMet())
}
