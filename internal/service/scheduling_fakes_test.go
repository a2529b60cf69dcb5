package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-planner-api/internal/models"
	"github.com/noah-isme/campus-planner-api/internal/repository"
	"github.com/noah-isme/campus-planner-api/pkg/config"
)

const (
	testYearID  = "5f0c2a5e-2a47-4a4e-9d0e-6a1b7e0c1a01"
	testUniID   = "uni-1"
	testSiteA   = "site-a"
	testSiteB   = "site-b"
	testGroupID = "group-1"

	roomA30 = "3c9a1f52-7d4e-4b8a-9e21-0a5b6c7d8e30"
	roomA31 = "3c9a1f52-7d4e-4b8a-9e21-0a5b6c7d8e31"
	roomB50 = "7e2d4b90-1c3a-4f6e-8b57-9d0a1b2c3e50"
)

func strPtr(v string) *string { return &v }

func testPlanningConfig() config.PlanningConfig {
	return config.PlanningConfig{
		CourseDuration:   time.Hour,
		InterSiteTravel:  60 * time.Minute,
		SameSiteTravel:   5 * time.Minute,
		GroupSizeMin:     20,
		GroupSizeMax:     40,
		EditSafetyMargin: 30 * time.Minute,
		MaxExecutionTime: time.Minute,
		DefaultTimezone:  "UTC",
	}
}

func testSite(id, start, end string, days ...string) models.Site {
	return models.Site{
		ID:           id,
		UniversityID: testUniID,
		Name:         "Site " + id,
		Timezone:     "UTC",
		DayStart:     strPtr(start),
		DayEnd:       strPtr(end),
		ActiveDays:   days,
	}
}

// 2024-09-02 is a Monday.
func mondayYear() *models.AcademicYear {
	return &models.AcademicYear{
		ID:           testYearID,
		UniversityID: testUniID,
		Name:         "2024-2025",
		StartDate:    time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC),
		State:        models.AcademicYearActive,
	}
}

// newMockTx returns a tx provider backed by sqlmock expecting n committed transactions.
func newMockTx(t *testing.T, commits int) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	for i := 0; i < commits; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}
	return sqlx.NewDb(db, "sqlmock"), mock
}

type fakeYears map[string]*models.AcademicYear

func (f fakeYears) FindByID(_ context.Context, id string) (*models.AcademicYear, error) {
	if y, ok := f[id]; ok {
		return y, nil
	}
	return nil, sql.ErrNoRows
}

type fakeGroups struct {
	items []models.Group
	err   error
}

func (f *fakeGroups) ListByAcademicYear(_ context.Context, academicYearID string) ([]models.Group, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Group
	for _, g := range f.items {
		if g.AcademicYearID == academicYearID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeGroups) FindByID(_ context.Context, id string) (*models.Group, error) {
	for i := range f.items {
		if f.items[i].ID == id {
			return &f.items[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

type fakeCourses struct {
	byGroup  map[string][]models.Course
	required map[string][]string
}

func (f *fakeCourses) ListByGroup(_ context.Context, groupID string) ([]models.Course, error) {
	return f.byGroup[groupID], nil
}

func (f *fakeCourses) ListRequiredEquipmentTypes(_ context.Context, courseID string) ([]string, error) {
	return f.required[courseID], nil
}

type fakeSites map[string]models.Site

func (f fakeSites) FindByID(_ context.Context, id string) (*models.Site, error) {
	if s, ok := f[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (f fakeSites) ListSiblings(_ context.Context, universityID, excludeSiteID string) ([]models.Site, error) {
	var out []models.Site
	for _, s := range f {
		if s.UniversityID == universityID && s.ID != excludeSiteID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type fakeRooms []models.Room

func (f fakeRooms) FindSmallestFitting(_ context.Context, siteID string, minCapacity int) (*models.Room, error) {
	var best *models.Room
	for i := range f {
		r := f[i]
		if r.SiteID != siteID || r.Capacity < minCapacity {
			continue
		}
		if best == nil || r.Capacity < best.Capacity || (r.Capacity == best.Capacity && r.ID < best.ID) {
			best = &r
		}
	}
	if best == nil {
		return nil, sql.ErrNoRows
	}
	return best, nil
}

func (f fakeRooms) FindByID(_ context.Context, id string) (*models.Room, error) {
	for i := range f {
		if f[i].ID == id {
			return &f[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

// fakeSessions is an in-memory course session store.
type fakeSessions struct {
	mu         sync.Mutex
	sessions   []models.CourseSession
	groups     map[string][]string
	equipment  map[string][]string
	createErrs []error
	seq        int
	deleted    []string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{groups: map[string][]string{}, equipment: map[string][]string{}}
}

func (f *fakeSessions) Create(_ context.Context, _ sqlx.ExtContext, session *models.CourseSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		if err != nil {
			return err
		}
	}
	f.seq++
	session.ID = fmt.Sprintf("session-%03d", f.seq)
	f.sessions = append(f.sessions, *session)
	return nil
}

func (f *fakeSessions) AttachGroups(_ context.Context, _ sqlx.ExtContext, sessionID string, groupIDs []string) error {
	f.groups[sessionID] = append(f.groups[sessionID], groupIDs...)
	return nil
}

func (f *fakeSessions) AttachEquipment(_ context.Context, _ sqlx.ExtContext, sessionID string, equipmentIDs []string) error {
	f.equipment[sessionID] = append(f.equipment[sessionID], equipmentIDs...)
	return nil
}

func (f *fakeSessions) ReplaceGroups(_ context.Context, _ sqlx.ExtContext, sessionID string, groupIDs []string) error {
	f.groups[sessionID] = append([]string(nil), groupIDs...)
	return nil
}

func (f *fakeSessions) FindByID(_ context.Context, id string) (*models.CourseSession, error) {
	for i := range f.sessions {
		if f.sessions[i].ID == id {
			s := f.sessions[i]
			return &s, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeSessions) ListGroupIDs(_ context.Context, sessionID string) ([]string, error) {
	return f.groups[sessionID], nil
}

func (f *fakeSessions) ListByRoomInRange(_ context.Context, roomID string, from, to time.Time) ([]models.CourseSession, error) {
	var out []models.CourseSession
	for _, s := range f.sessions {
		if s.RoomID == roomID && !s.StartAt.After(to) && !s.EndAt.Before(from) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSessions) ListByGroupInRange(_ context.Context, groupID string, from, to time.Time, exclude string) ([]models.CourseSession, error) {
	var out []models.CourseSession
	for _, s := range f.sessions {
		if s.ID == exclude || s.StartAt.After(to) || s.EndAt.Before(from) {
			continue
		}
		for _, g := range f.groups[s.ID] {
			if g == groupID {
				out = append(out, s)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeSessions) ListGroupSessions(_ context.Context, academicYearID string) ([]models.GroupSession, error) {
	var out []models.GroupSession
	for _, s := range f.sessions {
		if academicYearID != "" && s.AcademicYearID != academicYearID {
			continue
		}
		for _, g := range f.groups[s.ID] {
			out = append(out, models.GroupSession{CourseSession: s, GroupID: g})
		}
	}
	return out, nil
}

func (f *fakeSessions) Update(_ context.Context, _ sqlx.ExtContext, session *models.CourseSession) error {
	for i := range f.sessions {
		if f.sessions[i].ID == session.ID {
			f.sessions[i] = *session
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeSessions) Delete(_ context.Context, id string) error {
	for i := range f.sessions {
		if f.sessions[i].ID == id {
			f.sessions = append(f.sessions[:i], f.sessions[i+1:]...)
			f.deleted = append(f.deleted, id)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeSessions) add(session models.CourseSession, groupIDs ...string) {
	f.sessions = append(f.sessions, session)
	f.groups[session.ID] = groupIDs
}

type fakeEquipment struct {
	units    []models.Equipment
	bookings []repository.EquipmentBooking
}

func (f *fakeEquipment) ListMobileByType(_ context.Context, siteID string, typeIDs []string) ([]models.Equipment, error) {
	wanted := map[string]bool{}
	for _, id := range typeIDs {
		wanted[id] = true
	}
	var out []models.Equipment
	for _, u := range f.units {
		if u.SiteID == siteID && u.IsMobile && wanted[u.TypeID] {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeEquipment) ListBookings(_ context.Context, _ []string, _, _ time.Time) ([]repository.EquipmentBooking, error) {
	return f.bookings, nil
}

type recordingInvalidator struct{ calls int }

func (r *recordingInvalidator) InvalidatePlanning(context.Context) error {
	r.calls++
	return nil
}

type recordingTravel struct{ years []string }

func (r *recordingTravel) ScheduleRebuild(academicYearID string) error {
	r.years = append(r.years, academicYearID)
	return nil
}

func equipmentBookingAt(equipmentID string, start time.Time) repository.EquipmentBooking {
	return repository.EquipmentBooking{EquipmentID: equipmentID, SessionID: "booked-" + equipmentID, StartAt: start, EndAt: start.Add(time.Hour)}
}
