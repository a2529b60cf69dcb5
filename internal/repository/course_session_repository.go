package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-planner-api/internal/models"
)

const sessionColumns = `cs.id, cs.academic_year_id, cs.course_id, cs.site_id, cs.room_id, cs.start_at, cs.end_at, cs.created_at, cs.updated_at`

// CourseSessionRepository persists course sessions and their group/equipment joins.
type CourseSessionRepository struct {
	db *sqlx.DB
}

// NewCourseSessionRepository constructs the repository.
func NewCourseSessionRepository(db *sqlx.DB) *CourseSessionRepository {
	return &CourseSessionRepository{db: db}
}

func (r *CourseSessionRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a session, assigning an id when missing.
func (r *CourseSessionRepository) Create(ctx context.Context, exec sqlx.ExtContext, session *models.CourseSession) error {
	if session == nil {
		return fmt.Errorf("session payload is nil")
	}
	if !session.StartAt.Before(session.EndAt) {
		return fmt.Errorf("session must start before it ends")
	}
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	const query = `
INSERT INTO course_sessions (id, academic_year_id, course_id, site_id, room_id, start_at, end_at, created_at, updated_at)
VALUES (:id, :academic_year_id, :course_id, :site_id, :room_id, :start_at, :end_at, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, session); err != nil {
		return fmt.Errorf("insert course session: %w", err)
	}
	return nil
}

// AttachGroups links groups to a session.
func (r *CourseSessionRepository) AttachGroups(ctx context.Context, exec sqlx.ExtContext, sessionID string, groupIDs []string) error {
	if len(groupIDs) == 0 {
		return nil
	}
	values := make([]string, 0, len(groupIDs))
	args := make([]interface{}, 0, len(groupIDs)+1)
	args = append(args, sessionID)
	for i, groupID := range groupIDs {
		values = append(values, fmt.Sprintf("($1, $%d)", i+2))
		args = append(args, groupID)
	}
	query := `INSERT INTO session_groups (session_id, group_id) VALUES ` + strings.Join(values, ", ") + ` ON CONFLICT DO NOTHING`
	if _, err := r.exec(exec).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("attach session groups: %w", err)
	}
	return nil
}

// ReplaceGroups swaps the attending groups of a session.
func (r *CourseSessionRepository) ReplaceGroups(ctx context.Context, exec sqlx.ExtContext, sessionID string, groupIDs []string) error {
	target := r.exec(exec)
	if _, err := target.ExecContext(ctx, `DELETE FROM session_groups WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("clear session groups: %w", err)
	}
	return r.AttachGroups(ctx, target, sessionID, groupIDs)
}

// AttachEquipment books equipment units for a session.
func (r *CourseSessionRepository) AttachEquipment(ctx context.Context, exec sqlx.ExtContext, sessionID string, equipmentIDs []string) error {
	target := r.exec(exec)
	for _, equipmentID := range equipmentIDs {
		const query = `INSERT INTO session_equipment (session_id, equipment_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
		if _, err := target.ExecContext(ctx, query, sessionID, equipmentID); err != nil {
			return fmt.Errorf("attach session equipment %s: %w", equipmentID, err)
		}
	}
	return nil
}

// FindByID loads a session by id.
func (r *CourseSessionRepository) FindByID(ctx context.Context, id string) (*models.CourseSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM course_sessions cs WHERE cs.id = $1`
	var session models.CourseSession
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// ListGroupIDs returns the groups attending a session.
func (r *CourseSessionRepository) ListGroupIDs(ctx context.Context, sessionID string) ([]string, error) {
	const query = `SELECT group_id FROM session_groups WHERE session_id = $1 ORDER BY group_id ASC`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, sessionID); err != nil {
		return nil, fmt.Errorf("list session groups: %w", err)
	}
	return ids, nil
}

// ListByRoomInRange returns the room's sessions touching [from, to], boundaries included.
func (r *CourseSessionRepository) ListByRoomInRange(ctx context.Context, roomID string, from, to time.Time) ([]models.CourseSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM course_sessions cs
WHERE cs.room_id = $1 AND cs.start_at <= $2 AND cs.end_at >= $3
ORDER BY cs.start_at ASC`
	var sessions []models.CourseSession
	if err := r.db.SelectContext(ctx, &sessions, query, roomID, to, from); err != nil {
		return nil, fmt.Errorf("list room sessions: %w", err)
	}
	return sessions, nil
}

// ListByGroupInRange returns the group's sessions touching [from, to], optionally excluding one session.
func (r *CourseSessionRepository) ListByGroupInRange(ctx context.Context, groupID string, from, to time.Time, excludeSessionID string) ([]models.CourseSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM course_sessions cs
JOIN session_groups sg ON sg.session_id = cs.id
WHERE sg.group_id = $1 AND cs.start_at <= $2 AND cs.end_at >= $3 AND cs.id::text <> $4
ORDER BY cs.start_at ASC`
	var sessions []models.CourseSession
	if err := r.db.SelectContext(ctx, &sessions, query, groupID, to, from, excludeSessionID); err != nil {
		return nil, fmt.Errorf("list group sessions: %w", err)
	}
	return sessions, nil
}

// ListGroupSessions returns one row per (session, group) ordered by group then start time.
// An empty academic year id lists every session.
func (r *CourseSessionRepository) ListGroupSessions(ctx context.Context, academicYearID string) ([]models.GroupSession, error) {
	var (
		query strings.Builder
		args  []interface{}
	)
	query.WriteString(`SELECT ` + sessionColumns + `, sg.group_id FROM course_sessions cs
JOIN session_groups sg ON sg.session_id = cs.id`)
	if academicYearID != "" {
		query.WriteString(` WHERE cs.academic_year_id = $1`)
		args = append(args, academicYearID)
	}
	query.WriteString(` ORDER BY sg.group_id ASC, cs.start_at ASC, cs.id ASC`)

	var rows []models.GroupSession
	if err := r.db.SelectContext(ctx, &rows, query.String(), args...); err != nil {
		return nil, fmt.Errorf("list group sessions: %w", err)
	}
	return rows, nil
}

// ListDetailsByGroup returns the group's sessions in [from, to) with display names.
func (r *CourseSessionRepository) ListDetailsByGroup(ctx context.Context, groupID string, from, to time.Time) ([]models.SessionDetail, error) {
	query := `SELECT ` + sessionColumns + `, sg.group_id,
c.code AS course_code, c.title AS course_title, s.name AS site_name, rm.name AS room_name, s.timezone
FROM course_sessions cs
JOIN session_groups sg ON sg.session_id = cs.id
JOIN courses c ON c.id = cs.course_id
JOIN sites s ON s.id = cs.site_id
JOIN rooms rm ON rm.id = cs.room_id
WHERE sg.group_id = $1 AND cs.start_at >= $2 AND cs.start_at < $3
ORDER BY cs.start_at ASC, cs.id ASC`
	var rows []models.SessionDetail
	if err := r.db.SelectContext(ctx, &rows, query, groupID, from, to); err != nil {
		return nil, fmt.Errorf("list session details: %w", err)
	}
	return rows, nil
}

// Update persists a moved session.
func (r *CourseSessionRepository) Update(ctx context.Context, exec sqlx.ExtContext, session *models.CourseSession) error {
	session.UpdatedAt = time.Now().UTC()
	const query = `UPDATE course_sessions SET site_id = $1, room_id = $2, start_at = $3, end_at = $4, updated_at = $5 WHERE id = $6`
	result, err := r.exec(exec).ExecContext(ctx, query, session.SiteID, session.RoomID, session.StartAt, session.EndAt, session.UpdatedAt, session.ID)
	if err != nil {
		return fmt.Errorf("update course session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("course session rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a session; joins and deplacements cascade.
func (r *CourseSessionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM course_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete course session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("course session rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
