package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-planner-api/internal/models"
)

const deplacementColumns = `d.id, d.session_depart_id, d.site_depart_id, d.room_depart_id,
d.session_arrivee_id, d.site_arrivee_id, d.room_arrivee_id, d.group_id,
d.heure_depart, d.heure_arrivee, d.duree_trajet_minutes, d.created_at, d.updated_at`

// DeplacementRepository persists derived travel records.
type DeplacementRepository struct {
	db *sqlx.DB
}

// NewDeplacementRepository constructs the repository.
func NewDeplacementRepository(db *sqlx.DB) *DeplacementRepository {
	return &DeplacementRepository{db: db}
}

func (r *DeplacementRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// DeleteAll removes every deplacement and reports how many were dropped.
func (r *DeplacementRepository) DeleteAll(ctx context.Context, exec sqlx.ExtContext) (int64, error) {
	result, err := r.exec(exec).ExecContext(ctx, `DELETE FROM deplacements`)
	if err != nil {
		return 0, fmt.Errorf("delete deplacements: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deplacement rows affected: %w", err)
	}
	return affected, nil
}

// DeleteByAcademicYear removes deplacements departing from sessions of the academic year.
func (r *DeplacementRepository) DeleteByAcademicYear(ctx context.Context, exec sqlx.ExtContext, academicYearID string) (int64, error) {
	const query = `DELETE FROM deplacements d USING course_sessions cs
WHERE cs.id = d.session_depart_id AND cs.academic_year_id = $1`
	result, err := r.exec(exec).ExecContext(ctx, query, academicYearID)
	if err != nil {
		return 0, fmt.Errorf("delete deplacements by academic year: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deplacement rows affected: %w", err)
	}
	return affected, nil
}

// Create inserts a deplacement. It returns false when the (depart, arrivee, group) edge already exists.
func (r *DeplacementRepository) Create(ctx context.Context, exec sqlx.ExtContext, d *models.Deplacement) (bool, error) {
	if d == nil {
		return false, fmt.Errorf("deplacement payload is nil")
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now

	const query = `
INSERT INTO deplacements (id, session_depart_id, site_depart_id, room_depart_id, session_arrivee_id, site_arrivee_id, room_arrivee_id,
	group_id, heure_depart, heure_arrivee, duree_trajet_minutes, created_at, updated_at)
VALUES (:id, :session_depart_id, :site_depart_id, :room_depart_id, :session_arrivee_id, :site_arrivee_id, :room_arrivee_id,
	:group_id, :heure_depart, :heure_arrivee, :duree_trajet_minutes, :created_at, :updated_at)
ON CONFLICT (session_depart_id, session_arrivee_id, group_id) DO NOTHING`
	result, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, d)
	if err != nil {
		return false, fmt.Errorf("insert deplacement: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deplacement rows affected: %w", err)
	}
	return affected > 0, nil
}

// List returns a page of deplacements ordered by departure time, with the total count.
func (r *DeplacementRepository) List(ctx context.Context, filter models.DeplacementFilter) ([]models.Deplacement, int, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.GroupID != "" {
		args = append(args, filter.GroupID)
		conditions = append(conditions, fmt.Sprintf("d.group_id = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("d.heure_depart >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("d.heure_depart < $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM deplacements d`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count deplacements: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM deplacements d%s ORDER BY d.heure_depart ASC, d.id ASC LIMIT $%d OFFSET $%d`,
		deplacementColumns, where, len(args)+1, len(args)+2)
	args = append(args, size, (page-1)*size)

	var items []models.Deplacement
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list deplacements: %w", err)
	}
	return items, total, nil
}

// ListDetailsByGroup returns the group's deplacements departing within [from, to).
func (r *DeplacementRepository) ListDetailsByGroup(ctx context.Context, groupID string, from, to time.Time) ([]models.DeplacementDetail, error) {
	query := `SELECT ` + deplacementColumns + `,
sd.name AS site_depart_name, sa.name AS site_arrivee_name, rd.name AS room_depart_name, ra.name AS room_arrivee_name
FROM deplacements d
JOIN sites sd ON sd.id = d.site_depart_id
JOIN sites sa ON sa.id = d.site_arrivee_id
JOIN rooms rd ON rd.id = d.room_depart_id
JOIN rooms ra ON ra.id = d.room_arrivee_id
WHERE d.group_id = $1 AND d.heure_depart >= $2 AND d.heure_depart < $3
ORDER BY d.heure_depart ASC`
	var rows []models.DeplacementDetail
	if err := r.db.SelectContext(ctx, &rows, query, groupID, from, to); err != nil {
		return nil, fmt.Errorf("list deplacement details: %w", err)
	}
	return rows, nil
}

// Stats counts all, inter-site and departing-in-[dayStart, dayEnd) deplacements.
func (r *DeplacementRepository) Stats(ctx context.Context, dayStart, dayEnd time.Time) (*models.DeplacementStats, error) {
	const query = `SELECT COUNT(*) AS total,
COUNT(*) FILTER (WHERE site_depart_id <> site_arrivee_id) AS inter_site,
COUNT(*) FILTER (WHERE heure_depart >= $1 AND heure_depart < $2) AS today
FROM deplacements`
	var stats models.DeplacementStats
	if err := r.db.GetContext(ctx, &stats, query, dayStart, dayEnd); err != nil {
		return nil, fmt.Errorf("deplacement stats: %w", err)
	}
	return &stats, nil
}
